// Package metacli implements the meridian command line client.
package metacli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configFile string
)

var rootCmd = &cobra.Command{
	Use:   "meridian",
	Short: "Meridian CLI - a command line client for the Meridian metadata server",
	Long: `Meridian CLI is a command line client for the Meridian metadata server.
It reads, searches, and writes versioned metadata objects and the keyed
config directory, and administers tenants on the trusted surface.`,
	PersistentPreRun: preRunHandlePersistents,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "", "", "Path to configuration file to override default")

	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newInfoCmd())
	rootCmd.AddCommand(newReadCmd())
	rootCmd.AddCommand(newSearchCmd())
	rootCmd.AddCommand(newApplyCmd())
	rootCmd.AddCommand(newConfigEntriesCmd())
	rootCmd.AddCommand(newTenantCmd())
}

// Execute runs the root command. Called once from main.
func Execute() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func preRunHandlePersistents(cmd *cobra.Command, args []string) {
	// "init" writes the config; everything else needs it loaded.
	if cmd.Name() == "init" {
		return
	}
	if err := LoadConfig(configFile); err != nil {
		if os.IsNotExist(err) {
			fmt.Println("Meridian config file not found. Configure with \"meridian init\" first.")
			os.Exit(1)
		}
		fmt.Printf("Unable to load config file: %s\n", err.Error())
		os.Exit(1)
	}
}

func newInitCmd() *cobra.Command {
	c := &Config{Version: "v1"}
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the CLI configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.Server == "" || c.Tenant == "" {
				return fmt.Errorf("--server and --tenant are required")
			}
			if err := WriteConfig(c, configFile); err != nil {
				return err
			}
			cmd.Println("configuration written")
			return nil
		},
	}
	cmd.Flags().StringVar(&c.Server, "server", "", "Server base URL, host:port")
	cmd.Flags().StringVar(&c.Tenant, "tenant", "", "Tenant code")
	cmd.Flags().StringVar(&c.UserID, "user-id", "", "Caller user id")
	cmd.Flags().StringVar(&c.UserName, "user-name", "", "Caller user name")
	cmd.Flags().BoolVar(&c.Trusted, "trusted", false, "Use the trusted API surface")
	return cmd
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show server version and environment",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := NewHTTPClient(GetConfig())
			body, _, err := client.DoRequest(RequestOptions{Method: "GET", Path: "/info", Unscoped: true})
			if err != nil {
				return err
			}
			return printJSONBytes(cmd, body)
		},
	}
}

// printJSONBytes pretty-prints a JSON response body.
func printJSONBytes(cmd *cobra.Command, body []byte) error {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		cmd.Println(string(body))
		return nil
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(out))
	return nil
}
