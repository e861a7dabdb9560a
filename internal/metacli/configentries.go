package metacli

import (
	"github.com/spf13/cobra"
)

func newConfigEntriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read and manage the keyed config directory",
	}
	cmd.AddCommand(newConfigGetCmd())
	cmd.AddCommand(newConfigListCmd())
	cmd.AddCommand(newConfigDeleteCmd())
	return cmd
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <configClass> <configKey>",
		Short: "Resolve a config key to its entry and object",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := NewHTTPClient(GetConfig())
			body, err := client.Get("config/"+args[0]+"/"+args[1], nil)
			if err != nil {
				return err
			}
			return printJSONBytes(cmd, body)
		},
	}
}

func newConfigListCmd() *cobra.Command {
	var (
		objectType     string
		subType        string
		includeDeleted bool
	)
	cmd := &cobra.Command{
		Use:   "list <configClass>",
		Short: "List the live entries of a config class",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := map[string]string{}
			if objectType != "" {
				params["objectType"] = objectType
			}
			if subType != "" {
				params["subType"] = subType
			}
			if includeDeleted {
				params["includeDeleted"] = "true"
			}
			client := NewHTTPClient(GetConfig())
			body, err := client.Get("config/"+args[0], params)
			if err != nil {
				return err
			}
			return printJSONBytes(cmd, body)
		},
	}
	cmd.Flags().StringVar(&objectType, "object-type", "", "Filter by pointed-at object type")
	cmd.Flags().StringVar(&subType, "sub-type", "", "Filter by sub-type")
	cmd.Flags().BoolVar(&includeDeleted, "include-deleted", false, "Include tombstoned entries")
	return cmd
}

func newConfigDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <configClass> <configKey>",
		Short: "Tombstone a config key (trusted surface)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := NewHTTPClient(GetConfig())
			if err := client.Delete("config/" + args[0] + "/" + args[1]); err != nil {
				return err
			}
			cmd.Printf("config entry %s/%s deleted\n", args[0], args[1])
			return nil
		},
	}
}
