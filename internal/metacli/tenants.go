package metacli

import (
	"encoding/json"
	"net/http"

	"github.com/spf13/cobra"
)

func newTenantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Administer tenants (trusted surface)",
	}
	cmd.AddCommand(newTenantCreateCmd())
	cmd.AddCommand(newTenantListCmd())
	cmd.AddCommand(newTenantDeleteCmd())
	return cmd
}

func newTenantCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <tenantId>",
		Short: "Create a tenant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := json.Marshal(map[string]string{"tenantId": args[0]})
			if err != nil {
				return err
			}
			client := NewHTTPClient(GetConfig())
			_, _, err = client.DoRequest(RequestOptions{
				Method:   http.MethodPost,
				Path:     "/admin/tenants",
				Body:     body,
				Unscoped: true,
			})
			if err != nil {
				return err
			}
			cmd.Printf("tenant %s created\n", args[0])
			return nil
		},
	}
}

func newTenantListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tenants",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := NewHTTPClient(GetConfig())
			body, _, err := client.DoRequest(RequestOptions{
				Method:   http.MethodGet,
				Path:     "/admin/tenants",
				Unscoped: true,
			})
			if err != nil {
				return err
			}
			return printJSONBytes(cmd, body)
		},
	}
}

func newTenantDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <tenantId>",
		Short: "Delete an empty tenant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := NewHTTPClient(GetConfig())
			_, _, err := client.DoRequest(RequestOptions{
				Method:   http.MethodDelete,
				Path:     "/admin/tenants/" + args[0],
				Unscoped: true,
			})
			if err != nil {
				return err
			}
			cmd.Printf("tenant %s deleted\n", args[0])
			return nil
		},
	}
}
