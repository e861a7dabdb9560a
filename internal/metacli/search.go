package metacli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newSearchCmd() *cobra.Command {
	var (
		file          string
		asOf          string
		priorVersions bool
		priorTags     bool
	)
	cmd := &cobra.Command{
		Use:   "search -f <search.yaml|search.json>",
		Short: "Search objects by attribute expression",
		Long: `Search runs an attribute search from a file holding the search
parameters (objectType plus the expression tree), in YAML or JSON.
Flags override the temporal scope in the file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("-f is required")
			}
			raw, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			doc, err := toJSONDocument(raw)
			if err != nil {
				return err
			}
			if asOf != "" {
				t, err := parseAsOf(asOf)
				if err != nil {
					return err
				}
				doc["searchAsOf"] = t
			}
			if priorVersions {
				doc["priorVersions"] = true
			}
			if priorTags {
				doc["priorTags"] = true
			}
			body, err := marshalJSONDocument(doc)
			if err != nil {
				return err
			}
			client := NewHTTPClient(GetConfig())
			rsp, _, err := client.Post("search", body)
			if err != nil {
				return err
			}
			return printJSONBytes(cmd, rsp)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Search parameters file (YAML or JSON)")
	cmd.Flags().StringVar(&asOf, "as-of", "", "Restrict the search universe to tags at or before this time")
	cmd.Flags().BoolVar(&priorVersions, "prior-versions", false, "Include superseded object versions")
	cmd.Flags().BoolVar(&priorTags, "prior-tags", false, "Include superseded tags")
	return cmd
}
