package metacli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newApplyCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "apply -f <bundle.yaml|bundle.json>",
		Short: "Commit a write bundle atomically",
		Long: `Apply submits a write bundle: object creates, version and tag updates,
id preallocations, and config directory writes, committed in one
transaction. The file may be YAML or JSON in the shape of the batch API.`,
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
			body, err := marshalJSONDocument(doc)
			if err != nil {
				return err
			}
			client := NewHTTPClient(GetConfig())
			rsp, _, err := client.Post("batch", body)
			if err != nil {
				return err
			}
			return printJSONBytes(cmd, rsp)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Write bundle file (YAML or JSON)")
	return cmd
}

// toJSONDocument parses a YAML or JSON document into a generic map. YAML is
// the superset, so one parse covers both.
func toJSONDocument(raw []byte) (map[string]any, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("unable to parse document: %w", err)
	}
	return doc, nil
}

func marshalJSONDocument(doc map[string]any) ([]byte, error) {
	return json.Marshal(doc)
}
