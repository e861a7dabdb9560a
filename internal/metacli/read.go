package metacli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/meridian-data/meridian/pkg/metadata"
	"github.com/meridian-data/meridian/pkg/types"
)

func newReadCmd() *cobra.Command {
	var (
		objectVersion int
		objectAsOf    string
		tagVersion    int
		tagAsOf       string
	)
	cmd := &cobra.Command{
		Use:   "read <objectType> <objectId>",
		Short: "Read one object tag by selector",
		Long: `Read resolves a single object tag. With no flags the current latest tag
of the latest version is returned. --version / --tag pin explicit numbers;
--as-of / --tag-as-of resolve by timestamp (RFC 3339, inclusive).`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			objectID, err := uuid.Parse(args[1])
			if err != nil {
				return fmt.Errorf("invalid object id: %s", args[1])
			}
			selector := metadata.TagSelector{
				ObjectType: types.ObjectType(strings.ToUpper(args[0])),
				ObjectID:   objectID,
			}
			if objectVersion > 0 {
				selector.ObjectVersion = &objectVersion
			}
			if objectAsOf != "" {
				t, err := parseAsOf(objectAsOf)
				if err != nil {
					return err
				}
				selector.ObjectAsOf = &t
			}
			if tagVersion > 0 {
				selector.TagVersion = &tagVersion
			}
			if tagAsOf != "" {
				t, err := parseAsOf(tagAsOf)
				if err != nil {
					return err
				}
				selector.TagAsOf = &t
			}

			body, err := json.Marshal(selector)
			if err != nil {
				return err
			}
			client := NewHTTPClient(GetConfig())
			rsp, _, err := client.Post("objects/read", body)
			if err != nil {
				return err
			}
			return printJSONBytes(cmd, rsp)
		},
	}
	cmd.Flags().IntVar(&objectVersion, "version", 0, "Explicit object version")
	cmd.Flags().StringVar(&objectAsOf, "as-of", "", "Object version as of time (RFC 3339)")
	cmd.Flags().IntVar(&tagVersion, "tag", 0, "Explicit tag version")
	cmd.Flags().StringVar(&tagAsOf, "tag-as-of", "", "Tag version as of time (RFC 3339)")
	return cmd
}

func parseAsOf(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q, want RFC 3339", s)
	}
	return t.UTC(), nil
}
