package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ssargent/freyjadoc/pkg/document"
	"github.com/ssargent/freyjadoc/pkg/model"
)

func newPutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "put <model> <json>",
		Short: "Create or update a record",
		Long: `Create or update a record from a JSON object. Pass - to read the
object from stdin. When the object carries the primary key of a stored
record, omitted attributes keep their stored values.

Examples:
  freyjadoc put character '{"name": "Jon Snow", "aka": ["Lord Snow"]}'
  freyjadoc put place - < winterfell.json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := envFrom(cmd)
			if err != nil {
				return err
			}
			c, err := e.collection(args[0])
			if err != nil {
				return err
			}

			raw := []byte(args[1])
			if args[1] == "-" {
				if raw, err = io.ReadAll(cmd.InOrStdin()); err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
			}
			values, err := document.Unmarshal(raw)
			if err != nil {
				return model.Validation("record must be a JSON object: %v", err)
			}

			rec, created, err := c.Upsert(cmd.Context(), values)
			if err != nil {
				return err
			}
			doc, err := c.Document(cmd.Context(), rec.PK())
			if err != nil {
				return err
			}

			verb := "updated"
			if created {
				verb = "created"
			}
			e.logger.Debug().Str("model", c.Model().QualifiedName()).Msg("record " + verb)
			return writeDocument(cmd.OutOrStdout(), doc, "json")
		},
	}
}
