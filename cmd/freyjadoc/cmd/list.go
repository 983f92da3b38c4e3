package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	listCmd := &cobra.Command{
		Use:   "list [model]",
		Short: "List records, or the record types when no model is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := envFrom(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				for _, name := range e.schema.Collections() {
					fmt.Fprintln(out, name)
				}
				return nil
			}

			c, err := e.collection(args[0])
			if err != nil {
				return err
			}
			docs, err := c.Documents(cmd.Context())
			if err != nil {
				return err
			}
			format, _ := cmd.Flags().GetString("output")
			return writeDocuments(out, docs, format)
		},
	}
	listCmd.Flags().StringP("output", "o", "json", "Output format (json, table)")
	return listCmd
}
