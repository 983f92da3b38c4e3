package cmd

import (
	"github.com/spf13/cobra"
)

func newGetCmd() *cobra.Command {
	getCmd := &cobra.Command{
		Use:   "get <model> <id>",
		Short: "Show a record",
		Long: `Show the stored document of a record.

Example:
  freyjadoc get character 2Bf2vJpC3R8qYiVwTIny0rzEWMK --output table`,
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

			doc, err := c.Document(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			format, _ := cmd.Flags().GetString("output")
			return writeDocument(cmd.OutOrStdout(), doc, format)
		},
	}
	getCmd.Flags().StringP("output", "o", "json", "Output format (json, table)")
	return getCmd
}
