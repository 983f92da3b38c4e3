package cmd

import (
	"github.com/spf13/cobra"
)

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <model> <id>",
		Short: "Delete a record",
		Long: `Delete a record by primary key.

Example:
  freyjadoc delete character 2Bf2vJpC3R8qYiVwTIny0rzEWMK`,
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
			if err := c.Delete(cmd.Context(), args[1]); err != nil {
				return err
			}
			cmd.Printf("Deleted %s %s\n", c.Model().QualifiedName(), args[1])
			return nil
		},
	}
}
