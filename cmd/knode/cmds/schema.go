package cmds

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Yiozolm/Knode/pkg/flowchart"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func NewSchemaCommand() *cobra.Command {
	var validate string

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the JSON schema of the diagram document, or validate a document against it",
		RunE: func(cmd *cobra.Command, args []string) error {
			if validate != "" {
				doc, err := os.ReadFile(validate)
				if err != nil {
					return errors.Wrap(err, "could not read document")
				}
				if err := flowchart.Validate(doc); err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s is a valid diagram\n", validate)
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(flowchart.Schema())
		},
	}
	cmd.Flags().StringVar(&validate, "validate", "", "Validate this diagram JSON file instead of printing the schema")
	return cmd
}
