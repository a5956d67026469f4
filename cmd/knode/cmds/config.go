package cmds

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}

	var showSecrets bool
	printCmd := &cobra.Command{
		Use:   "print",
		Short: "Print the effective configuration as a YAML config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings()
			if err != nil {
				return err
			}
			s = s.Clone()
			if !showSecrets && s.OpenAI.APIKey != "" {
				s.OpenAI.APIKey = "***"
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(s.ConfigMap()); err != nil {
				return err
			}
			return enc.Close()
		},
	}
	printCmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "Print the API key in clear")
	cmd.AddCommand(printCmd)
	return cmd
}
