package cmds

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Yiozolm/Knode/pkg/backend"
	"github.com/Yiozolm/Knode/pkg/orchestrator"
	"github.com/Yiozolm/Knode/pkg/ui"
	"github.com/mb0/glob"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/tcnksm/go-input"
	"gopkg.in/yaml.v3"
)

func NewConversationsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"conv"},
		Short:   "Manage persisted conversations",
	}
	cmd.AddCommand(
		newListCommand(),
		newSearchCommand(),
		newDeleteCommand(),
		newRenameCommand(),
	)
	return cmd
}

func newListCommand() *cobra.Command {
	var format, titleGlob, modelGlob string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the most recently updated conversations",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			s, err := a.drive(cmd.Context(), a.initialState(), orchestrator.ConversationsRefreshed{})
			if err != nil {
				return err
			}
			cs, err := filterConversations(s.Conversations, titleGlob, modelGlob)
			if err != nil {
				return err
			}
			return printConversations(cmd.OutOrStdout(), format, cs)
		},
	}
	addFormatFlag(cmd, &format)
	cmd.Flags().StringVar(&titleGlob, "title", "", "Only list conversations whose title matches this glob")
	cmd.Flags().StringVar(&modelGlob, "model", "", "Only list conversations whose model matches this glob")
	return cmd
}

func newSearchCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search conversations by title and content",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			query := strings.Join(args, " ")
			s, err := a.drive(cmd.Context(), a.initialState(), orchestrator.ConversationsSearched{Query: query})
			if err != nil {
				return err
			}
			return printConversations(cmd.OutOrStdout(), format, s.SearchResults)
		},
	}
	addFormatFlag(cmd, &format)
	return cmd
}

func newDeleteCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a conversation and all its nodes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			if !yes {
				ok, err := confirm(fmt.Sprintf("Delete conversation %s? [y/n]", id))
				if err != nil {
					return err
				}
				if !ok {
					return nil
				}
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			s, err := a.drive(cmd.Context(), a.initialState(), orchestrator.ConversationRemoved{ID: id})
			if err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), s)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func newRenameCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rename <id> <title>",
		Short: "Rename a conversation",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			s, err := a.drive(cmd.Context(), a.initialState(), orchestrator.ConversationRetitled{
				ID:    args[0],
				Title: strings.Join(args[1:], " "),
			})
			if err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), s)
			return nil
		},
	}
	return cmd
}

func filterConversations(cs []backend.ConversationSummary, titleGlob, modelGlob string) ([]backend.ConversationSummary, error) {
	if titleGlob == "" && modelGlob == "" {
		return cs, nil
	}
	var ret []backend.ConversationSummary
	for _, c := range cs {
		if titleGlob != "" {
			matching, err := glob.Match(titleGlob, c.Title)
			if err != nil {
				return nil, errors.Wrap(err, "invalid title glob")
			}
			if !matching {
				continue
			}
		}
		if modelGlob != "" {
			matching, err := glob.Match(modelGlob, c.ModelID)
			if err != nil {
				return nil, errors.Wrap(err, "invalid model glob")
			}
			if !matching {
				continue
			}
		}
		ret = append(ret, c)
	}
	return ret, nil
}

func addFormatFlag(cmd *cobra.Command, format *string) {
	cmd.Flags().StringVar(format, "output", "table", "Output format (table, json, yaml)")
}

func printConversations(w io.Writer, format string, cs []backend.ConversationSummary) error {
	if cs == nil {
		cs = []backend.ConversationSummary{}
	}
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(cs)
	case "yaml":
		enc := yaml.NewEncoder(w)
		defer func() {
			_ = enc.Close()
		}()
		return enc.Encode(cs)
	case "table", "":
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "ID\tTITLE\tMODEL\tUPDATED")
		for _, c := range cs {
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.ID, c.Title, c.ModelID, c.UpdatedAt.Local().Format(time.DateTime))
		}
		return tw.Flush()
	}
	return errors.Errorf("unknown output format %q", format)
}

func confirm(query string) (bool, error) {
	tty_, err := ui.OpenTTY()
	if err != nil {
		return false, err
	}
	defer func() {
		err := tty_.Close()
		if err != nil {
			fmt.Println("Failed to close tty:", err)
		}
	}()

	in := &input.UI{
		Writer: tty_,
		Reader: tty_,
	}

	answer, err := in.Ask(query, &input.Options{
		Default:  "n",
		Required: true,
		Loop:     true,
		ValidateFunc: func(answer string) error {
			switch answer {
			case "y", "Y", "n", "N":
				return nil
			default:
				return fmt.Errorf("please enter 'y' or 'n'")
			}
		},
	})
	if err != nil {
		return false, err
	}
	return answer == "y" || answer == "Y", nil
}
