package cmds

import (
	"encoding/json"
	"io"
	"os"

	"github.com/Yiozolm/Knode/pkg/conversation"
	"github.com/Yiozolm/Knode/pkg/flowchart"
	"github.com/Yiozolm/Knode/pkg/render"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func NewShowCommand() *cobra.Command {
	var (
		conversationID string
		nodeID         string
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print a conversation as an outline, or one node in detail",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			s, err := a.open(cmd.Context(), conversationID)
			if err != nil {
				return err
			}
			d := flowchart.Build(s.Tree, a.diagramOptions())
			w := cmd.OutOrStdout()

			if nodeID == "" {
				return render.Outline(w, d)
			}

			box, ok := boxOf(d, conversation.NodeID(nodeID))
			if !ok {
				return errors.Errorf("node %s is not part of conversation %s", nodeID, s.ConversationID())
			}
			markdown, err := render.NewMarkdown("auto", 80)
			if err != nil {
				return err
			}
			_, err = io.WriteString(w, markdown.Detail(box))
			return err
		},
	}
	cmd.Flags().StringVar(&conversationID, "conversation", "", "Conversation to show (default: the latest one)")
	cmd.Flags().StringVar(&nodeID, "node", "", "Show the question or answer with this id in detail")
	return cmd
}

func NewRenderCommand() *cobra.Command {
	var (
		conversationID string
		output         string
		format         string
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a conversation as an SVG flowchart or as the diagram JSON document",
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "svg" && format != "json" {
				return errors.Errorf("unknown format %q (expected svg or json)", format)
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			s, err := a.open(cmd.Context(), conversationID)
			if err != nil {
				return err
			}
			d := flowchart.Build(s.Tree, a.diagramOptions())

			var w io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return errors.Wrap(err, "could not create output file")
				}
				defer func() {
					if err := f.Close(); err != nil {
						log.Error().Err(err).Str("file", output).Msg("Failed to close output file")
					}
				}()
				w = f
			}

			if format == "json" {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				if err := enc.Encode(d); err != nil {
					return err
				}
			} else if err := render.SVG(w, d, a.settings.Labels); err != nil {
				return err
			}
			log.Debug().Int("boxes", len(d.Boxes)).Str("output", output).Msg("Rendered conversation")
			return nil
		},
	}
	cmd.Flags().StringVar(&conversationID, "conversation", "", "Conversation to render (default: the latest one)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	cmd.Flags().StringVar(&format, "format", "svg", "Output format (svg, json)")
	return cmd
}

// boxOf finds the box showing id, as its question or as its answer.
func boxOf(d *flowchart.Diagram, id conversation.NodeID) (flowchart.Box, bool) {
	if b, ok := d.Box(id); ok {
		return b, true
	}
	for _, b := range d.Boxes {
		if b.AnswerID == id {
			return b, true
		}
	}
	return flowchart.Box{}, false
}
