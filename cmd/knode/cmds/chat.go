package cmds

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Yiozolm/Knode/pkg/conversation"
	"github.com/Yiozolm/Knode/pkg/orchestrator"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func NewChatCommand() *cobra.Command {
	var conversationID string

	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Ask a top-level question",
		Long: "Ask a top-level question. The message is read from stdin when no " +
			"argument is given. The question becomes the new root of the conversation.",
		RunE: func(cmd *cobra.Command, args []string) error {
			content, err := messageFromArgs(args)
			if err != nil {
				return err
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			s, err := a.open(ctx, conversationID)
			if err != nil {
				return err
			}
			s, err = a.drive(ctx, s, orchestrator.ChatSubmitted{Content: content})
			if err != nil {
				return err
			}

			root := s.Tree.Root
			if root == nil || root.Answer() == nil {
				return errors.New("no answer received")
			}
			return printAnswer(cmd.OutOrStdout(), s, root)
		},
	}
	cmd.Flags().StringVar(&conversationID, "conversation", "", "Conversation to continue (default: the latest one)")
	return cmd
}

func NewExploreCommand() *cobra.Command {
	var (
		conversationID string
		parentID       string
		answerID       string
		excerpt        string
	)

	cmd := &cobra.Command{
		Use:   "explore [prompt]",
		Short: "Explore a node of the conversation",
		Long: "Ask a follow-up question under an existing node.\n\n" +
			"With --answer the prompt is derived from the answer's content, with " +
			"--excerpt from the given excerpt of it. Otherwise --parent and a prompt " +
			"are required.",
		RunE: func(cmd *cobra.Command, args []string) error {
			var ev orchestrator.Event
			var parent conversation.NodeID
			switch {
			case answerID != "" && excerpt != "":
				parent = conversation.NodeID(answerID)
				ev = orchestrator.ExcerptExplored{NodeID: parent, Excerpt: excerpt}
			case answerID != "":
				parent = conversation.NodeID(answerID)
				ev = orchestrator.AnswerExplored{AnswerID: parent}
			case parentID != "":
				prompt, err := messageFromArgs(args)
				if err != nil {
					return err
				}
				parent = conversation.NodeID(parentID)
				ev = orchestrator.ExplorationRequested{ParentID: parent, Prompt: prompt}
			default:
				return errors.New("either --answer or --parent is required")
			}

			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			s, err := a.open(ctx, conversationID)
			if err != nil {
				return err
			}
			if !conversation.Contains(s.Tree.Root, parent) {
				return errors.Errorf("node %s is not part of conversation %s", parent, s.ConversationID())
			}

			s, err = a.drive(ctx, s, ev)
			if err != nil {
				return err
			}

			n, ok := s.Tree.Find(parent)
			if !ok || len(n.Children) == 0 {
				return errors.New("exploration did not settle")
			}
			return printAnswer(cmd.OutOrStdout(), s, n.Children[len(n.Children)-1])
		},
	}
	cmd.Flags().StringVar(&conversationID, "conversation", "", "Conversation to explore (default: the latest one)")
	cmd.Flags().StringVar(&parentID, "parent", "", "Node to ask the prompt under")
	cmd.Flags().StringVar(&answerID, "answer", "", "Answer to explore")
	cmd.Flags().StringVar(&excerpt, "excerpt", "", "Explore this excerpt of --answer instead of the whole answer")
	return cmd
}

// messageFromArgs joins args, or reads stdin when there are none and stdin is
// not a terminal.
func messageFromArgs(args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if isatty.IsTerminal(os.Stdin.Fd()) {
		return "", errors.New("a message is required")
	}
	b, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", errors.Wrap(err, "could not read stdin")
	}
	content := strings.TrimSpace(string(b))
	if content == "" {
		return "", errors.New("a message is required")
	}
	return content, nil
}

func printAnswer(w io.Writer, s orchestrator.State, question *conversation.Node) error {
	answer := question.Answer()
	if answer == nil {
		if question.Pending.IsError() {
			return errors.New(question.Pending.Message)
		}
		return errors.Errorf("question %s has no answer", question.ID)
	}
	_, err := fmt.Fprintf(w, "%s\n\n(conversation %s, question %s, answer %s", answer.Content, s.ConversationID(), question.ID, answer.ID)
	if err != nil {
		return err
	}
	if answer.Tokens != nil {
		_, err = fmt.Fprintf(w, ", %d/%d tokens", answer.Tokens.Input, answer.Tokens.Output)
		if err != nil {
			return err
		}
	}
	_, err = fmt.Fprintln(w, ")")
	return err
}
