package cmds

import (
	"context"
	"os"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/Yiozolm/Knode/pkg/events"
	"github.com/Yiozolm/Knode/pkg/orchestrator"
	"github.com/Yiozolm/Knode/pkg/render"
	"github.com/Yiozolm/Knode/pkg/ui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

func NewTUICommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Explore conversations interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunTUI(cmd.Context())
		},
	}
	return cmd
}

// RunTUI starts the interactive explorer and blocks until the user quits.
func RunTUI(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	markdown, err := render.NewMarkdown("auto", 80)
	if err != nil {
		return err
	}

	router, err := events.NewEventRouter(events.WithVerbose(viper.GetBool("verbose")))
	if err != nil {
		return err
	}
	defer func() {
		_ = router.Close()
	}()

	router.AddHandler("log", events.SessionTopic, func(msg *message.Message) error {
		defer msg.Ack()
		e, err := events.NewEventFromJson(msg.Payload)
		if err != nil {
			return err
		}
		log.Debug().
			Str("type", string(e.Type())).
			Object("meta", e.Metadata()).
			Msg("session notification")
		return nil
	})

	publisher := events.NewPublisherManager()
	publisher.SubscribePublisher(events.SessionTopic, router.Publisher)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var p *tea.Program
	session := orchestrator.NewSession(a.orch, a.runner, a.initialState(),
		orchestrator.WithPublisher(publisher),
		orchestrator.WithOnChange(func(s orchestrator.State) {
			p.Send(ui.StateMsg{State: s})
		}),
	)

	options := []tea.ProgramOption{tea.WithContext(ctx)}
	if isatty.IsTerminal(os.Stdout.Fd()) {
		options = append(options, tea.WithAltScreen())
	} else {
		options = append(options, tea.WithOutput(os.Stderr))
	}
	p = tea.NewProgram(
		ui.NewModel(ctx, session, session.Snapshot(), a.diagramOptions(), markdown),
		options...,
	)

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return session.Run(ctx)
	})
	eg.Go(func() error {
		return router.Run(ctx)
	})
	eg.Go(func() error {
		defer cancel()
		_, err := p.Run()
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	})

	err = eg.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
