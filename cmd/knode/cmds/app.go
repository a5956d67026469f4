// Package cmds holds the knode subcommands.
package cmds

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Yiozolm/Knode/pkg/backend"
	"github.com/Yiozolm/Knode/pkg/flowchart"
	"github.com/Yiozolm/Knode/pkg/orchestrator"
	"github.com/Yiozolm/Knode/pkg/settings"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// AddSettingsFlags registers the flags that settings.FromViper reads.
func AddSettingsFlags(fs *pflag.FlagSet) {
	d := settings.Default()

	fs.String("backend", string(d.Backend.Kind), "Backend kind (http, local)")
	fs.String("backend-url", d.Backend.URL, "Base URL of the http backend")
	fs.Duration("backend-timeout", d.Backend.Timeout, "Timeout of a backend request")

	fs.String("model-id", d.Model.ID, "Model used for new conversations")
	fs.String("system-prompt", d.Model.SystemPrompt, "System prompt used for new conversations")
	fs.Float64("temperature", float64(d.Model.Temperature), "Sampling temperature (local backend)")
	fs.Int("max-tokens", d.Model.MaxTokens, "Maximum answer tokens, 0 for the model default (local backend)")
	fs.Int("history-window", d.Model.HistoryWindow, "Ancestor messages sent along with a question (local backend)")

	fs.String("openai-api-key", "", "API key of the OpenAI compatible endpoint (local backend)")
	fs.String("openai-base-url", d.OpenAI.BaseURL, "Base URL of the OpenAI compatible endpoint (local backend)")
	fs.String("db-path", d.Store.Path, "SQLite database, or :memory: (local backend)")

	fs.Duration("status-ttl", d.Status.TTL, "How long status banners stay visible")
}

func loadSettings() (*settings.Settings, error) {
	return settings.FromViper(viper.GetViper())
}

// app bundles what every command needs to drive a session.
type app struct {
	settings *settings.Settings
	backend  backend.Backend
	orch     *orchestrator.Orchestrator
	runner   *orchestrator.Runner
	close    func() error
}

func newApp() (*app, error) {
	s, err := loadSettings()
	if err != nil {
		return nil, err
	}

	b, closeBackend, err := newBackend(s)
	if err != nil {
		return nil, err
	}

	orch, err := newOrchestrator(s)
	if err != nil {
		_ = closeBackend()
		return nil, err
	}

	return &app{
		settings: s,
		backend:  b,
		orch:     orch,
		runner:   orchestrator.NewRunner(b),
		close:    closeBackend,
	}, nil
}

func (a *app) Close() {
	if err := a.close(); err != nil {
		log.Error().Err(err).Msg("Failed to close backend")
	}
}

func (a *app) initialState() orchestrator.State {
	return orchestrator.NewState(a.settings.Model.SystemPrompt, a.settings.Model.ID)
}

func (a *app) diagramOptions() flowchart.Options {
	return flowchart.Options{Layout: a.settings.Layout, Labels: a.settings.Labels}
}

// drive runs evs to completion on s and turns an error banner into an
// error.
func (a *app) drive(ctx context.Context, s orchestrator.State, evs ...orchestrator.Event) (orchestrator.State, error) {
	s, err := orchestrator.Drive(ctx, a.orch, a.runner, s, evs...)
	if err != nil {
		return s, err
	}
	if s.Status.Kind == orchestrator.StatusError && s.Status.Visible() {
		return s, errors.New(s.Status.Message)
	}
	return s, nil
}

// open loads conversationID, or resumes the latest conversation when it is
// empty.
func (a *app) open(ctx context.Context, conversationID string) (orchestrator.State, error) {
	if conversationID == "" {
		return a.drive(ctx, a.initialState(), orchestrator.Started{})
	}
	return a.drive(ctx, a.initialState(), orchestrator.ConversationOpened{ID: conversationID})
}

func newBackend(s *settings.Settings) (backend.Backend, func() error, error) {
	switch s.Backend.Kind {
	case settings.BackendHTTP:
		log.Debug().Str("url", s.Backend.URL).Msg("Using http backend")
		b := backend.NewHTTPClient(s.Backend.URL, backend.WithTimeout(s.Backend.Timeout))
		return b, func() error { return nil }, nil

	case settings.BackendLocal:
		if s.Store.Path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(s.Store.Path), 0o755); err != nil {
				return nil, nil, errors.Wrap(err, "could not create database directory")
			}
		}
		store, err := backend.NewSQLiteStore(s.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		client, err := backend.MakeClient(s.OpenAI.APIKey, s.OpenAI.BaseURL)
		if err != nil {
			_ = store.Close()
			return nil, nil, err
		}
		log.Debug().
			Str("db", s.Store.Path).
			Str("base-url", s.OpenAI.BaseURL).
			Msg("Using local backend")
		b := backend.NewLocal(store, backend.NewOpenAICompleter(client), backend.LocalOptions{
			SystemPrompt:  s.Model.SystemPrompt,
			ModelID:       s.Model.ID,
			HistoryWindow: s.Model.HistoryWindow,
			Temperature:   s.Model.Temperature,
			MaxTokens:     s.Model.MaxTokens,
		})
		return b, store.Close, nil
	}

	return nil, nil, errors.Errorf("unknown backend %q", s.Backend.Kind)
}

func newOrchestrator(s *settings.Settings) (*orchestrator.Orchestrator, error) {
	prompter, err := orchestrator.NewPrompter(s.Explore.AnswerTemplate, s.Explore.ExcerptTemplate)
	if err != nil {
		return nil, err
	}
	return orchestrator.New(prompter, orchestrator.WithStatusTTL(s.Status.TTL)), nil
}

func printStatus(w io.Writer, s orchestrator.State) {
	if s.Status.Visible() {
		_, _ = fmt.Fprintf(w, "%s\n", s.Status.Message)
	}
}
