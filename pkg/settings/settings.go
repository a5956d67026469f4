// Package settings holds the typed configuration of knode.
package settings

import (
	"os"
	"path/filepath"
	"time"

	"github.com/Yiozolm/Knode/pkg/backend"
	"github.com/Yiozolm/Knode/pkg/flowchart"
	"github.com/Yiozolm/Knode/pkg/labels"
	"github.com/huandu/go-clone"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type BackendKind string

const (
	BackendHTTP  BackendKind = "http"
	BackendLocal BackendKind = "local"
)

const (
	DefaultAnswerTemplate  = `Please explain this point in detail: {{ .Content }}`
	DefaultExcerptTemplate = `Please explain the following in detail:

"{{ .Excerpt | trim }}"

Cover the related concepts, the underlying principles and where it applies.`
)

type BackendSettings struct {
	Kind    BackendKind   `yaml:"kind"`
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

type ModelSettings struct {
	ID            string  `yaml:"id"`
	SystemPrompt  string  `yaml:"system-prompt"`
	Temperature   float32 `yaml:"temperature"`
	MaxTokens     int     `yaml:"max-tokens"`
	HistoryWindow int     `yaml:"history-window"`
}

type OpenAISettings struct {
	APIKey  string `yaml:"api-key,omitempty"`
	BaseURL string `yaml:"base-url,omitempty"`
}

type StoreSettings struct {
	Path string `yaml:"path"`
}

type ExploreSettings struct {
	AnswerTemplate  string `yaml:"answer-template"`
	ExcerptTemplate string `yaml:"excerpt-template"`
}

type StatusSettings struct {
	TTL time.Duration `yaml:"ttl"`
}

type Settings struct {
	Backend BackendSettings  `yaml:"backend"`
	Model   ModelSettings    `yaml:"model"`
	OpenAI  OpenAISettings   `yaml:"openai"`
	Store   StoreSettings    `yaml:"store"`
	Layout  flowchart.Config `yaml:"layout"`
	Labels  labels.Budget    `yaml:"labels"`
	Explore ExploreSettings  `yaml:"explore"`
	Status  StatusSettings   `yaml:"status"`
}

func Default() *Settings {
	return &Settings{
		Backend: BackendSettings{
			Kind:    BackendHTTP,
			URL:     "http://localhost:5001",
			Timeout: 2 * time.Minute,
		},
		Model: ModelSettings{
			ID:            backend.DefaultModelID,
			SystemPrompt:  backend.DefaultSystemPrompt,
			Temperature:   0.7,
			HistoryWindow: 10,
		},
		OpenAI: OpenAISettings{BaseURL: "https://open.bigmodel.cn/api/paas/v4/"},
		Store:  StoreSettings{Path: defaultStorePath()},
		Layout: flowchart.DefaultConfig(),
		Labels: labels.DefaultBudget(),
		Explore: ExploreSettings{
			AnswerTemplate:  DefaultAnswerTemplate,
			ExcerptTemplate: DefaultExcerptTemplate,
		},
		Status: StatusSettings{TTL: 5 * time.Second},
	}
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "knode.db"
	}
	return filepath.Join(home, ".knode", "knode.db")
}

func (s *Settings) Clone() *Settings {
	return clone.Clone(s).(*Settings)
}

// FromViper overlays every key set in v on top of the defaults.
func FromViper(v *viper.Viper) (*Settings, error) {
	s := Default()

	str := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v.IsSet(key) {
			*dst = v.GetDuration(key)
		}
	}
	f64 := func(key string, dst *float64) {
		if v.IsSet(key) {
			*dst = v.GetFloat64(key)
		}
	}
	integer := func(key string, dst *int) {
		if v.IsSet(key) {
			*dst = v.GetInt(key)
		}
	}

	var kind string
	str("backend", &kind)
	if kind != "" {
		s.Backend.Kind = BackendKind(kind)
	}
	str("backend-url", &s.Backend.URL)
	dur("backend-timeout", &s.Backend.Timeout)

	str("model-id", &s.Model.ID)
	str("system-prompt", &s.Model.SystemPrompt)
	if v.IsSet("temperature") {
		s.Model.Temperature = float32(v.GetFloat64("temperature"))
	}
	integer("max-tokens", &s.Model.MaxTokens)
	integer("history-window", &s.Model.HistoryWindow)

	str("openai-api-key", &s.OpenAI.APIKey)
	str("openai-base-url", &s.OpenAI.BaseURL)
	str("db-path", &s.Store.Path)

	f64("layout.horizontal-spacing", &s.Layout.HorizontalSpacing)
	f64("layout.vertical-spacing", &s.Layout.VerticalSpacing)
	f64("layout.box-half-height", &s.Layout.BoxHalfHeight)
	f64("layout.box-width", &s.Layout.BoxWidth)
	f64("layout.box-height", &s.Layout.BoxHeight)

	integer("labels.max-runes", &s.Labels.MaxRunes)
	integer("labels.max-width", &s.Labels.MaxWidth)
	integer("labels.min-runes", &s.Labels.MinRunes)

	str("explore.answer-template", &s.Explore.AnswerTemplate)
	str("explore.excerpt-template", &s.Explore.ExcerptTemplate)
	dur("status-ttl", &s.Status.TTL)

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) Validate() error {
	switch s.Backend.Kind {
	case BackendHTTP:
		if s.Backend.URL == "" {
			return errors.New("backend-url is required for the http backend")
		}
	case BackendLocal:
		if s.Store.Path == "" {
			return errors.New("db-path is required for the local backend")
		}
	default:
		return errors.Errorf("unknown backend %q (expected http or local)", s.Backend.Kind)
	}
	if s.Layout.HorizontalSpacing <= 0 || s.Layout.VerticalSpacing <= 0 {
		return errors.New("layout spacing must be positive")
	}
	if s.Labels.MaxRunes <= 0 || s.Labels.MaxWidth <= 0 {
		return errors.New("label budget must be positive")
	}
	return nil
}

// ConfigMap returns s keyed the way FromViper reads it, so that it can be
// written out as a config file.
func (s *Settings) ConfigMap() map[string]interface{} {
	ret := map[string]interface{}{
		"backend":         string(s.Backend.Kind),
		"backend-url":     s.Backend.URL,
		"backend-timeout": s.Backend.Timeout.String(),
		"model-id":        s.Model.ID,
		"system-prompt":   s.Model.SystemPrompt,
		"temperature":     s.Model.Temperature,
		"max-tokens":      s.Model.MaxTokens,
		"history-window":  s.Model.HistoryWindow,
		"openai-base-url": s.OpenAI.BaseURL,
		"db-path":         s.Store.Path,
		"status-ttl":      s.Status.TTL.String(),
		"layout": map[string]interface{}{
			"horizontal-spacing": s.Layout.HorizontalSpacing,
			"vertical-spacing":   s.Layout.VerticalSpacing,
			"box-half-height":    s.Layout.BoxHalfHeight,
			"box-width":          s.Layout.BoxWidth,
			"box-height":         s.Layout.BoxHeight,
		},
		"labels": map[string]interface{}{
			"max-runes": s.Labels.MaxRunes,
			"max-width": s.Labels.MaxWidth,
			"min-runes": s.Labels.MinRunes,
		},
		"explore": map[string]interface{}{
			"answer-template":  s.Explore.AnswerTemplate,
			"excerpt-template": s.Explore.ExcerptTemplate,
		},
	}
	if s.OpenAI.APIKey != "" {
		ret["openai-api-key"] = s.OpenAI.APIKey
	}
	return ret
}
