package orchestrator

import (
	"strings"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/pkg/errors"
)

// Prompter renders the exploration prompts.
type Prompter struct {
	answer  *template.Template
	excerpt *template.Template
}

type answerData struct {
	Content string
}

type excerptData struct {
	Excerpt string
}

func NewPrompter(answerTemplate, excerptTemplate string) (*Prompter, error) {
	answer, err := template.New("answer").Funcs(sprig.TxtFuncMap()).Parse(answerTemplate)
	if err != nil {
		return nil, errors.Wrap(err, "parse answer template")
	}
	excerpt, err := template.New("excerpt").Funcs(sprig.TxtFuncMap()).Parse(excerptTemplate)
	if err != nil {
		return nil, errors.Wrap(err, "parse excerpt template")
	}
	return &Prompter{answer: answer, excerpt: excerpt}, nil
}

// AnswerPrompt is the question asked when an answer is explored.
func (p *Prompter) AnswerPrompt(content string) (string, error) {
	return execute(p.answer, answerData{Content: content})
}

// ExcerptPrompt is the question asked about a selected excerpt.
func (p *Prompter) ExcerptPrompt(excerpt string) (string, error) {
	return execute(p.excerpt, excerptData{Excerpt: excerpt})
}

func execute(t *template.Template, data interface{}) (string, error) {
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", errors.Wrapf(err, "render %s prompt", t.Name())
	}
	return sb.String(), nil
}
