// Package render draws a flowchart.Diagram as SVG or text and renders node
// content for the detail view.
package render

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// RenderFailure wraps an error or panic raised while rendering content.
type RenderFailure struct {
	Err error
}

func (e *RenderFailure) Error() string {
	return fmt.Sprintf("render failed: %v", e.Err)
}

func (e *RenderFailure) Unwrap() error { return e.Err }

// Inline is the text shown in place of content that failed to render.
func (e *RenderFailure) Inline() string {
	return fmt.Sprintf("Render error: %v", e.Err)
}

// Contain runs f and turns an error or a panic into a RenderFailure.
func Contain(f func() (string, error)) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Debug().Interface("panic", r).Msg("recovered from render panic")
			cause, ok := r.(error)
			if !ok {
				cause = errors.Errorf("%v", r)
			}
			out, err = "", &RenderFailure{Err: cause}
		}
	}()
	out, err = f()
	if err != nil {
		return "", &RenderFailure{Err: err}
	}
	return out, nil
}

// ContainInline is Contain with the failure rendered as inline text.
func ContainInline(f func() (string, error)) string {
	out, err := Contain(f)
	if err != nil {
		var failure *RenderFailure
		if errors.As(err, &failure) {
			return failure.Inline()
		}
		return err.Error()
	}
	return out
}
