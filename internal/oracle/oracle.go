// Package oracle wraps the generative model behind a call that either
// returns text or reports that no usable answer came back.
package oracle

import (
	"context"
	"errors"
	"time"
)

const (
	// DefaultTimeout bounds a single generation; cold model loads are slow.
	DefaultTimeout = 180 * time.Second
	// DefaultNumCtx is the context window requested so prompts are not truncated.
	DefaultNumCtx = 8192
)

// ErrNoResponse is returned for every failed generation: transport errors,
// timeouts, non-200 replies, undecodable bodies and empty text.
var ErrNoResponse = errors.New("oracle returned no response")

// Generator produces text for a prompt and an optional system instruction.
type Generator interface {
	Generate(ctx context.Context, prompt, system string) (string, error)
}
