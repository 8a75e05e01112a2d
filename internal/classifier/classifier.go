// Package classifier decides which application a free-text request targets.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/omerfarukbaysal04/llm-based-configuration-bot/internal/apps"
	"github.com/omerfarukbaysal04/llm-based-configuration-bot/internal/oracle"
)

// ErrClassification is returned when no application could be identified.
var ErrClassification = errors.New("AI failed to identify app")

// Classifier asks the oracle for a single application name.
type Classifier struct {
	oracle oracle.Generator
	logger *slog.Logger
}

// New creates a classifier backed by gen.
func New(gen oracle.Generator, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{oracle: gen, logger: logger}
}

// Classify returns the application input refers to. It never falls back to a
// default application.
func (c *Classifier) Classify(ctx context.Context, input string) (apps.ID, error) {
	raw, err := c.oracle.Generate(ctx, Prompt(input), SystemPrompt())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrClassification, err)
	}

	cleaned := Clean(raw)
	c.logger.Debug("Classifier response", "raw", raw, "cleaned", cleaned)

	id, ok := apps.Match(cleaned)
	if !ok {
		return "", fmt.Errorf("%w: unrecognised answer %q", ErrClassification, truncate(cleaned, 80))
	}
	return id, nil
}

// Clean lowercases the answer and strips quotes and surrounding whitespace.
func Clean(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.NewReplacer(`"`, "", "'", "").Replace(s)
	return strings.TrimSpace(s)
}

// Prompt builds the classification instruction for input.
func Prompt(input string) string {
	return fmt.Sprintf(`
Input: "%s"

Task: Identify which application this request belongs to.
Options: %s.

Return ONLY the single word. Nothing else.
`, input, strings.Join(apps.Names(), ", "))
}

// SystemPrompt pins the model to the registered application names.
func SystemPrompt() string {
	names := apps.Names()
	return fmt.Sprintf("You are a classifier. Output only one word: %s, or %s.",
		strings.Join(names[:len(names)-1], ", "), names[len(names)-1])
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
