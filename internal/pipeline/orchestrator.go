// Package pipeline turns a free-text request into a validated configuration:
// classify, fetch schema and values, prompt the oracle, extract, normalize,
// validate, and repair at most once.
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/omerfarukbaysal04/llm-based-configuration-bot/internal/apps"
	"github.com/omerfarukbaysal04/llm-based-configuration-bot/internal/classifier"
	"github.com/omerfarukbaysal04/llm-based-configuration-bot/internal/configstore"
	"github.com/omerfarukbaysal04/llm-based-configuration-bot/internal/extract"
	"github.com/omerfarukbaysal04/llm-based-configuration-bot/internal/metrics"
	"github.com/omerfarukbaysal04/llm-based-configuration-bot/internal/normalize"
	"github.com/omerfarukbaysal04/llm-based-configuration-bot/internal/oracle"
	"github.com/omerfarukbaysal04/llm-based-configuration-bot/internal/validate"
)

// Stage names a step of the pipeline.
type Stage string

const (
	Classifying  Stage = "classifying"
	Retrieving   Stage = "retrieving"
	Prompting    Stage = "prompting"
	Validating   Stage = "validating"
	Repairing    Stage = "repairing"
	Revalidating Stage = "revalidating"
)

// AppClassifier picks the application a request targets.
type AppClassifier interface {
	Classify(ctx context.Context, input string) (apps.ID, error)
}

// ConfigStore fetches an application's schema and current values.
type ConfigStore interface {
	Fetch(ctx context.Context, id apps.ID) (*configstore.Bundle, error)
}

// Result is a validated configuration.
type Result struct {
	App      apps.ID
	Values   any
	Repaired bool
}

// Orchestrator runs the modification pipeline. It holds no per-request state
// and is safe for concurrent use.
type Orchestrator struct {
	classifier AppClassifier
	store      ConfigStore
	oracle     oracle.Generator
	logger     *slog.Logger
}

// New creates an orchestrator.
func New(c AppClassifier, store ConfigStore, gen oracle.Generator, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{classifier: c, store: store, oracle: gen, logger: logger}
}

// Process runs the pipeline for one request. Any error is a *Failure.
func (o *Orchestrator) Process(ctx context.Context, input string) (*Result, error) {
	res, f := o.process(ctx, o.loggerFrom(ctx), input)
	if f != nil {
		metrics.Failures.WithLabelValues(string(f.Kind)).Inc()
		return nil, f
	}
	return res, nil
}

func (o *Orchestrator) process(ctx context.Context, logger *slog.Logger, input string) (*Result, *Failure) {
	start := time.Now()

	id, err := o.classifier.Classify(ctx, input)
	if err != nil {
		logger.Warn("Classification failed", "error", err)
		return nil, fail(ClassificationFailure, Classifying, err, "%s", classifier.ErrClassification.Error())
	}
	logger = logger.With("app", id)
	logger.Info("Request classified")

	bundle, err := o.store.Fetch(ctx, id)
	if err != nil {
		return nil, retrievalFailure(err)
	}
	schema, err := validate.Compile(id.String(), bundle.Schema)
	if err != nil {
		logger.Error("Collaborator returned an unusable schema", "error", err)
		return nil, fail(ServiceUnavailable, Retrieving, err, "Invalid schema for %s: %v", id, err)
	}
	var current bytes.Buffer
	if err := json.Compact(&current, bundle.Values); err != nil {
		return nil, fail(ServiceUnavailable, Retrieving, err, "Invalid values for %s: %v", id, err)
	}

	raw, err := o.oracle.Generate(ctx, ModifyPrompt(input, current.Bytes()), modifySystemPrompt)
	if err != nil {
		return nil, fail(OracleSilent, Prompting, err, "LLM did not return a response")
	}
	candidate := extract.JSON(raw)
	logCandidate(logger, "Oracle response", candidate)

	values, first := o.check(schema, candidate, Validating)
	if first == nil {
		logger.Info("Configuration validated", "elapsed", time.Since(start))
		return &Result{App: id, Values: values}, nil
	}
	logger.Warn("Validation failed, asking for a repair", "kind", first.Kind, "reason", first.Reason)

	metrics.Repairs.Inc()
	raw, err = o.oracle.Generate(ctx, RepairPrompt(first.Reason, candidate), repairSystemPrompt)
	if err != nil {
		return nil, fail(first.Kind, Repairing, err, "Validation failed: %s", first.Reason)
	}
	candidate = extract.JSON(raw)
	logCandidate(logger, "Oracle repair response", candidate)

	values, second := o.check(schema, candidate, Revalidating)
	if second != nil {
		logger.Warn("Repair did not validate", "kind", second.Kind, "reason", second.Reason)
		return nil, fail(second.Kind, Revalidating, second.Err, "Validation failed after retry: %s", second.Reason)
	}
	logger.Info("Configuration validated after repair", "elapsed", time.Since(start))
	return &Result{App: id, Values: values, Repaired: true}, nil
}

// check parses, normalizes and validates one candidate document.
func (o *Orchestrator) check(schema *validate.Schema, candidate string, stage Stage) (any, *Failure) {
	values, err := validate.ParseJSON(candidate)
	if err != nil {
		return nil, fail(MalformedJSON, stage, err, "%v", err)
	}
	normalize.Apply(schema.Doc(), values)
	if err := schema.Validate(values); err != nil {
		// a repeated key keeps its last value; name it so the repair can drop it
		if dup := validate.DuplicateKey(candidate); dup != nil {
			return nil, fail(SchemaViolation, stage, err, "%v (%v)", err, dup)
		}
		return nil, fail(SchemaViolation, stage, err, "%v", err)
	}
	return values, nil
}

func retrievalFailure(err error) *Failure {
	var se *configstore.Error
	if errors.As(err, &se) && se.Kind == configstore.NotFound {
		return fail(AppNotFound, Retrieving, err, "App not found.")
	}
	return fail(ServiceUnavailable, Retrieving, err, "%v", err)
}

func logCandidate(logger *slog.Logger, msg, candidate string) {
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	text := candidate
	if len(text) > 700 {
		text = text[:500] + "... [truncated] ..." + text[len(text)-200:]
	}
	logger.Debug(msg, "candidate", text)
}

type requestIDKey struct{}

// WithRequestID tags pipeline logs for the request carried by ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

func (o *Orchestrator) loggerFrom(ctx context.Context) *slog.Logger {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return o.logger.With("request_id", id)
	}
	return o.logger
}
