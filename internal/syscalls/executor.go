package syscalls

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/dshills/repocache-mcp/internal/observe"
)

// Executor runs syscalls
type Executor interface {
	Execute(ctx context.Context, sc Syscall) (Result, error)
}

// Recorder receives every record produced by an executor
type Recorder func(ctx context.Context, rec Record)

// DefaultExecutor times, hashes, logs and traces each syscall
type DefaultExecutor struct {
	obs      *observe.Observer
	recorder Recorder
	now      func() time.Time
}

var _ Executor = (*DefaultExecutor)(nil)

// ExecutorOption configures a DefaultExecutor
type ExecutorOption func(*DefaultExecutor)

// WithObserver sets the logger and tracer
func WithObserver(obs *observe.Observer) ExecutorOption {
	return func(e *DefaultExecutor) {
		if obs != nil {
			e.obs = obs
		}
	}
}

// WithRecorder registers a hook called with each record after it is logged
func WithRecorder(r Recorder) ExecutorOption {
	return func(e *DefaultExecutor) {
		e.recorder = r
	}
}

// NewExecutor creates a DefaultExecutor
func NewExecutor(opts ...ExecutorOption) *DefaultExecutor {
	e := &DefaultExecutor{
		obs: observe.Nop(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs sc and returns its result
func (e *DefaultExecutor) Execute(ctx context.Context, sc Syscall) (Result, error) {
	result, _, err := e.ExecuteRecorded(ctx, sc)
	return result, err
}

// ExecuteRecorded runs sc and also returns the record it produced.
// Only hashing failures are returned as errors.
func (e *DefaultExecutor) ExecuteRecorded(ctx context.Context, sc Syscall) (Result, Record, error) {
	start := e.now()
	name := sc.Name()

	ctx, span := e.obs.StartSpan(ctx, name)
	defer span.End()
	span.SetAttributes(
		attribute.String("syscall.name", name),
		attribute.String("syscall.category", string(sc.Category())),
	)

	inputs, err := sc.Inputs()
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Result{}, Record{}, fmt.Errorf("syscall %s inputs: %w", name, err)
	}
	inputsHash, err := Digest(inputs)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Result{}, Record{}, fmt.Errorf("syscall %s inputs: %w", name, err)
	}

	e.obs.Log().Debug().Str("syscall", name).Str("inputs_hash", inputsHash).Msg("executing syscall")

	result := run(ctx, sc)
	duration := e.now().Sub(start)

	outputs, err := sc.Outputs(result)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Result{}, Record{}, fmt.Errorf("syscall %s outputs: %w", name, err)
	}
	outputsHash, err := Digest(outputs)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Result{}, Record{}, fmt.Errorf("syscall %s outputs: %w", name, err)
	}

	rec := sc.Metadata(result, duration)
	rec.InputsHash = inputsHash
	rec.OutputsHash = outputsHash
	if rec.CallerInfo == nil {
		if caller, ok := callerFrom(ctx); ok {
			rec.CallerInfo = &caller
		}
	}

	if !result.OK() {
		span.SetStatus(codes.Error, result.Message())
	}
	span.SetAttributes(attribute.String("syscall.id", rec.ID.String()))

	e.log(rec)
	if e.recorder != nil {
		e.recorder(ctx, rec)
	}

	return result, rec, nil
}

// run calls Execute, turning errors and panics into a Failure result
func run(ctx context.Context, sc Syscall) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = Failure(fmt.Sprintf("syscall execution panicked: %v", r))
		}
	}()

	res, err := sc.Execute(ctx)
	if err != nil {
		return Failure(fmt.Sprintf("syscall execution failed: %v", err))
	}
	return res
}

func (e *DefaultExecutor) log(rec Record) {
	event := e.obs.Log().Info()
	if !rec.Successful {
		event = e.obs.Log().Warn()
	}
	event = event.
		Str("id", rec.ID.String()).
		Str("syscall", rec.Name).
		Str("category", string(rec.Category)).
		Str("successful", strconv.FormatBool(rec.Successful)).
		Int("duration_ms", int(rec.DurationMS)).
		Str("inputs_hash", rec.InputsHash).
		Str("outputs_hash", rec.OutputsHash)
	if rec.CallerInfo != nil {
		event = event.Str("caller", *rec.CallerInfo)
	}
	if rec.ErrorMessage != nil {
		event = event.Str("error", *rec.ErrorMessage)
	}
	event.Msg("syscall finished")
}
