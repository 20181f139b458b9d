package syscalls

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrFailed is returned by Decode for a Failure result
var ErrFailed = errors.New("syscall failed")

// Category tags the kind of impure interaction
type Category string

const (
	CategoryGitHubAPI  Category = "GitHubApi"
	CategoryStorage    Category = "Storage"
	CategoryFilesystem Category = "Filesystem"
	CategoryGit        Category = "Git"
	CategoryNix        Category = "Nix"
)

// Syscall is a named, impure operation
type Syscall interface {
	// Name is a stable identifier for the operation kind.
	Name() string
	Category() Category
	// Execute performs the operation. Errors are turned into Failure results
	// by the executor.
	Execute(ctx context.Context) (Result, error)
	// Inputs returns a serializable snapshot of the arguments.
	Inputs() (any, error)
	// Outputs returns a serializable snapshot of result.
	Outputs(result Result) (any, error)
	Metadata(result Result, duration time.Duration) Record
}

// Result is either a Success with a JSON payload or a Failure with a message
type Result struct {
	payload json.RawMessage
	message string
	failed  bool
}

// Success builds a successful result
func Success(payload json.RawMessage) Result {
	return Result{payload: payload}
}

// SuccessOf marshals v into a successful result
func SuccessOf(v any) (Result, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Result{}, fmt.Errorf("marshal syscall payload: %w", err)
	}
	return Success(data), nil
}

// Failure builds a failed result
func Failure(message string) Result {
	return Result{message: message, failed: true}
}

// OK reports whether r is a Success
func (r Result) OK() bool { return !r.failed }

// Payload returns the JSON payload of a Success, nil for a Failure
func (r Result) Payload() json.RawMessage { return r.payload }

// Message returns the message of a Failure, empty for a Success
func (r Result) Message() string { return r.message }

// MarshalJSON encodes r as {"Success": payload} or {"Error": message}
func (r Result) MarshalJSON() ([]byte, error) {
	if r.failed {
		return json.Marshal(map[string]string{"Error": r.message})
	}
	payload := r.payload
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	return json.Marshal(map[string]json.RawMessage{"Success": payload})
}

// UnmarshalJSON is the inverse of MarshalJSON
func (r *Result) UnmarshalJSON(data []byte) error {
	var wire struct {
		Success json.RawMessage `json:"Success"`
		Error   *string         `json:"Error"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&wire); err != nil {
		return err
	}
	switch {
	case wire.Error != nil && wire.Success == nil:
		*r = Failure(*wire.Error)
	case wire.Error == nil && wire.Success != nil:
		*r = Success(wire.Success)
	default:
		return fmt.Errorf("result must have exactly one of Success or Error")
	}
	return nil
}

// Decode unmarshals the payload of a Success into T
func Decode[T any](r Result) (T, error) {
	var v T
	if r.failed {
		return v, fmt.Errorf("%w: %s", ErrFailed, r.message)
	}
	if err := json.Unmarshal(r.payload, &v); err != nil {
		return v, fmt.Errorf("decode syscall payload: %w", err)
	}
	return v, nil
}

// Record describes one syscall execution. It is never mutated once logged.
type Record struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Category      Category  `json:"category"`
	Timestamp     time.Time `json:"timestamp"`
	CallerInfo    *string   `json:"caller_info"`
	DurationMS    int64     `json:"duration_ms"`
	Successful    bool      `json:"successful"`
	ErrorMessage  *string   `json:"error_message"`
	InputsHash    string    `json:"inputs_hash"`
	OutputsHash   string    `json:"outputs_hash"`
	PersistenceID *string   `json:"persistence_id"`
}

// NewRecord fills the fields every syscall reports the same way
func NewRecord(name string, category Category, result Result, duration time.Duration) Record {
	rec := Record{
		ID:         uuid.New(),
		Name:       name,
		Category:   category,
		Timestamp:  time.Now().UTC(),
		DurationMS: duration.Milliseconds(),
		Successful: result.OK(),
	}
	if !result.OK() {
		msg := result.Message()
		if msg == "" {
			msg = ErrFailed.Error()
		}
		rec.ErrorMessage = &msg
	}
	return rec
}

// Digest returns the hex SHA-256 of the JSON encoding of v
func Digest(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("digest: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

type callerKey struct{}

// WithCaller attaches free-text caller information (a tool name, a CLI
// command) that the executor copies into records lacking their own.
func WithCaller(ctx context.Context, caller string) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

func callerFrom(ctx context.Context) (string, bool) {
	caller, ok := ctx.Value(callerKey{}).(string)
	return caller, ok && caller != ""
}
