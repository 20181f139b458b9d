// Package observe carries the structured logger and tracer shared by the
// cache, syscall executor, MCP server and CLI.
//
// Logs always go to the writer handed to New. The MCP server speaks its
// protocol on stdout, so callers pass stderr.
package observe

import (
	"context"
	"io"

	"github.com/felixgeelhaar/bolt/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("repocache")

// Log formats accepted by New
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Observer handles logging and tracing
type Observer struct {
	log *bolt.Logger
}

// New creates an Observer writing in the given format ("console" or "json";
// anything else falls back to console).
// If verbose is false, only warnings and errors are shown.
func New(out io.Writer, format string, verbose bool) *Observer {
	var l *bolt.Logger
	if format == FormatJSON {
		l = bolt.New(bolt.NewJSONHandler(out))
	} else {
		l = bolt.New(bolt.NewConsoleHandler(out))
	}

	if !verbose {
		l.SetLevel(bolt.WARN)
	}

	return &Observer{
		log: l,
	}
}

// Nop returns an Observer that discards everything
func Nop() *Observer {
	return New(io.Discard, FormatJSON, false)
}

// Log returns the underlying logger
func (o *Observer) Log() *bolt.Logger {
	return o.log
}

// StartSpan starts a new OTel span
func (o *Observer) StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name)
}
