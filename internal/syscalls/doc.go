// Package syscalls wraps impure operations in a uniform, hashable, loggable
// unit of work.
//
// A Syscall is any named operation that touches the outside world: a call to
// the repository API, a write to the content index, a filesystem read. It
// exposes serializable snapshots of its inputs and outputs so the executor
// can compute deterministic SHA-256 digests of both, and it builds a Record
// describing one execution.
//
// # Execution
//
// DefaultExecutor runs a Syscall as follows:
//
//  1. Record the start time and open a tracing span named after the syscall.
//  2. Digest the inputs. A failure here is returned to the caller.
//  3. Call Execute. A returned error or a panic is converted into a Failure
//     result; it is never returned as an error.
//  4. Digest the outputs of the (possibly failed) result. A failure here is
//     returned to the caller.
//  5. Build the Record, log it and hand it to the optional Recorder.
//
// The executor performs no retries, caching or persistence.
//
// # Results
//
// Result is a two-variant value: Success carrying a JSON payload, or Failure
// carrying a message. Decode turns a Success back into a typed value.
package syscalls
