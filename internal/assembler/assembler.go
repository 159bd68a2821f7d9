// Package assembler implements the Tool-Call Assembler (spec §4.3): it
// buffers streamed partial tool-call JSON fragments per call ID and
// validates the buffer on completion, so no tool ever executes against
// unparsed or truncated JSON (invariant I5).
package assembler

import (
	"encoding/json"
	"fmt"

	"github.com/haasonsaas/nexus/internal/agent"
	"github.com/haasonsaas/nexus/pkg/models"
)

// state is the per-call lifecycle: open -> complete (success) or
// open -> failed (hard). No other transitions exist.
type state int

const (
	stateOpen state = iota
	stateComplete
	stateFailed
)

// unknownCallName is the name assigned to deltas addressed to a call ID
// the assembler never saw started. Naming it "unknown" instead of dropping
// the delta keeps the stream from being corrupted, but a call under this
// name has no matching tool and is guaranteed to fail approval (§4.3).
const unknownCallName = "unknown"

// AssembledToolCall is the parsed result of a successfully closed call.
type AssembledToolCall struct {
	ID    string
	Name  string
	Input json.RawMessage
}

// AssemblerError reports a call that failed to assemble: either its
// buffered JSON didn't parse, or it was still open when the stream ended
// (failIncomplete).
type AssemblerError struct {
	ID          string
	Reason      string
	PartialJSON string
}

func (e *AssemblerError) Error() string {
	return fmt.Sprintf("assembler: call %s: %s", e.ID, e.Reason)
}

// Unwrap lets callers test AssemblerError with errors.Is(err,
// agent.ErrAssemblerIncomplete) without caring about the specific call ID
// or reason.
func (e *AssemblerError) Unwrap() error {
	return agent.ErrAssemblerIncomplete
}

type call struct {
	id    string
	name  string
	buf   []byte
	state state
}

// Assembler buffers streamed tool-call JSON fragments per call ID. It is
// not safe for concurrent use; one Assembler serves one in-flight
// completion stream (§4.3, §"Cancellation": buffers are scoped to a single
// streamed response and dropped on cancellation).
type Assembler struct {
	calls []*call
	byID  map[string]*call
}

// New returns an empty Assembler ready to buffer a new stream.
func New() *Assembler {
	return &Assembler{byID: make(map[string]*call)}
}

// Start opens a new call with the given id and name (§4.3: a provider's
// content_block_start for a tool_use block). Calling Start again for an id
// already open resets its buffer rather than creating a duplicate entry.
func (a *Assembler) Start(id, name string) {
	if c, ok := a.byID[id]; ok && c.state == stateOpen {
		c.buf = c.buf[:0]
		c.name = name
		return
	}
	c := &call{id: id, name: name, state: stateOpen}
	a.calls = append(a.calls, c)
	a.byID[id] = c
}

// AddDelta appends a JSON fragment to the call named id. A delta for an id
// the assembler never started opens a new call named "unknown" so the
// stream isn't corrupted (§4.3); that call has no matching tool and is
// guaranteed to fail approval downstream.
func (a *Assembler) AddDelta(id, fragment string) {
	c, ok := a.byID[id]
	if !ok {
		c = &call{id: id, name: unknownCallName, state: stateOpen}
		a.calls = append(a.calls, c)
		a.byID[id] = c
	}
	if c.state != stateOpen {
		return
	}
	c.buf = append(c.buf, fragment...)
}

// End closes the call named id, parsing its buffered JSON. Success yields
// an AssembledToolCall; a parse failure yields an AssemblerError and moves
// the call to the terminal failed state. End on an id never started, or
// already terminal, returns an AssemblerError rather than panicking.
func (a *Assembler) End(id string) (*AssembledToolCall, *AssemblerError) {
	c, ok := a.byID[id]
	if !ok {
		return nil, &AssemblerError{ID: id, Reason: "end of unknown call"}
	}
	if c.state != stateOpen {
		return nil, &AssemblerError{ID: id, Reason: "call already closed", PartialJSON: string(c.buf)}
	}
	raw := c.buf
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	if !json.Valid(raw) {
		c.state = stateFailed
		return nil, &AssemblerError{ID: id, Reason: "invalid JSON", PartialJSON: string(c.buf)}
	}
	c.state = stateComplete
	return &AssembledToolCall{ID: c.id, Name: c.name, Input: json.RawMessage(raw)}, nil
}

// FailIncomplete converts every still-open call into an AssemblerError with
// the given reason, in start order. Call this when the underlying stream
// ends, errors, or is cancelled before every open call reaches
// content_block_stop (§"Cancellation": partial buffers are dropped, not
// silently discarded — each one surfaces as a failure the caller can log
// or surface to the model).
func (a *Assembler) FailIncomplete(reason string) []*AssemblerError {
	var errs []*AssemblerError
	for _, c := range a.calls {
		if c.state != stateOpen {
			continue
		}
		c.state = stateFailed
		errs = append(errs, &AssemblerError{ID: c.id, Reason: reason, PartialJSON: string(c.buf)})
	}
	return errs
}

// ToModelToolCall converts an AssembledToolCall to the wire pkg/models
// representation the rest of the agent runtime consumes.
func ToModelToolCall(c *AssembledToolCall) *models.ToolCall {
	if c == nil {
		return nil
	}
	return &models.ToolCall{ID: c.ID, Name: c.Name, Input: c.Input}
}
