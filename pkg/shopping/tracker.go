package shopping

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Event types emitted by the Tracker for every call state transition.
const (
	EventCallStart = "call_start"
	EventCallEnd   = "call_end"
	EventCallError = "call_error"
)

// Event is the normalized record a log or UI consumer can render without
// knowing the Tracker's internal maps. The stream is buffered so a
// delayed consumer can replay it.
type Event struct {
	Type      string    `json:"type"`
	CallID    string    `json:"call_id"`
	ToolName  string    `json:"tool_name"`
	GroupID   string    `json:"group_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// ToolCall tracks one dispatched external call. Created at dispatch,
// mutated exactly once at completion, then frozen.
type ToolCall struct {
	CallID    string     `json:"call_id"`
	ToolName  string     `json:"tool_name"`
	Input     any        `json:"input"`
	Output    any        `json:"output,omitempty"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Finished  bool       `json:"finished"`
	Error     string     `json:"error,omitempty"`
	GroupID   string     `json:"group_id,omitempty"`
}

// errorKeywords flag outputs from tools that report failure through their
// return value instead of an explicit error channel.
var errorKeywords = []string{"error", "exception", "failed", "timeout", "fail"}

// DefaultCallTimeout bounds how long a dispatched call may stay
// unfinished before the sweep marks it timed out.
const DefaultCallTimeout = 5 * time.Second

// Tracker observes every external-call dispatch and completion for one
// pipeline run. One tracker per request; the mutex guards against a
// consumer reading events while the pipeline is still dispatching.
type Tracker struct {
	mu        sync.Mutex
	calls     map[string]*ToolCall
	groups    map[string]map[string]struct{}
	completed map[string]struct{}
	events    []Event
	timeout   time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// NewTracker returns a tracker with the default timeout and wall clock.
func NewTracker(logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		calls:     make(map[string]*ToolCall),
		groups:    make(map[string]map[string]struct{}),
		completed: make(map[string]struct{}),
		timeout:   DefaultCallTimeout,
		now:       time.Now,
		logger:    logger,
	}
}

// SetClock replaces the tracker's time source. Intended for tests.
func (t *Tracker) SetClock(now func() time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now = now
}

// SetTimeout overrides the sweep threshold.
func (t *Tracker) SetTimeout(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timeout = d
}

// Dispatch records the start of an external call. The group identifier is
// supplied by the step issuing the call; grouping is never inferred from
// timing or tool name.
func (t *Tracker) Dispatch(callID, toolName, groupID string, input any) {
	t.mu.Lock()
	defer t.mu.Unlock()

	call := &ToolCall{
		CallID:    callID,
		ToolName:  toolName,
		Input:     input,
		StartedAt: t.now(),
		GroupID:   groupID,
	}
	t.calls[callID] = call

	if groupID != "" {
		if t.groups[groupID] == nil {
			t.groups[groupID] = make(map[string]struct{})
		}
		t.groups[groupID][callID] = struct{}{}
	}

	t.emit(Event{
		Type:     EventCallStart,
		CallID:   callID,
		ToolName: toolName,
		GroupID:  groupID,
		Payload:  input,
	})
}

// Complete records a call's output. If the output itself indicates
// failure (nil, empty, or containing an error keyword) the call is marked
// errored instead of completed. Already-finished calls are left alone.
func (t *Tracker) Complete(callID string, output any) {
	t.mu.Lock()
	defer t.mu.Unlock()

	call, ok := t.calls[callID]
	if !ok {
		t.logger.Warn("completion for unknown call", "call_id", callID)
		return
	}
	if _, done := t.completed[callID]; done {
		return
	}

	ended := t.now()
	call.EndedAt = &ended
	call.Finished = true
	call.Output = output
	t.completed[callID] = struct{}{}

	if reason, bad := inferContentError(output); bad {
		call.Error = reason
		t.emit(Event{
			Type:     EventCallError,
			CallID:   callID,
			ToolName: call.ToolName,
			GroupID:  call.GroupID,
			Payload:  reason,
		})
		return
	}

	t.emit(Event{
		Type:     EventCallEnd,
		CallID:   callID,
		ToolName: call.ToolName,
		GroupID:  call.GroupID,
		Payload:  output,
	})
}

// Fail records an explicit error for one call.
func (t *Tracker) Fail(callID string, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	call, ok := t.calls[callID]
	if !ok {
		return
	}
	if _, done := t.completed[callID]; done {
		return
	}

	ended := t.now()
	call.EndedAt = &ended
	call.Finished = true
	call.Error = message
	call.Output = message
	t.completed[callID] = struct{}{}

	t.emit(Event{
		Type:     EventCallError,
		CallID:   callID,
		ToolName: call.ToolName,
		GroupID:  call.GroupID,
		Payload:  message,
	})
}

// GroupError marks every unfinished call in the group as failed with the
// given message. Calls that already completed keep their original result;
// a late group failure never rewrites history.
func (t *Tracker) GroupError(groupID, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	members, ok := t.groups[groupID]
	if !ok {
		return
	}

	for callID := range members {
		if _, done := t.completed[callID]; done {
			continue
		}
		call := t.calls[callID]
		if call == nil {
			continue
		}
		ended := t.now()
		call.EndedAt = &ended
		call.Finished = true
		call.Error = message
		call.Output = message
		t.completed[callID] = struct{}{}

		t.emit(Event{
			Type:     EventCallError,
			CallID:   callID,
			ToolName: call.ToolName,
			GroupID:  groupID,
			Payload:  message,
		})
	}
}

// Sweep finalizes every still-dispatched call. Calls past the timeout
// threshold get a timeout message; younger ones get a generic
// incomplete message. Run once at stream end.
func (t *Tracker) Sweep() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	for callID, call := range t.calls {
		if _, done := t.completed[callID]; done {
			continue
		}

		var message string
		if now.Sub(call.StartedAt) > t.timeout {
			message = fmt.Sprintf("tool call timed out after %s", t.timeout)
		} else {
			message = "tool call did not complete normally"
		}

		ended := now
		call.EndedAt = &ended
		call.Finished = true
		call.Error = message
		call.Output = message
		t.completed[callID] = struct{}{}

		t.emit(Event{
			Type:     EventCallError,
			CallID:   callID,
			ToolName: call.ToolName,
			GroupID:  call.GroupID,
			Payload:  message,
		})
	}
}

// Call returns a copy of the tracked call record, if known.
func (t *Tracker) Call(callID string) (ToolCall, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	call, ok := t.calls[callID]
	if !ok {
		return ToolCall{}, false
	}
	return *call, true
}

// Events returns the buffered event stream in emission order.
func (t *Tracker) Events() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Event, len(t.events))
	copy(out, t.events)
	return out
}

func (t *Tracker) emit(ev Event) {
	ev.Timestamp = t.now()
	t.events = append(t.events, ev)
}

// inferContentError inspects a nominally successful output for signs of
// logical failure: nil, empty values, or error keywords in string output.
func inferContentError(output any) (string, bool) {
	if output == nil {
		return "tool returned no output", true
	}

	switch v := output.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return "tool returned empty output", true
		}
		lower := strings.ToLower(v)
		for _, kw := range errorKeywords {
			if strings.Contains(lower, kw) {
				return fmt.Sprintf("tool output indicates failure (%q)", kw), true
			}
		}
	case []any:
		if len(v) == 0 {
			return "tool returned empty output", true
		}
	case map[string]any:
		if len(v) == 0 {
			return "tool returned empty output", true
		}
	case json.RawMessage:
		trimmed := strings.TrimSpace(string(v))
		if trimmed == "" || trimmed == "null" || trimmed == "{}" || trimmed == "[]" {
			return "tool returned empty output", true
		}
	}

	return "", false
}
