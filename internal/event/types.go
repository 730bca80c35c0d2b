// Package event defines the live event stream for generation sessions.
//
// Every observable step of a session (stage transitions, tool calls,
// incremental model output, backtracking) is published as an Event on a
// per-session topic. Subscribers receive events over channels; a slow
// subscriber drops events rather than stalling the pipeline.
package event

import (
	"time"

	"github.com/jmcortes/newswire/internal/util"
)

// Event type identifiers. Convention: "category.action".
const (
	TypeSessionStart  = "session.start"
	TypeSessionFinish = "session.finish"
	TypeSessionError  = "session.error"

	TypeStageStart    = "stage.start"
	TypeStageThinking = "stage.thinking"
	TypeStageFinish   = "stage.finish"

	TypeToolStart = "tool.start"
	TypeToolEnd   = "tool.end"

	TypePipelineBacktrack = "pipeline.backtrack"
)

// Payload truncation limits. Incremental output and stage results are
// clipped before publication so a verbose model cannot flood subscribers.
const (
	maxThinkingLen = 300
	maxOutputLen   = 400
	maxFeedbackLen = 300
	maxInputLen    = 200
)

// Event is one observable step of a session, serializable as-is for
// delivery to stream subscribers.
type Event struct {
	Type      string    `json:"type"`
	SessionID string    `json:"session_id"`
	Time      time.Time `json:"time"`
	// Elapsed is seconds since the session's first event, stamped by the
	// bus on publication.
	Elapsed float64        `json:"elapsed_secs"`
	Data    map[string]any `json:"data,omitempty"`
}

// newEvent creates an Event stamped with the current time.
func newEvent(eventType, sessionID string, data map[string]any) Event {
	return Event{
		Type:      eventType,
		SessionID: sessionID,
		Time:      time.Now(),
		Data:      data,
	}
}

// NewSessionStart signals that a session began processing.
func NewSessionStart(sessionID, topic string) Event {
	return newEvent(TypeSessionStart, sessionID, map[string]any{
		"topic": topic,
	})
}

// NewSessionFinish signals that a session completed successfully. It is a
// terminal event: the session topic closes after it is published.
func NewSessionFinish(sessionID string, iterations int, elapsed time.Duration) Event {
	return newEvent(TypeSessionFinish, sessionID, map[string]any{
		"iterations":   iterations,
		"elapsed_secs": elapsed.Seconds(),
	})
}

// NewSessionError signals that a session failed. It is a terminal event.
func NewSessionError(sessionID, stage, message string) Event {
	return newEvent(TypeSessionError, sessionID, map[string]any{
		"stage": stage,
		"error": util.TruncateString(message, maxOutputLen),
	})
}

// NewStageStart signals that a pipeline stage began work.
func NewStageStart(sessionID, stage string, iteration int) Event {
	return newEvent(TypeStageStart, sessionID, map[string]any{
		"stage":     stage,
		"iteration": iteration,
	})
}

// NewStageThinking carries a fragment of incremental model output.
func NewStageThinking(sessionID, stage, fragment string) Event {
	return newEvent(TypeStageThinking, sessionID, map[string]any{
		"stage":    stage,
		"fragment": util.TruncateString(fragment, maxThinkingLen),
	})
}

// NewStageFinish signals that a stage produced its output.
func NewStageFinish(sessionID, stage string, iteration int, output string) Event {
	return newEvent(TypeStageFinish, sessionID, map[string]any{
		"stage":     stage,
		"iteration": iteration,
		"output":    util.TruncateString(output, maxOutputLen),
	})
}

// NewToolStart signals that a stage invoked a tool.
func NewToolStart(sessionID, stage, tool, input string) Event {
	return newEvent(TypeToolStart, sessionID, map[string]any{
		"stage": stage,
		"tool":  tool,
		"input": util.TruncateString(input, maxInputLen),
	})
}

// NewToolEnd signals that a tool call returned.
func NewToolEnd(sessionID, stage, tool, summary string) Event {
	return newEvent(TypeToolEnd, sessionID, map[string]any{
		"stage":   stage,
		"tool":    tool,
		"summary": util.TruncateString(summary, maxInputLen),
	})
}

// NewPipelineBacktrack signals a non-approved cycle returning to research.
// The verdict distinguishes an explicit rejection from an audit whose
// verdict line could not be read.
func NewPipelineBacktrack(sessionID string, iteration int, verdict, feedback string) Event {
	return newEvent(TypePipelineBacktrack, sessionID, map[string]any{
		"iteration": iteration,
		"verdict":   verdict,
		"feedback":  util.TruncateString(feedback, maxFeedbackLen),
	})
}

// IsTerminal reports whether the event closes its session topic.
func (e Event) IsTerminal() bool {
	return e.Type == TypeSessionFinish || e.Type == TypeSessionError
}
