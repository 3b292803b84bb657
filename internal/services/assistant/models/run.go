package models

// RunState is the lifecycle state of a run as reported by the assistant service
type RunState string

const (
	RunStateQueued         RunState = "queued"
	RunStateInProgress     RunState = "in_progress"
	RunStateRequiresAction RunState = "requires_action"
	RunStateCancelling     RunState = "cancelling"
	RunStateCancelled      RunState = "cancelled"
	RunStateFailed         RunState = "failed"
	RunStateCompleted      RunState = "completed"
	RunStateExpired        RunState = "expired"
	RunStateIncomplete     RunState = "incomplete"
)

// IsTransient reports whether the service is still working on the run.
// Only queued and in_progress are transient; every other state, including
// ones this package does not know about, ends polling.
func (s RunState) IsTransient() bool {
	return s == RunStateQueued || s == RunStateInProgress
}

// IsTerminal is the complement of IsTransient
func (s RunState) IsTerminal() bool {
	return !s.IsTransient()
}

// Run is an asynchronous unit of work performed by an assistant against a thread
type Run struct {
	ID          string   `json:"id"`
	ThreadID    string   `json:"thread_id"`
	AssistantID string   `json:"assistant_id"`
	Status      RunState `json:"status"`
	LastError   string   `json:"last_error,omitempty"`
}
