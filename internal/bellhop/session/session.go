// Package session provides per-sender conversation state persistence.
//
// A Session is the stored position of one sender inside the dialogue. The
// dialogue engine reloads it on every inbound message and never caches it;
// the store is the single source of truth. Three drivers are available:
// an in-memory map (tests), SQLite (single-binary deployments, the default)
// and Redis (multi-replica deployments).
package session

import "context"

// Step is the enumerated dialogue position controlling which inputs are
// valid and what reply is produced.
type Step string

const (
	// StepNone marks a sender with no active dialogue (first contact, or a
	// branch that terminated).
	StepNone Step = ""
	// StepSelectCustomer means the sender was shown the customer prompt.
	StepSelectCustomer Step = "select_customer"
	// StepSelectJob means a job candidate list was offered.
	StepSelectJob Step = "select_job"
	// StepJobAction means a job was picked and the action menu was offered.
	StepJobAction Step = "job_action"
)

// Session is the persisted conversational position of one sender. The step
// determines which of the remaining fields are meaningful; stale fields from
// earlier steps may linger and must be ignored, not assumed absent.
type Session struct {
	Step     Step     `json:"step,omitempty"`
	Customer string   `json:"customer,omitempty"`
	Jobs     []string `json:"jobs,omitempty"`
	JobName  string   `json:"job_name,omitempty"`
}

// Fields is a partial session update. Zero-valued fields are left untouched
// by Set; use Clear to reset a session outright.
type Fields struct {
	Step     Step
	Customer string
	Jobs     []string
	JobName  string
}

// Store is the session persistence contract.
//
// Concurrency: no cross-process exclusivity is provided; when two writes
// for the same sender race, the last one wins. Consistency is
// read-your-writes only within one call sequence against the same store.
type Store interface {
	// Get returns the sender's session, or the zero Session when none is on
	// record. A missing session is never an error.
	Get(ctx context.Context, sender string) (Session, error)

	// Set merges the non-zero fields into the stored session, creating it if
	// absent. The sender identity is recorded once on first creation and
	// never overwritten afterwards.
	Set(ctx context.Context, sender string, fields Fields) error

	// Clear resets the sender's session to empty (all fields zeroed).
	Clear(ctx context.Context, sender string) error

	// RecordExchange appends one inbound-message/reply pair to the message
	// audit log. Best-effort: callers log failures and move on.
	RecordExchange(ctx context.Context, sender, inbound, reply string) error

	// Close releases any underlying resources.
	Close() error
}

// merge applies the non-zero fields of f onto s.
func merge(s Session, f Fields) Session {
	if f.Step != StepNone {
		s.Step = f.Step
	}
	if f.Customer != "" {
		s.Customer = f.Customer
	}
	if f.Jobs != nil {
		s.Jobs = f.Jobs
	}
	if f.JobName != "" {
		s.JobName = f.JobName
	}
	return s
}
