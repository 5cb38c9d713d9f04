// Package dialogue implements the session-driven state machine at the heart
// of the bot.
//
// Each inbound webhook body is evaluated in isolation: the sender's session
// is reloaded from the store, the (step, input) pair is matched against the
// state table, CI and chat calls are made as the matched branch demands, the
// next step is persisted, and a terminal status tag is returned. The engine
// holds no per-sender state between calls.
package dialogue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/bigbell/bellhop/common/retry"
	"github.com/bigbell/bellhop/internal/bellhop/catalog"
	"github.com/bigbell/bellhop/internal/bellhop/event"
	"github.com/bigbell/bellhop/internal/bellhop/session"
	"github.com/bigbell/bellhop/internal/bellhop/whatsapp"
)

// greeting restarts the dialogue from any step.
const greeting = "hi"

// errNoBuildNumber drives the post-trigger poll loop: the build has been
// accepted but has not yet appeared as lastBuild.
var errNoBuildNumber = errors.New("build number not yet available")

// SessionStore is the slice of the session store the engine needs.
type SessionStore interface {
	Get(ctx context.Context, sender string) (session.Session, error)
	Set(ctx context.Context, sender string, fields session.Fields) error
	Clear(ctx context.Context, sender string) error
	RecordExchange(ctx context.Context, sender, inbound, reply string) error
}

// CI is the slice of the Jenkins client the engine needs. Every method is
// best-effort: failures surface as empty or false values, never as errors.
type CI interface {
	ListJobs(ctx context.Context) []string
	ListJobsByPrefix(ctx context.Context, prefix string) []string
	TriggerBuild(ctx context.Context, name string) bool
	LatestBuildNumber(ctx context.Context, name string) (int, bool)
	JobStatus(ctx context.Context, name string) string
}

// Chat delivers one payload to one recipient.
type Chat interface {
	Send(ctx context.Context, to string, p whatsapp.Payload) error
}

// Engine evaluates inbound events against the state table.
type Engine struct {
	store SessionStore
	ci    CI
	chat  Chat
	cat   *catalog.Catalog
	poll  retry.Config
}

// DefaultPoll is the post-trigger build-number polling policy.
var DefaultPoll = retry.Config{MaxAttempts: 5, Delay: retry.DefaultConfig.Delay}

// New creates an engine. A zero poll config falls back to DefaultPoll.
func New(store SessionStore, ci CI, chat Chat, cat *catalog.Catalog, poll retry.Config) *Engine {
	if poll.MaxAttempts <= 0 {
		poll = retry.Config{MaxAttempts: DefaultPoll.MaxAttempts, Delay: poll.Delay, Sleep: poll.Sleep}
	}
	return &Engine{store: store, ci: ci, chat: chat, cat: cat, poll: poll}
}

// Evaluate processes one raw webhook body and returns the terminal status
// tag. It never returns an error and never panics: internal faults are
// logged, the sender is notified best-effort, and StatusError is returned.
// The webhook layer answers 200 regardless, so the platform does not retry.
func (e *Engine) Evaluate(ctx context.Context, body []byte) (status Status) {
	msg, ok := event.Extract(body)
	if !ok || msg.From == "" {
		return StatusOK
	}
	sender := msg.From

	defer func() {
		if r := recover(); r != nil {
			slog.Error("dialogue: evaluation panicked", "sender", sender, "panic", r)
			e.notifyFailure(ctx, sender)
			status = StatusError
		}
	}()

	input := msg.Input()

	sess, err := e.store.Get(ctx, sender)
	if err != nil {
		return e.fail(ctx, sender, "failed to load session", err)
	}

	// The greeting restarts from any step, and an absent session is treated
	// the same as a greeting: first contact lands on the customer prompt.
	if input == greeting || sess.Step == session.StepNone {
		return e.greet(ctx, sender, input)
	}

	switch sess.Step {
	case session.StepSelectCustomer:
		return e.selectCustomer(ctx, sender, input)
	case session.StepSelectJob:
		return e.selectJob(ctx, sender, input, sess)
	case session.StepJobAction:
		return e.jobAction(ctx, sender, input, sess)
	default:
		slog.Warn("dialogue: session has unknown step", "sender", sender, "step", sess.Step)
		return StatusHandled
	}
}

// greet sends the customer prompt and positions the sender on
// StepSelectCustomer, whatever was stored before.
func (e *Engine) greet(ctx context.Context, sender, input string) Status {
	if err := e.store.Set(ctx, sender, session.Fields{Step: session.StepSelectCustomer}); err != nil {
		return e.fail(ctx, sender, "failed to persist greeting step", err)
	}

	replies := make([]whatsapp.Reply, 0, len(e.cat.Customers)+1)
	for _, c := range e.cat.Customers {
		replies = append(replies, whatsapp.Reply{ID: c.ID, Title: c.Title})
	}
	replies = append(replies, whatsapp.Reply{ID: catalog.CustomSentinel, Title: e.cat.Texts.CustomTitle})

	e.send(ctx, sender, input, whatsapp.Buttons(e.cat.Texts.Welcome, replies))
	return StatusWaitingCustomer
}

// selectCustomer resolves the chosen scope into a job candidate set and
// offers it. When the scope matches nothing the step deliberately stays at
// StepSelectCustomer, a dead end the sender exits with the greeting.
func (e *Engine) selectCustomer(ctx context.Context, sender, input string) Status {
	switch {
	case e.cat.IsCustomer(input):
		jobs := e.ci.ListJobsByPrefix(ctx, input)
		if len(jobs) == 0 {
			e.send(ctx, sender, input, whatsapp.Text(fmt.Sprintf(e.cat.Texts.NoJobsForF, input)))
			return StatusNoJobs
		}
		if err := e.store.Set(ctx, sender, session.Fields{
			Step:     session.StepSelectJob,
			Customer: input,
			Jobs:     jobs,
		}); err != nil {
			return e.fail(ctx, sender, "failed to persist job candidates", err)
		}

		// The button prompt holds at most 3 entries, so when more jobs
		// match only the first 3 are offered. The full set stays stored and
		// remains valid input on the next step. No pagination.
		replies := make([]whatsapp.Reply, 0, whatsapp.MaxButtons)
		for _, job := range jobs {
			if len(replies) == whatsapp.MaxButtons {
				break
			}
			replies = append(replies, whatsapp.Reply{ID: job, Title: job})
		}
		e.send(ctx, sender, input, whatsapp.Buttons(e.cat.Texts.SelectJob, replies))
		return StatusWaitingJob

	case input == catalog.CustomSentinel:
		jobs := e.ci.ListJobs(ctx)
		if len(jobs) == 0 {
			e.send(ctx, sender, input, whatsapp.Text(e.cat.Texts.NoJobs))
			return StatusNoJobs
		}
		if err := e.store.Set(ctx, sender, session.Fields{
			Step:     session.StepSelectJob,
			Customer: catalog.CustomSentinel,
			Jobs:     jobs,
		}); err != nil {
			return e.fail(ctx, sender, "failed to persist job candidates", err)
		}

		rows := make([]whatsapp.Row, 0, whatsapp.MaxListRows)
		for _, job := range jobs {
			if len(rows) == whatsapp.MaxListRows {
				break
			}
			rows = append(rows, whatsapp.Row{ID: job, Title: job})
		}
		t := e.cat.Texts
		e.send(ctx, sender, input, whatsapp.List(t.ListHeader, t.ListBody, t.ListButton, t.ListSection, rows))
		return StatusWaitingJob

	default:
		e.send(ctx, sender, input, whatsapp.Text(e.cat.Texts.InvalidCustomer))
		return StatusInvalidSelection
	}
}

// selectJob validates the input against the stored candidate set and offers
// the action menu for the matched job.
func (e *Engine) selectJob(ctx context.Context, sender, input string, sess session.Session) Status {
	jobName, ok := matchJob(sess.Jobs, input)
	if !ok {
		e.send(ctx, sender, input, whatsapp.Text(e.cat.Texts.InvalidJob))
		return StatusInvalidJob
	}

	if err := e.store.Set(ctx, sender, session.Fields{
		Step:    session.StepJobAction,
		JobName: jobName,
	}); err != nil {
		return e.fail(ctx, sender, "failed to persist job selection", err)
	}

	t := e.cat.Texts
	e.send(ctx, sender, input, whatsapp.Buttons(fmt.Sprintf(t.JobActionF, jobName), []whatsapp.Reply{
		{ID: "trigger", Title: t.TriggerTitle},
		{ID: "status", Title: t.StatusTitle},
		{ID: "terminate", Title: t.TerminateTitle},
	}))
	return StatusWaitingAction
}

// jobAction runs the chosen action against the selected job.
func (e *Engine) jobAction(ctx context.Context, sender, input string, sess session.Session) Status {
	job := sess.JobName
	t := e.cat.Texts

	switch input {
	case "trigger":
		if !e.ci.TriggerBuild(ctx, job) {
			e.send(ctx, sender, input, whatsapp.Text(fmt.Sprintf(t.TriggerFailedF, job)))
			e.clear(ctx, sender)
			return StatusTriggered
		}

		// The trigger has been accepted; the build number is polled as a
		// courtesy and its absence is cosmetic, not a failure.
		build := "N/A"
		err := retry.Do(ctx, e.poll, func() error {
			n, ok := e.ci.LatestBuildNumber(ctx, job)
			if !ok {
				return errNoBuildNumber
			}
			build = strconv.Itoa(n)
			return nil
		})
		if err != nil {
			slog.Warn("dialogue: build number unavailable after trigger", "sender", sender, "job", job)
		}

		// A failed status fetch surfaces as "ERROR" here, indistinguishable
		// from a build whose result is ERROR. Known ambiguity.
		result := e.ci.JobStatus(ctx, job)

		e.send(ctx, sender, input, whatsapp.Text(fmt.Sprintf(t.TriggeredF, job, build, result)))
		e.clear(ctx, sender)
		return StatusTriggered

	case "status":
		result := e.ci.JobStatus(ctx, job)
		e.send(ctx, sender, input, whatsapp.Text(fmt.Sprintf(t.JobStatusF, job, result)))
		return StatusStatus

	case "terminate":
		e.send(ctx, sender, input, whatsapp.Text(t.Terminated))
		e.clear(ctx, sender)
		return StatusTerminated

	default:
		e.send(ctx, sender, input, whatsapp.Text(t.InvalidAction))
		return StatusInvalidAction
	}
}

// matchJob finds input within the stored candidate set. Inputs arrive
// lower-cased, so the comparison is case-insensitive and the stored spelling
// is what gets carried forward as the selected job name.
func matchJob(jobs []string, input string) (string, bool) {
	for _, job := range jobs {
		if strings.EqualFold(job, input) {
			return job, true
		}
	}
	return "", false
}

// send delivers the reply and records the exchange in the audit log. Both
// are best-effort: the session transition has already been persisted and a
// delivery or audit failure must not undo it.
func (e *Engine) send(ctx context.Context, sender, input string, p whatsapp.Payload) {
	if err := e.chat.Send(ctx, sender, p); err != nil {
		slog.Warn("dialogue: delivery failed", "sender", sender, "err", err)
	}
	if err := e.store.RecordExchange(ctx, sender, input, p.BodyText()); err != nil {
		slog.Warn("dialogue: failed to record exchange", "sender", sender, "err", err)
	}
}

// clear resets the sender's session. The user-visible reply has already
// gone out by the time this runs, so a failure is logged rather than turned
// into an error status.
func (e *Engine) clear(ctx context.Context, sender string) {
	if err := e.store.Clear(ctx, sender); err != nil {
		slog.Error("dialogue: failed to clear session", "sender", sender, "err", err)
	}
}

// fail logs an internal fault, notifies the sender best-effort and maps the
// outcome onto StatusError. The session is left however the fault found it.
func (e *Engine) fail(ctx context.Context, sender, what string, err error) Status {
	slog.Error("dialogue: "+what, "sender", sender, "err", err)
	e.notifyFailure(ctx, sender)
	return StatusError
}

func (e *Engine) notifyFailure(ctx context.Context, sender string) {
	if err := e.chat.Send(ctx, sender, whatsapp.Text(e.cat.Texts.InternalError)); err != nil {
		slog.Warn("dialogue: failed to notify sender of error", "sender", sender, "err", err)
	}
}
