// Package bridge connects telemetry events to the account session: it
// accumulates the job snapshot and reports finished or cancelled jobs to
// the backend.
package bridge

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ngtracker/ngt-desktop/common"
	"github.com/ngtracker/ngt-desktop/history"
	"github.com/ngtracker/ngt-desktop/session"
	"github.com/ngtracker/ngt-desktop/telemetry"
	"github.com/ngtracker/ngt-desktop/tracing"
)

// Submitter sends job reports to the backend.
type Submitter interface {
	SubmitJob(ctx context.Context, token string, report common.JobReport) error
}

// Refresher re-fetches the account profile.
type Refresher interface {
	Refresh()
}

// Recorder stores submission attempts.
type Recorder interface {
	Record(ctx context.Context, entry history.Entry) error
}

// Indicator shows whether the game is connected.
type Indicator interface {
	SetTelemetryConnected(connected bool)
}

// Deps are the collaborators of a Bridge. History and Notifier are optional.
type Deps struct {
	Loop      *session.Loop
	State     *session.State
	Hub       *telemetry.Hub
	Submitter Submitter
	Refresher Refresher
	Indicator Indicator
	History   Recorder
	Notifier  common.Notifier
}

// Bridge owns the telemetry subscriptions of the UI context.
type Bridge struct {
	ctx  context.Context
	deps Deps
	subs []*telemetry.Subscription
	// Recorded is called on the loop after each attempt has been recorded.
	Recorded func(entry history.Entry)
}

// New creates a bridge. Call Subscribe to start receiving events.
func New(ctx context.Context, deps Deps) *Bridge {
	return &Bridge{ctx: ctx, deps: deps}
}

// Subscribe registers the telemetry handlers. Each handler posts its work
// onto the loop.
func (b *Bridge) Subscribe() {
	hub := b.deps.Hub
	loop := b.deps.Loop

	b.subs = append(b.subs,
		hub.OnConnected(func() {
			loop.Post(func() { b.deps.Indicator.SetTelemetryConnected(true) })
		}),
		hub.OnDisconnected(func() {
			loop.Post(func() { b.deps.Indicator.SetTelemetryConnected(false) })
		}),
		hub.OnTimeChange(func(current, _ telemetry.Timestamp) {
			frame := hub.Data()
			loop.Post(func() { b.deps.State.Snapshot.Observe(current, frame) })
		}),
		hub.OnJobStarted(func() {
			loop.Post(b.jobStarted)
		}),
		hub.OnJobDelivered(func() {
			loop.Post(func() { b.jobEnded(true) })
		}),
		hub.OnJobCancelled(func() {
			loop.Post(func() { b.jobEnded(false) })
		}),
	)
}

// Dispose removes every subscription.
func (b *Bridge) Dispose() {
	for _, sub := range b.subs {
		sub.Dispose()
	}
	b.subs = nil
}

func (b *Bridge) jobStarted() {
	common.LogInfo("Job started")
	b.deps.State.Snapshot.Reset()
}

func (b *Bridge) jobEnded(finished bool) {
	state := b.deps.State
	if !state.LoggedIn {
		common.LogDebug("Job ended while logged out, not reporting")
		return
	}

	report := state.Snapshot.Report(finished)
	token := state.Token()
	if finished {
		common.LogInfo("Job delivered, reporting %s", report.CargoID)
	} else {
		common.LogInfo("Job cancelled, reporting %s", report.CargoID)
	}

	b.deps.Loop.Go(func() func() {
		ctx, span := tracing.StartSpan(b.ctx, "job.submit")
		span.SetAttributes(
			attribute.Bool("job.finished", report.WasFinished),
			attribute.String("job.cargo", report.CargoID),
		)
		err := b.deps.Submitter.SubmitJob(ctx, token, report)
		if err != nil {
			common.LogError("Job submission failed: %v", err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()

		entry := history.NewEntry(report, err)
		if b.deps.History != nil {
			if herr := b.deps.History.Record(b.ctx, entry); herr != nil {
				common.LogWarn("Failed to record job history: %v", herr)
			}
		}
		b.notify(report, err)

		return func() {
			// Any answer from the server may have changed the totals.
			if err == nil || common.KindOf(err) == common.KindServerBusiness {
				b.deps.Refresher.Refresh()
			}
			if b.Recorded != nil {
				b.Recorded(entry)
			}
		}
	})

	// Accumulators reset as soon as the report is issued, whatever its outcome.
	state.Snapshot.Reset()
}

func (b *Bridge) notify(report common.JobReport, err error) {
	if b.deps.Notifier == nil {
		return
	}

	var title, body string
	switch {
	case err != nil:
		title = "Job not reported"
		body = common.UserMessage(err)
	case report.WasFinished:
		title = "Job delivered"
		body = fmt.Sprintf("%s reported, income %d", report.CargoID, report.Income)
	default:
		title = "Job cancelled"
		body = fmt.Sprintf("%s reported as cancelled", report.CargoID)
	}

	if nerr := b.deps.Notifier.Notify(title, body); nerr != nil {
		common.LogDebug("Notification failed: %v", nerr)
	}
}
