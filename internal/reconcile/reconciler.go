// Package reconcile decides, at shutdown, what happens to access rules that
// are still open: revoke them now or leave them for the operator.
package reconcile

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/edvin/fleetctl/internal/journal"
	"github.com/edvin/fleetctl/internal/model"
)

// State is a reconciler state.
type State int

const (
	StateRunning State = iota
	StatePrompting
	StateClosing
	StateDone
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StatePrompting:
		return "prompting"
	case StateClosing:
		return "closing"
	default:
		return "done"
	}
}

// Choice is the operator's answer at shutdown.
type Choice int

const (
	ChoiceRevoke Choice = iota
	ChoiceLeaveOpen
)

func (c Choice) String() string {
	if c == ChoiceLeaveOpen {
		return "leave"
	}
	return "revoke"
}

// Prompter asks the operator what to do with open grants.
type Prompter interface {
	Choose(ctx context.Context, grants []model.FleetAccessGrant) (Choice, error)
}

// Closer is the part of the access controller the reconciler drives.
type Closer interface {
	Pending() bool
	Grants() []model.FleetAccessGrant
	CloseAll(ctx context.Context) model.CloseReport
}

// Journal stores grants that outlive the process.
type Journal interface {
	Record(ctx context.Context, g model.FleetAccessGrant, reason journal.Reason) error
}

// Outcome describes how shutdown was resolved.
type Outcome struct {
	Prompted bool
	Choice   Choice
	Report   model.CloseReport
	LeftOpen []model.FleetAccessGrant
}

// Reconciler runs the shutdown flow once per process.
type Reconciler struct {
	closer   Closer
	prompter Prompter
	journal  Journal
	out      io.Writer
	logger   zerolog.Logger

	mu      sync.Mutex
	state   State
	once    sync.Once
	outcome Outcome
}

// New creates a Reconciler. journal may be nil; out receives the messages
// meant for the operator and may be nil.
func New(closer Closer, prompter Prompter, j Journal, out io.Writer, logger zerolog.Logger) *Reconciler {
	if out == nil {
		out = io.Discard
	}
	return &Reconciler{
		closer:   closer,
		prompter: prompter,
		journal:  j,
		out:      out,
		logger:   logger.With().Str("component", "shutdown-reconciler").Logger(),
		state:    StateRunning,
	}
}

// State returns the current state.
func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Reconciler) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
	r.logger.Debug().Str("state", s.String()).Msg("shutdown state")
}

// Shutdown resolves open grants and always ends in StateDone. Only the first
// call does any work; later calls return the same outcome.
func (r *Reconciler) Shutdown(ctx context.Context) Outcome {
	r.once.Do(func() {
		r.outcome = r.run(ctx)
		r.setState(StateDone)
	})
	return r.outcome
}

func (r *Reconciler) run(ctx context.Context) Outcome {
	if !r.closer.Pending() {
		return Outcome{}
	}

	r.setState(StatePrompting)
	grants := r.closer.Grants()
	choice := ChoiceRevoke
	if r.prompter != nil {
		// Shutdown usually starts because ctx was canceled; the operator still gets asked.
		c, err := r.prompter.Choose(context.WithoutCancel(ctx), grants)
		if err != nil {
			r.logger.Warn().Err(err).Msg("no answer from operator, revoking")
		} else {
			choice = c
		}
	}

	out := Outcome{Prompted: true, Choice: choice}
	if choice == ChoiceLeaveOpen {
		out.LeftOpen = grants
		r.journalAll(ctx, grants, journal.ReasonLeftOpen)
		fmt.Fprintf(r.out, "Leaving %d grant(s) open. Run 'fleetctl revoke-stale' or remove them in the console.\n", len(grants))
		return out
	}

	r.setState(StateClosing)
	// Shutdown is usually triggered by ctx being canceled; revokes must still run.
	out.Report = r.closer.CloseAll(context.WithoutCancel(ctx))
	fmt.Fprintf(r.out, "Revoked %d grant(s).\n", len(out.Report.Revoked))
	if len(out.Report.Failed) > 0 {
		failed := make([]model.FleetAccessGrant, 0, len(out.Report.Failed))
		for _, f := range out.Report.Failed {
			fmt.Fprintf(r.out, "Could not revoke grant %s on fleet %s: %v\n", f.Grant.ID, f.Grant.FleetID, f.Err)
			failed = append(failed, f.Grant)
		}
		fmt.Fprintln(r.out, "Remove the remaining rules in the fleet console or with 'fleetctl revoke-stale'.")
		r.journalAll(ctx, failed, journal.ReasonRevokeFailed)
	}
	return out
}

func (r *Reconciler) journalAll(ctx context.Context, grants []model.FleetAccessGrant, reason journal.Reason) {
	if r.journal == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for _, g := range grants {
		if err := r.journal.Record(ctx, g, reason); err != nil {
			r.logger.Error().Err(err).Str("grant", g.ID).Msg("failed to journal grant")
		}
	}
}
