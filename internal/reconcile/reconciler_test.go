package reconcile

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/edvin/fleetctl/internal/journal"
	"github.com/edvin/fleetctl/internal/model"
)

func testGrant(id, fleet string, port int) model.FleetAccessGrant {
	return model.FleetAccessGrant{
		ID:       id,
		FleetID:  fleet,
		Purpose:  model.PurposeRemoteShell,
		OpenedAt: time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC),
		Rules: []model.AccessRule{{
			FleetID: fleet, FromPort: port, ToPort: port, SourceRange: model.UnrestrictedRange, Transport: model.TransportTCP,
		}},
	}
}

func TestShutdown_EmptyLedgerSkipsPrompt(t *testing.T) {
	closer := &fakeCloser{}
	prompter := new(mockPrompter)

	r := New(closer, prompter, nil, nil, zerolog.Nop())
	assert.Equal(t, StateRunning, r.State())

	out := r.Shutdown(context.Background())
	assert.False(t, out.Prompted)
	assert.Equal(t, StateDone, r.State())
	assert.Zero(t, closer.closeCalls)
	prompter.AssertNotCalled(t, "Choose", mock.Anything, mock.Anything)
}

func TestShutdown_RevokeClosesAll(t *testing.T) {
	closer := &fakeCloser{grants: []model.FleetAccessGrant{testGrant("g-1", "fleet-a", 22), testGrant("g-2", "fleet-b", 3389)}}
	prompter := new(mockPrompter)
	var r *Reconciler
	prompter.On("Choose", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		assert.Equal(t, StatePrompting, r.State())
	}).Return(ChoiceRevoke, nil)

	var buf bytes.Buffer
	r = New(closer, prompter, nil, &buf, zerolog.Nop())
	out := r.Shutdown(context.Background())

	assert.True(t, out.Prompted)
	assert.Equal(t, ChoiceRevoke, out.Choice)
	assert.Len(t, out.Report.Revoked, 2)
	assert.False(t, closer.Pending())
	assert.Equal(t, StateDone, r.State())
	assert.Contains(t, buf.String(), "Revoked 2 grant(s).")
}

func TestShutdown_LeaveOpenKeepsLedgerAndJournals(t *testing.T) {
	grants := []model.FleetAccessGrant{testGrant("g-1", "fleet-a", 22)}
	closer := &fakeCloser{grants: grants}
	prompter := new(mockPrompter)
	prompter.On("Choose", mock.Anything, grants).Return(ChoiceLeaveOpen, nil)
	j := new(mockJournal)
	j.On("Record", mock.Anything, grants[0], journal.ReasonLeftOpen).Return(nil).Once()

	var buf bytes.Buffer
	out := New(closer, prompter, j, &buf, zerolog.Nop()).Shutdown(context.Background())

	assert.Equal(t, ChoiceLeaveOpen, out.Choice)
	assert.Equal(t, grants, out.LeftOpen)
	assert.Zero(t, closer.closeCalls)
	assert.True(t, closer.Pending())
	assert.Contains(t, buf.String(), "Leaving 1 grant(s) open")
	j.AssertExpectations(t)
}

func TestShutdown_FailedRevokesAreReportedAndJournaled(t *testing.T) {
	closer := &fakeCloser{
		grants:     []model.FleetAccessGrant{testGrant("g-1", "fleet-a", 22), testGrant("g-2", "fleet-b", 22), testGrant("g-3", "fleet-c", 22)},
		failFleets: map[string]bool{"fleet-b": true},
	}
	j := new(mockJournal)
	j.On("Record", mock.Anything, mock.MatchedBy(func(g model.FleetAccessGrant) bool { return g.ID == "g-2" }), journal.ReasonRevokeFailed).
		Return(errors.New("disk full")).Once()

	var buf bytes.Buffer
	out := New(closer, FixedPrompter{Choice: ChoiceRevoke}, j, &buf, zerolog.Nop()).Shutdown(context.Background())

	assert.Len(t, out.Report.Revoked, 2)
	require.Len(t, out.Report.Failed, 1)
	assert.False(t, closer.Pending())
	assert.Contains(t, buf.String(), "Could not revoke grant g-2 on fleet fleet-b: throttled")
	j.AssertExpectations(t)
}

func TestShutdown_PromptErrorRevokes(t *testing.T) {
	closer := &fakeCloser{grants: []model.FleetAccessGrant{testGrant("g-1", "fleet-a", 22)}}
	prompter := new(mockPrompter)
	prompter.On("Choose", mock.Anything, mock.Anything).Return(ChoiceLeaveOpen, errors.New("interrupted"))

	out := New(closer, prompter, nil, nil, zerolog.Nop()).Shutdown(context.Background())
	assert.Equal(t, ChoiceRevoke, out.Choice)
	assert.Equal(t, 1, closer.closeCalls)
}

func TestShutdown_NilPrompterRevokes(t *testing.T) {
	closer := &fakeCloser{grants: []model.FleetAccessGrant{testGrant("g-1", "fleet-a", 22)}}

	out := New(closer, nil, nil, nil, zerolog.Nop()).Shutdown(context.Background())
	assert.Equal(t, ChoiceRevoke, out.Choice)
	assert.False(t, closer.Pending())
}

func TestShutdown_RunsOnce(t *testing.T) {
	closer := &fakeCloser{grants: []model.FleetAccessGrant{testGrant("g-1", "fleet-a", 22)}}
	r := New(closer, FixedPrompter{Choice: ChoiceRevoke}, nil, nil, zerolog.Nop())

	first := r.Shutdown(context.Background())
	closer.grants = []model.FleetAccessGrant{testGrant("g-2", "fleet-a", 22)}
	second := r.Shutdown(context.Background())

	assert.Equal(t, first, second)
	assert.Equal(t, 1, closer.closeCalls)
}

func TestShutdown_CanceledContextStillJournals(t *testing.T) {
	closer := &fakeCloser{grants: []model.FleetAccessGrant{testGrant("g-1", "fleet-a", 22)}}
	j := new(mockJournal)
	j.On("Record", mock.MatchedBy(func(ctx context.Context) bool { return ctx.Err() == nil }), mock.Anything, journal.ReasonLeftOpen).Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	New(closer, FixedPrompter{Choice: ChoiceLeaveOpen}, j, nil, zerolog.Nop()).Shutdown(ctx)
	j.AssertExpectations(t)
}

func TestStateAndChoiceStrings(t *testing.T) {
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "prompting", StatePrompting.String())
	assert.Equal(t, "closing", StateClosing.String())
	assert.Equal(t, "done", StateDone.String())
	assert.Equal(t, "revoke", ChoiceRevoke.String())
	assert.Equal(t, "leave", ChoiceLeaveOpen.String())
}

type ctxCheckingCloser struct {
	fakeCloser
	sawCanceled bool
}

func (c *ctxCheckingCloser) CloseAll(ctx context.Context) model.CloseReport {
	c.sawCanceled = ctx.Err() != nil
	return c.fakeCloser.CloseAll(ctx)
}

func TestShutdown_CanceledContextStillRevokes(t *testing.T) {
	closer := &ctxCheckingCloser{fakeCloser: fakeCloser{grants: []model.FleetAccessGrant{testGrant("g-1", "fleet-a", 22)}}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := New(closer, &LinePrompter{In: &scriptedReader{lines: []string{"y"}}, Out: &bytes.Buffer{}}, nil, nil, zerolog.Nop()).Shutdown(ctx)

	assert.Equal(t, ChoiceRevoke, out.Choice)
	assert.False(t, closer.sawCanceled)
	assert.Len(t, out.Report.Revoked, 1)
}

func TestShutdown_CanceledContextStillAsks(t *testing.T) {
	grants := []model.FleetAccessGrant{testGrant("g-1", "fleet-a", 22)}
	closer := &fakeCloser{grants: grants}
	j := new(mockJournal)
	j.On("Record", mock.Anything, grants[0], journal.ReasonLeftOpen).Return(nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var buf bytes.Buffer
	out := New(closer, &LinePrompter{In: &scriptedReader{lines: []string{"n"}}, Out: &buf}, j, &buf, zerolog.Nop()).Shutdown(ctx)

	assert.True(t, out.Prompted)
	assert.Equal(t, ChoiceLeaveOpen, out.Choice)
	assert.Equal(t, grants, out.LeftOpen)
	assert.Zero(t, closer.closeCalls)
	assert.Contains(t, buf.String(), "Revoke them now? [Y/n] ")
	assert.Contains(t, buf.String(), "Leaving 1 grant(s) open")
	j.AssertExpectations(t)
}
