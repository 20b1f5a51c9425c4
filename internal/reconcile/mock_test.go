package reconcile

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/edvin/fleetctl/internal/journal"
	"github.com/edvin/fleetctl/internal/model"
)

// fakeCloser keeps grants in memory and fails revokes for the listed fleets.
type fakeCloser struct {
	mu         sync.Mutex
	grants     []model.FleetAccessGrant
	failFleets map[string]bool
	closeCalls int
}

func (f *fakeCloser) Pending() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.grants) > 0
}

func (f *fakeCloser) Grants() []model.FleetAccessGrant {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.FleetAccessGrant(nil), f.grants...)
}

func (f *fakeCloser) CloseAll(context.Context) model.CloseReport {
	f.mu.Lock()
	drained := f.grants
	f.grants = nil
	f.closeCalls++
	f.mu.Unlock()

	var report model.CloseReport
	for _, g := range drained {
		if f.failFleets[g.FleetID] {
			report.Failed = append(report.Failed, model.RevokeFailure{Grant: g, Err: errors.New("throttled")})
			continue
		}
		report.Revoked = append(report.Revoked, g)
	}
	return report
}

type mockPrompter struct {
	mock.Mock
}

func (m *mockPrompter) Choose(ctx context.Context, grants []model.FleetAccessGrant) (Choice, error) {
	args := m.Called(ctx, grants)
	return args.Get(0).(Choice), args.Error(1)
}

type mockJournal struct {
	mock.Mock
}

func (m *mockJournal) Record(ctx context.Context, g model.FleetAccessGrant, reason journal.Reason) error {
	args := m.Called(ctx, g, reason)
	return args.Error(0)
}

// scriptedReader returns its lines in order, then io.EOF.
type scriptedReader struct {
	lines []string
}

func (s *scriptedReader) Readline() (string, error) {
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}
