package access

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/edvin/fleetctl/internal/model"
)

// ---------- Mock fleet permissions ----------

type mockPermissions struct {
	mock.Mock
}

func (m *mockPermissions) AuthorizeInbound(ctx context.Context, fleetID string, rules []model.AccessRule) (model.AuthorizeStatus, error) {
	args := m.Called(ctx, fleetID, rules)
	return args.Get(0).(model.AuthorizeStatus), args.Error(1)
}

func (m *mockPermissions) RevokeInbound(ctx context.Context, fleetID string, rules []model.AccessRule) error {
	args := m.Called(ctx, fleetID, rules)
	return args.Error(0)
}

// ---------- Mock address lookup ----------

type mockLookup struct {
	mock.Mock
}

func (m *mockLookup) PublicAddress(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// ---------- Recording recorder ----------

type countingRecorder struct {
	authorized map[model.AuthorizeStatus]int
	failed     map[string]int
	revoked    int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{
		authorized: map[model.AuthorizeStatus]int{},
		failed:     map[string]int{},
	}
}

func (r *countingRecorder) RuleAuthorized(_ model.Purpose, status model.AuthorizeStatus) {
	r.authorized[status]++
}

func (r *countingRecorder) CallFailed(op string) { r.failed[op]++ }

func (r *countingRecorder) GrantRevoked(rules int) { r.revoked += rules }
