package session

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/edvin/fleetctl/internal/model"
)

type mockSource struct {
	mock.Mock
}

func (m *mockSource) GetInstanceAccess(ctx context.Context, fleetID, instanceID string) (model.InstanceAccess, error) {
	args := m.Called(ctx, fleetID, instanceID)
	return args.Get(0).(model.InstanceAccess), args.Error(1)
}

type mockOpener struct {
	mock.Mock
}

func (m *mockOpener) OpenAccess(ctx context.Context, fleetID string, purpose model.Purpose) ([]model.AccessRule, error) {
	args := m.Called(ctx, fleetID, purpose)
	rules, _ := args.Get(0).([]model.AccessRule)
	return rules, args.Error(1)
}

type mockLauncher struct {
	mock.Mock
}

func (m *mockLauncher) Launch(ctx context.Context, access model.InstanceAccess) error {
	return m.Called(ctx, access).Error(0)
}
