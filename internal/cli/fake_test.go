package cli

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/edvin/fleetctl/internal/model"
)

type capacityUpdate struct {
	fleetID                   string
	minimum, desired, maximum int
}

// fakeService is an in-memory fleet.Service.
type fakeService struct {
	mu         sync.Mutex
	fleets     []model.Fleet
	aliases    []model.Alias
	builds     []model.Build
	instances  map[string][]model.Instance
	capacity   map[string]model.FleetCapacity
	access     model.InstanceAccess
	updateErr  error
	updates    []capacityUpdate
	deleted    []string
	authorized []model.AccessRule
	revoked    []model.AccessRule
}

func (f *fakeService) ListFleets(context.Context) ([]model.Fleet, error) { return f.fleets, nil }
func (f *fakeService) ListAliases(context.Context) ([]model.Alias, error) {
	return append([]model.Alias(nil), f.aliases...), nil
}
func (f *fakeService) ListBuilds(context.Context) ([]model.Build, error) { return f.builds, nil }

func (f *fakeService) ListInstances(_ context.Context, fleetID string) ([]model.Instance, error) {
	return f.instances[fleetID], nil
}

func (f *fakeService) DescribeCapacity(_ context.Context, fleetID string) (model.FleetCapacity, error) {
	c, ok := f.capacity[fleetID]
	if !ok {
		return model.FleetCapacity{}, fmt.Errorf("describe capacity for fleet %s: no capacity reported", fleetID)
	}
	return c, nil
}

func (f *fakeService) UpdateCapacity(_ context.Context, fleetID string, minimum, desired, maximum int) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, capacityUpdate{fleetID, minimum, desired, maximum})
	return nil
}

func (f *fakeService) DeleteFleet(_ context.Context, id string) error {
	f.deleted = append(f.deleted, "fleet/"+id)
	return nil
}

func (f *fakeService) DeleteBuild(_ context.Context, id string) error {
	f.deleted = append(f.deleted, "build/"+id)
	return nil
}

func (f *fakeService) DeleteAlias(_ context.Context, id string) error {
	f.deleted = append(f.deleted, "alias/"+id)
	return nil
}

func (f *fakeService) GetInstanceAccess(_ context.Context, fleetID, instanceID string) (model.InstanceAccess, error) {
	a := f.access
	a.FleetID, a.InstanceID = fleetID, instanceID
	return a, nil
}

func (f *fakeService) AuthorizeInbound(_ context.Context, _ string, rules []model.AccessRule) (model.AuthorizeStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authorized = append(f.authorized, rules...)
	return model.AuthorizeApplied, nil
}

func (f *fakeService) RevokeInbound(_ context.Context, _ string, rules []model.AccessRule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, rules...)
	return nil
}

type fixedLookup string

func (l fixedLookup) PublicAddress(context.Context) (string, error) { return string(l), nil }

// scriptedConsole feeds console lines and then reports EOF.
type scriptedConsole struct {
	lines  []string
	closed int
}

func (s *scriptedConsole) Readline() (string, error) {
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func (s *scriptedConsole) Close() error {
	s.closed++
	return nil
}

type recordingLauncher struct {
	launched []model.InstanceAccess
}

func (r *recordingLauncher) Launch(_ context.Context, access model.InstanceAccess) error {
	r.launched = append(r.launched, access)
	return nil
}
