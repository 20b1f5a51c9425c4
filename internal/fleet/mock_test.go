package fleet

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/gamelift"
	"github.com/stretchr/testify/mock"

	"github.com/edvin/fleetctl/internal/model"
)

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) DescribeFleetAttributes(ctx context.Context, in *gamelift.DescribeFleetAttributesInput, _ ...func(*gamelift.Options)) (*gamelift.DescribeFleetAttributesOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*gamelift.DescribeFleetAttributesOutput)
	return out, args.Error(1)
}

func (m *mockAPI) ListAliases(ctx context.Context, in *gamelift.ListAliasesInput, _ ...func(*gamelift.Options)) (*gamelift.ListAliasesOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*gamelift.ListAliasesOutput)
	return out, args.Error(1)
}

func (m *mockAPI) ListBuilds(ctx context.Context, in *gamelift.ListBuildsInput, _ ...func(*gamelift.Options)) (*gamelift.ListBuildsOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*gamelift.ListBuildsOutput)
	return out, args.Error(1)
}

func (m *mockAPI) DescribeInstances(ctx context.Context, in *gamelift.DescribeInstancesInput, _ ...func(*gamelift.Options)) (*gamelift.DescribeInstancesOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*gamelift.DescribeInstancesOutput)
	return out, args.Error(1)
}

func (m *mockAPI) DescribeFleetCapacity(ctx context.Context, in *gamelift.DescribeFleetCapacityInput, _ ...func(*gamelift.Options)) (*gamelift.DescribeFleetCapacityOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*gamelift.DescribeFleetCapacityOutput)
	return out, args.Error(1)
}

func (m *mockAPI) UpdateFleetCapacity(ctx context.Context, in *gamelift.UpdateFleetCapacityInput, _ ...func(*gamelift.Options)) (*gamelift.UpdateFleetCapacityOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*gamelift.UpdateFleetCapacityOutput)
	return out, args.Error(1)
}

func (m *mockAPI) DeleteFleet(ctx context.Context, in *gamelift.DeleteFleetInput, _ ...func(*gamelift.Options)) (*gamelift.DeleteFleetOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*gamelift.DeleteFleetOutput)
	return out, args.Error(1)
}

func (m *mockAPI) DeleteBuild(ctx context.Context, in *gamelift.DeleteBuildInput, _ ...func(*gamelift.Options)) (*gamelift.DeleteBuildOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*gamelift.DeleteBuildOutput)
	return out, args.Error(1)
}

func (m *mockAPI) DeleteAlias(ctx context.Context, in *gamelift.DeleteAliasInput, _ ...func(*gamelift.Options)) (*gamelift.DeleteAliasOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*gamelift.DeleteAliasOutput)
	return out, args.Error(1)
}

func (m *mockAPI) GetInstanceAccess(ctx context.Context, in *gamelift.GetInstanceAccessInput, _ ...func(*gamelift.Options)) (*gamelift.GetInstanceAccessOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*gamelift.GetInstanceAccessOutput)
	return out, args.Error(1)
}

func (m *mockAPI) DescribeFleetPortSettings(ctx context.Context, in *gamelift.DescribeFleetPortSettingsInput, _ ...func(*gamelift.Options)) (*gamelift.DescribeFleetPortSettingsOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*gamelift.DescribeFleetPortSettingsOutput)
	return out, args.Error(1)
}

func (m *mockAPI) UpdateFleetPortSettings(ctx context.Context, in *gamelift.UpdateFleetPortSettingsInput, _ ...func(*gamelift.Options)) (*gamelift.UpdateFleetPortSettingsOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*gamelift.UpdateFleetPortSettingsOutput)
	return out, args.Error(1)
}

// stubService serves fixed lists for Refresh tests.
type stubService struct {
	Service
	fleets   []model.Fleet
	aliases  []model.Alias
	builds   []model.Build
	aliasErr error
}

func (s *stubService) ListFleets(context.Context) ([]model.Fleet, error) { return s.fleets, nil }
func (s *stubService) ListAliases(context.Context) ([]model.Alias, error) {
	return s.aliases, s.aliasErr
}
func (s *stubService) ListBuilds(context.Context) ([]model.Build, error) { return s.builds, nil }
