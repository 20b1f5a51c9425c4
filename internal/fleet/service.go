// Package fleet talks to the game-server hosting service: listing fleets,
// aliases, builds and instances, scaling, deleting and editing the inbound
// port settings of a fleet.
package fleet

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/gamelift"

	"github.com/edvin/fleetctl/internal/model"
)

// Service is the fleet service surface used by the rest of fleetctl.
type Service interface {
	ListFleets(ctx context.Context) ([]model.Fleet, error)
	ListAliases(ctx context.Context) ([]model.Alias, error)
	ListBuilds(ctx context.Context) ([]model.Build, error)
	ListInstances(ctx context.Context, fleetID string) ([]model.Instance, error)
	DescribeCapacity(ctx context.Context, fleetID string) (model.FleetCapacity, error)
	UpdateCapacity(ctx context.Context, fleetID string, minimum, desired, maximum int) error
	DeleteFleet(ctx context.Context, fleetID string) error
	DeleteBuild(ctx context.Context, buildID string) error
	DeleteAlias(ctx context.Context, aliasID string) error
	GetInstanceAccess(ctx context.Context, fleetID, instanceID string) (model.InstanceAccess, error)
	AuthorizeInbound(ctx context.Context, fleetID string, rules []model.AccessRule) (model.AuthorizeStatus, error)
	RevokeInbound(ctx context.Context, fleetID string, rules []model.AccessRule) error
}

// API is the subset of *gamelift.Client used by GameLift.
type API interface {
	DescribeFleetAttributes(ctx context.Context, params *gamelift.DescribeFleetAttributesInput, optFns ...func(*gamelift.Options)) (*gamelift.DescribeFleetAttributesOutput, error)
	ListAliases(ctx context.Context, params *gamelift.ListAliasesInput, optFns ...func(*gamelift.Options)) (*gamelift.ListAliasesOutput, error)
	ListBuilds(ctx context.Context, params *gamelift.ListBuildsInput, optFns ...func(*gamelift.Options)) (*gamelift.ListBuildsOutput, error)
	DescribeInstances(ctx context.Context, params *gamelift.DescribeInstancesInput, optFns ...func(*gamelift.Options)) (*gamelift.DescribeInstancesOutput, error)
	DescribeFleetCapacity(ctx context.Context, params *gamelift.DescribeFleetCapacityInput, optFns ...func(*gamelift.Options)) (*gamelift.DescribeFleetCapacityOutput, error)
	UpdateFleetCapacity(ctx context.Context, params *gamelift.UpdateFleetCapacityInput, optFns ...func(*gamelift.Options)) (*gamelift.UpdateFleetCapacityOutput, error)
	DeleteFleet(ctx context.Context, params *gamelift.DeleteFleetInput, optFns ...func(*gamelift.Options)) (*gamelift.DeleteFleetOutput, error)
	DeleteBuild(ctx context.Context, params *gamelift.DeleteBuildInput, optFns ...func(*gamelift.Options)) (*gamelift.DeleteBuildOutput, error)
	DeleteAlias(ctx context.Context, params *gamelift.DeleteAliasInput, optFns ...func(*gamelift.Options)) (*gamelift.DeleteAliasOutput, error)
	GetInstanceAccess(ctx context.Context, params *gamelift.GetInstanceAccessInput, optFns ...func(*gamelift.Options)) (*gamelift.GetInstanceAccessOutput, error)
	DescribeFleetPortSettings(ctx context.Context, params *gamelift.DescribeFleetPortSettingsInput, optFns ...func(*gamelift.Options)) (*gamelift.DescribeFleetPortSettingsOutput, error)
	UpdateFleetPortSettings(ctx context.Context, params *gamelift.UpdateFleetPortSettingsInput, optFns ...func(*gamelift.Options)) (*gamelift.UpdateFleetPortSettingsOutput, error)
}

var _ API = (*gamelift.Client)(nil)
