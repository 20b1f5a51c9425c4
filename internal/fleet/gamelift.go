package fleet

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/gamelift"
	gltypes "github.com/aws/aws-sdk-go-v2/service/gamelift/types"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"

	"github.com/edvin/fleetctl/internal/config"
	"github.com/edvin/fleetctl/internal/model"
)

// pageSize matches the largest page the list calls are asked for.
const pageSize int32 = 20

// GameLift implements Service against the GameLift API.
type GameLift struct {
	api              API
	allowDestructive bool
	logger           zerolog.Logger
}

// NewGameLift builds a GameLift client from the shared AWS configuration,
// narrowed by the region, profile, endpoint and static keys in cfg.
func NewGameLift(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*GameLift, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AWSProfile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(cfg.AWSProfile))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := gamelift.NewFromConfig(awsCfg, func(o *gamelift.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewGameLiftWithAPI(client, cfg, logger), nil
}

// NewGameLiftWithAPI wraps an existing API client.
func NewGameLiftWithAPI(api API, cfg *config.Config, logger zerolog.Logger) *GameLift {
	return &GameLift{
		api:              api,
		allowDestructive: cfg.ShowDestructiveControls,
		logger:           logger.With().Str("component", "fleet-service").Logger(),
	}
}

func (g *GameLift) ListFleets(ctx context.Context) ([]model.Fleet, error) {
	var fleets []model.Fleet
	var token *string
	for {
		out, err := g.api.DescribeFleetAttributes(ctx, &gamelift.DescribeFleetAttributesInput{
			Limit:     aws.Int32(pageSize),
			NextToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("describe fleet attributes: %w", err)
		}
		for _, attr := range out.FleetAttributes {
			fleets = append(fleets, model.Fleet{
				ID:              aws.ToString(attr.FleetId),
				Name:            aws.ToString(attr.Name),
				Status:          string(attr.Status),
				OperatingSystem: string(attr.OperatingSystem),
			})
		}
		if token = out.NextToken; token == nil {
			return fleets, nil
		}
	}
}

func (g *GameLift) ListAliases(ctx context.Context) ([]model.Alias, error) {
	var aliases []model.Alias
	var token *string
	for {
		out, err := g.api.ListAliases(ctx, &gamelift.ListAliasesInput{
			Limit:     aws.Int32(pageSize),
			NextToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("list aliases: %w", err)
		}
		for _, a := range out.Aliases {
			alias := model.Alias{
				ID:   aws.ToString(a.AliasId),
				Name: aws.ToString(a.Name),
			}
			if rs := a.RoutingStrategy; rs != nil {
				alias.RoutingType = string(rs.Type)
				alias.FleetID = aws.ToString(rs.FleetId)
			}
			aliases = append(aliases, alias)
		}
		if token = out.NextToken; token == nil {
			return aliases, nil
		}
	}
}

func (g *GameLift) ListBuilds(ctx context.Context) ([]model.Build, error) {
	var builds []model.Build
	var token *string
	for {
		out, err := g.api.ListBuilds(ctx, &gamelift.ListBuildsInput{
			Limit:     aws.Int32(pageSize),
			NextToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("list builds: %w", err)
		}
		for _, b := range out.Builds {
			builds = append(builds, model.Build{
				ID:     aws.ToString(b.BuildId),
				Name:   aws.ToString(b.Name),
				Status: string(b.Status),
			})
		}
		if token = out.NextToken; token == nil {
			return builds, nil
		}
	}
}

func (g *GameLift) ListInstances(ctx context.Context, fleetID string) ([]model.Instance, error) {
	var instances []model.Instance
	var token *string
	for {
		out, err := g.api.DescribeInstances(ctx, &gamelift.DescribeInstancesInput{
			FleetId:   aws.String(fleetID),
			Limit:     aws.Int32(pageSize),
			NextToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("describe instances for fleet %s: %w", fleetID, err)
		}
		for _, inst := range out.Instances {
			instances = append(instances, model.Instance{
				ID:              aws.ToString(inst.InstanceId),
				FleetID:         aws.ToString(inst.FleetId),
				IPAddress:       aws.ToString(inst.IpAddress),
				Status:          string(inst.Status),
				OperatingSystem: string(inst.OperatingSystem),
			})
		}
		if token = out.NextToken; token == nil {
			return instances, nil
		}
	}
}

func (g *GameLift) DescribeCapacity(ctx context.Context, fleetID string) (model.FleetCapacity, error) {
	out, err := g.api.DescribeFleetCapacity(ctx, &gamelift.DescribeFleetCapacityInput{
		FleetIds: []string{fleetID},
	})
	if err != nil {
		return model.FleetCapacity{}, fmt.Errorf("describe capacity for fleet %s: %w", fleetID, err)
	}
	for _, fc := range out.FleetCapacity {
		if aws.ToString(fc.FleetId) != fleetID || fc.InstanceCounts == nil {
			continue
		}
		counts := fc.InstanceCounts
		return model.FleetCapacity{
			FleetID: fleetID,
			Minimum: int(aws.ToInt32(counts.MINIMUM)),
			Desired: int(aws.ToInt32(counts.DESIRED)),
			Active:  int(aws.ToInt32(counts.ACTIVE)),
			Idle:    int(aws.ToInt32(counts.IDLE)),
			Maximum: int(aws.ToInt32(counts.MAXIMUM)),
		}, nil
	}
	return model.FleetCapacity{}, fmt.Errorf("describe capacity for fleet %s: no capacity reported", fleetID)
}

func (g *GameLift) UpdateCapacity(ctx context.Context, fleetID string, minimum, desired, maximum int) error {
	_, err := g.api.UpdateFleetCapacity(ctx, &gamelift.UpdateFleetCapacityInput{
		FleetId:          aws.String(fleetID),
		MinSize:          aws.Int32(int32(minimum)),
		DesiredInstances: aws.Int32(int32(desired)),
		MaxSize:          aws.Int32(int32(maximum)),
	})
	if err != nil {
		return fmt.Errorf("update capacity for fleet %s: %w", fleetID, err)
	}
	g.logger.Info().Str("fleet", fleetID).Int("min", minimum).Int("desired", desired).Int("max", maximum).Msg("fleet capacity updated")
	return nil
}

// DeleteFleet scales the fleet to zero and then deletes it.
func (g *GameLift) DeleteFleet(ctx context.Context, fleetID string) error {
	if !g.allowDestructive {
		return model.ErrDestructiveDisabled
	}
	if err := g.UpdateCapacity(ctx, fleetID, 0, 0, 0); err != nil {
		return fmt.Errorf("delete fleet %s: %w", fleetID, err)
	}
	if _, err := g.api.DeleteFleet(ctx, &gamelift.DeleteFleetInput{FleetId: aws.String(fleetID)}); err != nil {
		return fmt.Errorf("delete fleet %s: %w", fleetID, err)
	}
	g.logger.Info().Str("fleet", fleetID).Msg("fleet deletion requested")
	return nil
}

func (g *GameLift) DeleteBuild(ctx context.Context, buildID string) error {
	if !g.allowDestructive {
		return model.ErrDestructiveDisabled
	}
	if _, err := g.api.DeleteBuild(ctx, &gamelift.DeleteBuildInput{BuildId: aws.String(buildID)}); err != nil {
		return fmt.Errorf("delete build %s: %w", buildID, err)
	}
	g.logger.Info().Str("build", buildID).Msg("build deleted")
	return nil
}

func (g *GameLift) DeleteAlias(ctx context.Context, aliasID string) error {
	if !g.allowDestructive {
		return model.ErrDestructiveDisabled
	}
	if _, err := g.api.DeleteAlias(ctx, &gamelift.DeleteAliasInput{AliasId: aws.String(aliasID)}); err != nil {
		return fmt.Errorf("delete alias %s: %w", aliasID, err)
	}
	g.logger.Info().Str("alias", aliasID).Msg("alias deleted")
	return nil
}

func (g *GameLift) GetInstanceAccess(ctx context.Context, fleetID, instanceID string) (model.InstanceAccess, error) {
	out, err := g.api.GetInstanceAccess(ctx, &gamelift.GetInstanceAccessInput{
		FleetId:    aws.String(fleetID),
		InstanceId: aws.String(instanceID),
	})
	if err != nil {
		return model.InstanceAccess{}, fmt.Errorf("get instance access for %s: %w", instanceID, err)
	}
	ia := out.InstanceAccess
	if ia == nil {
		return model.InstanceAccess{}, fmt.Errorf("get instance access for %s: empty response", instanceID)
	}

	access := model.InstanceAccess{
		FleetID:         fleetID,
		InstanceID:      instanceID,
		IPAddress:       aws.ToString(ia.IpAddress),
		OperatingSystem: string(ia.OperatingSystem),
	}
	if ia.Credentials != nil {
		access.UserName = aws.ToString(ia.Credentials.UserName)
		access.Secret = aws.ToString(ia.Credentials.Secret)
	}
	return access, nil
}

// AuthorizeInbound adds rules to the fleet's inbound permissions. The service
// rejects a rule that is already present with InvalidRequestException, but it
// uses the same code for other bad requests (a fleet that is not ACTIVE, for
// one). The rejection is reported as model.ErrRuleAlreadyExists only when the
// fleet's current port settings show every rule in place.
func (g *GameLift) AuthorizeInbound(ctx context.Context, fleetID string, rules []model.AccessRule) (model.AuthorizeStatus, error) {
	_, err := g.api.UpdateFleetPortSettings(ctx, &gamelift.UpdateFleetPortSettingsInput{
		FleetId:                         aws.String(fleetID),
		InboundPermissionAuthorizations: toPermissions(rules),
	})
	if err == nil {
		return model.AuthorizeApplied, nil
	}
	if isInvalidRequest(err) {
		present, descErr := g.rulesPresent(ctx, fleetID, rules)
		if descErr != nil {
			g.logger.Warn().Err(descErr).Str("fleet", fleetID).Msg("cannot confirm existing inbound rules")
		}
		if present {
			return model.AuthorizeFailed, fmt.Errorf("update port settings on %s: %w: %w", fleetID, model.ErrRuleAlreadyExists, err)
		}
	}
	return model.AuthorizeFailed, fmt.Errorf("%w: update port settings on %s: %w", model.ErrServiceCallFailed, fleetID, err)
}

// rulesPresent reports whether every rule is among the fleet's inbound permissions.
func (g *GameLift) rulesPresent(ctx context.Context, fleetID string, rules []model.AccessRule) (bool, error) {
	out, err := g.api.DescribeFleetPortSettings(ctx, &gamelift.DescribeFleetPortSettingsInput{
		FleetId: aws.String(fleetID),
	})
	if err != nil {
		return false, fmt.Errorf("describe port settings on %s: %w", fleetID, err)
	}

	have := make(map[permissionKey]bool, len(out.InboundPermissions))
	for _, p := range out.InboundPermissions {
		have[keyOf(p)] = true
	}
	for _, p := range toPermissions(rules) {
		if !have[keyOf(p)] {
			return false, nil
		}
	}
	return true, nil
}

type permissionKey struct {
	from, to int32
	ipRange  string
	protocol gltypes.IpProtocol
}

func keyOf(p gltypes.IpPermission) permissionKey {
	return permissionKey{
		from:     aws.ToInt32(p.FromPort),
		to:       aws.ToInt32(p.ToPort),
		ipRange:  aws.ToString(p.IpRange),
		protocol: p.Protocol,
	}
}

// RevokeInbound removes rules from the fleet's inbound permissions.
func (g *GameLift) RevokeInbound(ctx context.Context, fleetID string, rules []model.AccessRule) error {
	_, err := g.api.UpdateFleetPortSettings(ctx, &gamelift.UpdateFleetPortSettingsInput{
		FleetId:                      aws.String(fleetID),
		InboundPermissionRevocations: toPermissions(rules),
	})
	if err != nil {
		return fmt.Errorf("%w: update port settings on %s: %w", model.ErrServiceCallFailed, fleetID, err)
	}
	return nil
}

func toPermissions(rules []model.AccessRule) []gltypes.IpPermission {
	perms := make([]gltypes.IpPermission, 0, len(rules))
	for _, r := range rules {
		protocol := gltypes.IpProtocolTcp
		if r.Transport == model.TransportUDP {
			protocol = gltypes.IpProtocolUdp
		}
		perms = append(perms, gltypes.IpPermission{
			FromPort: aws.Int32(int32(r.FromPort)),
			ToPort:   aws.Int32(int32(r.ToPort)),
			IpRange:  aws.String(r.SourceRange),
			Protocol: protocol,
		})
	}
	return perms
}

func isInvalidRequest(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "InvalidRequestException"
}
