// Package access opens temporary inbound access on fleets and guarantees that
// every rule it opened can be found again and revoked.
package access

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/edvin/fleetctl/internal/addr"
	"github.com/edvin/fleetctl/internal/config"
	"github.com/edvin/fleetctl/internal/model"
)

// FleetPermissions is the part of the fleet service that adds and removes
// inbound permissions.
type FleetPermissions interface {
	AuthorizeInbound(ctx context.Context, fleetID string, rules []model.AccessRule) (model.AuthorizeStatus, error)
	RevokeInbound(ctx context.Context, fleetID string, rules []model.AccessRule) error
}

// AddressLookup resolves the caller's public IPv4 address.
type AddressLookup interface {
	PublicAddress(ctx context.Context) (string, error)
}

// Recorder receives access lifecycle events, typically for metrics.
type Recorder interface {
	RuleAuthorized(purpose model.Purpose, status model.AuthorizeStatus)
	CallFailed(op string)
	GrantRevoked(rules int)
}

type nopRecorder struct{}

func (nopRecorder) RuleAuthorized(model.Purpose, model.AuthorizeStatus) {}
func (nopRecorder) CallFailed(string)                                  {}
func (nopRecorder) GrantRevoked(int)                                   {}

// Option configures a Controller.
type Option func(*Controller)

// WithRecorder sets the lifecycle event recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Controller) { c.recorder = r }
}

// WithClock overrides the time source used to stamp grants.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithIDGenerator overrides how grant IDs are generated.
func WithIDGenerator(newID func() string) Option {
	return func(c *Controller) { c.newID = newID }
}

// Controller decides which ports to open for an access request, applies the
// rules through the fleet service and records every applied rule in its ledger.
// The ledger is owned by the controller; other components only read it.
type Controller struct {
	perms    FleetPermissions
	lookup   AddressLookup
	cfg      *config.Config
	ledger   *Ledger
	recorder Recorder
	logger   zerolog.Logger
	now      func() time.Time
	newID    func() string
}

// NewController creates a Controller with an empty ledger. lookup may be nil,
// in which case the unrestricted range is used whenever no custom range is set.
func NewController(perms FleetPermissions, lookup AddressLookup, cfg *config.Config, logger zerolog.Logger, opts ...Option) *Controller {
	c := &Controller{
		perms:    perms,
		lookup:   lookup,
		cfg:      cfg,
		ledger:   NewLedger(),
		recorder: nopRecorder{},
		logger:   logger.With().Str("component", "access-controller").Logger(),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Pending reports whether any grants are recorded.
func (c *Controller) Pending() bool {
	return !c.ledger.IsEmpty()
}

// Grants returns a snapshot of the recorded grants.
func (c *Controller) Grants() []model.FleetAccessGrant {
	return c.ledger.Snapshot()
}

// GrantCount returns the number of recorded grants.
func (c *Controller) GrantCount() int {
	return c.ledger.Len()
}

// Ports returns the ports opened for a purpose under the current settings.
// The debug port rides along with shell and desktop access when enabled.
func (c *Controller) Ports(purpose model.Purpose) ([]int, error) {
	var ports []int
	switch purpose {
	case model.PurposeRemoteShell:
		ports = append(ports, model.PortSSH)
	case model.PurposeRemoteDesktop:
		ports = append(ports, model.PortRDP)
	case model.PurposeDebug:
	default:
		return nil, fmt.Errorf("%w: unknown access purpose %q", model.ErrInvalidConfiguration, purpose)
	}

	if c.cfg.EnableDebugPort && !slices.Contains(ports, c.cfg.DebugPort) {
		ports = append(ports, c.cfg.DebugPort)
	}
	return ports, nil
}

// SourceRange returns the CIDR inbound rules are restricted to: the custom
// range when configured, otherwise the caller's public address as a /32.
// When the lookup fails or returns something that is not a dotted quad, it
// falls back to 0.0.0.0/0.
func (c *Controller) SourceRange(ctx context.Context) string {
	if c.cfg.UseCustomCIDR {
		return c.cfg.CustomCIDR
	}
	if c.lookup == nil {
		c.logger.Warn().Msg("no public address lookup configured, opening to 0.0.0.0/0")
		return model.UnrestrictedRange
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	ip, err := c.lookup.PublicAddress(callCtx)
	if err == nil && !addr.ValidDottedQuad(ip) {
		err = fmt.Errorf("%w: unexpected address %q", model.ErrAddressLookupFailed, ip)
	}
	if err != nil {
		c.recorder.CallFailed("address_lookup")
		c.logger.Warn().Err(err).Msg("public address lookup failed, opening to 0.0.0.0/0")
		return model.UnrestrictedRange
	}
	return ip + "/32"
}

// OpenAccess applies the inbound rules needed for purpose on a fleet and
// returns the rules that are in place afterwards (zero, one or two).
//
// Rules the service reports as already present count as applied. The first
// other failure stops the remaining rules; rules applied before it are still
// recorded and returned together with the error.
func (c *Controller) OpenAccess(ctx context.Context, fleetID string, purpose model.Purpose) ([]model.AccessRule, error) {
	ports, err := c.Ports(purpose)
	if err != nil {
		return nil, err
	}
	if len(ports) == 0 {
		c.logger.Info().Str("fleet", fleetID).Str("purpose", string(purpose)).Msg("debug port disabled, nothing to open")
		return nil, nil
	}

	source := c.SourceRange(ctx)

	grant := model.FleetAccessGrant{
		ID:       c.newID(),
		FleetID:  fleetID,
		Purpose:  purpose,
		OpenedAt: c.now(),
	}

	var openErr error
	for _, port := range ports {
		rule := model.AccessRule{
			FleetID:     fleetID,
			FromPort:    port,
			ToPort:      port,
			SourceRange: source,
			Transport:   model.TransportTCP,
		}
		if err := c.authorize(ctx, purpose, rule); err != nil {
			openErr = fmt.Errorf("open port %d on fleet %s: %w", port, fleetID, err)
			break
		}
		grant.Rules = append(grant.Rules, rule)
	}

	if len(grant.Rules) > 0 {
		c.ledger.Record(grant)
	}
	return slices.Clone(grant.Rules), openErr
}

func (c *Controller) authorize(ctx context.Context, purpose model.Purpose, rule model.AccessRule) error {
	if err := rule.Validate(); err != nil {
		return err
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	status, err := c.perms.AuthorizeInbound(callCtx, rule.FleetID, []model.AccessRule{rule})
	if status == model.AuthorizeFailed && errors.Is(err, model.ErrRuleAlreadyExists) {
		status = model.AuthorizeAlreadyExists
	}
	c.recorder.RuleAuthorized(purpose, status)

	log := c.logger.With().Str("fleet", rule.FleetID).Str("rule", rule.String()).Logger()
	switch status {
	case model.AuthorizeApplied:
		log.Info().Msg("inbound rule applied")
		return nil
	case model.AuthorizeAlreadyExists:
		log.Debug().Msg("inbound rule already present")
		return nil
	}

	c.recorder.CallFailed("authorize")
	if err == nil {
		err = model.ErrServiceCallFailed
	} else if !errors.Is(err, model.ErrServiceCallFailed) {
		err = fmt.Errorf("%w: %w", model.ErrServiceCallFailed, err)
	}
	log.Error().Err(err).Msg("inbound rule not applied")
	return err
}

// CloseAll drains the ledger and revokes every drained grant. The ledger is
// empty afterwards regardless of the outcome; grants whose revoke failed are
// reported and not re-recorded.
func (c *Controller) CloseAll(ctx context.Context) model.CloseReport {
	return c.Revoke(ctx, c.ledger.Drain())
}

// Revoke removes the rules of each grant from the fleet service. It does not
// touch the ledger. A failure on one grant does not stop the others.
func (c *Controller) Revoke(ctx context.Context, grants []model.FleetAccessGrant) model.CloseReport {
	var report model.CloseReport
	for _, g := range grants {
		if err := c.revokeGrant(ctx, g); err != nil {
			report.Failed = append(report.Failed, model.RevokeFailure{Grant: g, Err: err})
			continue
		}
		report.Revoked = append(report.Revoked, g)
	}
	return report
}

func (c *Controller) revokeGrant(ctx context.Context, g model.FleetAccessGrant) error {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	log := c.logger.With().Str("fleet", g.FleetID).Str("grant", g.ID).Int("rules", len(g.Rules)).Logger()
	if err := c.perms.RevokeInbound(callCtx, g.FleetID, g.Rules); err != nil {
		c.recorder.CallFailed("revoke")
		log.Error().Err(err).Msg("revoke failed, remove the rules from the console")
		if !errors.Is(err, model.ErrServiceCallFailed) {
			err = fmt.Errorf("%w: %w", model.ErrServiceCallFailed, err)
		}
		return err
	}

	c.recorder.GrantRevoked(len(g.Rules))
	log.Info().Msg("inbound rules revoked")
	return nil
}

// callContext bounds a single external call by the configured timeout.
func (c *Controller) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.CallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.cfg.CallTimeout)
}
