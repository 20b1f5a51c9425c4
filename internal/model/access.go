package model

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"
)

// UnrestrictedRange is the source range used when no narrower range can be determined.
const UnrestrictedRange = "0.0.0.0/0"

// Well-known remote administration ports.
const (
	PortSSH = 22
	PortRDP = 3389
)

// Transport is the IP protocol of an inbound permission rule.
type Transport string

const (
	TransportTCP Transport = "TCP"
	TransportUDP Transport = "UDP"
)

// Purpose identifies why access to a fleet is being opened.
type Purpose string

const (
	PurposeRemoteShell   Purpose = "REMOTE_SHELL"
	PurposeRemoteDesktop Purpose = "REMOTE_DESKTOP"
	PurposeDebug         Purpose = "DEBUG"
)

// ParsePurpose accepts both the short CLI names (shell, desktop, debug) and
// the canonical upper-case names.
func ParsePurpose(s string) (Purpose, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "shell", "ssh", "remote_shell":
		return PurposeRemoteShell, nil
	case "desktop", "rdp", "remote_desktop":
		return PurposeRemoteDesktop, nil
	case "debug":
		return PurposeDebug, nil
	}
	return "", fmt.Errorf("%w: unknown access purpose %q (want shell, desktop or debug)", ErrInvalidConfiguration, s)
}

// AccessRule is one inbound permission applied to a fleet.
// Rules are values: once built they are never mutated.
type AccessRule struct {
	FleetID     string    `json:"fleet_id" db:"fleet_id"`
	FromPort    int       `json:"from_port" db:"from_port"`
	ToPort      int       `json:"to_port" db:"to_port"`
	SourceRange string    `json:"source_range" db:"source_range"`
	Transport   Transport `json:"transport" db:"transport"`
}

// Validate checks port bounds, the source CIDR and the transport.
func (r AccessRule) Validate() error {
	if r.FromPort < 1 || r.ToPort > 65535 || r.FromPort > r.ToPort {
		return fmt.Errorf("%w: port range %d-%d", ErrInvalidConfiguration, r.FromPort, r.ToPort)
	}
	prefix, err := netip.ParsePrefix(r.SourceRange)
	if err != nil || !prefix.Addr().Is4() {
		return fmt.Errorf("%w: source range %q is not an IPv4 CIDR", ErrInvalidConfiguration, r.SourceRange)
	}
	if r.Transport != TransportTCP && r.Transport != TransportUDP {
		return fmt.Errorf("%w: transport %q", ErrInvalidConfiguration, r.Transport)
	}
	return nil
}

func (r AccessRule) String() string {
	if r.FromPort == r.ToPort {
		return fmt.Sprintf("%d/%s from %s", r.FromPort, r.Transport, r.SourceRange)
	}
	return fmt.Sprintf("%d-%d/%s from %s", r.FromPort, r.ToPort, r.Transport, r.SourceRange)
}

// FleetAccessGrant is the result of one open operation: the rules that were
// confirmed applied to a fleet, in the order they were applied.
type FleetAccessGrant struct {
	ID       string       `json:"id"`
	FleetID  string       `json:"fleet_id"`
	Purpose  Purpose      `json:"purpose"`
	Rules    []AccessRule `json:"rules"`
	OpenedAt time.Time    `json:"opened_at"`
}

// AuthorizeStatus is the outcome of asking the fleet service to add an inbound rule.
type AuthorizeStatus int

const (
	AuthorizeFailed AuthorizeStatus = iota
	AuthorizeApplied
	AuthorizeAlreadyExists
)

func (s AuthorizeStatus) String() string {
	switch s {
	case AuthorizeApplied:
		return "applied"
	case AuthorizeAlreadyExists:
		return "already_exists"
	default:
		return "failed"
	}
}

// Succeeded reports whether the rule is in place on the service after the call.
func (s AuthorizeStatus) Succeeded() bool {
	return s == AuthorizeApplied || s == AuthorizeAlreadyExists
}

// RevokeFailure pairs a grant with the error returned while revoking it.
type RevokeFailure struct {
	Grant FleetAccessGrant
	Err   error
}

// CloseReport summarizes a revoke pass over a set of grants.
type CloseReport struct {
	Revoked []FleetAccessGrant
	Failed  []RevokeFailure
}

// Err joins every revoke failure, or returns nil when all grants were revoked.
func (r CloseReport) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failed))
	for _, f := range r.Failed {
		errs = append(errs, fmt.Errorf("fleet %s grant %s: %w", f.Grant.FleetID, f.Grant.ID, f.Err))
	}
	return errors.Join(errs...)
}
