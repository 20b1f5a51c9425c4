// Package session connects an operator to one fleet instance: it fetches
// the instance credentials, opens the inbound ports the connection needs and
// launches a shell or remote desktop client.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/edvin/fleetctl/internal/model"
)

// ErrNoAccess is returned when no inbound rule could be applied.
var ErrNoAccess = errors.New("no inbound access could be opened")

// AccessSource fetches login credentials for an instance.
type AccessSource interface {
	GetInstanceAccess(ctx context.Context, fleetID, instanceID string) (model.InstanceAccess, error)
}

// Opener opens inbound access on a fleet.
type Opener interface {
	OpenAccess(ctx context.Context, fleetID string, purpose model.Purpose) ([]model.AccessRule, error)
}

// Launcher starts a client connected to an instance and blocks until it exits.
type Launcher interface {
	Launch(ctx context.Context, access model.InstanceAccess) error
}

// Options control a single connection.
type Options struct {
	// KeyDir, when set, receives <instance-id>.pem for later manual use.
	KeyDir string
	// NoLaunch opens access and writes the key without starting a client.
	NoLaunch bool
}

// Result describes a prepared connection.
type Result struct {
	Access  model.InstanceAccess
	Purpose model.Purpose
	Rules   []model.AccessRule
	KeyPath string
	// OpenErr holds a failure that stopped some, but not all, rules.
	OpenErr error
}

// Establisher ties credentials, port access and client launch together.
type Establisher struct {
	source  AccessSource
	opener  Opener
	shell   Launcher
	desktop Launcher
	out     io.Writer
	logger  zerolog.Logger
}

// NewEstablisher creates an Establisher. out receives operator notices.
func NewEstablisher(source AccessSource, opener Opener, shell, desktop Launcher, out io.Writer, logger zerolog.Logger) *Establisher {
	if out == nil {
		out = io.Discard
	}
	return &Establisher{
		source:  source,
		opener:  opener,
		shell:   shell,
		desktop: desktop,
		out:     out,
		logger:  logger.With().Str("component", "session").Logger(),
	}
}

// PurposeFor picks the access purpose from an instance operating system.
func PurposeFor(operatingSystem string) model.Purpose {
	if model.IsWindows(operatingSystem) {
		return model.PurposeRemoteDesktop
	}
	return model.PurposeRemoteShell
}

// Prepare fetches credentials and opens the ports for one instance. It fails
// when no rule could be applied; a partial failure is returned in OpenErr.
func (e *Establisher) Prepare(ctx context.Context, fleetID, instanceID string, opts Options) (*Result, error) {
	access, err := e.source.GetInstanceAccess(ctx, fleetID, instanceID)
	if err != nil {
		return nil, err
	}
	if access.IPAddress == "" {
		return nil, fmt.Errorf("instance %s has no public address", instanceID)
	}

	res := &Result{Access: access, Purpose: PurposeFor(access.OperatingSystem)}
	res.Rules, res.OpenErr = e.opener.OpenAccess(ctx, fleetID, res.Purpose)
	if len(res.Rules) == 0 {
		if res.OpenErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoAccess, res.OpenErr)
		}
		return nil, ErrNoAccess
	}
	if res.OpenErr != nil {
		fmt.Fprintf(e.out, "Warning: %v\n", res.OpenErr)
	}
	for _, r := range res.Rules {
		if r.SourceRange == model.UnrestrictedRange {
			fmt.Fprintf(e.out, "Warning: port %d on fleet %s is open to %s\n", r.FromPort, fleetID, model.UnrestrictedRange)
		}
	}

	if opts.KeyDir != "" && res.Purpose == model.PurposeRemoteShell {
		path, err := WriteKey(opts.KeyDir, access)
		if err != nil {
			return res, err
		}
		res.KeyPath = path
		fmt.Fprintf(e.out, "Key written to %s\n", path)
	}
	return res, nil
}

// Connect prepares access and launches the client for the instance.
func (e *Establisher) Connect(ctx context.Context, fleetID, instanceID string, opts Options) (*Result, error) {
	res, err := e.Prepare(ctx, fleetID, instanceID, opts)
	if err != nil {
		return res, err
	}
	if opts.NoLaunch {
		return res, nil
	}

	launcher := e.shell
	if res.Purpose == model.PurposeRemoteDesktop {
		launcher = e.desktop
	}
	if launcher == nil {
		return res, fmt.Errorf("no client configured for %s", res.Purpose)
	}

	e.logger.Info().Str("fleet", fleetID).Str("instance", instanceID).Str("purpose", string(res.Purpose)).Msg("launching client")
	if err := launcher.Launch(ctx, res.Access); err != nil {
		return res, fmt.Errorf("connect to %s: %w", instanceID, err)
	}
	return res, nil
}

// WriteKey saves the instance private key as <dir>/<instance-id>.pem readable
// only by the current user.
func WriteKey(dir string, access model.InstanceAccess) (string, error) {
	if access.Secret == "" {
		return "", fmt.Errorf("instance %s has no key", access.InstanceID)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("creating key directory: %w", err)
	}
	path := filepath.Join(dir, access.InstanceID+".pem")
	if err := os.WriteFile(path, []byte(access.Secret), 0o600); err != nil {
		return "", fmt.Errorf("writing key: %w", err)
	}
	return path, nil
}
