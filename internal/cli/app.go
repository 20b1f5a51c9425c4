// Package cli implements the fleetctl commands and the interactive console.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/chzyer/readline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/edvin/fleetctl/internal/access"
	"github.com/edvin/fleetctl/internal/addr"
	"github.com/edvin/fleetctl/internal/config"
	"github.com/edvin/fleetctl/internal/fleet"
	"github.com/edvin/fleetctl/internal/journal"
	"github.com/edvin/fleetctl/internal/metrics"
	"github.com/edvin/fleetctl/internal/reconcile"
	"github.com/edvin/fleetctl/internal/session"
)

// App holds the state shared by all commands of one fleetctl process.
// Services are created on first use so offline commands never touch AWS.
type App struct {
	cfg          *config.Config
	settingsPath string
	logger       zerolog.Logger
	in           io.Reader
	out          io.Writer

	newService  func(ctx context.Context) (fleet.Service, error)
	svc         fleet.Service
	lookup      access.AddressLookup
	registry    *prometheus.Registry
	controller  *access.Controller
	journal     *journal.Journal
	interactive bool
	prompter    reconcile.Prompter
	inConsole   bool
	shell       session.Launcher
	desktop     session.Launcher
}

// Option configures an App.
type Option func(*App)

// WithFleetService uses svc instead of building a GameLift client.
func WithFleetService(svc fleet.Service) Option {
	return func(a *App) { a.svc = svc }
}

// WithAddressLookup overrides the public address lookup.
func WithAddressLookup(l access.AddressLookup) Option {
	return func(a *App) { a.lookup = l }
}

// WithIO sets the operator input and output streams.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(a *App) { a.in, a.out = in, out }
}

// WithPrompter answers the exit question with p instead of the terminal.
func WithPrompter(p reconcile.Prompter) Option {
	return func(a *App) { a.prompter = p }
}

// WithLaunchers overrides the shell and desktop clients.
func WithLaunchers(shell, desktop session.Launcher) Option {
	return func(a *App) { a.shell, a.desktop = shell, desktop }
}

// New creates an App for cfg. settingsPath is where `settings set` saves.
func New(cfg *config.Config, settingsPath string, logger zerolog.Logger, opts ...Option) *App {
	a := &App{
		cfg:          cfg,
		settingsPath: settingsPath,
		logger:       logger,
		in:           os.Stdin,
		out:          os.Stdout,
		registry:     prometheus.NewRegistry(),
		lookup:       addr.NewClient(cfg.AddressLookupURL, cfg.CallTimeout),
	}
	a.newService = func(ctx context.Context) (fleet.Service, error) {
		return fleet.NewGameLift(ctx, a.cfg, a.logger)
	}
	for _, opt := range opts {
		opt(a)
	}
	if f, ok := a.in.(*os.File); ok {
		a.interactive = term.IsTerminal(int(f.Fd()))
	}
	return a
}

func (a *App) service(ctx context.Context) (fleet.Service, error) {
	if a.svc != nil {
		return a.svc, nil
	}
	svc, err := a.newService(ctx)
	if err != nil {
		return nil, err
	}
	a.svc = svc
	return svc, nil
}

// accessController returns the process-wide controller, creating it and
// registering its metrics on first use.
func (a *App) accessController(ctx context.Context) (*access.Controller, error) {
	if a.controller != nil {
		return a.controller, nil
	}
	svc, err := a.service(ctx)
	if err != nil {
		return nil, err
	}
	a.controller = access.NewController(svc, a.lookup, a.cfg, a.logger,
		access.WithRecorder(metrics.NewAccessMetrics(a.registry)))
	metrics.RegisterLedgerGauge(a.registry, a.controller.GrantCount)
	return a.controller, nil
}

func (a *App) openJournal() (*journal.Journal, error) {
	if a.journal != nil {
		return a.journal, nil
	}
	path, err := a.cfg.ResolveJournalPath()
	if err != nil {
		return nil, err
	}
	j, err := journal.Open(path)
	if err != nil {
		return nil, err
	}
	a.journal = j
	return j, nil
}

func (a *App) establisher(ctx context.Context) (*session.Establisher, error) {
	svc, err := a.service(ctx)
	if err != nil {
		return nil, err
	}
	ctrl, err := a.accessController(ctx)
	if err != nil {
		return nil, err
	}

	shell, desktop := a.shell, a.desktop
	if shell == nil {
		if a.cfg.SSHClient != "" {
			dir, err := config.Dir()
			if err != nil {
				return nil, err
			}
			shell = &session.ExternalSSH{Command: a.cfg.SSHClient, KeyDir: dir, Stdin: a.in, Stdout: a.out, Stderr: os.Stderr}
		} else {
			shell = &session.NativeSSH{Stdin: a.in, Stdout: a.out, Stderr: os.Stderr, DialTimeout: a.cfg.CallTimeout}
		}
	}
	if desktop == nil {
		desktop = &session.RDP{Command: a.cfg.RDPClient}
	}
	return session.NewEstablisher(svc, ctrl, shell, desktop, a.out, a.logger), nil
}

// askPrompter returns the configured prompter, a terminal prompter, or nil
// when input is not a terminal.
func (a *App) askPrompter() (reconcile.Prompter, func()) {
	if a.prompter != nil {
		return a.prompter, func() {}
	}
	if !a.interactive {
		return nil, func() {}
	}
	rl, err := readline.NewEx(&readline.Config{Prompt: "> ", Stdout: a.out})
	if err != nil {
		a.logger.Warn().Err(err).Msg("cannot open terminal for prompt")
		return nil, func() {}
	}
	return &reconcile.LinePrompter{In: rl, Out: a.out}, func() { rl.Close() }
}

// shutdown resolves any grants still open, asking the operator according to onExit.
func (a *App) shutdown(ctx context.Context, onExit string) error {
	if a.controller == nil || !a.controller.Pending() {
		return nil
	}

	ask, closePrompt := a.askPrompter()
	defer closePrompt()
	prompter, err := reconcile.ParseOnExit(onExit, ask)
	if err != nil {
		return err
	}

	var j reconcile.Journal
	if jr, err := a.openJournal(); err != nil {
		a.logger.Warn().Err(err).Msg("journal unavailable, open grants will not be recorded")
	} else {
		j = jr
	}

	out := reconcile.New(a.controller, prompter, j, a.out, a.logger).Shutdown(ctx)
	return out.Report.Err()
}

// startMetrics serves metrics and the grant snapshot until the returned
// function is called.
func (a *App) startMetrics(grants metrics.GrantLister) func() {
	if a.cfg.MetricsAddr == "" {
		return func() {}
	}
	srv := metrics.NewServer(a.cfg.MetricsAddr, a.registry, grants)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error().Err(err).Str("addr", a.cfg.MetricsAddr).Msg("metrics server failed")
		}
	}()
	a.logger.Info().Str("addr", a.cfg.MetricsAddr).Msg("serving metrics")
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

// Close releases the journal.
func (a *App) Close() error {
	if a.journal != nil {
		return a.journal.Close()
	}
	return nil
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
