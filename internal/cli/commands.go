package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/edvin/fleetctl/internal/config"
	"github.com/edvin/fleetctl/internal/fleet"
	"github.com/edvin/fleetctl/internal/journal"
	"github.com/edvin/fleetctl/internal/model"
	"github.com/edvin/fleetctl/internal/reconcile"
	"github.com/edvin/fleetctl/internal/session"
)

// ErrUsage marks a malformed command line.
var ErrUsage = errors.New("usage")

const scaleHint = "You probably went over your service limits. Reduce your maximum instance count."

// Run executes one command.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: no command given", ErrUsage)
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "fleets":
		return a.cmdFleets(ctx)
	case "aliases":
		return a.cmdAliases(ctx)
	case "builds":
		return a.cmdBuilds(ctx)
	case "overview":
		return a.cmdOverview(ctx)
	case "instances":
		return a.cmdInstances(ctx, rest)
	case "capacity":
		return a.cmdCapacity(ctx, rest)
	case "scale":
		return a.cmdScale(ctx, rest)
	case "connect":
		return a.cmdConnect(ctx, rest)
	case "open":
		return a.cmdOpen(ctx, rest)
	case "delete-fleet", "delete-build", "delete-alias":
		return a.cmdDelete(ctx, strings.TrimPrefix(cmd, "delete-"), rest)
	case "view":
		return a.cmdView(rest)
	case "settings":
		return a.cmdSettings(rest)
	case "grants":
		return a.cmdGrants(ctx)
	case "revoke-stale":
		return a.cmdRevokeStale(ctx, rest)
	case "console":
		if a.inConsole {
			return fmt.Errorf("already in the console")
		}
		return a.RunConsole(ctx, rest)
	case "help":
		a.printf("%s\n", Usage)
		return nil
	default:
		return fmt.Errorf("%w: unknown command %q", ErrUsage, cmd)
	}
}

func (a *App) flagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(a.out)
	return fs
}

func needArgs(fs *pflag.FlagSet, n int, usage string) error {
	if fs.NArg() < n {
		return fmt.Errorf("%w: fleetctl %s", ErrUsage, usage)
	}
	return nil
}

func (a *App) cmdFleets(ctx context.Context) error {
	svc, err := a.service(ctx)
	if err != nil {
		return err
	}
	fleets, err := svc.ListFleets(ctx)
	if err != nil {
		return err
	}
	printFleets(a.out, fleets)
	return nil
}

func (a *App) cmdAliases(ctx context.Context) error {
	ov, err := a.overview(ctx)
	if err != nil {
		return err
	}
	printAliases(a.out, ov.Aliases)
	return nil
}

func (a *App) cmdBuilds(ctx context.Context) error {
	svc, err := a.service(ctx)
	if err != nil {
		return err
	}
	builds, err := svc.ListBuilds(ctx)
	if err != nil {
		return err
	}
	printBuilds(a.out, builds)
	return nil
}

func (a *App) cmdOverview(ctx context.Context) error {
	ov, err := a.overview(ctx)
	if err != nil {
		return err
	}
	a.printf("Region: %s\n\n", a.cfg.Region)
	printFleets(a.out, ov.Fleets)
	a.printf("\n")
	printAliases(a.out, ov.Aliases)
	a.printf("\n")
	printBuilds(a.out, ov.Builds)
	return nil
}

func (a *App) overview(ctx context.Context) (*fleet.Overview, error) {
	svc, err := a.service(ctx)
	if err != nil {
		return nil, err
	}
	return fleet.Refresh(ctx, svc)
}

func (a *App) cmdInstances(ctx context.Context, args []string) error {
	fs := a.flagSet("instances")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := needArgs(fs, 1, "instances <fleet-id>"); err != nil {
		return err
	}
	svc, err := a.service(ctx)
	if err != nil {
		return err
	}
	instances, err := svc.ListInstances(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	printInstances(a.out, instances)
	return nil
}

func (a *App) cmdCapacity(ctx context.Context, args []string) error {
	fs := a.flagSet("capacity")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := needArgs(fs, 1, "capacity <fleet-id>"); err != nil {
		return err
	}
	svc, err := a.service(ctx)
	if err != nil {
		return err
	}
	capacity, err := svc.DescribeCapacity(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	printCapacity(a.out, capacity)
	return nil
}

func (a *App) cmdScale(ctx context.Context, args []string) error {
	fs := a.flagSet("scale")
	minimum := fs.Int("min", 0, "Minimum instance count")
	desired := fs.Int("desired", 0, "Desired instance count")
	maximum := fs.Int("max", 0, "Maximum instance count")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := needArgs(fs, 1, "scale <fleet-id> [--min N] [--desired N] [--max N]"); err != nil {
		return err
	}
	fleetID := fs.Arg(0)

	var req fleet.CapacityRequest
	if fs.Changed("min") {
		req.Minimum = minimum
	}
	if fs.Changed("desired") {
		req.Desired = desired
	}
	if fs.Changed("max") {
		req.Maximum = maximum
	}

	svc, err := a.service(ctx)
	if err != nil {
		return err
	}
	if err := a.requireFleet(ctx, svc, fleetID, model.Fleet.Scalable, "scaled"); err != nil {
		return err
	}

	current, err := svc.DescribeCapacity(ctx, fleetID)
	if err != nil {
		return err
	}
	newMin, newDesired, newMax := fleet.ClampCapacity(current, req)
	if err := svc.UpdateCapacity(ctx, fleetID, newMin, newDesired, newMax); err != nil {
		return fmt.Errorf("%w\n%s", err, scaleHint)
	}
	a.printf("Fleet %s scaled: min %d, desired %d, max %d\n", fleetID, newMin, newDesired, newMax)
	return nil
}

// requireFleet checks that fleetID is listed and passes ok.
func (a *App) requireFleet(ctx context.Context, svc fleet.Service, fleetID string, ok func(model.Fleet) bool, verb string) error {
	fleets, err := svc.ListFleets(ctx)
	if err != nil {
		return err
	}
	for _, f := range fleets {
		if f.ID != fleetID {
			continue
		}
		if !ok(f) {
			return fmt.Errorf("fleet %s is %s and cannot be %s", fleetID, f.Status, verb)
		}
		return nil
	}
	return fmt.Errorf("fleet %s not found in %s", fleetID, a.cfg.Region)
}

func (a *App) cmdConnect(ctx context.Context, args []string) error {
	fs := a.flagSet("connect")
	writeKey := fs.Bool("write-key", false, "Also write <instance-id>.pem to --key-dir")
	keyDir := fs.String("key-dir", ".", "Directory for --write-key")
	noLaunch := fs.Bool("no-launch", false, "Open access without starting a client")
	onExit := fs.String("on-exit", "ask", "What to do with open rules on exit: ask, revoke or leave")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := needArgs(fs, 2, "connect <fleet-id> <instance-id> [--write-key] [--no-launch]"); err != nil {
		return err
	}
	if _, err := reconcile.ParseOnExit(*onExit, nil); err != nil {
		return err
	}

	est, err := a.establisher(ctx)
	if err != nil {
		return err
	}
	stopMetrics := a.startMetrics(a.controller)
	defer stopMetrics()

	opts := session.Options{NoLaunch: *noLaunch}
	if *writeKey {
		opts.KeyDir = *keyDir
	}
	res, connErr := est.Connect(ctx, fs.Arg(0), fs.Arg(1), opts)
	if res != nil {
		for _, r := range res.Rules {
			a.printf("Opened %s on fleet %s\n", r, r.FleetID)
		}
	}

	if a.inConsole {
		return connErr
	}
	if *noLaunch && *onExit != "leave" {
		a.printf("Press Ctrl+C when you are done.\n")
		<-ctx.Done()
	}
	return errors.Join(connErr, a.shutdown(ctx, *onExit))
}

func (a *App) cmdOpen(ctx context.Context, args []string) error {
	fs := a.flagSet("open")
	purposeFlag := fs.String("purpose", "shell", "shell, desktop or debug")
	hold := fs.Bool("hold", false, "Keep the rules open until Ctrl+C, then resolve them")
	onExit := fs.String("on-exit", "ask", "With --hold: ask, revoke or leave")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := needArgs(fs, 1, "open <fleet-id> --purpose shell|desktop|debug [--hold]"); err != nil {
		return err
	}
	purpose, err := model.ParsePurpose(*purposeFlag)
	if err != nil {
		return err
	}
	if _, err := reconcile.ParseOnExit(*onExit, nil); err != nil {
		return err
	}
	fleetID := fs.Arg(0)

	ctrl, err := a.accessController(ctx)
	if err != nil {
		return err
	}
	rules, openErr := ctrl.OpenAccess(ctx, fleetID, purpose)
	for _, r := range rules {
		a.printf("Opened %s on fleet %s\n", r, fleetID)
		if r.SourceRange == model.UnrestrictedRange {
			a.printf("Warning: port %d is open to %s\n", r.FromPort, model.UnrestrictedRange)
		}
	}
	if len(rules) == 0 && openErr == nil {
		a.printf("Nothing to open for %s with the current settings.\n", purpose)
	}

	if a.inConsole {
		return openErr
	}
	if !*hold {
		// The process exits now, so the grant can only live on in the journal.
		return errors.Join(openErr, a.shutdown(ctx, "leave"))
	}

	stopMetrics := a.startMetrics(ctrl)
	defer stopMetrics()
	a.printf("Holding access open. Press Ctrl+C to finish.\n")
	<-ctx.Done()
	return errors.Join(openErr, a.shutdown(ctx, *onExit))
}

func (a *App) cmdDelete(ctx context.Context, kind string, args []string) error {
	fs := a.flagSet("delete-" + kind)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := needArgs(fs, 1, "delete-"+kind+" <id>"); err != nil {
		return err
	}
	if !a.cfg.ShowDestructiveControls {
		return model.ErrDestructiveDisabled
	}
	id := fs.Arg(0)

	svc, err := a.service(ctx)
	if err != nil {
		return err
	}
	switch kind {
	case "fleet":
		if err := a.requireFleet(ctx, svc, id, model.Fleet.Deletable, "deleted"); err != nil {
			return err
		}
		err = svc.DeleteFleet(ctx, id)
	case "build":
		err = svc.DeleteBuild(ctx, id)
	case "alias":
		err = svc.DeleteAlias(ctx, id)
	}
	if err != nil {
		return err
	}
	a.printf("Deleted %s %s\n", kind, id)
	return nil
}

func (a *App) cmdView(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("%w: fleetctl view fleet|build|alias|create-fleet <id>", ErrUsage)
	}
	url, err := fleet.ConsoleURL(a.cfg.Region, args[0], args[1])
	if err != nil {
		return err
	}
	a.printf("%s\n", url)
	return nil
}

func (a *App) cmdSettings(args []string) error {
	if len(args) == 0 || args[0] == "show" {
		return printSettings(a.out, a.cfg)
	}
	if args[0] != "set" || len(args) < 2 {
		return fmt.Errorf("%w: fleetctl settings [show | set key=value ...]", ErrUsage)
	}

	updated := *a.cfg
	for _, pair := range args[1:] {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("%w: expected key=value, got %q", ErrUsage, pair)
		}
		if err := updated.Set(key, value); err != nil {
			return err
		}
	}
	if err := updated.Validate(); err != nil {
		return err
	}
	if err := config.Save(a.settingsPath, &updated); err != nil {
		return err
	}
	*a.cfg = updated
	a.printf("Settings saved to %s\n", a.settingsPath)
	return nil
}

func (a *App) cmdGrants(ctx context.Context) error {
	if a.controller != nil && a.controller.Pending() {
		a.printf("Open in this session:\n")
		printGrants(a.out, a.controller.Grants())
		a.printf("\n")
	}

	j, err := a.openJournal()
	if err != nil {
		return err
	}
	entries, err := j.List(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		a.printf("No journaled grants.\n")
		return nil
	}
	printJournal(a.out, entries)
	return nil
}

func (a *App) cmdRevokeStale(ctx context.Context, args []string) error {
	fs := a.flagSet("revoke-stale")
	if err := fs.Parse(args); err != nil {
		return err
	}

	j, err := a.openJournal()
	if err != nil {
		return err
	}
	entries, err := j.List(ctx)
	if err != nil {
		return err
	}
	entries = selectEntries(entries, fs.Args())
	if len(entries) == 0 {
		a.printf("No journaled grants to revoke.\n")
		return nil
	}

	ctrl, err := a.accessController(ctx)
	if err != nil {
		return err
	}
	grants := make([]model.FleetAccessGrant, 0, len(entries))
	for _, e := range entries {
		grants = append(grants, e.Grant)
	}
	report := ctrl.Revoke(ctx, grants)

	ids := make([]string, 0, len(report.Revoked))
	for _, g := range report.Revoked {
		ids = append(ids, g.ID)
		a.printf("Revoked grant %s on fleet %s\n", g.ID, g.FleetID)
	}
	if err := j.Remove(ctx, ids...); err != nil {
		return err
	}
	return report.Err()
}

// selectEntries keeps the entries whose grant ID is in ids, or all when ids is empty.
func selectEntries(entries []journal.Entry, ids []string) []journal.Entry {
	if len(ids) == 0 {
		return entries
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []journal.Entry
	for _, e := range entries {
		if want[e.Grant.ID] {
			out = append(out, e)
		}
	}
	return out
}
