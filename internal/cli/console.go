package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/chzyer/readline"

	"github.com/edvin/fleetctl/internal/config"
	"github.com/edvin/fleetctl/internal/reconcile"
)

// Usage is the command summary printed by help.
const Usage = `fleetctl - game-server fleet operator tool

Usage:
  fleetctl [--region R] [--profile P] [--config FILE] <command> [args]

Commands:
  fleets                              List fleets
  aliases                             List aliases and where they route
  builds                              List builds
  overview                            Fleets, aliases and builds together
  instances <fleet-id>                List instances of a fleet
  capacity <fleet-id>                 Show instance counts
  scale <fleet-id> [--min N] [--desired N] [--max N]
  connect <fleet-id> <instance-id>    Open access and start a shell or remote desktop
          [--write-key] [--key-dir D] [--no-launch] [--on-exit ask|revoke|leave]
  open <fleet-id> --purpose shell|desktop|debug [--hold] [--on-exit ...]
  delete-fleet|delete-build|delete-alias <id>
  view fleet|build|alias|create-fleet <id>   Print the web console link
  settings [show | set key=value ...]
  grants                              List grants left open by earlier sessions
  revoke-stale [grant-id ...]         Revoke journaled grants
  console [--on-exit ask|revoke|leave]  Interactive console

Rules opened by connect, open --hold and console are resolved when the
command exits: you are asked whether to revoke them or leave them open.`

// lineSource is the console input. *readline.Instance satisfies it.
type lineSource interface {
	Readline() (string, error)
	Close() error
}

func consoleCompleter() *readline.PrefixCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("fleets"),
		readline.PcItem("aliases"),
		readline.PcItem("builds"),
		readline.PcItem("overview"),
		readline.PcItem("instances"),
		readline.PcItem("capacity"),
		readline.PcItem("scale"),
		readline.PcItem("connect"),
		readline.PcItem("open",
			readline.PcItem("--purpose",
				readline.PcItem("shell"),
				readline.PcItem("desktop"),
				readline.PcItem("debug"),
			),
		),
		readline.PcItem("delete-fleet"),
		readline.PcItem("delete-build"),
		readline.PcItem("delete-alias"),
		readline.PcItem("view",
			readline.PcItem("fleet"),
			readline.PcItem("build"),
			readline.PcItem("alias"),
			readline.PcItem("create-fleet"),
		),
		readline.PcItem("settings",
			readline.PcItem("show"),
			readline.PcItem("set"),
		),
		readline.PcItem("grants"),
		readline.PcItem("revoke-stale"),
		readline.PcItem("help"),
		readline.PcItem("exit"),
	)
}

// RunConsole starts the interactive console. Rules opened from the console
// stay open until it exits.
func (a *App) RunConsole(ctx context.Context, args []string) error {
	fs := a.flagSet("console")
	onExit := fs.String("on-exit", "ask", "What to do with open rules on exit: ask, revoke or leave")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, err := reconcile.ParseOnExit(*onExit, nil); err != nil {
		return err
	}

	var history string
	if dir, err := config.Dir(); err == nil {
		history = filepath.Join(dir, "history")
	}
	open := func() (lineSource, error) {
		return readline.NewEx(&readline.Config{
			Prompt:          "fleetctl> ",
			HistoryFile:     history,
			AutoComplete:    consoleCompleter(),
			InterruptPrompt: "^C",
			EOFPrompt:       "exit",
			Stdout:          a.out,
		})
	}
	return a.console(ctx, open, *onExit)
}

func (a *App) console(ctx context.Context, open func() (lineSource, error), onExit string) error {
	ctrl, err := a.accessController(ctx)
	if err != nil {
		return err
	}
	stopMetrics := a.startMetrics(ctrl)
	defer stopMetrics()

	a.inConsole = true
	defer func() { a.inConsole = false }()

	var mu sync.Mutex
	src, err := open()
	if err != nil {
		return fmt.Errorf("open console: %w", err)
	}
	current := func() lineSource {
		mu.Lock()
		defer mu.Unlock()
		return src
	}

	// Unblock Readline when the process is asked to stop.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			current().Close()
		case <-done:
		}
	}()

	a.printf("Connected to %s. Type help for commands, exit to leave.\n", a.cfg.Region)
	for ctx.Err() == nil {
		line, err := current().Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				a.printf("Type exit to leave.\n")
			}
			continue
		}
		if err != nil {
			break
		}

		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		if args[0] == "exit" || args[0] == "quit" {
			break
		}

		var runErr error
		if args[0] == "connect" {
			// The client owns the terminal while it runs.
			current().Close()
			runErr = a.Run(ctx, args)
			next, err := open()
			if err != nil {
				return errors.Join(runErr, fmt.Errorf("reopen console: %w", err), a.shutdown(ctx, onExit))
			}
			mu.Lock()
			src = next
			mu.Unlock()
		} else {
			runErr = a.Run(ctx, args)
		}
		if runErr != nil {
			a.printf("Error: %v\n", runErr)
		}
	}

	current().Close()
	return a.shutdown(ctx, onExit)
}
