package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/edvin/fleetctl/internal/model"
)

// maxAttempts bounds how often an unrecognised answer is re-asked.
const maxAttempts = 3

// LineReader reads one line of operator input. *readline.Instance satisfies it.
type LineReader interface {
	Readline() (string, error)
}

// LinePrompter asks on a terminal. An empty answer means revoke.
type LinePrompter struct {
	In  LineReader
	Out io.Writer
}

func (p *LinePrompter) Choose(ctx context.Context, grants []model.FleetAccessGrant) (Choice, error) {
	rules := 0
	for _, g := range grants {
		rules += len(g.Rules)
	}
	fmt.Fprintf(p.Out, "%d inbound rule(s) are still open:\n", rules)
	for _, g := range grants {
		for _, r := range g.Rules {
			fmt.Fprintf(p.Out, "  %s\n", r)
		}
	}

	for range maxAttempts {
		if err := ctx.Err(); err != nil {
			return ChoiceRevoke, err
		}
		fmt.Fprint(p.Out, "Revoke them now? [Y/n] ")
		line, err := p.In.Readline()
		if err != nil {
			return ChoiceRevoke, fmt.Errorf("reading answer: %w", err)
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "", "y", "yes":
			return ChoiceRevoke, nil
		case "n", "no":
			return ChoiceLeaveOpen, nil
		}
		fmt.Fprintln(p.Out, "Please answer y or n.")
	}
	return ChoiceRevoke, errors.New("no valid answer")
}

// FixedPrompter answers without asking, for non-interactive runs.
type FixedPrompter struct {
	Choice Choice
}

func (p FixedPrompter) Choose(context.Context, []model.FleetAccessGrant) (Choice, error) {
	return p.Choice, nil
}

// ParseOnExit maps the --on-exit flag value to a prompter. "ask" returns
// ask unchanged.
func ParseOnExit(value string, ask Prompter) (Prompter, error) {
	switch strings.ToLower(value) {
	case "", "ask":
		return ask, nil
	case "revoke":
		return FixedPrompter{Choice: ChoiceRevoke}, nil
	case "leave":
		return FixedPrompter{Choice: ChoiceLeaveOpen}, nil
	default:
		return nil, fmt.Errorf("%w: --on-exit must be ask, revoke or leave", model.ErrInvalidConfiguration)
	}
}
