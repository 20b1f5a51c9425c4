package access

import (
	"slices"
	"sync"

	"github.com/edvin/fleetctl/internal/model"
)

// Ledger is the in-memory record of every grant opened by this process,
// in the order the grants were opened. Record and Drain are mutually exclusive.
type Ledger struct {
	mu     sync.Mutex
	grants []model.FleetAccessGrant
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Record appends a grant. Repeated grants for the same fleet and port are kept
// as separate entries.
func (l *Ledger) Record(g model.FleetAccessGrant) {
	g.Rules = slices.Clone(g.Rules)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.grants = append(l.grants, g)
}

// IsEmpty reports whether no grants are recorded.
func (l *Ledger) IsEmpty() bool {
	return l.Len() == 0
}

// Len returns the number of recorded grants.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.grants)
}

// Drain returns every recorded grant in insertion order and empties the ledger.
func (l *Ledger) Drain() []model.FleetAccessGrant {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := l.grants
	l.grants = nil
	return out
}

// Snapshot returns a copy of the recorded grants without modifying the ledger.
func (l *Ledger) Snapshot() []model.FleetAccessGrant {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]model.FleetAccessGrant, len(l.grants))
	for i, g := range l.grants {
		g.Rules = slices.Clone(g.Rules)
		out[i] = g
	}
	return out
}
