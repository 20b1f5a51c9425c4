package fleet

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/edvin/fleetctl/internal/model"
)

// Overview is a consistent view of fleets, aliases and builds loaded together.
type Overview struct {
	Fleets  []model.Fleet
	Aliases []model.Alias
	Builds  []model.Build
}

// Refresh loads fleets, aliases and builds concurrently and marks which
// SIMPLE aliases route to a fleet that is present.
func Refresh(ctx context.Context, svc Service) (*Overview, error) {
	var ov Overview
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fleets, err := svc.ListFleets(gctx)
		ov.Fleets = fleets
		return err
	})
	g.Go(func() error {
		aliases, err := svc.ListAliases(gctx)
		ov.Aliases = aliases
		return err
	})
	g.Go(func() error {
		builds, err := svc.ListBuilds(gctx)
		ov.Builds = builds
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ov.Aliases = ResolveAliases(ov.Aliases, ov.Fleets)
	return &ov, nil
}

// ResolveAliases sets TargetFound on each SIMPLE alias whose fleet is listed.
func ResolveAliases(aliases []model.Alias, fleets []model.Fleet) []model.Alias {
	known := make(map[string]struct{}, len(fleets))
	for _, f := range fleets {
		known[f.ID] = struct{}{}
	}
	for i := range aliases {
		if aliases[i].RoutingType != model.RoutingSimple {
			continue
		}
		_, aliases[i].TargetFound = known[aliases[i].FleetID]
	}
	return aliases
}

// FindFleet returns the fleet with id from the overview.
func (o *Overview) FindFleet(id string) (model.Fleet, bool) {
	for _, f := range o.Fleets {
		if f.ID == id {
			return f, true
		}
	}
	return model.Fleet{}, false
}
