package cli

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/edvin/fleetctl/internal/config"
	"github.com/edvin/fleetctl/internal/journal"
	"github.com/edvin/fleetctl/internal/model"
)

const timeLayout = "2006-01-02 15:04:05Z07:00"

func printFleets(w io.Writer, fleets []model.Fleet) {
	if len(fleets) == 0 {
		fmt.Fprintln(w, "No fleets found.")
		return
	}
	fmt.Fprintf(w, "%-44s %-24s %-12s %-16s %s\n", "FLEET", "NAME", "STATUS", "OS", "NOTE")
	for _, f := range fleets {
		note := ""
		if !f.Usable() {
			note = "unusable"
		}
		fmt.Fprintf(w, "%-44s %-24s %-12s %-16s %s\n", f.ID, f.Name, f.Status, f.OperatingSystem, note)
	}
}

func printAliases(w io.Writer, aliases []model.Alias) {
	if len(aliases) == 0 {
		fmt.Fprintln(w, "No aliases found.")
		return
	}
	fmt.Fprintf(w, "%-44s %-24s %s\n", "ALIAS", "NAME", "TARGET")
	for _, a := range aliases {
		fmt.Fprintf(w, "%-44s %-24s -> %s\n", a.ID, a.Name, a.Target())
	}
}

func printBuilds(w io.Writer, builds []model.Build) {
	if len(builds) == 0 {
		fmt.Fprintln(w, "No builds found.")
		return
	}
	fmt.Fprintf(w, "%-44s %-24s %-12s %s\n", "BUILD", "NAME", "STATUS", "NOTE")
	for _, b := range builds {
		note := ""
		if !b.Ready() {
			note = "not ready"
		}
		fmt.Fprintf(w, "%-44s %-24s %-12s %s\n", b.ID, b.Name, b.Status, note)
	}
}

func printInstances(w io.Writer, instances []model.Instance) {
	if len(instances) == 0 {
		fmt.Fprintln(w, "No instances found.")
		return
	}
	fmt.Fprintf(w, "%-22s %-16s %-12s %s\n", "INSTANCE", "IP", "STATUS", "OS")
	for _, i := range instances {
		ip := i.IPAddress
		if ip == "" {
			ip = "-"
		}
		fmt.Fprintf(w, "%-22s %-16s %-12s %s\n", i.ID, ip, i.Status, i.OperatingSystem)
	}
}

func printCapacity(w io.Writer, c model.FleetCapacity) {
	fmt.Fprintf(w, "Fleet:    %s\n", c.FleetID)
	fmt.Fprintf(w, "Minimum:  %d\n", c.Minimum)
	fmt.Fprintf(w, "Desired:  %d\n", c.Desired)
	fmt.Fprintf(w, "Active:   %d\n", c.Active)
	fmt.Fprintf(w, "Idle:     %d\n", c.Idle)
	fmt.Fprintf(w, "Maximum:  %d\n", c.Maximum)
}

func printGrants(w io.Writer, grants []model.FleetAccessGrant) {
	fmt.Fprintf(w, "%-36s %-44s %-16s %s\n", "GRANT", "FLEET", "PURPOSE", "RULES")
	for _, g := range grants {
		fmt.Fprintf(w, "%-36s %-44s %-16s %s\n", g.ID, g.FleetID, g.Purpose, joinRules(g.Rules))
	}
}

func printJournal(w io.Writer, entries []journal.Entry) {
	fmt.Fprintf(w, "%-36s %-44s %-14s %-26s %s\n", "GRANT", "FLEET", "REASON", "OPENED", "RULES")
	for _, e := range entries {
		fmt.Fprintf(w, "%-36s %-44s %-14s %-26s %s\n",
			e.Grant.ID, e.Grant.FleetID, e.Reason, e.Grant.OpenedAt.Format(timeLayout), joinRules(e.Grant.Rules))
	}
}

func joinRules(rules []model.AccessRule) string {
	parts := make([]string, 0, len(rules))
	for _, r := range rules {
		parts = append(parts, r.String())
	}
	return strings.Join(parts, ", ")
}

func printSettings(w io.Writer, cfg *config.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	_, err = w.Write(data)
	return err
}
