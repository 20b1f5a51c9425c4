package model

import "strings"

// Fleet is a group of game-server instances managed as one scaling and security unit.
type Fleet struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Status          string `json:"status"`
	OperatingSystem string `json:"operating_system"`
}

// Usable reports whether the fleet can still be selected for scaling or access.
func (f Fleet) Usable() bool {
	return f.Status != FleetStatusDeleting && f.Status != FleetStatusTerminated
}

// Scalable mirrors the states in which capacity changes are accepted.
func (f Fleet) Scalable() bool {
	return f.Usable() && f.Status != FleetStatusError
}

// Deletable reports whether the fleet is in a state the delete flow accepts.
func (f Fleet) Deletable() bool {
	return f.Status == FleetStatusActive || f.Status == FleetStatusError
}

// IsWindows reports whether instances in the fleet are administered over remote desktop.
func (f Fleet) IsWindows() bool {
	return IsWindows(f.OperatingSystem)
}

// IsWindows reports whether an operating system identifier names a Windows image.
func IsWindows(os string) bool {
	return strings.HasPrefix(strings.ToUpper(os), "WINDOWS")
}

// Alias points at a fleet (SIMPLE routing) or carries a terminal message.
type Alias struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	RoutingType string `json:"routing_type"`
	FleetID     string `json:"fleet_id,omitempty"`
	// TargetFound is set when the routed fleet is present in the current fleet list.
	TargetFound bool `json:"target_found"`
}

// Target describes where the alias routes for display.
func (a Alias) Target() string {
	if a.RoutingType != RoutingSimple {
		return a.RoutingType
	}
	if !a.TargetFound {
		return a.FleetID + " NOT FOUND"
	}
	return a.FleetID
}

// Build is an uploaded game-server build.
type Build struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// Ready reports whether a fleet can be created from the build.
func (b Build) Ready() bool {
	return b.Status != BuildStatusInitialized
}

// Instance is one compute instance in a fleet.
type Instance struct {
	ID              string `json:"id"`
	FleetID         string `json:"fleet_id"`
	IPAddress       string `json:"ip_address,omitempty"`
	Status          string `json:"status"`
	OperatingSystem string `json:"operating_system"`
}

// Connectable reports whether the instance can accept a session.
func (i Instance) Connectable() bool {
	return i.Status == InstanceStatusActive && i.IPAddress != ""
}

// FleetCapacity holds the instance counts of a fleet.
type FleetCapacity struct {
	FleetID string `json:"fleet_id"`
	Minimum int    `json:"minimum"`
	Desired int    `json:"desired"`
	Active  int    `json:"active"`
	Idle    int    `json:"idle"`
	Maximum int    `json:"maximum"`
}

// InstanceAccess carries the credentials needed to log in to an instance.
type InstanceAccess struct {
	FleetID         string `json:"fleet_id"`
	InstanceID      string `json:"instance_id"`
	IPAddress       string `json:"ip_address"`
	OperatingSystem string `json:"operating_system"`
	UserName        string `json:"user_name"`
	Secret          string `json:"-"`
}
