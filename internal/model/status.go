package model

// Fleet status values reported by the fleet service.
const (
	FleetStatusNew         = "NEW"
	FleetStatusDownloading = "DOWNLOADING"
	FleetStatusActivating  = "ACTIVATING"
	FleetStatusActive      = "ACTIVE"
	FleetStatusError       = "ERROR"
	FleetStatusDeleting    = "DELETING"
	FleetStatusTerminated  = "TERMINATED"
)

// Build and instance status values.
const (
	BuildStatusInitialized = "INITIALIZED"
	BuildStatusReady       = "READY"
	BuildStatusFailed      = "FAILED"

	InstanceStatusPending     = "PENDING"
	InstanceStatusActive      = "ACTIVE"
	InstanceStatusTerminating = "TERMINATING"
)

// Alias routing strategies.
const (
	RoutingSimple   = "SIMPLE"
	RoutingTerminal = "TERMINAL"
)
