package model

import "errors"

var (
	// ErrRuleAlreadyExists is returned by the fleet service when an inbound rule is already present.
	ErrRuleAlreadyExists = errors.New("inbound rule already exists")
	// ErrServiceCallFailed wraps any other failure from the fleet service.
	ErrServiceCallFailed = errors.New("fleet service call failed")
	// ErrAddressLookupFailed is returned when the public address cannot be determined.
	ErrAddressLookupFailed = errors.New("public address lookup failed")
	// ErrInvalidConfiguration marks a malformed setting or rule.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrDestructiveDisabled is returned for delete operations while destructive controls are off.
	ErrDestructiveDisabled = errors.New("destructive controls are disabled (set show_destructive_controls)")
)
