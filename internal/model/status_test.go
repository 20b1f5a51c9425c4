package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFleetStatusTransitions(t *testing.T) {
	tests := []struct {
		status    string
		usable    bool
		scalable  bool
		deletable bool
	}{
		{FleetStatusNew, true, true, false},
		{FleetStatusActivating, true, true, false},
		{FleetStatusActive, true, true, true},
		{FleetStatusError, true, false, true},
		{FleetStatusDeleting, false, false, false},
		{FleetStatusTerminated, false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			f := Fleet{ID: "fleet-1", Status: tt.status}
			assert.Equal(t, tt.usable, f.Usable())
			assert.Equal(t, tt.scalable, f.Scalable())
			assert.Equal(t, tt.deletable, f.Deletable())
		})
	}
}

func TestAliasTarget(t *testing.T) {
	assert.Equal(t, "fleet-1", Alias{RoutingType: RoutingSimple, FleetID: "fleet-1", TargetFound: true}.Target())
	assert.Equal(t, "fleet-9 NOT FOUND", Alias{RoutingType: RoutingSimple, FleetID: "fleet-9"}.Target())
	assert.Equal(t, RoutingTerminal, Alias{RoutingType: RoutingTerminal}.Target())
}

func TestBuildReady(t *testing.T) {
	assert.False(t, Build{Status: BuildStatusInitialized}.Ready())
	assert.True(t, Build{Status: BuildStatusReady}.Ready())
}
