package metrics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/fleetctl/internal/model"
)

type staticGrants []model.FleetAccessGrant

func (s staticGrants) Grants() []model.FleetAccessGrant { return s }

func TestAccessMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewAccessMetrics(reg)

	m.RuleAuthorized(model.PurposeRemoteShell, model.AuthorizeApplied)
	m.RuleAuthorized(model.PurposeRemoteShell, model.AuthorizeApplied)
	m.RuleAuthorized(model.PurposeDebug, model.AuthorizeAlreadyExists)
	m.CallFailed("revoke")
	m.GrantRevoked(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.applied.WithLabelValues("REMOTE_SHELL", "applied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.applied.WithLabelValues("DEBUG", "already_exists")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("revoke")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.revoked))
}

func TestRegisterLedgerGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	n := 2
	RegisterLedgerGauge(reg, func() int { return n })

	expected := `
# HELP fleetctl_ledger_grants Grants currently recorded as open by this process
# TYPE fleetctl_ledger_grants gauge
fleetctl_ledger_grants 2
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "fleetctl_ledger_grants"))

	n = 0
	count, err := testutil.GatherAndCount(reg, "fleetctl_ledger_grants")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRouter_Healthz(t *testing.T) {
	srv := httptest.NewServer(NewRouter(prometheus.NewRegistry(), nil))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouter_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewAccessMetrics(reg).CallFailed("authorize")

	rec := httptest.NewRecorder()
	NewRouter(reg, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `fleetctl_access_rule_failures_total{op="authorize"} 1`)
}

func TestRouter_Grants(t *testing.T) {
	grants := staticGrants{{
		ID:       "g-1",
		FleetID:  "fleet-1",
		Purpose:  model.PurposeRemoteShell,
		OpenedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Rules: []model.AccessRule{{
			FleetID: "fleet-1", FromPort: 22, ToPort: 22, SourceRange: "10.0.0.0/24", Transport: model.TransportTCP,
		}},
	}}

	rec := httptest.NewRecorder()
	NewRouter(prometheus.NewRegistry(), grants).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/grants", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body struct {
		Items []model.FleetAccessGrant `json:"items"`
		Count int                      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, []model.FleetAccessGrant(grants), body.Items)
}

func TestRouter_GrantsEmpty(t *testing.T) {
	rec := httptest.NewRecorder()
	NewRouter(prometheus.NewRegistry(), nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/grants", nil))
	assert.JSONEq(t, `{"items":[],"count":0}`, rec.Body.String())
}
