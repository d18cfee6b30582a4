package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jarvis-lab/netguard/internal/adapters/reporting"
	"github.com/jarvis-lab/netguard/internal/adapters/storage"
	"github.com/jarvis-lab/netguard/internal/core/domain"
	"github.com/jarvis-lab/netguard/internal/core/services/alerting"
	"github.com/jarvis-lab/netguard/internal/core/services/auth"
	"github.com/jarvis-lab/netguard/internal/core/services/registry"
	"github.com/jarvis-lab/netguard/internal/core/services/scoring"
)

const testPassword = "correct-horse"

// testEnv runs the full HTTP surface over a real file-backed store, so
// handler queries hit the same SQL the deployment does.
type testEnv struct {
	ts      *httptest.Server
	adapter *storage.SQLiteAdapter
	srv     *Server
	reg     *registry.Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	adapter, err := storage.NewSQLiteAdapter(filepath.Join(t.TempDir(), "netguard.db"))
	require.NoError(t, err)
	t.Cleanup(func() { adapter.Close() })

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, adapter.Bootstrap(context.Background(), string(hash)))

	reg := registry.NewRegistry()
	authSvc := auth.NewService(adapter)
	engine := alerting.NewEngine(adapter, adapter, adapter, reg, nil, time.Minute)
	scorer := scoring.NewScorer(reg, adapter, adapter, adapter)

	srv := NewServer("127.0.0.1:0", adapter, reg, authSvc, engine, scorer, reporting.NewExporter(), nil, nil)
	ts := httptest.NewServer(srv.routes())
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, adapter: adapter, srv: srv, reg: reg}
}

func (e *testEnv) login(t *testing.T, username, password string) string {
	t.Helper()
	status, body := e.do(t, http.MethodPost, "/api/auth/login", "", domain.Credentials{
		Username: username, Password: password,
	})
	require.Equal(t, http.StatusOK, status)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

// do performs one request and decodes the JSON body when there is one.
func (e *testEnv) do(t *testing.T, method, path, token string, payload any) (int, map[string]any) {
	t.Helper()

	var reqBody io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, e.ts.URL+path, reqBody)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	body := map[string]any{}
	if len(raw) > 0 && strings.Contains(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &body), "body: %s", raw)
	}
	return resp.StatusCode, body
}

func (e *testEnv) seedDevice(t *testing.T, dev domain.Device) {
	t.Helper()
	if dev.FirstSeen.IsZero() {
		dev.FirstSeen = time.Now().Add(-time.Hour)
	}
	if dev.LastSeen.IsZero() {
		dev.LastSeen = time.Now()
	}
	require.NoError(t, e.adapter.SaveDevice(context.Background(), dev))
}

func TestHealthzIsPublic(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestAPIRequiresAuthentication(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/api/devices", "/api/alerts", "/api/stats", "/api/tables"} {
		status, body := env.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, status, path)
		assert.Equal(t, false, body["success"], path)
	}
}

func TestLoginFlow(t *testing.T) {
	env := newTestEnv(t)

	token := env.login(t, "admin", testPassword)

	status, body := env.do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, status)
	user := body["user"].(map[string]any)
	assert.Equal(t, "admin", user["username"])
	assert.Equal(t, "admin", user["role"])

	status, _ = env.do(t, http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = env.do(t, http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, http.MethodPost, "/api/auth/login", "", domain.Credentials{
		Username: "admin", Password: "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "invalid credentials", body["error"])
}

func TestLoginSetsSessionCookie(t *testing.T) {
	env := newTestEnv(t)

	raw, err := json.Marshal(domain.Credentials{Username: "admin", Password: testPassword})
	require.NoError(t, err)
	resp, err := env.ts.Client().Post(env.ts.URL+"/api/auth/login", "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "auth_token" {
			cookie = c
		}
	}
	require.NotNil(t, cookie, "login must set the session cookie")
	assert.True(t, cookie.HttpOnly)
	assert.NotEmpty(t, cookie.Value)

	// The cookie alone authenticates follow-up requests.
	req, err := http.NewRequest(http.MethodGet, env.ts.URL+"/api/auth/me", nil)
	require.NoError(t, err)
	req.AddCookie(cookie)
	resp2, err := env.ts.Client().Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)
}

func TestLoginRateLimited(t *testing.T) {
	env := newTestEnv(t)

	// The limiter allows five attempts per client and minute.
	for i := 0; i < 5; i++ {
		status, _ := env.do(t, http.MethodPost, "/api/auth/login", "", domain.Credentials{
			Username: "admin", Password: testPassword,
		})
		require.Equal(t, http.StatusOK, status, "attempt %d", i)
	}

	status, body := env.do(t, http.MethodPost, "/api/auth/login", "", domain.Credentials{
		Username: "admin", Password: testPassword,
	})
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Contains(t, body["error"], "rate limit")
}

func TestDeviceEndpoints(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "admin", testPassword)

	env.seedDevice(t, domain.Device{
		MAC: "AA:BB:CC:DD:EE:01", IP: "192.168.1.10", Hostname: "cam",
		Type: domain.TypeIoT, Category: domain.CategoryCamera, SecurityScore: 30, SecurityGrade: "F",
	})
	env.seedDevice(t, domain.Device{
		MAC: "AA:BB:CC:DD:EE:02", IP: "192.168.1.11", Hostname: "laptop",
		Type: domain.TypeComputer, Category: domain.CategoryDesktop, SecurityScore: 90, SecurityGrade: "A",
	})
	require.NoError(t, env.adapter.SaveVulnerability(context.Background(), &domain.Vulnerability{
		DeviceIP: "192.168.1.10", Type: "open_telnet", Severity: domain.SeverityCritical,
		Description: "telnet open", DetectedAt: time.Now(),
	}))

	status, body := env.do(t, http.MethodGet, "/api/devices", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 2, body["count"])

	status, body = env.do(t, http.MethodGet, "/api/devices?type=IoT", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["count"])

	status, body = env.do(t, http.MethodGet, "/api/devices?at_risk=true", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["count"])

	// Detail view carries the device's open findings.
	status, body = env.do(t, http.MethodGet, "/api/devices/AA:BB:CC:DD:EE:01", token, nil)
	require.Equal(t, http.StatusOK, status)
	device := body["device"].(map[string]any)
	assert.Equal(t, "cam", device["hostname"])
	vulns := body["vulnerabilities"].([]any)
	assert.Len(t, vulns, 1)

	// MAC lookup is normalization-tolerant.
	status, _ = env.do(t, http.MethodGet, "/api/devices/aa-bb-cc-dd-ee-01", token, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = env.do(t, http.MethodGet, "/api/devices/11:22:33:44:55:66", token, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestTrustAndNotes(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "admin", testPassword)

	env.seedDevice(t, domain.Device{MAC: "AA:BB:CC:DD:EE:03", IP: "192.168.1.12", Type: domain.TypeUnknown})

	status, body := env.do(t, http.MethodPost, "/api/devices/AA:BB:CC:DD:EE:03/trust", token,
		map[string]any{"trusted": true})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["trusted"])

	// A body without the flag is an error, not "false".
	status, _ = env.do(t, http.MethodPost, "/api/devices/AA:BB:CC:DD:EE:03/trust", token,
		map[string]any{})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(t, http.MethodPost, "/api/devices/AA:BB:CC:DD:EE:03/notes", token,
		map[string]any{"notes": "bedroom switch"})
	require.Equal(t, http.StatusOK, status)

	dev, err := env.adapter.GetDeviceByMAC(context.Background(), "AA:BB:CC:DD:EE:03")
	require.NoError(t, err)
	assert.True(t, dev.IsTrusted)
	assert.Equal(t, "bedroom switch", dev.Notes)

	status, _ = env.do(t, http.MethodPost, "/api/devices/FF:FF:FF:FF:FF:FF/trust", token,
		map[string]any{"trusted": true})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestRoleEnforcement(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.srv.Auth.CreateUser(ctx, domain.User{
		Username: "watcher", Role: domain.RoleViewer,
	}, "watcher-pass"))
	require.NoError(t, env.srv.Auth.CreateUser(ctx, domain.User{
		Username: "oncall", Role: domain.RoleOperator,
	}, "oncall-pass"))

	env.seedDevice(t, domain.Device{MAC: "AA:BB:CC:DD:EE:04", IP: "192.168.1.13", Type: domain.TypeIoT})

	viewer := env.login(t, "watcher", "watcher-pass")
	operator := env.login(t, "oncall", "oncall-pass")

	// Viewers read everything but change nothing.
	status, _ := env.do(t, http.MethodGet, "/api/devices", viewer, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = env.do(t, http.MethodPost, "/api/devices/AA:BB:CC:DD:EE:04/trust", viewer,
		map[string]any{"trusted": true})
	assert.Equal(t, http.StatusForbidden, status)

	// Operators change state but cannot run destructive admin actions.
	status, _ = env.do(t, http.MethodPost, "/api/devices/AA:BB:CC:DD:EE:04/trust", operator,
		map[string]any{"trusted": true})
	assert.Equal(t, http.StatusOK, status)
	status, _ = env.do(t, http.MethodPost, "/api/flush-all-data", operator, nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = env.do(t, http.MethodPost, "/api/flush-all-data", viewer, nil)
	assert.Equal(t, http.StatusForbidden, status)
}

func seedAlert(t *testing.T, env *testEnv, alert domain.SecurityAlert) domain.SecurityAlert {
	t.Helper()
	now := time.Now()
	if alert.AlertID == "" {
		alert.AlertID = domain.NewAlertID(alert.AlertType, now)
	}
	if alert.Status == "" {
		alert.Status = domain.AlertActive
	}
	alert.CreatedAt = now
	alert.UpdatedAt = now
	alert.LastSeen = now
	require.NoError(t, env.adapter.CreateAlert(context.Background(), &alert))
	return alert
}

func TestAlertLifecycleOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "admin", testPassword)

	alert := seedAlert(t, env, domain.SecurityAlert{
		AlertType: "port_scan", Severity: domain.SeverityHigh,
		Title: "Port scan from 192.168.1.77", SourceIP: "192.168.1.77",
	})

	status, body := env.do(t, http.MethodGet, "/api/alerts?status=active", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["count"])

	status, body = env.do(t, http.MethodPost, "/api/alerts/"+alert.AlertID+"/resolve", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, string(domain.AlertResolved), body["status"])

	stored, err := env.adapter.GetAlertByAlertID(context.Background(), alert.AlertID)
	require.NoError(t, err)
	assert.Equal(t, domain.AlertResolved, stored.Status)
	assert.Equal(t, "admin", stored.ResolvedBy)

	// The transition lands in the history trail.
	status, body = env.do(t, http.MethodGet, "/api/alerts/"+alert.AlertID+"/history", token, nil)
	require.Equal(t, http.StatusOK, status)
	history := body["history"].([]any)
	require.NotEmpty(t, history)

	status, _ = env.do(t, http.MethodPost, "/api/alerts/ALERT-MISSING/resolve", token, nil)
	assert.Equal(t, http.StatusNotFound, status)

	second := seedAlert(t, env, domain.SecurityAlert{
		AlertType: "dns_tunneling", Severity: domain.SeverityMedium,
		Title: "Odd DNS labels", SourceIP: "192.168.1.50",
	})
	status, _ = env.do(t, http.MethodPost, "/api/alerts/"+second.AlertID+"/false-positive", token, nil)
	require.Equal(t, http.StatusOK, status)

	stored, err = env.adapter.GetAlertByAlertID(context.Background(), second.AlertID)
	require.NoError(t, err)
	assert.Equal(t, domain.AlertFalsePositive, stored.Status)
	assert.True(t, stored.FalsePositive)

	status, body = env.do(t, http.MethodGet, "/api/alerts/statistics", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "statistics")
}

func TestAutoRemediateWithoutCommand(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "admin", testPassword)

	alert := seedAlert(t, env, domain.SecurityAlert{
		AlertType: "port_scan", Severity: domain.SeverityHigh,
		Title: "Scan", SourceIP: "192.168.1.80",
	})

	// No stored remediation command, so the trigger must refuse.
	status, body := env.do(t, http.MethodPost, "/api/alerts/"+alert.AlertID+"/auto-remediate", token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body["error"], "no remediation available")
}

func TestRuleEndpoints(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "admin", testPassword)

	status, body := env.do(t, http.MethodGet, "/api/alert-rules", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, len(domain.DefaultAlertRules()), body["count"])

	// Partial update: untouched fields keep their seeded values.
	status, body = env.do(t, http.MethodPut, "/api/alert-rules/"+domain.RulePortScan, token,
		map[string]any{"threshold_value": 50.0, "enabled": false})
	require.Equal(t, http.StatusOK, status)
	rule := body["rule"].(map[string]any)
	assert.EqualValues(t, 50, rule["threshold_value"])
	assert.Equal(t, false, rule["enabled"])
	assert.Equal(t, string(domain.SeverityHigh), rule["severity"])

	stored, err := env.adapter.GetRule(context.Background(), domain.RulePortScan)
	require.NoError(t, err)
	assert.Equal(t, 50.0, stored.ThresholdValue)
	assert.False(t, stored.Enabled)

	status, _ = env.do(t, http.MethodPut, "/api/alert-rules/"+domain.RulePortScan, token,
		map[string]any{"threshold_value": -5.0})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(t, http.MethodPut, "/api/alert-rules/Not_A_Rule", token,
		map[string]any{"enabled": false})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestVulnerabilityEndpoints(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "admin", testPassword)
	ctx := context.Background()

	vuln := domain.Vulnerability{
		DeviceIP: "192.168.1.20", Type: "default_credentials",
		Severity: domain.SeverityHigh, Description: "factory password accepted",
		DetectedAt: time.Now(),
	}
	require.NoError(t, env.adapter.SaveVulnerability(ctx, &vuln))

	status, body := env.do(t, http.MethodGet, "/api/vulnerabilities", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["count"])

	status, _ = env.do(t, http.MethodPost, fmt.Sprintf("/api/vulnerabilities/%d/resolve", vuln.ID), token, nil)
	require.Equal(t, http.StatusOK, status)

	status, body = env.do(t, http.MethodGet, "/api/vulnerabilities", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 0, body["count"])

	status, body = env.do(t, http.MethodGet, "/api/vulnerabilities?include_resolved=true", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["count"])

	status, _ = env.do(t, http.MethodPost, "/api/vulnerabilities/banana/resolve", token, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(t, http.MethodPost, "/api/vulnerabilities/9999/resolve", token, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAnalysisEndpoints(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "admin", testPassword)
	ctx := context.Background()

	// Before the first cycle: null, not an error.
	status, body := env.do(t, http.MethodGet, "/api/analysis/latest", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Nil(t, body["analysis"])

	analysis := domain.Analysis{
		AnalyzedAt: time.Now(), ThreatLevel: domain.ThreatMedium,
		NetworkHealthScore: 70, Summary: "all quiet", ModelUsed: "gpt-4o-mini",
	}
	require.NoError(t, env.adapter.SaveAnalysis(ctx, &analysis))

	status, body = env.do(t, http.MethodGet, "/api/analysis/latest", token, nil)
	require.Equal(t, http.StatusOK, status)
	latest := body["analysis"].(map[string]any)
	assert.Equal(t, domain.ThreatMedium, latest["threat_level"])

	status, body = env.do(t, http.MethodGet, "/api/analysis/history?limit=10", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["count"])
}

func TestCaptureTableEndpoints(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "admin", testPassword)
	ctx := context.Background()

	spec := domain.NgrepTableSpec()
	table, err := env.adapter.CreateRunTable(ctx, spec, time.Date(2025, 6, 12, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	rows := []domain.Row{
		{"2025-06-12 09:00:01", "eth0", "192.168.1.10", "44321", "8.8.8.8", "53", "UDP", "match-a"},
		{"2025-06-12 09:00:02", "eth0", "192.168.1.11", "44322", "8.8.4.4", "53", "UDP", "match-b"},
		{"2025-06-12 09:00:03", "eth0", "192.168.1.12", "44323", "1.1.1.1", "53", "UDP", "match-c"},
	}
	require.NoError(t, env.adapter.InsertRows(ctx, table, spec.Columns, rows))

	status, body := env.do(t, http.MethodGet, "/api/tables", token, nil)
	require.Equal(t, http.StatusOK, status)
	tables := body["tables"].(map[string]any)
	assert.Contains(t, tables, domain.ToolNgrep)

	status, body = env.do(t, http.MethodGet, "/api/table/"+table+"?limit=2", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 3, body["total"])
	assert.Len(t, body["rows"].([]any), 2)

	// Offset pages past the newest rows.
	status, body = env.do(t, http.MethodGet, "/api/table/"+table+"?limit=2&offset=2", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["rows"].([]any), 1)

	status, _ = env.do(t, http.MethodGet, "/api/table/DROP%20TABLE", token, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(t, http.MethodGet, "/api/table/ngrep_19990101_000000", token, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestStatsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "admin", testPassword)

	env.seedDevice(t, domain.Device{MAC: "AA:BB:CC:DD:EE:05", IP: "192.168.1.14", Type: domain.TypeIoT})

	status, body := env.do(t, http.MethodGet, "/api/stats", token, nil)
	require.Equal(t, http.StatusOK, status)
	stats := body["stats"].(map[string]any)
	assert.EqualValues(t, 1, stats["device_count"])
	assert.Contains(t, stats, "devices_by_type")
}

func TestSystemStatusEndpoint(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "admin", testPassword)

	status, body := env.do(t, http.MethodGet, "/api/system-status", token, nil)
	require.Equal(t, http.StatusOK, status)
	sys := body["status"].(map[string]any)
	assert.GreaterOrEqual(t, sys["uptime_seconds"].(float64), 0.0)
	assert.Greater(t, sys["db_size_bytes"].(float64), 0.0)
}

func TestFlushAllData(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "admin", testPassword)
	ctx := context.Background()

	env.seedDevice(t, domain.Device{MAC: "AA:BB:CC:DD:EE:06", IP: "192.168.1.15", Type: domain.TypeIoT})
	env.reg.ProcessDevice(domain.Device{MAC: "AA:BB:CC:DD:EE:06", IP: "192.168.1.15"})

	spec := domain.NgrepTableSpec()
	_, err := env.adapter.CreateRunTable(ctx, spec, time.Now())
	require.NoError(t, err)

	status, body := env.do(t, http.MethodPost, "/api/flush-all-data", token, nil)
	require.Equal(t, http.StatusOK, status)
	result := body["result"].(map[string]any)
	assert.Equal(t, true, result["success"])
	assert.GreaterOrEqual(t, result["tables_dropped"].(float64), 1.0)

	devices, err := env.adapter.ListDevices(ctx, domain.DeviceFilter{})
	require.NoError(t, err)
	assert.Empty(t, devices)
	assert.Zero(t, env.reg.GetActiveCount())

	// Rules survive a flush; sessions do too.
	rules, err := env.adapter.ListRules(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, rules)
	status, _ = env.do(t, http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestScoreEndpoints(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "admin", testPassword)

	env.seedDevice(t, domain.Device{
		MAC: "AA:BB:CC:DD:EE:07", IP: "192.168.1.16",
		Type: domain.TypeIoT, SecurityScore: 25, SecurityGrade: "F",
	})

	status, body := env.do(t, http.MethodGet, "/api/scores/at-risk", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["count"])
	assert.EqualValues(t, domain.AtRiskThreshold, body["threshold"])

	status, body = env.do(t, http.MethodPost, "/api/scores/recompute", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "scored")
}

func TestSecurityReportPDF(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "admin", testPassword)

	env.seedDevice(t, domain.Device{
		MAC: "AA:BB:CC:DD:EE:08", IP: "192.168.1.17", Hostname: "cam",
		Type: domain.TypeIoT, SecurityScore: 35, SecurityGrade: "F",
	})

	req, err := http.NewRequest(http.MethodGet, env.ts.URL+"/api/report/security.pdf", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := env.ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "netguard-security-report-")

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, []byte("%PDF-")))
}

func TestStaticServesDashboard(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.ts.Client().Get(env.ts.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "NetGuard")

	// Unknown paths fall back to the app shell.
	resp2, err := env.ts.Client().Get(env.ts.URL + "/devices/view")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)
}

func TestWebSocketReceivesEvents(t *testing.T) {
	env := newTestEnv(t)
	token := env.login(t, "admin", testPassword)

	wsURL := "ws" + strings.TrimPrefix(env.ts.URL, "http") + "/ws"
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	require.Eventually(t, func() bool { return env.srv.WS.ClientCount() == 1 },
		time.Second, 10*time.Millisecond)

	env.srv.WS.NotifyAlert(domain.SecurityAlert{
		AlertID: "ALERT-20250612090000-PORT", Title: "Port scan detected",
		Severity: domain.SeverityHigh,
	})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "new_alert", msg.Type)

	payload := msg.Payload.(map[string]any)
	assert.Equal(t, "Port scan detected", payload["title"])
}

func TestWebSocketRequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	wsURL := "ws" + strings.TrimPrefix(env.ts.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	if resp != nil {
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
	assert.Equal(t, 0, env.srv.WS.ClientCount())
}
