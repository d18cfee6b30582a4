package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jarvis-lab/netguard/internal/core/domain"
	"github.com/jarvis-lab/netguard/internal/core/ports"
	"github.com/jarvis-lab/netguard/internal/core/services/registry"
)

type fakeAnalysisStore struct {
	analyses []domain.Analysis
	cycles   []domain.AnalysisCycle
	saveErr  error
}

func (f *fakeAnalysisStore) SaveAnalysis(ctx context.Context, analysis *domain.Analysis) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.analyses = append(f.analyses, *analysis)
	return nil
}

func (f *fakeAnalysisStore) LatestAnalysis(ctx context.Context) (*domain.Analysis, error) {
	if len(f.analyses) == 0 {
		return nil, nil
	}
	last := f.analyses[len(f.analyses)-1]
	return &last, nil
}

func (f *fakeAnalysisStore) ListAnalyses(ctx context.Context, limit int) ([]domain.Analysis, error) {
	return f.analyses, nil
}

func (f *fakeAnalysisStore) RecordCycle(ctx context.Context, cycle *domain.AnalysisCycle) error {
	f.cycles = append(f.cycles, *cycle)
	return nil
}

type fakeAnalysisNotifier struct {
	analyses []domain.Analysis
}

func (f *fakeAnalysisNotifier) NotifyDevice(domain.Device)               {}
func (f *fakeAnalysisNotifier) NotifyAlert(domain.SecurityAlert)         {}
func (f *fakeAnalysisNotifier) NotifyVulnerability(domain.Vulnerability) {}
func (f *fakeAnalysisNotifier) NotifyAnalysis(analysis domain.Analysis) {
	f.analyses = append(f.analyses, analysis)
}

type stubProvider struct {
	name      string
	model     string
	text      string
	err       error
	available bool
	calls     int
	gotReq    ports.AnalysisRequest
}

func (s *stubProvider) Analyze(ctx context.Context, req ports.AnalysisRequest) (string, error) {
	s.calls++
	s.gotReq = req
	if s.err != nil {
		return "", s.err
	}
	return s.text, nil
}

func (s *stubProvider) Name() string    { return s.name }
func (s *stubProvider) Model() string   { return s.model }
func (s *stubProvider) Available() bool { return s.available }

const validReport = `{"threat_level":"MEDIUM","network_health_score":72,"summary":"mostly quiet","recommendations":["patch the camera"]}`

type aggHarness struct {
	agg      *Aggregator
	store    *fakeAnalysisStore
	notifier *fakeAnalysisNotifier
	captures *fakeCaptureStore
	enabled  bool
}

func newAggHarness(t *testing.T, providers ...ports.AnalysisProvider) *aggHarness {
	t.Helper()
	h := &aggHarness{
		store:    &fakeAnalysisStore{},
		notifier: &fakeAnalysisNotifier{},
		captures: newFakeCaptureStore(),
		enabled:  true,
	}
	builder := newTestBuilder(h.captures, registry.NewRegistry(), &fakeVulnStore{})
	h.agg = NewAggregator(builder, h.store, h.notifier, providers, func() Settings {
		return Settings{Enabled: h.enabled, Interval: time.Minute}
	})
	h.agg.now = func() time.Time { return snapClock }
	return h
}

func (h *aggHarness) seedTraffic() {
	h.captures.seed(domain.ToolTshark,
		protoRow("192.168.1.10", "8.8.8.8", "DNS"),
		protoRow("192.168.1.11", "93.184.216.34", "TCP"),
	)
}

func TestCycleStoresFirstSuccessfulProvider(t *testing.T) {
	down := &stubProvider{name: "gemini", model: "gemini-2.0-flash-exp", err: errors.New("rate limited"), available: true}
	up := &stubProvider{name: "groq", model: "llama-3.3-70b-versatile", text: "```json\n" + validReport + "\n```", available: true}
	h := newAggHarness(t, down, up)
	h.seedTraffic()

	require.NoError(t, h.agg.Cycle(context.Background()))

	assert.Equal(t, 1, down.calls)
	assert.Equal(t, 1, up.calls)

	require.Len(t, h.store.analyses, 1)
	saved := h.store.analyses[0]
	assert.Equal(t, "llama-3.3-70b-versatile", saved.ModelUsed)
	assert.Equal(t, "MEDIUM", saved.ThreatLevel)
	assert.Equal(t, 72, saved.NetworkHealthScore)
	assert.Equal(t, "```json\n"+validReport+"\n```", saved.RawResponse)
	assert.Equal(t, snapClock, saved.AnalyzedAt)

	require.Len(t, h.store.cycles, 1)
	cycle := h.store.cycles[0]
	assert.True(t, cycle.Success)
	assert.Equal(t, "llama-3.3-70b-versatile", cycle.ModelUsed)
	assert.Empty(t, cycle.ErrorMessage)

	require.Len(t, h.notifier.analyses, 1)
	assert.Equal(t, "MEDIUM", h.notifier.analyses[0].ThreatLevel)

	assert.Contains(t, up.gotReq.System, "security analyst")
	assert.Contains(t, up.gotReq.Prompt, "PROTOCOL ANALYSIS")
	assert.Equal(t, 4096, up.gotReq.MaxTokens)
	assert.InDelta(t, 0.3, up.gotReq.Temperature, 0.001)
}

func TestCycleDisabledDoesNothing(t *testing.T) {
	p := &stubProvider{name: "gemini", model: "m", text: validReport, available: true}
	h := newAggHarness(t, p)
	h.seedTraffic()
	h.enabled = false

	require.NoError(t, h.agg.Cycle(context.Background()))

	assert.Zero(t, p.calls)
	assert.Empty(t, h.store.analyses)
	assert.Empty(t, h.store.cycles)
}

func TestCycleSkipsWithoutUsableKeys(t *testing.T) {
	p := &stubProvider{name: "gemini", model: "m", text: validReport, available: false}
	h := newAggHarness(t, p)
	h.seedTraffic()

	require.NoError(t, h.agg.Cycle(context.Background()))

	assert.Zero(t, p.calls)
	assert.Empty(t, h.store.cycles)
}

func TestCycleSkipsWithoutData(t *testing.T) {
	p := &stubProvider{name: "gemini", model: "m", text: validReport, available: true}
	h := newAggHarness(t, p)

	require.NoError(t, h.agg.Cycle(context.Background()))

	assert.Zero(t, p.calls)
	assert.Empty(t, h.store.cycles)
}

func TestCycleRecordsFullChainFailure(t *testing.T) {
	down := &stubProvider{name: "gemini", model: "g", err: errors.New("quota exceeded"), available: true}
	junk := &stubProvider{name: "groq", model: "l", text: "sorry, I cannot help with that", available: true}
	h := newAggHarness(t, down, junk)
	h.seedTraffic()

	err := h.agg.Cycle(context.Background())
	require.Error(t, err)

	assert.Empty(t, h.store.analyses)
	require.Len(t, h.store.cycles, 1)
	cycle := h.store.cycles[0]
	assert.False(t, cycle.Success)
	assert.Contains(t, cycle.ErrorMessage, "gemini: quota exceeded")
	assert.Contains(t, cycle.ErrorMessage, "groq:")
	assert.Empty(t, h.notifier.analyses)
}

func TestCycleSaveFailureSurfaces(t *testing.T) {
	p := &stubProvider{name: "gemini", model: "m", text: validReport, available: true}
	h := newAggHarness(t, p)
	h.seedTraffic()
	h.store.saveErr = errors.New("disk full")

	err := h.agg.Cycle(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestParseReportAcceptsBareJSON(t *testing.T) {
	report, err := ParseReport(validReport)
	require.NoError(t, err)
	assert.Equal(t, "MEDIUM", report.ThreatLevel)
	assert.Equal(t, 72, report.NetworkHealthScore)
	assert.Equal(t, []string{"patch the camera"}, report.Recommendations)
}

func TestParseReportStripsFences(t *testing.T) {
	for _, raw := range []string{
		"```json\n" + validReport + "\n```",
		"```\n" + validReport + "\n```",
		"  ```json\n" + validReport + "\n```  ",
	} {
		report, err := ParseReport(raw)
		require.NoError(t, err, "input %q", raw)
		assert.Equal(t, "MEDIUM", report.ThreatLevel)
	}
}

func TestParseReportExtractsFromReasoningText(t *testing.T) {
	raw := "Okay, looking at the telemetry the situation seems calm.\n\n" + validReport + "\n\nLet me know if you need more detail."
	report, err := ParseReport(raw)
	require.NoError(t, err)
	assert.Equal(t, "MEDIUM", report.ThreatLevel)
}

func TestParseReportRejectsGarbage(t *testing.T) {
	_, err := ParseReport("I am unable to analyze this traffic.")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not valid JSON")
}

func TestParseReportRejectsMissingThreatLevel(t *testing.T) {
	_, err := ParseReport(`{"summary":"fine"}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "threat_level")
}

func TestParseReportNestedSections(t *testing.T) {
	raw := `{
		"threat_level": "HIGH",
		"network_health_score": 41,
		"summary": "two issues",
		"threats_detected": [
			{"severity": "HIGH", "category": "iot_compromise", "description": "telnet camera",
			 "affected_ips": ["192.168.1.50"], "recommended_action": "isolate", "tool_source": "suricata"}
		],
		"network_insights": {"total_traffic_volume": "1.2 GB", "most_active_protocols": ["TCP"],
			"suspicious_connections": "none observed", "unusual_patterns": "none observed",
			"bandwidth_anomalies": "none observed"},
		"device_analysis": {"total_devices": 7, "operating_systems": {"Linux": 4}, "suspicious_devices": []},
		"http_analysis": {"plaintext_services": "one camera portal"},
		"recommendations": ["disable telnet"]
	}`
	report, err := ParseReport(raw)
	require.NoError(t, err)
	require.Len(t, report.ThreatsDetected, 1)
	assert.Equal(t, "iot_compromise", report.ThreatsDetected[0].Category)
	assert.Equal(t, []string{"192.168.1.50"}, report.ThreatsDetected[0].AffectedIPs)
	assert.Equal(t, 7, report.DeviceAnalysis.TotalDevices)
	assert.Equal(t, "1.2 GB", report.NetworkInsights.TotalTrafficVolume)
}
