// Package reporting renders the operator-facing PDF security report.
package reporting

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/jung-kurt/gofpdf"

	"github.com/jarvis-lab/netguard/internal/core/domain"
)

// Row caps keep the report focused on what needs attention; the full
// listings stay in the dashboard.
const (
	maxReportDevices = 20
	maxReportAlerts  = 15
	maxReportVulns   = 15
	maxReportRecs    = 5
)

// Exporter renders report data to PDF.
type Exporter struct{}

func NewExporter() *Exporter {
	return &Exporter{}
}

// Export generates the security report PDF.
func (e *Exporter) Export(data domain.ReportData) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetDrawColor(200, 200, 200)
		pdf.Line(20, pdf.GetY(), 190, pdf.GetY())
		pdf.Ln(2)
		pdf.SetFont("Arial", "I", 8)
		pdf.SetTextColor(120, 120, 120)
		footer := fmt.Sprintf("NetGuard | generated by %s | page %d/{nb}", data.GeneratedBy, pdf.PageNo())
		pdf.CellFormat(0, 5, footer, "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	e.addHeader(pdf, data)
	e.addThreatBanner(pdf, data.Latest)
	e.addStatistics(pdf, data.Stats)
	e.addDeviceTable(pdf, data.Devices)
	e.addAlertTable(pdf, data.Alerts)
	e.addVulnTable(pdf, data.Vulns)
	e.addRecommendations(pdf, data.Latest)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *Exporter) addHeader(pdf *gofpdf.Fpdf, data domain.ReportData) {
	pdf.SetFont("Arial", "B", 24)
	pdf.SetTextColor(0, 51, 102)
	pdf.CellFormat(0, 15, "NetGuard Security Report", "", 1, "L", false, 0, "")
	pdf.Ln(1)

	pdf.SetFont("Arial", "", 14)
	pdf.SetTextColor(100, 100, 100)
	pdf.CellFormat(0, 8, "Home Network Security Assessment", "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(0, 6, fmt.Sprintf("Generated: %s", data.GeneratedAt.Format("2006-01-02 15:04")), "", 1, "L", false, 0, "")
	if data.GeneratedBy != "" {
		pdf.CellFormat(0, 6, fmt.Sprintf("Requested by: %s", data.GeneratedBy), "", 1, "L", false, 0, "")
	}
	pdf.Ln(6)
}

// addThreatBanner draws the network health verdict from the latest AI
// analysis as a prominently colored box.
func (e *Exporter) addThreatBanner(pdf *gofpdf.Fpdf, latest *domain.Analysis) {
	if latest == nil {
		pdf.SetFont("Arial", "I", 10)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(0, 7, "No AI analysis has completed yet", "", 1, "L", false, 0, "")
		pdf.Ln(5)
		return
	}

	r, g, b := threatColor(latest.ThreatLevel)
	pdf.SetFillColor(r, g, b)
	pdf.Rect(20, pdf.GetY(), 170, 30, "F")

	y := pdf.GetY()

	pdf.SetFont("Arial", "B", 36)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetXY(25, y+5)
	pdf.CellFormat(80, 20, fmt.Sprintf("%d/100", latest.NetworkHealthScore), "", 0, "L", false, 0, "")

	pdf.SetFont("Arial", "B", 18)
	pdf.SetXY(110, y+8)
	pdf.CellFormat(80, 14, fmt.Sprintf("%s Threat", latest.ThreatLevel), "", 0, "L", false, 0, "")

	pdf.SetY(y + 35)

	if latest.Summary != "" {
		pdf.SetFont("Arial", "", 10)
		pdf.SetTextColor(60, 60, 60)
		pdf.MultiCell(0, 5, latest.Summary, "", "L", false)
	}
	pdf.Ln(5)
}

func threatColor(level string) (r, g, b int) {
	switch level {
	case domain.ThreatCritical:
		return 220, 53, 69 // Red
	case domain.ThreatHigh:
		return 255, 149, 0 // Orange
	case domain.ThreatMedium:
		return 255, 204, 0 // Yellow
	default:
		return 52, 199, 89 // Green
	}
}

func (e *Exporter) addStatistics(pdf *gofpdf.Fpdf, stats domain.ReportStats) {
	e.sectionTitle(pdf, "Network Overview")

	rows := []struct {
		label string
		value string
		color []int
	}{
		{"Total Devices", fmt.Sprintf("%d", stats.TotalDevices), []int{0, 102, 204}},
		{"IoT Devices", fmt.Sprintf("%d", stats.IoTCount), []int{0, 102, 204}},
		{"Unknown Devices", fmt.Sprintf("%d", stats.UnknownCount), []int{150, 150, 150}},
		{"At-Risk Devices", fmt.Sprintf("%d", stats.AtRiskDevices), []int{220, 53, 69}},
		{"Active Alerts", fmt.Sprintf("%d", stats.ActiveAlerts), []int{255, 149, 0}},
		{"Critical Alerts", fmt.Sprintf("%d", stats.CriticalAlerts), []int{220, 53, 69}},
		{"Open Vulnerabilities", fmt.Sprintf("%d", stats.OpenVulns), []int{255, 149, 0}},
		{"Average Security Score", fmt.Sprintf("%.0f/100", stats.AverageScore), []int{0, 102, 204}},
	}

	colWidth := 85.0
	for i, row := range rows {
		x := 20.0
		if i%2 == 1 {
			x = 105.0
		}
		pdf.SetXY(x, pdf.GetY())

		pdf.SetFont("Arial", "", 10)
		pdf.SetTextColor(100, 100, 100)
		pdf.CellFormat(50, 7, row.label+":", "", 0, "L", false, 0, "")

		pdf.SetFont("Arial", "B", 11)
		pdf.SetTextColor(row.color[0], row.color[1], row.color[2])
		pdf.CellFormat(colWidth-50, 7, row.value, "", 0, "R", false, 0, "")

		if i%2 == 1 {
			pdf.Ln(7)
		}
	}

	if len(stats.TopVendors) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Arial", "", 9)
		pdf.SetTextColor(100, 100, 100)
		line := "Top vendors: "
		for i, v := range stats.TopVendors {
			if i > 0 {
				line += ", "
			}
			line += fmt.Sprintf("%s (%d)", v.Name, v.Count)
		}
		pdf.CellFormat(0, 5, line, "", 1, "L", false, 0, "")
	}

	pdf.Ln(8)
}

// addDeviceTable lists devices riskiest first.
func (e *Exporter) addDeviceTable(pdf *gofpdf.Fpdf, devices []domain.Device) {
	e.sectionTitle(pdf, "Device Inventory")

	if len(devices) == 0 {
		e.emptyNote(pdf, "No devices discovered")
		return
	}

	sorted := make([]domain.Device, len(devices))
	copy(sorted, devices)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].SecurityScore < sorted[j].SecurityScore
	})
	if len(sorted) > maxReportDevices {
		sorted = sorted[:maxReportDevices]
	}

	e.tableHeader(pdf, []col{
		{"Device", 45, "L"}, {"IP", 30, "L"}, {"MAC", 40, "L"}, {"Type", 25, "C"}, {"Score", 30, "C"},
	})

	pdf.SetFont("Arial", "", 9)
	for _, d := range sorted {
		e.pageBreakCheck(pdf)

		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(45, 7, truncate(d.DisplayName(), 26), "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 7, d.IP, "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 7, d.MAC, "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 7, string(d.Type), "1", 0, "C", false, 0, "")

		r, g, b := scoreColor(d.SecurityScore)
		pdf.SetTextColor(r, g, b)
		pdf.CellFormat(30, 7, fmt.Sprintf("%d (%s)", d.SecurityScore, d.SecurityGrade), "1", 1, "C", false, 0, "")
	}

	pdf.Ln(8)
}

func scoreColor(score int) (r, g, b int) {
	switch {
	case score < 40:
		return 220, 53, 69
	case score < domain.AtRiskThreshold:
		return 255, 149, 0
	case score < 80:
		return 255, 204, 0
	default:
		return 52, 199, 89
	}
}

func (e *Exporter) addAlertTable(pdf *gofpdf.Fpdf, alerts []domain.SecurityAlert) {
	e.sectionTitle(pdf, "Active Security Alerts")

	if len(alerts) == 0 {
		e.emptyNote(pdf, "No active alerts")
		return
	}
	if len(alerts) > maxReportAlerts {
		alerts = alerts[:maxReportAlerts]
	}

	e.tableHeader(pdf, []col{
		{"Severity", 22, "C"}, {"Alert", 68, "L"}, {"Source", 35, "L"}, {"Last Seen", 45, "C"},
	})

	pdf.SetFont("Arial", "", 9)
	for _, a := range alerts {
		e.pageBreakCheck(pdf)

		r, g, b := severityColor(a.Severity)
		pdf.SetTextColor(r, g, b)
		pdf.CellFormat(22, 7, string(a.Severity), "1", 0, "C", false, 0, "")

		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(68, 7, truncate(a.Title, 40), "1", 0, "L", false, 0, "")
		pdf.CellFormat(35, 7, a.SourceIP, "1", 0, "L", false, 0, "")
		pdf.CellFormat(45, 7, a.LastSeen.Format("2006-01-02 15:04"), "1", 1, "C", false, 0, "")
	}

	pdf.Ln(8)
}

func (e *Exporter) addVulnTable(pdf *gofpdf.Fpdf, vulns []domain.Vulnerability) {
	e.sectionTitle(pdf, "Open Vulnerabilities")

	if len(vulns) == 0 {
		e.emptyNote(pdf, "No open vulnerabilities")
		return
	}
	if len(vulns) > maxReportVulns {
		vulns = vulns[:maxReportVulns]
	}

	e.tableHeader(pdf, []col{
		{"Severity", 22, "C"}, {"Type", 50, "L"}, {"Device", 35, "L"}, {"Description", 63, "L"},
	})

	pdf.SetFont("Arial", "", 9)
	for _, v := range vulns {
		e.pageBreakCheck(pdf)

		r, g, b := severityColor(v.Severity)
		pdf.SetTextColor(r, g, b)
		pdf.CellFormat(22, 7, string(v.Severity), "1", 0, "C", false, 0, "")

		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(50, 7, truncate(v.Type, 30), "1", 0, "L", false, 0, "")
		pdf.CellFormat(35, 7, v.DeviceIP, "1", 0, "L", false, 0, "")
		pdf.CellFormat(63, 7, truncate(v.Description, 38), "1", 1, "L", false, 0, "")
	}

	pdf.Ln(8)
}

func severityColor(s domain.Severity) (r, g, b int) {
	switch s {
	case domain.SeverityCritical:
		return 220, 53, 69
	case domain.SeverityHigh:
		return 255, 149, 0
	case domain.SeverityMedium:
		return 255, 204, 0
	default:
		return 52, 199, 89
	}
}

// addRecommendations renders the recommendation list from the latest
// analysis. The stored field is a JSON array of strings.
func (e *Exporter) addRecommendations(pdf *gofpdf.Fpdf, latest *domain.Analysis) {
	if latest == nil || latest.Recommendations == "" {
		return
	}
	var recs []string
	if err := json.Unmarshal([]byte(latest.Recommendations), &recs); err != nil || len(recs) == 0 {
		return
	}
	if len(recs) > maxReportRecs {
		recs = recs[:maxReportRecs]
	}

	e.sectionTitle(pdf, "Recommendations")

	pdf.SetFont("Arial", "", 10)
	pdf.SetTextColor(60, 60, 60)
	for i, rec := range recs {
		e.pageBreakCheck(pdf)
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(8, 6, fmt.Sprintf("%d.", i+1), "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(0, 6, rec, "", "L", false)
		pdf.Ln(1)
	}
}

type col struct {
	name  string
	width float64
	align string
}

func (e *Exporter) sectionTitle(pdf *gofpdf.Fpdf, title string) {
	e.pageBreakCheck(pdf)
	pdf.SetFont("Arial", "B", 14)
	pdf.SetTextColor(0, 51, 102)
	pdf.CellFormat(0, 10, title, "", 1, "L", false, 0, "")
	pdf.Ln(2)
}

func (e *Exporter) tableHeader(pdf *gofpdf.Fpdf, cols []col) {
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 10)
	pdf.SetTextColor(60, 60, 60)
	for i, c := range cols {
		ln := 0
		if i == len(cols)-1 {
			ln = 1
		}
		pdf.CellFormat(c.width, 8, c.name, "1", ln, c.align, true, 0, "")
	}
}

func (e *Exporter) emptyNote(pdf *gofpdf.Fpdf, note string) {
	pdf.SetFont("Arial", "I", 10)
	pdf.SetTextColor(100, 100, 100)
	pdf.CellFormat(0, 7, note, "", 1, "L", false, 0, "")
	pdf.Ln(5)
}

func (e *Exporter) pageBreakCheck(pdf *gofpdf.Fpdf) {
	if pdf.GetY() > 250 {
		pdf.AddPage()
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
