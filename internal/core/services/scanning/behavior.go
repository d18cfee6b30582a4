package scanning

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jarvis-lab/netguard/internal/core/domain"
)

const (
	behaviorWindow = time.Hour
	talkLimit      = 200
)

// Remote ports associated with IRC command channels, open proxies, and
// common reverse-shell listeners.
var suspiciousRemotePorts = map[string]bool{
	"6667": true, "8080": true, "8443": true,
	"9001": true, "4444": true, "9999": true,
}

// Weight of one unresolved finding against the vulnerability sub-score.
var severityWeight = map[domain.Severity]int{
	domain.SeverityCritical: 4,
	domain.SeverityHigh:     3,
	domain.SeverityMedium:   2,
	domain.SeverityLow:      1,
}

type scoreSample struct {
	Timestamp     time.Time `json:"timestamp"`
	Overall       int       `json:"overall_score"`
	Vulnerability int       `json:"vulnerability_score"`
	Communication int       `json:"communication_score"`
	Behavioral    int       `json:"behavioral_score"`
}

// analyzeBehavior turns the device's last hour of conversations into risk-
// rated communication rows, one behavioral sample, and a refreshed score
// sheet. A device with no traffic in the window produces nothing.
func (s *Scanner) analyzeBehavior(ctx context.Context, d domain.Device, now time.Time) error {
	if s.queries == nil || s.iot == nil {
		return nil
	}
	talks, err := s.queries.RemoteTalks(ctx, d.IP, now.Add(-behaviorWindow), talkLimit)
	if err != nil {
		return err
	}
	if len(talks) == 0 {
		return nil
	}

	comms := make([]domain.IoTCommunication, 0, len(talks))
	suspicious := 0
	var totalPackets, totalBytes int64
	dests := make(map[string]struct{})
	remotePorts := make(map[string]struct{})

	for _, talk := range talks {
		risk := communicationRisk(talk)
		isSuspicious := risk >= 3
		if isSuspicious {
			suspicious++
		}
		comms = append(comms, domain.IoTCommunication{
			DeviceIP:     d.IP,
			RemoteIP:     talk.RemoteIP,
			RemotePort:   talk.RemotePort,
			Protocol:     talk.Protocol,
			Bytes:        talk.Bytes,
			Packets:      int64(talk.Packets),
			IsExternal:   talk.External,
			RiskLevel:    risk,
			IsSuspicious: isSuspicious,
			ObservedAt:   now,
		})

		totalPackets += int64(talk.Packets)
		totalBytes += talk.Bytes
		dests[talk.RemoteIP] = struct{}{}
		remotePorts[talk.RemotePort] = struct{}{}
	}

	if err := s.iot.SaveCommunications(ctx, comms); err != nil {
		return err
	}

	activityScore := behaviorScore(totalPackets, len(dests), len(remotePorts), totalBytes)
	if err := s.saveBehaviorSample(ctx, d, activityScore, totalPackets, len(dests), len(remotePorts), totalBytes, now); err != nil {
		return err
	}

	return s.updateScoreSheet(ctx, d, suspicious, len(talks), activityScore, now)
}

// communicationRisk rates one conversation 0-4.
func communicationRisk(talk domain.RemoteTalk) int {
	risk := 0
	if talk.External {
		risk += 2
	}
	if suspiciousRemotePorts[talk.RemotePort] {
		risk += 3
	}
	if talk.Bytes > 1_000_000 {
		risk++
	}
	if talk.Packets > 100 {
		risk++
	}
	if risk > 4 {
		risk = 4
	}
	return risk
}

// behaviorScore rates the device's hour of activity 0-100, higher is
// worse. The individual weights add up to exactly 100.
func behaviorScore(packets int64, uniqueDests, uniquePorts int, bytes int64) int {
	score := 0
	if packets > 500 {
		score += 30 // volume consistent with scanning
	}
	if uniqueDests > 20 {
		score += 25 // fan-out consistent with lateral movement
	}
	if uniquePorts > 10 {
		score += 20 // port spread consistent with probing
	}
	if bytes > 10_000_000 {
		score += 15 // transfer volume consistent with exfiltration
	}
	if packets > 0 && bytes/packets > 1000 {
		score += 10
	}
	if score > 100 {
		score = 100
	}
	return score
}

func (s *Scanner) saveBehaviorSample(ctx context.Context, d domain.Device, score int, packets int64, uniqueDests, uniquePorts int, bytes int64, now time.Time) error {
	activityType := domain.ActivityNormal
	switch {
	case score > 70:
		activityType = domain.ActivityAnomalous
	case score > 50:
		activityType = domain.ActivitySuspicious
	}

	var avgPacketSize int64
	if packets > 0 {
		avgPacketSize = bytes / packets
	}
	points, _ := json.Marshal(map[string]int64{
		"total_packets":       packets,
		"unique_destinations": int64(uniqueDests),
		"unique_ports":        int64(uniquePorts),
		"total_data":          bytes,
		"avg_packet_size":     avgPacketSize,
	})

	return s.iot.SaveBehavior(ctx, &domain.IoTBehavior{
		DeviceIP:         d.IP,
		ActivityType:     activityType,
		ActivityScore:    score,
		PacketCount:      packets,
		UniqueDests:      uniqueDests,
		UniquePorts:      uniquePorts,
		BytesTransferred: bytes,
		DataPoints:       string(points),
		RecordedAt:       now,
	})
}

// updateScoreSheet recomputes the three sub-scores, appends a history
// sample, and upserts the sheet keeping the most recent ring entries.
func (s *Scanner) updateScoreSheet(ctx context.Context, d domain.Device, suspicious, totalComms, activityScore int, now time.Time) error {
	vulnScore := s.vulnerabilityScore(ctx, d.IP)
	commScore := communicationScore(suspicious, totalComms)
	behavioralScore := 100 - activityScore
	overall := (vulnScore + commScore + behavioralScore) / 3

	history := s.scoreHistory(ctx, d.IP)
	history = append(history, scoreSample{
		Timestamp:     now,
		Overall:       overall,
		Vulnerability: vulnScore,
		Communication: commScore,
		Behavioral:    behavioralScore,
	})
	if len(history) > domain.ScoreHistoryLimit {
		history = history[len(history)-domain.ScoreHistoryLimit:]
	}
	encoded, _ := json.Marshal(history)

	return s.iot.UpsertIoTScore(ctx, &domain.IoTScore{
		DeviceIP:      d.IP,
		Overall:       overall,
		Vulnerability: vulnScore,
		Communication: commScore,
		Behavioral:    behavioralScore,
		ScoreHistory:  string(encoded),
		UpdatedAt:     now,
	})
}

// vulnerabilityScore is 100 minus ten points per severity weight of every
// unresolved finding, floored at zero.
func (s *Scanner) vulnerabilityScore(ctx context.Context, deviceIP string) int {
	if s.vulns == nil {
		return 100
	}
	open, err := s.vulns.UnresolvedByDevice(ctx, deviceIP)
	if err != nil {
		return 100
	}
	penalty := 0
	for _, v := range open {
		penalty += severityWeight[v.Severity] * 10
	}
	if penalty > 100 {
		penalty = 100
	}
	return 100 - penalty
}

func communicationScore(suspicious, total int) int {
	if total == 0 {
		return 100
	}
	score := 100 - suspicious*100/total
	if score < 0 {
		score = 0
	}
	return score
}

func (s *Scanner) scoreHistory(ctx context.Context, deviceIP string) []scoreSample {
	existing, err := s.iot.GetIoTScore(ctx, deviceIP)
	if err != nil || existing == nil || existing.ScoreHistory == "" {
		return nil
	}
	var history []scoreSample
	if json.Unmarshal([]byte(existing.ScoreHistory), &history) != nil {
		return nil
	}
	return history
}
