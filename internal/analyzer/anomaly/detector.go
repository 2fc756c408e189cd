// Package anomaly flags suspicious patterns in an event window with three
// independent, non-exclusive rules: volume spikes on sensitive actions,
// security-critical activity outside business hours, and security-critical
// activity by automation accounts.
package anomaly

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"auditchat/internal/eventtypes"
	"auditchat/pkg/domain"
)

// Config tunes the detection rules. The business-hours window is evaluated
// in Location: the organization's timezone is an explicit input, never an
// implicit UTC.
type Config struct {
	// BusinessStartHour..BusinessEndHour is the [start, end) in-hours window.
	BusinessStartHour int
	BusinessEndHour   int
	Location          *time.Location
	// VolumeThreshold is the per-(actor, event-type) count above which the
	// volume rule fires.
	VolumeThreshold int
}

// DefaultConfig is the stock 8:00-18:00 UTC window with the volume rule
// firing above five occurrences.
func DefaultConfig() Config {
	return Config{
		BusinessStartHour: 8,
		BusinessEndHour:   18,
		Location:          time.UTC,
		VolumeThreshold:   5,
	}
}

// serviceAccountMarkers are substrings of actor identifiers that indicate
// automation rather than a person.
var serviceAccountMarkers = []string{"service", "bot", "auto", "jenkins"}

// Detector evaluates the anomaly rules over normalized event lists.
type Detector struct {
	tables *eventtypes.Tables
	cfg    Config
}

// New constructs an anomaly detector.
func New(tables *eventtypes.Tables, cfg Config) (*Detector, error) {
	if tables == nil {
		return nil, fmt.Errorf("event type tables are required")
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.VolumeThreshold <= 0 {
		cfg.VolumeThreshold = 5
	}
	if cfg.BusinessStartHour < 0 || cfg.BusinessEndHour > 24 || cfg.BusinessStartHour >= cfg.BusinessEndHour {
		return nil, fmt.Errorf("invalid business hours window %d-%d", cfg.BusinessStartHour, cfg.BusinessEndHour)
	}
	return &Detector{tables: tables, cfg: cfg}, nil
}

// Detect runs all three rules over the window and returns their combined
// findings. Rules are independent; one event can contribute to several.
func (d *Detector) Detect(events []domain.AuditEvent) []domain.AnomalyRecord {
	var records []domain.AnomalyRecord
	records = append(records, d.volumeRule(events)...)
	records = append(records, d.afterHoursRule(events)...)
	records = append(records, d.serviceAccountRule(events)...)
	return records
}

// volumeRule flags (actor, event-type) pairs on the security-critical list
// whose count within the window exceeds the threshold. One record per pair.
func (d *Detector) volumeRule(events []domain.AuditEvent) []domain.AnomalyRecord {
	type pair struct{ actor, eventType string }
	counts := make(map[pair]int)
	for _, event := range events {
		if !d.tables.IsSecurityCritical(event.EventType) {
			continue
		}
		counts[pair{actorOf(event), event.EventType}]++
	}

	pairs := make([]pair, 0, len(counts))
	for p, count := range counts {
		if count > d.cfg.VolumeThreshold {
			pairs = append(pairs, p)
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].actor != pairs[j].actor {
			return pairs[i].actor < pairs[j].actor
		}
		return pairs[i].eventType < pairs[j].eventType
	})

	records := make([]domain.AnomalyRecord, 0, len(pairs))
	for _, p := range pairs {
		records = append(records, domain.AnomalyRecord{
			Type:      domain.AnomalyHighVolume,
			User:      p.actor,
			EventType: p.eventType,
			Severity:  domain.SeverityMedium,
			Description: fmt.Sprintf("%s performed %s %d times in the window (threshold %d)",
				p.actor, p.eventType, counts[p], d.cfg.VolumeThreshold),
		})
	}
	return records
}

// afterHoursRule flags security-critical events whose local hour falls
// outside the business window.
func (d *Detector) afterHoursRule(events []domain.AuditEvent) []domain.AnomalyRecord {
	var records []domain.AnomalyRecord
	for _, event := range events {
		if !d.tables.IsSecurityCritical(event.EventType) {
			continue
		}
		local := event.CreatedAt.In(d.cfg.Location)
		hour := local.Hour()
		if hour >= d.cfg.BusinessStartHour && hour < d.cfg.BusinessEndHour {
			continue
		}
		records = append(records, domain.AnomalyRecord{
			Type:      domain.AnomalyAfterHours,
			User:      actorOf(event),
			EventType: event.EventType,
			Severity:  domain.SeverityMedium,
			Description: fmt.Sprintf("%s at %s is outside business hours (%02d:00-%02d:00 %s)",
				event.EventType, local.Format("15:04"), d.cfg.BusinessStartHour, d.cfg.BusinessEndHour, d.cfg.Location),
		})
	}
	return records
}

// serviceAccountRule flags security-critical events by actors whose
// identifier marks them as automation, excluding routine CI noise.
func (d *Detector) serviceAccountRule(events []domain.AuditEvent) []domain.AnomalyRecord {
	var records []domain.AnomalyRecord
	for _, event := range events {
		if !d.tables.IsSecurityCritical(event.EventType) {
			continue
		}
		if d.tables.IsRoutineCI(event.EventType) {
			continue
		}
		if !isServiceAccount(event.UserID) {
			continue
		}
		records = append(records, domain.AnomalyRecord{
			Type:      domain.AnomalyServiceAccount,
			User:      event.UserID,
			EventType: event.EventType,
			Severity:  domain.SeverityHigh,
			Description: fmt.Sprintf("service account %s performed %s, which is unusual for automation",
				event.UserID, event.EventType),
		})
	}
	return records
}

func isServiceAccount(actor string) bool {
	lowered := strings.ToLower(actor)
	for _, marker := range serviceAccountMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

func actorOf(event domain.AuditEvent) string {
	if event.UserID == "" {
		return "unknown"
	}
	return event.UserID
}

// Summarize renders detected anomalies grouped by rule type. Empty input
// renders a reassuring all-clear.
func (d *Detector) Summarize(records []domain.AnomalyRecord, days int) string {
	if len(records) == 0 {
		return fmt.Sprintf("No suspicious activity detected in the last %d days. Everything looks normal. ✅", days)
	}

	groups := map[domain.AnomalyType][]domain.AnomalyRecord{}
	for _, record := range records {
		groups[record.Type] = append(groups[record.Type], record)
	}

	headers := []struct {
		anomalyType domain.AnomalyType
		title       string
	}{
		{domain.AnomalyHighVolume, "High volume of sensitive actions"},
		{domain.AnomalyAfterHours, "After-hours activity"},
		{domain.AnomalyServiceAccount, "Unusual service account activity"},
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d suspicious patterns in the last %d days:\n", len(records), days)
	for _, header := range headers {
		group := groups[header.anomalyType]
		if len(group) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n⚠️ %s (%d):\n", header.title, len(group))
		for _, record := range group {
			fmt.Fprintf(&b, "• [%s] %s\n", record.Severity, record.Description)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
