package domain

// AnomalyType identifies which detection rule produced a record.
type AnomalyType string

const (
	AnomalyHighVolume     AnomalyType = "high_volume_sensitive_actions"
	AnomalyAfterHours     AnomalyType = "after_hours_activity"
	AnomalyServiceAccount AnomalyType = "service_account_unusual_activity"
)

// Severity ranks anomalies for presentation.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// AnomalyRecord is one flagged observation from the anomaly detector.
// Produced transiently per query; never persisted.
type AnomalyRecord struct {
	Type        AnomalyType
	User        string
	EventType   string
	Severity    Severity
	Description string
}
