package storage

import "time"

// DeviceModel is the GORM model for the device inventory.
type DeviceModel struct {
	MAC           string `gorm:"column:mac_address;primaryKey"`
	IP            string `gorm:"column:ip_address;index"`
	Hostname      string
	Vendor        string
	DeviceType    string `gorm:"column:device_type"`
	Category      string
	FirstSeen     time.Time
	LastSeen      time.Time `gorm:"index"`
	IsTrusted     bool
	Notes         string
	OpenPorts     string
	SecurityScore int
	SecurityGrade string
	TotalPackets  int64
	TotalBytes    int64
	GeoCountry    string
}

func (DeviceModel) TableName() string { return "devices" }

// VulnerabilityModel is the GORM model for scanner findings.
type VulnerabilityModel struct {
	ID               uint   `gorm:"primaryKey"`
	DeviceIP         string `gorm:"index"`
	DeviceMAC        string
	VulnType         string `gorm:"column:vulnerability_type;index"`
	Severity         string
	Description      string
	Recommendation   string
	DetectedAt       time.Time
	Resolved         bool `gorm:"index"`
	ThreatIndicators string
	AutoFixed        bool
	RemediationNote  string
}

func (VulnerabilityModel) TableName() string { return "iot_vulnerabilities" }

// AlertModel is the GORM model for deduplicated security alerts.
// The three list fields hold JSON arrays.
type AlertModel struct {
	ID               uint   `gorm:"primaryKey"`
	AlertID          string `gorm:"uniqueIndex"`
	AlertType        string `gorm:"index"`
	Severity         string
	Title            string
	Description      string
	SourceIP         string `gorm:"index"`
	TargetIP         string
	Status           string `gorm:"index"`
	AffectedDevices  string
	ThreatIndicators string
	RemediationSteps string

	AutoRemediationAvailable bool
	RemediationCommand       string `gorm:"column:auto_remediation_command"`

	CreatedAt       time.Time
	UpdatedAt       time.Time
	LastSeen        time.Time
	RecurrenceCount int
	ResolvedBy      string
	ResolvedAt      *time.Time
	FalsePositive   bool
}

func (AlertModel) TableName() string { return "security_alerts" }

// AlertHistoryModel records every alert state transition.
type AlertHistoryModel struct {
	ID          uint   `gorm:"primaryKey"`
	AlertID     string `gorm:"index"`
	Action      string
	Detail      string
	PerformedBy string
	CreatedAt   time.Time
}

func (AlertHistoryModel) TableName() string { return "alert_history" }

// AlertRuleModel is the GORM model for detection rules.
type AlertRuleModel struct {
	ID                 uint   `gorm:"primaryKey"`
	RuleName           string `gorm:"uniqueIndex"`
	RuleType           string
	ThresholdValue     float64
	TimeWindowSeconds  int
	Severity           string
	Enabled            bool
	AutoRemediate      bool
	RemediationCommand string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (AlertRuleModel) TableName() string { return "alert_rules" }

// AnalysisModel is the GORM model for stored AI verdicts.
type AnalysisModel struct {
	ID                 uint `gorm:"primaryKey"`
	AnalyzedAt         time.Time
	ThreatLevel        string
	NetworkHealthScore int
	Summary            string
	ThreatsDetected    string
	NetworkInsights    string
	DeviceAnalysis     string
	HTTPAnalysis       string
	Recommendations    string
	RawResponse        string
	ModelUsed          string
}

func (AnalysisModel) TableName() string { return "ai_analysis" }

// AnalysisCycleModel records every aggregator cycle outcome.
type AnalysisCycleModel struct {
	ID           uint `gorm:"primaryKey"`
	AnalyzedAt   time.Time
	ModelUsed    string
	Success      bool
	ErrorMessage string
	ProcessingMS int64
}

func (AnalysisCycleModel) TableName() string { return "ai_analysis_history" }

// IoTCommunicationModel is the GORM model for IoT conversation records.
type IoTCommunicationModel struct {
	ID           uint   `gorm:"primaryKey"`
	DeviceIP     string `gorm:"index"`
	RemoteIP     string
	RemotePort   string
	Protocol     string
	Bytes        int64
	Packets      int64
	IsExternal   bool
	RiskLevel    int
	IsSuspicious bool
	ObservedAt   time.Time
}

func (IoTCommunicationModel) TableName() string { return "iot_communications" }

// IoTBehaviorModel is the GORM model for behavioral samples.
type IoTBehaviorModel struct {
	ID               uint   `gorm:"primaryKey"`
	DeviceIP         string `gorm:"index"`
	ActivityType     string
	ActivityScore    int
	PacketCount      int64
	UniqueDests      int `gorm:"column:unique_destinations"`
	UniquePorts      int
	BytesTransferred int64
	DataPoints       string
	RecordedAt       time.Time
}

func (IoTBehaviorModel) TableName() string { return "iot_behavioral_data" }

// IoTScoreModel is the GORM model for per-device score sheets.
type IoTScoreModel struct {
	ID            uint   `gorm:"primaryKey"`
	DeviceIP      string `gorm:"uniqueIndex"`
	Overall       int    `gorm:"column:overall_score"`
	Vulnerability int    `gorm:"column:vulnerability_score"`
	Communication int    `gorm:"column:communication_score"`
	Behavioral    int    `gorm:"column:behavioral_score"`
	ScoreHistory  string
	UpdatedAt     time.Time
}

func (IoTScoreModel) TableName() string { return "iot_security_scores" }
