package domain

// TableRow is a generic row from a capture run table, keyed by column name.
type TableRow map[string]any

// PortCount is how many distinct destination ports a source touched
// inside a detection window.
type PortCount struct {
	SourceIP  string
	PortCount int
}

// AuthFailCount counts failed authentication events per source inside a
// detection window.
type AuthFailCount struct {
	SourceIP string
	Failures int
}

// QueryCount counts DNS queries issued per source inside a window.
type QueryCount struct {
	SourceIP string
	Queries  int
}

// ByteCount totals outbound traffic per local source inside a window.
type ByteCount struct {
	SourceIP   string
	TotalBytes int64
}

// BeaconCount counts connections from a local source to one external
// endpoint, used for command-and-control beacon detection.
type BeaconCount struct {
	SourceIP    string
	DestIP      string
	DestPort    string
	Connections int
}

// DNSLabel is one observed DNS query name with its longest label length.
type DNSLabel struct {
	SourceIP string
	Query    string
	LabelLen int
}

// TrafficSummary aggregates a device's traffic for scoring and the
// dashboard.
type TrafficSummary struct {
	Packets    int64
	Bytes      int64
	HTTPCount  int
	TotalCount int
}

// RemoteTalk is one remote endpoint a device exchanged traffic with.
type RemoteTalk struct {
	RemoteIP   string
	RemotePort string
	Protocol   string
	Packets    int
	Bytes      int64
	External   bool
}
