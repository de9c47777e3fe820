package models

// Record is one captured network request row as stored in the local ledger
// and shipped to the server. Timestamp is the last-modified watermark in
// Unix milliseconds; rows with Timestamp greater than the sync cursor are
// picked up by the delta phase.
type Record struct {
	ID          string `json:"id"`
	Method      string `json:"method"`
	URL         string `json:"url"`
	StatusCode  int    `json:"status_code"`
	ContentType string `json:"content_type,omitempty"`
	SizeBytes   int64  `json:"size_bytes"`
	Page        string `json:"page,omitempty"`
	StartedAt   int64  `json:"started_at"`
	Timestamp   int64  `json:"timestamp"`

	Timings *Timings `json:"timings,omitempty"`
	Headers []Header `json:"headers,omitempty"`
}

// Timings holds the per-phase latency breakdown of a captured request,
// all values in milliseconds.
type Timings struct {
	RequestID string `json:"request_id,omitempty"`
	DNSMs     int64  `json:"dns_ms"`
	ConnectMs int64  `json:"connect_ms"`
	TLSMs     int64  `json:"tls_ms"`
	TTFBMs    int64  `json:"ttfb_ms"`
	TotalMs   int64  `json:"total_ms"`
}

// Header is a single captured request or response header.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}
