package types

// ScanRequest is emitted by the camera/QR decoder for one captured code.
type ScanRequest struct {
	SessionID string `json:"session_id"`
	Payload   string `json:"payload"`
}

type ScanResponse struct {
	OK        bool `json:"ok"`
	Accepted  bool `json:"accepted"`
	Duplicate bool `json:"duplicate"`

	// Set on duplicate rejections.
	Source     string  `json:"source,omitempty"`
	AgeMinutes float64 `json:"age_minutes,omitempty"`

	// Set on accepted scans.
	ScanEventID string            `json:"scan_event_id,omitempty"`
	Format      string            `json:"format,omitempty"`
	Fields      map[string]string `json:"fields,omitempty"`
	Display     string            `json:"display,omitempty"`
	CapturedAt  string            `json:"captured_at,omitempty"`
}
