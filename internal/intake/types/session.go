package types

// BadgeRequest is emitted by the badge-reader driver when an operator
// scans in.
type BadgeRequest struct {
	BadgeCode string `json:"badge_code"`
}

type SessionResponse struct {
	OK         bool   `json:"ok"`
	SessionID  string `json:"session_id"`
	IdentityID string `json:"identity_id"`
	StartedAt  string `json:"started_at"`
	EndedAt    string `json:"ended_at,omitempty"`
	Active     bool   `json:"active"`
}
