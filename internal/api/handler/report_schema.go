package handler

// errorResponse is the standard error envelope returned on all 4xx/5xx
// responses (kept in sync with the central error handler).
type errorResponse struct {
	Error             string `json:"error"`
	RetryAfterMinutes int    `json:"retry_after_minutes,omitempty"`
}

type createReportRequest struct {
	Title     string   `json:"title"      validate:"required"`
	Service   string   `json:"service"    validate:"required"`
	Summary   string   `json:"summary"`
	ClientID  string   `json:"client_id"  validate:"required"`
	ShogunID  string   `json:"shogun_id"`
	SponsorID string   `json:"sponsor_id"`
	Status    string   `json:"status"     validate:"omitempty,max=160"`
	Tags      []string `json:"tags"`
}

type updateProgressRequest struct {
	Progress *int    `json:"progress"`
	Status   *string `json:"status"`
}
