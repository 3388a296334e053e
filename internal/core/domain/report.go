package domain

import (
	"strings"
	"time"
)

const (
	// StatusStarting is the status every new report is created with.
	StatusStarting = "starting"

	// MaxStatusLen is the rune limit for the free-text status label.
	MaxStatusLen = 160
)

// Report is a tracked engagement between a client, an assigned shogun and an
// optional sponsor. Reports are never hard-deleted.
type Report struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Service   string    `json:"service"`
	Summary   string    `json:"summary,omitempty"`
	ClientID  string    `json:"client_id"`
	ShogunID  string    `json:"shogun_id"`
	SponsorID string    `json:"sponsor_id,omitempty"`
	Progress  int       `json:"progress"`
	Status    string    `json:"status"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Attachment records an uploaded file tied to a report or a chat message.
// The uploader's identity and role tags are snapshotted at upload time and
// never re-derived — the audit trail reflects who the uploader was then.
type Attachment struct {
	ID            string    `json:"id"`
	ReportID      string    `json:"report_id"`
	MessageID     string    `json:"message_id,omitempty"` // set for chat attachments
	Name          string    `json:"name"`
	StorageKey    string    `json:"-"`
	Mime          string    `json:"mime"`
	Size          int64     `json:"size"`
	UploaderID    string    `json:"uploader_id"`
	UploaderName  string    `json:"uploader_name"`
	UploaderRoles []string  `json:"uploader_roles"`
	CreatedAt     time.Time `json:"created_at"`
}

// ChatMessage is one entry in a report's append-only collaboration thread,
// ordered by creation time ascending. Text may be empty when an attachment
// is present.
type ChatMessage struct {
	ID          string      `json:"id"`
	ReportID    string      `json:"report_id"`
	AuthorID    string      `json:"author_id"`
	AuthorName  string      `json:"author_name"`
	AuthorRoles []string    `json:"author_roles"`
	Text        string      `json:"text,omitempty"`
	Attachment  *Attachment `json:"attachment,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// ClampProgress forces a progress value into [0, 100]. Out-of-range input is
// clamped, never rejected.
func ClampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// NormalizeStatus trims the status label and truncates it to MaxStatusLen runes.
func NormalizeStatus(s string) string {
	s = strings.TrimSpace(s)
	if r := []rune(s); len(r) > MaxStatusLen {
		return string(r[:MaxStatusLen])
	}
	return s
}
