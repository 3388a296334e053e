package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/shogunlabs/reports-api/internal/core/domain"
	"github.com/shogunlabs/reports-api/internal/core/ports"
)

// ---------------------------------------------------------------------------
// In-memory stub repositories and collaborators
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	byID       map[string]*domain.User
	byUsername map[string]*domain.User
	nextID     int
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{
		byID:       make(map[string]*domain.User),
		byUsername: make(map[string]*domain.User),
	}
}

func (r *stubUserRepo) add(u *domain.User) *domain.User {
	if u.ID == "" {
		r.nextID++
		u.ID = fmt.Sprintf("u%d", r.nextID)
	}
	clone := *u
	r.byID[clone.ID] = &clone
	r.byUsername[clone.Username] = &clone
	return &clone
}

func (r *stubUserRepo) Create(_ context.Context, u *domain.User) (*domain.User, error) {
	if _, exists := r.byUsername[u.Username]; exists {
		return nil, domain.ErrUserExists
	}
	created := r.add(u)
	clone := *created
	return &clone, nil
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	u, ok := r.byUsername[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

type stubReportRepo struct {
	reports     map[string]*domain.Report
	attachments map[string]*domain.Attachment
	messages    []*domain.ChatMessage
	nextID      int
	insertErr   error // if set, InsertMessage returns this error
}

func newStubReportRepo() *stubReportRepo {
	return &stubReportRepo{
		reports:     make(map[string]*domain.Report),
		attachments: make(map[string]*domain.Attachment),
	}
}

func (r *stubReportRepo) Create(_ context.Context, rep *domain.Report) (*domain.Report, error) {
	r.nextID++
	clone := *rep
	clone.ID = fmt.Sprintf("r%d", r.nextID)
	r.reports[clone.ID] = &clone
	out := clone
	return &out, nil
}

func (r *stubReportRepo) FindByID(_ context.Context, id string) (*domain.Report, error) {
	rep, ok := r.reports[id]
	if !ok {
		return nil, domain.ErrReportNotFound
	}
	clone := *rep
	return &clone, nil
}

func (r *stubReportRepo) List(_ context.Context, f ports.ListReportsFilter) ([]*domain.Report, error) {
	var out []*domain.Report
	for _, rep := range r.reports {
		if f.ParticipantID != "" && rep.ClientID != f.ParticipantID && rep.SponsorID != f.ParticipantID {
			continue
		}
		clone := *rep
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *stubReportRepo) Update(_ context.Context, id string, upd ports.ReportUpdate) (*domain.Report, error) {
	rep, ok := r.reports[id]
	if !ok {
		return nil, domain.ErrReportNotFound
	}
	if upd.Progress != nil {
		rep.Progress = *upd.Progress
	}
	if upd.Status != nil {
		rep.Status = *upd.Status
	}
	clone := *rep
	return &clone, nil
}

func (r *stubReportRepo) InsertAttachment(_ context.Context, a *domain.Attachment) error {
	clone := *a
	r.attachments[a.ID] = &clone
	return nil
}

func (r *stubReportRepo) FindAttachment(_ context.Context, reportID, attachmentID string) (*domain.Attachment, error) {
	a, ok := r.attachments[attachmentID]
	if !ok || a.ReportID != reportID || a.MessageID != "" {
		return nil, domain.ErrAttachmentNotFound
	}
	clone := *a
	return &clone, nil
}

func (r *stubReportRepo) ListAttachments(_ context.Context, reportID string) ([]*domain.Attachment, error) {
	var out []*domain.Attachment
	for _, a := range r.attachments {
		if a.ReportID != reportID || a.MessageID != "" {
			continue
		}
		clone := *a
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// InsertMessage mirrors the real repo's transaction: message and attachment
// persist together or not at all.
func (r *stubReportRepo) InsertMessage(_ context.Context, m *domain.ChatMessage) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	clone := *m
	if m.Attachment != nil {
		att := *m.Attachment
		clone.Attachment = &att
		r.attachments[att.ID] = &att
	}
	r.messages = append(r.messages, &clone)
	return nil
}

func (r *stubReportRepo) ListMessages(_ context.Context, reportID string) ([]*domain.ChatMessage, error) {
	var out []*domain.ChatMessage
	for _, m := range r.messages {
		if m.ReportID != reportID {
			continue
		}
		clone := *m
		out = append(out, &clone)
	}
	return out, nil
}

func (r *stubReportRepo) FindChatAttachment(_ context.Context, reportID, attachmentID string) (*domain.Attachment, error) {
	a, ok := r.attachments[attachmentID]
	if !ok || a.ReportID != reportID || a.MessageID == "" {
		return nil, domain.ErrAttachmentNotFound
	}
	clone := *a
	return &clone, nil
}

// memBlobStore keeps uploaded content in a map for round-trip assertions.
type memBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error // if set, Put fails
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{objects: make(map[string][]byte)}
}

func (s *memBlobStore) Put(_ context.Context, key string, content io.Reader, _ string) (int64, error) {
	if s.putErr != nil {
		return 0, s.putErr
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	s.objects[key] = data
	s.mu.Unlock()
	return int64(len(data)), nil
}

func (s *memBlobStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	data, ok := s.objects[key]
	s.mu.Unlock()
	if !ok {
		return nil, domain.ErrAttachmentNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

type stubMailer struct {
	sent []ports.Mail
	err  error
}

func (m *stubMailer) Send(_ context.Context, mail ports.Mail) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, mail)
	return nil
}

// stubLimiter admits everything until tripped.
type stubLimiter struct {
	calls   []string
	tripped bool
	err     error
}

func (l *stubLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.calls = append(l.calls, key)
	if l.err != nil {
		return false, l.err
	}
	return !l.tripped, nil
}

var errBlobDown = errors.New("blob store unavailable")
