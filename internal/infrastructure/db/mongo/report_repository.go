package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shogunlabs/reports-api/internal/core/domain"
	"github.com/shogunlabs/reports-api/internal/core/ports"
)

const (
	reportsCollection     = "reports"
	attachmentsCollection = "report_files"
	chatCollection        = "report_chat"
)

// ReportRepository persists reports, attachments and chat messages.
type ReportRepository struct {
	db          *mongo.Database
	reports     *mongo.Collection
	attachments *mongo.Collection
	chat        *mongo.Collection
}

func NewReportRepository(db *mongo.Database) *ReportRepository {
	return &ReportRepository{
		db:          db,
		reports:     db.Collection(reportsCollection),
		attachments: db.Collection(attachmentsCollection),
		chat:        db.Collection(chatCollection),
	}
}

type mongoReport struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Title     string             `bson:"title"`
	Service   string             `bson:"service"`
	Summary   string             `bson:"summary,omitempty"`
	ClientID  string             `bson:"client_id"`
	ShogunID  string             `bson:"shogun_id"`
	SponsorID string             `bson:"sponsor_id,omitempty"`
	Progress  int                `bson:"progress"`
	Status    string             `bson:"status"`
	Tags      []string           `bson:"tags,omitempty"`
	CreatedAt int64              `bson:"created_at"`
	UpdatedAt int64              `bson:"updated_at"`
}

type mongoAttachment struct {
	ID            string    `bson:"_id"`
	ReportID      string    `bson:"report_id"`
	MessageID     string    `bson:"message_id,omitempty"`
	Name          string    `bson:"name"`
	StorageKey    string    `bson:"storage_key"`
	Mime          string    `bson:"mime"`
	Size          int64     `bson:"size"`
	UploaderID    string    `bson:"uploader_id"`
	UploaderName  string    `bson:"uploader_name"`
	UploaderRoles []string  `bson:"uploader_roles"`
	CreatedAt     time.Time `bson:"created_at"`
}

type mongoChatMessage struct {
	ID          string           `bson:"_id"`
	ReportID    string           `bson:"report_id"`
	AuthorID    string           `bson:"author_id"`
	AuthorName  string           `bson:"author_name"`
	AuthorRoles []string         `bson:"author_roles"`
	Text        string           `bson:"text,omitempty"`
	Attachment  *mongoAttachment `bson:"attachment,omitempty"`
	CreatedAt   time.Time        `bson:"created_at"`
}

func (r *ReportRepository) Create(ctx context.Context, report *domain.Report) (*domain.Report, error) {
	doc := mongoReport{
		Title:     report.Title,
		Service:   report.Service,
		Summary:   report.Summary,
		ClientID:  report.ClientID,
		ShogunID:  report.ShogunID,
		SponsorID: report.SponsorID,
		Progress:  report.Progress,
		Status:    report.Status,
		Tags:      report.Tags,
		CreatedAt: report.CreatedAt.Unix(),
		UpdatedAt: report.UpdatedAt.Unix(),
	}

	res, err := r.reports.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("insert report: %w", err)
	}

	created := *report
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		created.ID = oid.Hex()
	}
	return &created, nil
}

func (r *ReportRepository) FindByID(ctx context.Context, id string) (*domain.Report, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrReportNotFound
	}

	var mr mongoReport
	if err := r.reports.FindOne(ctx, bson.M{"_id": oid}).Decode(&mr); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrReportNotFound
		}
		return nil, fmt.Errorf("find report: %w", err)
	}
	return mr.toDomain(), nil
}

func (r *ReportRepository) List(ctx context.Context, filter ports.ListReportsFilter) ([]*domain.Report, error) {
	query := bson.M{}
	if filter.ParticipantID != "" {
		query = bson.M{"$or": []bson.M{
			{"client_id": filter.ParticipantID},
			{"sponsor_id": filter.ParticipantID},
		}}
	}

	cur, err := r.reports.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer cur.Close(ctx)

	var out []*domain.Report
	for cur.Next(ctx) {
		var mr mongoReport
		if err := cur.Decode(&mr); err != nil {
			return nil, fmt.Errorf("decode report: %w", err)
		}
		out = append(out, mr.toDomain())
	}
	return out, cur.Err()
}

func (r *ReportRepository) Update(ctx context.Context, id string, upd ports.ReportUpdate) (*domain.Report, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrReportNotFound
	}

	set := bson.M{"updated_at": time.Now().UTC().Unix()}
	if upd.Progress != nil {
		set["progress"] = *upd.Progress
	}
	if upd.Status != nil {
		set["status"] = *upd.Status
	}

	var mr mongoReport
	err = r.reports.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&mr)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrReportNotFound
		}
		return nil, fmt.Errorf("update report: %w", err)
	}
	return mr.toDomain(), nil
}

func (r *ReportRepository) InsertAttachment(ctx context.Context, a *domain.Attachment) error {
	if _, err := r.attachments.InsertOne(ctx, toMongoAttachment(a)); err != nil {
		return fmt.Errorf("insert attachment: %w", err)
	}
	return nil
}

func (r *ReportRepository) FindAttachment(ctx context.Context, reportID, attachmentID string) (*domain.Attachment, error) {
	var ma mongoAttachment
	err := r.attachments.FindOne(ctx, bson.M{"_id": attachmentID, "report_id": reportID}).Decode(&ma)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrAttachmentNotFound
		}
		return nil, fmt.Errorf("find attachment: %w", err)
	}
	return ma.toDomain(), nil
}

func (r *ReportRepository) ListAttachments(ctx context.Context, reportID string) ([]*domain.Attachment, error) {
	cur, err := r.attachments.Find(ctx,
		bson.M{"report_id": reportID, "message_id": bson.M{"$exists": false}},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	defer cur.Close(ctx)

	var out []*domain.Attachment
	for cur.Next(ctx) {
		var ma mongoAttachment
		if err := cur.Decode(&ma); err != nil {
			return nil, fmt.Errorf("decode attachment: %w", err)
		}
		out = append(out, ma.toDomain())
	}
	return out, cur.Err()
}

// InsertMessage appends a chat message and its optional attachment inside a
// single multi-document transaction, so a reader never observes one half of
// the pair.
func (r *ReportRepository) InsertMessage(ctx context.Context, m *domain.ChatMessage) error {
	doc := mongoChatMessage{
		ID:          m.ID,
		ReportID:    m.ReportID,
		AuthorID:    m.AuthorID,
		AuthorName:  m.AuthorName,
		AuthorRoles: m.AuthorRoles,
		Text:        m.Text,
		CreatedAt:   m.CreatedAt,
	}
	if m.Attachment != nil {
		doc.Attachment = toMongoAttachment(m.Attachment)
	}

	sess, err := r.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if _, err := r.chat.InsertOne(sc, doc); err != nil {
			return nil, err
		}
		if doc.Attachment != nil {
			if _, err := r.attachments.InsertOne(sc, doc.Attachment); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (r *ReportRepository) ListMessages(ctx context.Context, reportID string) ([]*domain.ChatMessage, error) {
	cur, err := r.chat.Find(ctx,
		bson.M{"report_id": reportID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer cur.Close(ctx)

	var out []*domain.ChatMessage
	for cur.Next(ctx) {
		var mm mongoChatMessage
		if err := cur.Decode(&mm); err != nil {
			return nil, fmt.Errorf("decode message: %w", err)
		}
		out = append(out, mm.toDomain())
	}
	return out, cur.Err()
}

// FindChatAttachment resolves a chat attachment scoped to the report its
// parent message belongs to. The report_id filter enforces that scoping at
// the query level.
func (r *ReportRepository) FindChatAttachment(ctx context.Context, reportID, attachmentID string) (*domain.Attachment, error) {
	var ma mongoAttachment
	err := r.attachments.FindOne(ctx, bson.M{
		"_id":        attachmentID,
		"report_id":  reportID,
		"message_id": bson.M{"$exists": true},
	}).Decode(&ma)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrAttachmentNotFound
		}
		return nil, fmt.Errorf("find chat attachment: %w", err)
	}
	return ma.toDomain(), nil
}

func (mr *mongoReport) toDomain() *domain.Report {
	return &domain.Report{
		ID:        mr.ID.Hex(),
		Title:     mr.Title,
		Service:   mr.Service,
		Summary:   mr.Summary,
		ClientID:  mr.ClientID,
		ShogunID:  mr.ShogunID,
		SponsorID: mr.SponsorID,
		Progress:  mr.Progress,
		Status:    mr.Status,
		Tags:      mr.Tags,
		CreatedAt: unixToTime(mr.CreatedAt),
		UpdatedAt: unixToTime(mr.UpdatedAt),
	}
}

func toMongoAttachment(a *domain.Attachment) *mongoAttachment {
	return &mongoAttachment{
		ID:            a.ID,
		ReportID:      a.ReportID,
		MessageID:     a.MessageID,
		Name:          a.Name,
		StorageKey:    a.StorageKey,
		Mime:          a.Mime,
		Size:          a.Size,
		UploaderID:    a.UploaderID,
		UploaderName:  a.UploaderName,
		UploaderRoles: a.UploaderRoles,
		CreatedAt:     a.CreatedAt,
	}
}

func (ma *mongoAttachment) toDomain() *domain.Attachment {
	return &domain.Attachment{
		ID:            ma.ID,
		ReportID:      ma.ReportID,
		MessageID:     ma.MessageID,
		Name:          ma.Name,
		StorageKey:    ma.StorageKey,
		Mime:          ma.Mime,
		Size:          ma.Size,
		UploaderID:    ma.UploaderID,
		UploaderName:  ma.UploaderName,
		UploaderRoles: ma.UploaderRoles,
		CreatedAt:     ma.CreatedAt,
	}
}

func (mm *mongoChatMessage) toDomain() *domain.ChatMessage {
	out := &domain.ChatMessage{
		ID:          mm.ID,
		ReportID:    mm.ReportID,
		AuthorID:    mm.AuthorID,
		AuthorName:  mm.AuthorName,
		AuthorRoles: mm.AuthorRoles,
		Text:        mm.Text,
		CreatedAt:   mm.CreatedAt,
	}
	if mm.Attachment != nil {
		out.Attachment = mm.Attachment.toDomain()
	}
	return out
}
