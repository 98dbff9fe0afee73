package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"formcraft/internal/domain"
)

type userDoc struct {
	ID           bson.ObjectID   `bson:"_id,omitempty"`
	Name         string          `bson:"name"`
	Email        string          `bson:"email"`
	PasswordHash string          `bson:"passwordHash"`
	Role         string          `bson:"role"`
	Company      *domain.Company `bson:"company,omitempty"`
	CreatedAt    time.Time       `bson:"createdAt"`
}

func (d *userDoc) toDomain() *domain.User {
	return &domain.User{
		ID:           d.ID.Hex(),
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Role:         d.Role,
		Company:      d.Company,
		CreatedAt:    d.CreatedAt,
	}
}

type formDoc struct {
	ID          bson.ObjectID  `bson:"_id,omitempty"`
	Title       string         `bson:"title"`
	Description string         `bson:"description"`
	Fields      []domain.Field `bson:"fields"`
	UserID      string         `bson:"userId"`
	IsPublic    bool           `bson:"isPublic"`
	Theme       domain.Theme   `bson:"theme"`
	CreatedAt   time.Time      `bson:"createdAt"`
	UpdatedAt   time.Time      `bson:"updatedAt"`
}

func (d *formDoc) toDomain() *domain.Form {
	fields := d.Fields
	if fields == nil {
		fields = []domain.Field{}
	}
	return &domain.Form{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Description: d.Description,
		Fields:      fields,
		UserID:      d.UserID,
		IsPublic:    d.IsPublic,
		Theme:       d.Theme.WithDefaults(),
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

type submissionDoc struct {
	ID          bson.ObjectID           `bson:"_id,omitempty"`
	FormID      string                  `bson:"formId"`
	Responses   map[string]domain.Value `bson:"responses"`
	SubmittedAt time.Time               `bson:"submittedAt"`
	IPAddress   string                  `bson:"ipAddress,omitempty"`
	UserAgent   string                  `bson:"userAgent,omitempty"`
}

func (d *submissionDoc) toDomain() *domain.Submission {
	r := domain.Responses(d.Responses)
	if r == nil {
		r = domain.Responses{}
	}
	return &domain.Submission{
		ID:          d.ID.Hex(),
		FormID:      d.FormID,
		Responses:   r,
		SubmittedAt: d.SubmittedAt,
		Meta:        domain.Meta{IPAddress: d.IPAddress, UserAgent: d.UserAgent},
	}
}

// MongoStore is the document durable store. Ids are ObjectID hex strings.
type MongoStore struct {
	client *mongo.Client
	users  *mongo.Collection
	forms  *mongo.Collection
	subs   *mongo.Collection
}

func NewMongoStore(client *mongo.Client, database string) *MongoStore {
	db := client.Database(database)
	return &MongoStore{
		client: client,
		users:  db.Collection("users"),
		forms:  db.Collection("forms"),
		subs:   db.Collection("submissions"),
	}
}

func (s *MongoStore) Name() string { return "mongo" }

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *MongoStore) Migrate(ctx context.Context) error {
	if _, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	}); err != nil {
		return fmt.Errorf("users indexes: %w", err)
	}
	if _, err := s.forms.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "updatedAt", Value: -1}},
	}); err != nil {
		return fmt.Errorf("forms indexes: %w", err)
	}
	if _, err := s.subs.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "formId", Value: 1}, {Key: "submittedAt", Value: -1}},
	}); err != nil {
		return fmt.Errorf("submissions indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error { return s.client.Disconnect(ctx) }

// objectID 非法 hex 当作不存在，不算存储故障
func objectID(id string) (bson.ObjectID, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return bson.NilObjectID, domain.ErrNotFound
	}
	return oid, nil
}

func mongoNotFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.ErrNotFound
	}
	return err
}

// ---------- users ----------

func (s *MongoStore) CreateUser(ctx context.Context, u *domain.User) error {
	doc := userDoc{
		ID:           bson.NewObjectID(),
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         u.Role,
		Company:      u.Company,
		CreatedAt:    u.CreatedAt,
	}
	if doc.Role == "" {
		doc.Role = domain.DefaultRole
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}
	if _, err := s.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("email %s: %w", u.Email, domain.ErrConflict)
		}
		return err
	}
	u.ID, u.Role, u.CreatedAt = doc.ID.Hex(), doc.Role, doc.CreatedAt
	return nil
}

func (s *MongoStore) FindUserByID(ctx context.Context, id string) (*domain.User, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var d userDoc
	if err := s.users.FindOne(ctx, bson.M{"_id": oid}).Decode(&d); err != nil {
		return nil, mongoNotFound(err)
	}
	return d.toDomain(), nil
}

func (s *MongoStore) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var d userDoc
	if err := s.users.FindOne(ctx, bson.M{"email": email}).Decode(&d); err != nil {
		return nil, mongoNotFound(err)
	}
	return d.toDomain(), nil
}

func (s *MongoStore) ListUsers(ctx context.Context, offset, limit int) ([]domain.User, int64, error) {
	total, err := s.users.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetSkip(int64(offset))
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := s.users.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, err
	}
	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, err
	}
	out := make([]domain.User, 0, len(docs))
	for i := range docs {
		out = append(out, *docs[i].toDomain())
	}
	return out, total, nil
}

// ---------- forms ----------

func (s *MongoStore) CreateForm(ctx context.Context, f *domain.Form) error {
	now := time.Now()
	c := f.Clone()
	doc := formDoc{
		ID:          bson.NewObjectID(),
		Title:       c.Title,
		Description: c.Description,
		Fields:      c.Fields,
		UserID:      c.UserID,
		IsPublic:    c.IsPublic,
		Theme:       c.Theme,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if doc.Fields == nil {
		doc.Fields = []domain.Field{}
	}
	if _, err := s.forms.InsertOne(ctx, doc); err != nil {
		return err
	}
	f.ID = doc.ID.Hex()
	f.CreatedAt, f.UpdatedAt = now, now
	return nil
}

func (s *MongoStore) FindFormByID(ctx context.Context, id string) (*domain.Form, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var d formDoc
	if err := s.forms.FindOne(ctx, bson.M{"_id": oid}).Decode(&d); err != nil {
		return nil, mongoNotFound(err)
	}
	return d.toDomain(), nil
}

func (s *MongoStore) FindFormsByOwner(ctx context.Context, ownerID string) ([]domain.Form, error) {
	cur, err := s.forms.Find(ctx, bson.M{"userId": ownerID},
		options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var docs []formDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domain.Form, 0, len(docs))
	for i := range docs {
		out = append(out, *docs[i].toDomain())
	}
	return out, nil
}

func patchSet(p domain.FormPatch, now time.Time) bson.M {
	set := bson.M{"updatedAt": now}
	if p.Title != nil {
		set["title"] = *p.Title
	}
	if p.Description != nil {
		set["description"] = *p.Description
	}
	if p.Fields != nil {
		fields := *p.Fields
		if fields == nil {
			fields = []domain.Field{}
		}
		set["fields"] = fields
	}
	if p.IsPublic != nil {
		set["isPublic"] = *p.IsPublic
	}
	if p.Theme != nil {
		set["theme"] = p.Theme.WithDefaults()
	}
	return set
}

func (s *MongoStore) UpdateForm(ctx context.Context, id string, p domain.FormPatch) (*domain.Form, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var d formDoc
	err = s.forms.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": patchSet(p, time.Now())},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&d)
	if err != nil {
		return nil, mongoNotFound(err)
	}
	return d.toDomain(), nil
}

func (s *MongoStore) DeleteForm(ctx context.Context, id string) (*domain.Form, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var d formDoc
	if err := s.forms.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&d); err != nil {
		return nil, mongoNotFound(err)
	}
	return d.toDomain(), nil
}

// ---------- submissions ----------

func (s *MongoStore) CreateSubmission(ctx context.Context, sub *domain.Submission) error {
	doc := submissionDoc{
		ID:          bson.NewObjectID(),
		FormID:      sub.FormID,
		Responses:   sub.Responses.Clone(),
		SubmittedAt: sub.SubmittedAt,
		IPAddress:   sub.IPAddress,
		UserAgent:   sub.UserAgent,
	}
	if doc.Responses == nil {
		doc.Responses = map[string]domain.Value{}
	}
	if doc.SubmittedAt.IsZero() {
		doc.SubmittedAt = time.Now()
	}
	if _, err := s.subs.InsertOne(ctx, doc); err != nil {
		return err
	}
	sub.ID, sub.SubmittedAt = doc.ID.Hex(), doc.SubmittedAt
	return nil
}

func (s *MongoStore) FindSubmissionByID(ctx context.Context, id string) (*domain.Submission, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var d submissionDoc
	if err := s.subs.FindOne(ctx, bson.M{"_id": oid}).Decode(&d); err != nil {
		return nil, mongoNotFound(err)
	}
	return d.toDomain(), nil
}

func (s *MongoStore) FindSubmissionsByForm(ctx context.Context, formID string) ([]domain.Submission, error) {
	cur, err := s.subs.Find(ctx, bson.M{"formId": formID},
		options.Find().SetSort(bson.D{{Key: "submittedAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var docs []submissionDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domain.Submission, 0, len(docs))
	for i := range docs {
		out = append(out, *docs[i].toDomain())
	}
	return out, nil
}

var _ Store = (*MongoStore)(nil)
