package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"formcraft/internal/domain"
	"formcraft/internal/feature/form"
	"formcraft/internal/feature/submission"
	"formcraft/internal/feature/user"
	"formcraft/pkg/utils"
)

// GormStore is the SQL durable store (postgres / mysql).
type GormStore struct {
	db     *gorm.DB
	driver string
}

func NewGormStore(db *gorm.DB, driver string) *GormStore {
	return &GormStore{db: db, driver: driver}
}

func (s *GormStore) Name() string { return s.driver }

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&user.UserModel{}, &form.FormModel{}, &submission.SubmissionModel{})
}

func (s *GormStore) Close(context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return err
}

// ---------- users ----------

// 写成功之前不改调用方的对象，失败后网关还要拿它写内存库
func (s *GormStore) CreateUser(ctx context.Context, u *domain.User) error {
	row := *u
	if row.ID == "" {
		row.ID = utils.NewID()
	}
	if row.Role == "" {
		row.Role = domain.DefaultRole
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now()
	}
	if err := s.db.WithContext(ctx).Create(user.FromDomain(&row)).Error; err != nil {
		if isDupKey(err) {
			return fmt.Errorf("email %s: %w", u.Email, domain.ErrConflict)
		}
		return err
	}
	*u = row
	return nil
}

func (s *GormStore) FindUserByID(ctx context.Context, id string) (*domain.User, error) {
	var m user.UserModel
	if err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return m.ToDomain(), nil
}

func (s *GormStore) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var m user.UserModel
	if err := s.db.WithContext(ctx).First(&m, "email = ?", email).Error; err != nil {
		return nil, notFound(err)
	}
	return m.ToDomain(), nil
}

func (s *GormStore) ListUsers(ctx context.Context, offset, limit int) ([]domain.User, int64, error) {
	tx := s.db.WithContext(ctx).Model(&user.UserModel{})
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	q := tx.Offset(offset).Order("created_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []user.UserModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]domain.User, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out, total, nil
}

// ---------- forms ----------

func (s *GormStore) CreateForm(ctx context.Context, f *domain.Form) error {
	row := f.Clone()
	if row.ID == "" {
		row.ID = utils.NewID()
	}
	now := time.Now()
	row.CreatedAt, row.UpdatedAt = now, now
	if err := s.db.WithContext(ctx).Create(form.FromDomain(&row)).Error; err != nil {
		return err
	}
	f.ID, f.CreatedAt, f.UpdatedAt = row.ID, now, now
	return nil
}

func (s *GormStore) FindFormByID(ctx context.Context, id string) (*domain.Form, error) {
	var m form.FormModel
	if err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return m.ToDomain(), nil
}

func (s *GormStore) FindFormsByOwner(ctx context.Context, ownerID string) ([]domain.Form, error) {
	var rows []form.FormModel
	if err := s.db.WithContext(ctx).Where("user_id = ?", ownerID).Order("updated_at desc").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Form, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out, nil
}

// UpdateForm 读-改-写放在一个事务里，整行覆盖
func (s *GormStore) UpdateForm(ctx context.Context, id string, p domain.FormPatch) (*domain.Form, error) {
	var out *domain.Form
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m form.FormModel
		if err := tx.First(&m, "id = ?", id).Error; err != nil {
			return notFound(err)
		}
		next := m.ToDomain().Apply(p)
		next.UpdatedAt = time.Now()
		if err := tx.Save(form.FromDomain(&next)).Error; err != nil {
			return err
		}
		out = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *GormStore) DeleteForm(ctx context.Context, id string) (*domain.Form, error) {
	var out *domain.Form
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m form.FormModel
		if err := tx.First(&m, "id = ?", id).Error; err != nil {
			return notFound(err)
		}
		if err := tx.Delete(&form.FormModel{}, "id = ?", id).Error; err != nil {
			return err
		}
		out = m.ToDomain()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ---------- submissions ----------

func (s *GormStore) CreateSubmission(ctx context.Context, sub *domain.Submission) error {
	row := *sub
	if row.ID == "" {
		row.ID = utils.NewID()
	}
	if row.SubmittedAt.IsZero() {
		row.SubmittedAt = time.Now()
	}
	if err := s.db.WithContext(ctx).Create(submission.FromDomain(&row)).Error; err != nil {
		return err
	}
	sub.ID, sub.SubmittedAt = row.ID, row.SubmittedAt
	return nil
}

func (s *GormStore) FindSubmissionByID(ctx context.Context, id string) (*domain.Submission, error) {
	var m submission.SubmissionModel
	if err := s.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return m.ToDomain(), nil
}

func (s *GormStore) FindSubmissionsByForm(ctx context.Context, formID string) ([]domain.Submission, error) {
	var rows []submission.SubmissionModel
	if err := s.db.WithContext(ctx).Where("form_id = ?", formID).Order("submitted_at desc").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Submission, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].ToDomain())
	}
	return out, nil
}

var _ Store = (*GormStore)(nil)
var _ Store = (*MemoryStore)(nil)
