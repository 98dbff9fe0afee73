package repo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"formcraft/internal/domain"
)

// MemoryStore is the volatile dataset. Ids are kind-prefixed counters
// (user_1, form_1, submission_1) that restart with the process.
type MemoryStore struct {
	userMu   sync.RWMutex
	users    map[string]*domain.User
	nextUser int

	formMu   sync.RWMutex
	forms    map[string]*domain.Form
	nextForm int

	subMu   sync.RWMutex
	subs    map[string]*domain.Submission
	nextSub int

	now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: map[string]*domain.User{},
		forms: map[string]*domain.Form{},
		subs:  map[string]*domain.Submission{},
		now:   time.Now,
	}
}

func (m *MemoryStore) Name() string                  { return "memory" }
func (m *MemoryStore) Ping(context.Context) error    { return nil }
func (m *MemoryStore) Migrate(context.Context) error { return nil }
func (m *MemoryStore) Close(context.Context) error   { return nil }

type VolatileCounts struct {
	Users       int `json:"users"`
	Forms       int `json:"forms"`
	Submissions int `json:"submissions"`
}

func (m *MemoryStore) Counts() VolatileCounts {
	m.userMu.RLock()
	u := len(m.users)
	m.userMu.RUnlock()
	m.formMu.RLock()
	f := len(m.forms)
	m.formMu.RUnlock()
	m.subMu.RLock()
	s := len(m.subs)
	m.subMu.RUnlock()
	return VolatileCounts{Users: u, Forms: f, Submissions: s}
}

// ---------- users ----------

func (m *MemoryStore) CreateUser(_ context.Context, u *domain.User) error {
	m.userMu.Lock()
	defer m.userMu.Unlock()
	for _, ex := range m.users {
		if ex.Email == u.Email {
			return fmt.Errorf("email %s: %w", u.Email, domain.ErrConflict)
		}
	}
	if u.ID == "" {
		m.nextUser++
		u.ID = fmt.Sprintf("user_%d", m.nextUser)
	}
	if u.Role == "" {
		u.Role = domain.DefaultRole
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = m.now()
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *MemoryStore) FindUserByID(_ context.Context, id string) (*domain.User, error) {
	m.userMu.RLock()
	defer m.userMu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryStore) FindUserByEmail(_ context.Context, email string) (*domain.User, error) {
	m.userMu.RLock()
	defer m.userMu.RUnlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MemoryStore) ListUsers(_ context.Context, offset, limit int) ([]domain.User, int64, error) {
	m.userMu.RLock()
	all := make([]domain.User, 0, len(m.users))
	for _, u := range m.users {
		all = append(all, *u)
	}
	m.userMu.RUnlock()
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return page(all, offset, limit), int64(len(all)), nil
}

// ---------- forms ----------

func (m *MemoryStore) CreateForm(_ context.Context, f *domain.Form) error {
	m.formMu.Lock()
	defer m.formMu.Unlock()
	if f.ID == "" {
		m.nextForm++
		f.ID = fmt.Sprintf("form_%d", m.nextForm)
	}
	now := m.now()
	f.CreatedAt, f.UpdatedAt = now, now
	cp := f.Clone()
	m.forms[f.ID] = &cp
	return nil
}

func (m *MemoryStore) HasUser(id string) bool {
	m.userMu.RLock()
	defer m.userMu.RUnlock()
	_, ok := m.users[id]
	return ok
}

func (m *MemoryStore) HasForm(id string) bool {
	m.formMu.RLock()
	defer m.formMu.RUnlock()
	_, ok := m.forms[id]
	return ok
}

func (m *MemoryStore) FindFormByID(_ context.Context, id string) (*domain.Form, error) {
	m.formMu.RLock()
	defer m.formMu.RUnlock()
	f, ok := m.forms[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := f.Clone()
	return &cp, nil
}

func (m *MemoryStore) FindFormsByOwner(_ context.Context, ownerID string) ([]domain.Form, error) {
	m.formMu.RLock()
	out := []domain.Form{}
	for _, f := range m.forms {
		if f.UserID == ownerID {
			out = append(out, f.Clone())
		}
	}
	m.formMu.RUnlock()
	sortForms(out)
	return out, nil
}

func (m *MemoryStore) UpdateForm(_ context.Context, id string, p domain.FormPatch) (*domain.Form, error) {
	m.formMu.Lock()
	defer m.formMu.Unlock()
	f, ok := m.forms[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	next := f.Apply(p)
	next.UpdatedAt = m.now()
	m.forms[id] = &next
	out := next.Clone()
	return &out, nil
}

func (m *MemoryStore) DeleteForm(_ context.Context, id string) (*domain.Form, error) {
	m.formMu.Lock()
	defer m.formMu.Unlock()
	f, ok := m.forms[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	delete(m.forms, id)
	return f, nil
}

// ---------- submissions ----------

func (m *MemoryStore) CreateSubmission(_ context.Context, s *domain.Submission) error {
	m.subMu.Lock()
	defer m.subMu.Unlock()
	if s.ID == "" {
		m.nextSub++
		s.ID = fmt.Sprintf("submission_%d", m.nextSub)
	}
	if s.SubmittedAt.IsZero() {
		s.SubmittedAt = m.now()
	}
	cp := *s
	cp.Responses = s.Responses.Clone()
	m.subs[s.ID] = &cp
	return nil
}

func (m *MemoryStore) FindSubmissionByID(_ context.Context, id string) (*domain.Submission, error) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()
	s, ok := m.subs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	cp.Responses = s.Responses.Clone()
	return &cp, nil
}

func (m *MemoryStore) FindSubmissionsByForm(_ context.Context, formID string) ([]domain.Submission, error) {
	m.subMu.RLock()
	out := []domain.Submission{}
	for _, s := range m.subs {
		if s.FormID == formID {
			cp := *s
			cp.Responses = s.Responses.Clone()
			out = append(out, cp)
		}
	}
	m.subMu.RUnlock()
	sortSubmissions(out)
	return out, nil
}

func sortForms(fs []domain.Form) {
	sort.SliceStable(fs, func(i, j int) bool { return fs[i].UpdatedAt.After(fs[j].UpdatedAt) })
}

func sortSubmissions(ss []domain.Submission) {
	sort.SliceStable(ss, func(i, j int) bool { return ss[i].SubmittedAt.After(ss[j].SubmittedAt) })
}

func page[T any](all []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return []T{}
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end]
}
