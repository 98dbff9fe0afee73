package repo

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"formcraft/internal/core/config"
	"formcraft/internal/domain"
)

var errUnreachable = errors.New("dial tcp 127.0.0.1:27017: connect: connection refused")

// flakyStore 模拟 durable：down 时所有调用都失败，否则交给内部的内存实现
type flakyStore struct {
	inner *MemoryStore
	down       atomic.Bool
	calls      atomic.Int32
	migrations atomic.Int32
}

func newFlaky() *flakyStore {
	f := &flakyStore{inner: NewMemoryStore()}
	f.inner.nextUser, f.inner.nextForm, f.inner.nextSub = 1000, 1000, 1000
	return f
}

func (f *flakyStore) fail() error {
	f.calls.Add(1)
	if f.down.Load() {
		return errUnreachable
	}
	return nil
}

func (f *flakyStore) Name() string                  { return "flaky" }
func (f *flakyStore) Ping(context.Context) error    { return f.fail() }
func (f *flakyStore) Migrate(context.Context) error {
	if err := f.fail(); err != nil {
		return err
	}
	f.migrations.Add(1)
	return nil
}
func (f *flakyStore) Close(context.Context) error   { return nil }

func (f *flakyStore) CreateUser(ctx context.Context, u *domain.User) error {
	if err := f.fail(); err != nil {
		return err
	}
	return f.inner.CreateUser(ctx, u)
}
func (f *flakyStore) FindUserByID(ctx context.Context, id string) (*domain.User, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	return f.inner.FindUserByID(ctx, id)
}
func (f *flakyStore) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	return f.inner.FindUserByEmail(ctx, email)
}
func (f *flakyStore) ListUsers(ctx context.Context, offset, limit int) ([]domain.User, int64, error) {
	if err := f.fail(); err != nil {
		return nil, 0, err
	}
	return f.inner.ListUsers(ctx, offset, limit)
}
func (f *flakyStore) CreateForm(ctx context.Context, fm *domain.Form) error {
	if err := f.fail(); err != nil {
		return err
	}
	return f.inner.CreateForm(ctx, fm)
}
func (f *flakyStore) FindFormByID(ctx context.Context, id string) (*domain.Form, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	return f.inner.FindFormByID(ctx, id)
}
func (f *flakyStore) FindFormsByOwner(ctx context.Context, owner string) ([]domain.Form, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	return f.inner.FindFormsByOwner(ctx, owner)
}
func (f *flakyStore) UpdateForm(ctx context.Context, id string, p domain.FormPatch) (*domain.Form, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	return f.inner.UpdateForm(ctx, id, p)
}
func (f *flakyStore) DeleteForm(ctx context.Context, id string) (*domain.Form, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	return f.inner.DeleteForm(ctx, id)
}
func (f *flakyStore) CreateSubmission(ctx context.Context, s *domain.Submission) error {
	if err := f.fail(); err != nil {
		return err
	}
	return f.inner.CreateSubmission(ctx, s)
}
func (f *flakyStore) FindSubmissionByID(ctx context.Context, id string) (*domain.Submission, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	return f.inner.FindSubmissionByID(ctx, id)
}
func (f *flakyStore) FindSubmissionsByForm(ctx context.Context, formID string) ([]domain.Submission, error) {
	if err := f.fail(); err != nil {
		return nil, err
	}
	return f.inner.FindSubmissionsByForm(ctx, formID)
}

var _ Store = (*flakyStore)(nil)

func newGateway(t *testing.T, durable Store) (*Gateway, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.InfoLevel)
	return NewGateway(durable, NewMemoryStore(), zap.New(core), Options{OpTimeout: time.Second}), logs
}

// exercise 跑一遍完整的 CRUD 并检查每一步的结果形状
func exercise(t *testing.T, g *Gateway) {
	t.Helper()
	ctx := context.Background()

	u := &domain.User{Name: "Ada", Email: "ada@example.com", PasswordHash: "h"}
	require.NoError(t, g.CreateUser(ctx, u))
	require.NotEmpty(t, u.ID)
	assert.ErrorIs(t, g.CreateUser(ctx, &domain.User{Email: "ada@example.com"}), domain.ErrConflict)

	byEmail, err := g.FindUserByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	f := sampleForm(u.ID)
	require.NoError(t, g.CreateForm(ctx, f))
	require.NotEmpty(t, f.ID)
	assert.False(t, f.CreatedAt.IsZero())

	got, err := g.FindFormByID(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, f.Fields, got.Fields)
	assert.Equal(t, u.ID, got.UserID)

	list, err := g.FindFormsByOwner(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	title := "Renamed"
	upd, err := g.UpdateForm(ctx, f.ID, domain.FormPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", upd.Title)

	sub := &domain.Submission{FormID: f.ID, Responses: domain.Responses{"f1": domain.TextValue("Alice")}}
	require.NoError(t, g.CreateSubmission(ctx, sub))
	require.NotEmpty(t, sub.ID)

	subs, err := g.FindSubmissionsByForm(ctx, f.ID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, domain.TextValue("Alice"), subs[0].Responses["f1"])

	_, err = g.DeleteForm(ctx, f.ID)
	require.NoError(t, err)
	_, err = g.FindFormByID(ctx, f.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGateway_HealthyDurable(t *testing.T) {
	d := newFlaky()
	g, _ := newGateway(t, d)
	exercise(t, g)

	st := g.Status()
	assert.True(t, st.DurableUp)
	assert.Zero(t, st.Fallbacks)
	assert.Equal(t, VolatileCounts{}, st.Volatile)
	assert.False(t, st.Degraded())
}

func TestGateway_FallbackIsTransparent(t *testing.T) {
	d := newFlaky()
	d.down.Store(true)
	g, logs := newGateway(t, d)
	exercise(t, g)

	st := g.Status()
	assert.False(t, st.DurableUp)
	assert.Equal(t, "flaky", st.Durable)
	assert.Contains(t, st.LastError, "connection refused")
	assert.NotNil(t, st.LastFailure)
	assert.Positive(t, st.Fallbacks)
	assert.Equal(t, 1, st.Volatile.Users)
	assert.True(t, st.Degraded())

	// 只在 up→down 时告警一次，之后直接走内存库
	assert.Equal(t, 1, logs.FilterMessage("durable store failed, switching to volatile store").Len())
	assert.Equal(t, int32(1), d.calls.Load())
}

func TestGateway_OutcomesDoNotFallBack(t *testing.T) {
	d := newFlaky()
	g, _ := newGateway(t, d)
	ctx := context.Background()

	_, err := g.FindFormByID(ctx, "form_404")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.True(t, g.Status().DurableUp)
	assert.Zero(t, g.Status().Fallbacks)

	err = g.CreateForm(ctx, &domain.Form{Title: ""})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, int32(1), d.calls.Load())
}

func TestGateway_ProbeRecoversAndReadsBothStores(t *testing.T) {
	d := newFlaky()
	g, logs := newGateway(t, d)
	ctx := context.Background()

	durableForm := sampleForm("u1")
	require.NoError(t, g.CreateForm(ctx, durableForm))

	d.down.Store(true)
	volatileForm := sampleForm("u1")
	volatileForm.Title = "Written while down"
	require.NoError(t, g.CreateForm(ctx, volatileForm))
	assert.Equal(t, "form_1", volatileForm.ID)
	assert.False(t, g.Probe(ctx))

	d.down.Store(false)
	assert.True(t, g.Probe(ctx))
	assert.Equal(t, 1, logs.FilterMessage("durable store recovered").Len())

	// durable NotFound 会再查内存库
	got, err := g.FindFormByID(ctx, volatileForm.ID)
	require.NoError(t, err)
	assert.Equal(t, "Written while down", got.Title)

	list, err := g.FindFormsByOwner(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	// 更新/删除落在记录所在的库
	title := "Edited"
	upd, err := g.UpdateForm(ctx, volatileForm.ID, domain.FormPatch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Edited", upd.Title)
	assert.False(t, d.inner.HasForm(volatileForm.ID))

	_, err = g.DeleteForm(ctx, volatileForm.ID)
	require.NoError(t, err)
	_, err = g.DeleteForm(ctx, durableForm.ID)
	require.NoError(t, err)
	assert.False(t, d.inner.HasForm(durableForm.ID))
}

func TestGateway_ListUsersMergesPages(t *testing.T) {
	d := newFlaky()
	g, _ := newGateway(t, d)
	ctx := context.Background()

	for _, e := range []string{"a@x.io", "b@x.io"} {
		require.NoError(t, g.CreateUser(ctx, &domain.User{Email: e}))
	}
	d.down.Store(true)
	require.NoError(t, g.CreateUser(ctx, &domain.User{Email: "c@x.io"}))
	d.down.Store(false)
	require.True(t, g.Probe(ctx))

	items, total, err := g.ListUsers(ctx, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, items, 3)

	items, total, err = g.ListUsers(ctx, 2, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, items, 1)
	assert.Equal(t, "c@x.io", items[0].Email)
}

func TestGateway_MemoryOnly(t *testing.T) {
	g, _ := newGateway(t, nil)
	exercise(t, g)
	st := g.Status()
	assert.Equal(t, "none", st.Durable)
	assert.Zero(t, st.Fallbacks)
	assert.False(t, g.Probe(context.Background()))
}

func TestGateway_RunStopsWithContext(t *testing.T) {
	d := newFlaky()
	d.down.Store(true)
	core, _ := observer.New(zapcore.InfoLevel)
	g := NewGateway(d, nil, zap.New(core), Options{OpTimeout: time.Second, ProbeInterval: 5 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { g.Run(ctx); close(done) }()

	assert.Eventually(t, func() bool { return !g.Status().DurableUp }, time.Second, 5*time.Millisecond)
	d.down.Store(false)
	assert.Eventually(t, func() bool { return g.Status().DurableUp }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

// 两个网关共用一个 durable，相当于进程重启；内存 id 会从 1 重新开始
func TestGateway_VolatileIDsDoNotLeakAcrossRestart(t *testing.T) {
	d := newFlaky()
	ctx := context.Background()

	// 第一个进程：durable 挂着时注册并建表单，恢复后再收提交
	g1, _ := newGateway(t, d)
	d.down.Store(true)
	ownerA := &domain.User{Email: "a@x.io"}
	require.NoError(t, g1.CreateUser(ctx, ownerA))
	formA := sampleForm(ownerA.ID)
	require.NoError(t, g1.CreateForm(ctx, formA))
	require.Equal(t, "form_1", formA.ID)

	d.down.Store(false)
	require.True(t, g1.Probe(ctx))
	secret := &domain.Submission{FormID: formA.ID, Responses: domain.Responses{"f1": domain.TextValue("123-45-6789")}}
	require.NoError(t, g1.CreateSubmission(ctx, secret))
	later := sampleForm(ownerA.ID)
	require.NoError(t, g1.CreateForm(ctx, later))

	stale, err := d.inner.FindSubmissionsByForm(ctx, formA.ID)
	require.NoError(t, err)
	assert.Empty(t, stale)
	staleForms, err := d.inner.FindFormsByOwner(ctx, ownerA.ID)
	require.NoError(t, err)
	assert.Empty(t, staleForms)

	// 历史遗留：durable 里已经有指向内存 id 的提交
	require.NoError(t, d.inner.CreateSubmission(ctx, &domain.Submission{FormID: "form_1", Responses: domain.Responses{"f1": domain.TextValue("old")}}))

	// 第二个进程：同样的 id 分给了另一个人
	g2, _ := newGateway(t, d)
	d.down.Store(true)
	ownerB := &domain.User{Email: "b@x.io"}
	require.NoError(t, g2.CreateUser(ctx, ownerB))
	require.Equal(t, ownerA.ID, ownerB.ID)
	formB := sampleForm(ownerB.ID)
	require.NoError(t, g2.CreateForm(ctx, formB))
	require.Equal(t, formA.ID, formB.ID)
	d.down.Store(false)
	require.True(t, g2.Probe(ctx))

	subs, err := g2.FindSubmissionsByForm(ctx, formB.ID)
	require.NoError(t, err)
	assert.Empty(t, subs)

	forms, err := g2.FindFormsByOwner(ctx, ownerB.ID)
	require.NoError(t, err)
	require.Len(t, forms, 1)
	assert.Equal(t, formB.ID, forms[0].ID)
}

func TestGateway_MigratesOnFirstSuccessfulProbe(t *testing.T) {
	d := newFlaky()
	d.down.Store(true)
	core, logs := observer.New(zapcore.InfoLevel)
	g := NewGateway(d, nil, zap.New(core), Options{OpTimeout: time.Second, AutoMigrate: true})
	ctx := context.Background()

	assert.False(t, g.Probe(ctx))
	assert.Zero(t, d.migrations.Load())
	assert.False(t, g.Status().DurableUp)

	d.down.Store(false)
	assert.True(t, g.Probe(ctx))
	assert.Equal(t, int32(1), d.migrations.Load())
	assert.Equal(t, 1, logs.FilterMessage("durable store migrated").Len())

	assert.True(t, g.Probe(ctx))
	assert.Equal(t, int32(1), d.migrations.Load())
}

func TestNewGatewayFromConfig_UnreachableSQLRecoversLater(t *testing.T) {
	for _, c := range []config.Store{
		{Driver: "postgres", URI: "postgres://formcraft:pw@127.0.0.1:1/formcraft?sslmode=disable&connect_timeout=1"},
		{Driver: "mysql", URI: "mysql://formcraft:pw@127.0.0.1:1/formcraft?timeout=1s"},
	} {
		t.Run(c.Driver, func(t *testing.T) {
			c.OpTimeoutMs = 1000
			c.MaxOpenConns, c.MaxIdleConns = 2, 1
			c.AutoMigrate = true
			c.LogLevel = "silent"
			g := NewGatewayFromConfig(context.Background(), c, zap.NewNop())
			t.Cleanup(func() { _ = g.Close(context.Background()) })

			st := g.Status()
			assert.Equal(t, c.Driver, st.Durable)
			assert.False(t, st.DurableUp)
			assert.NotEmpty(t, st.LastError)
			// 仍然挂着 durable，Run 的探测还有机会把它拉回来
			assert.False(t, g.Probe(context.Background()))
			assert.Equal(t, c.Driver, g.Status().Durable)
		})
	}
}
