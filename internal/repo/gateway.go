package repo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"formcraft/internal/domain"
)

type Options struct {
	OpTimeout     time.Duration // 单次 durable 调用超时
	ProbeInterval time.Duration // 健康探测间隔，<=0 关闭
	AutoMigrate   bool          // 第一次探测成功时建表/索引
}

// Gateway serves users, forms and submissions from the durable store and
// falls back to the volatile store whenever the durable store fails.
//
// Health is tracked explicitly: a failure marks the durable store down and
// later calls go straight to the volatile store until a probe succeeds.
// Records are never copied between the two stores. Reads consult both, and
// updates/deletes go to whichever store holds the record.
//
// Volatile ids restart at user_1/form_1 with the process, so the durable
// store must never hold a record pointing at one: children of a volatile
// parent are written to, and listed from, the volatile store only.
type Gateway struct {
	durable  Store // nil: volatile only
	volatile *MemoryStore
	log      *zap.Logger
	opt      Options

	up        atomic.Bool
	fallbacks atomic.Int64
	migrate   atomic.Bool // 还欠一次 Migrate

	mu       sync.Mutex
	lastErr  string
	lastFail time.Time
}

func NewGateway(durable Store, volatile *MemoryStore, l *zap.Logger, o Options) *Gateway {
	if volatile == nil {
		volatile = NewMemoryStore()
	}
	if l == nil {
		l = zap.NewNop()
	}
	if o.OpTimeout <= 0 {
		o.OpTimeout = 3 * time.Second
	}
	g := &Gateway{durable: durable, volatile: volatile, log: l, opt: o}
	g.migrate.Store(o.AutoMigrate)
	if durable != nil {
		g.up.Store(true)
		storeDurableUp.Set(1)
	} else {
		storeDurableUp.Set(0)
	}
	return g
}

type Status struct {
	Durable     string         `json:"durable"`
	DurableUp   bool           `json:"durableUp"`
	LastError   string         `json:"lastError,omitempty"`
	LastFailure *time.Time     `json:"lastFailure,omitempty"`
	Fallbacks   int64          `json:"fallbacks"`
	Volatile    VolatileCounts `json:"volatile"`
}

// Degraded is true while writes land (or have landed) outside the durable store.
func (s Status) Degraded() bool {
	v := s.Volatile
	return !s.DurableUp || v.Users+v.Forms+v.Submissions > 0
}

func (g *Gateway) Status() Status {
	st := Status{
		Durable:   "none",
		DurableUp: g.up.Load(),
		Fallbacks: g.fallbacks.Load(),
		Volatile:  g.volatile.Counts(),
	}
	if g.durable != nil {
		st.Durable = g.durable.Name()
	}
	g.mu.Lock()
	st.LastError = g.lastErr
	if !g.lastFail.IsZero() {
		t := g.lastFail
		st.LastFailure = &t
	}
	g.mu.Unlock()
	return st
}

func (g *Gateway) markDown(kind, op string, err error) {
	g.mu.Lock()
	g.lastErr = err.Error()
	g.lastFail = time.Now()
	g.mu.Unlock()
	if g.up.Swap(false) {
		storeDurableUp.Set(0)
		g.log.Warn("durable store failed, switching to volatile store",
			zap.String("store", g.durable.Name()),
			zap.String("kind", kind),
			zap.String("op", op),
			zap.Error(err),
		)
	}
}

// Probe pings the durable store and updates its health. With AutoMigrate
// the first successful ping also migrates; the store stays down until that
// succeeds. It returns the resulting health.
func (g *Gateway) Probe(ctx context.Context) bool {
	if g.durable == nil {
		return false
	}
	pctx, cancel := context.WithTimeout(ctx, g.opt.OpTimeout)
	defer cancel()
	if err := g.durable.Ping(pctx); err != nil {
		g.markDown("store", "ping", err)
		return false
	}
	if g.migrate.Load() {
		if err := g.durable.Migrate(pctx); err != nil {
			g.markDown("store", "migrate", err)
			return false
		}
		g.migrate.Store(false)
		g.log.Info("durable store migrated", zap.String("store", g.durable.Name()))
	}
	if !g.up.Swap(true) {
		storeDurableUp.Set(1)
		st := g.Status()
		g.log.Info("durable store recovered",
			zap.String("store", g.durable.Name()),
			zap.Int64("fallbacks", st.Fallbacks),
			zap.Any("volatile", st.Volatile), // 这些记录不会迁回 durable
		)
	}
	return true
}

// Run probes until ctx is done.
func (g *Gateway) Run(ctx context.Context) {
	if g.durable == nil || g.opt.ProbeInterval <= 0 {
		return
	}
	t := time.NewTicker(g.opt.ProbeInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			g.Probe(ctx)
		}
	}
}

func (g *Gateway) Close(ctx context.Context) error {
	if g.durable == nil {
		return nil
	}
	return g.durable.Close(ctx)
}

// run tries the durable store first and falls back to the volatile one on
// any failure that is not a domain outcome.
func run[T any](g *Gateway, ctx context.Context, kind, op string, fn func(context.Context, Store) (T, error)) (T, bool, error) {
	if g.durable != nil && g.up.Load() {
		dctx, cancel := context.WithTimeout(ctx, g.opt.OpTimeout)
		v, err := fn(dctx, g.durable)
		cancel()
		if err == nil || isOutcome(err) {
			return v, true, err
		}
		if ctx.Err() != nil {
			// 调用方自己取消，不算 durable 故障
			var zero T
			return zero, true, ctx.Err()
		}
		g.markDown(kind, op, err)
	}
	if g.durable != nil {
		g.fallbacks.Add(1)
		storeFallbackTotal.WithLabelValues(kind, op).Inc()
		g.log.Debug("served by volatile store", zap.String("kind", kind), zap.String("op", op))
	}
	v, err := fn(ctx, g.volatile)
	if err != nil && !isOutcome(err) {
		err = fmt.Errorf("volatile %s %s: %w", kind, op, err)
	}
	return v, false, err
}

// lookup is run plus a second look in the volatile store when the durable
// store answered NotFound.
func lookup[T any](g *Gateway, ctx context.Context, kind, op string, fn func(context.Context, Store) (T, error)) (T, error) {
	v, fromDurable, err := run(g, ctx, kind, op, fn)
	if fromDurable && errors.Is(err, domain.ErrNotFound) {
		return fn(ctx, g.volatile)
	}
	return v, err
}

// ---------- users ----------

func (g *Gateway) CreateUser(ctx context.Context, u *domain.User) error {
	_, _, err := run(g, ctx, "user", "create", func(ctx context.Context, s Store) (struct{}, error) {
		return struct{}{}, s.CreateUser(ctx, u)
	})
	return err
}

func (g *Gateway) FindUserByID(ctx context.Context, id string) (*domain.User, error) {
	return lookup(g, ctx, "user", "find", func(ctx context.Context, s Store) (*domain.User, error) {
		return s.FindUserByID(ctx, id)
	})
}

func (g *Gateway) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return lookup(g, ctx, "user", "find_email", func(ctx context.Context, s Store) (*domain.User, error) {
		return s.FindUserByEmail(ctx, email)
	})
}

type userPage struct {
	items []domain.User
	total int64
}

func (g *Gateway) ListUsers(ctx context.Context, offset, limit int) ([]domain.User, int64, error) {
	p, fromDurable, err := run(g, ctx, "user", "list", func(ctx context.Context, s Store) (userPage, error) {
		items, total, err := s.ListUsers(ctx, offset, limit)
		return userPage{items, total}, err
	})
	if err != nil {
		return nil, 0, err
	}
	if fromDurable {
		vAll, vTotal, _ := g.volatile.ListUsers(ctx, 0, 0)
		if vTotal > 0 {
			voff := offset - int(p.total)
			if voff < 0 {
				voff = 0
			}
			if need := limit - len(p.items); need > 0 {
				p.items = append(p.items, page(vAll, voff, need)...)
			}
			p.total += vTotal
		}
	}
	return p.items, p.total, nil
}

// ---------- forms ----------

func (g *Gateway) CreateForm(ctx context.Context, f *domain.Form) error {
	if errs := domain.ValidateForm(f); len(errs) > 0 {
		return domain.Validation(errs)
	}
	if g.volatileUser(f.UserID) {
		return g.volatile.CreateForm(ctx, f)
	}
	_, _, err := run(g, ctx, "form", "create", func(ctx context.Context, s Store) (struct{}, error) {
		return struct{}{}, s.CreateForm(ctx, f)
	})
	return err
}

// volatileUser/volatileForm 为 true 时记录只存在于内存库
func (g *Gateway) volatileUser(id string) bool {
	return g.durable != nil && g.volatile.HasUser(id)
}

func (g *Gateway) volatileForm(id string) bool {
	return g.durable != nil && g.volatile.HasForm(id)
}

func (g *Gateway) FindFormByID(ctx context.Context, id string) (*domain.Form, error) {
	return lookup(g, ctx, "form", "find", func(ctx context.Context, s Store) (*domain.Form, error) {
		return s.FindFormByID(ctx, id)
	})
}

func (g *Gateway) FindFormsByOwner(ctx context.Context, ownerID string) ([]domain.Form, error) {
	if g.volatileUser(ownerID) {
		return g.volatile.FindFormsByOwner(ctx, ownerID)
	}
	out, fromDurable, err := run(g, ctx, "form", "list", func(ctx context.Context, s Store) ([]domain.Form, error) {
		return s.FindFormsByOwner(ctx, ownerID)
	})
	if err != nil {
		return nil, err
	}
	if fromDurable {
		extra, _ := g.volatile.FindFormsByOwner(ctx, ownerID)
		if len(extra) > 0 {
			out = append(out, extra...)
			sortForms(out)
		}
	}
	return out, nil
}

func (g *Gateway) UpdateForm(ctx context.Context, id string, p domain.FormPatch) (*domain.Form, error) {
	if g.volatileForm(id) {
		return g.volatile.UpdateForm(ctx, id, p)
	}
	out, _, err := run(g, ctx, "form", "update", func(ctx context.Context, s Store) (*domain.Form, error) {
		return s.UpdateForm(ctx, id, p)
	})
	return out, err
}

func (g *Gateway) DeleteForm(ctx context.Context, id string) (*domain.Form, error) {
	if g.volatileForm(id) {
		return g.volatile.DeleteForm(ctx, id)
	}
	out, _, err := run(g, ctx, "form", "delete", func(ctx context.Context, s Store) (*domain.Form, error) {
		return s.DeleteForm(ctx, id)
	})
	return out, err
}

// ---------- submissions ----------

func (g *Gateway) CreateSubmission(ctx context.Context, sub *domain.Submission) error {
	if g.volatileForm(sub.FormID) {
		return g.volatile.CreateSubmission(ctx, sub)
	}
	_, _, err := run(g, ctx, "submission", "create", func(ctx context.Context, s Store) (struct{}, error) {
		return struct{}{}, s.CreateSubmission(ctx, sub)
	})
	return err
}

func (g *Gateway) FindSubmissionByID(ctx context.Context, id string) (*domain.Submission, error) {
	return lookup(g, ctx, "submission", "find", func(ctx context.Context, s Store) (*domain.Submission, error) {
		return s.FindSubmissionByID(ctx, id)
	})
}

func (g *Gateway) FindSubmissionsByForm(ctx context.Context, formID string) ([]domain.Submission, error) {
	if g.volatileForm(formID) {
		return g.volatile.FindSubmissionsByForm(ctx, formID)
	}
	out, fromDurable, err := run(g, ctx, "submission", "list", func(ctx context.Context, s Store) ([]domain.Submission, error) {
		return s.FindSubmissionsByForm(ctx, formID)
	})
	if err != nil {
		return nil, err
	}
	if fromDurable {
		extra, _ := g.volatile.FindSubmissionsByForm(ctx, formID)
		if len(extra) > 0 {
			out = append(out, extra...)
			sortSubmissions(out)
		}
	}
	return out, nil
}

var (
	_ domain.UserRepository       = (*Gateway)(nil)
	_ domain.FormRepository       = (*Gateway)(nil)
	_ domain.SubmissionRepository = (*Gateway)(nil)
)
