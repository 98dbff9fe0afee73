package repo

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"formcraft/internal/core/config"
	"formcraft/internal/core/database"
)

// OpenDurable builds the configured durable store without connecting to it;
// an unreachable database shows up on the first Ping. A nil Store with a nil
// error means the memory driver was chosen.
func OpenDurable(ctx context.Context, c config.Store, log *zap.Logger) (Store, error) {
	var s Store
	switch c.Driver {
	case "memory", "":
		return nil, nil
	case "mongo":
		client, err := database.NewMongo(database.MongoOpts{
			URI:         c.URI,
			Username:    c.Username,
			Password:    c.Password,
			MaxPoolSize: c.MaxOpenConns,
			Timeout:     c.OpTimeout(),
		})
		if err != nil {
			return nil, fmt.Errorf("mongo client: %w", err)
		}
		s = NewMongoStore(client, c.Database)
	case "postgres", "mysql":
		db, err := database.NewGorm(database.Opts{
			Driver:             c.Driver,
			DSN:                c.URI,
			Username:           c.Username,
			Password:           c.Password,
			MaxOpenConns:       c.MaxOpenConns,
			MaxIdleConns:       c.MaxIdleConns,
			ConnMaxLifetimeMin: c.ConnMaxLifetimeMin,
			LogLevel:           c.LogLevel,
			Log:                log,
		})
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", c.Driver, err)
		}
		s = NewGormStore(db, c.Driver)
	default:
		return nil, fmt.Errorf("store driver %q: %w", c.Driver, database.ErrUnsupportedDriver)
	}
	return s, nil
}

// NewGatewayFromConfig opens the durable store and wraps it. An unreachable
// database is marked down by the first probe and picked up again by Run.
// Only a configuration error (bad driver, unparsable URI) leaves the gateway
// memory-only.
func NewGatewayFromConfig(ctx context.Context, c config.Store, log *zap.Logger) *Gateway {
	durable, err := OpenDurable(ctx, c, log)
	if err != nil {
		log.Warn("durable store unavailable, using memory store only", zap.Error(err))
		durable = nil
	}
	g := NewGateway(durable, NewMemoryStore(), log, Options{
		OpTimeout:     c.OpTimeout(),
		ProbeInterval: c.ProbeInterval(),
		AutoMigrate:   c.AutoMigrate,
	})
	if durable != nil {
		g.Probe(ctx)
	}
	log.Info("store ready", zap.Any("status", g.Status()))
	return g
}
