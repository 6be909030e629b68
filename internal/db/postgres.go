package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	connectAttempts = 5
	connectBackoff  = time.Second
)

// NewPostgresPool opens a pool and waits for the database to answer. maxConns
// <= 0 keeps the default of 20.
func NewPostgresPool(ctx context.Context, dsn string, maxConns int32, log *zap.Logger) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	cfg.MaxConns = 20
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	cfg.MinConns = 2
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := retry(ctx, "postgres", log, pool.Ping); err != nil {
		pool.Close()
		return nil, err
	}

	log.Info("postgres pool created", zap.Int32("max_conns", cfg.MaxConns))
	return pool, nil
}

// RegisterPoolMetrics exposes pgxpool usage as gauges on reg.
func RegisterPoolMetrics(reg prometheus.Registerer, pool *pgxpool.Pool) error {
	gauges := map[string]func(*pgxpool.Stat) float64{
		"acquired_conns": func(s *pgxpool.Stat) float64 { return float64(s.AcquiredConns()) },
		"idle_conns":     func(s *pgxpool.Stat) float64 { return float64(s.IdleConns()) },
		"total_conns":    func(s *pgxpool.Stat) float64 { return float64(s.TotalConns()) },
		"max_conns":      func(s *pgxpool.Stat) float64 { return float64(s.MaxConns()) },
	}
	for name, read := range gauges {
		read := read
		g := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "spark",
			Subsystem: "pgpool",
			Name:      name,
		}, func() float64 { return read(pool.Stat()) })
		if err := reg.Register(g); err != nil {
			return err
		}
	}
	return nil
}

// retry calls ping until it succeeds, doubling the wait between attempts.
func retry(ctx context.Context, name string, log *zap.Logger, ping func(context.Context) error) error {
	wait := connectBackoff
	var err error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		if err = ping(ctx); err == nil {
			return nil
		}
		if attempt == connectAttempts {
			break
		}
		log.Warn("connection not ready, retrying",
			zap.String("target", name),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
	return err
}
