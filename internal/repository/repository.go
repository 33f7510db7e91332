package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/dakghar-dev/postal-portal/backend/internal/config"
)

type Repository struct {
	cfg    *config.Config
	dbpool *sql.DB
}

func NewRepository(cfg *config.Config, dbpool *sql.DB) *Repository {
	return &Repository{
		cfg:    cfg,
		dbpool: dbpool,
	}
}

func (r *Repository) queryContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
}

// Ping reports database reachability for the health endpoint.
func (r *Repository) Ping() error {
	ctx, cancel := r.queryContext()
	defer cancel()

	return r.dbpool.PingContext(ctx)
}
