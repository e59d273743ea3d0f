package main

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/opencolorado/datamap/internal/catalog"
	"github.com/opencolorado/datamap/internal/fetcher"
	"github.com/opencolorado/datamap/internal/heatmap"
	"github.com/opencolorado/datamap/internal/store"
)

// env bundles the wired-up services the commands share.
type env struct {
	Store  *store.SQLiteStore
	Engine *heatmap.Engine
}

func (e *env) Close() {
	_ = e.Store.Close()
}

func initEnv(ctx context.Context) (*env, error) {
	s, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close()
		return nil, err
	}

	httpF := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		RateLimiters: map[string]*rate.Limiter{
			// The primary catalog host tolerates more than the default.
			"data.opencolorado.org": rate.NewLimiter(rate.Every(200*time.Millisecond), 5),
		},
	})
	ftpF := fetcher.NewFTPFetcher(fetcher.FTPOptions{})

	eng, err := heatmap.NewEngine(
		catalog.New(cfg.Catalog.BaseURL, cfg.Catalog.APIKey),
		fetcher.NewRouter(httpF, ftpF),
		s,
		cfg,
	)
	if err != nil {
		s.Close()
		return nil, err
	}

	return &env{Store: s, Engine: eng}, nil
}
