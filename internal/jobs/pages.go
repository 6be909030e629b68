package jobs

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spark-fund/backend/internal/metrics"
	"github.com/spark-fund/backend/internal/models"
	"github.com/spark-fund/backend/internal/pageparser"
	"go.uber.org/zap"
)

type PageStore interface {
	ListStalePages(ctx context.Context, olderThanSeconds int, limit int) ([]models.CampaignPage, error)
	UpdatePageMeta(ctx context.Context, campaignID uuid.UUID, url string, title, description, imageURL *string) error
}

type PageFetcher interface {
	FetchAndParse(ctx context.Context, pageURL string) (*pageparser.PageMeta, error)
}

// PageRefresher re-reads campaign landing pages and stores their preview
// metadata.
type PageRefresher struct {
	pages   PageStore
	fetcher PageFetcher
	maxAge  int // seconds
	metrics *metrics.CrowdfundMetrics
	log     *zap.Logger
}

func NewPageRefresher(pages PageStore, fetcher PageFetcher, maxAgeSeconds int, m *metrics.CrowdfundMetrics, log *zap.Logger) *PageRefresher {
	return &PageRefresher{pages: pages, fetcher: fetcher, maxAge: maxAgeSeconds, metrics: m, log: log}
}

// Run returns how many pages were refreshed. A page that fails to load is
// left for the next pass.
func (r *PageRefresher) Run(ctx context.Context) (int, error) {
	stale, err := r.pages.ListStalePages(ctx, r.maxAge, 50)
	if err != nil {
		return 0, fmt.Errorf("list stale pages: %w", err)
	}

	refreshed := 0
	for _, p := range stale {
		if ctx.Err() != nil {
			return refreshed, ctx.Err()
		}

		meta, err := r.fetcher.FetchAndParse(ctx, p.URL)
		if err != nil {
			r.metrics.ObservePageFetch(metrics.ResultError)
			r.log.Warn("page fetch failed", zap.String("campaign_id", p.CampaignID.String()), zap.String("url", p.URL), zap.Error(err))
			continue
		}
		r.metrics.ObservePageFetch(metrics.ResultOK)

		if err := r.pages.UpdatePageMeta(ctx, p.CampaignID, p.URL, meta.Title, meta.Description, meta.ImageURL); err != nil {
			r.log.Error("store page meta", zap.String("campaign_id", p.CampaignID.String()), zap.Error(err))
			continue
		}
		refreshed++
	}
	return refreshed, nil
}
