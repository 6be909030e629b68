package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spark-fund/backend/internal/crowdfund"
	"github.com/spark-fund/backend/internal/models"
)

// CampaignRepo serves campaign reads. Writes go through Store.
type CampaignRepo struct {
	pool *pgxpool.Pool
}

func NewCampaignRepo(pool *pgxpool.Pool) *CampaignRepo {
	return &CampaignRepo{pool: pool}
}

const campaignViewSelect = `
	SELECT c.id, c.seed, c.creator_id, c.vault_id, c.started_at, c.ending_at,
	       c.funding_goal, c.is_finished, c.created_at, a.balance,
	       p.url, p.title, p.description, p.image_url, p.fetched_at, p.updated_at
	FROM campaigns c
	JOIN accounts a ON a.id = c.vault_id
	LEFT JOIN campaign_pages p ON p.campaign_id = c.id
`

func scanCampaignView(row pgx.Row, now int64) (*models.CampaignView, error) {
	var v models.CampaignView
	var pageURL *string
	var page models.CampaignPage
	var pageUpdated *time.Time
	dest := append(campaignDest(&v.Campaign), &v.EscrowBalance,
		&pageURL, &page.Title, &page.Description, &page.ImageURL, &page.FetchedAt, &pageUpdated)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	v.Status = v.Campaign.Status(now)
	if pageURL != nil {
		page.CampaignID = v.ID
		page.URL = *pageURL
		if pageUpdated != nil {
			page.UpdatedAt = *pageUpdated
		}
		v.Page = &page
	}
	return &v, nil
}

func (r *CampaignRepo) GetView(ctx context.Context, id uuid.UUID, now int64) (*models.CampaignView, error) {
	v, err := scanCampaignView(r.pool.QueryRow(ctx, campaignViewSelect+` WHERE c.id = $1`, id), now)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, crowdfund.ErrCampaignNotFound
	}
	return v, err
}

type CampaignFilter struct {
	CreatorID *uuid.UUID
	Status    *string // derived status, evaluated at Now
	Now       int64
	Limit     int
	Offset    int
}

func (r *CampaignRepo) List(ctx context.Context, f CampaignFilter) ([]models.CampaignView, error) {
	query := campaignViewSelect
	args := []any{}
	argIdx := 1
	where := []string{}

	if f.CreatorID != nil {
		where = append(where, fmt.Sprintf("c.creator_id = $%d", argIdx))
		args = append(args, *f.CreatorID)
		argIdx++
	}
	if f.Status != nil {
		switch *f.Status {
		case models.CampaignStatusOpen:
			where = append(where, fmt.Sprintf("c.is_finished = false AND c.ending_at > $%d", argIdx))
			args = append(args, f.Now)
			argIdx++
		case models.CampaignStatusAwaitingWithdrawal:
			where = append(where, fmt.Sprintf("c.is_finished = false AND c.ending_at <= $%d", argIdx))
			args = append(args, f.Now)
			argIdx++
		case models.CampaignStatusWithdrawn:
			where = append(where, "c.is_finished = true")
		default:
			return nil, fmt.Errorf("unknown campaign status %q", *f.Status)
		}
	}

	if len(where) > 0 {
		query += " WHERE "
		for i, w := range where {
			if i > 0 {
				query += " AND "
			}
			query += w
		}
	}

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query += fmt.Sprintf(" ORDER BY c.created_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var campaigns []models.CampaignView
	for rows.Next() {
		v, err := scanCampaignView(rows, f.Now)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, *v)
	}
	return campaigns, rows.Err()
}

// ListEnded returns unfinished campaigns whose deadline is at or before now
// and whose end has not been announced yet.
func (r *CampaignRepo) ListEnded(ctx context.Context, now int64, limit int) ([]models.CampaignView, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, campaignViewSelect+`
		WHERE c.is_finished = false AND c.ended_announced_at IS NULL AND c.ending_at <= $1
		ORDER BY c.ending_at ASC LIMIT $2
	`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var campaigns []models.CampaignView
	for rows.Next() {
		v, err := scanCampaignView(rows, now)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, *v)
	}
	return campaigns, rows.Err()
}

// MarkEndedAnnounced drops the campaign from later ListEnded results.
func (r *CampaignRepo) MarkEndedAnnounced(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE campaigns SET ended_announced_at = now()
		WHERE id = $1 AND ended_announced_at IS NULL
	`, id)
	return err
}

// ---- Backers ----

func (r *CampaignRepo) GetBacker(ctx context.Context, campaignID, backerID uuid.UUID) (*models.BackerData, error) {
	var bd models.BackerData
	err := r.pool.QueryRow(ctx, `
		SELECT id, campaign_id, backer_id, total_pledged, created_at, updated_at
		FROM backer_data WHERE campaign_id = $1 AND backer_id = $2
	`, campaignID, backerID).Scan(&bd.ID, &bd.CampaignID, &bd.BackerID, &bd.TotalPledged, &bd.CreatedAt, &bd.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &bd, nil
}

func (r *CampaignRepo) ListBackers(ctx context.Context, campaignID uuid.UUID, limit, offset int) ([]models.BackerData, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, campaign_id, backer_id, total_pledged, created_at, updated_at
		FROM backer_data WHERE campaign_id = $1
		ORDER BY total_pledged DESC, created_at ASC LIMIT $2 OFFSET $3
	`, campaignID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var backers []models.BackerData
	for rows.Next() {
		var bd models.BackerData
		if err := rows.Scan(&bd.ID, &bd.CampaignID, &bd.BackerID, &bd.TotalPledged, &bd.CreatedAt, &bd.UpdatedAt); err != nil {
			return nil, err
		}
		backers = append(backers, bd)
	}
	return backers, rows.Err()
}

// ---- Landing pages ----

// UpsertPage attaches url to the campaign. Changing the url clears the
// previously fetched metadata.
func (r *CampaignRepo) UpsertPage(ctx context.Context, campaignID uuid.UUID, url string) (*models.CampaignPage, error) {
	p := models.CampaignPage{CampaignID: campaignID, URL: url}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO campaign_pages (campaign_id, url)
		VALUES ($1, $2)
		ON CONFLICT (campaign_id) DO UPDATE SET
			url = EXCLUDED.url,
			title = CASE WHEN campaign_pages.url = EXCLUDED.url THEN campaign_pages.title END,
			description = CASE WHEN campaign_pages.url = EXCLUDED.url THEN campaign_pages.description END,
			image_url = CASE WHEN campaign_pages.url = EXCLUDED.url THEN campaign_pages.image_url END,
			fetched_at = CASE WHEN campaign_pages.url = EXCLUDED.url THEN campaign_pages.fetched_at END,
			updated_at = now()
		RETURNING title, description, image_url, fetched_at, updated_at
	`, campaignID, url).Scan(&p.Title, &p.Description, &p.ImageURL, &p.FetchedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListStalePages returns pages never fetched or fetched before olderThan
// seconds ago.
func (r *CampaignRepo) ListStalePages(ctx context.Context, olderThanSeconds int, limit int) ([]models.CampaignPage, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT campaign_id, url, title, description, image_url, fetched_at, updated_at
		FROM campaign_pages
		WHERE fetched_at IS NULL OR fetched_at < now() - ($1 || ' seconds')::interval
		ORDER BY fetched_at ASC NULLS FIRST LIMIT $2
	`, fmt.Sprintf("%d", olderThanSeconds), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pages []models.CampaignPage
	for rows.Next() {
		var p models.CampaignPage
		if err := rows.Scan(&p.CampaignID, &p.URL, &p.Title, &p.Description, &p.ImageURL, &p.FetchedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

func (r *CampaignRepo) UpdatePageMeta(ctx context.Context, campaignID uuid.UUID, url string, title, description, imageURL *string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE campaign_pages SET title = $1, description = $2, image_url = $3, fetched_at = now()
		WHERE campaign_id = $4 AND url = $5
	`, title, description, imageURL, campaignID, url)
	return err
}
