package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"github.com/spark-fund/backend/internal/crowdfund"
	"github.com/spark-fund/backend/internal/events"
	"github.com/spark-fund/backend/internal/metrics"
	"github.com/spark-fund/backend/internal/models"
	"github.com/spark-fund/backend/internal/rbac"
	"github.com/spark-fund/backend/internal/repositories"
	"go.uber.org/zap"
)

// ErrInvalidPageURL is returned for landing pages that are not absolute
// http(s) URLs.
var ErrInvalidPageURL = errors.New("page url must be an absolute http or https url")

var ErrInvalidStatus = errors.New("unknown campaign status")

type CampaignReader interface {
	GetView(ctx context.Context, id uuid.UUID, now int64) (*models.CampaignView, error)
	List(ctx context.Context, f repositories.CampaignFilter) ([]models.CampaignView, error)
	GetBacker(ctx context.Context, campaignID, backerID uuid.UUID) (*models.BackerData, error)
	ListBackers(ctx context.Context, campaignID uuid.UUID, limit, offset int) ([]models.BackerData, error)
	UpsertPage(ctx context.Context, campaignID uuid.UUID, url string) (*models.CampaignPage, error)
}

type AuditLogger interface {
	Log(ctx context.Context, entry models.AuditLog) error
	GetByEntity(ctx context.Context, entityType string, entityID uuid.UUID, limit, offset int) ([]models.AuditLog, error)
}

type CampaignService struct {
	engine    *crowdfund.Engine
	campaigns CampaignReader
	audit     AuditLogger
	publisher events.Publisher
	metrics   *metrics.CrowdfundMetrics
	log       *zap.Logger
}

func NewCampaignService(
	engine *crowdfund.Engine,
	campaigns CampaignReader,
	audit AuditLogger,
	publisher events.Publisher,
	m *metrics.CrowdfundMetrics,
	log *zap.Logger,
) *CampaignService {
	return &CampaignService{
		engine:    engine,
		campaigns: campaigns,
		audit:     audit,
		publisher: publisher,
		metrics:   m,
		log:       log,
	}
}

func (s *CampaignService) Create(ctx context.Context, creatorID uuid.UUID, p crowdfund.CreateCampaignParams) (*models.CampaignView, error) {
	c, err := s.engine.CreateCampaign(ctx, creatorID, p)
	s.observe("create", err)
	if err != nil {
		return nil, err
	}

	s.record(ctx, &creatorID, "campaign_created", c.ID, map[string]any{
		"seed":         c.Seed,
		"ending_at":    c.EndingAt,
		"funding_goal": c.FundingGoal,
	})
	s.publish(ctx, events.EventCampaignCreated, map[string]any{
		"campaign_id":  c.ID.String(),
		"creator_id":   creatorID.String(),
		"ending_at":    c.EndingAt,
		"funding_goal": c.FundingGoal,
	})

	s.log.Info("campaign created",
		zap.String("campaign_id", c.ID.String()),
		zap.String("creator_id", creatorID.String()),
		zap.Int64("funding_goal", c.FundingGoal),
	)

	now := s.engine.Now()
	return &models.CampaignView{Campaign: *c, Status: c.Status(now)}, nil
}

func (s *CampaignService) Pledge(ctx context.Context, campaignID, backerID uuid.UUID, amount int64) (*crowdfund.PledgeResult, error) {
	res, err := s.engine.Pledge(ctx, campaignID, backerID, amount)
	s.observe("pledge", err)
	if err != nil {
		return nil, err
	}
	s.metrics.AddPledged(amount)

	s.record(ctx, &backerID, "pledge_accepted", campaignID, map[string]any{
		"amount":        amount,
		"total_pledged": res.BackerData.TotalPledged,
	})
	s.publish(ctx, events.EventPledgeAccepted, map[string]any{
		"campaign_id":    campaignID.String(),
		"backer_id":      backerID.String(),
		"amount":         amount,
		"total_pledged":  res.BackerData.TotalPledged,
		"escrow_balance": res.EscrowBalance,
	})
	return res, nil
}

func (s *CampaignService) Withdraw(ctx context.Context, campaignID, callerID uuid.UUID) (*crowdfund.WithdrawResult, error) {
	res, err := s.engine.Withdraw(ctx, campaignID, callerID)
	s.observe("withdraw", err)
	if err != nil {
		return nil, err
	}
	s.metrics.AddWithdrawn(res.Amount)

	s.record(ctx, &callerID, "campaign_withdrawn", campaignID, map[string]any{"amount": res.Amount})
	s.publish(ctx, events.EventCampaignWithdrawn, map[string]any{
		"campaign_id": campaignID.String(),
		"creator_id":  callerID.String(),
		"amount":      res.Amount,
	})

	s.log.Info("campaign withdrawn",
		zap.String("campaign_id", campaignID.String()),
		zap.Int64("amount", res.Amount),
	)
	return res, nil
}

func (s *CampaignService) Get(ctx context.Context, id uuid.UUID) (*models.CampaignView, error) {
	return s.campaigns.GetView(ctx, id, s.engine.Now())
}

func (s *CampaignService) List(ctx context.Context, f repositories.CampaignFilter) ([]models.CampaignView, error) {
	if f.Status != nil && !models.IsValidCampaignStatus(*f.Status) {
		return nil, fmt.Errorf("%w %q", ErrInvalidStatus, *f.Status)
	}
	f.Now = s.engine.Now()
	return s.campaigns.List(ctx, f)
}

func (s *CampaignService) GetBacker(ctx context.Context, campaignID, backerID uuid.UUID) (*models.BackerData, error) {
	return s.campaigns.GetBacker(ctx, campaignID, backerID)
}

func (s *CampaignService) ListBackers(ctx context.Context, campaignID uuid.UUID, limit, offset int) ([]models.BackerData, error) {
	return s.campaigns.ListBackers(ctx, campaignID, limit, offset)
}

// SetPage attaches a landing page. Only the creator may do this.
func (s *CampaignService) SetPage(ctx context.Context, campaignID, callerID uuid.UUID, pageURL string) (*models.CampaignPage, error) {
	u, err := url.Parse(pageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, ErrInvalidPageURL
	}

	c, err := s.campaigns.GetView(ctx, campaignID, s.engine.Now())
	if err != nil {
		return nil, err
	}
	if !rbac.HasPermission(rbac.RoleFor(c.CreatorID, callerID), rbac.PermEditPage) {
		return nil, crowdfund.ErrUnauthorizedCreator
	}

	page, err := s.campaigns.UpsertPage(ctx, campaignID, u.String())
	if err != nil {
		return nil, err
	}
	s.record(ctx, &callerID, "campaign_page_set", campaignID, map[string]any{"url": page.URL})
	return page, nil
}

func (s *CampaignService) Events(ctx context.Context, campaignID uuid.UUID, limit, offset int) ([]models.AuditLog, error) {
	return s.audit.GetByEntity(ctx, "campaign", campaignID, limit, offset)
}

func (s *CampaignService) observe(op string, err error) {
	switch {
	case err == nil:
		s.metrics.ObserveOperation(op, metrics.ResultOK, "")
	case crowdfund.Code(err) != "":
		s.metrics.ObserveOperation(op, metrics.ResultRejected, crowdfund.Code(err))
	default:
		s.metrics.ObserveOperation(op, metrics.ResultError, "")
		s.log.Error("campaign operation failed", zap.String("op", op), zap.Error(err))
	}
}

func (s *CampaignService) record(ctx context.Context, actor *uuid.UUID, action string, campaignID uuid.UUID, meta map[string]any) {
	if err := s.audit.Log(ctx, models.AuditLog{
		ActorAccountID: actor,
		ActorType:      "user",
		Action:         action,
		EntityType:     "campaign",
		EntityID:       &campaignID,
		Meta:           meta,
	}); err != nil {
		s.log.Warn("audit log failed", zap.String("action", action), zap.Error(err))
	}
}

func (s *CampaignService) publish(ctx context.Context, eventType string, payload map[string]any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, events.StreamCampaign, events.Event{Type: eventType, Payload: payload}); err != nil {
		s.log.Warn("publish event failed", zap.String("type", eventType), zap.Error(err))
	}
}
