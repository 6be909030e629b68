package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spark-fund/backend/internal/events"
	"github.com/spark-fund/backend/internal/metrics"
	"github.com/spark-fund/backend/internal/models"
	"go.uber.org/zap"
)

const (
	endedMarkerTTL = 30 * 24 * time.Hour
	sweepBatch     = 200
)

// EndedLister returns ended campaigns that were not announced yet.
// MarkEndedAnnounced must remove a campaign from later ListEnded results.
type EndedLister interface {
	ListEnded(ctx context.Context, now int64, limit int) ([]models.CampaignView, error)
	MarkEndedAnnounced(ctx context.Context, id uuid.UUID) error
}

// DeadlineSweeper announces every campaign whose deadline has passed exactly
// once. Nothing on-chain changes; creators still have to withdraw.
//
// The Redis marker keeps concurrent workers from publishing twice; the
// announced flag in the database keeps announced campaigns out of the next
// batch so failed campaigns that are never withdrawn cannot starve newer ones.
type DeadlineSweeper struct {
	campaigns EndedLister
	marker    Marker
	publisher events.Publisher
	metrics   *metrics.CrowdfundMetrics
	nowFn     func() int64
	log       *zap.Logger
}

func NewDeadlineSweeper(campaigns EndedLister, marker Marker, publisher events.Publisher, m *metrics.CrowdfundMetrics, nowFn func() int64, log *zap.Logger) *DeadlineSweeper {
	return &DeadlineSweeper{
		campaigns: campaigns,
		marker:    marker,
		publisher: publisher,
		metrics:   m,
		nowFn:     nowFn,
		log:       log,
	}
}

// Run returns the number of campaigns announced in this pass.
func (s *DeadlineSweeper) Run(ctx context.Context) (int, error) {
	ended, err := s.campaigns.ListEnded(ctx, s.nowFn(), sweepBatch)
	if err != nil {
		return 0, fmt.Errorf("list ended campaigns: %w", err)
	}

	announced := 0
	for _, c := range ended {
		key := "campaign:ended:" + c.ID.String()
		fresh, err := s.marker.Mark(ctx, key, endedMarkerTTL)
		if err != nil {
			s.log.Warn("ended marker failed", zap.String("campaign_id", c.ID.String()), zap.Error(err))
			continue
		}
		if !fresh {
			// published earlier but the flag write was lost
			s.markAnnounced(ctx, c.ID)
			continue
		}

		goalReached := c.EscrowBalance >= c.FundingGoal
		if err := s.publisher.Publish(ctx, events.StreamCampaign, events.Event{
			Type: events.EventCampaignEnded,
			Payload: map[string]any{
				"campaign_id":    c.ID.String(),
				"creator_id":     c.CreatorID.String(),
				"goal_reached":   goalReached,
				"escrow_balance": c.EscrowBalance,
				"funding_goal":   c.FundingGoal,
			},
		}); err != nil {
			s.log.Warn("publish campaign_ended failed", zap.String("campaign_id", c.ID.String()), zap.Error(err))
			if err := s.marker.Release(ctx, key); err != nil {
				s.log.Warn("release ended marker failed", zap.String("campaign_id", c.ID.String()), zap.Error(err))
			}
			continue
		}
		s.markAnnounced(ctx, c.ID)
		s.metrics.ObserveCampaignEnded(goalReached)
		announced++

		s.log.Info("campaign ended",
			zap.String("campaign_id", c.ID.String()),
			zap.Bool("goal_reached", goalReached),
			zap.Int64("escrow_balance", c.EscrowBalance),
		)
	}
	return announced, nil
}

func (s *DeadlineSweeper) markAnnounced(ctx context.Context, id uuid.UUID) {
	if err := s.campaigns.MarkEndedAnnounced(ctx, id); err != nil {
		s.log.Warn("mark campaign announced failed", zap.String("campaign_id", id.String()), zap.Error(err))
	}
}
