package models

import (
	"time"

	"github.com/google/uuid"
)

// Campaign statuses. The status is derived from the clock and is_finished,
// it is never stored.
const (
	CampaignStatusOpen               = "open"
	CampaignStatusAwaitingWithdrawal = "awaiting_withdrawal"
	CampaignStatusWithdrawn          = "withdrawn"
)

// Valid state transitions: from -> []to
var ValidCampaignTransitions = map[string][]string{
	CampaignStatusOpen:               {CampaignStatusAwaitingWithdrawal},
	CampaignStatusAwaitingWithdrawal: {CampaignStatusWithdrawn},
	CampaignStatusWithdrawn:          {},
}

func IsValidCampaignTransition(from, to string) bool {
	allowed, ok := ValidCampaignTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

func IsValidCampaignStatus(s string) bool {
	_, ok := ValidCampaignTransitions[s]
	return ok
}

type Campaign struct {
	ID          uuid.UUID `json:"id"`
	Seed        int64     `json:"seed"`
	CreatorID   uuid.UUID `json:"creator_id"`
	VaultID     uuid.UUID `json:"vault_id"`
	StartedAt   int64     `json:"started_at"`   // unix seconds
	EndingAt    int64     `json:"ending_at"`    // unix seconds
	FundingGoal int64     `json:"funding_goal"` // nanoTON
	IsFinished  bool      `json:"is_finished"`
	CreatedAt   time.Time `json:"created_at"`
}

// Status reports where the campaign is in its lifecycle at unix time now.
func (c *Campaign) Status(now int64) string {
	switch {
	case c.IsFinished:
		return CampaignStatusWithdrawn
	case now < c.EndingAt:
		return CampaignStatusOpen
	default:
		return CampaignStatusAwaitingWithdrawal
	}
}

// AcceptsPledges is true strictly before the deadline.
func (c *Campaign) AcceptsPledges(now int64) bool {
	return now < c.EndingAt
}

// DeadlinePassed is true strictly after the deadline.
func (c *Campaign) DeadlinePassed(now int64) bool {
	return now > c.EndingAt
}

// CampaignView is a campaign joined with its escrow balance for reads.
type CampaignView struct {
	Campaign
	EscrowBalance int64         `json:"escrow_balance"`
	Status        string        `json:"status"`
	Page          *CampaignPage `json:"page,omitempty"`
}

type BackerData struct {
	ID           uuid.UUID `json:"id"`
	CampaignID   uuid.UUID `json:"campaign_id"`
	BackerID     uuid.UUID `json:"backer_id"`
	TotalPledged int64     `json:"total_pledged"` // nanoTON
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type CampaignPage struct {
	CampaignID  uuid.UUID  `json:"campaign_id"`
	URL         string     `json:"url"`
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	ImageURL    *string    `json:"image_url,omitempty"`
	FetchedAt   *time.Time `json:"fetched_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
