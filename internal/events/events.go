package events

import "context"

// StreamCampaign carries every campaign and ledger event.
const StreamCampaign = "events:campaign"

// Event types
const (
	EventCampaignCreated   = "campaign_created"
	EventPledgeAccepted    = "pledge_accepted"
	EventCampaignWithdrawn = "campaign_withdrawn"
	EventCampaignEnded     = "campaign_ended"
	EventDepositReceived   = "deposit_received"
)

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}
