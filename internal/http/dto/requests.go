package dto

// Campaigns

// CreateCampaignRequest takes the goal either in nanoTON or as a decimal TON
// string. funding_goal wins when both are set.
type CreateCampaignRequest struct {
	Seed           int64  `json:"seed"`
	EndingAt       int64  `json:"ending_at"` // unix seconds
	FundingGoal    int64  `json:"funding_goal"`
	FundingGoalTON string `json:"funding_goal_ton"`
}

type PledgeRequest struct {
	Amount    int64  `json:"amount"` // nanoTON
	AmountTON string `json:"amount_ton"`
}

type SetPageRequest struct {
	URL string `json:"url"`
}
