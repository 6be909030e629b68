package crowdfund

import "errors"

// Error is a typed failure of a crowdfunding operation. Code is stable and
// safe to hand to API clients.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

func newError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

var (
	ErrPledgeAmountZero             = newError("PledgeAmountZero", "pledge amount must be greater than zero")
	ErrCampaignHasFinished          = newError("CampaignHasFinished", "campaign has finished, pledges are closed")
	ErrUnauthorizedCreator          = newError("UnauthorizedCreator", "only the campaign creator can withdraw")
	ErrCampaignFailedNotEnoughFunds = newError("CampaignFailedNotEnoughFunds", "campaign did not reach its funding goal")
	ErrCampaignStillRunning         = newError("CampaignStillRunning", "campaign is still running")
	ErrCampaignAlreadyWithdrawn     = newError("CampaignAlreadyWithdrawn", "campaign funds were already withdrawn")

	ErrInvalidFundingGoal   = newError("InvalidFundingGoal", "funding goal must be greater than zero")
	ErrInvalidDeadline      = newError("InvalidDeadline", "ending_at must be in the future")
	ErrCampaignExists       = newError("CampaignAlreadyExists", "campaign with this seed already exists for creator")
	ErrCampaignNotFound     = newError("CampaignNotFound", "campaign not found")
	ErrAccountNotFound      = newError("AccountNotFound", "account not found")
	ErrAccountExists        = newError("AccountAlreadyExists", "account already exists")
	ErrInsufficientFunds    = newError("InsufficientFunds", "insufficient balance")
	ErrAmountOverflow       = newError("AmountOverflow", "amount overflows balance")
	ErrInvalidAmount        = newError("InvalidAmount", "amount must not be negative")
	ErrDuplicateExternalRef = newError("DuplicateExternalRef", "external reference already recorded")
	ErrInvalidDepositTarget = newError("InvalidDepositTarget", "deposits can only credit user accounts")
)

// Code returns the stable error code of err, or "" when err did not come
// from this package.
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
