package dto

type AuthResponse struct {
	Token   string `json:"token"`
	Account any    `json:"account"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type SuccessResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data,omitempty"`
}

type PayloadResponse struct {
	Payload string `json:"payload"`
}

// DepositInfoResponse tells a wallet where and how to top up its balance.
type DepositInfoResponse struct {
	WalletAddress string `json:"wallet_address"`
	Memo          string `json:"memo"`
}

type AccountResponse struct {
	Account    any    `json:"account"`
	BalanceTON string `json:"balance_ton"`
	Deposit    any    `json:"deposit"`
}
