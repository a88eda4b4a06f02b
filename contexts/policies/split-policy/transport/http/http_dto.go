package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CreateInstanceRequest struct {
	Node                  string   `json:"node,omitempty"`
	Owner                 string   `json:"owner"`
	FundingAccount        string   `json:"funding_account"`
	FallbackRecipient     string   `json:"fallback_recipient,omitempty"`
	AcceptedAssets        []string `json:"accepted_assets,omitempty"`
	AutoDistribute        bool     `json:"auto_distribute"`
	RequireFullAllocation bool     `json:"require_full_allocation"`
}

type SplitRuleDTO struct {
	Recipient     string `json:"recipient"`
	PercentageBps int64  `json:"percentage_bps"`
	FixedAmount   int64  `json:"fixed_amount"`
	MinAmount     int64  `json:"min_amount"`
	MaxAmount     int64  `json:"max_amount"`
	Active        bool   `json:"active"`
	Label         string `json:"label,omitempty"`
}

type TierDTO struct {
	Threshold     int64 `json:"threshold"`
	PercentageBps int64 `json:"percentage_bps"`
	Active        bool  `json:"active"`
}

type InstanceDTO struct {
	InstanceID            string         `json:"instance_id"`
	Node                  string         `json:"node,omitempty"`
	Owner                 string         `json:"owner"`
	Managers              []string       `json:"managers,omitempty"`
	FundingAccount        string         `json:"funding_account"`
	FallbackRecipient     string         `json:"fallback_recipient,omitempty"`
	AcceptedAssets        []string       `json:"accepted_assets,omitempty"`
	AutoDistribute        bool           `json:"auto_distribute"`
	RequireFullAllocation bool           `json:"require_full_allocation"`
	Rules                 []SplitRuleDTO `json:"rules"`
	Tiers                 []TierDTO      `json:"tiers"`
}

type InstanceResponse struct {
	Status string      `json:"status"`
	Data   InstanceDTO `json:"data"`
}

type AddRuleRequest struct {
	Recipient     string `json:"recipient"`
	PercentageBps int64  `json:"percentage_bps"`
	FixedAmount   int64  `json:"fixed_amount,omitempty"`
	MinAmount     int64  `json:"min_amount,omitempty"`
	MaxAmount     int64  `json:"max_amount,omitempty"`
	Label         string `json:"label,omitempty"`
}

type UpdateRuleRequest struct {
	PercentageBps int64  `json:"percentage_bps"`
	FixedAmount   int64  `json:"fixed_amount,omitempty"`
	MinAmount     int64  `json:"min_amount,omitempty"`
	MaxAmount     int64  `json:"max_amount,omitempty"`
	Label         string `json:"label,omitempty"`
	Active        bool   `json:"active"`
}

type AddTierRequest struct {
	Threshold     int64 `json:"threshold"`
	PercentageBps int64 `json:"percentage_bps"`
}

type SetTierActiveRequest struct {
	Active bool `json:"active"`
}

type ManagerRequest struct {
	Manager string `json:"manager"`
}

type SetAcceptedAssetsRequest struct {
	Assets []string `json:"assets"`
}

type MakePaymentRequest struct {
	Payer     string `json:"payer"`
	Asset     string `json:"asset"`
	Amount    int64  `json:"amount"`
	SplitType string `json:"split_type,omitempty"`
	Memo      string `json:"memo,omitempty"`
}

type PaymentDTO struct {
	Index      int    `json:"index"`
	Payer      string `json:"payer"`
	Asset      string `json:"asset"`
	Amount     int64  `json:"amount"`
	SplitType  string `json:"split_type"`
	Memo       string `json:"memo,omitempty"`
	SplitCount int    `json:"split_count"`
	ReceivedAt string `json:"received_at"`
}

type LegResultDTO struct {
	Recipient string `json:"recipient"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

type DistributionResultDTO struct {
	PaymentIndex       int            `json:"payment_index"`
	SplitType          string         `json:"split_type"`
	Legs               []LegResultDTO `json:"legs"`
	TotalDistributed   int64          `json:"total_distributed"`
	Remainder          int64          `json:"remainder"`
	RemainderRecipient string         `json:"remainder_recipient,omitempty"`
	RemainderRouted    bool           `json:"remainder_routed"`
}

type MakePaymentResponse struct {
	Status       string                 `json:"status"`
	Data         PaymentDTO             `json:"data"`
	Distribution *DistributionResultDTO `json:"distribution,omitempty"`
}

type DistributeResponse struct {
	Status string                `json:"status"`
	Data   DistributionResultDTO `json:"data"`
}

type PreviewSplitRequest struct {
	Amount    int64  `json:"amount"`
	SplitType string `json:"split_type,omitempty"`
}

type ShareDTO struct {
	Recipient string `json:"recipient"`
	Amount    int64  `json:"amount"`
}

type PreviewSplitResponse struct {
	Status    string     `json:"status"`
	Data      []ShareDTO `json:"data"`
	Remainder int64      `json:"remainder"`
}

type PaymentHistoryResponse struct {
	Status string       `json:"status"`
	Data   []PaymentDTO `json:"data"`
}

type DistributionDTO struct {
	PaymentIndex  int    `json:"payment_index"`
	Recipient     string `json:"recipient"`
	Asset         string `json:"asset"`
	Amount        int64  `json:"amount"`
	DistributedAt string `json:"distributed_at"`
}

type DistributionHistoryResponse struct {
	Status string            `json:"status"`
	Data   []DistributionDTO `json:"data"`
}

type RecipientBalanceDTO struct {
	Recipient string `json:"recipient"`
	Asset     string `json:"asset"`
	Total     int64  `json:"total"`
}

type BalancesResponse struct {
	Status string                `json:"status"`
	Data   []RecipientBalanceDTO `json:"data"`
}

type BalanceResponse struct {
	Status string              `json:"status"`
	Data   RecipientBalanceDTO `json:"data"`
}
