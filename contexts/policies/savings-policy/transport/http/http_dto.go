package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CreateInstanceRequest struct {
	Node            string `json:"node,omitempty"`
	Owner           string `json:"owner"`
	Guardian        string `json:"guardian,omitempty"`
	VaultAccount    string `json:"vault_account"`
	FeeRecipient    string `json:"fee_recipient,omitempty"`
	EmergencyFeeBps int64  `json:"emergency_fee_bps,omitempty"`
	TimeLockSeconds int64  `json:"time_lock_seconds,omitempty"`
}

type InstanceDTO struct {
	InstanceID      string `json:"instance_id"`
	Node            string `json:"node,omitempty"`
	Owner           string `json:"owner"`
	Guardian        string `json:"guardian,omitempty"`
	VaultAccount    string `json:"vault_account"`
	FeeRecipient    string `json:"fee_recipient,omitempty"`
	EmergencyFeeBps int64  `json:"emergency_fee_bps"`
	TimeLockSeconds int64  `json:"time_lock_seconds"`
	EmergencyActive bool   `json:"emergency_active"`
}

type InstanceResponse struct {
	Status string      `json:"status"`
	Data   InstanceDTO `json:"data"`
}

type CreateGoalRequest struct {
	Label          string `json:"label,omitempty"`
	Asset          string `json:"asset"`
	TargetAmount   int64  `json:"target_amount"`
	Deadline       string `json:"deadline,omitempty"`
	WithdrawalType string `json:"withdrawal_type,omitempty"`
}

type AutoDepositDTO struct {
	Amount          int64  `json:"amount"`
	IntervalSeconds int64  `json:"interval_seconds"`
	LastRun         string `json:"last_run,omitempty"`
}

type GoalDTO struct {
	GoalID         string          `json:"goal_id"`
	Label          string          `json:"label,omitempty"`
	Asset          string          `json:"asset"`
	TargetAmount   int64           `json:"target_amount"`
	CurrentAmount  int64           `json:"current_amount"`
	Deadline       string          `json:"deadline,omitempty"`
	Status         string          `json:"status"`
	WithdrawalType string          `json:"withdrawal_type"`
	AutoDeposit    *AutoDepositDTO `json:"auto_deposit,omitempty"`
	CreatedAt      string          `json:"created_at"`
}

type GoalResponse struct {
	Status string  `json:"status"`
	Data   GoalDTO `json:"data"`
}

type GoalsResponse struct {
	Status string    `json:"status"`
	Data   []GoalDTO `json:"data"`
}

type ContributeRequest struct {
	Contributor string `json:"contributor"`
	Amount      int64  `json:"amount"`
}

type WithdrawRequest struct {
	Actor     string `json:"actor"`
	Amount    int64  `json:"amount"`
	Emergency bool   `json:"emergency,omitempty"`
}

type WithdrawData struct {
	Goal      GoalDTO       `json:"goal"`
	Withdrawn WithdrawalDTO `json:"withdrawal"`
}

type WithdrawResponse struct {
	Status string       `json:"status"`
	Data   WithdrawData `json:"data"`
}

type SetEmergencyRequest struct {
	Actor  string `json:"actor"`
	Active bool   `json:"active"`
}

type GoalActionRequest struct {
	Actor string `json:"actor"`
}

type AutoDepositRequest struct {
	Actor           string `json:"actor"`
	Amount          int64  `json:"amount"`
	IntervalSeconds int64  `json:"interval_seconds"`
}

type ContributionDTO struct {
	GoalID        string `json:"goal_id"`
	Contributor   string `json:"contributor"`
	Amount        int64  `json:"amount"`
	ContributedAt string `json:"contributed_at"`
}

type ContributionHistoryResponse struct {
	Status string            `json:"status"`
	Data   []ContributionDTO `json:"data"`
}

type WithdrawalDTO struct {
	GoalID      string `json:"goal_id"`
	Actor       string `json:"actor"`
	Amount      int64  `json:"amount"`
	FeeAmount   int64  `json:"fee_amount"`
	Emergency   bool   `json:"emergency"`
	WithdrawnAt string `json:"withdrawn_at"`
}

type WithdrawalHistoryResponse struct {
	Status string          `json:"status"`
	Data   []WithdrawalDTO `json:"data"`
}
