package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CreateInstanceRequest struct {
	Node              string `json:"node,omitempty"`
	Owner             string `json:"owner"`
	CollectionAccount string `json:"collection_account"`
}

type InstanceDTO struct {
	InstanceID        string `json:"instance_id"`
	Node              string `json:"node,omitempty"`
	Owner             string `json:"owner"`
	CollectionAccount string `json:"collection_account"`
}

type InstanceResponse struct {
	Status string      `json:"status"`
	Data   InstanceDTO `json:"data"`
}

type CreateScheduleRequest struct {
	Actor              string `json:"actor"`
	Payer              string `json:"payer"`
	Label              string `json:"label,omitempty"`
	Asset              string `json:"asset"`
	TotalAmount        int64  `json:"total_amount"`
	InstallmentCount   int    `json:"installment_count"`
	DueDate            string `json:"due_date"`
	GracePeriodSeconds int64  `json:"grace_period_seconds,omitempty"`
	LateFeeBps         int64  `json:"late_fee_bps,omitempty"`
}

type ScheduleDTO struct {
	ScheduleID         string `json:"schedule_id"`
	Payer              string `json:"payer"`
	Label              string `json:"label,omitempty"`
	Asset              string `json:"asset"`
	TotalAmount        int64  `json:"total_amount"`
	PaidAmount         int64  `json:"paid_amount"`
	Remaining          int64  `json:"remaining"`
	InstallmentCount   int    `json:"installment_count"`
	InstallmentAmount  int64  `json:"installment_amount"`
	DueDate            string `json:"due_date"`
	GracePeriodSeconds int64  `json:"grace_period_seconds"`
	LateFeeBps         int64  `json:"late_fee_bps"`
	Status             string `json:"status"`
}

type ScheduleResponse struct {
	Status string      `json:"status"`
	Data   ScheduleDTO `json:"data"`
}

type SchedulesResponse struct {
	Status string        `json:"status"`
	Data   []ScheduleDTO `json:"data"`
}

type PayInstallmentRequest struct {
	Payer  string `json:"payer"`
	Amount int64  `json:"amount"`
}

type ScheduleActionRequest struct {
	Actor string `json:"actor"`
}

type InstallmentDTO struct {
	ScheduleID string `json:"schedule_id"`
	Payer      string `json:"payer"`
	Amount     int64  `json:"amount"`
	PaidAt     string `json:"paid_at"`
}

type InstallmentHistoryResponse struct {
	Status string           `json:"status"`
	Data   []InstallmentDTO `json:"data"`
}
