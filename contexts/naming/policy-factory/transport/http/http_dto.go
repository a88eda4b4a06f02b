package http

import "encoding/json"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CreatePolicyRequest struct {
	Caller string          `json:"caller"`
	Type   string          `json:"type"`
	Label  string          `json:"label"`
	Init   json.RawMessage `json:"init,omitempty"`
}

type CreatePolicyForRequest struct {
	Sponsor     string          `json:"sponsor"`
	Beneficiary string          `json:"beneficiary"`
	Type        string          `json:"type"`
	Label       string          `json:"label"`
	Init        json.RawMessage `json:"init,omitempty"`
}

type RecordDTO struct {
	Node       string `json:"node"`
	Label      string `json:"label"`
	Type       string `json:"type"`
	Owner      string `json:"owner"`
	InstanceID string `json:"instance_id"`
	FeePaid    int64  `json:"fee_paid"`
	CreatedAt  string `json:"created_at"`
}

type RecordResponse struct {
	Status string    `json:"status"`
	Data   RecordDTO `json:"data"`
}

type RecordsResponse struct {
	Status string      `json:"status"`
	Data   []RecordDTO `json:"data"`
}
