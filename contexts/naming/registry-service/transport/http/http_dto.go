package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type RegisterUserRequest struct {
	Registrar string `json:"registrar,omitempty"`
	Username  string `json:"username"`
	Owner     string `json:"owner"`
}

type SelfRegisterRequest struct {
	Caller   string `json:"caller"`
	Username string `json:"username"`
}

type UpdateUsernameRequest struct {
	Caller      string `json:"caller"`
	NewUsername string `json:"new_username"`
}

type BindPolicyRequest struct {
	Owner  string `json:"owner"`
	Label  string `json:"label"`
	Target string `json:"target"`
}

type ReleasePolicyRequest struct {
	Caller string `json:"caller"`
}

type BindingDTO struct {
	Node       string `json:"node"`
	ParentNode string `json:"parent_node"`
	Label      string `json:"label"`
	Owner      string `json:"owner"`
	Target     string `json:"target,omitempty"`
	CreatedAt  string `json:"created_at"`
}

type BindingResponse struct {
	Status string     `json:"status"`
	Data   BindingDTO `json:"data"`
}

type BindingsResponse struct {
	Status string       `json:"status"`
	Data   []BindingDTO `json:"data"`
}

type AvailabilityResponse struct {
	Status string           `json:"status"`
	Data   AvailabilityData `json:"data"`
}

type AvailabilityData struct {
	Username  string `json:"username"`
	Node      string `json:"node"`
	Available bool   `json:"available"`
}

type NodeResponse struct {
	Status string   `json:"status"`
	Data   NodeData `json:"data"`
}

type NodeData struct {
	Node string `json:"node"`
}

type RegistrarRequest struct {
	Caller    string `json:"caller"`
	Registrar string `json:"registrar"`
}

type RegistrarsResponse struct {
	Status string   `json:"status"`
	Data   []string `json:"data"`
}
