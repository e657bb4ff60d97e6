package contracts

type ProcessPayoutRequest struct {
	EventID       string `json:"event_id"`
	UserID        string `json:"user_id"`
	Notes         string `json:"notes,omitempty"`
	TransferGroup string `json:"transfer_group,omitempty"`
}

type SchedulerRunRequest struct {
	DryRun         bool `json:"dry_run"`
	Limit          int  `json:"limit,omitempty"`
	MaxConcurrency int  `json:"max_concurrency,omitempty"`
}

type Pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
}

type SuccessResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type ErrorResponse struct {
	Status string       `json:"status"`
	Error  ErrorPayload `json:"error"`
}

type ErrorPayload struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"request_id,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}
