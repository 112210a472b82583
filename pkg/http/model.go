package http

// APIResponse is the envelope of every JSON body the API returns.
type APIResponse struct {
	Status  int         `json:"status" example:"200"`
	Message string      `json:"message" example:"OK"`
	Data    interface{} `json:"data,omitempty"`
}

// ValidationError describes one rejected request field.
type ValidationError struct {
	Code    string                 `json:"code,omitempty" example:"ERR_ONEOF"`
	Field   string                 `json:"field,omitempty" example:"kind"`
	Message string                 `json:"message,omitempty" example:"kind must be one of: bullish, bearish"`
	Params  map[string]interface{} `json:"params,omitempty"`
}
