package models

// Requests for the read API. Defined in domain for consistency and reuse.

type SignalsRequest struct {
	MinSeverity int    `query:"min_severity" json:"min_severity" default:"1" validate:"gte=1,lte=3"`
	Kind        string `query:"kind" json:"kind" validate:"omitempty,oneof=bullish bearish warning neutral"`
}

type HealthRequest struct {
	Family string `query:"family" json:"family" validate:"omitempty,oneof=price funding open_interest long_short order_flow"`
}
