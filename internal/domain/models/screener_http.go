package models

// Requests for screener HTTP endpoints. Defined in domain for consistency and reuse.

// ScreenerRequest carries the query parameters of GET /api/options/screener.
// Any limit outside [10,100], negative included, is clamped by the use case
// rather than rejected.
type ScreenerRequest struct {
	Universe string `query:"universe" json:"universe"`
	Limit    int    `query:"limit" json:"limit" default:"50" validate:"lte=10000"`
}

// ScreenerResponse is the wire envelope of a successful screener call.
type ScreenerResponse struct {
	Success    bool       `json:"success"`
	AsOf       string     `json:"asOf"` // ISO 8601
	Universe   []string   `json:"universe"`
	Counts     Counts     `json:"counts"`
	MostActive []Contract `json:"mostActive"`
	TopGainers []Contract `json:"topGainers"`
	TopLosers  []Contract `json:"topLosers"`
	HighestIV  []Contract `json:"highestIV"`
	HighestOI  []Contract `json:"highestOI"`
}

// Counts summarizes the contract universe behind a snapshot.
type Counts struct {
	Total int `json:"total"`
}
