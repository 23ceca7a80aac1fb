package models

import "time"

// OptionType distinguishes calls from puts.
type OptionType string

const (
	OptionCall OptionType = "Call"
	OptionPut  OptionType = "Put"
)

// RawOption is a single quote row from an upstream chain, coerced once at the
// ingestion boundary. Optional fields stay nil when the provider omitted them;
// Volume and OpenInterest default to 0.
type RawOption struct {
	ContractID   string
	Strike       float64
	LastPrice    *float64
	ChangeAbs    *float64
	ChangePct    *float64
	Volume       int64
	OpenInterest int64
	ImpliedVol   *float64 // decimal fraction, e.g. 0.45
}

// ExpirationBlock groups the call and put rows quoted for one expiry.
type ExpirationBlock struct {
	Expiry int64 // epoch seconds
	Calls  []RawOption
	Puts   []RawOption
}

// OptionChain is one underlying's chain as returned by a ChainProvider.
type OptionChain struct {
	Symbol string
	Spot   float64
	Blocks []ExpirationBlock
}

// Contract is a finalized screener row. Delta and Gamma are always recomputed
// from the quote inputs, never carried over from upstream. Delta holds the
// magnitude for both types; DeltaSigned keeps the sign (negative for puts).
type Contract struct {
	Symbol       string     `json:"symbol"`
	ContractID   string     `json:"option"`
	Type         OptionType `json:"type"`
	Last         *float64   `json:"last"`
	ChangeAbs    *float64   `json:"changeAbs"`
	ChangePct    *float64   `json:"changePct"`
	Volume       int64      `json:"volume"`
	OpenInterest int64      `json:"oi"`
	IVPct        *float64   `json:"ivPct"` // percent, e.g. 45.0
	Strike       float64    `json:"strike"`
	Expiry       int64      `json:"expiry"` // epoch seconds
	Delta        float64    `json:"delta"`
	DeltaSigned  float64    `json:"deltaSigned"`
	Gamma        float64    `json:"gamma"`
}

// Snapshot is a full screener computation: the realized universe plus the five
// ranked views over the assembled contracts.
type Snapshot struct {
	AsOf       time.Time  `json:"asOf"`
	Universe   []string   `json:"universe"`
	Total      int        `json:"total"`
	MostActive []Contract `json:"mostActive"`
	TopGainers []Contract `json:"topGainers"`
	TopLosers  []Contract `json:"topLosers"`
	HighestIV  []Contract `json:"highestIV"`
	HighestOI  []Contract `json:"highestOI"`

	// Contracts holds every assembled row before ranking. Internal consumers
	// (recorders, stream fan-out) use it; it never leaves the API envelope.
	Contracts []Contract `json:"-"`
}

// ContractEvent is the message payload for one recorded screener row.
type ContractEvent struct {
	AsOf     int64    `json:"asOf"`
	Contract Contract `json:"contract"`
}
