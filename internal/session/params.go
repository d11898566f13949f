package session

import (
	"github.com/shopspring/decimal"
)

// Params are the raw ladder inputs of one session, before rounding.
type Params struct {
	Symbol      string          `json:"symbol"`
	Direction   string          `json:"direction"`
	EntryPrice  decimal.Decimal `json:"entryPrice"`
	EntryVolume decimal.Decimal `json:"entryVolume"`
	TakeProfit  decimal.Decimal `json:"takeProfit"`
	StopLoss    decimal.Decimal `json:"stopLoss"`
	Dip1Limit   decimal.Decimal `json:"dip1Limit"`
	Dip1Volume  decimal.Decimal `json:"dip1Volume"`
	Dip1Target  decimal.Decimal `json:"dip1Target"`
	Dip2Limit   decimal.Decimal `json:"dip2Limit"`
	Dip2Volume  decimal.Decimal `json:"dip2Volume"`
	Dip2Target  decimal.Decimal `json:"dip2Target"`
}
