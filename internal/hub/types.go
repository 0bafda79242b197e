package hub

import (
	"github.com/shopspring/decimal"

	"github.com/lmaretto/papertrade/internal/model"
)

// Wire types for subscriber push frames.

// tradeEnvelope is the outbound frame for one or more ticks.
type tradeEnvelope struct {
	Type string         `json:"type"`
	Data []tradePayload `json:"data"`
}

// statusEnvelope reports upstream feed state to subscribers.
type statusEnvelope struct {
	Type   string `json:"type"`
	Status string `json:"status"`
}

// tradePayload is one tick on the wire.
type tradePayload struct {
	Symbol          string            `json:"symbol"`
	Price           decimal.Decimal   `json:"price"`
	Timestamp       int64             `json:"timestamp"`
	Volume          decimal.Decimal   `json:"volume"`
	ReferenceRecord *referencePayload `json:"referenceRecord,omitempty"`
}

// referencePayload is the enrichment metadata attached to a tick.
type referencePayload struct {
	Symbol      string `json:"symbol"`
	Name        string `json:"name"`
	Sector      string `json:"sector"`
	Industry    string `json:"industry"`
	Exchange    string `json:"exchange"`
	Country     string `json:"country"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
	Website     string `json:"website"`
	Logo        string `json:"logo"`
}

func newTradePayload(tick model.Tick) tradePayload {
	p := tradePayload{
		Symbol:    tick.Symbol,
		Price:     tick.Price,
		Timestamp: tick.Timestamp,
		Volume:    tick.Volume,
	}
	if tick.Reference != nil {
		p.ReferenceRecord = &referencePayload{
			Symbol:      tick.Reference.Symbol,
			Name:        tick.Reference.Name,
			Sector:      tick.Reference.Sector,
			Industry:    tick.Reference.Industry,
			Exchange:    tick.Reference.Exchange,
			Country:     tick.Reference.Country,
			Currency:    tick.Reference.Currency,
			Description: tick.Reference.Description,
			Website:     tick.Reference.Website,
			Logo:        tick.Reference.Logo,
		}
	}
	return p
}
