package exchange

import (
	"arbot/internal/models"
	"github.com/shopspring/decimal"
)

// parseDecimal parses an exchange-supplied numeric string, treating a blank
// or malformed value as zero rather than failing the whole payload — REST
// responses routinely omit fields (e.g. a symbol with no active maker fee).
func parseDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// priceLevels builds models.PriceLevel rows from an exchange's [price, qty]
// string-pair depth format ([][]string), the shape Bybit/BingX/Bitget/OKX/
// Gate/HTX all use on their REST and WS order book payloads.
func priceLevels(raw [][]string) []models.PriceLevel {
	out := make([]models.PriceLevel, 0, len(raw))
	for _, row := range raw {
		if len(row) < 2 {
			continue
		}
		out = append(out, models.PriceLevel{Price: parseDecimal(row[0]), Qty: parseDecimal(row[1])})
	}
	return out
}
