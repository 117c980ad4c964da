package exchange

import "github.com/shopspring/decimal"

// Markets quoted with a fixed 1-unit tick regardless of price magnitude.
var fixedTickInstruments = map[string]struct{}{
	"ADA": {}, "ALGO": {}, "BLUR": {}, "CELO": {}, "ELF": {}, "EOS": {},
	"GRS": {}, "GRT": {}, "ICX": {}, "MANA": {}, "MINA": {}, "POL": {},
	"SAND": {}, "SEI": {}, "STG": {}, "TRX": {},
}

// PriceTickUnit returns the minimum price increment the exchange accepts for
// the instrument at the given price magnitude. Sub-unit bands step by powers
// of ten from 1e-8 up to 10, then widen to 50/100/500/1000.
func PriceTickUnit(instrument string, price float64) float64 {
	if _, ok := fixedTickInstruments[instrument]; ok {
		return 1
	}
	d := 1.0
	for 0.0001*d <= 100000 {
		if price < 0.0001*d {
			return 0.00000001 * d
		}
		d *= 10
	}
	switch {
	case price < 500000:
		return 50
	case price < 1000000:
		return 100
	case price < 2000000:
		return 500
	default:
		return 1000
	}
}

// RoundToTick snaps a price to the nearest multiple of the tick unit.
// Computed in decimal so sub-unit ticks do not pick up float residue.
func RoundToTick(price, tick float64) float64 {
	if tick <= 0 || price <= 0 {
		return price
	}
	p := decimal.NewFromFloat(price)
	t := decimal.NewFromFloat(tick)
	steps := p.Div(t).Round(0)
	out, _ := steps.Mul(t).Float64()
	return out
}
