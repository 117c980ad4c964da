package market

// Timeframe identifies a candle interval supported by the exchange.
type Timeframe string

const (
	TF1m  Timeframe = "1m"
	TF5m  Timeframe = "5m"
	TF15m Timeframe = "15m"
	TF1h  Timeframe = "1h"
)

// Minutes returns the interval length in minutes, 0 for unknown timeframes.
func (t Timeframe) Minutes() int {
	switch t {
	case TF1m:
		return 1
	case TF5m:
		return 5
	case TF15m:
		return 15
	case TF1h:
		return 60
	default:
		return 0
	}
}

func (t Timeframe) Valid() bool { return t.Minutes() > 0 }
