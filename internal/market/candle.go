package market

type Candle struct {
	OpenTime int64   `json:"open_time"`
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	Volume   float64 `json:"volume"`
}

// Series is a time-ascending OHLCV window. The last element is the most
// recent (possibly still forming) candle.
type Series []Candle

func (s Series) Len() int { return len(s) }

func (s Series) Last() Candle {
	if len(s) == 0 {
		return Candle{}
	}
	return s[len(s)-1]
}

// At indexes from the end: At(0) is the latest bar, At(1) the one before it.
func (s Series) At(back int) Candle {
	i := len(s) - 1 - back
	if i < 0 || i >= len(s) {
		return Candle{}
	}
	return s[i]
}

func (s Series) Closes() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Close
	}
	return out
}

func (s Series) Highs() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.High
	}
	return out
}

func (s Series) Lows() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Low
	}
	return out
}

func (s Series) Volumes() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Volume
	}
	return out
}
