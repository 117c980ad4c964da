package market

// Level is one price level of an order book side.
type Level struct {
	Price  float64 `json:"price"`
	Volume float64 `json:"volume"`
}

type OrderBook struct {
	Bids []Level `json:"bids"`
	Asks []Level `json:"asks"`
}

func (b OrderBook) BidVolume() float64 {
	total := 0.0
	for _, l := range b.Bids {
		total += l.Volume
	}
	return total
}

func (b OrderBook) AskVolume() float64 {
	total := 0.0
	for _, l := range b.Asks {
		total += l.Volume
	}
	return total
}
