package model

import "main/internal/model/enum"

// Order is a normalized single-market order. The submitting agent stamps the
// side explicitly; the price field matching the side carries the limit, which
// may legitimately be zero when the venue's price floor is zero.
type Order struct {
	T         float64
	AgentID   int
	Side      enum.Side
	Cancel    bool
	Qty       int
	BuyPrice  float64
	SellPrice float64
}

// Price returns the limit price on the order's side.
func (o Order) Price() float64 {
	if o.Side == enum.SideSell {
		return o.SellPrice
	}
	return o.BuyPrice
}
