// Package market implements the in-memory continuous double auction venue
// consumed by the simulation driver: order submission, queue draining,
// best bid/ask and last trade queries, and trade/preorder/reject callbacks.
package market

import (
	"github.com/yanun0323/errors"

	"main/internal/model"
	"main/internal/model/enum"
)

// Handlers receives venue events. PreOrder fires with the venue snapshot
// still reflecting the state just before the order is considered; Reject
// fires instead of PreOrder when the order fails admission checks. A non-nil
// error returned from Trade aborts draining and propagates to the caller.
type Handlers struct {
	PreOrder func(o model.Order) error
	Reject   func(o model.Order) error
	Trade    func(tr model.Trade) error
}

// Config controls order admission.
type Config struct {
	MinPrice    float64
	MaxPrice    float64
	BuyImprove  bool
	SellImprove bool
}

type row struct {
	order  model.Order
	active bool
}

// Book is a price-time priority book for single-unit orders. Booked orders
// occupy stable slots so trade participants can be mapped back to agents.
type Book struct {
	cfg      Config
	handlers Handlers

	inbox     []model.Order
	rows      []row
	lastTrade float64
	hasTrade  bool
}

func New(cfg Config, handlers Handlers) *Book {
	return &Book{cfg: cfg, handlers: handlers}
}

// Submit queues a normalized order for processing.
func (b *Book) Submit(o model.Order) {
	b.inbox = append(b.inbox, o)
}

// Process handles one queued order. It reports whether any queued orders
// remain afterwards.
func (b *Book) Process() (bool, error) {
	if len(b.inbox) == 0 {
		return false, nil
	}
	o := b.inbox[0]
	b.inbox = b.inbox[1:]
	if err := b.admit(o); err != nil {
		return false, err
	}
	return len(b.inbox) > 0, nil
}

// Drain processes queued orders until the book is quiescent.
func (b *Book) Drain() error {
	for {
		more, err := b.Process()
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
}

func (b *Book) admit(o model.Order) error {
	if !b.acceptable(o) {
		if b.handlers.Reject != nil {
			if err := b.handlers.Reject(o); err != nil {
				return errors.Wrap(err, "reject handler")
			}
		}
		return nil
	}
	if b.handlers.PreOrder != nil {
		if err := b.handlers.PreOrder(o); err != nil {
			return errors.Wrap(err, "preorder handler")
		}
	}
	if o.Cancel {
		b.cancelAgent(o.AgentID)
	}
	slot := len(b.rows)
	b.rows = append(b.rows, row{order: o, active: true})
	return b.match(slot)
}

func (b *Book) acceptable(o model.Order) bool {
	if o.Qty != 1 || o.Side == enum.SideUnknown {
		return false
	}
	price := o.Price()
	if b.cfg.MinPrice > 0 && price < b.cfg.MinPrice {
		return false
	}
	if b.cfg.MaxPrice > 0 && price > b.cfg.MaxPrice {
		return false
	}
	if b.cfg.BuyImprove && o.Side == enum.SideBuy {
		if bid, ok := b.BestBid(); ok && o.BuyPrice <= bid {
			return false
		}
	}
	if b.cfg.SellImprove && o.Side == enum.SideSell {
		if ask, ok := b.BestAsk(); ok && o.SellPrice >= ask {
			return false
		}
	}
	return true
}

// match crosses the incoming order against the far side of the book. Trades
// execute at the resting order's limit price.
func (b *Book) match(slot int) error {
	incoming := b.rows[slot].order
	if incoming.Side == enum.SideBuy {
		askSlot, ask, ok := b.bestAskSlot()
		if !ok || incoming.BuyPrice < ask {
			return nil
		}
		return b.execute(incoming.T, ask, slot, askSlot)
	}
	bidSlot, bid, ok := b.bestBidSlot()
	if !ok || incoming.SellPrice > bid {
		return nil
	}
	return b.execute(incoming.T, bid, bidSlot, slot)
}

func (b *Book) execute(t, price float64, buySlot, sellSlot int) error {
	b.rows[buySlot].active = false
	b.rows[sellSlot].active = false
	b.lastTrade = price
	b.hasTrade = true
	if b.handlers.Trade == nil {
		return nil
	}
	tr := model.Trade{
		T:         t,
		Price:     price,
		TotalQ:    1,
		BuySlots:  []int{buySlot},
		SellSlots: []int{sellSlot},
	}
	if err := b.handlers.Trade(tr); err != nil {
		return errors.Wrap(err, "trade handler")
	}
	return nil
}

func (b *Book) cancelAgent(agentID int) {
	for i := range b.rows {
		if b.rows[i].active && b.rows[i].order.AgentID == agentID {
			b.rows[i].active = false
		}
	}
}

func (b *Book) bestBidSlot() (int, float64, bool) {
	slot, price, found := -1, 0.0, false
	for i, r := range b.rows {
		if r.active && r.order.Side == enum.SideBuy && (!found || r.order.BuyPrice > price) {
			slot, price, found = i, r.order.BuyPrice, true
		}
	}
	return slot, price, found
}

func (b *Book) bestAskSlot() (int, float64, bool) {
	slot, price, found := -1, 0.0, false
	for i, r := range b.rows {
		if r.active && r.order.Side == enum.SideSell && (!found || r.order.SellPrice < price) {
			slot, price, found = i, r.order.SellPrice, true
		}
	}
	return slot, price, found
}

// BestBid returns the highest active buy limit price.
func (b *Book) BestBid() (float64, bool) {
	_, price, ok := b.bestBidSlot()
	return price, ok
}

// BestAsk returns the lowest active sell limit price.
func (b *Book) BestAsk() (float64, bool) {
	_, price, ok := b.bestAskSlot()
	return price, ok
}

// LastTradePrice returns the most recent execution price this period.
func (b *Book) LastTradePrice() (float64, bool) {
	return b.lastTrade, b.hasTrade
}

// OrderOwner maps a book slot back to the submitting agent.
func (b *Book) OrderOwner(slot int) (int, bool) {
	if slot < 0 || slot >= len(b.rows) {
		return 0, false
	}
	return b.rows[slot].order.AgentID, true
}

// Clear resets the book between periods.
func (b *Book) Clear() {
	b.inbox = b.inbox[:0]
	b.rows = b.rows[:0]
	b.lastTrade = 0
	b.hasTrade = false
}
