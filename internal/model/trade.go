package model

// Trade is the payload of a venue trade event. BuySlots and SellSlots index
// into the venue's order book rows; owners are resolved through the venue.
type Trade struct {
	T         float64
	Price     float64
	TotalQ    int
	BuySlots  []int
	SellSlots []int
}
