package enum

// EndReason explains why a trading period ended. The numeric values are a
// log compatibility contract and appear verbatim in the ohlc endReason column.
type EndReason uint8

const (
	EndReasonDuration   EndReason = 0
	EndReasonTradeClock EndReason = 1
	EndReasonOrderClock EndReason = 2
)

func (r EndReason) String() string {
	switch r {
	case EndReasonDuration:
		return "duration expired"
	case EndReasonTradeClock:
		return "trade clock expired"
	case EndReasonOrderClock:
		return "order clock expired"
	default:
		return "unknown"
	}
}
