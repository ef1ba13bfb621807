package telemetry

// Log names and fixed header rows. Column order is a compatibility contract
// for downstream research tooling; do not reorder.

const (
	LogTrade           = "trade"
	LogBuyOrder        = "buyorder"
	LogSellOrder       = "sellorder"
	LogRejectBuyOrder  = "rejectbuyorder"
	LogRejectSellOrder = "rejectsellorder"
	LogProfit          = "profit"
	LogOHLC            = "ohlc"
	LogEffAlloc        = "effalloc"
)

// LogNames lists every log a run produces, in creation order.
var LogNames = []string{
	LogTrade,
	LogBuyOrder,
	LogSellOrder,
	LogRejectBuyOrder,
	LogRejectSellOrder,
	LogProfit,
	LogOHLC,
	LogEffAlloc,
}

var orderHeader = []string{
	"caseid", "period", "t", "tp",
	"preBidPrice", "preAskPrice", "preTradePrice",
	"id", "x",
	"buyLimitPrice", "buyerValue", "buyerAgentType",
	"sellLimitPrice", "sellerCost", "sellerAgentType",
}

// Headers maps each log name to its header row. The profit log header is
// population-dependent and set by InitProfitHeader.
var Headers = map[string][]string{
	LogOHLC: {
		"caseid", "period", "beginTime", "endTime", "endReason",
		"openPrice", "highPrice", "lowPrice", "closePrice", "volume",
		"p25Price", "medianPrice", "p75Price", "meanPrice", "sd", "gini",
	},
	LogBuyOrder:        orderHeader,
	LogSellOrder:       orderHeader,
	LogRejectBuyOrder:  orderHeader,
	LogRejectSellOrder: orderHeader,
	LogTrade: {
		"caseid", "period", "t", "tp", "price",
		"buyerAgentId", "buyerAgentType", "buyerValue", "buyerProfit",
		"sellerAgentId", "sellerAgentType", "sellerCost", "sellerProfit",
	},
	LogEffAlloc: {"caseid", "period", "efficiencyOfAllocation"},
}
