package gateway

// Topic is a named stream category of the realtime feed. The full table set
// is enumerated for completeness; the mirror only exercises the top-25
// level-2 book and the live trade stream.
type Topic string

const (
	TopicFunding        Topic = "funding"        // swap funding rates, sent every funding interval
	TopicInstrument     Topic = "instrument"     // instrument updates including turnover and bid/ask
	TopicInsurance      Topic = "insurance"      // daily insurance fund updates
	TopicLiquidation    Topic = "liquidation"    // liquidation orders as they enter the book
	TopicOrderBookL2_25 Topic = "orderBookL2_25" // top 25 levels of the level-2 book
	TopicOrderBookL2    Topic = "orderBookL2"    // full level-2 book
	TopicOrderBook10    Topic = "orderBook10"    // top 10 levels, traditional full push
	TopicQuote          Topic = "quote"          // top level of the book
	TopicQuoteBin1m     Topic = "quoteBin1m"
	TopicQuoteBin5m     Topic = "quoteBin5m"
	TopicQuoteBin1h     Topic = "quoteBin1h"
	TopicQuoteBin1d     Topic = "quoteBin1d"
	TopicSettlement     Topic = "settlement"
	TopicTrade          Topic = "trade" // live trades
	TopicTradeBin1m     Topic = "tradeBin1m"
	TopicTradeBin5m     Topic = "tradeBin5m"
	TopicTradeBin1h     Topic = "tradeBin1h"
	TopicTradeBin1d     Topic = "tradeBin1d"
)
