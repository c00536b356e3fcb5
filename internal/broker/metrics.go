package broker

import "github.com/prometheus/client_golang/prometheus"

var transactionsSent = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "quikbridge_transactions_sent_total",
	Help: "Gateway transactions sent by action.",
}, []string{"action"})

var transReplies = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "quikbridge_trans_replies_total",
	Help: "Transaction acknowledgements by classified outcome.",
}, []string{"outcome"})

var tradesApplied = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "quikbridge_trades_applied_total",
	Help: "Trade reports applied to the position ledger.",
})

var tradesDuplicate = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "quikbridge_trades_duplicate_total",
	Help: "Trade reports dropped by the dedup filter.",
})

var localRejects = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "quikbridge_orders_rejected_local_total",
	Help: "Orders rejected before any gateway round trip.",
})

func init() {
	prometheus.MustRegister(transactionsSent, transReplies, tradesApplied, tradesDuplicate, localRejects)
}
