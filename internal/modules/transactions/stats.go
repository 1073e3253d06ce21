package transactions

import (
	"github.com/shopspring/decimal"

	"github.com/aristath/stockledger/internal/domain"
)

// BuildStats aggregates counts, amounts and share totals over txs
func BuildStats(txs []Transaction) Stats {
	stats := Stats{
		TotalBuyAmount:  decimal.Zero,
		TotalSellAmount: decimal.Zero,
		TotalCommission: decimal.Zero,
		BuyShares:       decimal.Zero,
		SellShares:      decimal.Zero,
	}

	for _, t := range txs {
		stats.TotalTransactions++
		stats.TotalCommission = stats.TotalCommission.Add(t.Commission)

		switch t.Type {
		case domain.TransactionBuy:
			stats.BuyCount++
			stats.TotalBuyAmount = stats.TotalBuyAmount.Add(t.TotalAmount)
			stats.BuyShares = stats.BuyShares.Add(t.Shares)
		case domain.TransactionSell:
			stats.SellCount++
			stats.TotalSellAmount = stats.TotalSellAmount.Add(t.TotalAmount)
			stats.SellShares = stats.SellShares.Add(t.Shares)
		}
	}

	stats.NetShares = stats.BuyShares.Sub(stats.SellShares)
	stats.NetAmount = stats.TotalSellAmount.Sub(stats.TotalBuyAmount).Sub(stats.TotalCommission)
	return stats
}
