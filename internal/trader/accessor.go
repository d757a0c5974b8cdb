package trader

import (
	"errors"
	"fmt"
	"time"

	"deposit-sweeper-go/internal/binance"
	"github.com/shopspring/decimal"
)

// ErrRuleNotFound indicates a trading pair carries no LOT_SIZE filter, so no
// order quantity can be computed for it.
var ErrRuleNotFound = errors.New("no lot size rule for symbol")

// TickerPrice returns the latest price for a symbol. The second return value
// is false when the symbol is not traded; that is not an error.
func TickerPrice(ctx Context, symbol string) (decimal.Decimal, bool, error) {
	prices, err := ctx.RestClient.GetAllTickerPrices()
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("could not get ticker prices: %w", err)
	}

	priceStr, ok := prices[symbol]
	if !ok {
		return decimal.Zero, false, nil
	}

	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("could not parse price %q for %s: %w", priceStr, symbol, err)
	}
	return price, true, nil
}

// FreeBalance returns the spendable balance of an asset. The second return
// value is false when the account has no entry for the asset.
func FreeBalance(ctx Context, asset string) (decimal.Decimal, bool, error) {
	account, err := ctx.RestClient.GetAccount()
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("could not get account balances: %w", err)
	}

	for _, b := range account.Balances {
		if b.Asset != asset {
			continue
		}
		free, err := decimal.NewFromString(b.Free)
		if err != nil {
			return decimal.Zero, false, fmt.Errorf("could not parse balance %q for %s: %w", b.Free, asset, err)
		}
		return free, true, nil
	}
	return decimal.Zero, false, nil
}

// TradingRule fetches the LOT_SIZE step size for a trading pair. Rules are
// fetched fresh per order attempt since the exchange may adjust them.
func TradingRule(ctx Context, symbol string) (string, error) {
	info, err := ctx.RestClient.GetSymbolInfo(symbol)
	if err != nil {
		return "", fmt.Errorf("could not get symbol info for %s: %w", symbol, err)
	}

	for _, filter := range info.Filters {
		if filter.FilterType == binance.FilterTypeLotSize && filter.StepSize != "" {
			return filter.StepSize, nil
		}
	}
	return "", fmt.Errorf("symbol %s: %w", symbol, ErrRuleNotFound)
}

// RecentDeposits returns successfully credited deposits whose insert time
// falls within the trailing window.
func RecentDeposits(ctx Context, window time.Duration) ([]binance.Deposit, error) {
	now := time.Now()
	start := now.Add(-window)

	history, err := ctx.RestClient.GetDepositHistory(start, now)
	if err != nil {
		return nil, fmt.Errorf("could not get deposit history: %w", err)
	}

	// The exchange already takes a time range, but the filter is re-applied
	// here so stale entries in the response never become candidates.
	recent := make([]binance.Deposit, 0, len(history))
	for _, d := range history {
		insertTime := time.UnixMilli(d.InsertTime)
		if insertTime.Before(start) || insertTime.After(now) {
			continue
		}
		recent = append(recent, d)
	}
	return recent, nil
}
