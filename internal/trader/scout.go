package trader

import (
	"context"
	"fmt"
	"strings"
	"time"

	"deposit-sweeper-go/internal/models"
	"deposit-sweeper-go/internal/notify"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Scout fetches recent deposits, cross-references them against current
// balances, and flags every cleared non-stable deposit as a liquidation
// candidate. Candidates are logged and notified; the sell protocol only runs
// when execute_sells is enabled.
func Scout(ctx context.Context, tctx Context, policy RetryPolicy) error {
	window := time.Duration(tctx.Cfg.Trading.DepositWindowHours) * time.Hour

	deposits, err := RecentDeposits(tctx, window)
	if err != nil {
		return err
	}
	if len(deposits) == 0 {
		tctx.Logger.Debug("No recent deposits", zap.Duration("window", window))
		return nil
	}

	account, err := tctx.RestClient.GetAccount()
	if err != nil {
		return fmt.Errorf("could not get account balances: %w", err)
	}
	balances := make(map[string]decimal.Decimal, len(account.Balances))
	for _, b := range account.Balances {
		free, err := decimal.NewFromString(b.Free)
		if err != nil {
			tctx.Logger.Warn("Skipping unparseable balance",
				zap.String("asset", b.Asset), zap.String("free", b.Free))
			continue
		}
		balances[b.Asset] = free
	}

	var assets []models.Asset
	if err := tctx.DB.Where("enabled = ?", true).Find(&assets).Error; err != nil {
		return fmt.Errorf("could not load supported assets: %w", err)
	}
	supported := make(map[string]models.Asset, len(assets))
	for _, a := range assets {
		supported[a.Symbol] = a
	}

	// One sell per asset per cycle; several deposits of the same asset are one
	// candidate since the full free balance is liquidated anyway.
	handled := make(map[string]bool)

	for _, deposit := range deposits {
		symbol := strings.ToUpper(deposit.Coin)
		if handled[symbol] {
			continue
		}

		asset, ok := supported[symbol]
		if !ok {
			tctx.Logger.Debug("Ignoring deposit of unsupported asset", zap.String("asset", symbol))
			continue
		}
		if asset.Stable {
			continue
		}

		amount, err := decimal.NewFromString(deposit.Amount)
		if err != nil {
			tctx.Logger.Warn("Skipping deposit with unparseable amount",
				zap.String("asset", symbol), zap.String("amount", deposit.Amount))
			continue
		}

		balance, ok := balances[symbol]
		if !ok || balance.LessThan(amount) {
			// The deposit has not fully cleared into the free balance yet.
			continue
		}
		handled[symbol] = true

		tctx.Logger.Info("Found deposited asset ready to liquidate",
			zap.String("asset", symbol),
			zap.String("deposited", amount.String()),
			zap.String("balance", balance.String()),
		)
		tctx.Notifier.Send(notify.Fields{
			{Key: "Deposit cleared", Value: symbol},
			{Key: "Amount", Value: amount.String()},
			{Key: "Balance", Value: balance.String()},
		})

		if !tctx.Cfg.Trading.ExecuteSells {
			continue
		}

		trade, err := Sell(ctx, tctx, symbol, policy)
		if err != nil {
			tctx.Logger.Error("Failed to liquidate deposit",
				zap.String("asset", symbol), zap.Error(err))
			tctx.Notifier.Send(notify.Text(fmt.Sprintf("Failed to sell %s: %v", symbol, err)))
			continue
		}

		tctx.Notifier.Send(notify.Fields{
			{Key: "Sold", Value: trade.Symbol},
			{Key: "Quantity", Value: fmt.Sprintf("%v", trade.Quantity)},
			{Key: "Proceeds", Value: fmt.Sprintf("%v %s", trade.QuoteQuantity, tctx.Cfg.Trading.QuoteAsset)},
		})
	}

	return nil
}
