package trader

import (
	"context"
	"fmt"
	"time"

	"deposit-sweeper-go/internal/binance"
	"deposit-sweeper-go/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RetryPolicy is an explicit retry policy for order placement: a bounded
// attempt budget, a backoff schedule, and a predicate deciding which errors
// are worth retrying at all.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
	Retriable   func(err error) bool
}

// DefaultRetryPolicy builds the placement policy from config: capped
// exponential backoff, retrying everything except invalid-request rejections.
func DefaultRetryPolicy(maxAttempts int) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: maxAttempts,
		Backoff: func(attempt int) time.Duration {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			if backoff > 10*time.Second {
				backoff = 10 * time.Second
			}
			return backoff
		},
		Retriable: func(err error) bool {
			return !binance.IsInvalidRequest(err)
		},
	}
}

// StuckOrderError indicates a polling phase of the sell protocol exhausted its
// attempt budget without reaching its exit condition. The order may still be
// live on the exchange and needs operator attention.
type StuckOrderError struct {
	Phase    string
	Symbol   string
	OrderID  int64
	Attempts int
}

func (e *StuckOrderError) Error() string {
	return fmt.Sprintf("order %d on %s stuck in %s phase after %d attempts",
		e.OrderID, e.Symbol, e.Phase, e.Attempts)
}

// Sell liquidates the full free balance of an asset into the configured quote
// asset with a market order, then drives the order to completion.
//
// The order is only considered complete once its status is FILLED and the
// asset's free balance has dropped strictly below the pre-order snapshot; the
// exchange reports fills before balances settle, so the status field alone is
// not trusted.
//
// Cancellation via ctx is honored up to the moment the exchange accepts the
// order. After that the confirmation and settle phases always run to
// completion (or to their attempt caps) so an accepted order is never left
// unobserved.
func Sell(ctx context.Context, tctx Context, asset string, policy RetryPolicy) (*models.Trade, error) {
	quote := tctx.Cfg.Trading.QuoteAsset
	symbol := asset + quote
	l := tctx.Logger.With(zap.String("symbol", symbol), zap.String("asset", asset))

	preBalance, ok, err := FreeBalance(tctx, asset)
	if err != nil {
		return nil, err
	}
	if !ok || preBalance.IsZero() {
		return nil, fmt.Errorf("no free %s balance: %w", asset, ErrInsufficientQuantity)
	}

	step, err := TradingRule(tctx, symbol)
	if err != nil {
		return nil, err
	}

	quantity, err := Quantize(preBalance, step)
	if err != nil {
		return nil, err
	}
	if quantity.IsZero() {
		return nil, fmt.Errorf("%s balance %s below step %s: %w",
			asset, preBalance, step, ErrInsufficientQuantity)
	}

	l.Info("Placing market sell",
		zap.String("quantity", quantity.String()),
		zap.String("balance", preBalance.String()),
		zap.String("step_size", step),
	)

	order, err := placeOrder(ctx, tctx, l, symbol, quantity, policy)
	if err != nil {
		return nil, err
	}
	l.Info("Order accepted", zap.Int64("order_id", order.OrderID))

	// The exchange backend can take a moment to persist the order before the
	// status endpoint knows about it.
	settleDelay := time.Duration(tctx.Cfg.Trading.SettleDelay) * time.Second
	l.Info("Waiting for the exchange to record the order", zap.Duration("delay", settleDelay))
	time.Sleep(settleDelay)

	status, err := confirmOrder(tctx, l, symbol, order.OrderID)
	if err != nil {
		return nil, err
	}

	status, err = awaitFill(tctx, l, symbol, order.OrderID, status)
	if err != nil {
		return nil, err
	}

	if err := awaitBalanceDrop(tctx, l, asset, preBalance, symbol, order.OrderID); err != nil {
		return nil, err
	}

	l.Info("Sold", zap.String("asset", asset),
		zap.String("executed_quantity", status.ExecutedQuantity))

	trade := tradeRecord(status)
	if tctx.DB != nil {
		if err := tctx.DB.FirstOrCreate(trade, models.Trade{OrderID: trade.OrderID}).Error; err != nil {
			l.Error("Failed to save trade record", zap.Error(err))
			// The sell itself succeeded; a failed record write must not undo that.
		}
	}

	return trade, nil
}

// placeOrder submits the market sell until the exchange accepts it, within the
// policy's attempt budget. Invalid requests abort immediately.
func placeOrder(ctx context.Context, tctx Context, l *zap.Logger, symbol string, quantity decimal.Decimal, policy RetryPolicy) (*binance.CreateOrderResponse, error) {
	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		order, err := tctx.RestClient.CreateOrder(symbol, binance.OrderSideSell, quantity.String())
		if err == nil {
			return order, nil
		}
		lastErr = err

		if !policy.Retriable(err) {
			return nil, fmt.Errorf("order rejected by exchange: %w", err)
		}
		if attempt == policy.MaxAttempts {
			break
		}

		l.Warn("Failed to place sell order, retrying",
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		select {
		case <-time.After(policy.Backoff(attempt)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("failed to place sell order for %s after %d attempts: %w",
		symbol, policy.MaxAttempts, lastErr)
}

// confirmOrder polls the status endpoint until it returns any response for
// the order. Transient and unknown errors are both retried.
func confirmOrder(tctx Context, l *zap.Logger, symbol string, orderID int64) (*binance.OrderStatusResponse, error) {
	pollInterval := time.Duration(tctx.Cfg.Trading.PollInterval) * time.Second
	maxAttempts := tctx.Cfg.Trading.PollMaxAttempts

	for attempt := 1; ; attempt++ {
		status, err := tctx.RestClient.GetOrder(symbol, orderID)
		if err == nil {
			return status, nil
		}
		if attempt >= maxAttempts {
			return nil, &StuckOrderError{Phase: "confirm", Symbol: symbol, OrderID: orderID, Attempts: attempt}
		}

		l.Warn("Order not visible yet", zap.Int64("order_id", orderID), zap.Error(err))
		if binance.IsTransient(err) {
			time.Sleep(3 * pollInterval)
		} else {
			time.Sleep(pollInterval)
		}
	}
}

// awaitFill polls the order until its status reaches FILLED.
func awaitFill(tctx Context, l *zap.Logger, symbol string, orderID int64, status *binance.OrderStatusResponse) (*binance.OrderStatusResponse, error) {
	pollInterval := time.Duration(tctx.Cfg.Trading.PollInterval) * time.Second
	maxAttempts := tctx.Cfg.Trading.PollMaxAttempts

	for attempt := 1; status.Status != binance.OrderStatusFilled; attempt++ {
		l.Info("Order not filled yet",
			zap.Int64("order_id", orderID),
			zap.String("status", status.Status),
			zap.String("executed_quantity", status.ExecutedQuantity),
		)
		if attempt >= maxAttempts {
			return nil, &StuckOrderError{Phase: "fill", Symbol: symbol, OrderID: orderID, Attempts: attempt}
		}
		time.Sleep(pollInterval)

		next, err := tctx.RestClient.GetOrder(symbol, orderID)
		if err != nil {
			l.Warn("Order status poll failed", zap.Int64("order_id", orderID), zap.Error(err))
			continue
		}
		status = next
	}
	return status, nil
}

// awaitBalanceDrop polls the asset balance until it sits strictly below the
// pre-order snapshot. An account with no remaining entry for the asset counts
// as settled.
func awaitBalanceDrop(tctx Context, l *zap.Logger, asset string, preBalance decimal.Decimal, symbol string, orderID int64) error {
	pollInterval := time.Duration(tctx.Cfg.Trading.PollInterval) * time.Second
	maxAttempts := tctx.Cfg.Trading.PollMaxAttempts

	for attempt := 1; ; attempt++ {
		balance, ok, err := FreeBalance(tctx, asset)
		if err == nil && (!ok || balance.LessThan(preBalance)) {
			return nil
		}
		if attempt >= maxAttempts {
			return &StuckOrderError{Phase: "settle", Symbol: symbol, OrderID: orderID, Attempts: attempt}
		}

		if err != nil {
			l.Warn("Balance poll failed", zap.String("asset", asset), zap.Error(err))
		} else {
			l.Info("Waiting for balance to settle",
				zap.String("asset", asset),
				zap.String("balance", balance.String()),
				zap.String("pre_order_balance", preBalance.String()),
			)
		}
		time.Sleep(pollInterval)
	}
}

// tradeRecord builds the persisted summary of a filled order.
func tradeRecord(status *binance.OrderStatusResponse) *models.Trade {
	executedQty, _ := decimal.NewFromString(status.ExecutedQuantity)
	quoteQty, _ := decimal.NewFromString(status.CummulativeQuoteQty)

	price := decimal.Zero
	if executedQty.IsPositive() {
		price = quoteQty.Div(executedQty)
	}

	return &models.Trade{
		OrderID:       status.OrderID,
		Symbol:        status.Symbol,
		Side:          status.Side,
		Price:         price.InexactFloat64(),
		Quantity:      executedQty.InexactFloat64(),
		QuoteQuantity: quoteQty.InexactFloat64(),
		Status:        status.Status,
		Timestamp:     time.Now().Unix(),
	}
}
