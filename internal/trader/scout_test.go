package trader

import (
	"context"
	"testing"
	"time"

	"deposit-sweeper-go/internal/binance"
	"deposit-sweeper-go/internal/config"
	"deposit-sweeper-go/internal/models"
	"deposit-sweeper-go/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// recordingNotifier captures every message for assertions.
type recordingNotifier struct {
	messages []notify.Message
}

func (n *recordingNotifier) Send(msg notify.Message) {
	n.messages = append(n.messages, msg)
}

// setupScoutTest creates an in-memory asset set matching the config defaults.
func setupScoutTest(t *testing.T) (*gorm.DB, *MockRestClient, *recordingNotifier, Context) {
	// Use a new, non-shared in-memory database for each test to ensure isolation.
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	assert.NoError(t, err)

	err = db.AutoMigrate(&models.Asset{}, &models.Trade{})
	assert.NoError(t, err)

	db.Create(&models.Asset{Symbol: "ETH", Enabled: true})
	db.Create(&models.Asset{Symbol: "BTC", Enabled: true})
	db.Create(&models.Asset{Symbol: "USDT", Stable: true, Enabled: true})

	mockClient := new(MockRestClient)
	notifier := &recordingNotifier{}

	cfg := &config.Config{
		Trading: config.Trading{
			QuoteAsset:         "USDT",
			DepositWindowHours: 24,
			ExecuteSells:       false,
			SellMaxAttempts:    20,
			PollMaxAttempts:    10,
		},
	}

	tctx := Context{
		Logger:     zap.NewNop(),
		Cfg:        cfg,
		RestClient: mockClient,
		DB:         db,
		Notifier:   notifier,
	}
	return db, mockClient, notifier, tctx
}

func deposit(coin, amount string) binance.Deposit {
	return binance.Deposit{
		Coin:       coin,
		Amount:     amount,
		Status:     binance.DepositStatusSuccess,
		InsertTime: time.Now().Add(-time.Hour).UnixMilli(),
	}
}

func TestScout_SelectsClearedDeposit(t *testing.T) {
	_, mockClient, notifier, tctx := setupScoutTest(t)

	mockClient.On("GetDepositHistory", mock.Anything, mock.Anything).
		Return([]binance.Deposit{deposit("ETH", "1.0")}, nil)
	mockClient.On("GetAccount").Return(accountWith("ETH", "1.5"), nil)

	err := Scout(context.Background(), tctx, testPolicy(20))

	assert.NoError(t, err)
	assert.Len(t, notifier.messages, 1)
	// Detection only: execute_sells is off, so no order is placed.
	mockClient.AssertNotCalled(t, "CreateOrder")
}

func TestScout_BalanceBelowDepositNotSelected(t *testing.T) {
	_, mockClient, notifier, tctx := setupScoutTest(t)

	mockClient.On("GetDepositHistory", mock.Anything, mock.Anything).
		Return([]binance.Deposit{deposit("ETH", "1.0")}, nil)
	mockClient.On("GetAccount").Return(accountWith("ETH", "0.5"), nil)

	err := Scout(context.Background(), tctx, testPolicy(20))

	assert.NoError(t, err)
	assert.Empty(t, notifier.messages)
}

func TestScout_StableAssetNeverSelected(t *testing.T) {
	_, mockClient, notifier, tctx := setupScoutTest(t)

	mockClient.On("GetDepositHistory", mock.Anything, mock.Anything).
		Return([]binance.Deposit{deposit("USDT", "100.0")}, nil)
	mockClient.On("GetAccount").Return(accountWith("USDT", "5000.0"), nil)

	err := Scout(context.Background(), tctx, testPolicy(20))

	assert.NoError(t, err)
	assert.Empty(t, notifier.messages)
	mockClient.AssertNotCalled(t, "CreateOrder")
}

func TestScout_UnsupportedAssetIgnored(t *testing.T) {
	_, mockClient, notifier, tctx := setupScoutTest(t)

	mockClient.On("GetDepositHistory", mock.Anything, mock.Anything).
		Return([]binance.Deposit{deposit("SHIB", "9999999")}, nil)
	mockClient.On("GetAccount").Return(accountWith("SHIB", "9999999"), nil)

	err := Scout(context.Background(), tctx, testPolicy(20))

	assert.NoError(t, err)
	assert.Empty(t, notifier.messages)
}

func TestScout_NoDepositsNoAccountLookup(t *testing.T) {
	_, mockClient, _, tctx := setupScoutTest(t)

	mockClient.On("GetDepositHistory", mock.Anything, mock.Anything).
		Return([]binance.Deposit{}, nil)

	err := Scout(context.Background(), tctx, testPolicy(20))

	assert.NoError(t, err)
	mockClient.AssertNotCalled(t, "GetAccount")
}

func TestScout_ExecuteSellsRunsFullProtocol(t *testing.T) {
	db, mockClient, notifier, tctx := setupScoutTest(t)
	tctx.Cfg.Trading.ExecuteSells = true

	mockClient.On("GetDepositHistory", mock.Anything, mock.Anything).
		Return([]binance.Deposit{deposit("ETH", "1.0")}, nil)

	// Scout's balance pass, the sell's snapshot, then the settled balance.
	mockClient.On("GetAccount").Return(accountWith("ETH", "1.5"), nil).Times(2)
	mockClient.On("GetAccount").Return(accountWith("ETH", "0"), nil)

	mockClient.On("GetSymbolInfo", "ETHUSDT").Return(lotSizeInfo("ETHUSDT", "0.001"), nil)
	mockClient.On("CreateOrder", "ETHUSDT", binance.OrderSideSell, "1.5").
		Return(&binance.CreateOrderResponse{Symbol: "ETHUSDT", OrderID: 99, Status: "NEW"}, nil)
	mockClient.On("GetOrder", "ETHUSDT", int64(99)).
		Return(&binance.OrderStatusResponse{
			Symbol: "ETHUSDT", OrderID: 99, Side: binance.OrderSideSell, Status: binance.OrderStatusFilled,
			ExecutedQuantity: "1.5", CummulativeQuoteQty: "2700",
		}, nil)

	err := Scout(context.Background(), tctx, testPolicy(20))

	assert.NoError(t, err)
	mockClient.AssertCalled(t, "CreateOrder", "ETHUSDT", binance.OrderSideSell, "1.5")

	// Candidate notification plus sold notification.
	assert.Len(t, notifier.messages, 2)

	var count int64
	assert.NoError(t, db.Model(&models.Trade{}).Where("order_id = ?", 99).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
