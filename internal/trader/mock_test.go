package trader

import (
	"time"

	"deposit-sweeper-go/internal/binance"
	"github.com/stretchr/testify/mock"
)

// MockRestClient is a mock implementation of the RestClientInterface.
type MockRestClient struct {
	mock.Mock
}

func (m *MockRestClient) GetServerTime() (int64, error) {
	args := m.Called()
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRestClient) GetAllTickerPrices() (map[string]string, error) {
	args := m.Called()
	return args.Get(0).(map[string]string), args.Error(1)
}

func (m *MockRestClient) GetAccount() (*binance.AccountResponse, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*binance.AccountResponse), args.Error(1)
}

func (m *MockRestClient) GetSymbolInfo(symbol string) (*binance.SymbolInfo, error) {
	args := m.Called(symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*binance.SymbolInfo), args.Error(1)
}

func (m *MockRestClient) GetDepositHistory(start, end time.Time) ([]binance.Deposit, error) {
	args := m.Called(start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]binance.Deposit), args.Error(1)
}

func (m *MockRestClient) CreateOrder(symbol, side, quantity string) (*binance.CreateOrderResponse, error) {
	args := m.Called(symbol, side, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*binance.CreateOrderResponse), args.Error(1)
}

func (m *MockRestClient) GetOrder(symbol string, orderID int64) (*binance.OrderStatusResponse, error) {
	args := m.Called(symbol, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*binance.OrderStatusResponse), args.Error(1)
}

// accountWith builds an account response with a single asset balance.
func accountWith(asset, free string) *binance.AccountResponse {
	return &binance.AccountResponse{
		Balances: []binance.Balance{
			{Asset: "USDT", Free: "100.0", Locked: "0"},
			{Asset: asset, Free: free, Locked: "0"},
		},
	}
}

// lotSizeInfo builds symbol info carrying a single LOT_SIZE filter.
func lotSizeInfo(symbol, step string) *binance.SymbolInfo {
	return &binance.SymbolInfo{
		Symbol: symbol,
		Status: "TRADING",
		Filters: []binance.Filter{
			{FilterType: "PRICE_FILTER"},
			{FilterType: binance.FilterTypeLotSize, StepSize: step, MinQty: step},
		},
	}
}
