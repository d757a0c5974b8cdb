package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"deposit-sweeper-go/internal/config"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	baseURL        = "https://api.binance.com"
	testnetBaseURL = "https://testnet.binance.vision"
	recvWindow     = "5000" // How long a request is valid in milliseconds

	OrderTypeMarket = "MARKET"
	OrderSideBuy    = "BUY"
	OrderSideSell   = "SELL"

	// OrderStatusFilled is the terminal state of a completed order.
	OrderStatusFilled = "FILLED"

	// DepositStatusSuccess is the status filter for credited deposits.
	DepositStatusSuccess = 1

	FilterTypeLotSize = "LOT_SIZE"
)

// RestClientInterface defines the interface for the Binance REST API client.
type RestClientInterface interface {
	GetServerTime() (int64, error)
	GetAllTickerPrices() (map[string]string, error)
	GetAccount() (*AccountResponse, error)
	GetSymbolInfo(symbol string) (*SymbolInfo, error)
	GetDepositHistory(start, end time.Time) ([]Deposit, error)
	CreateOrder(symbol, side, quantity string) (*CreateOrderResponse, error)
	GetOrder(symbol string, orderID int64) (*OrderStatusResponse, error)
}

// RestClient is a client for the Binance REST API.
// It implements the RestClientInterface.
type RestClient struct {
	client    *resty.Client
	apiKey    string
	secretKey string
	logger    *zap.Logger
	limiter   *rate.Limiter
}

// ensure RestClient implements the interface
var _ RestClientInterface = (*RestClient)(nil)

// NewRestClient creates a new Binance REST API client.
func NewRestClient(cfg *config.Binance, logger *zap.Logger) *RestClient {
	var url string
	if cfg.Testnet {
		url = testnetBaseURL
		logger.Warn("Using Binance Testnet")
	} else {
		url = baseURL
		logger.Info("Using Binance Production API")
	}

	client := resty.New().SetBaseURL(url)

	// Initialize the rate limiter
	// rate.Limit is requests per second.
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)

	return &RestClient{
		client:    client,
		apiKey:    cfg.ApiKey,
		secretKey: cfg.SecretKey,
		logger:    logger,
		limiter:   limiter,
	}
}

// sign creates a HMAC-SHA256 signature for the request.
func (c *RestClient) sign(data string) string {
	h := hmac.New(sha256.New, []byte(c.secretKey))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

// signedQuery stamps and signs a parameter set for the SIGNED endpoint family.
func (c *RestClient) signedQuery(params url.Values) string {
	params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	params.Set("recvWindow", recvWindow)
	queryString := params.Encode()
	params.Set("signature", c.sign(queryString))
	return params.Encode()
}

// GetServerTime fetches the current server time from Binance.
// This is a good endpoint to test connectivity.
func (c *RestClient) GetServerTime() (int64, error) {
	type ServerTimeResponse struct {
		ServerTime int64 `json:"serverTime"`
	}

	req := c.client.R().
		SetResult(&ServerTimeResponse{})
	ctx := context.Background()

	resp, err := c.doRequest(ctx, "GET", "/api/v3/time", req)
	if err != nil {
		c.logger.Error("Failed to get server time", zap.Error(err))
		return 0, fmt.Errorf("failed to get server time: %w", err)
	}

	result := resp.Result().(*ServerTimeResponse)
	return result.ServerTime, nil
}

// TickerPrice represents the response for a single ticker price.
type TickerPrice struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// doRequest handles the actual request execution with rate limiting and retry logic.
func (c *RestClient) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error
	const maxRetries = 3

	for i := 0; i < maxRetries; i++ {
		// Wait for the rate limiter
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+url))
		resp, err = req.Execute(method, url)

		if err == nil && !resp.IsError() {
			return resp, nil // Success
		}

		// Analyze error and decide whether to retry
		shouldRetry := false
		var retryAfter time.Duration

		if resp != nil && err == nil {
			statusCode := resp.StatusCode()
			if statusCode == http.StatusTooManyRequests || statusCode == 418 { // HTTP 429 or 418
				shouldRetry = true
				retryAfterHeader := resp.Header().Get("Retry-After")
				if seconds, err := strconv.Atoi(retryAfterHeader); err == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if statusCode >= 500 { // Server errors
				shouldRetry = true
			}
		} else { // Network or other client-side errors
			shouldRetry = true
		}

		if !shouldRetry {
			return nil, c.apiError(resp)
		}

		// If we should retry, calculate wait time
		if retryAfter == 0 {
			// Exponential backoff: 1s, 2s, 4s
			retryAfter = time.Duration(math.Pow(2, float64(i))) * time.Second
		}

		c.logger.Warn("Request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if resp != nil && err == nil {
		return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, c.apiError(resp))
	}
	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, err)
}

// apiError converts an error response into a typed *APIError so callers can
// distinguish rate limits, server failures, and invalid requests.
func (c *RestClient) apiError(resp *resty.Response) *APIError {
	apiErr := &APIError{Status: resp.StatusCode()}
	if err := json.Unmarshal(resp.Body(), apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = resp.String()
	}
	return apiErr
}

// GetAllTickerPrices fetches the latest price for all symbols.
func (c *RestClient) GetAllTickerPrices() (map[string]string, error) {
	var prices []*TickerPrice

	req := c.client.R().
		SetResult(&prices).
		SetHeader("Content-Type", "application/json")
	ctx := context.Background()

	resp, err := c.doRequest(ctx, "GET", "/api/v3/ticker/price", req)
	if err != nil {
		return nil, fmt.Errorf("failed to get all ticker prices: %w", err)
	}

	result := resp.Result().(*[]*TickerPrice)
	priceMap := make(map[string]string, len(*result))
	for _, p := range *result {
		priceMap[p.Symbol] = p.Price
	}

	return priceMap, nil
}

// Balance is a single asset balance within the account.
type Balance struct {
	Asset  string `json:"asset"`
	Free   string `json:"free"`
	Locked string `json:"locked"`
}

// AccountResponse represents the signed /account endpoint response.
type AccountResponse struct {
	Balances []Balance `json:"balances"`
}

// GetAccount fetches the account state, including all asset balances.
func (c *RestClient) GetAccount() (*AccountResponse, error) {
	query := c.signedQuery(url.Values{})

	req := c.client.R().
		SetHeader("X-MBX-APIKEY", c.apiKey).
		SetQueryString(query).
		SetResult(&AccountResponse{})
	ctx := context.Background()

	resp, err := c.doRequest(ctx, "GET", "/api/v3/account", req)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return resp.Result().(*AccountResponse), nil
}

// ExchangeInfoResponse represents the full response from the /exchangeInfo endpoint.
type ExchangeInfoResponse struct {
	Symbols []SymbolInfo `json:"symbols"`
}

// SymbolInfo contains information about a specific trading symbol.
type SymbolInfo struct {
	Symbol  string   `json:"symbol"`
	Status  string   `json:"status"`
	Filters []Filter `json:"filters"`
}

// Filter represents a single filter for a symbol.
// We are interested in the LOT_SIZE filter to get the stepSize.
type Filter struct {
	FilterType string `json:"filterType"`
	MinQty     string `json:"minQty,omitempty"`
	MaxQty     string `json:"maxQty,omitempty"`
	StepSize   string `json:"stepSize,omitempty"`
}

// GetSymbolInfo fetches the trading rules for a single symbol.
func (c *RestClient) GetSymbolInfo(symbol string) (*SymbolInfo, error) {
	var exchangeInfo ExchangeInfoResponse

	req := c.client.R().
		SetQueryParam("symbol", symbol).
		SetResult(&exchangeInfo).
		SetHeader("Content-Type", "application/json")
	ctx := context.Background()

	resp, err := c.doRequest(ctx, "GET", "/api/v3/exchangeInfo", req)
	if err != nil {
		return nil, fmt.Errorf("failed to get exchange info for %s: %w", symbol, err)
	}

	result := resp.Result().(*ExchangeInfoResponse)
	for i := range result.Symbols {
		if result.Symbols[i].Symbol == symbol {
			return &result.Symbols[i], nil
		}
	}
	return nil, fmt.Errorf("exchange info response contains no symbol %s", symbol)
}

// Deposit is a single credited deposit from the deposit history endpoint.
type Deposit struct {
	Coin       string `json:"coin"`
	Amount     string `json:"amount"`
	Status     int    `json:"status"`
	InsertTime int64  `json:"insertTime"` // milliseconds since epoch
	TxID       string `json:"txId"`
	Network    string `json:"network"`
}

// GetDepositHistory fetches successfully credited deposits inside [start, end].
func (c *RestClient) GetDepositHistory(start, end time.Time) ([]Deposit, error) {
	params := url.Values{}
	params.Set("status", strconv.Itoa(DepositStatusSuccess))
	params.Set("startTime", strconv.FormatInt(start.UnixMilli(), 10))
	params.Set("endTime", strconv.FormatInt(end.UnixMilli(), 10))
	query := c.signedQuery(params)

	var deposits []Deposit
	req := c.client.R().
		SetHeader("X-MBX-APIKEY", c.apiKey).
		SetQueryString(query).
		SetResult(&deposits)
	ctx := context.Background()

	resp, err := c.doRequest(ctx, "GET", "/sapi/v1/capital/deposit/hisrec", req)
	if err != nil {
		return nil, fmt.Errorf("failed to get deposit history: %w", err)
	}

	return *resp.Result().(*[]Deposit), nil
}

// CreateOrderResponse represents the response from creating a new order.
type CreateOrderResponse struct {
	Symbol              string `json:"symbol"`
	OrderID             int64  `json:"orderId"`
	ClientOrderID       string `json:"clientOrderId"`
	TransactTime        int64  `json:"transactTime"`
	Price               string `json:"price"`
	OrigQuantity        string `json:"origQty"`
	ExecutedQuantity    string `json:"executedQty"`
	CummulativeQuoteQty string `json:"cummulativeQuoteQty"`
	Status              string `json:"status"`
	TimeInForce         string `json:"timeInForce"`
	Type                string `json:"type"`
	Side                string `json:"side"`
}

// CreateOrder places a new MARKET order on Binance.
// Quantity is passed as a decimal string already conforming to the symbol's
// LOT_SIZE step so the exchange never rejects it for precision.
func (c *RestClient) CreateOrder(symbol, side, quantity string) (*CreateOrderResponse, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("side", side)
	params.Set("type", OrderTypeMarket)
	params.Set("quantity", quantity)
	body := c.signedQuery(params)

	req := c.client.R().
		SetHeader("X-MBX-APIKEY", c.apiKey).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetBody(body).
		SetResult(&CreateOrderResponse{})

	ctx := context.Background()

	resp, err := c.doRequest(ctx, "POST", "/api/v3/order", req)
	if err != nil {
		c.logger.Error("Failed to create order after multiple attempts",
			zap.Error(err),
			zap.String("symbol", symbol),
		)
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	result := resp.Result().(*CreateOrderResponse)
	c.logger.Info("Successfully created order", zap.Any("order", result))
	return result, nil
}

// OrderStatusResponse represents the response from the order status endpoint.
type OrderStatusResponse struct {
	Symbol              string `json:"symbol"`
	OrderID             int64  `json:"orderId"`
	ClientOrderID       string `json:"clientOrderId"`
	Price               string `json:"price"`
	OrigQuantity        string `json:"origQty"`
	ExecutedQuantity    string `json:"executedQty"`
	CummulativeQuoteQty string `json:"cummulativeQuoteQty"`
	Status              string `json:"status"`
	Type                string `json:"type"`
	Side                string `json:"side"`
	Time                int64  `json:"time"`
	UpdateTime          int64  `json:"updateTime"`
}

// GetOrder looks up the current status of an order.
func (c *RestClient) GetOrder(symbol string, orderID int64) (*OrderStatusResponse, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", strconv.FormatInt(orderID, 10))
	query := c.signedQuery(params)

	req := c.client.R().
		SetHeader("X-MBX-APIKEY", c.apiKey).
		SetQueryString(query).
		SetResult(&OrderStatusResponse{})
	ctx := context.Background()

	resp, err := c.doRequest(ctx, "GET", "/api/v3/order", req)
	if err != nil {
		return nil, fmt.Errorf("failed to get order %d for %s: %w", orderID, symbol, err)
	}

	return resp.Result().(*OrderStatusResponse), nil
}
