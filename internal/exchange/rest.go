package exchange

import (
	"bytes"
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	json "github.com/goccy/go-json"

	"github.com/aaronwins356/voltrader/pkg/types"
	"go.uber.org/zap"
)

const restAPIPrefix = "/trade-api/v2"

// RESTClient talks to a Kalshi-style trade API. Market endpoints work
// with just an access key; portfolio endpoints additionally need the
// RSA-PSS request signature, so order placement without key material
// surfaces as an ExternalAPIError rather than a startup failure.
type RESTClient struct {
	baseURL     string
	apiKey      string
	environment string
	signer      *rsa.PrivateKey
	httpClient  *http.Client
	logger      *zap.Logger
	now         func() time.Time
}

// RESTClientConfig holds REST client configuration.
type RESTClientConfig struct {
	BaseURL        string
	APIKey         string
	PrivateKeyPath string // PEM, optional; without it requests go unsigned
	Environment    string // "demo" or "prod"
	Timeout        time.Duration
	Logger         *zap.Logger
}

// NewRESTClient creates a REST client.
func NewRESTClient(cfg *RESTClientConfig) (*RESTClient, error) {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 20 * time.Second
	}

	var signer *rsa.PrivateKey
	if cfg.PrivateKeyPath != "" {
		raw, err := os.ReadFile(cfg.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("read exchange private key: %w", err)
		}
		signer, err = parsePrivateKey(raw)
		if err != nil {
			return nil, fmt.Errorf("parse exchange private key: %w", err)
		}
	}

	return &RESTClient{
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		environment: cfg.Environment,
		signer:      signer,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      cfg.Logger,
		now:         time.Now,
	}, nil
}

func parsePrivateKey(raw []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("not an RSA key")
	}
	return key, nil
}

// SetClock overrides the time source. Test hook.
func (c *RESTClient) SetClock(now func() time.Time) {
	c.now = now
}

type restMarket struct {
	Ticker       string    `json:"ticker"`
	Title        string    `json:"title"`
	Category     string    `json:"category"`
	CloseTime    time.Time `json:"close_time"`
	YesBid       float64   `json:"yes_bid"`
	YesAsk       float64   `json:"yes_ask"`
	LastPrice    float64   `json:"last_price"`
	Volume       float64   `json:"volume"`
	OpenInterest float64   `json:"open_interest"`
	Liquidity    float64   `json:"liquidity"`
}

// ListMarkets lists open markets, following the pagination cursor, and
// filters by event type and resolution window client-side.
func (c *RESTClient) ListMarkets(ctx context.Context, eventType string, windowHours int) ([]MarketInfo, error) {
	var markets []restMarket
	cursor := ""
	for {
		params := url.Values{"status": {"open"}}
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		var page struct {
			Markets []restMarket `json:"markets"`
			Cursor  string       `json:"cursor"`
		}
		if err := c.request(ctx, http.MethodGet, "/markets", params, nil, &page); err != nil {
			return nil, err
		}
		markets = append(markets, page.Markets...)
		cursor = page.Cursor
		if cursor == "" {
			break
		}
	}

	at := c.now()
	infos := make([]MarketInfo, 0, len(markets))
	for _, m := range markets {
		ttr := m.CloseTime.Sub(at).Minutes()
		if eventType != "" && m.Category != eventType {
			continue
		}
		if windowHours > 0 && ttr > float64(windowHours)*60 {
			continue
		}
		infos = append(infos, MarketInfo{
			MarketID:                m.Ticker,
			Name:                    m.Title,
			Category:                m.Category,
			TimeToResolutionMinutes: ttr,
		})
	}
	return infos, nil
}

// GetQuotes fetches each market individually; quote fields arrive in
// cents and are converted to dollar fractions.
func (c *RESTClient) GetQuotes(ctx context.Context, marketIDs []string) ([]types.RawQuote, error) {
	at := c.now()
	quotes := make([]types.RawQuote, 0, len(marketIDs))
	for _, id := range marketIDs {
		var payload struct {
			Market restMarket `json:"market"`
		}
		if err := c.request(ctx, http.MethodGet, "/markets/"+id, nil, nil, &payload); err != nil {
			return nil, err
		}
		m := payload.Market
		quotes = append(quotes, types.RawQuote{
			MarketID:                id,
			Name:                    m.Title,
			Category:                m.Category,
			Bid:                     m.YesBid / 100,
			Ask:                     m.YesAsk / 100,
			Last:                    m.LastPrice / 100,
			Volume:                  m.Volume,
			BidDepth:                m.Liquidity / 2,
			AskDepth:                m.Liquidity / 2,
			TimeToResolutionMinutes: m.CloseTime.Sub(at).Minutes(),
			UpdatedAt:               at,
		})
	}
	return quotes, nil
}

// PlaceOrder submits a limit order. The side's price travels as a dollar
// string in the side-specific field.
func (c *RESTClient) PlaceOrder(ctx context.Context, order types.Order) (*types.OrderAck, error) {
	action := "buy"
	if order.Action == types.ActionClose {
		action = "sell"
	}
	payload := map[string]interface{}{
		"ticker": order.MarketID,
		"action": action,
		"side":   string(order.Side),
		"type":   "limit",
		"count":  order.Quantity,
	}
	priceField := "yes_price_dollars"
	if order.Side == types.SideNo {
		priceField = "no_price_dollars"
	}
	payload[priceField] = strconv.FormatFloat(order.Price, 'f', 4, 64)

	var resp struct {
		Order struct {
			OrderID string `json:"order_id"`
			Status  string `json:"status"`
		} `json:"order"`
	}
	if err := c.request(ctx, http.MethodPost, "/portfolio/orders", nil, payload, &resp); err != nil {
		return nil, &types.ExternalAPIError{Op: "place_order", Err: err}
	}

	ack := &types.OrderAck{OrderID: resp.Order.OrderID}
	switch resp.Order.Status {
	case "executed":
		ack.Status = types.OrderFilled
		ack.FilledQty = order.Quantity
		ack.AvgFillPrice = order.Price
	case "resting":
		ack.Status = types.OrderOpen
	default:
		ack.Status = types.OrderPending
	}
	return ack, nil
}

// CancelOrder cancels by ID. A 404 means the order already reached a
// terminal state and is treated as a no-op.
func (c *RESTClient) CancelOrder(ctx context.Context, orderID string) error {
	err := c.request(ctx, http.MethodDelete, "/portfolio/orders/"+orderID, nil, nil, nil)
	var status *restStatusError
	if errors.As(err, &status) && status.code == http.StatusNotFound {
		return nil
	}
	if err != nil {
		return &types.ExternalAPIError{Op: "cancel_order", Err: err}
	}
	return nil
}

// GetAccount probes the balance endpoint for connectivity.
func (c *RESTClient) GetAccount(ctx context.Context) (types.AccountStatus, error) {
	var balance struct {
		Balance float64 `json:"balance"`
	}
	status := types.AccountStatus{
		Environment:   c.environment,
		AccountMasked: maskKey(c.apiKey),
	}
	if err := c.request(ctx, http.MethodGet, "/portfolio/balance", nil, nil, &balance); err != nil {
		status.LastError = err.Error()
		return status, err
	}
	status.Connected = true
	return status, nil
}

func maskKey(key string) string {
	if len(key) < 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}

// restStatusError carries the HTTP status so callers can distinguish
// terminal-order 404s from real failures.
type restStatusError struct {
	code int
	body string
}

func (e *restStatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.code, e.body)
}

func (c *RESTClient) request(ctx context.Context, method, path string, params url.Values, payload, out interface{}) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if err := c.sign(req, method, path); err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Debug("exchange-request-failed",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		snippet := string(raw)
		if len(snippet) > 300 {
			snippet = snippet[:300]
		}
		return &restStatusError{code: resp.StatusCode, body: snippet}
	}

	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}

// sign attaches the access headers. The signature message is the
// millisecond timestamp, the method and the prefixed path without query
// parameters.
func (c *RESTClient) sign(req *http.Request, method, path string) error {
	if c.apiKey == "" {
		return nil
	}
	timestamp := strconv.FormatInt(c.now().UnixMilli(), 10)
	req.Header.Set("KALSHI-ACCESS-KEY", c.apiKey)
	req.Header.Set("KALSHI-ACCESS-TIMESTAMP", timestamp)
	if c.signer == nil {
		return nil
	}

	message := timestamp + method + restAPIPrefix + path
	digest := sha256.Sum256([]byte(message))
	signature, err := rsa.SignPSS(rand.Reader, c.signer, crypto.SHA256, digest[:], &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthAuto,
	})
	if err != nil {
		return fmt.Errorf("sign request: %w", err)
	}
	req.Header.Set("KALSHI-ACCESS-SIGNATURE", base64.StdEncoding.EncodeToString(signature))
	return nil
}
