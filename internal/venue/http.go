package venue

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"solana-trade-engine/internal/domain"
	"solana-trade-engine/internal/solana"
)

// Default configuration values.
const (
	DefaultTimeout     = 10 * time.Second
	DefaultMaxRetries  = 2
	DefaultRetryDelay  = 200 * time.Millisecond
	DefaultMaxDelay    = 2 * time.Second
	DefaultSlippageBps = 100
)

// errTokenUnknown marks a 404 from the token metadata endpoint.
var errTokenUnknown = errors.New("token unknown to venue")

// HTTPClient implements Client against a Jupiter-style aggregator API.
type HTTPClient struct {
	endpoint    string
	owner       string // wallet pubkey, fee payer of every built swap
	apiKey      string
	slippageBps int
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithAPIKey sets the venue API key header.
func WithAPIKey(key string) ClientOption {
	return func(c *HTTPClient) {
		c.apiKey = key
	}
}

// WithSlippageBps sets quote slippage tolerance in basis points.
func WithSlippageBps(bps int) ClientOption {
	return func(c *HTTPClient) {
		c.slippageBps = bps
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates a venue client. owner is the wallet public key used
// as fee payer in every built transaction.
func NewHTTPClient(endpoint, owner string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:    endpoint,
		owner:       owner,
		slippageBps: DefaultSlippageBps,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BuildBuyArtifact builds an unsigned WSOL-to-token swap spending solAmount SOL.
func (c *HTTPClient) BuildBuyArtifact(ctx context.Context, mint string, solAmount decimal.Decimal) (*domain.UnsignedArtifact, error) {
	if !solAmount.IsPositive() {
		return nil, fmt.Errorf("buy amount must be positive, got %s", solAmount)
	}

	lamports := solAmount.Shift(9).BigInt().Uint64()
	if lamports == 0 {
		return nil, fmt.Errorf("buy amount %s SOL is below one lamport", solAmount)
	}

	artifact, err := c.buildArtifact(ctx, WSOLMint, mint, lamports)
	if err != nil {
		return nil, fmt.Errorf("build buy artifact for %s: %w", mint, err)
	}

	artifact.Mint = mint
	artifact.Side = domain.SideBuy
	artifact.RawAmount = lamports
	return artifact, nil
}

// BuildSellArtifact builds an unsigned token-to-WSOL swap selling rawAmount base units.
func (c *HTTPClient) BuildSellArtifact(ctx context.Context, mint string, rawAmount uint64) (*domain.UnsignedArtifact, error) {
	if rawAmount == 0 {
		return nil, fmt.Errorf("sell amount must be positive")
	}

	artifact, err := c.buildArtifact(ctx, mint, WSOLMint, rawAmount)
	if err != nil {
		return nil, fmt.Errorf("build sell artifact for %s: %w", mint, err)
	}

	artifact.Mint = mint
	artifact.Side = domain.SideSell
	artifact.RawAmount = rawAmount
	return artifact, nil
}

// Decimals returns the mint's decimals from the venue token registry.
func (c *HTTPClient) Decimals(ctx context.Context, mint string) (int, error) {
	data, err := c.do(ctx, http.MethodGet, c.endpoint+"/v6/tokens/"+mint, nil)
	if errors.Is(err, errTokenUnknown) {
		return DefaultDecimals, nil
	}
	if err != nil {
		return 0, fmt.Errorf("fetch token %s: %w", mint, err)
	}

	var out struct {
		Decimals *int `json:"decimals"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return 0, fmt.Errorf("decode token %s: %w", mint, err)
	}

	if out.Decimals == nil {
		return DefaultDecimals, nil
	}
	return *out.Decimals, nil
}

// buildArtifact runs the quote-then-swap flow and decodes the unsigned
// transaction the venue returns.
func (c *HTTPClient) buildArtifact(ctx context.Context, inputMint, outputMint string, amount uint64) (*domain.UnsignedArtifact, error) {
	quote, err := c.quote(ctx, inputMint, outputMint, amount)
	if err != nil {
		return nil, err
	}

	payload, lastValid, err := c.swap(ctx, quote)
	if err != nil {
		return nil, err
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode swap transaction: %w", err)
	}

	tx, err := solana.ParseTransaction(raw)
	if err != nil {
		return nil, fmt.Errorf("parse swap transaction: %w", err)
	}

	blockhash, err := tx.Blockhash()
	if err != nil {
		return nil, fmt.Errorf("extract blockhash: %w", err)
	}

	return &domain.UnsignedArtifact{
		Payload:              payload,
		Blockhash:            blockhash,
		LastValidBlockHeight: lastValid,
		BuiltAt:              time.Now().UnixMilli(),
	}, nil
}

// quote fetches a route for the pair and returns the raw quote body, which
// the swap endpoint expects echoed back verbatim.
func (c *HTTPClient) quote(ctx context.Context, inputMint, outputMint string, amount uint64) (json.RawMessage, error) {
	q := url.Values{}
	q.Set("inputMint", inputMint)
	q.Set("outputMint", outputMint)
	q.Set("amount", fmt.Sprintf("%d", amount))
	q.Set("slippageBps", fmt.Sprintf("%d", c.slippageBps))

	data, err := c.do(ctx, http.MethodGet, c.endpoint+"/v6/quote?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("quote %s -> %s: %w", inputMint, outputMint, err)
	}

	var probe struct {
		OutAmount string `json:"outAmount"`
		Error     string `json:"error"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode quote: %w", err)
	}
	if probe.Error != "" {
		return nil, fmt.Errorf("quote rejected: %s", probe.Error)
	}
	if probe.OutAmount == "" {
		return nil, fmt.Errorf("no route for %s -> %s", inputMint, outputMint)
	}

	return json.RawMessage(data), nil
}

// swap exchanges a quote for an unsigned transaction.
func (c *HTTPClient) swap(ctx context.Context, quote json.RawMessage) (string, uint64, error) {
	body, err := json.Marshal(map[string]interface{}{
		"quoteResponse":    quote,
		"userPublicKey":    c.owner,
		"wrapAndUnwrapSol": true,
	})
	if err != nil {
		return "", 0, fmt.Errorf("marshal swap request: %w", err)
	}

	data, err := c.do(ctx, http.MethodPost, c.endpoint+"/v6/swap", body)
	if err != nil {
		return "", 0, fmt.Errorf("swap: %w", err)
	}

	var out struct {
		SwapTransaction      string `json:"swapTransaction"`
		LastValidBlockHeight uint64 `json:"lastValidBlockHeight"`
		Error                string `json:"error"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return "", 0, fmt.Errorf("decode swap response: %w", err)
	}
	if out.Error != "" {
		return "", 0, fmt.Errorf("swap rejected: %s", out.Error)
	}
	if out.SwapTransaction == "" {
		return "", 0, fmt.Errorf("swap response missing transaction")
	}

	return out.SwapTransaction, out.LastValidBlockHeight, nil
}

// do performs an HTTP request with retries and exponential backoff on 429
// and server errors. 404 maps to errTokenUnknown without retrying.
func (c *HTTPClient) do(ctx context.Context, method, rawURL string, body []byte) ([]byte, error) {
	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.apiKey != "" {
			req.Header.Set("X-API-Key", c.apiKey)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("request: %w", err)
			continue
		}

		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("HTTP %d", resp.StatusCode)
			continue
		}
		if readErr != nil {
			lastErr = fmt.Errorf("read response: %w", readErr)
			continue
		}
		if resp.StatusCode == http.StatusNotFound {
			return nil, errTokenUnknown
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, data)
		}

		return data, nil
	}

	return nil, fmt.Errorf("venue request failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

var _ Client = (*HTTPClient)(nil)
