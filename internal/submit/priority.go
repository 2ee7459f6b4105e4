package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"solana-trade-engine/internal/domain"
)

// DefaultPriorityTimeout bounds one HTTP exchange with the block engine.
const DefaultPriorityTimeout = 10 * time.Second

// rpcErrRateLimited is the block engine's JSON-RPC code for bundle
// rate limiting, returned alongside plain HTTP 429s.
const rpcErrRateLimited = -32097

// PriorityClient submits bundles to a Jito-style block engine over
// JSON-RPC. It performs no retries of its own: rate-limit pushback is
// classified and handed to the router, which owns the backoff policy.
type PriorityClient struct {
	endpoint  string
	authKey   string
	client    *http.Client
	requestID atomic.Uint64
}

// PriorityOption configures PriorityClient.
type PriorityOption func(*PriorityClient)

// WithPriorityTimeout sets the HTTP client timeout.
func WithPriorityTimeout(d time.Duration) PriorityOption {
	return func(c *PriorityClient) {
		c.client.Timeout = d
	}
}

// WithAuthKey sets the x-jito-auth header value.
func WithAuthKey(key string) PriorityOption {
	return func(c *PriorityClient) {
		c.authKey = key
	}
}

// WithPriorityHTTPClient sets a custom http.Client.
func WithPriorityHTTPClient(client *http.Client) PriorityOption {
	return func(c *PriorityClient) {
		c.client = client
	}
}

// NewPriorityClient creates a client for the given bundle endpoint,
// e.g. "https://mainnet.block-engine.example.com/api/v1/bundles".
func NewPriorityClient(endpoint string, opts ...PriorityOption) *PriorityClient {
	c := &PriorityClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: DefaultPriorityTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SendBundle submits the artifacts as one atomic bundle and returns
// the pending submission.
func (c *PriorityClient) SendBundle(ctx context.Context, artifacts []*domain.SignedArtifact) (*domain.BundleSubmission, error) {
	if len(artifacts) == 0 {
		return nil, fmt.Errorf("empty bundle")
	}

	payloads := make([]string, len(artifacts))
	signatures := make([]string, len(artifacts))
	for i, a := range artifacts {
		payloads[i] = a.Payload
		signatures[i] = a.Signature
	}

	var id string
	params := []interface{}{payloads, map[string]string{"encoding": "base64"}}
	if err := c.call(ctx, "sendBundle", params, &id); err != nil {
		return nil, fmt.Errorf("send bundle: %w", err)
	}

	return &domain.BundleSubmission{
		ID:         id,
		Status:     domain.BundlePending,
		Signatures: signatures,
	}, nil
}

// bundleStatusEntry mirrors one getBundleStatuses value element.
type bundleStatusEntry struct {
	BundleID           string          `json:"bundle_id"`
	Transactions       []string        `json:"transactions"`
	Slot               uint64          `json:"slot"`
	ConfirmationStatus string          `json:"confirmation_status"`
	Err                json.RawMessage `json:"err"`
}

// PollBundle reports the bundle's current state. A bundle the engine
// does not know yet is still pending from the caller's point of view.
func (c *PriorityClient) PollBundle(ctx context.Context, id string) (*domain.BundleSubmission, error) {
	var out struct {
		Value []*bundleStatusEntry `json:"value"`
	}
	if err := c.call(ctx, "getBundleStatuses", []interface{}{[]string{id}}, &out); err != nil {
		return nil, fmt.Errorf("poll bundle %s: %w", id, err)
	}

	sub := &domain.BundleSubmission{ID: id, Status: domain.BundlePending}
	if len(out.Value) == 0 || out.Value[0] == nil {
		return sub, nil
	}

	entry := out.Value[0]
	sub.Signatures = entry.Transactions
	if bundleErrSet(entry.Err) {
		sub.Status = domain.BundleFailed
		sub.Err = string(entry.Err)
		return sub, nil
	}
	switch entry.ConfirmationStatus {
	case "confirmed", "finalized":
		sub.Status = domain.BundleLanded
	}
	return sub, nil
}

// bundleErrSet reports whether the engine's err field carries an
// actual failure. The field is either absent, JSON null, or the
// {"Ok": null} success marker; anything else is a failure.
func bundleErrSet(raw json.RawMessage) bool {
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return false
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return true
	}
	if v, ok := m["Ok"]; ok && len(m) == 1 {
		return !(len(v) == 0 || bytes.Equal(bytes.TrimSpace(v), []byte("null")))
	}
	return len(m) > 0
}

func (c *PriorityClient) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	body, err := json.Marshal(struct {
		JSONRPC string        `json:"jsonrpc"`
		ID      uint64        `json:"id"`
		Method  string        `json:"method"`
		Params  []interface{} `json:"params"`
	}{"2.0", c.requestID.Add(1), method, params})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authKey != "" {
		req.Header.Set("x-jito-auth", c.authKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return domain.Errf(domain.KindRateLimited, "block engine returned 429")
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var rpcResp struct {
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &rpcResp); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	if rpcResp.Error != nil {
		if rpcResp.Error.Code == rpcErrRateLimited {
			return domain.Errf(domain.KindRateLimited, "block engine rate limited: %s", rpcResp.Error.Message)
		}
		return fmt.Errorf("block engine error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}

	if result != nil && len(rpcResp.Result) > 0 {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("unmarshal result: %w", err)
		}
	}
	return nil
}

var _ PriorityChannel = (*PriorityClient)(nil)
