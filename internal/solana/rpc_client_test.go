package solana

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestHTTPClient_GetBalance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}

		if req.Method != "getBalance" {
			t.Errorf("expected method getBalance, got %s", req.Method)
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": map[string]interface{}{
				"context": map[string]interface{}{"slot": int64(100)},
				"value":   uint64(2500000000),
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx := context.Background()

	lamports, err := client.GetBalance(ctx, "testpubkey")
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}

	if lamports != 2500000000 {
		t.Errorf("expected 2500000000 lamports, got %d", lamports)
	}
}

func TestHTTPClient_GetTokenAccountBalance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		if req.Method != "getTokenAccountBalance" {
			t.Errorf("expected method getTokenAccountBalance, got %s", req.Method)
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": map[string]interface{}{
				"context": map[string]interface{}{"slot": int64(100)},
				"value": map[string]interface{}{
					"amount":         "123456789",
					"decimals":       6,
					"uiAmount":       123.456789,
					"uiAmountString": "123.456789",
				},
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx := context.Background()

	amount, err := client.GetTokenAccountBalance(ctx, "tokenaccount")
	if err != nil {
		t.Fatalf("GetTokenAccountBalance: %v", err)
	}

	if amount == nil {
		t.Fatal("expected token amount, got nil")
	}

	if amount.Amount != 123456789 {
		t.Errorf("expected raw amount 123456789, got %d", amount.Amount)
	}

	if amount.Decimals != 6 {
		t.Errorf("expected 6 decimals, got %d", amount.Decimals)
	}

	if amount.UIAmount != 123.456789 {
		t.Errorf("expected ui amount 123.456789, got %f", amount.UIAmount)
	}
}

func TestHTTPClient_GetTokenAccountBalance_MissingAccount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error": map[string]interface{}{
				"code":    -32602,
				"message": "Invalid param: could not find account",
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx := context.Background()

	amount, err := client.GetTokenAccountBalance(ctx, "nonexistent")
	if err != nil {
		t.Fatalf("GetTokenAccountBalance: %v", err)
	}

	if amount != nil {
		t.Errorf("expected nil for missing account, got %+v", amount)
	}
}

func TestHTTPClient_IsBlockhashValid(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"valid blockhash", true},
		{"expired blockhash", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				var req rpcRequest
				json.NewDecoder(r.Body).Decode(&req)

				if req.Method != "isBlockhashValid" {
					t.Errorf("expected method isBlockhashValid, got %s", req.Method)
				}

				resp := map[string]interface{}{
					"jsonrpc": "2.0",
					"id":      req.ID,
					"result": map[string]interface{}{
						"context": map[string]interface{}{"slot": int64(100)},
						"value":   tt.valid,
					},
				}

				w.Header().Set("Content-Type", "application/json")
				json.NewEncoder(w).Encode(resp)
			}))
			defer server.Close()

			client := NewHTTPClient(server.URL)

			valid, err := client.IsBlockhashValid(context.Background(), "testhash")
			if err != nil {
				t.Fatalf("IsBlockhashValid: %v", err)
			}

			if valid != tt.valid {
				t.Errorf("expected %v, got %v", tt.valid, valid)
			}
		})
	}
}

func TestHTTPClient_SendTransaction(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		if req.Method != "sendTransaction" {
			t.Errorf("expected method sendTransaction, got %s", req.Method)
		}

		if len(req.Params) != 2 {
			t.Fatalf("expected 2 params, got %d", len(req.Params))
		}

		config, ok := req.Params[1].(map[string]interface{})
		if !ok {
			t.Fatalf("expected config map, got %T", req.Params[1])
		}

		if config["encoding"] != "base64" {
			t.Errorf("expected base64 encoding, got %v", config["encoding"])
		}

		if config["skipPreflight"] != true {
			t.Errorf("expected skipPreflight true, got %v", config["skipPreflight"])
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  "5sig1111111111111111111111111111111111111111",
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)

	sig, err := client.SendTransaction(context.Background(), "dGVzdHR4", &SendOpts{SkipPreflight: true})
	if err != nil {
		t.Fatalf("SendTransaction: %v", err)
	}

	if sig != "5sig1111111111111111111111111111111111111111" {
		t.Errorf("unexpected signature: %s", sig)
	}
}

func TestHTTPClient_GetSignatureStatuses(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		if req.Method != "getSignatureStatuses" {
			t.Errorf("expected method getSignatureStatuses, got %s", req.Method)
		}

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result": map[string]interface{}{
				"context": map[string]interface{}{"slot": int64(200)},
				"value": []interface{}{
					map[string]interface{}{
						"slot":               uint64(190),
						"confirmations":      uint64(5),
						"err":                nil,
						"confirmationStatus": "confirmed",
					},
					nil,
				},
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)

	statuses, err := client.GetSignatureStatuses(context.Background(), []string{"sig1", "sig2"})
	if err != nil {
		t.Fatalf("GetSignatureStatuses: %v", err)
	}

	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}

	if statuses[0] == nil {
		t.Fatal("expected status for sig1, got nil")
	}

	if !statuses[0].Confirmed() {
		t.Error("expected sig1 confirmed")
	}

	if statuses[0].Failed() {
		t.Error("expected sig1 not failed")
	}

	if statuses[0].Slot != 190 {
		t.Errorf("expected slot 190, got %d", statuses[0].Slot)
	}

	if statuses[1] != nil {
		t.Errorf("expected nil status for unknown sig2, got %+v", statuses[1])
	}
}

func TestHTTPClient_Retry(t *testing.T) {
	var attempts atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		count := attempts.Add(1)
		if count < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}

		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  int64(999),
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL,
		WithMaxRetries(3),
		WithRetryDelay(10*time.Millisecond),
	)
	ctx := context.Background()

	slot, err := client.GetSlot(ctx)
	if err != nil {
		t.Fatalf("GetSlot: %v", err)
	}

	if slot != 999 {
		t.Errorf("expected slot 999, got %d", slot)
	}

	if attempts.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts.Load())
	}
}

func TestHTTPClient_RPCError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		json.NewDecoder(r.Body).Decode(&req)

		resp := map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"error": map[string]interface{}{
				"code":    -32600,
				"message": "Invalid Request",
			},
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx := context.Background()

	_, err := client.GetSlot(ctx)
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	rpcErr, ok := err.(*rpcError)
	if !ok {
		t.Fatalf("expected rpcError, got %T", err)
	}

	if rpcErr.Code != -32600 {
		t.Errorf("expected code -32600, got %d", rpcErr.Code)
	}
}

func TestHTTPClient_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.GetSlot(ctx)
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}
