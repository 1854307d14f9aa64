package kaspad

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kastent/kastentd/internal/metrics"
)

const (
	maxRetries  = 3
	backoffBase = 300 * time.Millisecond
)

// Client issues JSON-RPC calls against an ordered list of kaspad endpoints.
// Each endpoint is retried with linear backoff before the next one is tried;
// a call fails only after every endpoint is exhausted.
type Client struct {
	endpoints []string
	restBase  string
	httpc     *http.Client

	retries int
	backoff time.Duration

	// sleep and onFallback are swapped out in tests
	sleep      func(time.Duration)
	onFallback func(endpoint string)

	reqID atomic.Uint64
}

func New(primaryURL, fallbackURL, restURL string) *Client {
	endpoints := []string{primaryURL}
	if fallbackURL != "" {
		endpoints = append(endpoints, fallbackURL)
	}
	return &Client{
		endpoints: endpoints,
		restBase:  strings.TrimRight(restURL, "/"),
		httpc:     &http.Client{Timeout: 10 * time.Second},
		retries:   maxRetries,
		backoff:   backoffBase,
		sleep:     time.Sleep,
		onFallback: func(endpoint string) {
			metrics.RPCFallbacks.Inc()
		},
	}
}

// RPCError is returned when every endpoint and retry has been exhausted.
// It carries the last error observed across all attempts.
type RPCError struct {
	Method   string
	Attempts int
	Last     error
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("kaspad %s failed after %d attempts: %v", e.Method, e.Attempts, e.Last)
}

func (e *RPCError) Unwrap() error { return e.Last }

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Call tries each endpoint in order, up to retries attempts per endpoint,
// sleeping backoff*attempt between attempts on the same endpoint. The first
// success wins; success on a non-primary endpoint fires the fallback signal.
func (c *Client) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	var last error
	attempts := 0
	for i, endpoint := range c.endpoints {
		for attempt := 1; attempt <= c.retries; attempt++ {
			attempts++
			result, err := c.post(ctx, endpoint, method, params)
			if err == nil {
				if i > 0 {
					log.Printf("kaspad: %s answered by fallback endpoint %s", method, endpoint)
					if c.onFallback != nil {
						c.onFallback(endpoint)
					}
				}
				return result, nil
			}
			last = err
			if attempt < c.retries {
				c.sleep(c.backoff * time.Duration(attempt))
			}
		}
	}
	metrics.RPCExhausted.Inc()
	return nil, &RPCError{Method: method, Attempts: attempts, Last: last}
}

func (c *Client) post(ctx context.Context, endpoint, method string, params any) (json.RawMessage, error) {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.reqID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("kaspad returned status %d", resp.StatusCode)
	}

	var rr rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return nil, err
	}
	if rr.Error != nil {
		return nil, fmt.Errorf("kaspad error %d: %s", rr.Error.Code, rr.Error.Message)
	}
	return rr.Result, nil
}
