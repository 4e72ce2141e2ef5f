// Package rpc implements chain.Client against an EVM JSON-RPC endpoint.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/appmancer/foxy-backend/internal/chain/ratelimit"
	"github.com/appmancer/foxy-backend/internal/circuitbreaker"
)

type Client struct {
	httpClient *http.Client
	rpcURL     string
	requestID  atomic.Int64
	breaker    *circuitbreaker.Breaker
	limiter    *ratelimit.Limiter
	logger     *slog.Logger
}

func NewClient(rpcURL string, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		rpcURL:     rpcURL,
		breaker: circuitbreaker.New(circuitbreaker.Options{
			OnTransition: func(from, to circuitbreaker.State) {
				logger.Warn("rpc circuit breaker state change",
					"from", from.String(),
					"to", to.String())
			},
		}),
		logger: logger,
	}
}

// SetRateLimiter applies a rate limiter to every outbound call.
func (c *Client) SetRateLimiter(l *ratelimit.Limiter) {
	c.limiter = l
}

func (c *Client) call(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}
	var result json.RawMessage
	err := c.breaker.Do(func() error {
		var callErr error
		result, callErr = c.callOnce(ctx, method, params)
		return callErr
	})
	return result, err
}

func (c *Client) callOnce(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	id := int(c.requestID.Add(1))
	req := Request{
		JSONRPC: "2.0",
		ID:      id,
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http status %d: %s", resp.StatusCode, string(respBody))
	}

	var rpcResp Response
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}

	return rpcResp.Result, nil
}
