package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "ticket-fulfillment/pkg/app_errors"
	"ticket-fulfillment/pkg/logger"

	"go.uber.org/zap"
)

// UpstreamError 對方回了非 2xx
type UpstreamError struct {
	Service    string
	StatusCode int
	Message    string
	SeatID     string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s responded %d: %s", e.Service, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s responded %d", e.Service, e.StatusCode)
}

func (e *UpstreamError) Unwrap() error {
	if e.Err == nil {
		return nil
	}
	if e.SeatID != "" {
		return apperrors.NewSeatError(e.SeatID, e.Err)
	}
	return e.Err
}

// Call 一次 HTTP 呼叫的描述
type Call struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   any
	Out    any
	// Errors 把特定 status 對應到領域錯誤
	Errors map[int]error
}

// Client 共用的 JSON over HTTP client
type Client struct {
	Name    string
	BaseURL string
	HTTP    *http.Client
	Retry   RetryPolicy
}

func NewClient(name, baseURL string, timeout time.Duration, retry RetryPolicy) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		Name:    name,
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
		Retry:   retry,
	}
}

type errorBody struct {
	Error  string `json:"error"`
	SeatID string `json:"seatId"`
}

// Do 送出請求並依重試策略重送；同一個 Idempotency-Key 會在每次重試中沿用
func (c *Client) Do(ctx context.Context, call Call) error {
	var payload []byte
	if call.Body != nil {
		var err error
		payload, err = json.Marshal(call.Body)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", c.Name, err)
		}
	}

	target := c.BaseURL + call.Path
	if len(call.Query) > 0 {
		target += "?" + call.Query.Encode()
	}

	log := logger.WithComponent("client").With(
		zap.String("service", c.Name),
		zap.String("method", call.Method),
		zap.String("path", call.Path),
	)

	attempt := 0
	status, err := c.Retry.Do(ctx, func(ctx context.Context) (int, error) {
		attempt++
		status, err := c.once(ctx, call, target, payload)
		if err != nil {
			log.Warn("upstream call failed", zap.Int("attempt", attempt), zap.Int("status", status), zap.Error(err))
		}
		return status, err
	})
	if err == nil {
		return nil
	}

	var upstreamErr *UpstreamError
	if errors.As(err, &upstreamErr) {
		return err
	}
	if status == 0 {
		return fmt.Errorf("%s: %w: %v", c.Name, apperrors.ErrUpstreamUnavailable, err)
	}
	return err
}

func (c *Client) once(ctx context.Context, call Call, target string, payload []byte) (int, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, call.Method, target, body)
	if err != nil {
		return 0, err
	}
	for key, values := range call.Header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if call.Out != nil && len(raw) > 0 {
			if err := json.Unmarshal(raw, call.Out); err != nil {
				return resp.StatusCode, fmt.Errorf("%s: decode response: %w", c.Name, err)
			}
		}
		return resp.StatusCode, nil
	}

	upstreamErr := &UpstreamError{Service: c.Name, StatusCode: resp.StatusCode}
	var eb errorBody
	if json.Unmarshal(raw, &eb) == nil {
		upstreamErr.Message = eb.Error
		upstreamErr.SeatID = eb.SeatID
	}
	switch {
	case call.Errors[resp.StatusCode] != nil:
		upstreamErr.Err = call.Errors[resp.StatusCode]
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError:
		upstreamErr.Err = apperrors.ErrUpstreamUnavailable
	}
	return resp.StatusCode, upstreamErr
}

func idempotencyHeader(key string) http.Header {
	h := http.Header{}
	if key != "" {
		h.Set("Idempotency-Key", key)
	}
	return h
}
