package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

// RemoteStore asks an external auth service who owns a token:
//
//	POST {base}/auth/lookup {"authToken":"..."} -> 200 {"username":"..."}
//
// 401 and 404 mean the token is unknown.
type RemoteStore struct {
	baseURL string
	http    *fasthttp.Client
	headers HeaderProvider

	defaultTimeout time.Duration
	retryMax       int
}

// HeaderProvider injects per-request headers, e.g. a service credential.
type HeaderProvider func() map[string]string

type RemoteOption func(*RemoteStore)

func WithTimeout(d time.Duration) RemoteOption {
	return func(s *RemoteStore) {
		if d > 0 {
			s.defaultTimeout = d
		}
	}
}

func WithHeaderProvider(h HeaderProvider) RemoteOption {
	return func(s *RemoteStore) { s.headers = h }
}

func WithRetry(max int) RemoteOption {
	return func(s *RemoteStore) { s.retryMax = max }
}

func NewRemoteStore(baseURL string, opts ...RemoteOption) *RemoteStore {
	s := &RemoteStore{
		baseURL:        strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:           &fasthttp.Client{ReadTimeout: 5 * time.Second, WriteTimeout: 5 * time.Second, MaxConnsPerHost: 64},
		defaultTimeout: 2 * time.Second,
		retryMax:       3,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type lookupRequest struct {
	AuthToken string `json:"authToken"`
}

type lookupResponse struct {
	Username string `json:"username"`
}

var errUnknownToken = errors.New("unknown token")

func (s *RemoteStore) Lookup(ctx context.Context, token string) (string, bool, error) {
	token = normalize(token)
	if token == "" {
		return "", false, nil
	}
	var resp lookupResponse
	err := s.doJSON(ctx, fasthttp.MethodPost, "/auth/lookup", lookupRequest{AuthToken: token}, &resp)
	if errors.Is(err, errUnknownToken) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	u := strings.TrimSpace(resp.Username)
	return u, u != "", nil
}

func (s *RemoteStore) doJSON(ctx context.Context, method, path string, in any, out any) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	req.Header.SetMethod(method)
	req.SetRequestURI(s.baseURL + path)
	req.Header.SetContentType("application/json")
	if s.headers != nil {
		for k, v := range s.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				req.Header.Set(k, v)
			}
		}
	}
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req.SetBody(payload)

	attempts := s.retryMax
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := s.http.DoDeadline(req, resp, s.computeDeadline(ctx)); err != nil {
			lastErr = fmt.Errorf("auth request failed: %w", err)
		} else {
			status := resp.StatusCode()
			switch {
			case status == fasthttp.StatusNotFound || status == fasthttp.StatusUnauthorized:
				return errUnknownToken
			case status >= 200 && status < 300:
				if err := json.Unmarshal(resp.Body(), out); err != nil {
					return fmt.Errorf("decode response: %w", err)
				}
				return nil
			default:
				lastErr = fmt.Errorf("auth service error: status=%d body=%s", status, truncate(string(resp.Body()), 256))
				if !shouldRetryStatus(status) {
					return lastErr
				}
			}
		}
		if attempt == attempts {
			break
		}
		if err := sleepWithContext(ctx, backoffDuration(attempt)); err != nil {
			return lastErr
		}
	}
	return lastErr
}

func (s *RemoteStore) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(s.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func backoffDuration(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 5 {
		attempt = 5
	}
	return time.Duration(1<<uint(attempt-1)) * 50 * time.Millisecond
}

func shouldRetryStatus(code int) bool {
	switch code {
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
