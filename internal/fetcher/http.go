package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"pokesprite/internal/retry"
)

// MaxBodySize bounds how much of a response body is read. Sprites and
// PokeAPI documents are far below it.
const MaxBodySize = 16 << 20

// HTTPFetcher performs GET requests and classifies the outcome. It only
// returns bytes; decoding is left to the caller.
type HTTPFetcher struct {
	client     *http.Client
	userAgent  string
	timeout    time.Duration
	retryParam retry.Param
	logger     *zap.Logger
}

type Options struct {
	Client    *http.Client
	UserAgent string
	// Timeout bounds each attempt. Zero leaves it to the transport.
	Timeout time.Duration
	// Retry controls retries of retryable failures. MaxAttempts < 1 means a single attempt.
	Retry retry.Param
}

func New(opts Options, logger *zap.Logger) *HTTPFetcher {
	client := opts.Client
	if client == nil {
		client = &http.Client{}
	}
	param := opts.Retry
	if param.MaxAttempts < 1 {
		param = retry.NewParam(1)
	}
	return &HTTPFetcher{
		client:     client,
		userAgent:  opts.UserAgent,
		timeout:    opts.Timeout,
		retryParam: param,
		logger:     logger,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	return retry.Retry(ctx, f.retryParam, func() ([]byte, error) {
		body, err := f.performFetch(ctx, rawURL)
		if err != nil {
			f.logger.Debug("Fetch attempt failed", zap.String("url", rawURL), zap.Error(err))
		}
		return body, err
	})
}

func (f *HTTPFetcher) performFetch(parent context.Context, rawURL string) ([]byte, error) {
	ctx := parent
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{
			Message:   fmt.Sprintf("failed to create request: %v", err),
			Retryable: false,
			Cause:     ErrCauseInvalidURL,
		}
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{
			Message:   fmt.Sprintf("request failed: %v", err),
			Retryable: parent.Err() == nil,
			Cause:     ErrCauseNetworkFailure,
		}
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize+1))
	if err != nil {
		return nil, &FetchError{
			Message:   fmt.Sprintf("failed to read response body: %v", err),
			Retryable: true,
			Cause:     ErrCauseReadResponseBodyError,
		}
	}
	if len(body) > MaxBodySize {
		return nil, &FetchError{
			Message:   fmt.Sprintf("response body exceeds %d bytes", MaxBodySize),
			Retryable: false,
			Cause:     ErrCauseBodyTooLarge,
		}
	}

	return body, nil
}

func classifyStatus(code int) *FetchError {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code >= 500:
		return &FetchError{
			Message:    fmt.Sprintf("server error: %d", code),
			Retryable:  true,
			Cause:      ErrCauseRequest5xx,
			StatusCode: code,
		}
	case code == http.StatusTooManyRequests:
		return &FetchError{
			Message:    "rate limited (429)",
			Retryable:  true,
			Cause:      ErrCauseRequestTooMany,
			StatusCode: code,
		}
	case code == http.StatusNotFound:
		return &FetchError{
			Message:    "not found (404)",
			Retryable:  false,
			Cause:      ErrCauseNotFound,
			StatusCode: code,
		}
	case code >= 400:
		return &FetchError{
			Message:    fmt.Sprintf("client error: %d", code),
			Retryable:  false,
			Cause:      ErrCauseRequest4xx,
			StatusCode: code,
		}
	default:
		return &FetchError{
			Message:    fmt.Sprintf("unexpected status: %d", code),
			Retryable:  false,
			Cause:      ErrCauseUnexpectedStatus,
			StatusCode: code,
		}
	}
}
