package httpmiddleware

import (
	"bytes"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"
)

// DefaultTransport returns a configured http.Transport suitable for external API calls.
func DefaultTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// Middleware is a function that wraps an http.RoundTripper.
type Middleware func(http.RoundTripper) http.RoundTripper

// Wrap wraps a base http.RoundTripper with a chain of middlewares.
// Middlewares are applied in order, so the first middleware is the outermost.
func Wrap(base http.RoundTripper, middlewares ...Middleware) http.RoundTripper {
	for i := len(middlewares) - 1; i >= 0; i-- {
		base = middlewares[i](base)
	}

	return base
}

// RoundTripperFunc is a function that implements http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// RequestGetBodySetter is a middleware that ensures request.GetBody is set.
// This is required for automatic retry logic and redirect handling.
func RequestGetBodySetter(next http.RoundTripper) http.RoundTripper {
	return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
		if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
			body, err := io.ReadAll(req.Body)
			if err != nil {
				return nil, err
			}

			req.Body.Close()
			req.Body = io.NopCloser(bytes.NewReader(body))
			req.GetBody = func() (io.ReadCloser, error) {
				return io.NopCloser(bytes.NewReader(body)), nil
			}
		}

		return next.RoundTrip(req)
	})
}

// Logger creates a logging middleware for http.RoundTripper.
// maxBodySize controls response body logging:
//   - 0: no body logging
//   - -1: log entire body
//   - >0: log first N bytes of body
func Logger(logger *slog.Logger, maxBodySize int) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(req)
			duration := time.Since(start)

			if err != nil {
				logger.Error("HTTP request failed",
					slog.String("method", req.Method),
					slog.String("url", redactQuery(req)),
					slog.Duration("duration", duration),
					slog.Any("error", err))

				return resp, err
			}

			attrs := []slog.Attr{
				slog.String("method", req.Method),
				slog.String("url", redactQuery(req)),
				slog.Int("status", resp.StatusCode),
				slog.Duration("duration", duration),
			}

			if maxBodySize != 0 && resp.Body != nil {
				if body, err := readBody(resp.Body, maxBodySize); err == nil && len(body) > 0 {
					resp.Body = io.NopCloser(bytes.NewBuffer(body))
					attrs = append(attrs, slog.String("body", string(body)))
				}
			}

			level := slog.LevelDebug
			if resp.StatusCode >= 400 {
				level = slog.LevelWarn
			}

			if resp.StatusCode >= 500 {
				level = slog.LevelError
			}

			logger.LogAttrs(req.Context(), level, "📥 HTTP Response", attrs...)

			return resp, nil
		})
	}
}

// redactQuery hides token-bearing query parameters from logs.
func redactQuery(req *http.Request) string {
	u := *req.URL

	q := u.Query()
	for key := range q {
		if strings.Contains(strings.ToLower(key), "token") {
			q.Set(key, "[REDACTED]")
		}
	}

	u.RawQuery = q.Encode()

	return u.String()
}

// readBody reads the body up to maxBodySize bytes.
func readBody(body io.ReadCloser, maxBodySize int) ([]byte, error) {
	defer body.Close()

	if maxBodySize == -1 {
		return io.ReadAll(body)
	}

	buf := make([]byte, maxBodySize)

	n, err := io.ReadFull(body, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, err
	}

	return buf[:n], nil
}
