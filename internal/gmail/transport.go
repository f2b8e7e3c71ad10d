package gmail

import (
	"log/slog"
	"net/http"
	"time"
)

// loggingTransport logs each API round trip at debug level. Bodies are never
// logged since they carry message content.
type loggingTransport struct {
	base   http.RoundTripper
	logger *slog.Logger
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	rt := t.base
	if rt == nil {
		rt = http.DefaultTransport
	}
	resp, err := rt.RoundTrip(req)
	if err != nil {
		t.logger.Debug("gmail request failed",
			"method", req.Method, "path", req.URL.Path,
			"error", err, "elapsed", time.Since(start))
		return resp, err
	}

	t.logger.Debug("gmail request",
		"method", req.Method, "path", req.URL.Path,
		"status", resp.StatusCode, "elapsed", time.Since(start))
	return resp, nil
}
