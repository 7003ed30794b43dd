package ollama

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"

	"github.com/papercomputeco/chatzilla/pkg/logger"
)

// Failure categories logged by Ping.
const (
	pingConnection = "connection"
	pingTimeout    = "timeout"
	pingRequest    = "request"
)

// Ping issues a GET against endpoint and returns the body of whatever the
// server answers, whatever the status. A status other than 200 is logged at
// warn. Transport failures are logged with their category and reported as
// ("", false); Ping never returns an error.
func (c *Client) Ping(ctx context.Context, endpoint string) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, c.pingTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		c.pingFailed(pingRequest, endpoint, err)
		return "", false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.pingFailed(classify(err), endpoint, err)
		return "", false
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.pingFailed(classify(err), endpoint, err)
		return "", false
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("ping answered with unexpected status",
			"endpoint", endpoint,
			"status", resp.StatusCode,
		)
	}

	return string(body), true
}

func (c *Client) pingFailed(category, endpoint string, err error) {
	c.logger.Error("ping failed",
		"category", category,
		"endpoint", endpoint,
		"error", err,
	)
}

// classify maps a transport error onto a ping failure category.
func classify(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return pingTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return pingTimeout
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return pingConnection
	}

	return pingRequest
}

// Ping probes endpoint using a default Client that logs failures to stderr.
func Ping(ctx context.Context, endpoint string) (string, bool) {
	return NewClient(WithLogger(logger.New(logger.WithSource(true)))).Ping(ctx, endpoint)
}
