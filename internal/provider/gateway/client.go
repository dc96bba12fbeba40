// Package gateway executes USSD commands through an HTTP modem gateway.
//
//	POST {base}/backends/{id}/ussd  {"command": "#123#"}  ->  {"reply": "..."}
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"airtime/internal/core"
	"airtime/internal/provider/base"
)

type ussdRequest struct {
	Command string `json:"command"`
}

type ussdResponse struct {
	Reply string `json:"reply"`
	Error string `json:"error,omitempty"`
}

// Client implements provider.Executor against a modem gateway
type Client struct {
	http *base.HTTPClient
}

// New creates a client for baseURL; every call is bounded by timeout.
func New(baseURL string, timeout time.Duration) *Client {
	hc := base.NewHTTPClient("gateway", timeout)
	hc.SetBaseURL(strings.TrimRight(baseURL, "/"))
	return &Client{http: hc}
}

// Execute sends command to the modem behind backendID.
func (c *Client) Execute(ctx context.Context, backendID, command string) (string, error) {
	endpoint := "/backends/" + url.PathEscape(backendID) + "/ussd"
	resp, err := c.http.PostJSON(ctx, endpoint, ussdRequest{Command: command}, nil)
	if err != nil {
		if isTimeout(err) {
			return "", fmt.Errorf("backend %s: %w", backendID, core.ErrBackendTimeout)
		}
		return "", &core.BackendError{BackendID: backendID, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", fmt.Errorf("backend %s: %w", backendID, core.ErrBackendUnavailable)
	case resp.StatusCode == http.StatusGatewayTimeout:
		return "", fmt.Errorf("backend %s: %w", backendID, core.ErrBackendTimeout)
	case !resp.IsSuccess():
		var body ussdResponse
		msg := strings.TrimSpace(resp.String())
		if resp.UnmarshalJSON(&body) == nil && body.Error != "" {
			msg = body.Error
		}
		return "", &core.BackendError{BackendID: backendID, Err: fmt.Errorf("status %d: %s", resp.StatusCode, msg)}
	}

	var body ussdResponse
	if err := resp.UnmarshalJSON(&body); err != nil {
		return "", &core.BackendError{BackendID: backendID, Err: fmt.Errorf("decode reply: %w", err)}
	}
	return body.Reply, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
