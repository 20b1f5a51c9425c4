// Package addr resolves the operator's public IPv4 address so inbound rules
// can be narrowed to a single /32.
package addr

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/edvin/fleetctl/internal/model"
)

// maxBody bounds how much of the lookup response is read.
const maxBody = 64

var dottedQuad = regexp.MustCompile(`^((25[0-5]|2[0-4][0-9]|1[0-9]{2}|[1-9]?[0-9])\.){3}(25[0-5]|2[0-4][0-9]|1[0-9]{2}|[1-9]?[0-9])$`)

// ValidDottedQuad reports whether s is a plain IPv4 address in dotted-quad
// form with no leading zeros, prefix or surrounding text.
func ValidDottedQuad(s string) bool {
	return dottedQuad.MatchString(s)
}

// Client queries a "what is my address" service that answers with the
// caller's address as the plain-text response body.
type Client struct {
	URL        string
	HTTPClient *http.Client
}

// NewClient creates a lookup client. The timeout bounds each request.
func NewClient(url string, timeout time.Duration) *Client {
	return &Client{
		URL: url,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// PublicAddress returns the caller's public IPv4 address.
func (c *Client) PublicAddress(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: create request: %v", model.ErrAddressLookupFailed, err)
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: GET %s: %v", model.ErrAddressLookupFailed, c.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("%w: GET %s: status %d", model.ErrAddressLookupFailed, c.URL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return "", fmt.Errorf("%w: read response body: %v", model.ErrAddressLookupFailed, err)
	}

	ip := strings.TrimSpace(string(body))
	if !ValidDottedQuad(ip) {
		return "", fmt.Errorf("%w: unexpected response %q", model.ErrAddressLookupFailed, ip)
	}
	return ip, nil
}
