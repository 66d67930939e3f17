// Package upstream builds the HTTP client used for upstream exchanges.
package upstream

import (
	"fmt"
	"net/http"
	"net/url"
)

// NewClient returns a client that optionally dials through an outbound
// proxy. No client timeout is set: streamed completions are long-lived and
// cancellation rides on the inbound request context instead.
func NewClient(proxyURL string) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	// Only the configured proxy is honored; environment proxies are not
	// picked up implicitly.
	transport.Proxy = nil

	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("parse outbound proxy url: %w", err)
		}

		transport.Proxy = http.ProxyURL(u)
	}

	return &http.Client{Transport: transport}, nil
}
