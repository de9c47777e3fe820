package utils

import (
	"github.com/go-resty/resty/v2"
)

// HTTPClient wraps resty.Client for the outbound sync transport. The embed
// keeps the full resty API available on the wrapper.
type HTTPClient struct {
	*resty.Client
}

// NewHTTPClient returns a fresh client with its own connection pool. The
// caller configures the base URL and timeout before first use.
func NewHTTPClient() *HTTPClient {
	client := resty.New().
		SetHeader("User-Agent", "go-req-ledger-agent")

	return &HTTPClient{Client: client}
}
