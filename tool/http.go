package tool

import (
	"crypto/tls"
	"net/http"
	"time"
)

var DefaultTimeout = 30 * time.Second

// NewHTTPClient creates an HTTP client for talking to a device's setup API.
// Setup endpoints present a self-signed certificate, so verification can only
// succeed when insecure is set; that is left to the caller to opt into.
func NewHTTPClient(insecure bool, timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client := &http.Client{Timeout: timeout}
	client.Transport = &http.Transport{
		// Cast firmware only speaks TLS 1.2 on the setup port.
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: insecure, //nolint:gosec
			MinVersion:         tls.VersionTLS12,
		},
		MaxIdleConns:        4,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     30 * time.Second,
		DisableKeepAlives:   false,
	}
	return client
}
