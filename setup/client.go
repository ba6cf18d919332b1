package setup

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/charmbracelet/log"

	"github.com/moyoez/castanet/tool"
	"github.com/moyoez/castanet/types"
)

// Setup API endpoints, relative to https://<device>:8443/setup.
const (
	EndpointEurekaInfo         = "eureka_info"
	EndpointScanWifi           = "scan_wifi"
	EndpointScanResults        = "scan_results"
	EndpointConnectWifi        = "connect_wifi"
	EndpointSaveWifi           = "save_wifi"
	EndpointSetEurekaInfo      = "set_eureka_info"
	EndpointConfiguredNetworks = "configured_networks"
	EndpointForgetWifi         = "forget_wifi"
)

var (
	ErrTransport         = errors.New("device unreachable")
	ErrMalformedResponse = errors.New("malformed device response")
	ErrUnexpectedStatus  = errors.New("unexpected device status")
)

const certificateHint = "the device presents a self-signed certificate; retry with --insecure"

// Response is what the device answered to a command. Non-2xx answers are
// reported here rather than as errors.
type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
}

// OK reports whether the device answered with a 2xx status.
func (r *Response) OK() bool {
	return r != nil && r.StatusCode >= http.StatusOK && r.StatusCode < http.StatusMultipleChoices
}

// Client talks to one device's setup API.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *log.Logger
}

// NewClient creates a client for baseURL (see tool.BuildSetupBaseURL).
// A nil httpClient gets a verifying client with the default timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = tool.NewHTTPClient(false, tool.DefaultTimeout)
	}
	return &Client{
		baseURL: baseURL,
		http:    httpClient,
		logger:  tool.DefaultLogger.With("device", baseURL),
	}
}

// Dial creates a client for the setup API of the device at host:port.
// insecure disables certificate verification, which real devices require.
func Dial(host string, port int, insecure bool, timeout time.Duration) (*Client, error) {
	baseURL, err := tool.BuildSetupBaseURL(host, port)
	if err != nil {
		return nil, err
	}
	return NewClient(baseURL, tool.NewHTTPClient(insecure, timeout)), nil
}

// BaseURL returns the setup base URL this client targets.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// EurekaInfo fetches the device info. The public key is mandatory.
func (c *Client) EurekaInfo(ctx context.Context) (*types.EurekaInfo, error) {
	var info types.EurekaInfo
	if err := c.getJSON(ctx, EndpointEurekaInfo, &info); err != nil {
		return nil, err
	}
	if info.PublicKey == "" {
		return nil, fmt.Errorf("%w: %s has no public_key", ErrMalformedResponse, EndpointEurekaInfo)
	}
	return &info, nil
}

// ScanWifi asks the device to start a WiFi scan. The answer carries nothing useful.
func (c *Client) ScanWifi(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodPost, EndpointScanWifi, nil)
	if err != nil {
		return err
	}
	c.logger.Debug("scan started", "status", resp.StatusCode)
	return nil
}

// ScanResults returns the networks found by the last scan, in device order.
func (c *Client) ScanResults(ctx context.Context) ([]types.WifiNetwork, error) {
	var networks []types.WifiNetwork
	var raw []map[string]any
	if err := c.getJSON(ctx, EndpointScanResults, &networks, &raw); err != nil {
		return nil, err
	}
	for i := range networks {
		if i < len(raw) {
			networks[i].Raw = raw[i]
		}
	}
	return networks, nil
}

// ConfiguredNetworks lists the networks the device has saved.
func (c *Client) ConfiguredNetworks(ctx context.Context) ([]types.ConfiguredNetwork, error) {
	var networks []types.ConfiguredNetwork
	if err := c.getJSON(ctx, EndpointConfiguredNetworks, &networks); err != nil {
		return nil, err
	}
	return networks, nil
}

// ConnectWifi sends the connect command.
func (c *Client) ConnectWifi(ctx context.Context, cmd types.ConnectCommand) (*Response, error) {
	return c.do(ctx, http.MethodPost, EndpointConnectWifi, cmd)
}

// SaveWifi sends the save command.
func (c *Client) SaveWifi(ctx context.Context, cmd types.SaveCommand) (*Response, error) {
	return c.do(ctx, http.MethodPost, EndpointSaveWifi, cmd)
}

// SetEurekaInfo renames the device and sets its opt-in flags.
func (c *Client) SetEurekaInfo(ctx context.Context, cmd types.RenameCommand) (*Response, error) {
	return c.do(ctx, http.MethodPost, EndpointSetEurekaInfo, cmd)
}

// ForgetWifi removes a configured network by wpa_id.
func (c *Client) ForgetWifi(ctx context.Context, cmd types.ForgetCommand) (*Response, error) {
	return c.do(ctx, http.MethodPost, EndpointForgetWifi, cmd)
}

func (c *Client) getJSON(ctx context.Context, endpoint string, targets ...any) error {
	resp, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	// A usable body is accepted whatever the status; the status only
	// explains a body that cannot be decoded.
	if len(resp.Body) == 0 {
		if !resp.OK() {
			return fmt.Errorf("%w: %s returned %s", ErrUnexpectedStatus, endpoint, resp.Status)
		}
		return fmt.Errorf("%w: %s returned an empty body", ErrMalformedResponse, endpoint)
	}
	for _, v := range targets {
		if err := sonic.Unmarshal(resp.Body, v); err != nil {
			if !resp.OK() {
				return fmt.Errorf("%w: %s returned %s", ErrUnexpectedStatus, endpoint, resp.Status)
			}
			return fmt.Errorf("%w: %s: %v", ErrMalformedResponse, endpoint, err)
		}
	}
	if !resp.OK() {
		c.logger.Warn("device answered with an error status but a usable body", "endpoint", endpoint, "status", resp.Status)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload any) (*Response, error) {
	url := tool.BuildSetupURL(c.baseURL, endpoint)

	var body io.Reader
	if payload != nil {
		data, err := sonic.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s request: %w", endpoint, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", endpoint, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("sending request", "method", method, "endpoint", endpoint)
	resp, err := c.http.Do(req)
	if err != nil {
		var certErr *tls.CertificateVerificationError
		if errors.As(err, &certErr) {
			return nil, fmt.Errorf("%w: %s %s: %w (%s)", ErrTransport, method, endpoint, err, certificateHint)
		}
		return nil, fmt.Errorf("%w: %s %s: %w", ErrTransport, method, endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s response: %w", ErrTransport, endpoint, err)
	}
	c.logger.Debug("received response", "endpoint", endpoint, "status", resp.StatusCode, "bytes", len(data))

	return &Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Body:       data,
	}, nil
}
