package notify

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"time"

	"github.com/bytedance/sonic"

	"github.com/moyoez/castanet/tool"
)

// Notification types sent for provisioning runs.
const (
	TypeProvisionComplete = "provision_complete"
	TypeProvisionFailed   = "provision_failed"
)

// Notification represents a notification message structure
type Notification struct {
	Type    string         `json:"type,omitempty"`
	Title   string         `json:"title,omitempty"`
	Message string         `json:"message,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// Options contains options for sending notifications
type Options struct {
	URL     string            // Target URL
	Method  string            // HTTP method, defaults to POST
	Headers map[string]string // Custom HTTP headers
	Timeout time.Duration     // 0 means tool.DefaultTimeout
}

// SendNotification sends a notification to the specified HTTP URL.
// If notification is nil, an empty JSON object will be sent.
func SendNotification(ctx context.Context, notification *Notification, options Options) error {
	if options.URL == "" {
		return fmt.Errorf("notification URL cannot be empty")
	}
	parsedURL, err := url.Parse(options.URL)
	if err != nil {
		return fmt.Errorf("invalid URL format: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("unsupported notification URL scheme %q", parsedURL.Scheme)
	}

	method := options.Method
	if method == "" {
		method = http.MethodPost
	}

	payload := []byte("{}")
	if notification != nil {
		payload, err = sonic.Marshal(notification)
		if err != nil {
			return fmt.Errorf("failed to serialize notification data: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, options.URL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for key, value := range options.Headers {
		req.Header.Set(key, value)
	}

	// Webhooks are ordinary services, so certificates are always verified here.
	client := tool.NewHTTPClient(false, options.Timeout)
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send HTTP request: %w", err)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		tool.DefaultLogger.Debugf("failed to read response body: %v", readErr)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("notification send failed, HTTP status code: %d, response: %s", resp.StatusCode, string(body))
	}

	if notification != nil {
		tool.DefaultLogger.Infof("notification successfully sent to %s: %s - %s", options.URL, notification.Type, notification.Title)
	} else {
		tool.DefaultLogger.Infof("notification successfully sent to %s", options.URL)
	}
	return nil
}

// ProvisionNotification builds the notification for a finished run.
// runErr nil means the run succeeded.
func ProvisionNotification(device, ssid string, data map[string]any, runErr error) *Notification {
	n := &Notification{
		Data: map[string]any{
			"device": device,
			"ssid":   ssid,
		},
	}
	maps.Copy(n.Data, data)
	if runErr != nil {
		n.Type = TypeProvisionFailed
		n.Title = "Provisioning Failed"
		n.Message = fmt.Sprintf("Provisioning %s onto %q failed: %v", device, ssid, runErr)
		n.Data["error"] = runErr.Error()
		return n
	}
	n.Type = TypeProvisionComplete
	n.Title = "Provisioning Completed"
	n.Message = fmt.Sprintf("Provisioning %s onto %q sent all commands", device, ssid)
	return n
}
