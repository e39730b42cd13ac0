package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"facility-inspect/internal/logger"
)

const (
	notifyTimeout     = 30 * time.Second
	MsgNotifySent     = "Successfully submitted and email sent!"
	notifyServiceName = "webhook"
)

// Notifier forwards a submitted record to an external workflow endpoint,
// such as a Power Automate flow that files it and emails the report.
type Notifier struct {
	url    string
	client *http.Client
}

// NewNotifier returns nil when url is empty. A nil Notifier is a no-op.
func NewNotifier(url string) *Notifier {
	if url == "" {
		return nil
	}
	return &Notifier{url: url, client: &http.Client{Timeout: notifyTimeout}}
}

// Send posts payload as JSON. The returned message is meant for the user.
func (n *Notifier) Send(ctx context.Context, payload interface{}) (string, error) {
	if n == nil {
		return "", nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		msg := fmt.Sprintf("Error submitting data: %v", err)
		return msg, &ExternalServiceError{Service: notifyServiceName, Message: msg, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		msg := fmt.Sprintf("Submission failed: %d - %s", resp.StatusCode, body)
		logger.Warn("notify.failed", "status", resp.StatusCode)
		return msg, &ExternalServiceError{Service: notifyServiceName, Status: resp.StatusCode, Message: msg}
	}
	logger.Info("notify.sent", "status", resp.StatusCode)
	return MsgNotifySent, nil
}
