// Package services provides external service integrations and technical concerns like the SMS gateway, spreadsheets and tokens
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/amirphl/okosplazma-sms/config"
	"github.com/amirphl/okosplazma-sms/models"
	"github.com/amirphl/okosplazma-sms/utils"
)

const (
	// maxGatewayBody bounds how much of a gateway reply is kept for diagnostics
	maxGatewayBody = 64 * 1024

	redactedKey = "REDACTED"
)

// GatewayClient sends one rendered message to one recipient and classifies the outcome.
// Implementations never return a nil result and never retry.
type GatewayClient interface {
	Dispatch(ctx context.Context, recipient models.Recipient, message string) *models.DispatchResult
}

// HTTPGatewayClient calls the seeme.hu style gateway with a single GET per message
type HTTPGatewayClient struct {
	cfg    config.GatewayConfig
	client *http.Client
}

// NewHTTPGatewayClient creates a gateway client with a finite per-request timeout
func NewHTTPGatewayClient(cfg config.GatewayConfig) *HTTPGatewayClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPGatewayClient{
		cfg: cfg,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// NewGatewayClient selects the gateway implementation based on configuration
func NewGatewayClient(cfg config.GatewayConfig) GatewayClient {
	if cfg.IsMock() {
		return NewMockGatewayClient()
	}
	return NewHTTPGatewayClient(cfg)
}

// EncodeMessage percent-encodes text for a URL query value, spaces become %20
func EncodeMessage(message string) string {
	return strings.ReplaceAll(url.QueryEscape(message), "+", "%20")
}

// BuildRequestURL returns the gateway URL for one message, with the key in clear text
func (c *HTTPGatewayClient) BuildRequestURL(phone, message string) string {
	return c.buildURL(url.QueryEscape(c.cfg.Key), phone, message)
}

// RedactedRequestURL returns the same URL as BuildRequestURL with the key masked
func (c *HTTPGatewayClient) RedactedRequestURL(phone, message string) string {
	return c.buildURL(redactedKey, phone, message)
}

func (c *HTTPGatewayClient) buildURL(key, phone, message string) string {
	base := strings.TrimRight(c.cfg.BaseURL, "/")
	// callback keeps its literal commas, as the gateway documents it
	return fmt.Sprintf("%s/gateway?key=%s&message=%s&number=%s&callback=%s&format=%s",
		base,
		key,
		EncodeMessage(message),
		url.QueryEscape(phone),
		c.cfg.Callback,
		url.QueryEscape(c.cfg.Format),
	)
}

// Dispatch performs exactly one outbound request
func (c *HTTPGatewayClient) Dispatch(ctx context.Context, recipient models.Recipient, message string) *models.DispatchResult {
	result := &models.DispatchResult{
		Recipient: recipient,
		Message:   message,
		Request:   c.RedactedRequestURL(recipient.Phone, message),
	}
	start := time.Now()
	defer func() { result.Duration = time.Since(start) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BuildRequestURL(recipient.Phone, message), nil)
	if err != nil {
		return classify(result, fmt.Sprintf("failed to create gateway request: %v", c.redact(err)), false)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return classify(result, describeTransportError(err, c.redact(err)), false)
	}
	defer resp.Body.Close()

	result.StatusCode = resp.StatusCode
	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxGatewayBody))
	result.Body = strings.TrimSpace(string(body))
	result.Gateway = decodeGatewayReply(body)

	if readErr != nil {
		return classify(result, fmt.Sprintf("failed to read gateway response: %v", c.redact(readErr)), false)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classify(result, fmt.Sprintf("gateway http status: %d", resp.StatusCode), false)
	}
	return classify(result, "", true)
}

// redact strips the gateway key from errors that embed the request URL
func (c *HTTPGatewayClient) redact(err error) error {
	if err == nil || c.cfg.Key == "" {
		return err
	}
	msg := strings.ReplaceAll(err.Error(), url.QueryEscape(c.cfg.Key), redactedKey)
	return errors.New(strings.ReplaceAll(msg, c.cfg.Key, redactedKey))
}

// classify applies the gateway outcome rule: any "error" token in the body or the
// diagnostic stream fails the send, as does a call that did not complete
func classify(result *models.DispatchResult, diagnostic string, completed bool) *models.DispatchResult {
	result.Diagnostic = diagnostic
	if !completed ||
		utils.ContainsFold(result.Body, "error") ||
		utils.ContainsFold(result.Diagnostic, "error") {
		result.Status = models.DispatchStatusFailed
		if result.Diagnostic == "" {
			result.Diagnostic = "gateway response reported an error"
		}
		return result
	}
	result.Status = models.DispatchStatusSent
	return result
}

// describeTransportError classifies err and prints the redacted copy
func describeTransportError(err, printable error) string {
	if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
		return fmt.Sprintf("transport error: gateway request timed out: %v", printable)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Sprintf("transport error: gateway request canceled: %v", printable)
	}
	return fmt.Sprintf("transport error: %v", printable)
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

// decodeGatewayReply reads the JSON fields used for reporting; unknown shapes yield nil
func decodeGatewayReply(body []byte) *models.GatewayReply {
	var raw struct {
		Result  string          `json:"result"`
		Code    json.RawMessage `json:"code"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil
	}
	if raw.Result == "" && len(raw.Code) == 0 && raw.Message == "" {
		return nil
	}
	return &models.GatewayReply{
		Result:  raw.Result,
		Code:    strings.Trim(string(raw.Code), `"`),
		Message: raw.Message,
	}
}

// MockGatewayClient implements GatewayClient for testing and dry environments
type MockGatewayClient struct {
	mu       sync.Mutex
	sent     []MockGatewayMessage
	failFunc func(recipient models.Recipient) bool
}

// MockGatewayMessage records one mock dispatch
type MockGatewayMessage struct {
	Recipient models.Recipient
	Message   string
	SentAt    time.Time
}

// NewMockGatewayClient creates a mock gateway that accepts every message
func NewMockGatewayClient() *MockGatewayClient {
	return &MockGatewayClient{
		sent: make([]MockGatewayMessage, 0),
	}
}

// FailWhen makes the mock classify matching recipients as failed
func (m *MockGatewayClient) FailWhen(fn func(recipient models.Recipient) bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failFunc = fn
}

// Dispatch records the message and returns a classified result
func (m *MockGatewayClient) Dispatch(ctx context.Context, recipient models.Recipient, message string) *models.DispatchResult {
	m.mu.Lock()
	m.sent = append(m.sent, MockGatewayMessage{
		Recipient: recipient,
		Message:   message,
		SentAt:    utils.UTCNow(),
	})
	fail := m.failFunc != nil && m.failFunc(recipient)
	m.mu.Unlock()

	result := &models.DispatchResult{
		Recipient:  recipient,
		Message:    message,
		Request:    fmt.Sprintf("mock://gateway?number=%s", url.QueryEscape(recipient.Phone)),
		StatusCode: http.StatusOK,
		Body:       `{"result":"OK"}`,
	}
	if fail {
		result.Body = `{"result":"ERR","message":"mock error"}`
	}
	return classify(result, "", true)
}

// GetSentMessages returns a copy of all recorded dispatches in call order
func (m *MockGatewayClient) GetSentMessages() []MockGatewayMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockGatewayMessage, len(m.sent))
	copy(out, m.sent)
	return out
}

// ClearSentMessages clears the recorded dispatches
func (m *MockGatewayClient) ClearSentMessages() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = make([]MockGatewayMessage, 0)
}
