// Package portal talks to the external statistics portal. The pipeline only
// depends on the narrow Client contract; session negotiation and transport
// details stay behind it.
package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"infrastat/internal/datml"
	"infrastat/pkg/platform/circuit"
	"infrastat/pkg/platform/sentinel"
)

// Outcome is the portal's answer to one successful upload.
type Outcome struct {
	// Reference is the externally assigned reference number.
	Reference string
	// RawResponse is the unmodified receipt document.
	RawResponse []byte
}

// Client uploads one payload under a submission ID. Session failures
// propagate as upload failures so the submission orchestrator can treat
// them uniformly with transport failures.
type Client interface {
	Upload(ctx context.Context, payload []byte, submissionID string) (*Outcome, error)
}

// Config carries the connection parameters for the HTTP portal client.
type Config struct {
	BaseURL  string
	Username string
	Password string
	// Timeout bounds each Upload call end to end, session establishment
	// included.
	Timeout time.Duration
}

// HTTPClient is the production portal client. It lazily establishes a
// credential-based session before the first upload and re-establishes it
// after the portal invalidates it.
type HTTPClient struct {
	cfg     Config
	http    *http.Client
	breaker *circuit.Breaker

	mu        sync.Mutex
	token     string
	lastProbe time.Time
}

// probeInterval is how often a single request is let through while the
// circuit is open, so a recovered portal can close it again.
const probeInterval = 30 * time.Second

// NewHTTPClient builds a portal client from config.
func NewHTTPClient(cfg Config) *HTTPClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &HTTPClient{
		cfg:     cfg,
		http:    &http.Client{},
		breaker: circuit.New("portal", circuit.WithFailureThreshold(5)),
	}
}

// Upload sends the payload and returns the portal's receipt. Any error,
// session or transport, is retryable from the caller's point of view.
func (c *HTTPClient) Upload(ctx context.Context, payload []byte, submissionID string) (*Outcome, error) {
	if !c.allowAttempt() {
		return nil, fmt.Errorf("portal circuit open: %w", sentinel.ErrUnavailable)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	token, err := c.session(ctx)
	if err != nil {
		c.breaker.RecordFailure()
		return nil, fmt.Errorf("establish portal session: %w", err)
	}

	url := fmt.Sprintf("%s/declarations/%s", c.cfg.BaseURL, submissionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/xml")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		c.breaker.RecordFailure()
		return nil, fmt.Errorf("upload declaration: %w: %v", sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read portal response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		// Session expired server-side; drop it so the next attempt logs in again.
		c.dropSession()
		return nil, fmt.Errorf("portal session rejected: %w", sentinel.ErrUnavailable)
	case resp.StatusCode >= 500:
		c.breaker.RecordFailure()
		return nil, fmt.Errorf("portal returned status %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	case resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated:
		return nil, fmt.Errorf("portal rejected upload with status %d: %s", resp.StatusCode, body)
	}

	c.breaker.RecordSuccess()

	receipt, err := datml.ParseConfirmation(body)
	if err != nil {
		return nil, fmt.Errorf("portal receipt unreadable: %w", err)
	}
	if !receipt.OK() {
		return nil, fmt.Errorf("portal verification failed: %v", receipt.Findings())
	}

	reference := receipt.Protokoll.Bezug
	if reference == "" {
		reference = submissionID
	}
	return &Outcome{Reference: reference, RawResponse: body}, nil
}

// session returns the current token, logging in first when none is held.
func (c *HTTPClient) session(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" {
		return c.token, nil
	}

	creds, err := json.Marshal(map[string]string{
		"username": c.cfg.Username,
		"password": c.cfg.Password,
	})
	if err != nil {
		return "", fmt.Errorf("marshal credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/session", bytes.NewReader(creds))
	if err != nil {
		return "", fmt.Errorf("build session request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("session rejected with status %d", resp.StatusCode)
	}

	var session struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return "", fmt.Errorf("decode session response: %w", err)
	}
	if session.Token == "" {
		return "", fmt.Errorf("session response carried no token")
	}
	c.token = session.Token
	return c.token, nil
}

// allowAttempt gates uploads on the circuit breaker. While the circuit is
// open, one probe per probeInterval goes through; everything else fails
// fast without touching the network.
func (c *HTTPClient) allowAttempt() bool {
	if !c.breaker.IsOpen() {
		return true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	if now.Sub(c.lastProbe) >= probeInterval {
		c.lastProbe = now
		return true
	}
	return false
}

func (c *HTTPClient) dropSession() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}
