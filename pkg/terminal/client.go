package terminal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const codeLength = 6

// ValidationData carries the redemption receipt returned by the server.
type ValidationData struct {
	CustomerName string    `json:"customerName"`
	OfferTitle   string    `json:"offerTitle"`
	ValidatedAt  time.Time `json:"validatedAt"`
}

// ValidateOutcome is the result of a single validation attempt. Queued
// is true when the code was stored locally instead of being validated.
type ValidateOutcome struct {
	Queued  bool
	Message string
	Data    *ValidationData
}

// SyncOutcome reports the server's verdict for a flushed batch.
type SyncOutcome struct {
	Success []string      `json:"success"`
	Failed  []SyncFailure `json:"failed"`
}

// SyncFailure pairs a rejected code with the server's reason.
type SyncFailure struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// APIError is a non-2xx response decoded from the server envelope.
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("api error (status %d)", e.Status)
}

// Client talks to the coupon backend on behalf of a partner terminal.
// It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	queue   *Queue
	log     zerolog.Logger

	mu     sync.Mutex
	online bool
}

// Option tweaks a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithLogger attaches a logger; the default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(cl *Client) { cl.log = l }
}

// New returns a client that starts in the online state. queuePath is the
// file backing the pending-sync queue.
func New(baseURL, queuePath string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		queue:   NewQueue(queuePath),
		log:     zerolog.Nop(),
		online:  true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Online reports the client's current connectivity state.
func (c *Client) Online() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.online
}

// Pending returns the codes waiting for batch sync.
func (c *Client) Pending() []string {
	return c.queue.Codes()
}

// SetOnline records a connectivity change. Coming back online flushes the
// queue; the flush error is returned but the state change always sticks.
func (c *Client) SetOnline(ctx context.Context, online bool) error {
	c.mu.Lock()
	wasOnline := c.online
	c.online = online
	c.mu.Unlock()

	if online && !wasOnline {
		_, err := c.Sync(ctx)
		return err
	}
	return nil
}

// Validate submits a single code. While offline (or when the server is
// unreachable) the code is queued for later sync instead.
func (c *Client) Validate(ctx context.Context, code string) (*ValidateOutcome, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != codeLength {
		return nil, &APIError{Status: http.StatusBadRequest, Code: "bad_request", Message: "O código deve ter 6 caracteres."}
	}

	if !c.Online() {
		return c.enqueue(code)
	}

	var resp struct {
		Message        string          `json:"message"`
		ValidationData *ValidationData `json:"validationData"`
	}
	err := c.post(ctx, "/api/validar-cupom", map[string]string{"code": code}, &resp)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return nil, err
		}
		// Transport failure: go offline and defer the code.
		c.log.Warn().Err(err).Str("code", code).Msg("validation unreachable, queueing")
		c.mu.Lock()
		c.online = false
		c.mu.Unlock()
		return c.enqueue(code)
	}

	c.log.Info().Str("code", code).Msg("coupon validated")
	return &ValidateOutcome{Message: resp.Message, Data: resp.ValidationData}, nil
}

// Sync flushes the whole queue through the batch endpoint. On HTTP 200 the
// queue is cleared entirely, including codes the server rejected; those are
// permanently unredeemable and retrying them cannot succeed. On any other
// outcome the queue is kept for a later retry.
func (c *Client) Sync(ctx context.Context) (*SyncOutcome, error) {
	codes := c.queue.Codes()
	if len(codes) == 0 {
		return &SyncOutcome{Success: []string{}, Failed: []SyncFailure{}}, nil
	}

	var out SyncOutcome
	if err := c.post(ctx, "/api/sync-cupons", map[string][]string{"codes": codes}, &out); err != nil {
		c.log.Warn().Err(err).Int("pending", len(codes)).Msg("sync failed, queue kept")
		return nil, err
	}

	if err := c.queue.Clear(); err != nil {
		return &out, err
	}
	c.log.Info().Int("success", len(out.Success)).Int("failed", len(out.Failed)).Msg("sync complete")
	return &out, nil
}

func (c *Client) enqueue(code string) (*ValidateOutcome, error) {
	if err := c.queue.Add(code); err != nil {
		return nil, err
	}
	msg := fmt.Sprintf("Você está offline. O cupom %s foi salvo e será validado assim que a conexão for restaurada.", code)
	return &ValidateOutcome{Queued: true, Message: msg}, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.Unmarshal(data, apiErr)
		return apiErr
	}
	if out != nil {
		return json.Unmarshal(data, out)
	}
	return nil
}
