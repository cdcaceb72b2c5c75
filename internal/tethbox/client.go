package tethbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/restan/tethbox/internal/metrics"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"
)

// RouteStyle selects the server's path layout
type RouteStyle string

const (
	// RoutesLegacy uses /init, /inbox, /newAccount and /extendTime
	RoutesLegacy RouteStyle = "legacy"
	// RoutesAccount uses /account/init, /account/inbox, /account/new and /account/extend
	RoutesAccount RouteStyle = "account"
)

type routes struct {
	init       string
	inbox      string
	newAccount string
	extendTime string
}

func routesFor(style RouteStyle) routes {
	if style == RoutesAccount {
		return routes{
			init:       "/account/init",
			inbox:      "/account/inbox",
			newAccount: "/account/new",
			extendTime: "/account/extend",
		}
	}
	return routes{
		init:       "/init",
		inbox:      "/inbox",
		newAccount: "/newAccount",
		extendTime: "/extendTime",
	}
}

// maxErrorBody bounds how much of an error response is kept for diagnostics
const maxErrorBody = 512

// Options tunes a Client
type Options struct {
	RouteStyle RouteStyle
	Timeout    time.Duration
	// HTTPClient overrides the default client. It must carry a cookie jar
	// because the server identifies the account by session cookie.
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client talks to the disposable mailbox HTTP API. It holds no session
// state besides the cookie jar.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	routes  routes
	logger  *zap.Logger
}

// NewClient creates a client for the server at baseURL
func NewClient(baseURL string, opts Options) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL scheme %q", u.Scheme)
	}

	hc := opts.HTTPClient
	if hc == nil {
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		hc = &http.Client{Jar: jar, Timeout: timeout}
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL: u,
		http:    hc,
		routes:  routesFor(opts.RouteStyle),
		logger:  logger.Named("api"),
	}, nil
}

// Init returns the caller's account, creating one when the session has none
func (c *Client) Init(ctx context.Context) (*Account, error) {
	return c.account(ctx, "init", c.routes.init)
}

// NewAccount closes any existing account and allocates a fresh one
func (c *Client) NewAccount(ctx context.Context) (*Account, error) {
	return c.account(ctx, "new_account", c.routes.newAccount)
}

// ExtendTime resets the account countdown
func (c *Client) ExtendTime(ctx context.Context) (*Account, error) {
	return c.account(ctx, "extend_time", c.routes.extendTime)
}

// Inbox returns the current account snapshot and all message summaries
func (c *Client) Inbox(ctx context.Context) (*Inbox, error) {
	var env struct {
		Account  *Account  `json:"account"`
		Messages []Message `json:"messages"`
	}
	if err := c.getJSON(ctx, "inbox", c.routes.inbox, &env); err != nil {
		return nil, err
	}
	if env.Account == nil {
		return nil, fmt.Errorf("inbox: response has no account")
	}
	if env.Messages == nil {
		env.Messages = []Message{}
	}
	return &Inbox{Account: *env.Account, Messages: env.Messages}, nil
}

// Message returns the full detail of one message
func (c *Client) Message(ctx context.Context, key string) (*Message, error) {
	if strings.TrimSpace(key) == "" {
		return nil, fmt.Errorf("message key cannot be empty")
	}
	var env messageEnvelope
	if err := c.getJSON(ctx, "message", "/message/"+url.PathEscape(key), &env); err != nil {
		return nil, err
	}
	if env.Message == nil {
		return nil, fmt.Errorf("message: response has no message")
	}
	msg := env.Message
	if msg.Attachments == nil {
		msg.Attachments = []Attachment{}
	}
	for i := range msg.Attachments {
		if msg.Attachments[i].URL == "" {
			msg.Attachments[i].URL = c.AttachmentURL(msg.Attachments[i].Key)
		}
	}
	msg.Fetched = true
	return msg, nil
}

// Forward asks the server to forward a message to address. A rejected
// address comes back as a *ValidationError carrying the server's reason.
func (c *Client) Forward(ctx context.Context, key, address string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("message key cannot be empty")
	}
	form := url.Values{"address": {address}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.url("/message/"+url.PathEscape(key)+"/forward"), strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("forward: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.doJSON(req, "forward", nil)
}

// AttachmentURL returns the download URL for an attachment key
func (c *Client) AttachmentURL(key string) string {
	return c.url("/attachment/" + url.PathEscape(key))
}

// DownloadAttachment streams an attachment into w
func (c *Client) DownloadAttachment(ctx context.Context, key string, w io.Writer) (int64, error) {
	if strings.TrimSpace(key) == "" {
		return 0, fmt.Errorf("attachment key cannot be empty")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.AttachmentURL(key), nil)
	if err != nil {
		return 0, fmt.Errorf("attachment: %w", err)
	}
	resp, err := c.send(req, "attachment")
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("attachment: read body: %w", err)
	}
	return n, nil
}

func (c *Client) account(ctx context.Context, op, path string) (*Account, error) {
	var env accountEnvelope
	if err := c.getJSON(ctx, op, path, &env); err != nil {
		return nil, err
	}
	if env.Account == nil {
		return nil, fmt.Errorf("%s: response has no account", op)
	}
	return env.Account, nil
}

func (c *Client) url(path string) string {
	return c.baseURL.String() + path
}

func (c *Client) getJSON(ctx context.Context, op, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(path), nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return c.doJSON(req, op, out)
}

func (c *Client) doJSON(req *http.Request, op string, out any) error {
	req.Header.Set("Accept", "application/json")
	resp, err := c.send(req, op)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

// send performs req and turns non-2xx answers into typed errors. On success
// the caller owns the response body.
func (c *Client) send(req *http.Request, op string) (*http.Response, error) {
	start := time.Now()
	resp, err := c.http.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		metrics.RecordAPIRequest(op, 0, elapsed)
		c.logger.Debug("request failed", zap.String("op", op), zap.Duration("elapsed", elapsed), zap.Error(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	metrics.RecordAPIRequest(op, resp.StatusCode, elapsed)
	c.logger.Debug("request done",
		zap.String("op", op),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", elapsed))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if resp.StatusCode == http.StatusBadRequest {
		var env errorEnvelope
		if json.Unmarshal(body, &env) == nil && strings.TrimSpace(env.Error) != "" {
			return nil, &ValidationError{Reason: env.Error}
		}
	}
	return nil, &StatusError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
}
