package sdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/cloudwego/hertz/pkg/app/client"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/mbeoliero/kit/log"

	"github.com/mbeoliero/nexochat/pkg/constant"
)

// Client is the REST client for the chat API
type Client struct {
	baseURL        string
	httpClient     *client.Client
	timeout        time.Duration
	onNetworkError func(*TransportError)

	mu    sync.RWMutex
	token string
}

// ClientOption is a function to configure the client
type ClientOption func(*Client)

// WithHertzClient sets a custom Hertz client
func WithHertzClient(httpClient *client.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithToken sets the authentication token
func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.token = token
	}
}

// WithTimeout sets the fixed per-request timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithNetworkErrorHandler registers a hook called for every transport error
func WithNetworkErrorHandler(fn func(*TransportError)) ClientOption {
	return func(c *Client) {
		c.onNetworkError = fn
	}
}

// NewClient creates a new SDK client
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	c := &Client{
		baseURL: baseURL,
		timeout: constant.DefaultRequestTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		httpClient, err := client.NewClient(
			client.WithDialTimeout(c.timeout),
			client.WithClientReadTimeout(c.timeout),
			client.WithWriteTimeout(c.timeout),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create http client: %w", err)
		}
		c.httpClient = httpClient
	}

	return c, nil
}

// BaseURL returns the API root
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetToken sets the authentication token
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// ClearToken drops the authentication token
func (c *Client) ClearToken() {
	c.SetToken("")
}

// GetToken returns the current token
func (c *Client) GetToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// request makes an HTTP request and decodes the JSON response into result
func (c *Client) request(ctx context.Context, method, path string, params url.Values, body interface{}, result interface{}) error {
	var payload []byte
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		payload = jsonBody
	}
	return c.do(ctx, method, path, params, constant.ContentTypeJSON, payload, result)
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, contentType string, payload []byte, result interface{}) error {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req := &protocol.Request{}
	resp := &protocol.Response{}

	req.SetMethod(method)
	req.SetRequestURI(reqURL)
	req.Header.Set("Accept", constant.ContentTypeJSON)

	if token := c.GetToken(); token != "" {
		req.Header.Set(constant.HeaderAuthorization, constant.BearerToken(token))
	}

	if payload != nil {
		req.Header.Set("Content-Type", contentType)
		req.SetBody(payload)
	}

	if err := c.httpClient.DoTimeout(ctx, req, resp, c.timeout); err != nil {
		terr := newTransportError(method, path, err)
		log.CtxWarn(ctx, "request failed without response: method=%s, path=%s, timeout=%v, error=%v", method, path, terr.Timeout, err)
		if c.onNetworkError != nil {
			c.onNetworkError(terr)
		}
		return terr
	}

	status := resp.StatusCode()
	if status >= consts.StatusBadRequest {
		apiErr := newStatusError(status, resp.Body())
		log.CtxDebug(ctx, "request rejected: method=%s, path=%s, status=%d, msg=%s", method, path, status, apiErr.Msg)
		return apiErr
	}

	if result == nil || len(resp.Body()) == 0 {
		return nil
	}

	if err := json.Unmarshal(resp.Body(), result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// get makes a GET request with query parameters
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	return c.request(ctx, consts.MethodGet, path, params, nil, result)
}

// post makes a POST request
func (c *Client) post(ctx context.Context, path string, body interface{}, result interface{}) error {
	return c.request(ctx, consts.MethodPost, path, nil, body, result)
}

// put makes a PUT request
func (c *Client) put(ctx context.Context, path string, body interface{}, result interface{}) error {
	return c.request(ctx, consts.MethodPut, path, nil, body, result)
}

// IsTransport reports whether err is a request that got no response
func IsTransport(err error) bool {
	var terr *TransportError
	return errors.As(err, &terr)
}

// IsTimeout reports whether err is a transport timeout
func IsTimeout(err error) bool {
	var terr *TransportError
	return errors.As(err, &terr) && terr.Timeout
}
