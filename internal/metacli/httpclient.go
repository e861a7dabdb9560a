package metacli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
)

// ServerError is the JSON error envelope returned by the server.
type ServerError struct {
	Result int    `json:"result"`
	Error  string `json:"error"`
}

type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// HTTPClient talks to the metadata server, routing through the public or
// trusted surface per config.
type HTTPClient struct {
	config     *Config
	httpClient *http.Client
}

func NewHTTPClient(config *Config) *HTTPClient {
	return &HTTPClient{
		config:     config,
		httpClient: &http.Client{},
	}
}

type RequestOptions struct {
	Method      string
	Path        string
	QueryParams map[string]string
	Body        []byte
	// Unscoped requests (info, admin) skip the surface prefix and tenant
	// header.
	Unscoped bool
}

func (c *HTTPClient) surfacePrefix() string {
	if c.config.Trusted {
		return "/trusted"
	}
	return "/api"
}

// DoRequest makes one HTTP request and returns the body and the Location
// header.
func (c *HTTPClient) DoRequest(opts RequestOptions) ([]byte, string, error) {
	u, err := url.Parse(c.config.GetServerURL())
	if err != nil {
		return nil, "", fmt.Errorf("invalid server URL: %v", err)
	}
	reqPath := opts.Path
	if !opts.Unscoped {
		reqPath = c.surfacePrefix() + "/" + reqPath
	}
	u.Path = path.Join(u.Path, reqPath)

	q := u.Query()
	for k, v := range opts.QueryParams {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequest(opts.Method, u.String(), bytes.NewBuffer(opts.Body))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if !opts.Unscoped {
		req.Header.Set("X-Meridian-Tenant", c.config.Tenant)
	}
	if c.config.UserID != "" {
		req.Header.Set("X-Meridian-User-Id", c.config.UserID)
	}
	if c.config.UserName != "" {
		req.Header.Set("X-Meridian-User", c.config.UserName)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response body: %v", err)
	}

	if resp.StatusCode >= 400 {
		var serverErr ServerError
		if err := json.Unmarshal(body, &serverErr); err == nil && serverErr.Error != "" {
			return nil, "", &HTTPError{StatusCode: resp.StatusCode, Message: serverErr.Error}
		}
		return nil, "", &HTTPError{StatusCode: resp.StatusCode, Message: string(body)}
	}
	return body, resp.Header.Get("Location"), nil
}

func (c *HTTPClient) Post(p string, body []byte) ([]byte, string, error) {
	return c.DoRequest(RequestOptions{Method: http.MethodPost, Path: p, Body: body})
}

func (c *HTTPClient) Get(p string, queryParams map[string]string) ([]byte, error) {
	body, _, err := c.DoRequest(RequestOptions{Method: http.MethodGet, Path: p, QueryParams: queryParams})
	return body, err
}

func (c *HTTPClient) Delete(p string) error {
	_, _, err := c.DoRequest(RequestOptions{Method: http.MethodDelete, Path: p})
	return err
}
