package executor

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/studiowebux/blitzbar/internal/types"
)

const (
	loginPath   = "/login/api"
	executePath = "/api/1/curl/execute"
	jobsPath    = "/api/1/jobs/"

	headerUser = "X-API-User"
	headerKey  = "X-API-Key"

	defaultTimeout = 30 * time.Second
)

// Endpoint locates the testing service
type Endpoint struct {
	Scheme string
	Host   string
	Port   int
}

// DefaultEndpoint is the public blitz service
var DefaultEndpoint = Endpoint{Scheme: "https", Host: "www.blitz.io", Port: 443}

// BaseURL renders the endpoint, leaving out the port when it is the scheme default
func (e Endpoint) BaseURL() string {
	scheme := e.Scheme
	if scheme == "" {
		scheme = "https"
	}
	host := e.Host
	if (scheme == "https" && e.Port != 0 && e.Port != 443) || (scheme == "http" && e.Port != 0 && e.Port != 80) {
		host = net.JoinHostPort(host, strconv.Itoa(e.Port))
	}
	return (&url.URL{Scheme: scheme, Host: host}).String()
}

// ParseEndpoint parses a base URL such as "http://localhost:9295"
func ParseEndpoint(raw string) (Endpoint, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Endpoint{}, fmt.Errorf("invalid endpoint: %w", err)
	}
	if u.Scheme == "" || u.Hostname() == "" {
		return Endpoint{}, fmt.Errorf("invalid endpoint %q: scheme and host are required", raw)
	}
	ep := Endpoint{Scheme: u.Scheme, Host: u.Hostname()}
	if p := u.Port(); p != "" {
		ep.Port, err = strconv.Atoi(p)
		if err != nil {
			return Endpoint{}, fmt.Errorf("invalid endpoint port: %w", err)
		}
	}
	return ep, nil
}

// Credentials identify the caller to the service. APIKey is the long-lived key
// exchanged at login for a short-lived job key.
type Credentials struct {
	Username string
	APIKey   string
}

// TLSConfig holds TLS/mTLS settings for talking to the service
type TLSConfig struct {
	CAFile             string `yaml:"caFile,omitempty" json:"caFile,omitempty"`
	CertFile           string `yaml:"certFile,omitempty" json:"certFile,omitempty"`
	KeyFile            string `yaml:"keyFile,omitempty" json:"keyFile,omitempty"`
	InsecureSkipVerify bool   `yaml:"insecureSkipVerify,omitempty" json:"insecureSkipVerify,omitempty"`
}

// SubmitResponse is the service's acknowledgement of a queued job
type SubmitResponse struct {
	JobID  string
	Region string
	Status string
}

// StatusResponse is one poll of a job
type StatusResponse struct {
	JobID  string
	Status string
	Result map[string]any
}

// Completed reports whether the job reached its terminal state
func (s *StatusResponse) Completed() bool { return s.Status == "completed" }

// Client performs the four service calls. It holds no per-job state and is
// safe for concurrent use.
type Client struct {
	endpoint  Endpoint
	creds     Credentials
	http      *http.Client
	userAgent string
}

// ClientOption configures a Client
type ClientOption func(*Client) error

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) error {
		c.http = hc
		return nil
	}
}

// WithTLS builds the HTTP client with the given TLS settings
func WithTLS(cfg *TLSConfig) ClientOption {
	return func(c *Client) error {
		hc, err := buildHTTPClient(cfg)
		if err != nil {
			return err
		}
		c.http = hc
		return nil
	}
}

// WithUserAgent sets the User-Agent sent on every call
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) error {
		c.userAgent = ua
		return nil
	}
}

// NewClient creates a service client
func NewClient(endpoint Endpoint, creds Credentials, opts ...ClientOption) (*Client, error) {
	c := &Client{endpoint: endpoint, creds: creds, userAgent: "blitzbar"}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("failed to configure client: %w", err)
		}
	}
	if c.http == nil {
		hc, err := buildHTTPClient(nil)
		if err != nil {
			return nil, err
		}
		c.http = hc
	}
	return c, nil
}

// Endpoint returns the service endpoint
func (c *Client) Endpoint() Endpoint { return c.endpoint }

// Login exchanges the long-lived API key for a short-lived job key
func (c *Client) Login(ctx context.Context) (string, error) {
	doc, err := c.call(ctx, "login", http.MethodGet, loginPath, c.creds.APIKey, nil)
	if err != nil {
		return "", err
	}
	if code, reason, failed := serviceFailure(doc); failed {
		return "", &AuthenticationError{Code: code, Reason: reason}
	}
	key, _ := doc["api_key"].(string)
	if key == "" {
		return "", &AuthenticationError{Code: "login", Reason: "no api_key in login response"}
	}
	return key, nil
}

// Submit queues the spec for execution
func (c *Client) Submit(ctx context.Context, key string, spec *types.TestSpec) (*SubmitResponse, error) {
	body, err := types.Encode(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode test spec: %w", err)
	}
	doc, err := c.call(ctx, "submit", http.MethodPost, executePath, key, body)
	if err != nil {
		return nil, err
	}
	if code, reason, failed := serviceFailure(doc); failed {
		return nil, &ServiceError{Op: "submit", Code: code, Reason: reason}
	}
	resp := &SubmitResponse{
		JobID:  stringField(doc, "job_id"),
		Region: stringField(doc, "region"),
		Status: stringField(doc, "status"),
	}
	if resp.JobID == "" {
		return nil, &ServiceError{Op: "submit", Code: "protocol", Reason: "no job_id in submit response"}
	}
	return resp, nil
}

// Status polls the job once
func (c *Client) Status(ctx context.Context, key, jobID string) (*StatusResponse, error) {
	doc, err := c.call(ctx, "status", http.MethodGet, jobsPath+url.PathEscape(jobID)+"/status", key, nil)
	if err != nil {
		return nil, err
	}
	if code, reason, failed := serviceFailure(doc); failed {
		return nil, &ServiceError{Op: "status", Code: code, Reason: reason}
	}
	resp := &StatusResponse{
		JobID:  stringField(doc, "_id"),
		Status: stringField(doc, "status"),
	}
	if raw, ok := doc["result"].(map[string]any); ok {
		resp.Result = raw
	} else {
		resp.Result = map[string]any{}
	}
	return resp, nil
}

// Abort asks the service to stop the job. Only the error document is checked.
func (c *Client) Abort(ctx context.Context, key, jobID string) error {
	doc, err := c.call(ctx, "abort", http.MethodPut, jobsPath+url.PathEscape(jobID)+"/abort", key, nil)
	if err != nil {
		return err
	}
	if code, reason, failed := serviceFailure(doc); failed {
		return &ServiceError{Op: "abort", Code: code, Reason: reason}
	}
	return nil
}

// call performs one request and decodes the JSON document it returns.
// Numbers are kept as json.Number.
func (c *Client) call(ctx context.Context, op, method, path, key string, body []byte) (map[string]any, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint.BaseURL()+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(headerUser, c.creds.Username)
	req.Header.Set(headerKey, key)
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	doc := map[string]any{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		if resp.StatusCode >= 400 {
			return nil, &ServiceError{Op: op, Code: strconv.Itoa(resp.StatusCode), Reason: http.StatusText(resp.StatusCode)}
		}
		return nil, &TransportError{Op: op, Err: fmt.Errorf("invalid JSON response: %w", err)}
	}
	if resp.StatusCode >= 400 {
		if _, ok := doc["error"]; !ok {
			doc["error"] = strconv.Itoa(resp.StatusCode)
			doc["reason"] = http.StatusText(resp.StatusCode)
		}
	}
	return doc, nil
}

// serviceFailure extracts the {"error":..,"reason":..} document
func serviceFailure(doc map[string]any) (code, reason string, failed bool) {
	if _, ok := doc["error"]; !ok {
		return "", "", false
	}
	return stringField(doc, "error"), stringField(doc, "reason"), true
}

func stringField(doc map[string]any, key string) string {
	switch v := doc[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// buildHTTPClient creates an HTTP client with optional TLS/mTLS configuration
func buildHTTPClient(tlsConfig *TLSConfig) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if tlsConfig != nil {
		tlsCfg := &tls.Config{
			InsecureSkipVerify: tlsConfig.InsecureSkipVerify,
		}

		if tlsConfig.CertFile != "" && tlsConfig.KeyFile != "" {
			cert, err := tls.LoadX509KeyPair(tlsConfig.CertFile, tlsConfig.KeyFile)
			if err != nil {
				return nil, fmt.Errorf("failed to load client certificate: %w", err)
			}
			tlsCfg.Certificates = []tls.Certificate{cert}
		}

		if tlsConfig.CAFile != "" {
			caCert, err := os.ReadFile(tlsConfig.CAFile)
			if err != nil {
				return nil, fmt.Errorf("failed to read CA certificate: %w", err)
			}
			caCertPool := x509.NewCertPool()
			if !caCertPool.AppendCertsFromPEM(caCert) {
				return nil, fmt.Errorf("failed to parse CA certificate")
			}
			tlsCfg.RootCAs = caCertPool
		}

		transport.TLSClientConfig = tlsCfg
	}

	return &http.Client{
		Timeout:   defaultTimeout,
		Transport: transport,
	}, nil
}
