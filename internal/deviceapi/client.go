package deviceapi

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/muurk/ledbench/internal/color"
	"github.com/muurk/ledbench/internal/logging"
	"github.com/muurk/ledbench/internal/version"
)

const (
	// DefaultPort is the controller's HTTP port
	DefaultPort = 80

	// ControlTimeout bounds every control and info call
	ControlTimeout = 5 * time.Second

	// ProbeTimeout bounds identity probes made during discovery
	ProbeTimeout = 2 * time.Second

	// maxBodySize caps how much of a response is read
	maxBodySize = 64 * 1024
)

// Client talks to one controller's HTTP API.
//
// Every call is a single GET with no retries and no connection reuse; the
// caller decides whether and how to repeat. Client is safe for concurrent
// use.
type Client struct {
	// BaseURL is the base URL for the controller (e.g., "http://192.168.1.23")
	BaseURL string

	// HTTPClient is the underlying HTTP client; its Timeout bounds each call
	HTTPClient *http.Client
}

// NewClient creates a client for the controller at ip:port
// ip: controller IP address (e.g., "192.168.1.23")
// port: controller HTTP port (typically 80)
func NewClient(ip string, port int) *Client {
	if port <= 0 {
		port = DefaultPort
	}
	return NewClientWithURL("http://" + net.JoinHostPort(ip, strconv.Itoa(port)))
}

// NewClientWithURL creates a client with a full base URL
// baseURL: Full base URL (e.g., "http://192.168.1.23:80")
func NewClientWithURL(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: newHTTPClient(ControlTimeout),
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:             nil,
			DisableKeepAlives: true,
		},
	}
}

// SetTimeout sets the HTTP request timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.HTTPClient.Timeout = timeout
}

// WithTimeout returns a copy of the client with a different timeout. The
// original is not modified.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	hc := *c.HTTPClient
	hc.Timeout = timeout
	return &Client{BaseURL: c.BaseURL, HTTPClient: &hc}
}

// Host returns the host part of BaseURL, used to label errors
func (c *Client) Host() string {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return c.BaseURL
	}
	return u.Hostname()
}

// Info fetches the controller's identity document
func (c *Client) Info(ctx context.Context) (*DeviceInfo, error) {
	resp, err := c.get(ctx, InfoPath, nil)
	if err != nil {
		return nil, err
	}
	return ParseDeviceInfo([]byte(resp.Body))
}

// Control sends a combined control request
func (c *Client) Control(ctx context.Context, p ControlParams) (*ControlResponse, error) {
	if errs := ValidateParams(p); len(errs) > 0 {
		return nil, errs[0]
	}
	return c.get(ctx, ControlPath, p.ToQuery())
}

// SetPower switches the LEDs on or off
func (c *Client) SetPower(ctx context.Context, on bool) (*ControlResponse, error) {
	return c.Control(ctx, PowerParams(on))
}

// SetPreset selects preset colour 0-7 (0 is rainbow)
func (c *Client) SetPreset(ctx context.Context, index int) (*ControlResponse, error) {
	return c.Control(ctx, PresetParams(index))
}

// SetBrightness sets brightness 0-100
func (c *Client) SetBrightness(ctx context.Context, brightness int) (*ControlResponse, error) {
	return c.Control(ctx, BrightnessParams(brightness))
}

// SetHSV sends a colour, with brightness when non-nil
func (c *Client) SetHSV(ctx context.Context, hsv color.HSV, brightness *int) (*ControlResponse, error) {
	return c.Control(ctx, HSVParams(hsv, brightness))
}

// SetBroadcast enables or disables the controller's UDP announcements
func (c *Client) SetBroadcast(ctx context.Context, enable bool) (*ControlResponse, error) {
	action := "disable"
	if enable {
		action = "enable"
	}
	q := url.Values{}
	q.Set("action", action)
	return c.get(ctx, BroadcastPath, q)
}

// get performs a single GET and maps every failure onto the error taxonomy
func (c *Client) get(ctx context.Context, path string, query url.Values) (*ControlResponse, error) {
	target := c.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, NewConfigurationError(fmt.Sprintf("invalid request URL %q", target), err)
	}
	req.Header.Set("User-Agent", version.UserAgent())

	logging.LogDeviceRequest(req.Method, target)
	start := time.Now()

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		devErr := NewTransportError("GET "+path+" failed", c.Host(), err)
		logging.LogDeviceResponse(target, 0, time.Since(start), devErr)
		return nil, devErr
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	elapsed := time.Since(start)
	if err != nil {
		devErr := NewTransportError("failed to read "+path+" response", c.Host(), err)
		logging.LogDeviceResponse(target, resp.StatusCode, elapsed, devErr)
		return nil, devErr
	}

	if resp.StatusCode != http.StatusOK {
		devErr := NewStatusError(resp.StatusCode, fmt.Sprintf("GET %s returned status %d", path, resp.StatusCode))
		devErr.DeviceIP = c.Host()
		logging.LogDeviceResponse(target, resp.StatusCode, elapsed, devErr)
		return nil, devErr
	}

	logging.LogDeviceResponse(target, resp.StatusCode, elapsed, nil)
	return &ControlResponse{
		StatusCode: resp.StatusCode,
		Body:       string(body),
		Elapsed:    elapsed,
	}, nil
}
