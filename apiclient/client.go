package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"path"
	"time"

	"github.com/google/uuid"
	"go.vocdoni.io/guardians/log"
	"golang.org/x/net/publicsuffix"
)

const (
	// HTTPGET is the method string used for calling Request()
	HTTPGET = http.MethodGet
	// HTTPPOST is the method string used for calling Request()
	HTTPPOST = http.MethodPost

	// DefaultTimeout bounds every request made by the client.
	DefaultTimeout = 15 * time.Second

	// maxResponseSize caps how much of a response body is read.
	maxResponseSize = 32 << 20 // 32 MiB

	userAgent = "Vocdoni guardians client / 1.0"
)

// HTTPclient is the HTTP client of the election guardian service.
// Cookies set by the service (such as the session cookie obtained with Login)
// are stored in a jar and sent along with every request.
type HTTPclient struct {
	c     *http.Client
	token *uuid.UUID
	addr  *url.URL
}

// NewHTTPclient creates a new HTTP(s) guardian service client. The bearer
// token is optional.
func NewHTTPclient(addr *url.URL, bearerToken *uuid.UUID) (*HTTPclient, error) {
	if addr == nil {
		return nil, fmt.Errorf("no host address provided")
	}
	if addr.Scheme != "http" && addr.Scheme != "https" {
		return nil, fmt.Errorf("unsupported host scheme %q", addr.Scheme)
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	tr := &http.Transport{
		Proxy:              http.ProxyFromEnvironment,
		IdleConnTimeout:    10 * time.Second,
		DisableCompression: false,
		WriteBufferSize:    1 * 1024 * 1024, // 1 MiB
		ReadBufferSize:     1 * 1024 * 1024, // 1 MiB
	}
	return &HTTPclient{
		c:     &http.Client{Transport: tr, Timeout: DefaultTimeout, Jar: jar},
		token: bearerToken,
		addr:  addr,
	}, nil
}

// SetAuthToken configures the bearer authentication token.
func (c *HTTPclient) SetAuthToken(token *uuid.UUID) {
	c.token = token
}

// SetHostAddr configures the host address of the guardian service.
func (c *HTTPclient) SetHostAddr(addr *url.URL) {
	c.addr = addr
}

// SetTimeout changes the maximum duration of a single request.
func (c *HTTPclient) SetTimeout(d time.Duration) {
	c.c.Timeout = d
}

// HostAddr returns the configured host address.
func (c *HTTPclient) HostAddr() *url.URL {
	return c.addr
}

// Request performs a `method` type raw request to the endpoint specified by
// the urlPath segments, which are escaped individually. If jsonBody is not
// nil it is sent JSON encoded. Returns the response body, the status code and
// an error. A non 2xx status is not an error at this level.
func (c *HTTPclient) Request(ctx context.Context, method string, jsonBody any,
	urlPath ...string,
) ([]byte, int, error) {
	var body io.Reader = http.NoBody
	if jsonBody != nil {
		data, err := json.Marshal(jsonBody)
		if err != nil {
			return nil, 0, err
		}
		body = bytes.NewReader(data)
	}
	u, err := c.endpoint(urlPath...)
	if err != nil {
		return nil, 0, err
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if jsonBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		req.Header.Set("Authorization", "Bearer "+c.token.String())
	}
	log.Debugf("%s %s", method, u)
	resp, err := c.c.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, 0, err
	}
	return data, resp.StatusCode, nil
}

func (c *HTTPclient) endpoint(segments ...string) (*url.URL, error) {
	if c.addr == nil {
		return nil, fmt.Errorf("no host address configured")
	}
	u := *c.addr
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	u.Path = path.Join(append([]string{"/", c.addr.Path}, segments...)...)
	u.RawPath = path.Join(append([]string{"/", c.addr.EscapedPath()}, escaped...)...)
	return &u, nil
}

func statusOK(status int) bool {
	return status >= 200 && status < 300
}
