package connectors

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
)

const HTTP_SCHEME = "http"
const HTTPS_SCHEME = "https"

// StatusError is a completed request with a non-2xx answer.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

type HttpConnector struct {
	URL string

	Secured bool // https or http

	// Client is shared by every connector of a Downloader; nil means a
	// private default client.
	Client *resty.Client
}

func (c *HttpConnector) getURL(remotePath string) string {
	if strings.HasPrefix(remotePath, "/") {
		if strings.HasSuffix(c.URL, "/") {
			return c.URL + strings.TrimPrefix(remotePath, "/")
		}
		return c.URL + remotePath
	}

	return c.URL + "/" + remotePath
}

func (c *HttpConnector) client() *resty.Client {
	if c.Client == nil {
		c.Client = resty.New()
	}
	return c.Client
}

func (c *HttpConnector) NewFromURI(uri string) Connector {
	return &HttpConnector{
		URL:     strings.TrimSuffix(uri, "/"),
		Secured: strings.HasPrefix(uri, HTTPS_SCHEME+"://"),
	}
}

func (c *HttpConnector) GetURI() string {
	return c.URL
}

func (c *HttpConnector) GetScheme() string {
	if c.Secured {
		return HTTPS_SCHEME
	}
	return HTTP_SCHEME
}

func (c *HttpConnector) Connect() error {
	return nil
}

func (c *HttpConnector) IsConnected() bool {
	return true
}

func (c *HttpConnector) Close() error {
	return nil
}

/**
* Stream the body of remote url
* e.g. https://bmclapi2.bangbang93.com/maven/org/ow2/asm/asm/9.8/asm-9.8.jar
 */
func (c *HttpConnector) Open(ctx context.Context, remotePath string) (io.ReadCloser, int64, error) {
	url := c.getURL(remotePath)

	resp, err := c.client().R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		return nil, -1, err
	}

	body := resp.RawBody()
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		if body != nil {
			body.Close()
		}
		return nil, -1, &StatusError{URL: url, StatusCode: resp.StatusCode()}
	}

	size := int64(-1)
	if resp.RawResponse != nil && resp.RawResponse.ContentLength >= 0 {
		size = resp.RawResponse.ContentLength
	}
	return body, size, nil
}

func (c *HttpConnector) HasFile(ctx context.Context, remotePath string) bool {
	resp, err := c.client().R().SetContext(ctx).Head(c.getURL(remotePath))
	return err == nil && resp.StatusCode() >= 200 && resp.StatusCode() < 300
}
