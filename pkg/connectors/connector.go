package connectors

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
)

// Connector is a read-only artifact source reached through one origin
// (an http host, an sftp server, the local filesystem).
type Connector interface {
	NewFromURI(uri string) Connector

	GetURI() string
	GetScheme() string // http, https, file, sftp

	Connect() error
	IsConnected() bool
	Close() error

	// Open streams remotePath. size is -1 when the source does not announce it.
	Open(ctx context.Context, remotePath string) (body io.ReadCloser, size int64, err error)
	HasFile(ctx context.Context, remotePath string) bool
}

var CONNECTORS = map[string]Connector{
	"sftp":  new(SFTPConnector),
	"file":  new(FileConnector),
	"http":  new(HttpConnector),
	"https": new(HttpConnector),
}

func FindConnectorFromURI(uri string) Connector {
	for k, connector := range CONNECTORS {
		if strings.HasPrefix(uri, k+"://") {
			return connector.NewFromURI(uri)
		}
	}

	return nil
}

// SplitURI separates a full artifact URL into the origin a connector is
// opened on and the path handed to Open.
//
//	https://host/a/b.jar?x=1        -> https://host, /a/b.jar?x=1
//	sftp://user:pw@host:22/m/b.jar  -> sftp://user:pw@host:22, /m/b.jar
//	file:///srv/mirror/b.jar        -> file://, /srv/mirror/b.jar
func SplitURI(raw string) (origin string, remotePath string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("invalid uri %q: %w", raw, err)
	}

	switch u.Scheme {
	case HTTP_SCHEME, HTTPS_SCHEME:
		if u.Host == "" {
			return "", "", fmt.Errorf("invalid uri %q: missing host", raw)
		}
		remotePath = u.EscapedPath()
		if u.RawQuery != "" {
			remotePath += "?" + u.RawQuery
		}
		return u.Scheme + "://" + u.Host, remotePath, nil
	case SFTP_SCHEME:
		origin = u.Scheme + "://"
		if u.User != nil {
			origin += u.User.String() + "@"
		}
		return origin + u.Host, u.Path, nil
	case FILE_SCHEME:
		return FILE_SCHEME + "://", u.Host + u.Path, nil
	}

	return "", "", fmt.Errorf("unsupported scheme %q in %s", u.Scheme, raw)
}
