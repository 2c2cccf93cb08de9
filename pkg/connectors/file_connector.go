package connectors

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

const FILE_SCHEME = "file"

// FileConnector serves artifacts from a local directory, typically an
// offline mirror laid out like the upstream hosts.
type FileConnector struct {
	Path string
}

func (c *FileConnector) NewFromURI(uri string) Connector {
	// Example: file:///path/to/mirror
	parsed, err := url.Parse(uri)
	if err != nil {
		return nil
	}

	// if the path start with ./ use PWD
	finalPath := parsed.Host + parsed.Path
	if strings.HasPrefix(finalPath, "./") {
		pwd, err := os.Getwd()
		if err != nil {
			return nil
		}
		finalPath = filepath.Join(pwd, strings.TrimPrefix(finalPath, "./"))
	}

	return &FileConnector{
		Path: finalPath,
	}
}

func (c *FileConnector) resolve(remotePath string) string {
	if strings.HasPrefix(remotePath, "./") {
		if pwd, err := os.Getwd(); err == nil {
			return filepath.Join(pwd, remotePath)
		}
	}
	if c.Path == "" {
		return filepath.FromSlash(remotePath)
	}
	return filepath.Join(c.Path, filepath.FromSlash(remotePath))
}

func (c *FileConnector) GetURI() string {
	return FILE_SCHEME + "://" + c.Path
}

func (c *FileConnector) GetScheme() string {
	return FILE_SCHEME
}

func (c *FileConnector) Connect() error {
	return nil
}

func (c *FileConnector) IsConnected() bool {
	return true
}

func (c *FileConnector) Close() error {
	return nil
}

func (c *FileConnector) Open(ctx context.Context, remotePath string) (io.ReadCloser, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, -1, err
	}

	f, err := os.Open(c.resolve(remotePath))
	if err != nil {
		return nil, -1, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, -1, err
	}
	if info.IsDir() {
		f.Close()
		return nil, -1, fmt.Errorf("%s is a directory", remotePath)
	}

	return f, info.Size(), nil
}

func (c *FileConnector) HasFile(ctx context.Context, remotePath string) bool {
	info, err := os.Stat(c.resolve(remotePath))
	return err == nil && !info.IsDir()
}
