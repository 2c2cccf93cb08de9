package download

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-hclog"

	"limeal.fr/mclaunch/pkg/connectors"
	"limeal.fr/mclaunch/pkg/errs"
	"limeal.fr/mclaunch/pkg/events"
	"limeal.fr/mclaunch/pkg/logging"
)

const (
	DefaultMaxRetries   = 3
	DefaultFetchTimeout = 30 * time.Second
	DefaultFileTimeout  = 60 * time.Second
	DefaultBackoffUnit  = 2 * time.Second
	DefaultChunkSize    = 8192
)

type ProgressFunc func(events.Progress)

type Options struct {
	MaxRetries   int
	FetchTimeout time.Duration
	FileTimeout  time.Duration
	BackoffUnit  time.Duration
	ChunkSize    int
	UserAgent    string

	Logger hclog.Logger
}

// Downloader retrieves remote resources through the connector matching
// each URL's scheme. Connectors are opened lazily and kept per origin.
type Downloader struct {
	opts   Options
	logger hclog.Logger
	client *resty.Client

	mu    sync.Mutex
	conns map[string]connectors.Connector
}

func New(opts Options) *Downloader {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	if opts.FileTimeout <= 0 {
		opts.FileTimeout = DefaultFileTimeout
	}
	if opts.BackoffUnit < 0 {
		opts.BackoffUnit = 0
	} else if opts.BackoffUnit == 0 {
		opts.BackoffUnit = DefaultBackoffUnit
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "mclaunch"
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	// retries are driven by Fetch so the attempt count stays exact
	client := resty.New().
		SetRetryCount(0).
		SetHeader("User-Agent", opts.UserAgent)

	return &Downloader{
		opts:   opts,
		logger: logger.Named("download"),
		client: client,
		conns:  map[string]connectors.Connector{},
	}
}

func (d *Downloader) connector(origin string) (connectors.Connector, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if c, ok := d.conns[origin]; ok {
		return c, nil
	}

	c := connectors.FindConnectorFromURI(origin)
	if c == nil {
		return nil, fmt.Errorf("no connector for %s", origin)
	}
	if httpConn, ok := c.(*connectors.HttpConnector); ok {
		httpConn.Client = d.client
	}
	if !c.IsConnected() {
		d.logger.Debug("connecting", "uri", c.GetURI())
		if err := c.Connect(); err != nil {
			return nil, fmt.Errorf("failed to connect to %s: %w", c.GetURI(), err)
		}
	}

	d.conns[origin] = c
	return c, nil
}

func (d *Downloader) open(ctx context.Context, rawURL string) (io.ReadCloser, int64, error) {
	origin, remotePath, err := connectors.SplitURI(rawURL)
	if err != nil {
		return nil, -1, err
	}
	c, err := d.connector(origin)
	if err != nil {
		return nil, -1, err
	}
	return c.Open(ctx, remotePath)
}

// Exists returns the first candidate its source reports as present,
// without downloading anything.
func (d *Downloader) Exists(ctx context.Context, candidates []string) (string, bool) {
	for _, raw := range candidates {
		origin, remotePath, err := connectors.SplitURI(raw)
		if err != nil {
			continue
		}
		c, err := d.connector(origin)
		if err != nil {
			d.logger.Debug("probe skipped", "url", raw, "error", err)
			continue
		}

		pctx, cancel := context.WithTimeout(ctx, d.opts.FetchTimeout)
		ok := c.HasFile(pctx, remotePath)
		cancel()
		if ok {
			return raw, true
		}
	}
	return "", false
}

// Close releases every connector opened so far.
func (d *Downloader) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var firstErr error
	for origin, c := range d.conns {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(d.conns, origin)
	}
	return firstErr
}

/////////////////////////////////////////////////////////////////////
// Small payloads
/////////////////////////////////////////////////////////////////////

// Fetch reads a small resource into memory. A failed attempt is retried
// after attempt*BackoffUnit; once MaxRetries attempts failed the last
// error is returned as a NetworkError.
func (d *Downloader) Fetch(ctx context.Context, url string) ([]byte, error) {
	var lastErr error
	attempts := 0

	for attempt := 1; attempt <= d.opts.MaxRetries; attempt++ {
		attempts = attempt
		data, err := d.fetchOnce(ctx, url)
		if err == nil {
			return data, nil
		}
		lastErr = err
		d.logger.Warn("request failed", "url", url, "attempt", attempt, "error", err)

		if ctx.Err() != nil || attempt == d.opts.MaxRetries {
			break
		}
		if err := sleep(ctx, time.Duration(attempt)*d.opts.BackoffUnit); err != nil {
			lastErr = err
			break
		}
	}

	return nil, &errs.NetworkError{URL: url, Attempts: attempts, Err: lastErr}
}

func (d *Downloader) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, d.opts.FetchTimeout)
	defer cancel()

	body, _, err := d.open(ctx, url)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	return io.ReadAll(body)
}

// FetchJSON fetches url and decodes it into v. Decoding failures are
// reported as InvalidManifestDataError.
func (d *Downloader) FetchJSON(ctx context.Context, url string, v any) ([]byte, error) {
	data, err := d.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return nil, &errs.InvalidManifestDataError{Source: url, Err: err}
	}
	return data, nil
}

/////////////////////////////////////////////////////////////////////
// Artifacts
/////////////////////////////////////////////////////////////////////

// FetchToFile tries the candidates in order and stops at the first one
// that streams completely. The body is written to a temporary file next to
// dest and renamed on success, so a failed candidate never leaves a
// partial file at dest. It returns the candidate that succeeded.
func (d *Downloader) FetchToFile(ctx context.Context, candidates []string, dest string, progress ProgressFunc) (string, error) {
	if len(candidates) == 0 {
		return "", &errs.AllSourcesExhaustedError{Dest: dest, Err: fmt.Errorf("no candidate url")}
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory for %s: %w", dest, err)
	}

	var lastErr error
	for i, candidate := range candidates {
		err := d.fetchCandidate(ctx, candidate, dest, progress)
		if err == nil {
			if i > 0 {
				d.logger.Info("downloaded from fallback source", "url", candidate, "attempt", i+1)
			}
			return candidate, nil
		}
		lastErr = err
		d.logger.Warn("source failed", "url", candidate, "dest", dest, "error", err)

		if ctx.Err() != nil {
			break
		}
	}

	return "", &errs.AllSourcesExhaustedError{Dest: dest, Sources: candidates, Err: lastErr}
}

func (d *Downloader) fetchCandidate(ctx context.Context, url, dest string, progress ProgressFunc) error {
	ctx, cancel := context.WithTimeout(ctx, d.opts.FileTimeout)
	defer cancel()

	body, size, err := d.open(ctx, url)
	if err != nil {
		return err
	}
	defer body.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".*.part")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	report := events.Progress{Name: filepath.Base(dest), URL: url, Total: size}
	if progress != nil {
		progress(report)
	}

	buf := make([]byte, d.opts.ChunkSize)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if _, err := tmp.Write(buf[:n]); err != nil {
				tmp.Close()
				os.Remove(tmpPath)
				return fmt.Errorf("write %s: %w", tmpPath, err)
			}
			report.Received += int64(n)
			if progress != nil {
				progress(report)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			tmp.Close()
			os.Remove(tmpPath)
			return readErr
		}
	}

	if size >= 0 && report.Received != size {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("short body: received %d of %d bytes", report.Received, size)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename %s: %w", dest, err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
