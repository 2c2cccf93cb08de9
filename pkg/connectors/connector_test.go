package connectors

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitURI(t *testing.T) {
	cases := []struct {
		in, origin, path string
	}{
		{"https://host.example/a/b.jar?x=1", "https://host.example", "/a/b.jar?x=1"},
		{"http://127.0.0.1:8080/maven/a.jar", "http://127.0.0.1:8080", "/maven/a.jar"},
		{"sftp://user:pw@mirror:2222/srv/a.jar", "sftp://user:pw@mirror:2222", "/srv/a.jar"},
		{"file:///srv/mirror/a.jar", "file://", "/srv/mirror/a.jar"},
	}
	for _, c := range cases {
		origin, path, err := SplitURI(c.in)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.origin, origin, c.in)
		assert.Equal(t, c.path, path, c.in)
	}

	_, _, err := SplitURI("gopher://x/y")
	assert.Error(t, err)
}

func TestFindConnectorFromURI(t *testing.T) {
	assert.IsType(t, &HttpConnector{}, FindConnectorFromURI("https://a"))
	assert.IsType(t, &HttpConnector{}, FindConnectorFromURI("http://a"))
	assert.IsType(t, &FileConnector{}, FindConnectorFromURI("file://"))
	assert.IsType(t, &SFTPConnector{}, FindConnectorFromURI("sftp://u:p@h"))
	assert.Nil(t, FindConnectorFromURI("ftp://a"))

	sftpConn := FindConnectorFromURI("sftp://u:p@h:2022/base").(*SFTPConnector)
	assert.Equal(t, 2022, sftpConn.Port)
	assert.Equal(t, "/base/a/b.jar", sftpConn.formatPath("a/b.jar"))
	assert.Equal(t, "sftp://u:*****@h:2022/", sftpConn.GetURI())
}

func TestHttpConnectorOpen(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ok.jar" {
			w.Write([]byte("payload"))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := FindConnectorFromURI(srv.URL)
	body, size, err := c.Open(context.Background(), "/ok.jar")
	require.NoError(t, err)
	defer body.Close()
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
	assert.Equal(t, int64(7), size)
	assert.True(t, c.HasFile(context.Background(), "/ok.jar"))

	_, _, err = c.Open(context.Background(), "/missing.jar")
	var status *StatusError
	require.ErrorAs(t, err, &status)
	assert.Equal(t, http.StatusNotFound, status.StatusCode)
	assert.False(t, c.HasFile(context.Background(), "/missing.jar"))
}

func TestFileConnectorOpen(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "maven"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "maven", "a.jar"), []byte("abc"), 0644))

	c := FindConnectorFromURI("file://" + filepath.ToSlash(dir))
	body, size, err := c.Open(context.Background(), "/maven/a.jar")
	require.NoError(t, err)
	body.Close()
	assert.Equal(t, int64(3), size)
	assert.True(t, c.HasFile(context.Background(), "maven/a.jar"))
	assert.False(t, c.HasFile(context.Background(), "maven"))

	_, _, err = c.Open(context.Background(), "/maven/none.jar")
	assert.Error(t, err)
}
