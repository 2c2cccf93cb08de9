package errs

import (
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypedErrorsMatchSentinels(t *testing.T) {
	cases := []struct {
		err      error
		sentinel error
	}{
		{&NetworkError{URL: "http://x", Attempts: 3, Err: io.EOF}, ErrNetwork},
		{&AllSourcesExhaustedError{Dest: "a.jar", Sources: []string{"a", "b"}, Err: io.EOF}, ErrAllSourcesExhausted},
		{&VersionNotFoundError{VersionID: "1.0"}, ErrVersionNotFound},
		{&InvalidManifestDataError{Source: "x.json", Reason: "bad"}, ErrInvalidManifestData},
		{&MissingDependencyError{VersionID: "1.0", Missing: []string{"a"}}, ErrMissingDependency},
		{&ExternalInstallerError{Installer: "forge", ExitCode: 1}, ErrExternalInstaller},
		{&InstallationIncompleteError{VersionID: "1.0-forge", Path: "/x"}, ErrInstallationIncomplete},
		{&ProcessLaunchError{Command: "java", ExitCode: 1}, ErrProcessLaunch},
	}

	for _, c := range cases {
		wrapped := fmt.Errorf("operation: %w", c.err)
		assert.True(t, errors.Is(wrapped, c.sentinel), "%T should match %v", c.err, c.sentinel)
		assert.NotEmpty(t, c.err.Error())
	}
}

func TestCausePreserved(t *testing.T) {
	err := fmt.Errorf("install: %w", &AllSourcesExhaustedError{Dest: "a.jar", Err: io.ErrUnexpectedEOF})

	require.ErrorIs(t, err, io.ErrUnexpectedEOF)

	var exhausted *AllSourcesExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, "a.jar", exhausted.Dest)
}

func TestProcessLaunchErrorMessage(t *testing.T) {
	err := &ProcessLaunchError{Command: "java", ExitCode: 1, CrashReport: "crash-1.txt"}
	assert.Equal(t, "java exited with code 1 (crash report: crash-1.txt)", err.Error())

	err = &ProcessLaunchError{Command: "java", ExitCode: -1, Err: io.EOF}
	assert.Equal(t, "failed to start java: EOF", err.Error())
}
