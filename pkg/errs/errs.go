package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinels matched with errors.Is. Every typed error below reports the
// matching sentinel from Is so callers can branch on the category alone.
var (
	ErrNetwork                = errors.New("network error")
	ErrAllSourcesExhausted    = errors.New("all sources exhausted")
	ErrVersionNotFound        = errors.New("version not found")
	ErrInvalidManifestData    = errors.New("invalid manifest data")
	ErrMissingDependency      = errors.New("missing dependency")
	ErrExternalInstaller      = errors.New("external installer failed")
	ErrInstallationIncomplete = errors.New("installation incomplete")
	ErrProcessLaunch          = errors.New("process launch failed")
)

/////////////////////////////////////////////////////////////////////
// Network
/////////////////////////////////////////////////////////////////////

// NetworkError is returned once every retry of a single URL failed.
type NetworkError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Is(target error) bool { return target == ErrNetwork }

// AllSourcesExhaustedError carries the last underlying failure of a
// multi-candidate download.
type AllSourcesExhaustedError struct {
	Dest    string
	Sources []string
	Err     error
}

func (e *AllSourcesExhaustedError) Error() string {
	return fmt.Sprintf("download of %s failed on all %d source(s): %v", e.Dest, len(e.Sources), e.Err)
}

func (e *AllSourcesExhaustedError) Unwrap() error { return e.Err }

func (e *AllSourcesExhaustedError) Is(target error) bool { return target == ErrAllSourcesExhausted }

/////////////////////////////////////////////////////////////////////
// Manifest
/////////////////////////////////////////////////////////////////////

type VersionNotFoundError struct {
	VersionID string
}

func (e *VersionNotFoundError) Error() string {
	return fmt.Sprintf("version %q not found in manifest", e.VersionID)
}

func (e *VersionNotFoundError) Is(target error) bool { return target == ErrVersionNotFound }

type InvalidManifestDataError struct {
	Source string
	Reason string
	Err    error
}

func (e *InvalidManifestDataError) Error() string {
	msg := "invalid manifest data"
	if e.Source != "" {
		msg += " in " + e.Source
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InvalidManifestDataError) Unwrap() error { return e.Err }

func (e *InvalidManifestDataError) Is(target error) bool { return target == ErrInvalidManifestData }

/////////////////////////////////////////////////////////////////////
// Launch
/////////////////////////////////////////////////////////////////////

// MissingDependencyError lists the references still absent when a launch
// was requested.
type MissingDependencyError struct {
	VersionID string
	Missing   []string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("version %s is missing %d file(s): %s", e.VersionID, len(e.Missing), strings.Join(e.Missing, ", "))
}

func (e *MissingDependencyError) Is(target error) bool { return target == ErrMissingDependency }

type ExternalInstallerError struct {
	Installer string
	ExitCode  int
	Err       error
}

func (e *ExternalInstallerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("installer %s failed (exit code %d): %v", e.Installer, e.ExitCode, e.Err)
	}
	return fmt.Sprintf("installer %s failed (exit code %d)", e.Installer, e.ExitCode)
}

func (e *ExternalInstallerError) Unwrap() error { return e.Err }

func (e *ExternalInstallerError) Is(target error) bool { return target == ErrExternalInstaller }

type InstallationIncompleteError struct {
	VersionID string
	Path      string
}

func (e *InstallationIncompleteError) Error() string {
	return fmt.Sprintf("installer finished but version %s was not created at %s", e.VersionID, e.Path)
}

func (e *InstallationIncompleteError) Is(target error) bool { return target == ErrInstallationIncomplete }

// ProcessLaunchError covers both a process that could not start (Err set,
// ExitCode -1) and one that exited abnormally.
type ProcessLaunchError struct {
	Command     string
	ExitCode    int
	CrashReport string
	Err         error
}

func (e *ProcessLaunchError) Error() string {
	var b strings.Builder
	if e.Err != nil {
		fmt.Fprintf(&b, "failed to start %s: %v", e.Command, e.Err)
	} else {
		fmt.Fprintf(&b, "%s exited with code %d", e.Command, e.ExitCode)
	}
	if e.CrashReport != "" {
		b.WriteString(" (crash report: " + e.CrashReport + ")")
	}
	return b.String()
}

func (e *ProcessLaunchError) Unwrap() error { return e.Err }

func (e *ProcessLaunchError) Is(target error) bool { return target == ErrProcessLaunch }
