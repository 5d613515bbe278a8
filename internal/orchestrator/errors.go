package orchestrator

// serviceNotRunningError rejects operations that require a confirmed-running
// local daemon, so callers fail fast instead of attempting and failing late.
type serviceNotRunningError struct{}

func (serviceNotRunningError) Error() string {
	return "local inference service is not running"
}

// IsServiceNotRunning reports whether err indicates the local daemon
// precondition failed.
func IsServiceNotRunning(err error) bool {
	_, ok := err.(serviceNotRunningError)
	return ok
}

// downloadInFlightError signals a duplicate concurrent pull of one model name.
type downloadInFlightError struct{ model string }

func (e downloadInFlightError) Error() string {
	return "download already in progress: " + e.model
}

// IsDownloadInFlight reports whether err indicates a duplicate pull.
func IsDownloadInFlight(err error) bool {
	_, ok := err.(downloadInFlightError)
	return ok
}

// startFailedError is the soft failure signal from StartLocal. State has
// already been updated with the reason; no fault propagates beyond this.
type startFailedError struct{ reason string }

func (e startFailedError) Error() string { return e.reason }

// IsStartFailed reports whether err is a reported local-start failure.
func IsStartFailed(err error) bool {
	_, ok := err.(startFailedError)
	return ok
}

// credentialMissingError signals a cloud request without a stored credential.
type credentialMissingError struct{}

func (credentialMissingError) Error() string {
	return "cloud credential is not configured"
}

// IsCredentialMissing reports whether err indicates an absent credential.
func IsCredentialMissing(err error) bool {
	_, ok := err.(credentialMissingError)
	return ok
}
