package filesystem

// Observer records filesystem metrics. The metrics package provides the
// implementation so that filesystem never imports metrics.
type Observer interface {
	// ObserveOperation records duration and error status for a filesystem operation.
	// volume is the resolved mount label ("assets", "database").
	ObserveOperation(volume, operation string, durationSeconds float64, err error)

	ObserveRetryAttempt(retryOp, volume string)
	ObserveRetrySuccess(retryOp, volume string)
	ObserveRetryFailure(retryOp, volume string)
	ObserveRetryDuration(retryOp, volume string, durationSeconds float64)
	ObserveStaleError(retryOp, volume string)

	// ObserveWatcherEvent counts asset watcher events by type ("write", "remove", ...).
	ObserveWatcherEvent(eventType string)
	ObserveWatcherError()
}

var defaultObserver Observer

// SetObserver sets the package-level metrics observer.
// Call this once at startup.
func SetObserver(o Observer) {
	defaultObserver = o
}

// nopObserver is used until SetObserver is called, which keeps tests free
// of nil checks.
type nopObserver struct{}

func (nopObserver) ObserveOperation(string, string, float64, error) {}
func (nopObserver) ObserveRetryAttempt(string, string)              {}
func (nopObserver) ObserveRetrySuccess(string, string)              {}
func (nopObserver) ObserveRetryFailure(string, string)              {}
func (nopObserver) ObserveRetryDuration(string, string, float64)    {}
func (nopObserver) ObserveStaleError(string, string)                {}
func (nopObserver) ObserveWatcherEvent(string)                      {}
func (nopObserver) ObserveWatcherError()                            {}

func observe() Observer {
	if defaultObserver == nil {
		return nopObserver{}
	}
	return defaultObserver
}
