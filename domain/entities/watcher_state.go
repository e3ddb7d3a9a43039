package entities

// WatcherState is the state of the change-detection watcher
type WatcherState string

const (
	WatcherIdle            WatcherState = "idle"
	WatcherScanning        WatcherState = "scanning"
	WatcherWaitingDebounce WatcherState = "waiting_debounce"
	WatcherSettling        WatcherState = "settling"
	WatcherDisposed        WatcherState = "disposed"
)

// ScanReason records what triggered a scan.
type ScanReason string

const (
	ScanInitial    ScanReason = "initial"
	ScanNavigation ScanReason = "navigation"
	ScanMutation   ScanReason = "mutation"
	ScanPeriodic   ScanReason = "periodic"
	ScanManual     ScanReason = "manual"
)
