package status

import (
	"sync"
	"time"
)

// JobStatus is the latest known state of a print job.
type JobStatus struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	Model     string    `json:"model,omitempty"`
	MediaType string    `json:"media_type,omitempty"`
	Target    string    `json:"target,omitempty"`
	Copies    int       `json:"copies,omitempty"`
	Code      string    `json:"code,omitempty"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// JobStatusCallback is called whenever a job changes state.
type JobStatusCallback func(JobStatus)

// PrinterStatusChangeCallback is called when printer reachability changes
type PrinterStatusChangeCallback func(reachable bool)

var (
	mu               sync.RWMutex
	lastJob          *JobStatus
	jobCallbacks     []JobStatusCallback
	printerReachable bool
	printerCallbacks []PrinterStatusChangeCallback
)

// SetJobStatus records s as the latest job state and notifies callbacks.
func SetJobStatus(s JobStatus) {
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now()
	}

	mu.Lock()
	copied := s
	lastJob = &copied
	callbacks := make([]JobStatusCallback, len(jobCallbacks))
	copy(callbacks, jobCallbacks)
	mu.Unlock()

	// コールバックはロック外で実行
	for _, callback := range callbacks {
		if callback != nil {
			callback(s)
		}
	}
}

// LastJob returns the most recent job state, if any.
func LastJob() (JobStatus, bool) {
	mu.RLock()
	defer mu.RUnlock()
	if lastJob == nil {
		return JobStatus{}, false
	}
	return *lastJob, true
}

// RegisterJobStatusCallback registers a callback for job status changes
func RegisterJobStatusCallback(callback JobStatusCallback) {
	mu.Lock()
	defer mu.Unlock()
	jobCallbacks = append(jobCallbacks, callback)
}

// SetPrinterReachable sets the result of the last printer probe
func SetPrinterReachable(reachable bool) {
	mu.Lock()
	previous := printerReachable
	printerReachable = reachable
	callbacks := make([]PrinterStatusChangeCallback, len(printerCallbacks))
	copy(callbacks, printerCallbacks)
	mu.Unlock()

	if previous == reachable {
		return
	}
	for _, callback := range callbacks {
		if callback != nil {
			callback(reachable)
		}
	}
}

// IsPrinterReachable returns the result of the last printer probe
func IsPrinterReachable() bool {
	mu.RLock()
	defer mu.RUnlock()
	return printerReachable
}

// RegisterPrinterStatusChangeCallback registers a callback for printer reachability changes
func RegisterPrinterStatusChangeCallback(callback PrinterStatusChangeCallback) {
	mu.Lock()
	defer mu.Unlock()
	printerCallbacks = append(printerCallbacks, callback)
}

// Reset clears all state and callbacks.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	lastJob = nil
	jobCallbacks = nil
	printerReachable = false
	printerCallbacks = nil
}
