package database

import "time"

// Run represents one harness invocation
type Run struct {
	ID          int64
	UUID        string
	Mode        string // 'benchmark', 'profile'
	App         string
	Framework   string
	Runtime     string
	Platform    string
	PID         int
	StartedAt   time.Time
	CompletedAt *time.Time
	Status      string // 'running', 'completed', 'failed'
	Notes       string
}

// CaseResult is the outcome of one test case within a run
type CaseResult struct {
	ID        int64
	RunID     int64
	TestCase  string
	Status    string // 'passed', 'errored', 'timed_out'
	WarmupMs  *float64
	StartedAt time.Time
	Error     string
}

// Measurement is one metric of one measured run
type Measurement struct {
	ID        int64
	RunID     int64
	ResultID  int64
	TestCase  string
	Metric    string
	RunIndex  int // 1-based, warmup excluded
	Value     float64
	CreatedAt time.Time
}

// HistoryFile records the size and CRC32 of a history file right after an append
type HistoryFile struct {
	ID         int64
	RunID      int64
	FilePath   string
	SizeBytes  int64
	CRC32      string
	RecordedAt time.Time
}

// MetricStats aggregates every stored measurement of one case and metric
type MetricStats struct {
	TestCase string
	Metric   string
	Count    int
	Mean     float64
	Min      float64
	Max      float64
}

// Result statuses
const (
	StatusPassed   = "passed"
	StatusErrored  = "errored"
	StatusTimedOut = "timed_out"
)

// Run statuses
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)
