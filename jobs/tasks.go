package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerIntegrity checks that the trial balance and balance sheet balance.
	TaskLedgerIntegrity = "ledger:integrity"
	// TaskReportsWarmup pre-builds report packs into the cache.
	TaskReportsWarmup = "reports:warmup"
)

// IntegrityPayload scopes an integrity check. An empty AsOf checks the ledger
// as of the time the job runs.
type IntegrityPayload struct {
	AsOf string `json:"as_of,omitempty"`
}

// WarmupPayload lists the period tokens and reports to pre-build. Empty lists
// fall back to the worker defaults.
type WarmupPayload struct {
	Periods []string `json:"periods,omitempty"`
	Reports []string `json:"reports,omitempty"`
}

// NewIntegrityTask constructs an Asynq task for the ledger integrity check.
func NewIntegrityTask(asOf string) (*asynq.Task, error) {
	data, err := json.Marshal(IntegrityPayload{AsOf: asOf})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerIntegrity, data), nil
}

// NewWarmupTask constructs an Asynq task for report cache warmup.
func NewWarmupTask(payload WarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportsWarmup, data), nil
}
