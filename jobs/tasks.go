package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskQuoteExpirySweep moves overdue sent and viewed quotes to expired.
	TaskQuoteExpirySweep = "crm:quotes:expire"
)

// QuoteExpiryPayload pins the sweep to a point in time. A nil AsOf means the
// time the task runs.
type QuoteExpiryPayload struct {
	AsOf *time.Time `json:"as_of,omitempty"`
}

// NewQuoteExpiryTask constructs an Asynq task.
func NewQuoteExpiryTask(payload QuoteExpiryPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskQuoteExpirySweep, data, asynq.MaxRetry(3), asynq.Timeout(5*time.Minute)), nil
}
