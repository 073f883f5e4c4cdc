package request

import (
	"time"

	"github.com/google/uuid"
)

// LogStatus is the outcome of one (collection, action) execution step.
type LogStatus string

const (
	LogPending      LogStatus = "pending"
	LogInProcessing LogStatus = "in_processing"
	LogComplete     LogStatus = "complete"
	LogError        LogStatus = "error"
)

// ExecutionLog is an append-only record of one step of a privacy request
// against one collection.
type ExecutionLog struct {
	ID         string
	RequestID  string
	Dataset    string
	Collection string
	Action     string // "access" or "erasure"
	Status     LogStatus
	Message    string
	Timestamp  time.Time
}

// NewExecutionLog stamps a log entry for the given step.
func NewExecutionLog(requestID, dataset, collection, action string, status LogStatus, message string) *ExecutionLog {
	return &ExecutionLog{
		ID:         uuid.NewString(),
		RequestID:  requestID,
		Dataset:    dataset,
		Collection: collection,
		Action:     action,
		Status:     status,
		Message:    message,
		Timestamp:  time.Now().UTC(),
	}
}
