// Package kafka provides the message queue adapters for fit run dispatch.
package kafka

import (
	"encoding/json"
	"time"

	"github.com/turtacn/forgeff/pkg/errors"
)

// TopicFitRunExecute carries run ids from the API to the fitting workers.
const TopicFitRunExecute = "fit.run.execute"

// RunMessage is the wire envelope for one queued fit run.
type RunMessage struct {
	RunID       string    `json:"run_id"`
	RequestedAt time.Time `json:"requested_at"`
}

// Encode renders the message as JSON.
func (m RunMessage) Encode() ([]byte, error) {
	if m.RunID == "" {
		return nil, errors.Newf(errors.CodeQueueError, "run message without run id")
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeSerialization, "encode run message")
	}
	return data, nil
}

// DecodeRunMessage parses and validates a wire envelope.
func DecodeRunMessage(data []byte) (RunMessage, error) {
	var m RunMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return m, errors.Wrap(err, errors.CodeSerialization, "decode run message")
	}
	if m.RunID == "" {
		return m, errors.Newf(errors.CodeQueueError, "run message without run id")
	}
	return m, nil
}
