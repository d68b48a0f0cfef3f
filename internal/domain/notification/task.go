package notification

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// TaskTypeFanout is the asynq task type for delivering a notification
// to its recipients.
const TaskTypeFanout = "notification:fanout"

// FanoutPayload is the serialized payload for a fan-out task. It
// carries the nid rather than the record: the worker re-reads the
// record at processing time so that a higher-importance overwrite
// landing inside the debounce window wins before any recipient index
// is touched.
type FanoutPayload struct {
	NID    string   `json:"nid"`
	UIDs   []UserID `json:"uids,omitempty"`
	Groups []string `json:"groups,omitempty"`
}

// NewFanoutTask creates a new asynq task for delivering a notification.
func NewFanoutTask(nid string, uids []UserID, groups []string) (*asynq.Task, error) {
	payload, err := json.Marshal(FanoutPayload{NID: nid, UIDs: uids, Groups: groups})
	if err != nil {
		return nil, fmt.Errorf("marshaling task payload: %w", err)
	}
	return asynq.NewTask(TaskTypeFanout, payload), nil
}

// ParseFanoutPayload deserializes the task payload.
func ParseFanoutPayload(data []byte) (*FanoutPayload, error) {
	var p FanoutPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("unmarshaling task payload: %w", err)
	}
	return &p, nil
}
