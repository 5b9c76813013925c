package makermatrix

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"mm_importer/core"
)

// GetTask fetches the current state of a backend task. A 404 yields
// ErrTaskNotFound (wrapped), which pollers suppress as transient noise:
// the backend may not have registered a freshly created task yet.
func (c *Client) GetTask(ctx context.Context, taskID string) (*core.TaskState, error) {
	if taskID == "" {
		return nil, fmt.Errorf("task id is required")
	}

	data, err := c.getJSON(ctx, pathTask+taskID, nil)
	if err != nil {
		return nil, err
	}

	var payload taskPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("decoding task %s: %w", taskID, err)
	}

	id := payload.ID
	if id == "" {
		id = taskID
	}

	return &core.TaskState{
		ID:                 id,
		Status:             core.TaskStatus(payload.Status),
		ProgressPercentage: payload.ProgressPercentage,
		CurrentStep:        payload.CurrentStep,
		ErrorMessage:       payload.ErrorMessage,
		ResultData:         payload.ResultData,
		PolledAt:           time.Now(),
	}, nil
}
