// Package scheduler runs the periodic reminder jobs over asynq: the
// stale/new-lead sweep and the per-assignee stagnation check.
package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskReminderSweep = "reminders.sweep"

const TaskStagnationCheck = "reminders.stagnation_check"

// StagnationCheckPayload targets the stagnation scan at one assignee.
type StagnationCheckPayload struct {
	UserID string `json:"userId"`
}

func NewReminderSweepTask() *asynq.Task {
	return asynq.NewTask(TaskReminderSweep, nil)
}

func NewStagnationCheckTask(payload StagnationCheckPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStagnationCheck, data), nil
}

func ParseStagnationCheckPayload(task *asynq.Task) (StagnationCheckPayload, error) {
	var payload StagnationCheckPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return StagnationCheckPayload{}, err
	}
	return payload, nil
}
