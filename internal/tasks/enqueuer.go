package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Enqueuer produces settlement tasks from the API process.
type Enqueuer struct {
	Client   *asynq.Client
	MaxRetry int
}

// EnqueueSettle queues the order for settlement. Duplicate enqueues for the
// same order collapse on the task id.
func (e *Enqueuer) EnqueueSettle(ctx context.Context, orderID uuid.UUID) error {
	if e == nil || e.Client == nil {
		return fmt.Errorf("settlement enqueuer not configured")
	}
	task, opts := NewSettleOrderTask(orderID, e.MaxRetry)
	_, err := e.Client.EnqueueContext(ctx, task, opts...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("enqueue settle task: %w", err)
	}
	return nil
}
