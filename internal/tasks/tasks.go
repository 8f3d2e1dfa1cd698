// Package tasks defines the asynq task types shared by the API (producer)
// and the worker (consumer).
package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// TypeSettleOrder settles the commission ledger for a fulfilled order.
const TypeSettleOrder = "order:settle"

// SettleOrderPayload is the task body for TypeSettleOrder.
type SettleOrderPayload struct {
	OrderID uuid.UUID `json:"orderId"`
}

// NewSettleOrderTask builds the settlement task. TaskID is keyed on the
// order so duplicate enqueues collapse; the handler is idempotent anyway.
func NewSettleOrderTask(orderID uuid.UUID, maxRetry int) (*asynq.Task, []asynq.Option) {
	payload, _ := json.Marshal(SettleOrderPayload{OrderID: orderID})
	opts := []asynq.Option{
		asynq.TaskID("settle:" + orderID.String()),
		asynq.MaxRetry(maxRetry),
		asynq.Queue("settlement"),
	}
	return asynq.NewTask(TypeSettleOrder, payload), opts
}

// ParseSettleOrderPayload decodes and validates the task body.
func ParseSettleOrderPayload(t *asynq.Task) (SettleOrderPayload, error) {
	var p SettleOrderPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, fmt.Errorf("decode settle payload: %w", err)
	}
	if p.OrderID == uuid.Nil {
		return p, fmt.Errorf("settle payload missing order id")
	}
	return p, nil
}
