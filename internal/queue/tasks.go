package queue

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	TypePrecheckProcess = "precheck:process"
)

type PrecheckProcessPayload struct {
	BatchID string `json:"batch_id"`
}

// ParsePrecheckPayload decodes a task payload and requires a batch id.
func ParsePrecheckPayload(data []byte) (PrecheckProcessPayload, error) {
	var p PrecheckProcessPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("unmarshal payload: %w", err)
	}
	if p.BatchID == "" {
		return p, errors.New("payload has no batch_id")
	}
	return p, nil
}
