package queue

import (
	"fmt"

	"github.com/goccy/go-json"

	"bmdb-api/internal/domain"
)

func encodeEvent(event domain.ActivityEvent) ([]byte, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return payload, nil
}

func decodeEvent(payload []byte) (domain.ActivityEvent, error) {
	var event domain.ActivityEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return domain.ActivityEvent{}, fmt.Errorf("decode event: %w", err)
	}
	if event.Kind == "" {
		return domain.ActivityEvent{}, fmt.Errorf("decode event: empty kind")
	}
	return event, nil
}
