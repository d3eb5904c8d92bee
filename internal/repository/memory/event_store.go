package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/kaushiksanil12/ECOMBackend/internal/entity"
	"github.com/kaushiksanil12/ECOMBackend/internal/repository"
)

type eventStore struct {
	s *Store
}

func (e *eventStore) SaveEvents(_ context.Context, streamID string, streamType string, expectedVersion int, events []entity.Event) error {
	if len(events) == 0 {
		return nil
	}
	return e.s.view(func(st *state) error {
		stream := st.events[streamID]
		current := len(stream)
		if expectedVersion != repository.AnyVersion && current != expectedVersion {
			return fmt.Errorf("%w: stream %s is at version %d, expected %d", entity.ErrConflict, streamID, current, expectedVersion)
		}
		now := time.Now().UTC()
		for i, event := range events {
			payload, err := json.Marshal(event)
			if err != nil {
				return fmt.Errorf("failed to marshal event %s: %w", event.EventType(), err)
			}
			stream = append(stream, entity.EventStoreRecord{
				ID:         uuid.NewString(),
				StreamID:   streamID,
				StreamType: streamType,
				Version:    current + i + 1,
				EventType:  event.EventType(),
				Payload:    payload,
				CreatedAt:  now,
			})
		}
		st.events[streamID] = stream
		return nil
	})
}

func (e *eventStore) LoadEvents(_ context.Context, streamID string) ([]entity.EventStoreRecord, error) {
	var out []entity.EventStoreRecord
	err := e.s.view(func(st *state) error {
		out = slices.Clone(st.events[streamID])
		return nil
	})
	return out, err
}
