package registry

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gestion-ambientes/ambientes-backend/pkg/enums"
	"github.com/gestion-ambientes/ambientes-backend/pkg/outbox/payloads"
)

// DecoderFunc turns an envelope's data into a typed payload.
type DecoderFunc func(payload json.RawMessage) (any, error)

type registryKey struct {
	eventType enums.OutboxEventType
	version   int
}

// DecoderRegistry stores versioned payload decoders for consumers.
type DecoderRegistry struct {
	mtx      sync.RWMutex
	registry map[registryKey]DecoderFunc
}

// NewDecoderRegistry builds an empty decoder registry.
func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{registry: make(map[registryKey]DecoderFunc)}
}

// NewCheckDecoderRegistry registers v1 decoders for every inventory check event.
func NewCheckDecoderRegistry() *DecoderRegistry {
	reg := NewDecoderRegistry()
	reg.Register(enums.EventCheckPendingInstructor, 1, decodeInto[payloads.CheckPendingInstructorEvent])
	reg.Register(enums.EventCheckEscalated, 1, decodeInto[payloads.CheckEscalatedEvent])
	reg.Register(enums.EventCheckReviewed, 1, decodeInto[payloads.CheckReviewedEvent])
	reg.Register(enums.EventCheckReminder, 1, decodeInto[payloads.CheckReminderEvent])
	return reg
}

func decodeInto[T any](payload json.RawMessage) (any, error) {
	var out T
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register stores a decoder for the given event type and version.
func (r *DecoderRegistry) Register(eventType enums.OutboxEventType, version int, decoder DecoderFunc) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.registry[registryKey{eventType: eventType, version: version}] = decoder
}

// Decode runs the decoder registered for the event type and version.
func (r *DecoderRegistry) Decode(eventType enums.OutboxEventType, version int, payload json.RawMessage) (any, error) {
	r.mtx.RLock()
	decoder, ok := r.registry[registryKey{eventType: eventType, version: version}]
	r.mtx.RUnlock()
	if !ok {
		return nil, fmt.Errorf("decoder not registered for %s@v%d", eventType, version)
	}
	return decoder(payload)
}
