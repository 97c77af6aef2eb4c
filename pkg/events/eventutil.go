package events

import (
	"context"

	"go.uber.org/zap"

	"github.com/dealgrid/dealgrid/pkg/logger"
)

// EmitEventWithLogging emits an event and logs any emission failure. Returns
// whether the emit succeeded. Callers never propagate emission errors.
func EmitEventWithLogging(
	ctx context.Context,
	emitter Emitter,
	log *zap.Logger,
	eventType, entityID string,
	payload map[string]interface{},
	extraFields ...zap.Field,
) bool {
	if emitter == nil {
		return false
	}
	log = logger.FromContext(ctx, log)
	err := emitter.EmitEvent(ctx, eventType, entityID, payload)
	if err != nil {
		log.Warn("Failed to emit event",
			zap.String("event_type", eventType),
			zap.String("entity_id", entityID),
			zap.Error(err),
		)
		if len(extraFields) > 0 {
			log.Warn("Additional context for failed event emission", extraFields...)
		}
		return false
	}
	return true
}
