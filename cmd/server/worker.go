package main

import (
	"context"
	"time"

	"github.com/rl1809/smart-pantry/internal/core/domain"
	"github.com/rl1809/smart-pantry/internal/logger"
	"github.com/rl1809/smart-pantry/internal/metrics"
	"github.com/rl1809/smart-pantry/internal/port"
)

const (
	recordAttempts = 3
	recordTimeout  = 5 * time.Second
)

// workerLoop persists pantry events until the queue is closed. A failed
// write is retried with a growing delay and then dropped with an error log.
func workerLoop(id int, queue <-chan domain.PantryEvent, db port.PantryRepository, log logger.Logger, retryDelay time.Duration) {
	log = log.WithFields(map[string]interface{}{"worker": id})

	for event := range queue {
		metrics.EventQueueDepth.Set(float64(len(queue)))

		var err error
		for attempt := 1; attempt <= recordAttempts; attempt++ {
			ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
			err = db.RecordEvent(ctx, event)
			cancel()
			if err == nil {
				break
			}
			if attempt < recordAttempts {
				time.Sleep(retryDelay * time.Duration(attempt))
			}
		}

		fields := map[string]interface{}{
			"event_id": event.ID,
			"kind":     event.Kind,
			"item_id":  event.ItemID,
		}
		if err != nil {
			log.WithError(err).Error("failed to record event", fields)
			continue
		}
		log.Debug("recorded event", fields)
	}
}
