package ws

import (
	"context"
	"encoding/json"
	"log"

	"github.com/khuttun/labyrinth/internal/config"
	"github.com/redis/go-redis/v9"
)

var rdbClient *redis.Client
var wsConfig *config.Config

func SetRedisClient(r *redis.Client, cfg *config.Config) {
	rdbClient = r
	wsConfig = cfg
}

// wsBroadcastHz returns the configured broadcast rate, with a sane default
// when the ws package is used before SetRedisClient (tests, no-Redis mode).
func wsBroadcastHz() int {
	if wsConfig != nil && wsConfig.BroadcastHz > 0 {
		return wsConfig.BroadcastHz
	}
	return 30
}

// StartRunEventSubscriber subscribes to the run_events channel and forwards
// incoming events to the affected run's room. The run manager publishes here
// when it changes a run outside the websocket path (expiry, admin removal).
func StartRunEventSubscriber(ctx context.Context) {
	if rdbClient == nil {
		log.Println("[WS] Redis client not set; run event subscriber not started")
		return
	}

	pubsub := rdbClient.Subscribe(ctx, "run_events")
	ch := pubsub.Channel()
	go func() {
		log.Println("[WS] run_events subscriber started")
		for msg := range ch {
			var payload map[string]interface{}
			if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
				log.Printf("[WS] invalid run event payload: %v", err)
				continue
			}

			typeStr, _ := payload["type"].(string)
			runID, _ := payload["run_id"].(string)
			if runID == "" {
				continue
			}

			switch typeStr {
			case "run_expired":
				RunHub.mu.RLock()
				if room, exists := RunHub.runRooms[runID]; !exists {
					log.Printf("[WS] no room for run %s; expiry will not be broadcast", runID)
				} else {
					log.Printf("[WS] broadcasting expiry to run %s (room_size=%d)", runID, len(room))
				}
				RunHub.mu.RUnlock()
				RunHub.BroadcastToRun(runID, map[string]interface{}{
					"type":    "run_over",
					"status":  payload["status"],
					"message": "Run expired due to inactivity",
				})

			default:
				log.Printf("[WS] unknown run event type: %s", typeStr)
			}
		}
	}()
}
