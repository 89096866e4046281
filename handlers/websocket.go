package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"cngflow/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// LiveWebSocket relays queue_updated events to the client. Messages only say
// that a station changed; clients re-fetch what they display.
func LiveWebSocket(cache *services.CacheService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cache.Available() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "live feed unavailable"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("websocket upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(c.Request.Context())
		defer cancel()

		// Read pump: detect client disconnect
		go func() {
			defer cancel()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		pubsub := cache.Subscribe(ctx, services.QueueUpdatesChannel)
		defer pubsub.Close()

		ch := pubsub.Channel()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				err := conn.WriteJSON(gin.H{
					"type": services.EventQueueUpdated,
					"data": json.RawMessage(msg.Payload),
				})
				if err != nil {
					log.Printf("ws write error: %v", err)
					return
				}
			}
		}
	}
}
