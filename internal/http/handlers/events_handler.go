// README: Server-sent events endpoint streaming bus topics to dashboards.
package handlers

import (
	"io"

	"github.com/gin-gonic/gin"

	"foodfast/internal/bus"
	"foodfast/internal/types"
)

type EventsHandler struct {
	hub *bus.Hub
}

func NewEventsHandler(hub *bus.Hub) *EventsHandler {
	return &EventsHandler{hub: hub}
}

// topicFor picks the stream scope: a single order, a branch dashboard, or
// the global admin feed.
func topicFor(c *gin.Context) string {
	if id := c.Query("order_id"); id != "" {
		return bus.OrderTopic(types.ID(id))
	}
	if id := c.Query("branch_id"); id != "" {
		return bus.BranchTopic(types.ID(id))
	}
	return bus.TopicGlobal
}

func (h *EventsHandler) Stream(c *gin.Context) {
	sub := h.hub.Subscribe(topicFor(c))
	defer sub.Close()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	clientGone := c.Request.Context().Done()
	c.Stream(func(_ io.Writer) bool {
		select {
		case <-clientGone:
			return false
		case e, ok := <-sub.C:
			if !ok {
				return false
			}
			c.SSEvent(e.Kind, e.Payload)
			return true
		}
	})
}
