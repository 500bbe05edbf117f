package handler

import (
	"io"
	"strconv"

	ginsse "github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"github.com/taskMaster/backend/internal/middleware"
	"github.com/taskMaster/backend/internal/sse"
)

type NotificationHandler struct {
	hub *sse.Hub
}

func NewNotificationHandler(hub *sse.Hub) *NotificationHandler {
	return &NotificationHandler{hub: hub}
}

// GET /notifications/stream
// Server-sent event stream of assignment/invitation events for the current
// user. Reconnecting clients pass Last-Event-ID to replay missed events.
func (h *NotificationHandler) Stream(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	lastID := sse.ParseLastEventID(c.GetHeader("Last-Event-ID"))
	if lastID == 0 {
		lastID = sse.ParseLastEventID(c.Query("last_event_id"))
	}
	if lastID > 0 {
		events, err := h.hub.ReplayFrom(userID, lastID)
		if err == nil {
			for _, ev := range events {
				writeEvent(c, ev)
			}
			c.Writer.Flush()
		}
	}

	ch, unsub := h.hub.Subscribe(userID)
	defer unsub()

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			writeEvent(c, ev)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// writeEvent renders one event with its id, so the browser's EventSource
// tracks Last-Event-ID across reconnects.
func writeEvent(c *gin.Context, ev sse.Event) {
	c.Render(-1, ginsse.Event{
		Id:    strconv.FormatInt(ev.ID, 10),
		Event: ev.Type,
		Data:  ev.Data,
	})
}
