package live

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/usv-planning/matchboard/internal/matches"
)

const roomLayout = "2006-01-02"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the board is a public page served from other origins
	CheckOrigin: func(*http.Request) bool { return true },
}

// WeekSource builds week views; *matches.Repository implements it.
type WeekSource interface {
	Week(ctx context.Context, ref time.Time) matches.WeeklyView
	Now() time.Time
	Location() *time.Location
}

// RoomOf is the room for the week containing t.
func RoomOf(t time.Time) string { return matches.MondayOf(t).Format(roomLayout) }

func weekMessage(room string, v matches.WeeklyView) Message {
	return Message{Type: "week", Room: room, Payload: v}
}

// ServeWeek upgrades GET /ws/week?date=YYYY-MM-DD and sends the current view
// of that week (default: this week) right away.
func (h *Hub) ServeWeek(src WeekSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		ref := src.Now()
		if q := c.Query("date"); q != "" {
			t, err := time.ParseInLocation(roomLayout, q, src.Location())
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
				return
			}
			ref = t
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already answered the client
			h.log.Debug("websocket upgrade", zap.Error(err))
			return
		}
		room := RoomOf(ref)
		client := &Client{hub: h, conn: conn, send: make(chan []byte, sendBuffer), room: room}
		if !h.join(client) {
			conn.Close()
			return
		}

		go client.writePump()
		go client.readPump()

		h.sendView(client, room, src.Week(c.Request.Context(), ref))
	}
}

func (h *Hub) sendView(c *Client, room string, v matches.WeeklyView) {
	b, err := json.Marshal(weekMessage(room, v))
	if err != nil {
		h.log.Error("marshal week", zap.String("room", room), zap.Error(err))
		return
	}
	h.deliver(c, b)
}

// Refresh rebuilds the view of every open room and broadcasts it.
func (h *Hub) Refresh(ctx context.Context, src WeekSource) {
	for _, room := range h.Rooms() {
		ref, err := time.ParseInLocation(roomLayout, room, src.Location())
		if err != nil {
			continue
		}
		h.BroadcastToRoom(room, weekMessage(room, src.Week(ctx, ref)))
	}
}
