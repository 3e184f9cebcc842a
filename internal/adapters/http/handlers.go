package http

import (
	"encoding/json"
	nethttp "net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/dkeye/Sketch/internal/app/orch"
	"github.com/dkeye/Sketch/internal/core"
	"github.com/dkeye/Sketch/internal/domain"
	"github.com/dkeye/Sketch/internal/history"
)

type handlers struct {
	orch       *orch.Orchestrator
	store      history.Store
	fetchLimit int
}

func healthz(c *gin.Context) {
	c.JSON(nethttp.StatusOK, gin.H{"status": "ok"})
}

func (h *handlers) listRooms(c *gin.Context) {
	c.JSON(nethttp.StatusOK, gin.H{"rooms": h.orch.Rooms.List()})
}

func (h *handlers) listMembers(c *gin.Context) {
	roomID := domain.RoomID(c.Param("roomId"))
	members := []core.MemberDTO{}
	if room, ok := h.orch.Rooms.Get(roomID); ok {
		members = room.MembersSnapshot()
	}
	c.JSON(nethttp.StatusOK, gin.H{"roomId": roomID, "members": members})
}

type shapeDTO struct {
	UserID domain.UserID   `json:"userId"`
	Shape  json.RawMessage `json:"shape"`
	Data   json.RawMessage `json:"data,omitempty"`
	At     int64           `json:"at"`
}

func (h *handlers) listShapes(c *gin.Context) {
	if h.store == nil {
		c.JSON(nethttp.StatusServiceUnavailable, gin.H{"error": "history disabled"})
		return
	}
	roomID := domain.RoomID(c.Param("roomId"))

	limit := h.fetchLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(nethttp.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, h.fetchLimit)
	}

	records, err := h.store.Fetch(c.Request.Context(), roomID, limit)
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Str("room", string(roomID)).Msg("fetch history")
		c.JSON(nethttp.StatusInternalServerError, gin.H{"error": "history unavailable"})
		return
	}
	shapes := lo.Map(records, func(rec history.Record, _ int) shapeDTO {
		return shapeDTO{UserID: rec.UserID, Shape: rec.Shape, Data: rec.Data, At: rec.At.UnixMilli()}
	})
	c.JSON(nethttp.StatusOK, gin.H{"roomId": roomID, "shapes": shapes})
}
