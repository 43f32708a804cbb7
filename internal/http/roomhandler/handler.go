package roomhandler

import (
	"net/http"

	"chatrelay/internal/chat"

	"github.com/gin-gonic/gin"
)

// RoomLister is the read-only part of the registry the handler needs.
type RoomLister interface {
	Rooms() []chat.RoomInfo
	Members(room string) ([]chat.Member, bool)
	SessionCount() int
}

type Handler struct {
	rooms RoomLister
}

func New(rooms RoomLister) *Handler { return &Handler{rooms: rooms} }

// Register adds the liveness endpoint.
func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/healthz", h.health)
}

// RegisterRooms adds the room listings. They reveal session ids and
// usernames, so callers mount them only when asked to.
func (h *Handler) RegisterRooms(r gin.IRoutes) {
	r.GET("/rooms", h.list)
	r.GET("/rooms/:name", h.info)
}

// @Summary		Liveness check
// @Tags			Ops
// @Success		200	{object}	HealthResponse
// @Router			/healthz [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Sessions: h.rooms.SessionCount()})
}

// @Summary		List rooms
// @Description	Snapshot of every live room and its members, sorted by name.
// @Tags			Rooms
// @Success		200	{array}	chat.RoomInfo
// @Router			/rooms [get]
func (h *Handler) list(c *gin.Context) {
	c.JSON(http.StatusOK, h.rooms.Rooms())
}

// @Summary		Get room
// @Tags			Rooms
// @Param			name	path		string	true	"Room name"	default(General)
// @Success		200		{object}	chat.RoomInfo
// @Failure		404		{object}	ErrorResponse
// @Router			/rooms/{name} [get]
func (h *Handler) info(c *gin.Context) {
	name := c.Param("name")
	members, ok := h.rooms.Members(name)
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "room not found"})
		return
	}
	c.JSON(http.StatusOK, chat.RoomInfo{Name: name, Members: members})
}
