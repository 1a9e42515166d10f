package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"hotel-booking-engine/middleware"
	"hotel-booking-engine/models"
	"hotel-booking-engine/services"
)

type RoomController struct {
	RoomSvc *services.RoomService
}

func NewRoomController(svc *services.RoomService) *RoomController {
	return &RoomController{RoomSvc: svc}
}

type createRoomPayload struct {
	RoomNumber  string           `json:"roomNumber" binding:"required"`
	Floor       string           `json:"floor"`
	RoomTypeID  uint             `json:"roomTypeId" binding:"required"`
	Status      string           `json:"status"`
	CustomPrice *decimal.Decimal `json:"customPrice,omitempty"`
}

// GET /api/rooms
func (ctrl *RoomController) GetRooms(c *gin.Context) {
	rooms, err := ctrl.RoomSvc.GetAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rooms)
}

// GET /api/rooms/:id
func (ctrl *RoomController) GetRoom(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	room, err := ctrl.RoomSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

// POST /api/rooms
func (ctrl *RoomController) CreateRoom(c *gin.Context) {
	var payload createRoomPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, err)
		return
	}
	room := models.Room{
		RoomNumber:  payload.RoomNumber,
		Floor:       payload.Floor,
		RoomTypeID:  payload.RoomTypeID,
		Status:      models.RoomStatus(strings.ToLower(strings.TrimSpace(payload.Status))),
		CustomPrice: payload.CustomPrice,
	}
	if err := ctrl.RoomSvc.Create(c.Request.Context(), &room); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, room)
}

type roomStatusPayload struct {
	Status string `json:"status" binding:"required"`
}

// PATCH /api/rooms/:id/status
func (ctrl *RoomController) UpdateRoomStatus(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	var payload roomStatusPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		badRequest(c, err)
		return
	}
	to := models.RoomStatus(strings.ToLower(strings.TrimSpace(payload.Status)))
	room, err := ctrl.RoomSvc.UpdateStatus(c.Request.Context(), id, to, middleware.ActorFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}
