package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"hotel-booking-engine/services"
)

type SettingsController struct {
	SettingsSvc *services.SettingsService
}

func NewSettingsController(svc *services.SettingsService) *SettingsController {
	return &SettingsController{SettingsSvc: svc}
}

// GET /api/settings/hotel
func (ctrl *SettingsController) GetHotelSettings(c *gin.Context) {
	hotel, err := ctrl.SettingsSvc.Get(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"hotel": hotel})
}

// PUT /api/settings/hotel. Fields missing from the body keep their saved value.
func (ctrl *SettingsController) UpdateHotelSettings(c *gin.Context) {
	hotel, err := ctrl.SettingsSvc.Get(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if err := c.ShouldBindJSON(&hotel); err != nil {
		badRequest(c, err)
		return
	}
	saved, err := ctrl.SettingsSvc.Update(c.Request.Context(), hotel)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"hotel": saved})
}
