package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/classvr/fleet-api/internal/models"
	"github.com/classvr/fleet-api/internal/service"
	appErrors "github.com/classvr/fleet-api/pkg/errors"
	"github.com/classvr/fleet-api/pkg/response"
)

// DeviceHandler manages device inventory endpoints.
type DeviceHandler struct {
	service *service.DeviceService
}

// NewDeviceHandler constructs handler.
func NewDeviceHandler(svc *service.DeviceService) *DeviceHandler {
	return &DeviceHandler{service: svc}
}

type installContentRequest struct {
	ContentUnitID string `json:"content_unit_id"`
}

// List godoc
// @Summary List devices
// @Tags Devices
// @Produce json
// @Param healthState query string false "Filter by health state"
// @Param disabled query bool false "Filter by disabled flag"
// @Param search query string false "Display number prefix"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /devices [get]
func (h *DeviceHandler) List(c *gin.Context) {
	var filter models.DeviceFilter
	filter.HealthState = c.Query("healthState")
	filter.Search = c.Query("search")
	if raw := c.Query("disabled"); raw != "" {
		if disabled, err := strconv.ParseBool(raw); err == nil {
			filter.Disabled = &disabled
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		filter.PageSize = limit
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	devices, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, devices, pagination)
}

// Get godoc
// @Summary Get device
// @Tags Devices
// @Produce json
// @Param id path string true "Device ID"
// @Success 200 {object} response.Envelope
// @Router /devices/{id} [get]
func (h *DeviceHandler) Get(c *gin.Context) {
	device, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, device, nil)
}

// Create godoc
// @Summary Register a device
// @Tags Devices
// @Accept json
// @Produce json
// @Param payload body service.CreateDeviceRequest true "Device payload"
// @Success 201 {object} response.Envelope
// @Router /devices [post]
func (h *DeviceHandler) Create(c *gin.Context) {
	var req service.CreateDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	device, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, device)
}

// UpdateHealth godoc
// @Summary Update device health state
// @Tags Devices
// @Accept json
// @Produce json
// @Param id path string true "Device ID"
// @Param payload body service.UpdateDeviceHealthRequest true "Health payload"
// @Success 200 {object} response.Envelope
// @Router /devices/{id}/health [patch]
func (h *DeviceHandler) UpdateHealth(c *gin.Context) {
	var req service.UpdateDeviceHealthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	device, err := h.service.UpdateHealth(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, device, nil)
}

// ListContent godoc
// @Summary List content installed on a device
// @Tags Devices
// @Produce json
// @Param id path string true "Device ID"
// @Success 200 {object} response.Envelope
// @Router /devices/{id}/content [get]
func (h *DeviceHandler) ListContent(c *gin.Context) {
	links, err := h.service.ListContent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, links, nil)
}

// InstallContent godoc
// @Summary Record a content unit as installed
// @Tags Devices
// @Accept json
// @Produce json
// @Param id path string true "Device ID"
// @Success 201 {object} response.Envelope
// @Router /devices/{id}/content [post]
func (h *DeviceHandler) InstallContent(c *gin.Context) {
	var req installContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	link, err := h.service.InstallContent(c.Request.Context(), c.Param("id"), req.ContentUnitID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, link)
}

// UninstallContent godoc
// @Summary Remove an installed content unit
// @Tags Devices
// @Param id path string true "Device ID"
// @Param contentId path string true "Content unit ID"
// @Success 204
// @Router /devices/{id}/content/{contentId} [delete]
func (h *DeviceHandler) UninstallContent(c *gin.Context) {
	if err := h.service.UninstallContent(c.Request.Context(), c.Param("id"), c.Param("contentId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
