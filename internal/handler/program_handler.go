package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/classvr/fleet-api/internal/models"
	"github.com/classvr/fleet-api/internal/service"
	"github.com/classvr/fleet-api/pkg/response"
)

// ProgramHandler exposes content programs and eligibility resolution.
type ProgramHandler struct {
	service     *service.ProgramService
	eligibility *service.EligibilityService
}

// NewProgramHandler constructs handler.
func NewProgramHandler(svc *service.ProgramService, eligibility *service.EligibilityService) *ProgramHandler {
	return &ProgramHandler{service: svc, eligibility: eligibility}
}

// List godoc
// @Summary List content programs
// @Tags Programs
// @Produce json
// @Param search query string false "Title search"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /programs [get]
func (h *ProgramHandler) List(c *gin.Context) {
	var filter models.ProgramFilter
	filter.Search = c.Query("search")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	programs, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, programs, pagination)
}

// Get godoc
// @Summary Get program with content references
// @Tags Programs
// @Produce json
// @Param id path string true "Program ID"
// @Success 200 {object} response.Envelope
// @Router /programs/{id} [get]
func (h *ProgramHandler) Get(c *gin.Context) {
	program, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, program, nil)
}

// RequiredContent godoc
// @Summary List the content units a program requires
// @Tags Programs
// @Produce json
// @Param id path string true "Program ID"
// @Success 200 {object} response.Envelope
// @Router /programs/{id}/required-content [get]
func (h *ProgramHandler) RequiredContent(c *gin.Context) {
	units, err := h.service.RequiredContent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, units, nil)
}

// EligibleDevices godoc
// @Summary Resolve the devices eligible to run a program
// @Tags Programs
// @Produce json
// @Param id path string true "Program ID"
// @Param refresh query bool false "Bypass caches and recompute"
// @Success 200 {object} response.Envelope
// @Router /programs/{id}/eligible-devices [get]
func (h *ProgramHandler) EligibleDevices(c *gin.Context) {
	refresh, _ := strconv.ParseBool(c.DefaultQuery("refresh", "false"))
	devices, err := h.eligibility.Resolve(c.Request.Context(), c.Param("id"), refresh)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, devices, nil, map[string]interface{}{"count": len(devices)})
}
