package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classvr/fleet-api/internal/service"
	"github.com/classvr/fleet-api/pkg/response"
)

// ContentHandler exposes the read-only content unit catalog.
type ContentHandler struct {
	service *service.ContentService
}

// NewContentHandler constructs handler.
func NewContentHandler(svc *service.ContentService) *ContentHandler {
	return &ContentHandler{service: svc}
}

// List godoc
// @Summary List content units
// @Tags Content
// @Produce json
// @Param search query string false "Title search"
// @Success 200 {object} response.Envelope
// @Router /content-units [get]
func (h *ContentHandler) List(c *gin.Context) {
	units, err := h.service.List(c.Request.Context(), c.Query("search"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, units, nil)
}

// Get godoc
// @Summary Get content unit
// @Tags Content
// @Produce json
// @Param id path string true "Content unit ID"
// @Success 200 {object} response.Envelope
// @Router /content-units/{id} [get]
func (h *ContentHandler) Get(c *gin.Context) {
	unit, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, unit, nil)
}
