package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classvr/fleet-api/internal/service"
	appErrors "github.com/classvr/fleet-api/pkg/errors"
	"github.com/classvr/fleet-api/pkg/response"
)

// AssignmentHandler drives selection carts and program assignments.
type AssignmentHandler struct {
	service *service.AssignmentService
}

// NewAssignmentHandler constructs handler.
func NewAssignmentHandler(svc *service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{service: svc}
}

type openCartRequest struct {
	ProgramID string `json:"program_id"`
}

type rebindCartRequest struct {
	ProgramID string `json:"program_id"`
}

type toggleDeviceRequest struct {
	DeviceID string `json:"device_id"`
}

// cartView is the wire shape of a selection cart.
type cartView struct {
	ID        string   `json:"id"`
	ProgramID string   `json:"program_id"`
	DeviceIDs []string `json:"device_ids"`
	Size      int      `json:"size"`
}

func newCartView(cart *service.SelectionCart) cartView {
	ids := cart.IDs()
	return cartView{
		ID:        cart.ID,
		ProgramID: cart.ProgramID,
		DeviceIDs: ids,
		Size:      len(ids),
	}
}

// OpenCart godoc
// @Summary Open a selection cart for a program
// @Tags Assignments
// @Accept json
// @Produce json
// @Success 201 {object} response.Envelope
// @Router /selection-carts [post]
func (h *AssignmentHandler) OpenCart(c *gin.Context) {
	var req openCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	cart, err := h.service.OpenCart(c.Request.Context(), req.ProgramID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, newCartView(cart))
}

// GetCart godoc
// @Summary Inspect an open selection cart
// @Tags Assignments
// @Produce json
// @Param id path string true "Cart ID"
// @Success 200 {object} response.Envelope
// @Router /selection-carts/{id} [get]
func (h *AssignmentHandler) GetCart(c *gin.Context) {
	cart, err := h.service.GetCart(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, newCartView(cart), nil)
}

// Rebind godoc
// @Summary Switch the cart to another program
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Cart ID"
// @Success 200 {object} response.Envelope
// @Router /selection-carts/{id}/rebind [post]
func (h *AssignmentHandler) Rebind(c *gin.Context) {
	var req rebindCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	cart, err := h.service.Rebind(c.Request.Context(), c.Param("id"), req.ProgramID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, newCartView(cart), nil)
}

// Toggle godoc
// @Summary Toggle one device in the cart
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Cart ID"
// @Success 200 {object} response.Envelope
// @Router /selection-carts/{id}/toggle [post]
func (h *AssignmentHandler) Toggle(c *gin.Context) {
	var req toggleDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	cart, err := h.service.Toggle(c.Param("id"), req.DeviceID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, newCartView(cart), nil)
}

// SelectAll godoc
// @Summary Select every currently eligible device
// @Tags Assignments
// @Produce json
// @Param id path string true "Cart ID"
// @Success 200 {object} response.Envelope
// @Router /selection-carts/{id}/select-all [post]
func (h *AssignmentHandler) SelectAll(c *gin.Context) {
	cart, err := h.service.SelectAllEligible(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, newCartView(cart), nil)
}

// Clear godoc
// @Summary Empty the cart
// @Tags Assignments
// @Produce json
// @Param id path string true "Cart ID"
// @Success 200 {object} response.Envelope
// @Router /selection-carts/{id}/clear [post]
func (h *AssignmentHandler) Clear(c *gin.Context) {
	cart, err := h.service.ClearCart(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, newCartView(cart), nil)
}

// BulkImport godoc
// @Summary Import pasted device numbers into the cart
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Cart ID"
// @Param payload body service.BulkImportRequest true "Pasted text"
// @Success 200 {object} response.Envelope
// @Router /selection-carts/{id}/bulk-import [post]
func (h *AssignmentHandler) BulkImport(c *gin.Context) {
	var req service.BulkImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, cart, err := h.service.BulkImport(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"cart":              newCartView(cart),
		"matched_ids":       result.MatchedIDs,
		"unmatched_numbers": result.UnmatchedNumbers,
	}, nil)
}

// Commit godoc
// @Summary Commit the cart as a program assignment
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path string true "Cart ID"
// @Param payload body service.CommitAssignmentRequest true "Commit payload"
// @Success 201 {object} response.Envelope
// @Router /selection-carts/{id}/commit [post]
func (h *AssignmentHandler) Commit(c *gin.Context) {
	var req service.CommitAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	assignment, err := h.service.Commit(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assignment)
}

// Get godoc
// @Summary Get a committed assignment
// @Tags Assignments
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id} [get]
func (h *AssignmentHandler) Get(c *gin.Context) {
	assignment, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignment, nil)
}

// ListByProgram godoc
// @Summary List assignments committed for a program
// @Tags Assignments
// @Produce json
// @Param id path string true "Program ID"
// @Success 200 {object} response.Envelope
// @Router /programs/{id}/assignments [get]
func (h *AssignmentHandler) ListByProgram(c *gin.Context) {
	assignments, err := h.service.ListByProgram(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignments, nil)
}
