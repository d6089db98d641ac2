package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gema-points-api/internal/authz"
	"github.com/noah-isme/gema-points-api/internal/middleware"
	"github.com/noah-isme/gema-points-api/internal/models"
	"github.com/noah-isme/gema-points-api/internal/service"
	appErrors "github.com/noah-isme/gema-points-api/pkg/errors"
	"github.com/noah-isme/gema-points-api/pkg/response"
)

// ItemHandler exposes the store catalog and redemption endpoints.
type ItemHandler struct {
	items       *service.ItemService
	redemptions *service.RedemptionService
	policy      *authz.Policy
}

// NewItemHandler constructs ItemHandler.
func NewItemHandler(items *service.ItemService, redemptions *service.RedemptionService, policy *authz.Policy) *ItemHandler {
	return &ItemHandler{items: items, redemptions: redemptions, policy: policy}
}

// List godoc
// @Summary List store items
// @Tags Store
// @Produce json
// @Param search query string false "Search by name"
// @Param active query bool false "Filter by active state"
// @Param in_stock query bool false "Only items with stock"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /store/items [get]
func (h *ItemHandler) List(c *gin.Context) {
	var filter models.StoreItemFilter
	filter.Search = strings.TrimSpace(c.Query("search"))
	filter.Active = parseBoolQuery(c, "active")
	filter.InStock = parseBoolQuery(c, "in_stock")
	filter.Page, filter.PageSize = parsePage(c)

	items, pagination, err := h.items.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get store item detail
// @Tags Store
// @Produce json
// @Param id path string true "Item ID"
// @Success 200 {object} response.Envelope
// @Router /store/items/{id} [get]
func (h *ItemHandler) Get(c *gin.Context) {
	item, err := h.items.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Create godoc
// @Summary Create store item
// @Tags Store
// @Accept json
// @Produce json
// @Param payload body service.CreateItemRequest true "Item payload"
// @Success 201 {object} response.Envelope
// @Router /store/items [post]
func (h *ItemHandler) Create(c *gin.Context) {
	var req service.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid item payload"))
		return
	}

	item, err := h.items.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Update godoc
// @Summary Update store item
// @Tags Store
// @Accept json
// @Produce json
// @Param id path string true "Item ID"
// @Param payload body service.UpdateItemRequest true "Item payload"
// @Success 200 {object} response.Envelope
// @Router /store/items/{id} [put]
func (h *ItemHandler) Update(c *gin.Context) {
	var req service.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid item payload"))
		return
	}

	item, err := h.items.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Redeem godoc
// @Summary Redeem a store item
// @Description Atomically checks stock and balance, decrements stock and records the redemption
// @Tags Store
// @Accept json
// @Produce json
// @Param payload body service.RedeemRequest true "Redeem payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /store/redemptions [post]
func (h *ItemHandler) Redeem(c *gin.Context) {
	var req service.RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid redeem payload"))
		return
	}

	// The target student is in the body, so row-level authorization happens
	// here rather than in the capability middleware.
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	allowed, err := h.policy.CanPerform(c.Request.Context(), identity, authz.OpRedeemItem, authz.Target{StudentID: req.StudentID})
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "authorization check failed"))
		return
	}
	if !allowed {
		response.Error(c, appErrors.ErrForbidden)
		return
	}

	req.ActorID = identity.UserID
	redemption, err := h.redemptions.Redeem(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, redemption)
}

// Redemptions godoc
// @Summary List redemptions
// @Tags Store
// @Produce json
// @Param student query string false "Filter by student"
// @Param item query string false "Filter by item"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /store/redemptions [get]
func (h *ItemHandler) Redemptions(c *gin.Context) {
	var filter models.RedemptionFilter
	filter.StudentID = c.Query("student")
	filter.ItemID = c.Query("item")
	filter.Page, filter.PageSize = parsePage(c)

	redemptions, pagination, err := h.redemptions.History(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, redemptions, pagination)
}
