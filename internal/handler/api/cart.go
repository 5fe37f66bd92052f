package api

import (
	"net/http"

	reqdto "storefront/internal/handler/dto/request"
	resdto "storefront/internal/handler/dto/response"
	"storefront/internal/handler/httperr"
	"storefront/internal/usecase/commands"
	"storefront/internal/usecase/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CartHandler struct {
	cmds commands.CartCommands
	q    queries.CartQueries
}

func NewCartHandler(cmds commands.CartCommands, q queries.CartQueries) *CartHandler {
	return &CartHandler{cmds: cmds, q: q}
}

// @Summary Get cart
// @Description Get the caller's cart priced against the live catalog
// @Tags cart
// @Produce json
// @Security BearerAuth
// @Success 200 {object} httperr.Response{data=resdto.CartResponse}
// @Router /cart [get]
func (h *CartHandler) Get(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	h.respond(c, actor.ID)
}

// @Summary Add cart item
// @Description Add a variant to the cart, merging with an existing line for the same SKU
// @Tags cart
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body reqdto.AddCartItemRequest true "Item"
// @Success 200 {object} httperr.Response{data=resdto.CartResponse}
// @Failure 400 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Router /cart/items [post]
func (h *CartHandler) AddItem(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req reqdto.AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request", nil)
		return
	}
	if err := h.cmds.AddItem(c.Request.Context(), actor.ID, req.ProductID, req.VariantSKU, req.Quantity); err != nil {
		abortWithUsecaseError(c, err)
		return
	}
	h.respond(c, actor.ID)
}

// @Summary Update cart item
// @Tags cart
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param sku path string true "Variant SKU"
// @Param request body reqdto.UpdateCartItemRequest true "Quantity"
// @Success 200 {object} httperr.Response{data=resdto.CartResponse}
// @Failure 400 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Router /cart/items/{sku} [patch]
func (h *CartHandler) UpdateItem(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req reqdto.UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request", nil)
		return
	}
	if err := h.cmds.UpdateItemQuantity(c.Request.Context(), actor.ID, c.Param("sku"), req.Quantity); err != nil {
		abortWithUsecaseError(c, err)
		return
	}
	h.respond(c, actor.ID)
}

// @Summary Remove cart item
// @Tags cart
// @Produce json
// @Security BearerAuth
// @Param sku path string true "Variant SKU"
// @Success 200 {object} httperr.Response{data=resdto.CartResponse}
// @Failure 404 {object} httperr.Response
// @Router /cart/items/{sku} [delete]
func (h *CartHandler) RemoveItem(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	if err := h.cmds.RemoveItem(c.Request.Context(), actor.ID, c.Param("sku")); err != nil {
		abortWithUsecaseError(c, err)
		return
	}
	h.respond(c, actor.ID)
}

// @Summary Clear cart
// @Tags cart
// @Produce json
// @Security BearerAuth
// @Success 200 {object} httperr.Response{data=resdto.CartResponse}
// @Router /cart [delete]
func (h *CartHandler) Clear(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	if err := h.cmds.Clear(c.Request.Context(), actor.ID); err != nil {
		abortWithUsecaseError(c, err)
		return
	}
	h.respond(c, actor.ID)
}

func (h *CartHandler) respond(c *gin.Context, userID uuid.UUID) {
	view, err := h.q.GetCart(c.Request.Context(), userID)
	if err != nil {
		abortWithUsecaseError(c, err)
		return
	}
	res, err := resdto.FromCartView(view)
	if err != nil {
		abortWithUsecaseError(c, err)
		return
	}
	httperr.Success(c, http.StatusOK, res)
}
