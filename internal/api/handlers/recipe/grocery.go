package recipe

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pantry-recipes/internal/api/middleware"
	recipeService "pantry-recipes/internal/core/recipe"
)

// HandleListGroceries 列出食材庫存
func (h *Handler) HandleListGroceries(c *gin.Context) {
	groceries, err := h.groceries.ListGroceries(c.Request.Context(), middleware.OwnerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, groceries)
}

// HandleCreateGrocery 建立食材庫存
func (h *Handler) HandleCreateGrocery(c *gin.Context) {
	var req recipeService.GroceryInput
	if !bindJSON(c, &req) {
		return
	}

	g, err := h.groceries.CreateGrocery(c.Request.Context(), middleware.OwnerID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, g)
}

// HandleUpdateGrocery 部分更新食材庫存
func (h *Handler) HandleUpdateGrocery(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req recipeService.GroceryUpdate
	if !bindJSON(c, &req) {
		return
	}

	g, err := h.groceries.UpdateGrocery(c.Request.Context(), middleware.OwnerID(c), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

// HandleDeleteGrocery 刪除食材庫存
func (h *Handler) HandleDeleteGrocery(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.groceries.DeleteGrocery(c.Request.Context(), middleware.OwnerID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// HandleAddToPantry 購買後加入庫存，新建時回 201，累加時回 200
func (h *Handler) HandleAddToPantry(c *gin.Context) {
	var req recipeService.PantryInput
	if !bindJSON(c, &req) {
		return
	}

	g, created, err := h.groceries.AddToPantry(c.Request.Context(), middleware.OwnerID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, g)
}
