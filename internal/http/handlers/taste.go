package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/waxfeed-backend/internal/http/response"
	"github.com/yungbote/waxfeed-backend/internal/services"
)

type TasteHandler struct {
	taste services.TasteService
}

func NewTasteHandler(taste services.TasteService) *TasteHandler {
	return &TasteHandler{taste: taste}
}

// POST /taste/recompute
func (h *TasteHandler) Recompute(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	res, err := h.taste.ComputeProfile(c.Request.Context(), userID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// GET /taste/profile
func (h *TasteHandler) GetProfile(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	p, err := h.taste.GetProfile(c.Request.Context(), userID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"profile": p})
}

// GET /taste/history?limit=
func (h *TasteHandler) History(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}
	hist, err := h.taste.History(c.Request.Context(), userID, limit)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": hist})
}

// GET /taste/matches?mode=twins|opposites|guides|all&limit=
func (h *TasteHandler) Matches(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}
	mode := c.Query("mode")
	matches, err := h.taste.Match(c.Request.Context(), userID, mode, limit)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": matches})
}
