package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/waxfeed-backend/internal/http/response"
	"github.com/yungbote/waxfeed-backend/internal/services"
)

type RatingHandler struct {
	ratings services.RatingService
}

func NewRatingHandler(ratings services.RatingService) *RatingHandler {
	return &RatingHandler{ratings: ratings}
}

// PUT /albums/:id/rating
// body: { "score": 4.5, "text": "..." }
func (h *RatingHandler) Upsert(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	albumID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var req struct {
		Score *float64 `json:"score"`
		Text  string   `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if req.Score == nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_score", nil)
		return
	}
	res, err := h.ratings.Upsert(c.Request.Context(), services.UpsertRatingInput{
		UserID:  userID,
		AlbumID: albumID,
		Score:   *req.Score,
		Text:    req.Text,
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// DELETE /albums/:id/rating
func (h *RatingHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	albumID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	res, err := h.ratings.Delete(c.Request.Context(), userID, albumID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
