package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	domainwax "github.com/yungbote/waxfeed-backend/internal/domain/wax"
	"github.com/yungbote/waxfeed-backend/internal/http/response"
	"github.com/yungbote/waxfeed-backend/internal/platform/apierr"
	"github.com/yungbote/waxfeed-backend/internal/services"
)

type WaxHandler struct {
	wax services.WaxService
}

func NewWaxHandler(wax services.WaxService) *WaxHandler {
	return &WaxHandler{wax: wax}
}

// GET /wax/balance
func (h *WaxHandler) Balance(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	view, err := h.wax.Balance(c.Request.Context(), userID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// GET /wax/transactions?before=<RFC3339>&limit=
func (h *WaxHandler) Transactions(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", 0)
	if !ok {
		return
	}
	var before time.Time
	if raw := strings.TrimSpace(c.Query("before")); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_before", err)
			return
		}
		before = t
	}
	rows, err := h.wax.Transactions(c.Request.Context(), userID, before, limit)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": rows})
}

// POST /wax/claim-daily
func (h *WaxHandler) ClaimDaily(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	res, err := h.wax.ClaimDaily(c.Request.Context(), userID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// POST /wax/spend
// An insufficient balance is a 200 with success=false.
// body: { "amount": 10, "type": "boost" | "store_item" | "tip", "reason": "...", "metadata": {...} }
func (h *WaxHandler) Spend(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req struct {
		Amount   int64          `json:"amount"`
		Type     string         `json:"type"`
		Reason   string         `json:"reason"`
		Metadata map[string]any `json:"metadata"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	txType := domainwax.TransactionType(strings.ToLower(strings.TrimSpace(req.Type)))
	if !txType.IsDebit() {
		response.RespondError(c, http.StatusBadRequest, "invalid_type", fmt.Errorf("unknown spend type %q", req.Type))
		return
	}
	res, err := h.wax.Spend(c.Request.Context(), services.SpendWaxInput{
		UserID:   userID,
		Amount:   req.Amount,
		Type:     txType,
		Reason:   strings.TrimSpace(req.Reason),
		Metadata: req.Metadata,
	})
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// POST /wax/reconcile
func (h *WaxHandler) Reconcile(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	res, err := h.wax.Reconcile(c.Request.Context(), userID)
	if err != nil {
		ae := apierr.As(err)
		if ae.Status == http.StatusConflict {
			c.JSON(http.StatusConflict, gin.H{
				"error":     response.APIError{Message: ae.Error(), Code: ae.Code},
				"reconcile": res,
			})
			return
		}
		response.RespondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
