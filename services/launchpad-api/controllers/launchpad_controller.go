package controllers

import (
	"net/http"
	"strconv"

	wire "github.com/AmentiAI/solmaker-sub001/launchpad/models"
	"github.com/AmentiAI/solmaker-sub001/services/launchpad-api/services"
	"github.com/gin-gonic/gin"
)

// LaunchpadController handles HTTP requests for a collection's mint.
type LaunchpadController struct {
	launchpadService services.LaunchpadService
}

// NewLaunchpadController creates a new LaunchpadController.
func NewLaunchpadController(svc services.LaunchpadService) *LaunchpadController {
	return &LaunchpadController{launchpadService: svc}
}

// GetCollection handles GET /api/launchpad/:collectionId
func (lc *LaunchpadController) GetCollection(ctx *gin.Context) {
	col, svcErr := lc.launchpadService.GetCollection(ctx.Request.Context(), ctx.Param("collectionId"))
	if svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	ctx.JSON(http.StatusOK, col)
}

// Poll handles GET /api/launchpad/:collectionId/poll
func (lc *LaunchpadController) Poll(ctx *gin.Context) {
	resp, svcErr := lc.launchpadService.Poll(ctx.Request.Context(), ctx.Param("collectionId"), ctx.Query("walletAddress"))
	if svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"success": false, "error": svcErr.Message})
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// ListOrdinals handles GET /api/launchpad/:collectionId/ordinals
func (lc *LaunchpadController) ListOrdinals(ctx *gin.Context) {
	page, perPage := parsePaginationParams(ctx)
	out, svcErr := lc.launchpadService.ListOrdinals(ctx.Request.Context(), ctx.Param("collectionId"), page, perPage)
	if svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	ctx.JSON(http.StatusOK, out)
}

// Reserve handles POST /api/launchpad/:collectionId/reserve
func (lc *LaunchpadController) Reserve(ctx *gin.Context) {
	var req wire.ReserveRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	resp, svcErr := lc.launchpadService.Reserve(ctx.Request.Context(), ctx.Param("collectionId"), req)
	if svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// Release handles DELETE /api/launchpad/:collectionId/reserve
func (lc *LaunchpadController) Release(ctx *gin.Context) {
	svcErr := lc.launchpadService.Release(ctx.Request.Context(), ctx.Param("collectionId"),
		ctx.Query("walletAddress"), ctx.Query("itemId"))
	if svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"success": true})
}

// BuildMint handles POST /api/launchpad/:collectionId/mint/build
func (lc *LaunchpadController) BuildMint(ctx *gin.Context) {
	var req wire.BuildMintRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	resp, svcErr := lc.launchpadService.BuildMint(ctx.Request.Context(), ctx.Param("collectionId"), req)
	if svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// ConfirmMint handles POST /api/launchpad/:collectionId/mint/confirm
func (lc *LaunchpadController) ConfirmMint(ctx *gin.Context) {
	var req wire.ConfirmMintRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	resp, svcErr := lc.launchpadService.ConfirmMint(ctx.Request.Context(), ctx.Param("collectionId"), req)
	if svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// ConfirmStatus handles GET /api/launchpad/:collectionId/mint/confirm?signature=
func (lc *LaunchpadController) ConfirmStatus(ctx *gin.Context) {
	signature := ctx.Query("signature")
	if signature == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Signature is required"})
		return
	}

	resp, svcErr := lc.launchpadService.ConfirmStatus(ctx.Request.Context(), ctx.Param("collectionId"), signature)
	if svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// WhitelistStatus handles GET /api/launchpad/:collectionId/whitelist-status
func (lc *LaunchpadController) WhitelistStatus(ctx *gin.Context) {
	ws, svcErr := lc.launchpadService.WhitelistStatus(ctx.Request.Context(), ctx.Param("collectionId"),
		ctx.Query("walletAddress"), ctx.Query("phaseId"))
	if svcErr != nil {
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}
	ctx.JSON(http.StatusOK, ws)
}

// parsePaginationParams extracts and validates page/perPage query params.
func parsePaginationParams(ctx *gin.Context) (int, int) {
	const maxPerPage = 500
	page, perPage := 1, 100
	if p, err := strconv.Atoi(ctx.DefaultQuery("page", "1")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(ctx.DefaultQuery("perPage", "100")); err == nil && l > 0 {
		if l > maxPerPage {
			l = maxPerPage
		}
		perPage = l
	}
	return page, perPage
}
