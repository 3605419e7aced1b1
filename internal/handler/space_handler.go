package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/parkshare/service-reservation/internal/application"
	"github.com/parkshare/service-reservation/internal/auth"
	"github.com/parkshare/service-reservation/internal/domain/space"
	"github.com/parkshare/service-reservation/internal/middleware"
	"github.com/parkshare/service-reservation/internal/response"
)

// SpaceHandler handles HTTP requests for the space catalog.
type SpaceHandler struct {
	service *application.SpaceService
}

// NewSpaceHandler creates a new SpaceHandler.
func NewSpaceHandler(service *application.SpaceService) *SpaceHandler {
	return &SpaceHandler{service: service}
}

// RegisterRoutes registers all space routes on the given router group.
// Browsing is public; listing management requires the host role.
func (h *SpaceHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	authMW := middleware.AuthMiddleware(jwtManager)
	hostMW := middleware.RequireRole(auth.RoleHost)

	spaces := r.Group("/api/v1/spaces")
	{
		spaces.GET("", h.ListSpaces)
		spaces.GET("/:id", h.GetSpace)
		spaces.GET("/:id/products", h.ListProducts)

		spaces.POST("", authMW, hostMW, h.CreateSpace)
		spaces.PATCH("/:id", authMW, hostMW, h.UpdateSpace)
		spaces.DELETE("/:id", authMW, hostMW, h.DeleteSpace)
		spaces.POST("/:id/activate", authMW, hostMW, h.ActivateSpace)
		spaces.POST("/:id/deactivate", authMW, hostMW, h.DeactivateSpace)
		spaces.POST("/:id/products", authMW, hostMW, h.CreateProduct)
		spaces.POST("/:id/products/:productId/deactivate", authMW, hostMW, h.DeactivateProduct)
	}

	me := r.Group("/api/v1/me/spaces")
	me.Use(authMW, hostMW)
	{
		me.GET("", h.ListMySpaces)
	}
}

// ListSpaces handles GET /api/v1/spaces (public, active listings only). An
// optional bbox=minLng,minLat,maxLng,maxLat parameter restricts results to a
// map viewport.
func (h *SpaceHandler) ListSpaces(c *gin.Context) {
	page, limit := parsePagination(c)

	bounds, err := parseBBox(c.Query("bbox"))
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.ListActiveSpaces(c.Request.Context(), bounds, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}

// parseBBox parses a bbox=minLng,minLat,maxLng,maxLat query value. An empty
// value means no restriction.
func parseBBox(raw string) (*space.Bounds, error) {
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return nil, errors.New("bbox must be minLng,minLat,maxLng,maxLat")
	}

	coords := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, errors.New("bbox must be minLng,minLat,maxLng,maxLat")
		}
		coords[i] = v
	}

	b := &space.Bounds{MinLng: coords[0], MinLat: coords[1], MaxLng: coords[2], MaxLat: coords[3]}
	if b.MinLat > b.MaxLat || b.MinLng > b.MaxLng {
		return nil, errors.New("bbox minimum corner must not exceed the maximum corner")
	}
	return b, nil
}

// GetSpace handles GET /api/v1/spaces/:id.
func (h *SpaceHandler) GetSpace(c *gin.Context) {
	spaceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid space ID")
		return
	}

	result, err := h.service.GetSpace(c.Request.Context(), spaceID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// ListProducts handles GET /api/v1/spaces/:id/products.
func (h *SpaceHandler) ListProducts(c *gin.Context) {
	spaceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid space ID")
		return
	}

	result, err := h.service.ListProducts(c.Request.Context(), spaceID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// CreateSpace handles POST /api/v1/spaces.
func (h *SpaceHandler) CreateSpace(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req application.CreateSpaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.CreateSpace(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// UpdateSpace handles PATCH /api/v1/spaces/:id.
func (h *SpaceHandler) UpdateSpace(c *gin.Context) {
	spaceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid space ID")
		return
	}

	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req application.UpdateSpaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.UpdateSpace(c.Request.Context(), spaceID, userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// DeleteSpace handles DELETE /api/v1/spaces/:id. Spaces with reservation
// history respond 409; those are deactivated instead.
func (h *SpaceHandler) DeleteSpace(c *gin.Context) {
	spaceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid space ID")
		return
	}

	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := h.service.DeleteSpace(c.Request.Context(), spaceID, userID); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// ActivateSpace handles POST /api/v1/spaces/:id/activate.
func (h *SpaceHandler) ActivateSpace(c *gin.Context) {
	h.setActive(c, true)
}

// DeactivateSpace handles POST /api/v1/spaces/:id/deactivate.
func (h *SpaceHandler) DeactivateSpace(c *gin.Context) {
	h.setActive(c, false)
}

func (h *SpaceHandler) setActive(c *gin.Context, active bool) {
	spaceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid space ID")
		return
	}

	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	result, err := h.service.SetSpaceActive(c.Request.Context(), spaceID, userID, active)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// CreateProduct handles POST /api/v1/spaces/:id/products.
func (h *SpaceHandler) CreateProduct(c *gin.Context) {
	spaceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid space ID")
		return
	}

	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req application.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.CreateProduct(c.Request.Context(), spaceID, userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// DeactivateProduct handles POST /api/v1/spaces/:id/products/:productId/deactivate.
func (h *SpaceHandler) DeactivateProduct(c *gin.Context) {
	spaceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid space ID")
		return
	}

	productID, err := uuid.Parse(c.Param("productId"))
	if err != nil {
		response.BadRequest(c, "invalid product ID")
		return
	}

	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	result, err := h.service.DeactivateProduct(c.Request.Context(), spaceID, productID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, result)
}

// ListMySpaces handles GET /api/v1/me/spaces (host's own listings, active or
// not).
func (h *SpaceHandler) ListMySpaces(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	page, limit := parsePagination(c)

	result, err := h.service.ListHostSpaces(c.Request.Context(), userID, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, result.Items, result.Total, result.Page, result.Limit)
}
