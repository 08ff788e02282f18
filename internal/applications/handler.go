package applications

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/D-keii/NextNation-RentSafe/internal/middleware"
	"github.com/D-keii/NextNation-RentSafe/internal/properties"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	landlordOnly := middleware.RequireRole(middleware.RoleLandlord)
	tenantOnly := middleware.RequireRole(middleware.RoleTenant)

	rg.POST("/properties/:id/applications", tenantOnly, h.Apply)
	rg.GET("/properties/:id/applications", landlordOnly, h.ListForProperty)

	apps := rg.Group("/applications")
	{
		apps.GET("", tenantOnly, h.ListMine)
		apps.GET("/:id", h.Get)
		apps.POST("/:id/decision", landlordOnly, h.Decide)
	}

	rg.GET("/dashboard/landlord", landlordOnly, h.Dashboard)
}

type applyRequest struct {
	Message string `json:"message"`
}

type decisionRequest struct {
	Decision properties.Decision `json:"decision" binding:"required"`
	Reason   string              `json:"reason"`
}

func caller(c *gin.Context) (middleware.Identity, bool) {
	id, err := middleware.IdentityFrom(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "code": "unauthorized"})
		return middleware.Identity{}, false
	}
	return id, true
}

func parseID(c *gin.Context, notFound error) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": notFound.Error(), "code": "not_found"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) Apply(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	propertyID, ok := parseID(c, properties.ErrNotFound)
	if !ok {
		return
	}
	var req applyRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "code": "bad_request"})
			return
		}
	}

	a, err := h.service.Apply(c.Request.Context(), Tenant{ID: who.UserID, Name: who.Name, Email: who.Email}, propertyID, req.Message)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (h *Handler) ListForProperty(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	propertyID, ok := parseID(c, properties.ErrNotFound)
	if !ok {
		return
	}
	list, err := h.service.ListForProperty(c.Request.Context(), who.UserID, propertyID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.writeList(c, list)
}

// ListMine returns the caller's own applications, optionally filtered by ?status=.
func (h *Handler) ListMine(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	list, err := h.service.ListForTenant(c.Request.Context(), who.UserID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.writeList(c, list)
}

func (h *Handler) writeList(c *gin.Context, list []*Application) {
	var counts Counts
	for _, a := range list {
		counts.add(a.Status)
	}

	status := Status(c.Query("status"))
	switch status {
	case "", "all":
	case StatusPending, StatusApproved, StatusRejected:
		filtered := make([]*Application, 0, len(list))
		for _, a := range list {
			if a.Status == status {
				filtered = append(filtered, a)
			}
		}
		list = filtered
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"error":  "invalid status filter",
			"code":   "validation_failed",
			"fields": map[string]string{"status": "must be pending, approved, rejected or all"},
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"applications": list, "counts": counts})
}

func (h *Handler) Get(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	id, ok := parseID(c, ErrNotFound)
	if !ok {
		return
	}
	a, err := h.service.Get(c.Request.Context(), who.UserID, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *Handler) Decide(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	id, ok := parseID(c, ErrNotFound)
	if !ok {
		return
	}
	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "code": "bad_request"})
		return
	}

	a, err := h.service.Decide(c.Request.Context(), who.UserID, id, req.Decision, req.Reason)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *Handler) Dashboard(c *gin.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	d, err := h.service.Dashboard(c.Request.Context(), who.UserID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	var verr *properties.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "validation_failed", "fields": verr.Fields})
	case errors.Is(err, ErrNotListed), errors.Is(err, ErrDuplicate), errors.Is(err, ErrNotPending):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "invalid_state"})
	case errors.Is(err, ErrOwnListing), errors.Is(err, ErrForbidden), errors.Is(err, properties.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error(), "code": "forbidden"})
	case errors.Is(err, ErrNotFound), errors.Is(err, properties.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "code": "not_found"})
	default:
		h.logger.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error", "code": "internal"})
	}
}
