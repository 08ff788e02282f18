package saved

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/D-keii/NextNation-RentSafe/internal/middleware"
	"github.com/D-keii/NextNation-RentSafe/internal/properties"
)

// PropertyLookup resolves saved IDs into listings.
type PropertyLookup interface {
	GetProperty(ctx context.Context, id uuid.UUID) (*properties.Property, error)
}

type Handler struct {
	store  Store
	lookup PropertyLookup
	logger *zap.Logger
}

func NewHandler(store Store, lookup PropertyLookup, logger *zap.Logger) *Handler {
	return &Handler{store: store, lookup: lookup, logger: logger}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	s := rg.Group("/saved")
	{
		s.GET("", h.List)
		s.POST("/:propertyId", h.Save)
		s.DELETE("/:propertyId", h.Unsave)
	}
}

// List returns the caller's saved listings. IDs whose property no longer
// exists are dropped from the response.
func (h *Handler) List(c *gin.Context) {
	caller, err := middleware.IdentityFrom(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "code": "unauthorized"})
		return
	}
	ctx := c.Request.Context()

	ids, err := h.store.List(ctx, caller.UserID)
	if err != nil {
		h.internal(c, err)
		return
	}

	views := make([]properties.ListingView, 0, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		p, err := h.lookup.GetProperty(ctx, id)
		if errors.Is(err, properties.ErrNotFound) {
			continue
		}
		if err != nil {
			h.internal(c, err)
			return
		}
		views = append(views, properties.NewListingView(p))
	}
	c.JSON(http.StatusOK, gin.H{"ids": ids, "properties": views})
}

func (h *Handler) Save(c *gin.Context) {
	caller, id, ok := h.target(c)
	if !ok {
		return
	}
	if _, err := h.lookup.GetProperty(c.Request.Context(), id); err != nil {
		if errors.Is(err, properties.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "code": "not_found"})
			return
		}
		h.internal(c, err)
		return
	}
	if err := h.store.Add(c.Request.Context(), caller.UserID, id.String()); err != nil {
		h.internal(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"property_id": id.String(), "saved": true})
}

func (h *Handler) Unsave(c *gin.Context) {
	caller, id, ok := h.target(c)
	if !ok {
		return
	}
	if err := h.store.Remove(c.Request.Context(), caller.UserID, id.String()); err != nil {
		h.internal(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"property_id": id.String(), "saved": false})
}

func (h *Handler) target(c *gin.Context) (middleware.Identity, uuid.UUID, bool) {
	caller, err := middleware.IdentityFrom(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "code": "unauthorized"})
		return middleware.Identity{}, uuid.Nil, false
	}
	id, err := uuid.Parse(c.Param("propertyId"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": properties.ErrNotFound.Error(), "code": "not_found"})
		return middleware.Identity{}, uuid.Nil, false
	}
	return caller, id, true
}

func (h *Handler) internal(c *gin.Context, err error) {
	h.logger.Error("Saved listings request failed", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error", "code": "internal"})
}
