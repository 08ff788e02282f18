package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/D-keii/NextNation-RentSafe/internal/middleware"
	"github.com/D-keii/NextNation-RentSafe/internal/properties"
)

// Source is the part of the property service exports read from.
type Source interface {
	GetProperty(ctx context.Context, id uuid.UUID) (*properties.Property, error)
	ListProperties(ctx context.Context, filter properties.Filter) ([]*properties.Property, error)
}

type Handler struct {
	source Source
	logger *zap.Logger
	now    func() time.Time
}

func NewHandler(source Source, logger *zap.Logger) *Handler {
	return &Handler{source: source, logger: logger, now: time.Now}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	ex := rg.Group("/exports")
	{
		ex.GET("/listings", middleware.RequireRole(middleware.RoleLandlord), h.Listings)
		ex.GET("/properties/:id/receipt", h.Receipt)
	}
}

// Listings downloads the caller's listings as csv or xlsx.
func (h *Handler) Listings(c *gin.Context) {
	caller, err := middleware.IdentityFrom(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "code": "unauthorized"})
		return
	}
	format, err := ParseFormat(c.Query("format"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "bad_request"})
		return
	}

	list, err := h.source.ListProperties(c.Request.Context(), properties.Filter{
		LandlordID: caller.UserID,
		Display:    c.Query("status"),
	})
	var verr *properties.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "validation_failed", "fields": verr.Fields})
		return
	}
	if err != nil {
		h.internal(c, err)
		return
	}
	views := make([]properties.ListingView, 0, len(list))
	for _, p := range list {
		views = append(views, properties.NewListingView(p))
	}

	var buf bytes.Buffer
	if err := WriteListings(&buf, format, views); err != nil {
		h.internal(c, err)
		return
	}

	name := fmt.Sprintf("listings-%s.%s", h.now().UTC().Format("20060102"), format)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Data(http.StatusOK, format.ContentType(), buf.Bytes())
}

// Receipt downloads the verification submission receipt. Only the owning
// landlord and reviewers may fetch it.
func (h *Handler) Receipt(c *gin.Context) {
	caller, err := middleware.IdentityFrom(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "code": "unauthorized"})
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": properties.ErrNotFound.Error(), "code": "not_found"})
		return
	}

	p, err := h.source.GetProperty(c.Request.Context(), id)
	if errors.Is(err, properties.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "code": "not_found"})
		return
	}
	if err != nil {
		h.internal(c, err)
		return
	}
	if p.LandlordID != caller.UserID && caller.Role != middleware.RoleReviewer {
		c.JSON(http.StatusForbidden, gin.H{"error": properties.ErrForbidden.Error(), "code": "forbidden"})
		return
	}

	var buf bytes.Buffer
	if err := WriteReceipt(&buf, p); err != nil {
		if errors.Is(err, ErrNotSubmitted) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "not_submitted"})
			return
		}
		h.internal(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="verification-%s.pdf"`, p.ID))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

func (h *Handler) internal(c *gin.Context, err error) {
	h.logger.Error("Export failed", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error", "code": "internal"})
}
