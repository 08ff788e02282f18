package properties

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/D-keii/NextNation-RentSafe/internal/documents"
	"github.com/D-keii/NextNation-RentSafe/internal/middleware"
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

	props := rg.Group("/properties")
	{
		props.POST("", landlordOnly, h.Create)
		props.GET("", h.List)
		props.GET("/:id", h.Get)
		props.PUT("/:id", landlordOnly, h.Update)
		props.DELETE("/:id", landlordOnly, h.Delete)
		props.POST("/:id/documents/:key", landlordOnly, h.UploadDocument)
		props.GET("/:id/documents/:key", h.DocumentURL)
		props.POST("/:id/verification", landlordOnly, h.SubmitVerification)
		props.POST("/:id/verification/review", middleware.RequireRole(middleware.RoleReviewer), h.Review)
	}
}

// PropertyResponse is a property plus its derived status and affordances.
type PropertyResponse struct {
	*Property
	DisplayStatus DisplayStatus `json:"display_status"`
	Affordances   Affordances   `json:"affordances"`
}

func NewPropertyResponse(p *Property) PropertyResponse {
	status := DeriveDisplayStatus(p)
	return PropertyResponse{Property: p, DisplayStatus: status, Affordances: AffordancesFor(status)}
}

// SubmitVerificationRequest carries one reference per document key.
type SubmitVerificationRequest struct {
	Documents map[documents.Key]string `json:"documents"`
}

// ReviewRequest is a reviewer decision.
type ReviewRequest struct {
	Decision Decision `json:"decision"`
	Reason   string   `json:"reason"`
}

func landlordFrom(c *gin.Context) (Landlord, bool) {
	id, err := middleware.IdentityFrom(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "code": "unauthorized"})
		return Landlord{}, false
	}
	return Landlord{ID: id.UserID, Name: id.Name, Email: id.Email}, true
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": ErrNotFound.Error(), "code": "not_found"})
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) Create(c *gin.Context) {
	landlord, ok := landlordFrom(c)
	if !ok {
		return
	}
	var draft Draft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "code": "bad_request"})
		return
	}

	p, err := h.service.CreateProperty(c.Request.Context(), landlord, &draft)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, NewPropertyResponse(p))
}

func (h *Handler) List(c *gin.Context) {
	caller, err := middleware.IdentityFrom(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "code": "unauthorized"})
		return
	}

	filter := Filter{Display: c.Query("status")}
	switch landlord := c.Query("landlord"); landlord {
	case "", "me":
		filter.LandlordID = caller.UserID
	default:
		filter.LandlordID = landlord
	}
	if v := c.Query("available"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "available must be true or false", "code": "bad_request"})
			return
		}
		filter.Available = &b
	}

	list, err := h.service.ListProperties(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}

	views := make([]ListingView, 0, len(list))
	for _, p := range list {
		views = append(views, NewListingView(p))
	}
	c.JSON(http.StatusOK, gin.H{"properties": views})
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	p, err := h.service.GetProperty(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewPropertyResponse(p))
}

func (h *Handler) Update(c *gin.Context) {
	landlord, ok := landlordFrom(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	var draft Draft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "code": "bad_request"})
		return
	}

	p, err := h.service.UpdateProperty(c.Request.Context(), landlord, id, &draft)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewPropertyResponse(p))
}

func (h *Handler) Delete(c *gin.Context) {
	landlord, ok := landlordFrom(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.service.DeleteProperty(c.Request.Context(), landlord, id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) UploadDocument(c *gin.Context) {
	landlord, ok := landlordFrom(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	key, err := documents.ParseKey(c.Param("key"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, documents.MaxFileSize+1<<20)
	fh, err := c.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			h.writeError(c, documents.ErrFileSize)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required", "code": "bad_request"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.writeError(c, err)
		return
	}
	defer f.Close()

	up, err := h.service.UploadDocument(c.Request.Context(), landlord, id, key, documents.File{
		Name:        fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Body:        f,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, up)
}

func (h *Handler) DocumentURL(c *gin.Context) {
	caller, err := middleware.IdentityFrom(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "code": "unauthorized"})
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	key, err := documents.ParseKey(c.Param("key"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	url, err := h.service.DocumentURL(c.Request.Context(), caller.UserID, caller.Role == middleware.RoleReviewer, id, key)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (h *Handler) SubmitVerification(c *gin.Context) {
	landlord, ok := landlordFrom(c)
	if !ok {
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req SubmitVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "code": "bad_request"})
		return
	}

	p, err := h.service.SubmitVerification(c.Request.Context(), landlord, id, req.Documents)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewPropertyResponse(p))
}

func (h *Handler) Review(c *gin.Context) {
	reviewer, err := middleware.IdentityFrom(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "code": "unauthorized"})
		return
	}
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "code": "bad_request"})
		return
	}

	p, err := h.service.ReviewVerification(c.Request.Context(), reviewer.UserID, id, req.Decision, req.Reason)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, NewPropertyResponse(p))
}

// writeError maps service errors onto status codes and the {"error","code"} body.
func (h *Handler) writeError(c *gin.Context, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "validation_failed", "fields": verr.Fields})
	case errors.Is(err, ErrVerificationRequired):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "verification_required"})
	case errors.Is(err, ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": "invalid_state"})
	case errors.Is(err, ErrDocumentsRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "documents_required"})
	case errors.Is(err, documents.ErrFileType):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "file_type"})
	case errors.Is(err, documents.ErrFileSize):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "file_size"})
	case errors.Is(err, documents.ErrEmptyFile), errors.Is(err, documents.ErrUnknownKey), errors.Is(err, documents.ErrReference):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "bad_document"})
	case errors.Is(err, ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error(), "code": "forbidden"})
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "code": "not_found"})
	default:
		h.logger.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error", "code": "internal"})
	}
}
