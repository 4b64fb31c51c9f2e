package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/samber/lo"

	internalS3 "github.com/leenicide/bread-made-easy/adapters/s3"
	"github.com/leenicide/bread-made-easy/models"
	"github.com/leenicide/bread-made-easy/store"
)

type FunnelView struct {
	ID             uuid.UUID  `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	ImageURL       string     `json:"imageUrl,omitempty"`
	CategoryID     *uuid.UUID `json:"categoryId,omitempty"`
	Category       string     `json:"category,omitempty"`
	Price          int64      `json:"price"`
	LeaseAvailable bool       `json:"leaseAvailable"`
	Active         bool       `json:"active"`
}

func funnelView(funnel *models.Funnel) FunnelView {
	view := FunnelView{
		ID:             funnel.ID,
		Title:          funnel.Title,
		Description:    funnel.Description,
		ImageURL:       funnel.ImageURL,
		CategoryID:     funnel.CategoryID,
		Price:          funnel.Price,
		LeaseAvailable: funnel.LeaseAvailable,
		Active:         funnel.Active,
	}
	if funnel.Category != nil {
		view.Category = funnel.Category.Name
	}
	return view
}

type ListFunnelsQuery struct {
	CategoryID     *uuid.UUID `form:"categoryId"`
	LeaseAvailable *bool      `form:"leaseAvailable"`
	IncludeHidden  bool       `form:"includeHidden"`
}

// ListFunnels serves the funnel catalogue. Hidden funnels only appear
// for admins asking for them.
func (impl *ServerImpl) ListFunnels(c *gin.Context) {
	const op = "ListFunnels"
	var query ListFunnelsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		abortBadRequest(c, "invalid query: "+err.Error())
		return
	}
	claims := CurrentClaims(c)
	showHidden := query.IncludeHidden && claims != nil && claims.Role == models.RoleAdmin
	funnels, err := impl.store.ListFunnels(c.Request.Context(), store.ListFunnelsParams{
		CategoryID:     query.CategoryID,
		LeaseAvailable: query.LeaseAvailable,
		ActiveOnly:     !showHidden,
	})
	if err != nil {
		abortInternal(c, op, err)
		return
	}
	items := make([]FunnelView, len(funnels))
	for i := range funnels {
		items[i] = funnelView(&funnels[i])
	}
	c.JSON(http.StatusOK, gin.H{"count": len(items), "items": items})
}

func (impl *ServerImpl) GetFunnel(c *gin.Context) {
	const op = "GetFunnel"
	funnelID, err := uuid.Parse(c.Param("funnelID"))
	if err != nil {
		abortBadRequest(c, "invalid funnel id")
		return
	}
	funnel, err := impl.store.GetFunnel(c.Request.Context(), funnelID)
	if errors.Is(err, store.ErrNotFound) {
		c.Status(http.StatusNotFound)
		return
	}
	if err != nil {
		abortInternal(c, op, err)
		return
	}
	c.JSON(http.StatusOK, funnelView(funnel))
}

type CreateFunnelRequest struct {
	Title          string     `json:"title" binding:"required"`
	Description    *string    `json:"description"`
	ImageURL       string     `json:"imageUrl"`
	CategoryID     *uuid.UUID `json:"categoryId"`
	Price          int64      `json:"price" binding:"required"`
	LeaseAvailable bool       `json:"leaseAvailable"`
	Active         *bool      `json:"active"`
}

// CreateFunnel adds a funnel to the catalogue. Admin only.
func (impl *ServerImpl) CreateFunnel(c *gin.Context) {
	const op = "CreateFunnel"
	var request CreateFunnelRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		abortBadRequest(c, "invalid body: "+err.Error())
		return
	}
	if request.Price <= 0 {
		abortBadRequest(c, "price must be positive")
		return
	}
	if request.Description == nil {
		request.Description = lo.ToPtr("")
	}
	funnel := models.Funnel{
		Title:          request.Title,
		Description:    impl.htmlChecker.Sanitize(*request.Description),
		ImageURL:       request.ImageURL,
		CategoryID:     request.CategoryID,
		Price:          request.Price,
		LeaseAvailable: request.LeaseAvailable,
		Active:         request.Active == nil || *request.Active,
	}
	if err := impl.store.CreateFunnel(c.Request.Context(), &funnel); err != nil {
		abortInternal(c, op, err)
		return
	}
	c.Header("Location", funnel.ID.String())
	c.JSON(http.StatusCreated, funnelView(&funnel))
}

type UpdateFunnelRequest struct {
	Title          *string    `json:"title"`
	Description    *string    `json:"description"`
	ImageURL       *string    `json:"imageUrl"`
	CategoryID     *uuid.UUID `json:"categoryId"`
	Price          *int64     `json:"price"`
	LeaseAvailable *bool      `json:"leaseAvailable"`
	Active         *bool      `json:"active"`
}

// UpdateFunnel patches a funnel. Admin only.
func (impl *ServerImpl) UpdateFunnel(c *gin.Context) {
	const op = "UpdateFunnel"
	funnelID, err := uuid.Parse(c.Param("funnelID"))
	if err != nil {
		abortBadRequest(c, "invalid funnel id")
		return
	}
	var request UpdateFunnelRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		abortBadRequest(c, "invalid body: "+err.Error())
		return
	}
	funnel, err := impl.store.GetFunnel(c.Request.Context(), funnelID)
	if errors.Is(err, store.ErrNotFound) {
		c.Status(http.StatusNotFound)
		return
	}
	if err != nil {
		abortInternal(c, op, err)
		return
	}
	if request.Title != nil {
		funnel.Title = *request.Title
	}
	if request.Description != nil {
		funnel.Description = impl.htmlChecker.Sanitize(*request.Description)
	}
	if request.ImageURL != nil {
		funnel.ImageURL = *request.ImageURL
	}
	if request.CategoryID != nil {
		funnel.CategoryID = request.CategoryID
	}
	if request.Price != nil {
		if *request.Price <= 0 {
			abortBadRequest(c, "price must be positive")
			return
		}
		funnel.Price = *request.Price
	}
	if request.LeaseAvailable != nil {
		funnel.LeaseAvailable = *request.LeaseAvailable
	}
	if request.Active != nil {
		funnel.Active = *request.Active
	}
	if err := impl.store.UpdateFunnel(c.Request.Context(), funnel); err != nil {
		abortInternal(c, op, err)
		return
	}
	c.JSON(http.StatusOK, funnelView(funnel))
}

// ExportFunnels streams the whole catalogue, hidden funnels included,
// as CSV. Admin only.
func (impl *ServerImpl) ExportFunnels(c *gin.Context) {
	const op = "ExportFunnels"
	funnels, err := impl.store.ListFunnels(c.Request.Context(), store.ListFunnelsParams{})
	if err != nil {
		abortInternal(c, op, err)
		return
	}
	header := []string{"id", "title", "category", "price", "lease_available", "active", "created_at"}
	rows := make([][]string, len(funnels))
	for i, funnel := range funnels {
		category := ""
		if funnel.Category != nil {
			category = funnel.Category.Name
		}
		rows[i] = []string{
			funnel.ID.String(),
			funnel.Title,
			category,
			strconv.FormatInt(funnel.Price, 10),
			strconv.FormatBool(funnel.LeaseAvailable),
			strconv.FormatBool(funnel.Active),
			funnel.CreatedAt.Format(time.RFC3339),
		}
	}
	if err := writeCSV(c, "funnels.csv", header, rows); err != nil {
		abortInternal(c, op, err)
	}
}

// DeleteFunnel soft deletes a funnel. Admin only.
func (impl *ServerImpl) DeleteFunnel(c *gin.Context) {
	const op = "DeleteFunnel"
	funnelID, err := uuid.Parse(c.Param("funnelID"))
	if err != nil {
		abortBadRequest(c, "invalid funnel id")
		return
	}
	err = impl.store.DeleteFunnel(c.Request.Context(), funnelID)
	if errors.Is(err, store.ErrNotFound) {
		c.Status(http.StatusNotFound)
		return
	}
	if err != nil {
		abortInternal(c, op, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (impl *ServerImpl) ListCategories(c *gin.Context) {
	const op = "ListCategories"
	categories, err := impl.store.ListCategories(c.Request.Context())
	if err != nil {
		abortInternal(c, op, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(categories), "items": categories})
}

type CreateCategoryRequest struct {
	Name string `json:"name" binding:"required"`
	Slug string `json:"slug" binding:"required"`
}

// CreateCategory adds a browsing category. Admin only.
func (impl *ServerImpl) CreateCategory(c *gin.Context) {
	const op = "CreateCategory"
	var request CreateCategoryRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		abortBadRequest(c, "invalid body: "+err.Error())
		return
	}
	category := models.Category{Name: request.Name, Slug: request.Slug}
	if err := impl.store.CreateCategory(c.Request.Context(), &category); err != nil {
		abortInternal(c, op, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

// UploadImage accepts a raw image body, checks its type and size, and
// stores it in the public bucket. Uploads are rate limited per user.
func (impl *ServerImpl) UploadImage(c *gin.Context) {
	const op = "UploadImage"
	userID, ok := currentUserID(c)
	if !ok {
		c.Status(http.StatusUnauthorized)
		return
	}
	uploadedCount, err := impl.store.CountImagesSince(c.Request.Context(), userID, time.Now().Add(-1*time.Hour))
	if err != nil {
		abortInternal(c, op, err)
		return
	}
	if impl.config.S3.RateLimitPerHour > 0 && uploadedCount >= impl.config.S3.RateLimitPerHour {
		c.Status(http.StatusTooManyRequests)
		return
	}
	// Images must be under 5MB with a MIME type that cannot carry
	// scripts.
	body := internalS3.NewMaxSizeReader(c.Request.Body, 5<<20)
	file, err := io.ReadAll(body)
	if errors.As(err, &internalS3.ErrReachLimitType) {
		abortBadRequest(c, err.Error())
		return
	}
	if err != nil {
		abortInternal(c, op, fmt.Errorf("fail to read image, err=%w", err))
		return
	}
	mimeType := http.DetectContentType(file)
	secure, ext := internalS3.CheckSecureImageAndGetExtension(mimeType)
	if !secure {
		abortBadRequest(c, fmt.Sprintf("Invalid image type: %s", mimeType))
		return
	}
	url, err := impl.s3Operator.UploadFileToS3(c.Request.Context(), uuid.New().String()+"."+ext, mimeType, file)
	if err != nil {
		abortInternal(c, op, fmt.Errorf("fail to upload image, err=%w", err))
		return
	}
	image := models.Image{UploaderID: userID, Url: url}
	if err := impl.store.CreateImage(c.Request.Context(), &image); err != nil {
		abortInternal(c, op, err)
		return
	}
	c.Header("Location", url)
	c.JSON(http.StatusCreated, gin.H{"url": url})
}
