package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/leenicide/bread-made-easy/models"
	"github.com/leenicide/bread-made-easy/store"
)

type CreateCustomRequestBody struct {
	Name        string `json:"name" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	ProjectType string `json:"projectType"`
	Budget      int64  `json:"budget"`
	Description string `json:"description"`
}

// CreateCustomRequest records a bespoke funnel build lead. Public.
func (impl *ServerImpl) CreateCustomRequest(c *gin.Context) {
	const op = "CreateCustomRequest"
	var body CreateCustomRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		abortBadRequest(c, "invalid body: "+err.Error())
		return
	}
	request := models.CustomRequest{
		Name:        body.Name,
		Email:       body.Email,
		ProjectType: body.ProjectType,
		Budget:      body.Budget,
		Description: impl.htmlChecker.Sanitize(body.Description),
	}
	if err := impl.store.CreateCustomRequest(c.Request.Context(), &request); err != nil {
		abortInternal(c, op, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": request.ID, "status": request.Status})
}

type CreateLeaseRequestBody struct {
	Name           string `json:"name" binding:"required"`
	Email          string `json:"email" binding:"required,email"`
	DurationMonths int    `json:"durationMonths" binding:"required"`
	MonthlyBudget  int64  `json:"monthlyBudget"`
	Message        string `json:"message"`
}

// CreateLeaseRequest records a lead asking to lease a funnel. Public.
func (impl *ServerImpl) CreateLeaseRequest(c *gin.Context) {
	const op = "CreateLeaseRequest"
	funnelID, err := uuid.Parse(c.Param("funnelID"))
	if err != nil {
		abortBadRequest(c, "invalid funnel id")
		return
	}
	var body CreateLeaseRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		abortBadRequest(c, "invalid body: "+err.Error())
		return
	}
	if body.DurationMonths <= 0 {
		abortBadRequest(c, "duration must be positive")
		return
	}
	request := models.LeaseRequest{
		FunnelID:       funnelID,
		Name:           body.Name,
		Email:          body.Email,
		DurationMonths: body.DurationMonths,
		MonthlyBudget:  body.MonthlyBudget,
		Message:        impl.htmlChecker.Sanitize(body.Message),
	}
	err = impl.store.CreateLeaseRequest(c.Request.Context(), &request)
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.Status(http.StatusNotFound)
	case errors.Is(err, store.ErrNotLeasable):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "funnel is not available for lease"})
	case err != nil:
		abortInternal(c, op, err)
	default:
		c.JSON(http.StatusCreated, gin.H{"id": request.ID, "status": request.Status})
	}
}

func parseStatusFilter(c *gin.Context) (*models.RequestStatus, bool) {
	raw := c.Query("status")
	if raw == "" {
		return nil, true
	}
	status := models.RequestStatus(raw)
	if !status.Valid() {
		return nil, false
	}
	return &status, true
}

// ListCustomRequests lists bespoke build leads. Admin only.
func (impl *ServerImpl) ListCustomRequests(c *gin.Context) {
	const op = "ListCustomRequests"
	status, ok := parseStatusFilter(c)
	if !ok {
		abortBadRequest(c, "invalid status")
		return
	}
	requests, err := impl.store.ListCustomRequests(c.Request.Context(), status)
	if err != nil {
		abortInternal(c, op, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(requests), "items": requests})
}

// ListLeaseRequests lists lease leads. Admin only.
func (impl *ServerImpl) ListLeaseRequests(c *gin.Context) {
	const op = "ListLeaseRequests"
	status, ok := parseStatusFilter(c)
	if !ok {
		abortBadRequest(c, "invalid status")
		return
	}
	requests, err := impl.store.ListLeaseRequests(c.Request.Context(), status)
	if err != nil {
		abortInternal(c, op, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(requests), "items": requests})
}

type TransitionRequestBody struct {
	Status models.RequestStatus `json:"status" binding:"required"`
}

// TransitionCustomRequest moves a bespoke build lead through its
// workflow. Admin only.
func (impl *ServerImpl) TransitionCustomRequest(c *gin.Context) {
	const op = "TransitionCustomRequest"
	requestID, err := uuid.Parse(c.Param("requestID"))
	if err != nil {
		abortBadRequest(c, "invalid request id")
		return
	}
	var body TransitionRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		abortBadRequest(c, "invalid body: "+err.Error())
		return
	}
	if !body.Status.Valid() {
		abortBadRequest(c, "invalid status")
		return
	}
	request, err := impl.store.TransitionCustomRequest(c.Request.Context(), requestID, body.Status)
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.Status(http.StatusNotFound)
	case errors.Is(err, store.ErrInvalidTransition):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "invalid status transition"})
	case err != nil:
		abortInternal(c, op, err)
	default:
		c.JSON(http.StatusOK, request)
	}
}

// TransitionLeaseRequest moves a lease lead through its workflow.
// Admin only.
func (impl *ServerImpl) TransitionLeaseRequest(c *gin.Context) {
	const op = "TransitionLeaseRequest"
	requestID, err := uuid.Parse(c.Param("requestID"))
	if err != nil {
		abortBadRequest(c, "invalid request id")
		return
	}
	var body TransitionRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		abortBadRequest(c, "invalid body: "+err.Error())
		return
	}
	if !body.Status.Valid() {
		abortBadRequest(c, "invalid status")
		return
	}
	request, err := impl.store.TransitionLeaseRequest(c.Request.Context(), requestID, body.Status)
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.Status(http.StatusNotFound)
	case errors.Is(err, store.ErrInvalidTransition):
		c.JSON(http.StatusConflict, ErrorResponse{Message: "invalid status transition"})
	case err != nil:
		abortInternal(c, op, err)
	default:
		c.JSON(http.StatusOK, request)
	}
}

// ExportCustomRequests streams bespoke build leads as CSV, honoring
// the same status filter as the list. Admin only.
func (impl *ServerImpl) ExportCustomRequests(c *gin.Context) {
	const op = "ExportCustomRequests"
	status, ok := parseStatusFilter(c)
	if !ok {
		abortBadRequest(c, "invalid status")
		return
	}
	requests, err := impl.store.ListCustomRequests(c.Request.Context(), status)
	if err != nil {
		abortInternal(c, op, err)
		return
	}
	header := []string{"id", "name", "email", "project_type", "budget", "status", "created_at"}
	rows := make([][]string, len(requests))
	for i, request := range requests {
		rows[i] = []string{
			request.ID.String(),
			request.Name,
			request.Email,
			request.ProjectType,
			strconv.FormatInt(request.Budget, 10),
			string(request.Status),
			request.CreatedAt.Format(time.RFC3339),
		}
	}
	if err := writeCSV(c, "custom-requests.csv", header, rows); err != nil {
		abortInternal(c, op, err)
	}
}

// ExportLeaseRequests streams lease leads as CSV. Admin only.
func (impl *ServerImpl) ExportLeaseRequests(c *gin.Context) {
	const op = "ExportLeaseRequests"
	status, ok := parseStatusFilter(c)
	if !ok {
		abortBadRequest(c, "invalid status")
		return
	}
	requests, err := impl.store.ListLeaseRequests(c.Request.Context(), status)
	if err != nil {
		abortInternal(c, op, err)
		return
	}
	header := []string{"id", "funnel_id", "name", "email", "duration_months", "monthly_budget", "status", "created_at"}
	rows := make([][]string, len(requests))
	for i, request := range requests {
		rows[i] = []string{
			request.ID.String(),
			request.FunnelID.String(),
			request.Name,
			request.Email,
			strconv.Itoa(request.DurationMonths),
			strconv.FormatInt(request.MonthlyBudget, 10),
			string(request.Status),
			request.CreatedAt.Format(time.RFC3339),
		}
	}
	if err := writeCSV(c, "lease-requests.csv", header, rows); err != nil {
		abortInternal(c, op, err)
	}
}
