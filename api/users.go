package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/leenicide/bread-made-easy/models"
	"github.com/leenicide/bread-made-easy/store"
)

type UserInfoResponse struct {
	ID           uuid.UUID   `json:"id"`
	Username     string      `json:"username"`
	Email        string      `json:"email,omitempty"`
	Role         models.Role `json:"role"`
	SsoProviders []string    `json:"ssoProviders"`
}

// GetUserInfo serves the authenticated user's profile.
func (impl *ServerImpl) GetUserInfo(c *gin.Context) {
	const op = "GetUserInfo"
	userID, ok := currentUserID(c)
	if !ok {
		c.Status(http.StatusUnauthorized)
		return
	}
	user, err := impl.store.GetUser(c.Request.Context(), userID)
	if errors.Is(err, store.ErrNotFound) {
		c.Status(http.StatusNotFound)
		return
	}
	if err != nil {
		abortInternal(c, op, err)
		return
	}
	providers := make([]string, 0, len(user.Identities))
	for _, identity := range user.Identities {
		if identity.SsoProvider != nil {
			providers = append(providers, identity.SsoProvider.Name)
		}
	}
	c.JSON(http.StatusOK, UserInfoResponse{
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		Role:         user.Role,
		SsoProviders: providers,
	})
}

type PatchUserInfoRequest struct {
	Username string `json:"username" binding:"required"`
}

// PatchUserInfo updates the authenticated user's username.
func (impl *ServerImpl) PatchUserInfo(c *gin.Context) {
	const op = "PatchUserInfo"
	userID, ok := currentUserID(c)
	if !ok {
		c.Status(http.StatusUnauthorized)
		return
	}
	var request PatchUserInfoRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		abortBadRequest(c, "invalid body: "+err.Error())
		return
	}
	username := strings.TrimSpace(request.Username)
	if len(username) == 0 {
		abortBadRequest(c, "username cannot be empty")
		return
	}
	err := impl.store.UpdateUsername(c.Request.Context(), userID, username)
	if errors.Is(err, store.ErrNotFound) {
		c.Status(http.StatusNotFound)
		return
	}
	if err != nil {
		abortInternal(c, op, err)
		return
	}
	c.Status(http.StatusOK)
}

// ListUsers lists every account. Admin only.
func (impl *ServerImpl) ListUsers(c *gin.Context) {
	const op = "ListUsers"
	users, err := impl.store.ListUsers(c.Request.Context())
	if err != nil {
		abortInternal(c, op, err)
		return
	}
	items := make([]UserInfoResponse, len(users))
	for i, user := range users {
		items[i] = UserInfoResponse{
			ID:       user.ID,
			Username: user.Username,
			Email:    user.Email,
			Role:     user.Role,
		}
	}
	c.JSON(http.StatusOK, gin.H{"count": len(items), "items": items})
}

// ExportUsers streams every account as CSV. Admin only.
func (impl *ServerImpl) ExportUsers(c *gin.Context) {
	const op = "ExportUsers"
	users, err := impl.store.ListUsers(c.Request.Context())
	if err != nil {
		abortInternal(c, op, err)
		return
	}
	header := []string{"id", "username", "email", "role", "created_at"}
	rows := make([][]string, len(users))
	for i, user := range users {
		rows[i] = []string{
			user.ID.String(),
			user.Username,
			user.Email,
			string(user.Role),
			user.CreatedAt.Format(time.RFC3339),
		}
	}
	if err := writeCSV(c, "users.csv", header, rows); err != nil {
		abortInternal(c, op, err)
	}
}

type SetUserRoleRequest struct {
	Role models.Role `json:"role" binding:"required"`
}

// SetUserRole promotes or demotes an account. Admin only.
func (impl *ServerImpl) SetUserRole(c *gin.Context) {
	const op = "SetUserRole"
	userID, err := uuid.Parse(c.Param("userID"))
	if err != nil {
		abortBadRequest(c, "invalid user id")
		return
	}
	var request SetUserRoleRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		abortBadRequest(c, "invalid body: "+err.Error())
		return
	}
	if !request.Role.Valid() {
		abortBadRequest(c, "invalid role")
		return
	}
	err = impl.store.SetUserRole(c.Request.Context(), userID, request.Role)
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.Status(http.StatusNotFound)
	case errors.Is(err, store.ErrInvalidTransition):
		abortBadRequest(c, "invalid role")
	case err != nil:
		abortInternal(c, op, err)
	default:
		c.Status(http.StatusOK)
	}
}
