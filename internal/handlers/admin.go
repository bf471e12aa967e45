package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"caseportal/internal/middleware"
	"caseportal/internal/models"
	"caseportal/internal/service"
)

type createUserRequest struct {
	Username   string `json:"username" binding:"required"`
	Email      string `json:"email" binding:"omitempty,email,max=254"`
	Password   string `json:"password" binding:"required"`
	FullName   string `json:"fullName" binding:"max=200"`
	Role       string `json:"role" binding:"required"`
	IsApproved *bool  `json:"isApproved"`
}

func (h HandlerSet) AdminCreateUser(c *gin.Context) {
	by, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	approved := true
	if req.IsApproved != nil {
		approved = *req.IsApproved
	}

	user, err := h.authService.CreateUser(c.Request.Context(), service.CreateUserInput{
		Username:   req.Username,
		Email:      req.Email,
		Password:   req.Password,
		FullName:   req.FullName,
		Role:       models.UserRole(req.Role),
		IsApproved: approved,
	}, &by, requestMeta(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": newUserResponse(user)})
}

func (h HandlerSet) AdminUpdateUser(c *gin.Context) {
	by, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	targetID, ok := h.userIDParam(c)
	if !ok {
		return
	}

	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.authService.UpdateUserProfile(c.Request.Context(), targetID, req.input(), by, requestMeta(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": newUserResponse(user)})
}

// confirmRequest carries the caller's own password. Every security posture
// change re-authenticates the caller with it.
type confirmRequest struct {
	Password string `json:"password" binding:"required"`
}

type roleRequest struct {
	Role     string `json:"role" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h HandlerSet) AdminUpdateRole(c *gin.Context) {
	targetID, ok := h.userIDParam(c)
	if !ok {
		return
	}

	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	actor, ok := h.actor(c, req.Password)
	if !ok {
		return
	}

	user, err := h.authService.UpdateUserRole(c.Request.Context(), targetID, models.UserRole(req.Role), actor)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": newUserResponse(user)})
}

type postureChange func(ctx context.Context, targetID string, actor service.Actor) (models.User, error)

func (h HandlerSet) AdminActivateUser(c *gin.Context) {
	h.changePosture(c, h.authService.ActivateUser)
}

func (h HandlerSet) AdminDeactivateUser(c *gin.Context) {
	h.changePosture(c, h.authService.DeactivateUser)
}

func (h HandlerSet) AdminApproveUser(c *gin.Context) {
	h.changePosture(c, h.authService.ApproveUser)
}

func (h HandlerSet) changePosture(c *gin.Context, change postureChange) {
	targetID, ok := h.userIDParam(c)
	if !ok {
		return
	}

	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	actor, ok := h.actor(c, req.Password)
	if !ok {
		return
	}

	user, err := change(c.Request.Context(), targetID, actor)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": newUserResponse(user)})
}

func (h HandlerSet) AdminDeleteUser(c *gin.Context) {
	targetID, ok := h.userIDParam(c)
	if !ok {
		return
	}

	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	actor, ok := h.actor(c, req.Password)
	if !ok {
		return
	}

	if err := h.authService.DeleteUser(c.Request.Context(), targetID, actor); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h HandlerSet) actor(c *gin.Context, password string) (service.Actor, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return service.Actor{}, false
	}
	meta := requestMeta(c)
	return service.Actor{
		ID:        user.ID,
		Password:  password,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	}, true
}

// userIDParam reads the :id path parameter. User ids are UUIDs, so anything
// else cannot name an account and answers 404.
func (h HandlerSet) userIDParam(c *gin.Context) (string, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.respondError(c, service.ErrUserNotFound)
		return "", false
	}
	return id.String(), true
}
