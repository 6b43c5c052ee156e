package handler

import (
	appidentity "github.com/b2bmarket/backend/internal/application/identity"
	"github.com/gin-gonic/gin"
)

// UserListQuery filters the company's users
type UserListQuery struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Search   string `form:"q"`
	Role     string `form:"role" binding:"omitempty,oneof=admin member"`
	Status   string `form:"status" binding:"omitempty,oneof=active invited"`
}

// InviteUserRequest invites a colleague
type InviteUserRequest struct {
	Name  string `json:"name" binding:"required,max=100"`
	Email string `json:"email" binding:"required,email"`
	Role  string `json:"role" binding:"omitempty,oneof=admin member"`
}

// UpdateUserRequest changes a colleague; omitted fields are kept
type UpdateUserRequest struct {
	Name *string `json:"name" binding:"omitempty,max=100"`
	Role *string `json:"role" binding:"omitempty,oneof=admin member"`
}

// UpdateMeRequest changes the signed-in user's own profile
type UpdateMeRequest struct {
	Name string `json:"name" binding:"required,max=100"`
}

// UserHandler serves the company's user administration and the signed-in
// user's own profile
type UserHandler struct {
	BaseHandler
	userService *appidentity.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *appidentity.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// List godoc
// @ID           listUsers
// @Summary      List company users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        page query int false "Page number"
// @Param        page_size query int false "Page size"
// @Param        q query string false "Name or email search"
// @Param        role query string false "admin or member"
// @Param        status query string false "active or invited"
// @Success      200 {object} APIResponse[[]appidentity.UserDTO]
// @Failure      403 {object} ErrorResponse
// @Router       /users [get]
func (h *UserHandler) List(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var q UserListQuery
	if !h.bindQuery(c, &q) {
		return
	}

	users, err := h.userService.List(c.Request.Context(), actor, appidentity.UserListFilter{
		Page:     q.Page,
		PageSize: q.PageSize,
		Search:   q.Search,
		Role:     q.Role,
		Status:   q.Status,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	Paginated(&h.BaseHandler, c, users)
}

// Invite godoc
// @ID           inviteUser
// @Summary      Invite a user
// @Description  Creates an invited user in the admin's company and mails an invitation link
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body InviteUserRequest true "Invitee"
// @Success      201 {object} APIResponse[appidentity.UserDTO]
// @Failure      403 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /users/invite [post]
func (h *UserHandler) Invite(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req InviteUserRequest
	if !h.bindJSON(c, &req) {
		return
	}

	user, err := h.userService.Invite(c.Request.Context(), actor, appidentity.InviteUserInput{
		Name:  req.Name,
		Email: req.Email,
		Role:  req.Role,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, user)
}

// Update godoc
// @ID           updateUser
// @Summary      Update a user
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "User ID"
// @Param        request body UpdateUserRequest true "Changes"
// @Success      200 {object} APIResponse[appidentity.UserDTO]
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /users/{id} [put]
func (h *UserHandler) Update(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req UpdateUserRequest
	if !h.bindJSON(c, &req) {
		return
	}

	user, err := h.userService.Update(c.Request.Context(), actor, c.Param("id"), appidentity.UpdateUserInput{
		Name: req.Name,
		Role: req.Role,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}

// Delete godoc
// @ID           deleteUser
// @Summary      Remove a user
// @Tags         users
// @Security     BearerAuth
// @Param        id path string true "User ID"
// @Success      204
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /users/{id} [delete]
func (h *UserHandler) Delete(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	if err := h.userService.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// GetMe godoc
// @ID           getMe
// @Summary      Own user profile
// @Tags         me
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} APIResponse[appidentity.UserDTO]
// @Router       /me [get]
func (h *UserHandler) GetMe(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	user, err := h.userService.GetMe(c.Request.Context(), actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}

// UpdateMe godoc
// @ID           updateMe
// @Summary      Update own user profile
// @Tags         me
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body UpdateMeRequest true "Profile"
// @Success      200 {object} APIResponse[appidentity.UserDTO]
// @Failure      400 {object} ErrorResponse
// @Router       /me [put]
func (h *UserHandler) UpdateMe(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req UpdateMeRequest
	if !h.bindJSON(c, &req) {
		return
	}
	user, err := h.userService.UpdateMe(c.Request.Context(), actor, req.Name)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, user)
}
