package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shelfwise/shelfwise/internal/auth"
	"github.com/shelfwise/shelfwise/internal/storage"
)

// UsersController handles registration, login and profile management.
type UsersController struct {
	service  *auth.Service
	sessions *auth.SessionManager
	files    storage.FileStore
	logger   *zap.Logger
}

func NewUsersController(service *auth.Service, sessions *auth.SessionManager, files storage.FileStore, logger *zap.Logger) *UsersController {
	return &UsersController{
		service:  service,
		sessions: sessions,
		files:    files,
		logger:   logger,
	}
}

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (controller *UsersController) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "name, username, email and password are required")
		return
	}

	user, err := controller.service.Register(c.Request.Context(), req.Name, req.Username, req.Email, req.Password)
	if err != nil {
		respondDomainError(c, controller.logger, err, "register")
		return
	}

	if err := controller.sessions.CreateSession(c.Request, user); err != nil {
		respondInternalError(c, controller.logger, err, "create session")
		return
	}
	respondCreated(c, user)
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (controller *UsersController) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "username and password are required")
		return
	}

	user, err := controller.service.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) || errors.Is(err, auth.ErrInvalidPassword) {
			respondError(c, http.StatusUnauthorized, "incorrect username or password")
			return
		}
		respondInternalError(c, controller.logger, err, "login")
		return
	}

	if err := controller.sessions.CreateSession(c.Request, user); err != nil {
		respondInternalError(c, controller.logger, err, "create session")
		return
	}
	c.JSON(http.StatusOK, user)
}

func (controller *UsersController) Logout(c *gin.Context) {
	if err := controller.sessions.DestroySession(c.Request); err != nil {
		respondInternalError(c, controller.logger, err, "logout")
		return
	}
	respondSuccess(c, "logged out")
}

// Profile returns the current user. After a rejected profile edit the
// submitted fields are returned once under "draft" so a client can
// redisplay them.
func (controller *UsersController) Profile(c *gin.Context) {
	user, err := controller.service.GetUserByID(c.Request.Context(), auth.GetUserID(c))
	if err != nil {
		respondDomainError(c, controller.logger, err, "get profile")
		return
	}

	response := gin.H{"user": user}
	if draft, ok := controller.sessions.PopProfileFlash(c.Request); ok {
		response["draft"] = draft
	}
	c.JSON(http.StatusOK, response)
}

// UpdateProfile applies a password-gated edit submitted as a multipart form
// so a new profile picture can ride along. On a wrong password the submitted
// fields are parked in the session and surfaced by the next Profile call.
func (controller *UsersController) UpdateProfile(c *gin.Context) {
	update := auth.ProfileUpdate{
		Name:     c.PostForm("name"),
		Username: c.PostForm("username"),
		Email:    c.PostForm("email"),
	}
	password := c.PostForm("password")

	data, ext, ok := readUpload(c, "picture", pictureExts)
	if !ok {
		return
	}
	if data != nil {
		ref, err := controller.files.Store(data, ext)
		if err != nil {
			respondInternalError(c, controller.logger, err, "store profile picture")
			return
		}
		update.ProfilePicture = ref
	}

	userID := auth.GetUserID(c)
	user, err := controller.service.UpdateProfile(c.Request.Context(), userID, password, update)
	if err != nil {
		if errors.Is(err, auth.ErrWrongPassword) {
			controller.sessions.PutProfileFlash(c.Request, update)
			respondError(c, http.StatusForbidden, err.Error())
			return
		}
		respondDomainError(c, controller.logger, err, "update profile")
		return
	}
	c.JSON(http.StatusOK, user)
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

func (controller *UsersController) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "old_password and new_password are required")
		return
	}

	err := controller.service.ChangePassword(c.Request.Context(), auth.GetUserID(c), req.OldPassword, req.NewPassword)
	if err != nil {
		if errors.Is(err, auth.ErrWrongPassword) {
			respondError(c, http.StatusForbidden, err.Error())
			return
		}
		respondDomainError(c, controller.logger, err, "change password")
		return
	}
	respondSuccess(c, "password changed")
}

type deleteAccountRequest struct {
	Password string `json:"password" binding:"required"`
}

// DeleteAccount removes the user and all their requests, loans and feedback
// after a password confirmation, then ends the session.
func (controller *UsersController) DeleteAccount(c *gin.Context) {
	var req deleteAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "password is required")
		return
	}

	err := controller.service.DeleteAccount(c.Request.Context(), auth.GetUserID(c), req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrWrongPassword) {
			respondError(c, http.StatusForbidden, err.Error())
			return
		}
		respondDomainError(c, controller.logger, err, "delete account")
		return
	}

	if err := controller.sessions.DestroySession(c.Request); err != nil {
		controller.logger.Warn("failed to destroy session after account deletion", zap.Error(err))
	}
	respondSuccess(c, "account deleted")
}

type resetRequestRequest struct {
	Email string `json:"email" binding:"required"`
}

// RequestPasswordReset always reports success so the endpoint does not
// reveal which addresses have accounts.
func (controller *UsersController) RequestPasswordReset(c *gin.Context) {
	var req resetRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "email is required")
		return
	}

	controller.service.RequestPasswordReset(c.Request.Context(), req.Email)
	respondSuccess(c, "if the email is registered, a reset link has been sent")
}

type resetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (controller *UsersController) ResetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "token and password are required")
		return
	}

	user, err := controller.service.ResetPassword(c.Request.Context(), req.Token, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			respondBadRequest(c, err.Error())
			return
		}
		respondDomainError(c, controller.logger, err, "reset password")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "password reset", "username": user.Username})
}
