package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/user/movienest/internal/logger"
	"github.com/user/movienest/internal/middleware"
	"github.com/user/movienest/internal/model"
	"github.com/user/movienest/internal/repository"
	"github.com/user/movienest/internal/utils"
)

type credentialsRequest struct {
	Username string `json:"username" binding:"required,min=3"`
	Password string `json:"password" binding:"required,min=6"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register 注册，新账号需要管理员审核后才能登录
func (h *Handler) Register(c *gin.Context) {
	var req credentialsRequest
	if !bindJSON(c, &req, "username", "password") {
		return
	}

	user, err := h.Repos.User.Create(req.Username, req.Password, model.RoleUser, false)
	if errors.Is(err, repository.ErrDuplicate) {
		utils.BadRequest(c, "username already taken")
		return
	}
	if err != nil {
		respondError(c, err, "")
		return
	}

	logger.Component("auth").WithField("username", user.Username).Info("新用户注册，等待审核")
	utils.Created(c, gin.H{
		"message": "registration successful, waiting for approval",
		"user":    user,
	})
}

// Login 登录
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req, "username", "password") {
		return
	}

	user, err := h.Repos.User.FindByUsername(req.Username)
	if err != nil {
		respondError(c, err, "")
		return
	}
	if user == nil {
		utils.Unauthorized(c, "invalid credentials")
		return
	}
	if !user.IsApproved {
		utils.Unauthorized(c, "account has not been approved yet")
		return
	}
	if !user.IsActive {
		utils.Unauthorized(c, "account has been disabled")
		return
	}
	if !h.Repos.User.CheckPassword(user, req.Password) {
		utils.Unauthorized(c, "invalid credentials")
		return
	}

	// 旧格式哈希登录成功后升级为 bcrypt
	if repository.IsLegacyHash(user.Password) {
		if _, err := h.Repos.User.UpdatePassword(user.ID, req.Password); err != nil {
			logger.Component("auth").WithError(err).WithField("user_id", user.ID).Warn("升级密码哈希失败")
		}
	}

	if err := middleware.StartSession(c, user); err != nil {
		respondError(c, err, "")
		return
	}

	utils.Success(c, user)
}

// Logout 退出登录
func (h *Handler) Logout(c *gin.Context) {
	middleware.ClearSession(c)
	utils.Success(c, gin.H{"message": "logged out"})
}

// CurrentUser 当前登录用户
func (h *Handler) CurrentUser(c *gin.Context) {
	id := middleware.SessionUserID(c)
	if id == 0 {
		utils.Unauthorized(c, "")
		return
	}

	user, err := h.Repos.User.FindByID(id)
	if err != nil {
		respondError(c, err, "")
		return
	}
	if user == nil || !user.IsActive || !user.IsApproved {
		middleware.ClearSession(c)
		utils.Unauthorized(c, "")
		return
	}

	utils.Success(c, user)
}
