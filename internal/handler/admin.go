package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/user/movienest/internal/logger"
	"github.com/user/movienest/internal/middleware"
	"github.com/user/movienest/internal/model"
	"github.com/user/movienest/internal/repository"
	"github.com/user/movienest/internal/service"
	"github.com/user/movienest/internal/utils"
)

// ==================== 用户管理 ====================

type createUserRequest struct {
	Username string `json:"username" binding:"required,min=3"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role" binding:"required,oneof=user admin"`
}

type roleRequest struct {
	Role string `json:"role" binding:"required,oneof=user admin"`
}

type usernameRequest struct {
	Username string `json:"username" binding:"required,min=3"`
}

type resetPasswordRequest struct {
	NewPassword string `json:"newPassword" binding:"required,min=6"`
}

// targetUserID 解析目标用户 ID，禁止管理员修改自己
func (h *Handler) targetUserID(c *gin.Context) (int, bool) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return 0, false
	}
	if id == middleware.GetUserID(c) {
		respondError(c, service.ErrSelfModification, "")
		return 0, false
	}
	return id, true
}

func (h *Handler) auditLog(c *gin.Context, action string, target int) {
	logger.Component("admin").WithFields(logrus.Fields{
		"admin_id": middleware.GetUserID(c),
		"action":   action,
		"target":   target,
	}).Info("管理操作")
}

// respondUser 返回更新后的用户，nil 表示不存在
func respondUser(c *gin.Context, user *model.User, err error) {
	if errors.Is(err, repository.ErrDuplicate) {
		utils.BadRequest(c, "username already taken")
		return
	}
	if err != nil {
		respondError(c, err, "")
		return
	}
	if user == nil {
		utils.NotFound(c, "user not found")
		return
	}
	utils.Success(c, user)
}

// AdminListUsers 用户列表
func (h *Handler) AdminListUsers(c *gin.Context) {
	users, err := h.Repos.User.ListAll()
	if err != nil {
		respondError(c, err, "")
		return
	}
	if users == nil {
		users = []*model.User{}
	}
	utils.Success(c, users)
}

// AdminCreateUser 创建用户，管理员创建的账号直接通过审核
func (h *Handler) AdminCreateUser(c *gin.Context) {
	var req createUserRequest
	if !bindJSON(c, &req, "username", "password", "role") {
		return
	}

	user, err := h.Repos.User.Create(req.Username, req.Password, req.Role, true)
	if errors.Is(err, repository.ErrDuplicate) {
		utils.BadRequest(c, "username already taken")
		return
	}
	if err != nil {
		respondError(c, err, "")
		return
	}

	h.auditLog(c, "create", user.ID)
	utils.Created(c, user)
}

// AdminUpdateRole 修改角色
func (h *Handler) AdminUpdateRole(c *gin.Context) {
	id, ok := h.targetUserID(c)
	if !ok {
		return
	}
	var req roleRequest
	if !bindJSON(c, &req, "role") {
		return
	}

	user, err := h.Repos.User.UpdateRole(id, req.Role)
	h.auditLog(c, "role:"+req.Role, id)
	respondUser(c, user, err)
}

// AdminUpdateUsername 修改用户名
func (h *Handler) AdminUpdateUsername(c *gin.Context) {
	id, ok := h.targetUserID(c)
	if !ok {
		return
	}
	var req usernameRequest
	if !bindJSON(c, &req, "username") {
		return
	}

	user, err := h.Repos.User.UpdateUsername(id, req.Username)
	h.auditLog(c, "username", id)
	respondUser(c, user, err)
}

// AdminResetPassword 重置密码
func (h *Handler) AdminResetPassword(c *gin.Context) {
	id, ok := h.targetUserID(c)
	if !ok {
		return
	}
	var req resetPasswordRequest
	if !bindJSON(c, &req, "newPassword") {
		return
	}

	user, err := h.Repos.User.UpdatePassword(id, req.NewPassword)
	if err != nil {
		respondError(c, err, "")
		return
	}
	if user == nil {
		utils.NotFound(c, "user not found")
		return
	}

	h.auditLog(c, "reset-password", id)
	utils.Success(c, gin.H{"message": "password reset successfully"})
}

// AdminToggleActive 启用/停用
func (h *Handler) AdminToggleActive(c *gin.Context) {
	id, ok := h.targetUserID(c)
	if !ok {
		return
	}
	user, err := h.Repos.User.ToggleActive(id)
	h.auditLog(c, "toggle-active", id)
	respondUser(c, user, err)
}

// AdminToggleApproved 审核/取消审核
func (h *Handler) AdminToggleApproved(c *gin.Context) {
	id, ok := h.targetUserID(c)
	if !ok {
		return
	}
	user, err := h.Repos.User.ToggleApproved(id)
	h.auditLog(c, "toggle-approved", id)
	respondUser(c, user, err)
}

// AdminDeleteUser 删除用户及其片单
func (h *Handler) AdminDeleteUser(c *gin.Context) {
	id, ok := h.targetUserID(c)
	if !ok {
		return
	}

	found, err := h.Repos.User.Delete(id)
	if err != nil {
		respondError(c, err, "")
		return
	}
	if !found {
		utils.NotFound(c, "user not found")
		return
	}

	h.auditLog(c, "delete", id)
	utils.NoContent(c)
}
