package middleware

import (
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/user/movienest/internal/logger"
	"github.com/user/movienest/internal/model"
	"github.com/user/movienest/internal/utils"
)

const (
	// SessionName session cookie 名称
	SessionName = "sid"

	sessionUserKey = "user_id"
	sessionSeenKey = "seen_at"
	contextUserKey = "user"
)

// UserLoader 按 ID 加载用户
type UserLoader interface {
	FindByID(id int) (*model.User, error)
}

// RequireAuth 必须登录中间件：加载当前用户，拒绝已停用或未审核账号，并续期 session
func RequireAuth(users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID, ok := session.Get(sessionUserKey).(int)
		if !ok || userID <= 0 {
			utils.Unauthorized(c, "")
			return
		}

		user, err := users.FindByID(userID)
		if err != nil {
			logger.Component("auth").WithError(err).Error("加载用户失败")
			utils.InternalServerError(c, "")
			return
		}
		if user == nil || !user.IsActive || !user.IsApproved {
			// 用户被删除、停用或撤销审核，会话立即失效
			ClearSession(c)
			utils.Unauthorized(c, "")
			return
		}

		// 滑动续期：每次请求重新写入 session，cookie 和存储的过期时间随之顺延
		session.Set(sessionSeenKey, time.Now().Unix())
		if err := session.Save(); err != nil {
			logger.Component("auth").WithError(err).Warn("session 续期失败")
		}

		c.Set(contextUserKey, user)
		c.Set("user_id", user.ID)
		c.Set("role", user.Role)
		c.Next()
	}
}

// RequireAdmin 管理员权限中间件
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := GetUser(c)
		if user == nil {
			utils.Unauthorized(c, "")
			return
		}
		if !user.IsAdmin() {
			utils.Forbidden(c, "admin role required")
			return
		}
		c.Next()
	}
}

// StartSession 登录成功后写入 session
func StartSession(c *gin.Context, user *model.User) error {
	session := sessions.Default(c)
	session.Clear()
	session.Set(sessionUserKey, user.ID)
	session.Set(sessionSeenKey, time.Now().Unix())
	return session.Save()
}

// ClearSession 注销 session
func ClearSession(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := session.Save(); err != nil {
		logger.Component("auth").WithError(err).Warn("清除 session 失败")
	}
}

// SessionUserID session 中的用户 ID（未登录返回 0），不访问数据库
func SessionUserID(c *gin.Context) int {
	if id, ok := sessions.Default(c).Get(sessionUserKey).(int); ok {
		return id
	}
	return 0
}

// GetUser 从上下文获取当前用户（未登录返回 nil）
func GetUser(c *gin.Context) *model.User {
	if v, exists := c.Get(contextUserKey); exists {
		if u, ok := v.(*model.User); ok {
			return u
		}
	}
	return nil
}

// GetUserID 从上下文获取用户 ID（未登录返回 0）
func GetUserID(c *gin.Context) int {
	if userID, exists := c.Get("user_id"); exists {
		return userID.(int)
	}
	return 0
}
