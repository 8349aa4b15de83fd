package model

import (
	"time"
)

// 用户角色
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User 用户模型
type User struct {
	ID         int       `json:"id" gorm:"primaryKey"`
	Username   string    `json:"username" gorm:"uniqueIndex;not null"`
	Password   string    `json:"-" gorm:"not null"`
	Role       string    `json:"role" gorm:"not null;default:user"`
	IsActive   bool      `json:"is_active" gorm:"not null;default:true"`
	IsApproved bool      `json:"is_approved" gorm:"not null;default:false"`
	CreatedAt  time.Time `json:"created_at"`
}

// IsAdmin 是否管理员
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// ValidRole 角色是否合法
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}
