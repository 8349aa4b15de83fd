package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/user/movienest/internal/model"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create 创建用户
func (r *UserRepository) Create(username, password, role string, approved bool) (*model.User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username:   username,
		Password:   hash,
		Role:       role,
		IsActive:   true,
		IsApproved: approved,
		CreatedAt:  time.Now(),
	}

	if err := r.db.Create(user).Error; err != nil {
		if IsUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}

	return user, nil
}

// FindByUsername 根据用户名查找用户
func (r *UserRepository) FindByUsername(username string) (*model.User, error) {
	var user model.User
	err := r.db.Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// FindByID 根据 ID 查找用户
func (r *UserRepository) FindByID(id int) (*model.User, error) {
	var user model.User
	err := r.db.First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// CheckPassword 验证密码
func (r *UserRepository) CheckPassword(user *model.User, password string) bool {
	return VerifyPassword(user.Password, password)
}

// ListAll 获取所有用户，按用户名排序
func (r *UserRepository) ListAll() ([]*model.User, error) {
	var users []*model.User
	err := r.db.Order("username ASC").Find(&users).Error
	return users, err
}

// UpdateRole 更新用户角色，用户不存在时返回 nil
func (r *UserRepository) UpdateRole(userID int, role string) (*model.User, error) {
	return r.updateColumns(userID, map[string]interface{}{"role": role})
}

// UpdateUsername 更新用户名
func (r *UserRepository) UpdateUsername(userID int, username string) (*model.User, error) {
	user, err := r.updateColumns(userID, map[string]interface{}{"username": username})
	if IsUniqueViolation(err) {
		return nil, ErrDuplicate
	}
	return user, err
}

// UpdatePassword 更新密码
func (r *UserRepository) UpdatePassword(userID int, newPassword string) (*model.User, error) {
	hash, err := HashPassword(newPassword)
	if err != nil {
		return nil, err
	}
	return r.updateColumns(userID, map[string]interface{}{"password": hash})
}

// ToggleActive 切换启用状态
func (r *UserRepository) ToggleActive(userID int) (*model.User, error) {
	return r.updateColumns(userID, map[string]interface{}{"is_active": gorm.Expr("NOT is_active")})
}

// ToggleApproved 切换审核状态
func (r *UserRepository) ToggleApproved(userID int) (*model.User, error) {
	return r.updateColumns(userID, map[string]interface{}{"is_approved": gorm.Expr("NOT is_approved")})
}

// Delete 在事务中删除用户及其片单，返回用户是否存在
func (r *UserRepository) Delete(userID int) (bool, error) {
	found := false
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&model.WatchlistEntry{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.User{}, userID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// 回滚片单删除
			return gorm.ErrRecordNotFound
		}
		found = true
		return nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return found, err
}

// UpsertAdmin 创建或重置管理员账号，返回是否新建
func (r *UserRepository) UpsertAdmin(username, password string) (bool, error) {
	existing, err := r.FindByUsername(username)
	if err != nil {
		return false, err
	}
	if existing == nil {
		_, err := r.Create(username, password, model.RoleAdmin, true)
		return err == nil, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return false, err
	}
	err = r.db.Model(&model.User{}).Where("id = ?", existing.ID).Updates(map[string]interface{}{
		"password":    hash,
		"role":        model.RoleAdmin,
		"is_active":   true,
		"is_approved": true,
	}).Error
	return false, err
}

func (r *UserRepository) updateColumns(userID int, columns map[string]interface{}) (*model.User, error) {
	res := r.db.Model(&model.User{}).Where("id = ?", userID).Updates(columns)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return r.FindByID(userID)
}
