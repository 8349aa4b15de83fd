package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/user/movienest/internal/model"
)

type WatchlistRepository struct {
	db *gorm.DB
}

func NewWatchlistRepository(db *gorm.DB) *WatchlistRepository {
	return &WatchlistRepository{db: db}
}

// Add 加入片单，重复添加时返回已有记录
func (r *WatchlistRepository) Add(entry *model.WatchlistEntry) (*model.WatchlistEntry, error) {
	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "movie_id"}},
		DoNothing: true,
	}).Create(entry).Error
	if err != nil {
		return nil, err
	}

	var saved model.WatchlistEntry
	err = r.db.Where("user_id = ? AND movie_id = ?", entry.UserID, entry.MovieID).First(&saved).Error
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// Remove 移出片单
func (r *WatchlistRepository) Remove(userID, movieID int) (int64, error) {
	res := r.db.Where("user_id = ? AND movie_id = ?", userID, movieID).Delete(&model.WatchlistEntry{})
	return res.RowsAffected, res.Error
}

// ListByUser 获取用户片单，最近添加的在前
func (r *WatchlistRepository) ListByUser(userID int) ([]*model.WatchlistEntry, error) {
	var entries []*model.WatchlistEntry
	err := r.db.Where("user_id = ?", userID).Order("added_at DESC, id DESC").Find(&entries).Error
	return entries, err
}

// Contains 是否已在片单中
func (r *WatchlistRepository) Contains(userID, movieID int) (bool, error) {
	var count int64
	err := r.db.Model(&model.WatchlistEntry{}).
		Where("user_id = ? AND movie_id = ?", userID, movieID).
		Count(&count).Error
	return count > 0, err
}
