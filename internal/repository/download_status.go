package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/user/movienest/internal/model"
)

// DownloadStatusRepository 按哈希保存的下载状态，最后写入者生效
type DownloadStatusRepository struct {
	db *gorm.DB
}

func NewDownloadStatusRepository(db *gorm.DB) *DownloadStatusRepository {
	return &DownloadStatusRepository{db: db}
}

// Get 查询记录，不存在时返回 nil
func (r *DownloadStatusRepository) Get(ctx context.Context, hash string) (*model.DownloadStatusRecord, error) {
	var rec model.DownloadStatusRecord
	err := r.db.WithContext(ctx).Where("hash = ?", hash).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetMany 批量查询，返回 hash -> 记录
func (r *DownloadStatusRepository) GetMany(ctx context.Context, hashes []string) (map[string]*model.DownloadStatusRecord, error) {
	out := make(map[string]*model.DownloadStatusRecord, len(hashes))
	if len(hashes) == 0 {
		return out, nil
	}
	var recs []*model.DownloadStatusRecord
	if err := r.db.WithContext(ctx).Where("hash IN ?", hashes).Find(&recs).Error; err != nil {
		return nil, err
	}
	for _, rec := range recs {
		out[rec.Hash] = rec
	}
	return out, nil
}

// Set 写入状态，已存在则更新 status 和 updated_at
func (r *DownloadStatusRepository) Set(ctx context.Context, hash string, status model.DownloadStatus) error {
	now := time.Now()
	rec := &model.DownloadStatusRecord{
		Hash:      hash,
		Status:    status.String(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "hash"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "updated_at"}),
	}).Create(rec).Error
}
