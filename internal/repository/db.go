package repository

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/user/movienest/internal/model"
)

// InitDB 初始化数据库连接
func InitDB(databaseURL string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("无法连接数据库: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层连接失败: %w", err)
	}

	// 测试连接
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("数据库 ping 失败: %w", err)
	}

	// 设置连接池
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// OpenSessionDB 为 session 存储打开独立的 lib/pq 连接
func OpenSessionDB(databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("无法连接 session 数据库: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("session 数据库 ping 失败: %w", err)
	}
	db.SetMaxOpenConns(5)
	return db, nil
}

// AutoMigrate 同步表结构
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.WatchlistEntry{},
		&model.DownloadStatusRecord{},
	)
}

// Repositories 仓库集合
type Repositories struct {
	DB             *gorm.DB
	User           *UserRepository
	Watchlist      *WatchlistRepository
	DownloadStatus *DownloadStatusRepository
	Session        *SessionRepository
}

// NewRepositories 创建仓库集合，sessionDB 可为 nil（不清理 session）
func NewRepositories(db *gorm.DB, sessionDB *sql.DB) *Repositories {
	return &Repositories{
		DB:             db,
		User:           NewUserRepository(db),
		Watchlist:      NewWatchlistRepository(db),
		DownloadStatus: NewDownloadStatusRepository(db),
		Session:        NewSessionRepository(sessionDB),
	}
}
