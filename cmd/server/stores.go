package main

import (
	"database/sql"
	"fmt"

	"gorm.io/gorm"

	"github.com/user/movienest/internal/repository"
)

// openStores 打开业务库与 session 库并完成迁移；失败时已打开的连接会被关闭
func openStores(databaseURL string) (*gorm.DB, *sql.DB, func(), error) {
	db, err := repository.InitDB(databaseURL)
	if err != nil {
		return nil, nil, nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("获取底层连接失败: %w", err)
	}

	if err := repository.AutoMigrate(db); err != nil {
		sqlDB.Close()
		return nil, nil, nil, fmt.Errorf("数据库迁移失败: %w", err)
	}

	sessionDB, err := repository.OpenSessionDB(databaseURL)
	if err != nil {
		sqlDB.Close()
		return nil, nil, nil, err
	}

	closeAll := func() {
		sessionDB.Close()
		sqlDB.Close()
	}
	return db, sessionDB, closeAll, nil
}
