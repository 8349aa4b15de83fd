package main

import (
	"fmt"
	"sync"

	"gorm.io/gorm"

	"github.com/user/movienest/internal/config"
	"github.com/user/movienest/internal/repository"
)

// commandContext 命令共享的数据库连接，按需打开
type commandContext struct {
	databaseURL string
	open        func(url string) (*gorm.DB, error)

	once  sync.Once
	users *repository.UserRepository
	err   error
}

func newCommandContext() *commandContext {
	return &commandContext{open: openDatabase}
}

// openDatabase 打开数据库并迁移表结构；命令行只需要数据库配置，其余凭据缺失不影响
func openDatabase(url string) (*gorm.DB, error) {
	if url == "" {
		cfg, _ := config.Load(".env")
		url = cfg.DatabaseURL
	}
	db, err := repository.InitDB(url)
	if err != nil {
		return nil, err
	}
	if err := repository.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}
	return db, nil
}

func (c *commandContext) userRepository() (*repository.UserRepository, error) {
	c.once.Do(func() {
		db, err := c.open(c.databaseURL)
		if err != nil {
			c.err = err
			return
		}
		c.users = repository.NewUserRepository(db)
	})
	return c.users, c.err
}
