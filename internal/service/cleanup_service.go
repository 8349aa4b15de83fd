package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/user/movienest/internal/logger"
)

// SessionPruner 删除过期 session
type SessionPruner interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// CleanupService 清理服务
type CleanupService struct {
	sessions SessionPruner
	interval time.Duration
	log      *logrus.Entry
}

// NewCleanupService 创建清理服务
func NewCleanupService(sessions SessionPruner, interval time.Duration) *CleanupService {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &CleanupService{
		sessions: sessions,
		interval: interval,
		log:      logger.Component("cleanup"),
	}
}

// Start 启动定时清理任务，ctx 取消后退出
func (s *CleanupService) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)

	go func() {
		defer ticker.Stop()

		// 启动时先运行一次
		s.RunOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.RunOnce(ctx)
			}
		}
	}()
}

// RunOnce 执行一次清理
func (s *CleanupService) RunOnce(ctx context.Context) {
	s.log.Debug("开始清理过期数据...")

	affected, err := s.sessions.DeleteExpired(ctx)
	if err != nil {
		s.log.WithError(err).Error("清理过期 session 失败")
		return
	}
	if affected > 0 {
		s.log.WithField("affected", affected).Info("已清理过期 session")
	}
}
