package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // 确保在精简镜像中也能识别时区

	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/postgres"
	"github.com/gin-gonic/gin"

	"github.com/user/movienest/internal/config"
	"github.com/user/movienest/internal/handler"
	"github.com/user/movienest/internal/logger"
	"github.com/user/movienest/internal/middleware"
	"github.com/user/movienest/internal/repository"
	"github.com/user/movienest/internal/router"
	"github.com/user/movienest/internal/service"
)

func main() {
	// 加载配置（含 .env），缺少凭据时直接退出
	cfg, err := config.Load(".env")
	if cfg != nil {
		logger.Init(cfg.Env, cfg.LogLevel)
	}
	log := logger.Component("server")
	if cfg != nil && cfg.EnvFile == "" {
		log.Debug("未找到 .env 文件，使用系统环境变量")
	}
	if err != nil {
		log.WithError(err).Fatal("配置无效")
	}

	// 初始化数据库
	db, sessionDB, closeStores, err := openStores(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("数据库初始化失败")
	}
	defer closeStores()

	// 初始化仓库
	repos := repository.NewRepositories(db, sessionDB)

	// 初始化 Gin
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	// 启用 gzip，默认压缩级别
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 设置 Session 中间件
	store, err := postgres.NewStore(sessionDB, []byte(cfg.SessionSecret))
	if err != nil {
		log.WithError(err).Fatal("初始化 session 存储失败")
	}
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.SessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(middleware.SessionName, store))

	r.Use(middleware.Logger())

	// 初始化 Handler
	h := handler.NewHandler(repos, cfg)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// 启动定时清理任务
	cleanupSvc := service.NewCleanupService(repos.Session, 6*time.Hour)
	cleanupSvc.Start(ctx)

	// 注册路由
	router.RegisterRoutes(r, h)

	srv := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   60 * time.Second, // 详情和版本总览会并发访问多个上游
		MaxHeaderBytes: 1 << 20,
	}

	// 在 goroutine 中启动服务器，这样我们就可以监听信号
	go func() {
		log.Infof("服务器启动于 http://localhost:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("服务器启动失败")
		}
	}()

	// 等待中断信号以优雅地关闭服务器
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("正在关闭服务器...")
	stop()

	// 5 秒超时上下文用于关闭过程
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("服务器强制关闭")
	}

	log.Info("服务器已退出")
}
