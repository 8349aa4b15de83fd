package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/user/movienest/internal/config"
	"github.com/user/movienest/internal/model"
	"github.com/user/movienest/internal/repository"
	"github.com/user/movienest/internal/service"
	"github.com/user/movienest/internal/utils"
)

// MovieCatalog 电影元数据
type MovieCatalog interface {
	Search(ctx context.Context, query string, page int) (*model.MoviePage, error)
	Trending(ctx context.Context) (*model.MoviePage, error)
	Details(ctx context.Context, id int) (*model.MovieDetails, error)
}

// Downloads 下载状态核心
type Downloads interface {
	CheckQueue(ctx context.Context, hash string) (model.QueueState, error)
	Submit(ctx context.Context, hash, tmdbID string) (model.DownloadStatus, error)
	PersistedStatus(ctx context.Context, hash string) (*model.DownloadStatusView, error)
	VersionOverview(ctx context.Context, tmdbID string) ([]model.VersionOverview, error)
}

// ObjectStorage 对象存储
type ObjectStorage interface {
	Exists(ctx context.Context, hash string) (bool, error)
	PresignDownload(ctx context.Context, hash, title, year string) (string, error)
}

// Handler HTTP 处理器
type Handler struct {
	Repos     *repository.Repositories
	Config    *config.Config
	Movies    MovieCatalog
	Versions  service.JobSource
	Downloads Downloads
	Storage   ObjectStorage
}

// NewHandler 创建处理器
func NewHandler(repos *repository.Repositories, cfg *config.Config) *Handler {
	nzb := service.NewNZBClient(cfg.NZB)
	storage := service.NewStorageService(cfg.Storage)
	sab := service.NewSABnzbdClient(cfg.SABnzbd)

	// 占用超时需覆盖一次完整提交的上游超时
	claims := utils.NewClaimRegistry(2 * time.Minute)

	return &Handler{
		Repos:     repos,
		Config:    cfg,
		Movies:    service.NewTMDBService(cfg.TMDB),
		Versions:  nzb,
		Downloads: service.NewDownloadService(sab, nzb, repos.DownloadStatus, storage, claims, sab.HistoryLimit()),
		Storage:   storage,
	}
}

// respondError 将业务错误映射为 HTTP 状态码
func respondError(c *gin.Context, err error, fallback string) {
	_ = c.Error(err)

	var conflict *service.ConflictError
	switch {
	case errors.As(err, &conflict):
		utils.Conflict(c, conflict.Reason)
	case errors.Is(err, service.ErrSelfModification):
		utils.BadRequest(c, err.Error())
	case errors.Is(err, service.ErrNotFound):
		utils.NotFound(c, "")
	case errors.Is(err, context.Canceled):
		// 客户端已断开，上游错误中包装的取消也按此处理
		c.AbortWithStatus(499)
	case errors.Is(err, service.ErrUpstream):
		utils.BadGateway(c, fallback)
	default:
		utils.InternalServerError(c, "")
	}
}

// bindJSON 绑定请求体，失败时写入 400 并返回 false
func bindJSON(c *gin.Context, obj interface{}, order ...string) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		if fields, ok := utils.ValidationMessages(err); ok {
			utils.ValidationError(c, utils.FirstMessage(fields, order...), fields)
			return false
		}
		utils.BadRequest(c, "invalid request body")
		return false
	}
	return true
}

// parseIDParam 解析路径中的正整数 ID
func parseIDParam(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		utils.BadRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

// Health 健康检查
func (h *Handler) Health(c *gin.Context) {
	sqlDB, err := h.Repos.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
