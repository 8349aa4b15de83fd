package router

import (
	"github.com/gin-gonic/gin"

	"github.com/user/movienest/internal/handler"
	"github.com/user/movienest/internal/middleware"
	"github.com/user/movienest/internal/utils"
)

// RegisterRoutes 注册所有路由
func RegisterRoutes(r *gin.Engine, h *handler.Handler) {
	utils.RegisterJSONTagNames()

	// 健康检查
	r.GET("/health", h.Health)

	api := r.Group("/api")

	// ==================== 认证 ====================
	{
		api.POST("/register", h.Register)
		api.POST("/login", h.Login)
		api.POST("/logout", h.Logout)
		api.GET("/user", h.CurrentUser)
	}

	// ==================== 需要登录 ====================
	authed := api.Group("")
	authed.Use(middleware.RequireAuth(h.Repos.User))
	{
		movies := authed.Group("/movies")
		movies.GET("/search", h.SearchMovies)
		movies.GET("/trending", h.TrendingMovies)
		movies.GET("/:id", h.MovieDetails)

		nzb := authed.Group("/nzb")
		nzb.GET("/movies/:tmdbId", h.MovieVersions)
		nzb.GET("/movies/:tmdbId/overview", h.VersionOverview)
		nzb.GET("/movies/version/:hash", h.VersionJob)
		nzb.GET("/check-queue/:hash", h.CheckQueue)
		nzb.POST("/download", h.SubmitDownload)

		authed.GET("/download-status/:hash", h.DownloadStatus)

		authed.GET("/s3/status/:hash", h.StorageStatus)
		authed.GET("/s3/download/:hash", h.StorageDownload)

		authed.GET("/watchlist", h.ListWatchlist)
		authed.POST("/watchlist", h.AddToWatchlist)
		authed.GET("/watchlist/:movieId", h.WatchlistContains)
		authed.DELETE("/watchlist/:movieId", h.RemoveFromWatchlist)
	}

	// ==================== 用户管理 ====================
	admin := authed.Group("/admin")
	admin.Use(middleware.RequireAdmin())
	{
		admin.GET("/users", h.AdminListUsers)
		admin.POST("/users", h.AdminCreateUser)
		admin.PATCH("/users/:id/role", h.AdminUpdateRole)
		admin.PATCH("/users/:id/username", h.AdminUpdateUsername)
		admin.POST("/users/:id/reset-password", h.AdminResetPassword)
		admin.PATCH("/users/:id/toggle-active", h.AdminToggleActive)
		admin.PATCH("/users/:id/toggle-approved", h.AdminToggleApproved)
		admin.DELETE("/users/:id", h.AdminDeleteUser)
	}
}
