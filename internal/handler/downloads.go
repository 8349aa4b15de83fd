package handler

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/user/movienest/internal/logger"
	"github.com/user/movienest/internal/middleware"
	"github.com/user/movienest/internal/utils"
)

// flexibleID 兼容数字和字符串形式的 ID
type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexibleID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexibleID(n.String())
	return nil
}

type submitRequest struct {
	Hash   string     `json:"hash" binding:"required"`
	TMDBID flexibleID `json:"tmdbId" binding:"required"`
}

// MovieVersions 电影的可用版本
func (h *Handler) MovieVersions(c *gin.Context) {
	versions, err := h.Versions.FetchMovieVersions(c.Request.Context(), c.Param("tmdbId"))
	if err != nil {
		respondError(c, err, "failed to fetch NZB data")
		return
	}
	utils.Success(c, versions)
}

// VersionOverview 版本及合并后的下载状态
func (h *Handler) VersionOverview(c *gin.Context) {
	overview, err := h.Downloads.VersionOverview(c.Request.Context(), c.Param("tmdbId"))
	if err != nil {
		respondError(c, err, "failed to load version overview")
		return
	}
	utils.Success(c, gin.H{"versions": overview})
}

// VersionJob 版本任务文件
func (h *Handler) VersionJob(c *gin.Context) {
	job, err := h.Versions.FetchVersionJob(c.Request.Context(), c.Param("hash"))
	if err != nil {
		respondError(c, err, "failed to fetch NZB file")
		return
	}
	utils.Success(c, job)
}

// CheckQueue 实时队列状态
func (h *Handler) CheckQueue(c *gin.Context) {
	state, err := h.Downloads.CheckQueue(c.Request.Context(), c.Param("hash"))
	if err != nil {
		respondError(c, err, "failed to check queue status")
		return
	}
	utils.Success(c, state)
}

// SubmitDownload 提交下载
func (h *Handler) SubmitDownload(c *gin.Context) {
	var req submitRequest
	if !bindJSON(c, &req, "hash", "tmdbId") {
		return
	}

	status, err := h.Downloads.Submit(c.Request.Context(), req.Hash, string(req.TMDBID))
	if err != nil {
		respondError(c, err, "failed to send NZB to download queue")
		return
	}

	logger.Component("downloads").WithField("user_id", middleware.GetUserID(c)).
		WithField("hash", req.Hash).Info("用户提交下载")
	utils.Success(c, gin.H{"status": status})
}

// DownloadStatus 持久化下载状态
func (h *Handler) DownloadStatus(c *gin.Context) {
	view, err := h.Downloads.PersistedStatus(c.Request.Context(), c.Param("hash"))
	if err != nil {
		respondError(c, err, "")
		return
	}
	utils.Success(c, view)
}
