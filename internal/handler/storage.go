package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/user/movienest/internal/utils"
)

// StorageStatus 对象是否已在存储中
func (h *Handler) StorageStatus(c *gin.Context) {
	exists, err := h.Storage.Exists(c.Request.Context(), c.Param("hash"))
	if err != nil {
		respondError(c, err, "failed to check storage status")
		return
	}
	utils.Success(c, gin.H{"exists": exists})
}

// StorageDownload 生成限时下载链接
func (h *Handler) StorageDownload(c *gin.Context) {
	title := c.Query("title")
	year := c.Query("year")
	if title == "" || year == "" {
		utils.BadRequest(c, "title and year are required")
		return
	}

	url, err := h.Storage.PresignDownload(c.Request.Context(), c.Param("hash"), title, year)
	if err != nil {
		respondError(c, err, "failed to create download link")
		return
	}
	utils.Success(c, gin.H{"url": url})
}
