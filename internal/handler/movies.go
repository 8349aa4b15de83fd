package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/user/movienest/internal/utils"
)

// SearchMovies 搜索电影
func (h *Handler) SearchMovies(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))

	result, err := h.Movies.Search(c.Request.Context(), c.Query("query"), page)
	if err != nil {
		respondError(c, err, "failed to search movies")
		return
	}
	utils.Success(c, result)
}

// TrendingMovies 今日热门
func (h *Handler) TrendingMovies(c *gin.Context) {
	result, err := h.Movies.Trending(c.Request.Context())
	if err != nil {
		respondError(c, err, "failed to load trending movies")
		return
	}
	utils.Success(c, result)
}

// MovieDetails 电影详情
func (h *Handler) MovieDetails(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	details, err := h.Movies.Details(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "failed to load movie details")
		return
	}
	utils.Success(c, details)
}
