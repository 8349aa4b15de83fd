package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/user/movienest/internal/middleware"
	"github.com/user/movienest/internal/model"
	"github.com/user/movienest/internal/utils"
)

type addWatchlistRequest struct {
	MovieID    int     `json:"movie_id" binding:"required,gt=0"`
	MovieTitle string  `json:"movie_title" binding:"required"`
	PosterPath *string `json:"poster_path"`
}

// ListWatchlist 当前用户片单
func (h *Handler) ListWatchlist(c *gin.Context) {
	entries, err := h.Repos.Watchlist.ListByUser(middleware.GetUserID(c))
	if err != nil {
		respondError(c, err, "")
		return
	}
	if entries == nil {
		entries = []*model.WatchlistEntry{}
	}
	utils.Success(c, entries)
}

// AddToWatchlist 加入片单，重复添加返回已有条目
func (h *Handler) AddToWatchlist(c *gin.Context) {
	var req addWatchlistRequest
	if !bindJSON(c, &req, "movie_id", "movie_title") {
		return
	}

	entry, err := h.Repos.Watchlist.Add(&model.WatchlistEntry{
		UserID:     middleware.GetUserID(c),
		MovieID:    req.MovieID,
		MovieTitle: req.MovieTitle,
		PosterPath: req.PosterPath,
	})
	if err != nil {
		respondError(c, err, "")
		return
	}
	utils.Created(c, entry)
}

// WatchlistContains 电影是否已在片单中
func (h *Handler) WatchlistContains(c *gin.Context) {
	movieID, ok := parseIDParam(c, "movieId")
	if !ok {
		return
	}

	found, err := h.Repos.Watchlist.Contains(middleware.GetUserID(c), movieID)
	if err != nil {
		respondError(c, err, "")
		return
	}
	utils.Success(c, gin.H{"inWatchlist": found})
}

// RemoveFromWatchlist 移出片单
func (h *Handler) RemoveFromWatchlist(c *gin.Context) {
	movieID, ok := parseIDParam(c, "movieId")
	if !ok {
		return
	}

	if _, err := h.Repos.Watchlist.Remove(middleware.GetUserID(c), movieID); err != nil {
		respondError(c, err, "")
		return
	}
	utils.NoContent(c)
}
