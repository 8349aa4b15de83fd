package model

import "time"

// WatchlistEntry 片单条目
type WatchlistEntry struct {
	ID         int       `json:"id" gorm:"primaryKey"`
	UserID     int       `json:"user_id" gorm:"not null;uniqueIndex:idx_watchlist_user_movie"`
	MovieID    int       `json:"movie_id" gorm:"not null;uniqueIndex:idx_watchlist_user_movie"`
	MovieTitle string    `json:"movie_title" gorm:"not null"`
	PosterPath *string   `json:"poster_path"`
	AddedAt    time.Time `json:"added_at" gorm:"autoCreateTime"`

	User *User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// TableName 表名
func (WatchlistEntry) TableName() string {
	return "watchlist_movies"
}
