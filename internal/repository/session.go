package repository

import (
	"context"
	"database/sql"
)

// SessionTable gin-contrib/sessions postgres 存储使用的表
const SessionTable = "http_sessions"

// SessionRepository 清理过期 session
type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// DeleteExpired 删除已过期的 session
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	if r.db == nil {
		return 0, nil
	}
	res, err := r.db.ExecContext(ctx, "DELETE FROM "+SessionTable+" WHERE expires_on < now()")
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
