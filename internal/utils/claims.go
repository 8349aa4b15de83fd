package utils

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// ClaimRegistry 按 key 的进程内占用表，Add 在 key 已存在时失败，天然是 insert-if-absent
type ClaimRegistry struct {
	claims *cache.Cache
}

// NewClaimRegistry ttl 为占用的最长时间，防止异常路径漏释放
func NewClaimRegistry(ttl time.Duration) *ClaimRegistry {
	return &ClaimRegistry{claims: cache.New(ttl, 2*ttl)}
}

// Claim 尝试占用 key，已被占用返回 false
func (r *ClaimRegistry) Claim(key string) bool {
	return r.claims.Add(key, struct{}{}, cache.DefaultExpiration) == nil
}

// Release 释放占用
func (r *ClaimRegistry) Release(key string) {
	r.claims.Delete(key)
}

// Held 当前是否被占用
func (r *ClaimRegistry) Held(key string) bool {
	_, ok := r.claims.Get(key)
	return ok
}
