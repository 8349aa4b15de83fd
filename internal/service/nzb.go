package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/user/movienest/internal/config"
	"github.com/user/movienest/internal/logger"
	"github.com/user/movienest/internal/model"
)

const (
	// defaultTokenTTL 令牌没有 exp 声明时的有效期
	defaultTokenTTL = 55 * time.Minute
	// tokenSkew 提前刷新的余量
	tokenSkew = time.Minute
)

// TokenCache 令牌及其过期时间
type TokenCache struct {
	mu        sync.RWMutex
	token     string
	expiresAt time.Time
}

// Get 返回未过期的令牌
func (t *TokenCache) Get(now time.Time) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.token == "" || !now.Before(t.expiresAt) {
		return "", false
	}
	return t.token, true
}

// Set 保存令牌
func (t *TokenCache) Set(token string, expiresAt time.Time) {
	t.mu.Lock()
	t.token = token
	t.expiresAt = expiresAt
	t.mu.Unlock()
}

// Invalidate 清除令牌
func (t *TokenCache) Invalidate() {
	t.Set("", time.Time{})
}

// NZBClient 版本索引客户端
type NZBClient struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	tokens     *TokenCache
	group      singleflight.Group
	now        func() time.Time
	log        *logrus.Entry
}

// NewNZBClient 创建客户端
func NewNZBClient(cfg config.NZBConfig) *NZBClient {
	return &NZBClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		username:   cfg.Username,
		password:   cfg.Password,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		tokens:     &TokenCache{},
		now:        time.Now,
		log:        logger.Component("nzb"),
	}
}

// Token 获取令牌，过期时重新登录，并发刷新只发一次请求
func (c *NZBClient) Token(ctx context.Context) (string, error) {
	if tok, ok := c.tokens.Get(c.now()); ok {
		return tok, nil
	}

	// 登录不随单个请求取消，等待方各自响应自己的 ctx
	ch := c.group.DoChan("token", func() (interface{}, error) {
		if tok, ok := c.tokens.Get(c.now()); ok {
			return tok, nil
		}
		tok, exp, err := c.login(context.WithoutCancel(ctx))
		if err != nil {
			return "", err
		}
		c.tokens.Set(tok, exp)
		return tok, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (c *NZBClient) login(ctx context.Context) (string, time.Time, error) {
	payload, err := json.Marshal(map[string]string{
		"username": c.username,
		"password": c.password,
	})
	if err != nil {
		return "", time.Time{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/user/login", bytes.NewReader(payload))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	var resp struct {
		Token string `json:"token"`
	}
	if err := c.do(req, "login", &resp); err != nil {
		return "", time.Time{}, err
	}
	if resp.Token == "" {
		return "", time.Time{}, &UpstreamError{Service: "nzb", Op: "login", Err: fmt.Errorf("empty token")}
	}

	exp := c.tokenExpiry(resp.Token)
	c.log.WithField("expires_at", exp).Info("已获取 NZB 令牌")
	return resp.Token, exp, nil
}

// tokenExpiry 优先使用 JWT 的 exp 声明，签名不在此校验
func (c *NZBClient) tokenExpiry(token string) time.Time {
	now := c.now()
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err == nil && claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.Add(-tokenSkew)
		if exp.After(now) {
			return exp
		}
	}
	return now.Add(defaultTokenTTL)
}

// FetchMovieVersions 获取电影的所有版本
func (c *NZBClient) FetchMovieVersions(ctx context.Context, tmdbID string) (*model.MovieVersions, error) {
	var out model.MovieVersions
	if err := c.get(ctx, "versions", "/movies/"+url.PathEscape(tmdbID), &out); err != nil {
		return nil, err
	}
	if out.Versions == nil {
		out.Versions = []model.MovieVersion{}
	}
	return &out, nil
}

// FetchVersionJob 获取版本的任务文件
func (c *NZBClient) FetchVersionJob(ctx context.Context, hash string) (*model.VersionJob, error) {
	var out model.VersionJob
	if err := c.get(ctx, "version", "/movies/version/"+url.PathEscape(hash), &out); err != nil {
		return nil, err
	}
	if out.Hash == "" {
		out.Hash = hash
	}
	return &out, nil
}

func (c *NZBClient) get(ctx context.Context, op, path string, result any) error {
	token, err := c.Token(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	err = c.do(req, op, result)
	var upErr *UpstreamError
	if asUpstream(err, &upErr) && upErr.StatusCode == http.StatusUnauthorized {
		// 令牌被服务端提前作废，下次请求重新登录
		c.tokens.Invalidate()
	}
	return err
}

func (c *NZBClient) do(req *http.Request, op string, result any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.WithError(err).WithField("op", op).Warn("请求失败")
		return &UpstreamError{Service: "nzb", Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.WithFields(logrus.Fields{"op": op, "status": resp.StatusCode}).Warn("响应状态异常")
		return &UpstreamError{Service: "nzb", Op: op, StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return &UpstreamError{Service: "nzb", Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
