package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/user/movienest/internal/config"
	"github.com/user/movienest/internal/logger"
)

// SABnzbdClient 下载队列客户端
type SABnzbdClient struct {
	baseURL      string
	apiKey       string
	category     string
	historyLimit int
	httpClient   *http.Client
	log          *logrus.Entry
}

// NewSABnzbdClient 创建客户端
func NewSABnzbdClient(cfg config.SABnzbdConfig) *SABnzbdClient {
	limit := cfg.HistoryLimit
	if limit < 1 {
		limit = 10
	}
	return &SABnzbdClient{
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		category:     cfg.Category,
		historyLimit: limit,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		log:          logger.Component("sabnzbd"),
	}
}

// QueueSlot 队列条目
type QueueSlot struct {
	NzoID      string `json:"nzo_id"`
	Filename   string `json:"filename"`
	Status     string `json:"status"`
	Percentage string `json:"percentage"`
	TimeLeft   string `json:"timeleft"`
}

// HistorySlot 历史条目
type HistorySlot struct {
	NzoID  string `json:"nzo_id"`
	Name   string `json:"name"`
	Status string `json:"status"`
	Bytes  int64  `json:"bytes"`
}

type queueResponse struct {
	Queue struct {
		Slots []QueueSlot `json:"slots"`
	} `json:"queue"`
}

type historyResponse struct {
	History struct {
		Slots []HistorySlot `json:"slots"`
	} `json:"history"`
}

type addResponse struct {
	Status bool     `json:"status"`
	NzoIDs []string `json:"nzo_ids"`
	Error  string   `json:"error"`
}

// HistoryLimit 历史扫描条数
func (c *SABnzbdClient) HistoryLimit() int {
	return c.historyLimit
}

// Queue 获取当前队列
func (c *SABnzbdClient) Queue(ctx context.Context) ([]QueueSlot, error) {
	params := url.Values{
		"apikey": {c.apiKey},
		"output": {"json"},
		"mode":   {"queue"},
	}

	var resp queueResponse
	if err := c.doRequest(ctx, "queue", params, &resp); err != nil {
		return nil, err
	}
	return resp.Queue.Slots, nil
}

// History 获取最近 limit 条历史
func (c *SABnzbdClient) History(ctx context.Context, limit int) ([]HistorySlot, error) {
	params := url.Values{
		"apikey": {c.apiKey},
		"output": {"json"},
		"mode":   {"history"},
		"limit":  {fmt.Sprint(limit)},
	}

	var resp historyResponse
	if err := c.doRequest(ctx, "history", params, &resp); err != nil {
		return nil, err
	}
	return resp.History.Slots, nil
}

// JobName 提交任务的显示名，队列和历史扫描靠子串匹配找回 hash
func JobName(hash, tmdbID string) string {
	return hash + "--[[" + tmdbID + "]]"
}

// AddFile 以 multipart 上传 NZB 内容
func (c *SABnzbdClient) AddFile(ctx context.Context, nzb, hash, tmdbID string) error {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="name"; filename="%s.nzb"`, hash))
	h.Set("Content-Type", "application/x-nzb")
	part, err := w.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write([]byte(nzb)); err != nil {
		return fmt.Errorf("write form file: %w", err)
	}

	fields := [][2]string{
		{"mode", "addfile"},
		{"nzbname", JobName(hash, tmdbID)},
		{"cat", c.category},
		{"apikey", c.apiKey},
		{"output", "json"},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return fmt.Errorf("write field %s: %w", f[0], err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api", &body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	var resp addResponse
	if err := c.do(req, "addfile", &resp); err != nil {
		return err
	}
	if !resp.Status {
		return &UpstreamError{Service: "sabnzbd", Op: "addfile", Err: fmt.Errorf("rejected: %s", resp.Error)}
	}

	c.log.WithFields(logrus.Fields{"hash": hash, "tmdb_id": tmdbID, "nzo_ids": resp.NzoIDs}).Info("NZB 已提交")
	return nil
}

// doRequest 发送 GET 请求
func (c *SABnzbdClient) doRequest(ctx context.Context, mode string, params url.Values, result any) error {
	reqURL := c.baseURL + "/api?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(req, mode, result)
}

func (c *SABnzbdClient) do(req *http.Request, mode string, result any) error {
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.WithError(err).WithField("mode", mode).Warn("请求失败")
		return &UpstreamError{Service: "sabnzbd", Op: mode, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.WithFields(logrus.Fields{"mode": mode, "status": resp.StatusCode}).Warn("响应状态异常")
		return &UpstreamError{Service: "sabnzbd", Op: mode, StatusCode: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return &UpstreamError{Service: "sabnzbd", Op: mode, Err: fmt.Errorf("decode response: %w", err)}
	}

	c.log.WithFields(logrus.Fields{"mode": mode, "duration_ms": time.Since(start).Milliseconds()}).Debug("请求完成")
	return nil
}
