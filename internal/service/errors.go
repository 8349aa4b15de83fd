package service

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrUpstream         = errors.New("upstream failure")
	ErrSelfModification = errors.New("cannot modify own account")

	// ErrQueueCheckFailed 队列或历史任一请求失败
	ErrQueueCheckFailed = fmt.Errorf("queue check failed: %w", ErrUpstream)
	// ErrMissingJobFile 版本任务缺少 NZB 文件内容
	ErrMissingJobFile = fmt.Errorf("no NZB file content found: %w", ErrUpstream)
)

// ConflictError 重复提交，Reason 为面向用户的说明
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return e.Reason
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// 冲突原因
const (
	ReasonExtracting  = "movie is being extracted"
	ReasonFailed      = "download failed"
	ReasonDownloading = "movie is already downloading"
)

// UpstreamError 外部服务返回非成功状态
type UpstreamError struct {
	Service    string
	Op         string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: unexpected status %d", e.Service, e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %v", e.Service, e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrUpstream, e.Err}
	}
	return []error{ErrUpstream}
}

func asUpstream(err error, target **UpstreamError) bool {
	return err != nil && errors.As(err, target)
}
