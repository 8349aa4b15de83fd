package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/user/movienest/internal/logger"
	"github.com/user/movienest/internal/model"
)

//go:generate mockgen -destination=mocks/mocks.go -package=mocks github.com/user/movienest/internal/service QueueClient,JobSource,StatusStore,ObjectStore

// QueueClient 下载队列
type QueueClient interface {
	Queue(ctx context.Context) ([]QueueSlot, error)
	History(ctx context.Context, limit int) ([]HistorySlot, error)
	AddFile(ctx context.Context, nzb, hash, tmdbID string) error
}

// JobSource 版本索引
type JobSource interface {
	FetchMovieVersions(ctx context.Context, tmdbID string) (*model.MovieVersions, error)
	FetchVersionJob(ctx context.Context, hash string) (*model.VersionJob, error)
}

// StatusStore 持久化下载状态
type StatusStore interface {
	Get(ctx context.Context, hash string) (*model.DownloadStatusRecord, error)
	GetMany(ctx context.Context, hashes []string) (map[string]*model.DownloadStatusRecord, error)
	Set(ctx context.Context, hash string, status model.DownloadStatus) error
}

// ObjectStore 对象存储存在性检查
type ObjectStore interface {
	Exists(ctx context.Context, hash string) (bool, error)
}

// SubmissionGuard 按 hash 的提交占用
type SubmissionGuard interface {
	Claim(key string) bool
	Release(key string)
}

// storageConcurrency 版本概览中并发检查存储的上限
const storageConcurrency = 4

// DownloadService 合并持久化状态与实时队列状态，并负责提交下载
type DownloadService struct {
	queue        QueueClient
	jobs         JobSource
	store        StatusStore
	objects      ObjectStore
	guard        SubmissionGuard
	historyLimit int
	log          *logrus.Entry
}

// NewDownloadService 创建下载服务
func NewDownloadService(queue QueueClient, jobs JobSource, store StatusStore, objects ObjectStore, guard SubmissionGuard, historyLimit int) *DownloadService {
	if historyLimit < 1 {
		historyLimit = 10
	}
	return &DownloadService{
		queue:        queue,
		jobs:         jobs,
		store:        store,
		objects:      objects,
		guard:        guard,
		historyLimit: historyLimit,
		log:          logger.Component("downloads"),
	}
}

// QueueSnapshot 一次轮询得到的队列与最近历史
type QueueSnapshot struct {
	Queue   []QueueSlot
	History []HistorySlot
}

// Match 判断 hash 在快照中的状态。历史按服务端顺序扫描，第一个可识别状态的条目生效
func (s *QueueSnapshot) Match(hash string) model.QueueState {
	var state model.QueueState

	for _, slot := range s.Queue {
		if strings.Contains(slot.Filename, hash) {
			state.IsInQueue = true
			break
		}
	}

	for _, slot := range s.History {
		if !strings.Contains(slot.Name, hash) {
			continue
		}
		switch st := model.ParseDownloadStatus(slot.Status); st {
		case model.StatusRunning, model.StatusExtracting, model.StatusQueued:
			state.IsProcessing = true
			state.Status = st
			return state
		case model.StatusFailed, model.StatusCompleted:
			state.Status = st
			return state
		}
	}

	return state
}

// Snapshot 并发获取队列和历史，任一失败则整体失败
func (d *DownloadService) Snapshot(ctx context.Context) (*QueueSnapshot, error) {
	var snap QueueSnapshot

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slots, err := d.queue.Queue(gctx)
		snap.Queue = slots
		return err
	})
	g.Go(func() error {
		slots, err := d.queue.History(gctx, d.historyLimit)
		snap.History = slots
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQueueCheckFailed, err)
	}

	return &snap, nil
}

// CheckQueue 查询 hash 的实时队列状态
func (d *DownloadService) CheckQueue(ctx context.Context, hash string) (model.QueueState, error) {
	snap, err := d.Snapshot(ctx)
	if err != nil {
		return model.QueueState{}, err
	}
	return snap.Match(hash), nil
}

// Submit 提交下载。
// 顺序：队列检查 -> processing -> 获取任务文件 -> 提交队列 -> downloading；
// 写入 processing 之后的任何错误都会把状态置为 failed。
func (d *DownloadService) Submit(ctx context.Context, hash, tmdbID string) (model.DownloadStatus, error) {
	if !d.guard.Claim(hash) {
		return "", &ConflictError{Reason: ReasonDownloading}
	}
	defer d.guard.Release(hash)

	state, err := d.CheckQueue(ctx, hash)
	if err != nil {
		return "", err
	}
	if reason := conflictReason(state); reason != "" {
		return "", &ConflictError{Reason: reason}
	}

	if err := d.store.Set(ctx, hash, model.StatusProcessing); err != nil {
		return "", fmt.Errorf("persist processing: %w", err)
	}

	if err := d.acquire(ctx, hash, tmdbID); err != nil {
		d.markFailed(ctx, hash, err)
		return "", err
	}

	d.log.WithFields(logrus.Fields{"hash": hash, "tmdb_id": tmdbID}).Info("下载已提交")
	return model.StatusDownloading, nil
}

func (d *DownloadService) acquire(ctx context.Context, hash, tmdbID string) error {
	job, err := d.jobs.FetchVersionJob(ctx, hash)
	if err != nil {
		return fmt.Errorf("fetch version job: %w", err)
	}
	if job == nil || job.NZBFile == "" {
		return ErrMissingJobFile
	}

	if err := d.queue.AddFile(ctx, job.NZBFile, hash, tmdbID); err != nil {
		return fmt.Errorf("submit to queue: %w", err)
	}

	if err := d.store.Set(ctx, hash, model.StatusDownloading); err != nil {
		return fmt.Errorf("persist downloading: %w", err)
	}
	return nil
}

// markFailed 请求取消时也要写入
func (d *DownloadService) markFailed(ctx context.Context, hash string, cause error) {
	entry := d.log.WithFields(logrus.Fields{"hash": hash}).WithError(cause)
	if err := d.store.Set(context.WithoutCancel(ctx), hash, model.StatusFailed); err != nil {
		entry.WithField("persist_error", err).Error("提交失败且无法写入 failed 状态")
		return
	}
	entry.Warn("提交失败，状态已置为 failed")
}

func conflictReason(state model.QueueState) string {
	switch {
	case state.IsProcessing:
		return ReasonExtracting
	case state.Status == model.StatusFailed:
		return ReasonFailed
	case state.IsInQueue:
		return ReasonDownloading
	}
	return ""
}

// PersistedStatus 读取持久化状态，没有记录时为 unknown
func (d *DownloadService) PersistedStatus(ctx context.Context, hash string) (*model.DownloadStatusView, error) {
	rec, err := d.store.Get(ctx, hash)
	if err != nil {
		return nil, err
	}
	return rec.View(hash), nil
}

// VersionOverview 电影所有版本及其合并后的状态，只轮询一次队列
func (d *DownloadService) VersionOverview(ctx context.Context, tmdbID string) ([]model.VersionOverview, error) {
	versions, err := d.jobs.FetchMovieVersions(ctx, tmdbID)
	if err != nil {
		return nil, err
	}
	if len(versions.Versions) == 0 {
		return []model.VersionOverview{}, nil
	}

	hashes := make([]string, len(versions.Versions))
	for i, v := range versions.Versions {
		hashes[i] = v.Hash
	}

	snap, err := d.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	persisted, err := d.store.GetMany(ctx, hashes)
	if err != nil {
		return nil, err
	}

	inStorage := make([]bool, len(hashes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(storageConcurrency)
	for i, hash := range hashes {
		g.Go(func() error {
			ok, err := d.objects.Exists(gctx, hash)
			inStorage[i] = ok
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]model.VersionOverview, len(versions.Versions))
	for i, v := range versions.Versions {
		live := snap.Match(v.Hash)
		status := persisted[v.Hash].Parsed()
		out[i] = model.VersionOverview{
			MovieVersion:    v,
			InStorage:       inStorage[i],
			Queue:           live,
			PersistedStatus: status,
			State:           Reconcile(inStorage[i], live, status),
		}
	}
	return out, nil
}
