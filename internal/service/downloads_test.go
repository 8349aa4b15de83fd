package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/user/movienest/internal/model"
	"github.com/user/movienest/internal/service"
	"github.com/user/movienest/internal/service/mocks"
	"github.com/user/movienest/internal/utils"
)

// memStore 内存版状态存储，用于验证最终写入结果
type memStore struct {
	mu     sync.Mutex
	status map[string]model.DownloadStatus
	writes []model.DownloadStatus
}

func newMemStore() *memStore {
	return &memStore{status: map[string]model.DownloadStatus{}}
}

func (s *memStore) Get(_ context.Context, hash string) (*model.DownloadStatusRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.status[hash]
	if !ok {
		return nil, nil
	}
	return &model.DownloadStatusRecord{Hash: hash, Status: st.String(), UpdatedAt: time.Now()}, nil
}

func (s *memStore) GetMany(ctx context.Context, hashes []string) (map[string]*model.DownloadStatusRecord, error) {
	out := map[string]*model.DownloadStatusRecord{}
	for _, h := range hashes {
		rec, _ := s.Get(ctx, h)
		if rec != nil {
			out[h] = rec
		}
	}
	return out, nil
}

func (s *memStore) Set(_ context.Context, hash string, status model.DownloadStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status[hash] = status
	s.writes = append(s.writes, status)
	return nil
}

type fixture struct {
	queue   *mocks.MockQueueClient
	jobs    *mocks.MockJobSource
	objects *mocks.MockObjectStore
	store   *memStore
	guard   *utils.ClaimRegistry
	svc     *service.DownloadService
}

func newFixture(t *testing.T) *fixture {
	ctrl := gomock.NewController(t)
	f := &fixture{
		queue:   mocks.NewMockQueueClient(ctrl),
		jobs:    mocks.NewMockJobSource(ctrl),
		objects: mocks.NewMockObjectStore(ctrl),
		store:   newMemStore(),
		guard:   utils.NewClaimRegistry(time.Minute),
	}
	f.svc = service.NewDownloadService(f.queue, f.jobs, f.store, f.objects, f.guard, 10)
	return f
}

func (f *fixture) upstream(queue []service.QueueSlot, history []service.HistorySlot) {
	f.queue.EXPECT().Queue(gomock.Any()).Return(queue, nil).AnyTimes()
	f.queue.EXPECT().History(gomock.Any(), 10).Return(history, nil).AnyTimes()
}

func TestQueueSnapshot_Match(t *testing.T) {
	tests := []struct {
		name string
		snap service.QueueSnapshot
		want model.QueueState
	}{
		{
			name: "absent",
			snap: service.QueueSnapshot{
				Queue:   []service.QueueSlot{{Filename: "zzz--[[1]]"}},
				History: []service.HistorySlot{{Name: "yyy", Status: "Completed"}},
			},
			want: model.QueueState{},
		},
		{
			name: "in queue by filename substring",
			snap: service.QueueSnapshot{Queue: []service.QueueSlot{{Filename: "abc123--[[603]]"}}},
			want: model.QueueState{IsInQueue: true},
		},
		{
			name: "failed history is case-insensitive",
			snap: service.QueueSnapshot{History: []service.HistorySlot{{Name: "abc123-1080p.mkv", Status: "FAILED"}}},
			want: model.QueueState{Status: model.StatusFailed},
		},
		{
			name: "extracting marks processing",
			snap: service.QueueSnapshot{History: []service.HistorySlot{{Name: "abc123--[[603]]", Status: "Extracting"}}},
			want: model.QueueState{IsProcessing: true, Status: model.StatusExtracting},
		},
		{
			name: "unrecognized status is skipped",
			snap: service.QueueSnapshot{History: []service.HistorySlot{
				{Name: "abc123--[[603]]", Status: "Verifying"},
				{Name: "abc123--[[603]]", Status: "Completed"},
			}},
			want: model.QueueState{Status: model.StatusCompleted},
		},
		{
			name: "first recognized entry wins",
			snap: service.QueueSnapshot{History: []service.HistorySlot{
				{Name: "abc123--[[603]]", Status: "Running"},
				{Name: "abc123--[[603]]", Status: "Failed"},
			}},
			want: model.QueueState{IsProcessing: true, Status: model.StatusRunning},
		},
		{
			name: "queue and history combine",
			snap: service.QueueSnapshot{
				Queue:   []service.QueueSlot{{Filename: "abc123--[[603]]"}},
				History: []service.HistorySlot{{Name: "abc123--[[603]]", Status: "Queued"}},
			},
			want: model.QueueState{IsInQueue: true, IsProcessing: true, Status: model.StatusQueued},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.snap.Match("abc123"))
		})
	}
}

func TestCheckQueue_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.upstream(
		[]service.QueueSlot{{Filename: "other"}},
		[]service.HistorySlot{{Name: "abc123", Status: "completed"}},
	)

	first, err := f.svc.CheckQueue(context.Background(), "abc123")
	require.NoError(t, err)
	second, err := f.svc.CheckQueue(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCheckQueue_UpstreamFailure(t *testing.T) {
	f := newFixture(t)
	f.queue.EXPECT().Queue(gomock.Any()).Return(nil, &service.UpstreamError{Service: "sabnzbd", Op: "queue", StatusCode: 500}).AnyTimes()
	f.queue.EXPECT().History(gomock.Any(), 10).Return([]service.HistorySlot{}, nil).AnyTimes()

	_, err := f.svc.CheckQueue(context.Background(), "abc123")
	require.Error(t, err)
	assert.ErrorIs(t, err, service.ErrQueueCheckFailed)
	assert.ErrorIs(t, err, service.ErrUpstream)
}

func TestSubmit_HappyPath(t *testing.T) {
	f := newFixture(t)
	f.upstream(nil, nil)

	gomock.InOrder(
		f.jobs.EXPECT().FetchVersionJob(gomock.Any(), "abc123").
			DoAndReturn(func(context.Context, string) (*model.VersionJob, error) {
				assert.Equal(t, []model.DownloadStatus{model.StatusProcessing}, f.store.writes)
				return &model.VersionJob{Hash: "abc123", NZBFile: "<nzb/>"}, nil
			}),
		f.queue.EXPECT().AddFile(gomock.Any(), "<nzb/>", "abc123", "603").Return(nil),
	)

	status, err := f.svc.Submit(context.Background(), "abc123", "603")
	require.NoError(t, err)
	assert.Equal(t, model.StatusDownloading, status)
	assert.Equal(t, []model.DownloadStatus{model.StatusProcessing, model.StatusDownloading}, f.store.writes)

	view, err := f.svc.PersistedStatus(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, model.StatusDownloading, view.Status)
	assert.False(t, f.guard.Held("abc123"), "claim released")
}

func TestSubmit_ConflictNeverSubmits(t *testing.T) {
	tests := []struct {
		name    string
		queue   []service.QueueSlot
		history []service.HistorySlot
		reason  string
	}{
		{
			name:   "in queue",
			queue:  []service.QueueSlot{{Filename: "abc123--[[603]]"}},
			reason: service.ReasonDownloading,
		},
		{
			name:    "processing",
			history: []service.HistorySlot{{Name: "abc123--[[603]]", Status: "Extracting"}},
			reason:  service.ReasonExtracting,
		},
		{
			name:    "failed",
			history: []service.HistorySlot{{Name: "abc123-1080p.mkv", Status: "FAILED"}},
			reason:  service.ReasonFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.upstream(tt.queue, tt.history)
			// 未设置 FetchVersionJob / AddFile 期望，被调用即失败

			_, err := f.svc.Submit(context.Background(), "abc123", "603")
			require.Error(t, err)
			assert.ErrorIs(t, err, service.ErrConflict)

			var cerr *service.ConflictError
			require.True(t, errors.As(err, &cerr))
			assert.Equal(t, tt.reason, cerr.Reason)
			assert.Empty(t, f.store.writes)
		})
	}
}

func TestSubmit_ClaimHeldIsConflict(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.guard.Claim("abc123"))

	_, err := f.svc.Submit(context.Background(), "abc123", "603")
	var cerr *service.ConflictError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, service.ReasonDownloading, cerr.Reason)
	assert.Empty(t, f.store.writes)
}

func TestSubmit_MissingJobFileMarksFailed(t *testing.T) {
	f := newFixture(t)
	f.upstream(nil, nil)
	f.jobs.EXPECT().FetchVersionJob(gomock.Any(), "abc123").Return(&model.VersionJob{Hash: "abc123"}, nil)

	_, err := f.svc.Submit(context.Background(), "abc123", "603")
	assert.ErrorIs(t, err, service.ErrMissingJobFile)
	assert.Equal(t, []model.DownloadStatus{model.StatusProcessing, model.StatusFailed}, f.store.writes)
}

func TestSubmit_FailureAfterProcessingMarksFailed(t *testing.T) {
	upstreamErr := &service.UpstreamError{Service: "sabnzbd", Op: "addfile", StatusCode: 500}

	t.Run("job fetch fails", func(t *testing.T) {
		f := newFixture(t)
		f.upstream(nil, nil)
		f.jobs.EXPECT().FetchVersionJob(gomock.Any(), "abc123").Return(nil, upstreamErr)

		_, err := f.svc.Submit(context.Background(), "abc123", "603")
		assert.ErrorIs(t, err, service.ErrUpstream)
		assert.Equal(t, model.StatusFailed, f.store.status["abc123"])
	})

	t.Run("queue submit fails", func(t *testing.T) {
		f := newFixture(t)
		f.upstream(nil, nil)
		f.jobs.EXPECT().FetchVersionJob(gomock.Any(), "abc123").Return(&model.VersionJob{NZBFile: "<nzb/>"}, nil)
		f.queue.EXPECT().AddFile(gomock.Any(), "<nzb/>", "abc123", "603").Return(upstreamErr)

		_, err := f.svc.Submit(context.Background(), "abc123", "603")
		assert.ErrorIs(t, err, service.ErrUpstream)
		assert.Equal(t, model.StatusFailed, f.store.status["abc123"])
	})

	t.Run("request cancelled mid-flight", func(t *testing.T) {
		f := newFixture(t)
		f.upstream(nil, nil)
		ctx, cancel := context.WithCancel(context.Background())
		f.jobs.EXPECT().FetchVersionJob(gomock.Any(), "abc123").
			DoAndReturn(func(context.Context, string) (*model.VersionJob, error) {
				cancel()
				return nil, context.Canceled
			})

		_, err := f.svc.Submit(ctx, "abc123", "603")
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, model.StatusFailed, f.store.status["abc123"])
	})
}

func TestSubmit_QueueCheckFailureWritesNothing(t *testing.T) {
	f := newFixture(t)
	f.queue.EXPECT().Queue(gomock.Any()).Return([]service.QueueSlot{}, nil).AnyTimes()
	f.queue.EXPECT().History(gomock.Any(), 10).Return(nil, &service.UpstreamError{Service: "sabnzbd", Op: "history", StatusCode: 503}).AnyTimes()

	_, err := f.svc.Submit(context.Background(), "abc123", "603")
	assert.ErrorIs(t, err, service.ErrQueueCheckFailed)
	assert.Empty(t, f.store.writes)
}

func TestPersistedStatus_Unknown(t *testing.T) {
	f := newFixture(t)
	for _, hash := range []string{"abc123", "", "ffffffff"} {
		view, err := f.svc.PersistedStatus(context.Background(), hash)
		require.NoError(t, err)
		assert.Equal(t, model.StatusUnknown, view.Status)
	}
}

func TestSubmit_ResubmitAfterCompletion(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Set(context.Background(), "abc123", model.StatusFailed))
	f.store.writes = nil
	f.upstream(nil, []service.HistorySlot{{Name: "abc123--[[603]]", Status: "Completed"}})
	f.jobs.EXPECT().FetchVersionJob(gomock.Any(), "abc123").Return(&model.VersionJob{NZBFile: "<nzb/>"}, nil)
	f.queue.EXPECT().AddFile(gomock.Any(), "<nzb/>", "abc123", "603").Return(nil)

	_, err := f.svc.Submit(context.Background(), "abc123", "603")
	require.NoError(t, err)
	assert.Equal(t, []model.DownloadStatus{model.StatusProcessing, model.StatusDownloading}, f.store.writes)
}

func TestVersionOverview(t *testing.T) {
	f := newFixture(t)
	f.jobs.EXPECT().FetchMovieVersions(gomock.Any(), "603").Return(&model.MovieVersions{Versions: []model.MovieVersion{
		{Hash: "aaa", Resolution: "2160p"},
		{Hash: "bbb", Resolution: "1080p"},
		{Hash: "ccc", Resolution: "720p"},
		{Hash: "ddd", Resolution: "480p"},
	}}, nil)
	f.upstream(
		[]service.QueueSlot{{Filename: "bbb--[[603]]"}},
		[]service.HistorySlot{{Name: "ccc--[[603]]", Status: "Failed"}},
	)
	f.objects.EXPECT().Exists(gomock.Any(), "aaa").Return(true, nil)
	f.objects.EXPECT().Exists(gomock.Any(), "bbb").Return(false, nil)
	f.objects.EXPECT().Exists(gomock.Any(), "ccc").Return(false, nil)
	f.objects.EXPECT().Exists(gomock.Any(), "ddd").Return(false, nil)
	require.NoError(t, f.store.Set(context.Background(), "aaa", model.StatusFailed))
	require.NoError(t, f.store.Set(context.Background(), "ddd", model.StatusProcessing))

	out, err := f.svc.VersionOverview(context.Background(), "603")
	require.NoError(t, err)
	require.Len(t, out, 4)

	assert.Equal(t, model.ActionStorage, out[0].State.Action)
	assert.False(t, out[0].State.Disabled)
	assert.Equal(t, model.ActionDownloading, out[1].State.Action)
	assert.True(t, out[1].State.Disabled)
	assert.Equal(t, model.ActionFailed, out[2].State.Action)
	assert.True(t, out[2].State.Disabled)
	assert.Equal(t, model.ActionProcessing, out[3].State.Action)
	assert.Equal(t, model.StatusProcessing, out[3].PersistedStatus)
}
