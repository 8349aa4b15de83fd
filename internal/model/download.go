package model

import (
	"strings"
	"time"
)

// DownloadStatus 下载状态（存储为自由文本，逻辑上是封闭枚举）
type DownloadStatus string

const (
	StatusProcessing  DownloadStatus = "processing"
	StatusDownloading DownloadStatus = "downloading"
	StatusExtracting  DownloadStatus = "extracting"
	StatusFailed      DownloadStatus = "failed"
	StatusCompleted   DownloadStatus = "completed"
	StatusQueued      DownloadStatus = "queued"
	StatusRunning     DownloadStatus = "running"

	// StatusUnknown 没有记录
	StatusUnknown DownloadStatus = "unknown"
	// StatusUnrecognized 历史遗留或无法识别的存储值
	StatusUnrecognized DownloadStatus = "unrecognized"
)

// ParseDownloadStatus 解析状态字符串，大小写不敏感；无法识别时返回 StatusUnrecognized
func ParseDownloadStatus(raw string) DownloadStatus {
	switch s := DownloadStatus(strings.ToLower(strings.TrimSpace(raw))); s {
	case StatusProcessing, StatusDownloading, StatusExtracting, StatusFailed,
		StatusCompleted, StatusQueued, StatusRunning:
		return s
	case "":
		return StatusUnknown
	default:
		return StatusUnrecognized
	}
}

// String 实现 fmt.Stringer
func (s DownloadStatus) String() string {
	return string(s)
}

// Overrides 持久化状态是否允许覆盖界面状态
func (s DownloadStatus) Overrides() bool {
	switch s {
	case StatusProcessing, StatusDownloading, StatusExtracting, StatusFailed, StatusQueued, StatusRunning:
		return true
	}
	return false
}

// DownloadStatusRecord 按内容哈希记录的下载状态，全局共享，不归属任何用户
type DownloadStatusRecord struct {
	ID        int       `json:"id" gorm:"primaryKey"`
	Hash      string    `json:"hash" gorm:"uniqueIndex;not null"`
	Status    string    `json:"status" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 表名
func (DownloadStatusRecord) TableName() string {
	return "download_status"
}

// Parsed 返回枚举形式的状态
func (r *DownloadStatusRecord) Parsed() DownloadStatus {
	if r == nil {
		return StatusUnknown
	}
	return ParseDownloadStatus(r.Status)
}

// QueueState 实时队列检查结果
type QueueState struct {
	IsInQueue    bool           `json:"isInQueue"`
	IsProcessing bool           `json:"isProcessing"`
	Status       DownloadStatus `json:"status,omitempty"`
}

// MovieVersion 索引中某部电影的一个版本
type MovieVersion struct {
	Hash       string `json:"hash"`
	Resolution string `json:"resolution"`
	Size       int64  `json:"size"`
	Source     string `json:"source"`
}

// MovieVersions 版本列表响应
type MovieVersions struct {
	Versions []MovieVersion `json:"versions"`
}

// VersionJob 版本的下载任务描述，NZBFile 为不透明的任务文件内容
type VersionJob struct {
	Hash    string `json:"hash"`
	NZBFile string `json:"nzbFile"`
}

// VersionAction 界面按钮状态
type VersionAction string

const (
	ActionStorage     VersionAction = "storage"
	ActionFailed      VersionAction = "failed"
	ActionExtracting  VersionAction = "extracting"
	ActionQueued      VersionAction = "queued"
	ActionDownloading VersionAction = "downloading"
	ActionProcessing  VersionAction = "processing"
	ActionAvailable   VersionAction = "available"
)

// ActionState 合并后的界面状态
type ActionState struct {
	Action   VersionAction `json:"action"`
	Label    string        `json:"label"`
	Tooltip  string        `json:"tooltip,omitempty"`
	Disabled bool          `json:"disabled"`
}

// VersionOverview 带状态的版本
type VersionOverview struct {
	MovieVersion
	InStorage       bool           `json:"inStorage"`
	Queue           QueueState     `json:"queue"`
	PersistedStatus DownloadStatus `json:"persistedStatus"`
	State           ActionState    `json:"state"`
}

// DownloadStatusView 对外返回的持久化状态，没有记录时 Status 为 unknown
type DownloadStatusView struct {
	Hash      string         `json:"hash"`
	Status    DownloadStatus `json:"status"`
	Stored    string         `json:"storedStatus,omitempty"`
	CreatedAt *time.Time     `json:"created_at,omitempty"`
	UpdatedAt *time.Time     `json:"updated_at,omitempty"`
}

// View 转换为对外视图，r 为 nil 时返回 unknown
func (r *DownloadStatusRecord) View(hash string) *DownloadStatusView {
	if r == nil {
		return &DownloadStatusView{Hash: hash, Status: StatusUnknown}
	}
	v := &DownloadStatusView{
		Hash:      r.Hash,
		Status:    r.Parsed(),
		CreatedAt: &r.CreatedAt,
		UpdatedAt: &r.UpdatedAt,
	}
	if v.Status == StatusUnrecognized {
		v.Stored = r.Status
	}
	return v
}
