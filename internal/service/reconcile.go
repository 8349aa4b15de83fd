package service

import "github.com/user/movienest/internal/model"

// Reconcile 合并存储、实时队列和持久化状态，得到界面按钮状态。
// 只有白名单内的持久化状态参与；实时字段决定是否禁用，持久化状态决定文案。
func Reconcile(inStorage bool, live model.QueueState, persisted model.DownloadStatus) model.ActionState {
	if inStorage {
		return model.ActionState{Action: model.ActionStorage, Label: "Download from storage"}
	}

	if !persisted.Overrides() {
		persisted = ""
	}
	disabled := live.IsInQueue || live.IsProcessing || live.Status == model.StatusFailed || persisted != ""

	switch {
	case live.Status == model.StatusFailed || persisted == model.StatusFailed:
		return model.ActionState{
			Action:   model.ActionFailed,
			Label:    "Download failed",
			Tooltip:  "The last download failed.",
			Disabled: true,
		}
	case live.IsProcessing || persisted == model.StatusExtracting:
		return model.ActionState{
			Action:   model.ActionExtracting,
			Label:    "Extracting",
			Tooltip:  "The movie is being processed by the download server.",
			Disabled: disabled,
		}
	case persisted == model.StatusQueued:
		return model.ActionState{
			Action:   model.ActionQueued,
			Label:    "Queued",
			Tooltip:  "The movie is waiting in the download queue.",
			Disabled: disabled,
		}
	case persisted == model.StatusRunning:
		return model.ActionState{
			Action:   model.ActionDownloading,
			Label:    "Downloading",
			Tooltip:  "The movie is currently downloading.",
			Disabled: disabled,
		}
	case live.IsInQueue || persisted == model.StatusDownloading:
		return model.ActionState{
			Action:   model.ActionDownloading,
			Label:    "Downloading",
			Tooltip:  "The movie is already in the download queue.",
			Disabled: disabled,
		}
	case persisted == model.StatusProcessing:
		return model.ActionState{
			Action:   model.ActionProcessing,
			Label:    "Preparing",
			Tooltip:  "The download is being prepared.",
			Disabled: disabled,
		}
	}

	return model.ActionState{Action: model.ActionAvailable, Label: "Download", Disabled: disabled}
}
