package queue

import (
	"encoding/json"

	"github.com/bullion-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskBatchQRRegenerate 批次二维码重新生成任务
	TaskBatchQRRegenerate = constants.TaskBatchQRRegenerate
	// TaskArtifactPurge 二维码存储延迟清理任务
	TaskArtifactPurge = constants.TaskArtifactPurge
)

// BatchQRRegeneratePayload 批次重新生成任务载荷
type BatchQRRegeneratePayload struct {
	BatchID uint `json:"batch_id"`
}

// ArtifactPurgePayload 延迟清理任务载荷
type ArtifactPurgePayload struct {
	SerialCode  string `json:"serial_code"`
	ExistingURL string `json:"existing_url"`
}

// NewBatchQRRegenerateTask 创建批次重新生成任务
func NewBatchQRRegenerateTask(payload BatchQRRegeneratePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBatchQRRegenerate, body), nil
}

// NewArtifactPurgeTask 创建延迟清理任务
func NewArtifactPurgeTask(payload ArtifactPurgePayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskArtifactPurge, body), nil
}
