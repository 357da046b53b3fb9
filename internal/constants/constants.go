package constants

// 产品线常量（决定序号位数）
const (
	ProductLineStandard = "standard"
	ProductLineGram     = "gram"
)

// 二维码模式常量
const (
	QRModeSingle  = "SINGLE_QR"
	QRModePerUnit = "PER_UNIT"
)

// 存储模式常量（写入商品记录的 qr_storage_mode）
const (
	StorageModePending     = ""
	StorageModeLocal       = "LOCAL"
	StorageModeObjectStore = "OBJECT_STORE"
)

// 存储后端常量
const (
	StorageBackendObjectStore = "object_store"
	StorageBackendOnDemand    = "on_demand"
	StorageBackendLocal       = "local"
)

// 标签降级原因
const (
	LabelReasonEmpty    = "empty"
	LabelReasonTooShort = "too_short"
	LabelReasonAllZero  = "all_zero"
)

// 二维码路由与对象键
const (
	QRObjectKeyPrefix  = "qr/"
	QRObjectExt        = ".png"
	QRRegenerateRoute  = "/api/qr/"
	QRVerifyRoute      = "/verify/"
	QRContentType      = "image/png"
	QRSingleWeightMark = 100
)

// 队列常量
const (
	QueueDefault = "default"
)

// 任务类型常量
const (
	TaskBatchQRRegenerate = "qr:batch_regenerate"
	TaskArtifactPurge     = "qr:artifact_purge"
)
