package shared

import (
	"github.com/bullion-next/internal/cache"
	"github.com/bullion-next/internal/http/response"
	"github.com/bullion-next/internal/qrcode"
	"github.com/bullion-next/internal/serial"
	"github.com/bullion-next/internal/service"
	"github.com/bullion-next/internal/storage"
)

// SerialErrorRules 序列号校验与分配错误
var SerialErrorRules = []MappedError{
	{Target: serial.ErrInvalidPrefix, Code: response.CodeBadRequest, Msg: "序列号前缀无效"},
	{Target: serial.ErrInvalidCode, Code: response.CodeBadRequest, Msg: "序列号无效"},
	{Target: service.ErrSerialCapacity, Code: response.CodeBadRequest, Msg: "该前缀可用序号不足"},
	{Target: serial.ErrInvalidQuantity, Code: response.CodeBadRequest, Msg: "数量无效"},
	{Target: serial.ErrUnknownProductLine, Code: response.CodeBadRequest, Msg: "未知产品线"},
	{Target: serial.ErrDuplicateSerialCode, Code: response.CodeConflict, Msg: "序列号已存在"},
	{Target: cache.ErrLockTimeout, Code: response.CodeServiceUnavailable, Msg: "序列号分配繁忙，请稍后重试"},
}

// ProductErrorRules 商品建档错误
var ProductErrorRules = []MappedError{
	{Target: service.ErrProductNameRequired, Code: response.CodeBadRequest, Msg: "商品名称不能为空"},
	{Target: service.ErrInvalidWeight, Code: response.CodeBadRequest, Msg: "重量无效"},
	{Target: service.ErrProductNotFound, Code: response.CodeNotFound, Msg: "商品不存在"},
	{Target: service.ErrBatchNotFound, Code: response.CodeNotFound, Msg: "批次不存在"},
	{Target: service.ErrQueueUnavailable, Code: response.CodeServiceUnavailable, Msg: "异步队列未启用"},
}

// ArtifactErrorRules 二维码渲染与存储错误
var ArtifactErrorRules = []MappedError{
	{Target: qrcode.ErrEmptyTargetURL, Code: response.CodeUnprocessable, Msg: "二维码内容为空"},
	{Target: storage.ErrInvalidObjectCode, Code: response.CodeBadRequest, Msg: "序列号无法用作存储键"},
	{Target: storage.ErrStorageUnavailable, Code: response.CodeServiceUnavailable, Msg: "二维码存储不可用"},
}
