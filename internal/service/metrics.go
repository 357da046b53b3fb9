package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	serialsAllocatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bn_serials_allocated_total",
			Help: "已分配的序列号数量",
		},
		[]string{"source"},
	)

	serialAllocateRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bn_serial_allocate_retries_total",
		Help: "唯一约束冲突导致的分配重试次数",
	})

	qrArtifactsRenderedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bn_qr_artifacts_rendered_total",
			Help: "二维码渲染次数（按结果）",
		},
		[]string{"outcome"},
	)

	qrArtifactsStoredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bn_qr_artifacts_stored_total",
			Help: "二维码存储次数（按后端与模式）",
		},
		[]string{"backend", "mode", "fallback"},
	)

	qrStorageErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bn_qr_storage_errors_total",
			Help: "二维码存储失败次数",
		},
		[]string{"backend", "operation"},
	)

	qrServeCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bn_qr_serve_cache_hits_total",
		Help: "按需生成接口 LRU 缓存命中次数",
	})

	qrServeCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bn_qr_serve_cache_misses_total",
		Help: "按需生成接口 LRU 缓存未命中次数",
	})
)
