package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bullion-next/internal/cache"
	"github.com/bullion-next/internal/logger"
	"github.com/bullion-next/internal/repository"
	"github.com/bullion-next/internal/serial"

	"gorm.io/gorm"
)

const defaultAllocateRetries = 3

// AllocateInput 序列号分配输入，Code 与 Prefix 二选一（Code 优先）
type AllocateInput struct {
	ProductName string
	Prefix      string
	Code        string
	Quantity    int
	ProductLine string
}

// Allocation 分配结果
type Allocation struct {
	Codes       []string           `json:"codes"`
	Prefix      string             `json:"prefix"`
	Line        serial.ProductLine `json:"-"`
	FirstNumber int                `json:"first_number"`
	Explicit    bool               `json:"explicit"`
}

// PersistFunc 在分配所在事务内写入记录
type PersistFunc func(tx *gorm.DB, alloc *Allocation) error

// AllocatorOptions 分配器配置
type AllocatorOptions struct {
	Lines       map[string]serial.ProductLine
	MaxQuantity int
	Retries     int
}

// SerialAllocator 序列号分配器：按前缀加锁，事务内扫描与写入，唯一冲突时重试
type SerialAllocator struct {
	repo        repository.ProductRepository
	locker      cache.Locker
	lines       map[string]serial.ProductLine
	maxQuantity int
	retries     int
}

// NewSerialAllocator 创建分配器
func NewSerialAllocator(repo repository.ProductRepository, locker cache.Locker, opts AllocatorOptions) *SerialAllocator {
	lines := opts.Lines
	if len(lines) == 0 {
		lines = serial.DefaultLines()
	}
	if locker == nil {
		locker = cache.NewLocalLocker()
	}
	retries := opts.Retries
	if retries <= 0 {
		retries = defaultAllocateRetries
	}
	maxQuantity := opts.MaxQuantity
	if maxQuantity <= 0 {
		maxQuantity = serial.DefaultMaxQuantity
	}
	return &SerialAllocator{
		repo:        repo,
		locker:      locker,
		lines:       lines,
		maxQuantity: maxQuantity,
		retries:     retries,
	}
}

// MaxQuantity 单次分配上限
func (s *SerialAllocator) MaxQuantity() int {
	return s.maxQuantity
}

// Lines 已注册的产品线
func (s *SerialAllocator) Lines() map[string]serial.ProductLine {
	return s.lines
}

// State 计算前缀的续号状态
func (s *SerialAllocator) State(ctx context.Context, rawPrefix string) (serial.AllocationState, error) {
	prefix, err := serial.NormalizePrefix(rawPrefix)
	if err != nil {
		logger.Warnw("serial_prefix_rejected", "prefix", rawPrefix, "reason", err.Error())
		return serial.AllocationState{}, err
	}
	return scanState(s.repo, prefix)
}

// Allocate 计算序列号但不落库；并发写入请使用 AllocateWithin
func (s *SerialAllocator) Allocate(ctx context.Context, input AllocateInput) (*Allocation, error) {
	req, err := s.normalize(input)
	if err != nil {
		return nil, err
	}
	return s.compute(s.repo, req)
}

// AllocateWithin 在前缀锁与数据库事务内完成扫描、计算与 persist 写入。
// persist 返回唯一约束冲突时重新扫描重试，显式序列号冲突直接返回 ErrDuplicateSerialCode。
func (s *SerialAllocator) AllocateWithin(ctx context.Context, input AllocateInput, persist PersistFunc) (*Allocation, error) {
	req, err := s.normalize(input)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locker.Lock(ctx, req.lockKey())
	if err != nil {
		return nil, fmt.Errorf("acquire serial lock failed: %w", err)
	}
	defer unlock()

	var lastErr error
	for attempt := 1; attempt <= s.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var alloc *Allocation
		err := s.repo.Transaction(func(tx *gorm.DB) error {
			computed, err := s.compute(s.repo.WithTx(tx), req)
			if err != nil {
				return err
			}
			alloc = computed
			if persist == nil {
				return nil
			}
			return persist(tx, computed)
		})
		if err == nil {
			serialsAllocatedTotal.WithLabelValues(req.source()).Add(float64(len(alloc.Codes)))
			logger.Infow("serial_allocated",
				"prefix", alloc.Prefix,
				"explicit", alloc.Explicit,
				"quantity", len(alloc.Codes),
				"first", alloc.Codes[0],
				"last", alloc.Codes[len(alloc.Codes)-1],
				"attempt", attempt,
			)
			return alloc, nil
		}
		if errors.Is(err, serial.ErrDuplicateSerialCode) && req.explicit() {
			return nil, err
		}
		if !isUniqueViolation(err) {
			return nil, err
		}
		if req.explicit() {
			logger.ForSerial(req.code).Warnw("serial_duplicate_rejected", "reason", "unique_violation")
			return nil, fmt.Errorf("%w: %s", serial.ErrDuplicateSerialCode, req.code)
		}
		lastErr = err
		serialAllocateRetriesTotal.Inc()
		logger.Warnw("serial_allocate_conflict_retry",
			"prefix", req.prefix,
			"attempt", attempt,
			"error", err,
		)
	}
	return nil, fmt.Errorf("%w: prefix %q after %d attempts: %v", serial.ErrDuplicateSerialCode, req.prefix, s.retries, lastErr)
}

type allocateRequest struct {
	code     string
	prefix   string
	quantity int
	line     serial.ProductLine
}

func (r allocateRequest) explicit() bool {
	return r.code != ""
}

func (r allocateRequest) lockKey() string {
	if r.explicit() {
		return "serial:code:" + r.code
	}
	return "serial:prefix:" + r.prefix
}

func (r allocateRequest) source() string {
	if r.explicit() {
		return "explicit"
	}
	return "prefix"
}

// normalize 全部校验在任何 I/O 之前完成
func (s *SerialAllocator) normalize(input AllocateInput) (allocateRequest, error) {
	line, err := serial.ResolveLine(s.lines, input.ProductLine)
	if err != nil {
		logger.Warnw("serial_product_line_rejected", "product_line", input.ProductLine, "reason", err.Error())
		return allocateRequest{}, err
	}

	if raw := strings.TrimSpace(input.Code); raw != "" {
		if input.Quantity != 1 {
			logger.ForSerial(raw).Warnw("serial_quantity_rejected",
				"reason", "explicit_code_requires_quantity_1",
				"quantity", input.Quantity,
			)
			return allocateRequest{}, fmt.Errorf("%w: explicit code requires quantity 1, got %d", serial.ErrInvalidQuantity, input.Quantity)
		}
		code, err := serial.ValidateExplicitCode(raw)
		if err != nil {
			logger.ForSerial(raw).Warnw("serial_code_rejected", "reason", err.Error())
			return allocateRequest{}, err
		}
		return allocateRequest{code: code, quantity: 1, line: line}, nil
	}

	prefix, err := serial.NormalizePrefix(input.Prefix)
	if err != nil {
		logger.Warnw("serial_prefix_rejected", "prefix", input.Prefix, "reason", err.Error())
		return allocateRequest{}, err
	}
	if err := serial.ValidateQuantity(input.Quantity, s.maxQuantity); err != nil {
		logger.Warnw("serial_quantity_rejected", "prefix", prefix, "quantity", input.Quantity, "reason", err.Error())
		return allocateRequest{}, err
	}
	return allocateRequest{prefix: prefix, quantity: input.Quantity, line: line}, nil
}

func (s *SerialAllocator) compute(repo repository.ProductRepository, req allocateRequest) (*Allocation, error) {
	if req.explicit() {
		taken, err := repo.ExistsSerial(req.code)
		if err != nil {
			return nil, err
		}
		if taken {
			logger.ForSerial(req.code).Warnw("serial_duplicate_rejected", "reason", "already_exists")
			return nil, fmt.Errorf("%w: %s", serial.ErrDuplicateSerialCode, req.code)
		}
		number, _ := serial.Suffix("", req.code)
		return &Allocation{
			Codes:       []string{req.code},
			Line:        req.line,
			FirstNumber: number,
			Explicit:    true,
		}, nil
	}

	state, err := scanState(repo, req.prefix)
	if err != nil {
		return nil, err
	}
	if !serial.Capacity(state.LastNumber, req.quantity, req.line) {
		logger.Warnw("serial_capacity_exhausted",
			"prefix", req.prefix,
			"last_number", state.LastNumber,
			"quantity", req.quantity,
			"digits", req.line.Digits,
		)
		return nil, fmt.Errorf("%w: %w: prefix %q last %d quantity %d", serial.ErrInvalidQuantity, ErrSerialCapacity, req.prefix, state.LastNumber, req.quantity)
	}
	return &Allocation{
		Codes:       serial.Sequence(req.prefix, state.LastNumber, req.quantity, req.line),
		Prefix:      req.prefix,
		Line:        req.line,
		FirstNumber: state.NextNumber,
	}, nil
}

func scanState(repo repository.ProductRepository, prefix string) (serial.AllocationState, error) {
	scan, err := repo.ScanSerialPrefix(prefix)
	if err != nil {
		return serial.AllocationState{}, err
	}
	return serial.MergeState(prefix, scan.MaxNumber, scan.Count, scan.Candidates), nil
}

// isUniqueViolation 兼容 TranslateError 与驱动原始错误信息
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "sqlstate 23505")
}
