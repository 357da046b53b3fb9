package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/bullion-next/internal/queue"
	"github.com/bullion-next/internal/service"
	"github.com/bullion-next/internal/storage"

	"github.com/hibiken/asynq"
)

type fakeProducts struct {
	regenerateErr error
	purgeErr      error
	batches       []uint
	purged        []string
}

func (f *fakeProducts) RegenerateBatch(_ context.Context, batchID uint) (int, error) {
	f.batches = append(f.batches, batchID)
	if f.regenerateErr != nil {
		return 0, f.regenerateErr
	}
	return 3, nil
}

func (f *fakeProducts) PurgeArtifact(_ context.Context, code, existingURL string) error {
	f.purged = append(f.purged, code+"|"+existingURL)
	return f.purgeErr
}

func mustBatchTask(t *testing.T, batchID uint) *asynq.Task {
	t.Helper()
	task, err := queue.NewBatchQRRegenerateTask(queue.BatchQRRegeneratePayload{BatchID: batchID})
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}
	return task
}

func mustPurgeTask(t *testing.T, code, url string) *asynq.Task {
	t.Helper()
	task, err := queue.NewArtifactPurgeTask(queue.ArtifactPurgePayload{SerialCode: code, ExistingURL: url})
	if err != nil {
		t.Fatalf("build task failed: %v", err)
	}
	return task
}

func TestHandleBatchQRRegenerate(t *testing.T) {
	products := &fakeProducts{}
	consumer := &Consumer{Products: products}
	ctx := context.Background()

	if err := consumer.handleBatchQRRegenerate(ctx, mustBatchTask(t, 7)); err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	if len(products.batches) != 1 || products.batches[0] != 7 {
		t.Fatalf("unexpected calls %v", products.batches)
	}

	if err := consumer.handleBatchQRRegenerate(ctx, mustBatchTask(t, 0)); err != nil {
		t.Fatalf("zero batch id should be skipped, got %v", err)
	}
	if len(products.batches) != 1 {
		t.Fatalf("zero batch id should not reach service")
	}

	if err := consumer.handleBatchQRRegenerate(ctx, asynq.NewTask(queue.TaskBatchQRRegenerate, []byte("{"))); err == nil {
		t.Fatalf("malformed payload should return error")
	}
}

func TestHandleBatchQRRegenerateErrors(t *testing.T) {
	ctx := context.Background()
	missing := &Consumer{Products: &fakeProducts{regenerateErr: fmt.Errorf("load: %w", service.ErrBatchNotFound)}}
	if err := missing.handleBatchQRRegenerate(ctx, mustBatchTask(t, 9)); err != nil {
		t.Fatalf("missing batch should not retry, got %v", err)
	}

	boom := errors.New("storage unavailable")
	failing := &Consumer{Products: &fakeProducts{regenerateErr: boom}}
	if err := failing.handleBatchQRRegenerate(ctx, mustBatchTask(t, 9)); !errors.Is(err, boom) {
		t.Fatalf("want retryable error got %v", err)
	}
}

func TestHandleArtifactPurge(t *testing.T) {
	ctx := context.Background()
	products := &fakeProducts{}
	consumer := &Consumer{Products: products}

	if err := consumer.handleArtifactPurge(ctx, mustPurgeTask(t, " SKA000001 ", "/qr/SKA000001.png")); err != nil {
		t.Fatalf("purge failed: %v", err)
	}
	if len(products.purged) != 1 || products.purged[0] != "SKA000001|/qr/SKA000001.png" {
		t.Fatalf("unexpected purge calls %v", products.purged)
	}
	if err := consumer.handleArtifactPurge(ctx, mustPurgeTask(t, "  ", "")); err != nil {
		t.Fatalf("empty code should be skipped, got %v", err)
	}

	invalid := &Consumer{Products: &fakeProducts{purgeErr: storage.ErrInvalidObjectCode}}
	if err := invalid.handleArtifactPurge(ctx, mustPurgeTask(t, "a/b", "")); err != nil {
		t.Fatalf("invalid code should not retry, got %v", err)
	}

	boom := errors.New("remove failed")
	failing := &Consumer{Products: &fakeProducts{purgeErr: boom}}
	if err := failing.handleArtifactPurge(ctx, mustPurgeTask(t, "SKA000002", "")); !errors.Is(err, boom) {
		t.Fatalf("want retryable error got %v", err)
	}
}

func TestRegisterNilConsumerIsSafe(t *testing.T) {
	var consumer *Consumer
	consumer.Register(asynq.NewServeMux())
	if err := consumer.handleArtifactPurge(context.Background(), nil); err != nil {
		t.Fatalf("nil consumer should be a no-op, got %v", err)
	}
}
