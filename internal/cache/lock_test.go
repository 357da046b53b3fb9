package cache

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestLocalLockerSerializesSameKey(t *testing.T) {
	locker := NewLocalLocker()
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(context.Background(), "SKN")
			if err != nil {
				t.Errorf("lock failed: %v", err)
				return
			}
			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()
	if maxSeen != 1 {
		t.Fatalf("want at most 1 holder got %d", maxSeen)
	}
	if locker.size() != 0 {
		t.Fatalf("lock entries should be released, got %d", locker.size())
	}
}

func TestLocalLockerDifferentKeysDoNotBlock(t *testing.T) {
	locker := NewLocalLocker()
	unlockA, err := locker.Lock(context.Background(), "SKA")
	if err != nil {
		t.Fatalf("lock SKA failed: %v", err)
	}
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	unlockB, err := locker.Lock(ctx, "SKB")
	if err != nil {
		t.Fatalf("lock SKB should not wait for SKA: %v", err)
	}
	unlockB()
}

func TestLocalLockerHonorsContext(t *testing.T) {
	locker := NewLocalLocker()
	unlock, err := locker.Lock(context.Background(), "SKN")
	if err != nil {
		t.Fatalf("lock failed: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := locker.Lock(ctx, "SKN"); err == nil {
		t.Fatalf("second lock should time out")
	}
	unlock()
	unlock()
	if locker.size() != 0 {
		t.Fatalf("entries should be cleaned up, got %d", locker.size())
	}
}

func TestNewLockerWithoutRedisIsLocal(t *testing.T) {
	if _, ok := NewLocker(time.Second).(*LocalLocker); !ok {
		t.Fatalf("want local locker when redis is disabled")
	}
	if got := BuildKey(VerifyKey(" SKA000001 ")); got != "bn:verify:SKA000001" {
		t.Fatalf("unexpected key %s", got)
	}
}
