package workerpool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
)

func TestProcess(t *testing.T) {
	t.Parallel()

	t.Run("processes all items", func(t *testing.T) {
		t.Parallel()

		items := make([]int, 100)
		for i := range items {
			items[i] = i
		}

		var sum int64
		err := Process(context.Background(), 4, items, func(_ context.Context, v int) error {
			atomic.AddInt64(&sum, int64(v))
			return nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sum != 4950 {
			t.Fatalf("sum = %d, want 4950", sum)
		}
	})

	t.Run("first error surfaces", func(t *testing.T) {
		t.Parallel()

		wantErr := errors.New("boom")
		items := make([]int, 1000)
		for i := range items {
			items[i] = i
		}

		err := Process(context.Background(), 2, items, func(_ context.Context, v int) error {
			if v == 10 {
				return wantErr
			}
			return nil
		})
		if !errors.Is(err, wantErr) {
			t.Fatalf("error = %v, want %v", err, wantErr)
		}
	})

	t.Run("canceled context skips remaining items", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		var ran int64
		err := Process(ctx, 4, []int{1, 2, 3}, func(context.Context, int) error {
			atomic.AddInt64(&ran, 1)
			return nil
		})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("error = %v, want context.Canceled", err)
		}
		if ran != 0 {
			t.Fatalf("%d items ran after cancellation", ran)
		}
	})

	t.Run("empty input succeeds", func(t *testing.T) {
		t.Parallel()

		err := Process(context.Background(), 4, nil, func(context.Context, int) error {
			return errors.New("unreachable")
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("worker count below one is clamped", func(t *testing.T) {
		t.Parallel()

		var count int64
		err := Process(context.Background(), 0, []int{1, 2, 3}, func(_ context.Context, _ int) error {
			atomic.AddInt64(&count, 1)
			return nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if count != 3 {
			t.Fatalf("processed = %d, want 3", count)
		}
	})
}
