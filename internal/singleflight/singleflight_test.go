package singleflight

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"
)

func TestDo_Coalesces(t *testing.T) {
	t.Parallel()

	var g Group[string, int]
	var calls atomic.Int32
	release := make(chan struct{})

	var eg errgroup.Group
	for i := 0; i < 16; i++ {
		eg.Go(func() error {
			v, err, _ := g.Do(context.Background(), "k", func() (int, error) {
				calls.Add(1)
				<-release
				return 7, nil
			})
			if err != nil {
				return err
			}
			if v != 7 {
				return errors.New("unexpected value")
			}
			return nil
		})
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	if err := eg.Wait(); err != nil {
		t.Fatal(err)
	}
	if got := calls.Load(); got < 1 || got > 16 {
		t.Fatalf("unexpected call count %d", got)
	}
}

func TestDo_FollowerContextCancel(t *testing.T) {
	t.Parallel()

	var g Group[string, int]
	started := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_, _, _ = g.Do(context.Background(), "k", func() (int, error) {
			close(started)
			<-release
			return 1, nil
		})
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err, shared := g.Do(ctx, "k", func() (int, error) { return 2, nil })
	close(release)
	if !errors.Is(err, context.Canceled) || !shared {
		t.Fatalf("follower must observe its own cancellation, got err=%v shared=%v", err, shared)
	}
}

func TestDo_PanicReleasesKey(t *testing.T) {
	t.Parallel()

	var g Group[string, int]
	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("leader must re-panic")
			}
		}()
		_, _, _ = g.Do(context.Background(), "k", func() (int, error) { panic("boom") })
	}()

	v, err, _ := g.Do(context.Background(), "k", func() (int, error) { return 3, nil })
	if err != nil || v != 3 {
		t.Fatalf("key must be usable after a panic, got v=%d err=%v", v, err)
	}
}
