package snapshot

import (
	"context"
	"errors"
	"image"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mohammed-shakir/static-snapshot/internal/core/staticapi"
)

func waitDone(t *testing.T, task *Task) {
	t.Helper()
	select {
	case <-task.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("task did not settle")
	}
}

func TestFetchAsync_DeliversOnceOnQueue(t *testing.T) {
	data := pngBytes(t)
	q := NewSerialQueue(1)
	defer q.Close()

	var onQueue atomic.Bool
	wrapped := QueueFunc(func(fn func()) {
		q.Dispatch(func() {
			onQueue.Store(true)
			fn()
		})
	})
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(data)
	}, WithQueue(wrapped))

	var calls int32
	var got image.Image
	task := c.FetchAsync(context.Background(), basicRequest(), func(img image.Image, err error) {
		atomic.AddInt32(&calls, 1)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		got = img
	})
	waitDone(t, task)

	if atomic.LoadInt32(&calls) != 1 || got == nil {
		t.Fatalf("handler calls=%d img=%v", calls, got)
	}
	if !onQueue.Load() {
		t.Fatalf("handler did not run on the completion queue")
	}
	if task.Cancel() {
		t.Fatalf("cancel after delivery must have no effect")
	}
}

func TestFetchAsync_CancelSuppressesHandler(t *testing.T) {
	release := make(chan struct{})
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	var calls int32
	task := c.FetchAsync(context.Background(), basicRequest(), func(image.Image, error) {
		atomic.AddInt32(&calls, 1)
	})
	if !task.Cancel() {
		t.Fatalf("cancel before completion must win")
	}
	waitDone(t, task)
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatalf("handler ran after cancel")
	}
	if !task.Cancelled() {
		t.Fatalf("task should report cancelled")
	}
}

func TestFetchAsync_DeliversErrors(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	errs := make(chan error, 2)
	task := c.FetchAsync(context.Background(), basicRequest(), func(img image.Image, err error) {
		if img != nil {
			t.Errorf("image and error together")
		}
		errs <- err
	})
	waitDone(t, task)
	var se *ServiceError
	if err := <-errs; !errors.As(err, &se) || se.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 service error, got %v", err)
	}

	bad := basicRequest()
	bad.Source = nil
	task = c.FetchAsync(context.Background(), bad, func(_ image.Image, err error) { errs <- err })
	waitDone(t, task)
	if err := <-errs; !errors.Is(err, staticapi.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestSerialQueue_OrderAndClose(t *testing.T) {
	q := NewSerialQueue(8)
	var seq []int
	done := make(chan struct{})
	for i := 0; i < 5; i++ {
		q.Dispatch(func() { seq = append(seq, i) })
	}
	q.Dispatch(func() { close(done) })
	<-done
	for i, v := range seq {
		if v != i {
			t.Fatalf("out of order: %v", seq)
		}
	}
	q.Close()
	if q.Dispatch(func() {}) {
		t.Fatalf("dispatch after close must report false")
	}
}

func TestFetchAsync_CancelAfterFetchReturnedHasNoEffect(t *testing.T) {
	data := pngBytes(t)
	pending := make(chan func(), 1)
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(data)
	}, WithQueue(QueueFunc(func(fn func()) { pending <- fn })))

	var calls int32
	task := c.FetchAsync(context.Background(), basicRequest(), func(img image.Image, err error) {
		atomic.AddInt32(&calls, 1)
		if err != nil || img == nil {
			t.Errorf("img=%v err=%v", img, err)
		}
	})

	var deliver func()
	select {
	case deliver = <-pending:
	case <-time.After(5 * time.Second):
		t.Fatalf("fetch did not complete")
	}
	if task.Cancel() {
		t.Fatalf("cancel after the fetch returned must not win")
	}
	deliver()
	waitDone(t, task)
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("handler calls=%d want 1", calls)
	}
	if task.Cancelled() {
		t.Fatalf("task should not report cancelled")
	}
}
