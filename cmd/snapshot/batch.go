package main

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/mohammed-shakir/static-snapshot/internal/core/snapshot"
	"github.com/mohammed-shakir/static-snapshot/internal/core/staticapi"
)

// batchItem is one envelope plus an optional output file name.
type batchItem struct {
	Out string `json:"out,omitempty"`
	staticapi.Envelope
}

func loadBatch(path string) ([]batchItem, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read batch: %w", err)
	}
	var items []batchItem
	if err := json.Unmarshal(b, &items); err != nil {
		return nil, fmt.Errorf("parse batch %s: %w", path, err)
	}
	return items, nil
}

type batchRun struct {
	client      *snapshot.Client
	outDir      string
	thumb       int
	concurrency int
	progress    io.Writer
	log         *slog.Logger
}

// run fetches every item with FetchAsync, at most concurrency at a time,
// and returns how many failed. Results are written from the client's
// completion queue, so file writes never overlap.
func (b batchRun) run(ctx context.Context, items []batchItem) int {
	if b.concurrency < 1 {
		b.concurrency = 1
	}
	bar := progressbar.NewOptions(len(items),
		progressbar.OptionSetWriter(b.progress),
		progressbar.OptionSetDescription("snapshots"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionThrottle(100*time.Millisecond),
	)

	var (
		failed atomic.Int32
		wg     sync.WaitGroup
		sem    = make(chan struct{}, b.concurrency)
	)
	for i, it := range items {
		name := it.Out
		if name == "" {
			name = fmt.Sprintf("snapshot-%03d.png", i+1)
		}
		out := filepath.Join(b.outDir, name)

		req, err := it.Request()
		if err != nil {
			failed.Add(1)
			b.log.Error("batch item rejected", "item", i+1, "err", err)
			_ = bar.Add(1)
			continue
		}

		sem <- struct{}{}
		task := b.client.FetchAsync(ctx, req, func(img image.Image, err error) {
			defer func() { _ = bar.Add(1) }()
			if err != nil {
				failed.Add(1)
				b.log.Error("snapshot failed", "item", i+1, "err", err)
				return
			}
			if err := b.write(out, img); err != nil {
				failed.Add(1)
				b.log.Error("write snapshot", "item", i+1, "err", err)
			}
		})
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-task.Done()
			<-sem
		}()
	}
	wg.Wait()
	_ = bar.Finish()
	return int(failed.Load())
}

func (b batchRun) write(out string, img image.Image) error {
	if err := writePNG(out, img); err != nil {
		return err
	}
	if b.thumb > 0 {
		return writePNG(thumbPath(out), thumbnail(img, b.thumb))
	}
	return nil
}
