// Command snapshot fetches static map images from the command line, one
// from flags or many from a batch file of JSON envelopes.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/mohammed-shakir/static-snapshot/internal/core/credential"
	"github.com/mohammed-shakir/static-snapshot/internal/core/httpclient"
	"github.com/mohammed-shakir/static-snapshot/internal/core/snapshot"
	"github.com/mohammed-shakir/static-snapshot/internal/logger"
)

var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("snapshot", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var o options
	fs.StringVar(&o.style, "style", "", "style URL, mapbox://styles/{owner}/{id}")
	fs.StringVar(&o.tilesets, "tilesets", "", "comma-separated tileset ids (legacy endpoint)")
	fs.StringVar(&o.center, "center", "", "lon,lat; empty fits the overlays")
	fs.Float64Var(&o.zoom, "zoom", -1, "zoom level; negative means unset")
	fs.Float64Var(&o.altitude, "altitude", 0, "camera altitude in meters, used when -zoom is unset")
	fs.Float64Var(&o.pitch, "pitch", 0, "camera pitch in degrees")
	fs.Float64Var(&o.heading, "heading", 0, "camera heading in degrees")
	fs.IntVar(&o.width, "width", 600, "width in points")
	fs.IntVar(&o.height, "height", 400, "height in points")
	fs.IntVar(&o.scale, "scale", 1, "1 or 2")
	fs.StringVar(&o.format, "format", "png", "tileset image format")
	fs.Var(&o.markers, "marker", "lon,lat[,size[,label[,hex]]], repeatable")
	fs.Var(&o.paths, "path", "lon,lat;lon,lat;..., repeatable")
	fs.StringVar(&o.h3, "h3", "", "lon,lat,resolution[,rings]: outline H3 cells")
	fs.BoolVar(&o.noLogo, "no-logo", false, "hide the logo (style endpoint)")
	fs.BoolVar(&o.noAttrib, "no-attribution", false, "hide the attribution (style endpoint)")
	fs.StringVar(&o.beforeLayer, "before-layer", "", "draw overlays below this style layer")

	token := fs.String("token", "", "access token (default $"+credential.EnvVar+")")
	host := fs.String("host", snapshot.DefaultHost, "API host or base URL")
	out := fs.String("out", "", "output file (default snapshot.{format})")
	printURL := fs.Bool("print-url", false, "print the request URL with the token redacted and exit")
	thumb := fs.Int("thumb", 0, "also write a PNG thumbnail this many pixels wide")
	batch := fs.String("batch", "", "JSON file with a list of envelopes")
	outDir := fs.String("outdir", ".", "output directory for -batch")
	concurrency := fs.Int("concurrency", 4, "parallel fetches for -batch")
	rps := fs.Float64("rps", 0, "outbound requests per second, 0 for no pacing")
	timeout := fs.Duration("timeout", httpclient.DefaultTimeout, "per-request timeout")
	logLevel := fs.String("log-level", "warn", "log level")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	zl := logger.Build(logger.Config{Level: *logLevel, Console: true, Component: "snapshot-cli"}, stderr)
	log := logger.NewSlog(&zl)

	opts := []snapshot.Option{
		snapshot.WithAccessToken(*token),
		snapshot.WithCredentialSource(credential.EnvSource{}),
		snapshot.WithHost(*host),
		snapshot.WithHTTPClient(httpclient.NewOutbound(*timeout, httpclient.UserAgent(Version))),
		snapshot.WithLogger(log),
	}
	if *rps > 0 {
		opts = append(opts, snapshot.WithLimiter(rate.NewLimiter(rate.Limit(*rps), 1)))
	}
	client, err := snapshot.New(ctx, opts...)
	if err != nil {
		fmt.Fprintln(stderr, "snapshot:", err)
		return 1
	}
	defer client.Close()

	if *batch != "" {
		items, err := loadBatch(*batch)
		if err != nil {
			fmt.Fprintln(stderr, "snapshot:", err)
			return 1
		}
		if *printURL {
			return printBatchURLs(client, items, stdout, stderr)
		}
		if err := os.MkdirAll(*outDir, 0o755); err != nil {
			fmt.Fprintln(stderr, "snapshot:", err)
			return 1
		}
		br := batchRun{
			client:      client,
			outDir:      *outDir,
			thumb:       *thumb,
			concurrency: *concurrency,
			progress:    stderr,
			log:         log,
		}
		if failed := br.run(ctx, items); failed > 0 {
			fmt.Fprintf(stderr, "snapshot: %d of %d failed\n", failed, len(items))
			return 1
		}
		return 0
	}

	env, err := o.envelope()
	if err != nil {
		fmt.Fprintln(stderr, "snapshot:", err)
		return 2
	}
	req, err := env.Request()
	if err != nil {
		fmt.Fprintln(stderr, "snapshot:", err)
		return 2
	}

	if *printURL {
		u, err := client.RedactedURL(req)
		if err != nil {
			fmt.Fprintln(stderr, "snapshot:", err)
			return 2
		}
		fmt.Fprintln(stdout, u)
		return 0
	}

	start := time.Now()
	res, err := client.Fetch(ctx, req)
	if err != nil {
		reportError(stderr, err)
		return 1
	}
	path := *out
	if path == "" {
		path = "snapshot." + extension(res.Format)
	}
	if err := os.WriteFile(path, res.Data, 0o644); err != nil {
		fmt.Fprintln(stderr, "snapshot:", err)
		return 1
	}
	if *thumb > 0 {
		if err := writePNG(thumbPath(path), thumbnail(res.Image, *thumb)); err != nil {
			fmt.Fprintln(stderr, "snapshot:", err)
			return 1
		}
	}
	log.Info("snapshot written", "path", path, "bytes", len(res.Data), "took", time.Since(start))
	return 0
}

func printBatchURLs(client *snapshot.Client, items []batchItem, stdout, stderr io.Writer) int {
	code := 0
	for i, it := range items {
		req, err := it.Request()
		if err == nil {
			var u string
			if u, err = client.RedactedURL(req); err == nil {
				fmt.Fprintln(stdout, u)
				continue
			}
		}
		fmt.Fprintf(stderr, "snapshot: item %d: %v\n", i+1, err)
		code = 2
	}
	return code
}

// reportError prints the failure with its reason and suggestion, if any.
func reportError(w io.Writer, err error) {
	fmt.Fprintln(w, "snapshot:", err)
	var se *snapshot.ServiceError
	if errors.As(err, &se) {
		if se.Reason != "" && !strings.Contains(err.Error(), se.Reason) {
			fmt.Fprintln(w, "  "+se.Reason)
		}
		if se.Suggestion != "" {
			fmt.Fprintln(w, "  "+se.Suggestion)
		}
	}
}

func extension(format string) string {
	if format == "jpeg" {
		return "jpg"
	}
	if format == "" {
		return "img"
	}
	return format
}
