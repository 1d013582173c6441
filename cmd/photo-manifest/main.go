package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"photo-cleaner/internal/logger"
	"photo-cleaner/internal/photoprism"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("photo-manifest", flag.ContinueOnError)
	fs.SetOutput(stderr)

	baseURL := fs.String("url", "localhost:2342", "photo service base URL")
	username := fs.String("user", "admin", "photo service user name")
	password := fs.String("password", os.Getenv("PHOTOPRISM_PASSWORD"), "photo service password (default $PHOTOPRISM_PASSWORD)")
	threshold := fs.Int("threshold", 3, "highest quality rating counted as low quality")
	batchSize := fs.Int("batch", photoprism.DefaultBatchSize, "photos requested per page")
	output := fs.String("out", "", "manifest path (default low_quality_photos_<timestamp>.json)")
	logLevel := fs.String("log-level", "info", "log level: debug, info, warn, error")
	timeout := fs.Duration("timeout", 30*time.Second, "HTTP request timeout")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	log := logger.New(logger.LevelFromEnv(logger.ParseLevel(*logLevel)), false)

	if *output == "" {
		*output = photoprism.ManifestName(time.Now())
	}

	client := photoprism.NewClient(&http.Client{Timeout: *timeout}, *baseURL, *username, *password, log)
	if err := client.Login(ctx); err != nil {
		log.Error("PhotoManifest", err, map[string]interface{}{"url": client.BaseURL})
		return 1
	}

	photos, err := client.ListPhotos(ctx, *batchSize)
	if err != nil {
		log.Error("PhotoManifest", err, nil)
		return 1
	}

	low := photoprism.FilterLowQuality(photos, *threshold)
	printAnalysis(stdout, photos, low)

	if err := writeManifest(*output, low); err != nil {
		log.Error("PhotoManifest", err, map[string]interface{}{"path": *output})
		return 1
	}

	log.Info("PhotoManifest", "manifest written", map[string]interface{}{
		"path":        *output,
		"total":       len(photos),
		"low_quality": len(low),
	})
	return 0
}

func printAnalysis(w io.Writer, photos, low []photoprism.Photo) {
	total := len(photos)
	fmt.Fprintf(w, "Total photos: %d\n", total)
	fmt.Fprintf(w, "Low quality photos: %d (%s)\n", len(low), percent(len(low), total))

	fmt.Fprintln(w, "\nQuality distribution:")
	for _, b := range photoprism.QualityDistribution(photos) {
		fmt.Fprintf(w, "  quality %s: %d (%s)\n", b.Key, b.Count, percent(b.Count, total))
	}

	fmt.Fprintln(w, "\nLow quality file types:")
	for _, b := range photoprism.TypeDistribution(low) {
		fmt.Fprintf(w, "  %s: %d (%s)\n", b.Key, b.Count, percent(b.Count, len(low)))
	}
}

func percent(n, total int) string {
	if total == 0 {
		return "0.00%"
	}
	return fmt.Sprintf("%.2f%%", float64(n)/float64(total)*100)
}

func writeManifest(path string, photos []photoprism.Photo) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := photoprism.WriteManifest(f, photos); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
