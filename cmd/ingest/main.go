// Command ingest pushes local image files through the full ingestion
// pipeline against the configured object store and metadata database.
// It performs the same client-side preprocessing an uploading device
// would: camera metadata is captured from the untouched source bytes,
// then the frame is bounded and optionally watermarked before upload.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"photo-ingest/internal/database"
	"photo-ingest/internal/exif"
	"photo-ingest/internal/ingest"
	"photo-ingest/internal/keys"
	"photo-ingest/internal/pipeline"
	"photo-ingest/internal/startup"
	"photo-ingest/internal/storage"
)

func main() {
	var (
		folder      = flag.String("folder", "", "logical folder for the uploaded assets")
		description = flag.String("description", "", "description stored with each asset")
		altText     = flag.String("alt", "", "alt text stored with each asset")
		tags        = flag.String("tags", "", "comma-separated tags")
		albumID     = flag.Int64("album", 0, "album id to attach (0 = none)")
		principal   = flag.String("principal", "cli", "owner principal id")
		concurrency = flag.Int("concurrency", 0, "max parallel uploads (0 = auto)")
	)
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: ingest [flags] <image file> ...")
		flag.PrintDefaults()
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, shutting down...")
		cancel()
	}()

	config, err := startup.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: configuration: %v\n", err)
		os.Exit(1)
	}

	db, err := database.New(ctx, config.DatabasePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	store, err := storage.NewS3Store(ctx, storage.S3Options{
		Endpoint:        config.S3Endpoint,
		Region:          config.S3Region,
		Bucket:          config.S3Bucket,
		AccessKeyID:     config.S3AccessKeyID,
		AccessKeySecret: config.S3AccessSecret,
		DisableHTTPS:    config.S3DisableHTTPS,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: object store: %v\n", err)
		os.Exit(1)
	}

	var codec pipeline.Codec
	if config.CodecBackend == "vips" {
		pipeline.InitVips()
		defer pipeline.ShutdownVips()
		codec = pipeline.VipsCodec{}
	} else {
		codec = pipeline.StdCodec{}
	}

	scheme := keys.Scheme{
		OriginalPrefix:  config.OriginalPrefix,
		ThumbnailPrefix: config.ThumbnailPrefix,
		DefaultFolder:   config.DefaultFolder,
	}
	resolver := keys.Resolver{BaseDomain: config.BaseDomain, Scheme: scheme}

	coord := ingest.NewCoordinator(store, db, codec, scheme, resolver, pipeline.DeriveConfig{
		MaxOriginalDim: config.MaxOriginalDim,
		MaxThumbDim:    config.ThumbnailProfile.Dim(),
		Quality:        config.JPEGQuality,
	})

	var watermark []byte
	if config.WatermarkPath != "" {
		watermark, err = os.ReadFile(config.WatermarkPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: watermark %s unreadable, continuing without: %v\n",
				config.WatermarkPath, err)
			watermark = nil
		}
	}
	preOpts := pipeline.PreprocessOptions{
		MaxWidth:          config.PreuploadMaxDim,
		MaxHeight:         config.PreuploadMaxDim,
		FloorBytes:        config.CompressFloorBytes,
		Watermark:         watermark,
		WatermarkRatio:    config.WatermarkRatio,
		WatermarkMarginPx: config.WatermarkMarginPx,
		Quality:           config.JPEGQuality,
	}

	var tagList []string
	if *tags != "" {
		for _, t := range strings.Split(*tags, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tagList = append(tagList, t)
			}
		}
	}

	reqs := make([]ingest.Request, 0, flag.NArg())
	for _, path := range flag.Args() {
		raw, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: read %s: %v\n", path, err)
			os.Exit(1)
		}
		mimeType := detectMIME(raw, path)

		// Capture camera metadata before preprocessing re-encodes the
		// frame and discards the tag block.
		meta := exif.Extract(raw)

		data, err := pipeline.Preprocess(codec, raw, mimeType, preOpts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: preprocess %s: %v\n", path, err)
			os.Exit(1)
		}

		req := ingest.Request{
			Data:        data,
			MIMEType:    mimeType,
			Folder:      *folder,
			Description: *description,
			AltText:     *altText,
			Tags:        tagList,
			PrincipalID: *principal,
			Meta:        &meta,
		}
		if *albumID != 0 {
			id := *albumID
			req.AlbumID = &id
		}
		reqs = append(reqs, req)
	}

	items := coord.IngestBatch(ctx, reqs, *concurrency)

	failures := 0
	for i, item := range items {
		name := filepath.Base(flag.Arg(i))
		if item.Err != nil {
			failures++
			fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", name, item.Err)
			// Confirm which reported orphans actually landed so the
			// operator knows what needs cleaning up.
			for _, key := range ingest.WrittenKeys(item.Err) {
				if ok, err := store.Exists(ctx, key); err == nil && ok {
					fmt.Fprintf(os.Stderr, "     orphaned object: %s\n", key)
				}
			}
			continue
		}
		fmt.Printf("%s\n  asset:     %d (%dx%d, %d bytes)\n  original:  %s\n  thumbnail: %s\n",
			name, item.Result.AssetID, item.Result.Width, item.Result.Height,
			item.Result.ByteSize, item.Result.OriginalURL, item.Result.ThumbnailURL)
	}

	if failures > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d files failed\n", failures, len(items))
		os.Exit(1)
	}
}

func detectMIME(data []byte, path string) string {
	if detected := http.DetectContentType(data); pipeline.SupportedMIME(detected) {
		return detected
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return pipeline.MIMEJPEG
	case ".png":
		return pipeline.MIMEPNG
	case ".gif":
		return pipeline.MIMEGIF
	case ".webp":
		return pipeline.MIMEWebP
	}
	return http.DetectContentType(data)
}
