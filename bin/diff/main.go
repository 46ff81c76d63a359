package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"image"
	v1 "image-compare/api/v1"
	"image-compare/internal/client"
	"image-compare/internal/codec"
	diffimage "image-compare/internal/diff/image"
	"image-compare/internal/env"
	"image-compare/internal/logging"
	"image-compare/internal/metrics"
	"image-compare/internal/storage"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

type config struct {
	params         diffimage.Parameters
	format         codec.Format
	storage        storage.Storage
	debugView      bool
	serverURL      string
	pushgatewayURL string
}

func main() {
	// .env is optional
	_ = godotenv.Load()

	var threshold string
	var markColor string
	var markAmount float64
	var format string
	var directory string
	var storageBackend string
	var debugView bool
	var serverURL string
	var pushgatewayURL string
	flag.StringVar(&threshold, "threshold", env.OrDefault("THRESHOLD", fmt.Sprint(diffimage.DefaultThreshold)), "Per-channel difference below which pixels are left untouched (0 to 1)")
	flag.StringVar(&markColor, "mark-color", env.OrDefault("MARK_COLOR", diffimage.FormatMarkColor(diffimage.DefaultMarkColor)), "Highlight color (#RRGGBB)")
	flag.Float64Var(&markAmount, "mark-amount", env.OrDefault("MARK_AMOUNT", diffimage.DefaultMarkAmount), "Highlight strength (0 to 1)")
	flag.StringVar(&format, "format", env.OrDefault("FORMAT", string(codec.PNG)), "Output format (png, jpeg or bmp)")
	flag.StringVar(&directory, "directory", env.OrDefault("DIRECTORY", "/tmp"), "Output directory")
	flag.StringVar(&storageBackend, "storage-backend", env.OrDefault("STORAGE_BACKEND", "file"), "Storage backend (file or s3)")
	flag.BoolVar(&debugView, "debug-view", env.OrDefault("DEBUG_VIEW", false), "Treat the single argument as a 3x3 debug composite")
	flag.StringVar(&serverURL, "server", env.OrDefault("DIFF_SERVER_URL", ""), "Compute the diff on a diff-server instead of locally")
	flag.StringVar(&pushgatewayURL, "pushgateway", env.OrDefault("PUSHGATEWAY_URL", ""), "Push run metrics to a Prometheus Pushgateway")

	flag.Parse()

	level, err := logging.LevelFromEnv()
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}
	slog.SetDefault(logging.New(os.Stderr, level, false))

	ctx := context.Background()

	parsedColor, err := diffimage.ParseMarkColor(markColor)
	if err != nil {
		log.Fatalf("Invalid mark color: %v", err)
	}
	parsedFormat, err := codec.ParseFormat(format)
	if err != nil {
		log.Fatalf("Invalid output format: %v", err)
	}

	var s storage.Storage
	switch storageBackend {
	case "file":
		s, err = storage.NewFileStorage(ctx, storage.FileConfig{
			Directory: directory,
		})
		if err != nil {
			log.Fatalf("Failed to create file storage backend: %v", err)
		}
	case "s3":
		s, err = storage.NewS3Storage(ctx, storage.S3Config{
			Bucket: os.Getenv("S3_BUCKET"),
		})
		if err != nil {
			log.Fatalf("Failed to create s3 storage backend: %v", err)
		}
	default:
		log.Fatalf("Unknown storage backend: %s", storageBackend)
	}

	cfg := config{
		params: diffimage.Parameters{
			Threshold:  diffimage.ParseThreshold(threshold, diffimage.DefaultThreshold),
			MarkColor:  parsedColor,
			MarkAmount: markAmount,
		}.Clamp(),
		format:         parsedFormat,
		storage:        s,
		debugView:      debugView,
		serverURL:      serverURL,
		pushgatewayURL: pushgatewayURL,
	}

	output, err := run(ctx, cfg, flag.Args(), time.Now())
	if err != nil {
		log.Fatalf("Failed to diff images: %v", err)
	}

	if err := json.NewEncoder(os.Stdout).Encode(output); err != nil {
		log.Fatalf("Failed to encode result: %v", err)
	}
}

func run(ctx context.Context, cfg config, args []string, now time.Time) (*v1.DiffOutput, error) {
	diffMetrics := metrics.NewDiff()
	if cfg.pushgatewayURL != "" {
		defer func() {
			if err := diffMetrics.Push(ctx, cfg.pushgatewayURL, "image-compare-diff"); err != nil {
				slog.Warn("failed to push metrics", "error", err)
			}
		}()
	}

	currentPath, referencePath, in, err := loadInputs(args, cfg.debugView)
	if err != nil {
		diffMetrics.Fail(metrics.ResultInvalidInput)
		return nil, err
	}

	started := time.Now()
	var data []byte
	var amount float64
	var pixels int
	if cfg.serverURL != "" {
		data, amount, pixels, err = diffRemote(ctx, cfg, in)
	} else {
		data, amount, pixels, err = diffLocal(cfg, in)
	}
	if err != nil {
		diffMetrics.Fail(metrics.ResultError)
		return nil, err
	}
	diffMetrics.Observe(amount, pixels, time.Since(started))

	key := storage.DiffKey(currentPath, referencePath, cfg.format.Extension(), now)
	diffPath, err := cfg.storage.Put(ctx, key, data)
	if err != nil {
		return nil, xerrors.Errorf("failed to save diff image: %w", err)
	}
	slog.Info("diff saved", "path", diffPath, "diffAmount", amount, "pixels", pixels)

	return &v1.DiffOutput{
		DiffPath:   diffPath,
		DiffAmount: amount,
	}, nil
}

type inputs struct {
	current       image.Image
	reference     image.Image
	currentData   []byte
	referenceData []byte
}

func loadInputs(args []string, debugView bool) (string, string, *inputs, error) {
	if debugView {
		if len(args) != 1 {
			return "", "", nil, xerrors.New("debug view expects exactly one composite image")
		}
		composite, err := codec.DecodeFile(args[0])
		if err != nil {
			return "", "", nil, err
		}
		current, reference, err := diffimage.SplitDebugView(composite)
		if err != nil {
			return "", "", nil, xerrors.Errorf("failed to split %s: %w", args[0], err)
		}
		in := &inputs{current: current, reference: reference}
		eg := errgroup.Group{}
		eg.Go(func() error {
			var err error
			in.currentData, err = codec.EncodeBytes(current, codec.PNG)
			return err
		})
		eg.Go(func() error {
			var err error
			in.referenceData, err = codec.EncodeBytes(reference, codec.PNG)
			return err
		})
		if err := eg.Wait(); err != nil {
			return "", "", nil, err
		}
		return args[0] + "#current", args[0] + "#reference", in, nil
	}

	if len(args) < 2 {
		return "", "", nil, xerrors.New("current, reference not specified")
	}
	in := &inputs{}
	eg := errgroup.Group{}
	eg.Go(func() error {
		var err error
		if in.currentData, err = codec.ReadFile(args[0]); err != nil {
			return xerrors.Errorf("failed to load current image: %w", err)
		}
		if in.current, err = codec.Decode(in.currentData); err != nil {
			return xerrors.Errorf("failed to load current image %s: %w", args[0], err)
		}
		return nil
	})
	eg.Go(func() error {
		var err error
		if in.referenceData, err = codec.ReadFile(args[1]); err != nil {
			return xerrors.Errorf("failed to load reference image: %w", err)
		}
		if in.reference, err = codec.Decode(in.referenceData); err != nil {
			return xerrors.Errorf("failed to load reference image %s: %w", args[1], err)
		}
		return nil
	})
	if err := eg.Wait(); err != nil {
		return "", "", nil, err
	}
	return args[0], args[1], in, nil
}

func diffLocal(cfg config, in *inputs) ([]byte, float64, int, error) {
	result, err := diffimage.NewMarkDiff(cfg.params).Calculate(in.reference, in.current)
	if err != nil {
		return nil, 0, 0, xerrors.Errorf("failed to calculate diff: %w", err)
	}
	data, err := codec.EncodeBytes(result.Image, cfg.format)
	if err != nil {
		return nil, 0, 0, err
	}
	bounds := result.Image.Bounds()
	return data, result.DiffAmount, bounds.Dx() * bounds.Dy(), nil
}

func diffRemote(ctx context.Context, cfg config, in *inputs) ([]byte, float64, int, error) {
	c, err := client.New(cfg.serverURL)
	if err != nil {
		return nil, 0, 0, err
	}
	response, err := c.Diff(ctx, client.DiffRequest{
		Current:       in.currentData,
		CurrentName:   "current",
		Reference:     in.referenceData,
		ReferenceName: "reference",
		Parameters:    cfg.params,
		Format:        cfg.format,
	})
	if err != nil {
		return nil, 0, 0, err
	}
	return response.Data, response.DiffAmount, response.Width * response.Height, nil
}
