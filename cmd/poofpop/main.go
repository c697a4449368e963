package main

import (
	"context"
	"flag"
	"fmt"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/log"

	"github.com/jiulngdjso/poofpop-web/api"
	"github.com/jiulngdjso/poofpop-web/credits"
	"github.com/jiulngdjso/poofpop-web/errormsg"
	"github.com/jiulngdjso/poofpop-web/process"
	"github.com/jiulngdjso/poofpop-web/task"
	"github.com/jiulngdjso/poofpop-web/upload"
	"github.com/jiulngdjso/poofpop-web/watch"
)

const defaultAPIBase = "https://poofpop-api.15159759780cjh.workers.dev"

type config struct {
	apiBase string
	apiKey  string
	s3      upload.S3Options
}

func main() {
	logger := log.NewLogger()
	if err := run(logger); err != nil {
		msg := errormsg.For(err)
		logger.Println()
		logger.Errorf("%s", msg.Title)
		logger.Errorf("%s", msg.Message)
		logger.Warnf("%s", msg.Guidance)
		if msg.Action != nil {
			logger.Printf("%s: %s", msg.Action.Label, msg.Action.URL)
		}
		logger.Debugf("error detail: %s", err)
		os.Exit(1)
	}
}

func run(logger log.Logger) error {
	var (
		filePath   = flag.String("file", "", "video file to process")
		taskType   = flag.String("task", string(task.TypeWatermarkRemoval), "task type (minimax_remove or video-object-removal)")
		removeText = flag.String("remove-text", "", "object to remove (video-object-removal only)")
		outPath    = flag.String("out", "", "download the result to this path")
		batch      = flag.String("batch", "", "comma-separated file patterns for batch processing")
		verbose    = flag.Bool("verbose", false, "enable debug logging")
	)
	flag.Parse()

	logger.EnableDebugLog(*verbose)

	cfg, err := loadConfig(env.NewRepository())
	if err != nil {
		return err
	}

	client, err := api.NewClient(api.Config{
		BaseURL: cfg.apiBase,
		APIKey:  cfg.apiKey,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	params, err := task.ParamsForType(*taskType, *removeText)
	if err != nil {
		return err
	}

	creditStore := credits.NewStore()
	if balance, err := client.GetCredits(ctx); err != nil {
		logger.Debugf("could not fetch credit balance: %s", err)
	} else {
		creditStore.Set(balance)
		logger.Printf("Credits: %d", balance)
	}

	runner := process.NewRunner(client, creditStore, nil, logger)

	if *batch != "" {
		return runBatch(ctx, runner, *batch, params, logger)
	}

	if *filePath == "" {
		flag.Usage()
		return fmt.Errorf("either -file or -batch is required")
	}
	return runSingle(ctx, runner, *filePath, *outPath, params, cfg, logger)
}

func runSingle(ctx context.Context, runner *process.Runner, filePath, outPath string, params task.Params, cfg config, logger log.Logger) error {
	runResult, err := runner.Run(ctx, process.RunInput{
		Path:        filePath,
		ContentType: contentTypeOf(filePath),
		Task:        params,
		S3:          cfg.s3,
		OnUploadProgress: func(percent int) {
			logger.Printf("Upload: %d%%", percent)
		},
		OnStatus: func(snapshot watch.Snapshot) {
			if snapshot.Progress > 0 {
				logger.Printf("Status: %s (%d%%)", snapshot.Status, snapshot.Progress)
			} else {
				logger.Printf("Status: %s", snapshot.Status)
			}
		},
	})
	if err != nil {
		return err
	}

	logger.Println()
	logger.Donef("Processing complete")
	logger.Printf("Download URL: %s", runResult.DownloadURL)

	if outPath != "" {
		if err := runner.SaveResult(ctx, runResult, outPath); err != nil {
			return err
		}
		logger.Donef("Saved result to %s", outPath)
	}
	return nil
}

func runBatch(ctx context.Context, runner *process.Runner, patterns string, params task.Params, logger log.Logger) error {
	batchResult, err := runner.RunBatch(ctx, process.BatchInput{
		Patterns:    strings.Split(patterns, ","),
		ContentType: "video/mp4",
		Task:        params,
		OnStatus: func(ref string, snapshot watch.Snapshot) {
			logger.Debugf("[%s] %s (%d%%)", ref, snapshot.Status, snapshot.Progress)
		},
	})
	if err != nil {
		return err
	}

	logger.Println()
	logger.Infof("Batch %s finished", batchResult.BatchID)
	failures := 0
	for _, job := range batchResult.Jobs {
		if job.Err != nil {
			failures++
			logger.Errorf("%s: %s", job.Path, errormsg.For(job.Err).Message)
			continue
		}
		logger.Donef("%s -> %s", job.Path, job.DownloadURL)
	}
	if failures > 0 {
		return fmt.Errorf("%d of %d jobs failed", failures, len(batchResult.Jobs))
	}
	return nil
}

func loadConfig(envRepo env.Repository) (config, error) {
	apiBase := envRepo.Get("POOFPOP_API_BASE")
	if apiBase == "" {
		apiBase = defaultAPIBase
	}
	apiKey := envRepo.Get("POOFPOP_API_KEY")
	if apiKey == "" {
		return config{}, fmt.Errorf("the secret 'POOFPOP_API_KEY' is not defined")
	}

	return config{
		apiBase: apiBase,
		apiKey:  apiKey,
		s3: upload.S3Options{
			Region:          envRepo.Get("AWS_REGION"),
			AccessKeyID:     envRepo.Get("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: envRepo.Get("AWS_SECRET_ACCESS_KEY"),
		},
	}, nil
}

func contentTypeOf(path string) string {
	if contentType := mime.TypeByExtension(filepath.Ext(path)); contentType != "" {
		return contentType
	}
	return "video/mp4"
}
