// Package main is the entry point for the farmgate extractor.
// The extractor is the sibling worker the controller delegates to in exec
// and docker modes: it reads one task as JSON, performs the extraction or
// persistence, and writes the result as JSON on the last stdout line.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"farmgate/internal/delegate"
	"farmgate/internal/extractor"
	"farmgate/internal/logger"
	"farmgate/internal/store"
	"farmgate/internal/store/objectstore"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Extractor failed: %v", err)
	}
}

func run() error {
	storeRoot := os.Getenv("STORE_ROOT")
	if storeRoot == "" {
		return fmt.Errorf("STORE_ROOT is required")
	}
	prefix := os.Getenv("REPORT_CACHE_PREFIX")
	if prefix == "" {
		prefix = "reports"
	}

	task, err := readTask()
	if err != nil {
		return err
	}

	objects, err := objectstore.New(storeRoot, os.Getenv("STORE_BASE_URL"))
	if err != nil {
		return fmt.Errorf("open object store: %w", err)
	}
	cache := &store.ReportCache{Objects: objects, Prefix: prefix}

	// Diagnostics go to stderr; stdout is reserved for the result line.
	slogger := logger.NewStderr().With("task", string(task.Kind), "run", task.RunHandle)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	result, err := extractor.New(cache, slogger).Invoke(ctx, task)
	if err != nil {
		return err
	}
	return json.NewEncoder(os.Stdout).Encode(result)
}

// readTask takes the task either as the first argument (docker mode) or
// from stdin (exec mode).
func readTask() (delegate.Task, error) {
	var data []byte
	if len(os.Args) > 1 {
		data = []byte(os.Args[1])
	} else {
		var err error
		data, err = io.ReadAll(os.Stdin)
		if err != nil {
			return delegate.Task{}, fmt.Errorf("read task from stdin: %w", err)
		}
	}

	var task delegate.Task
	if err := json.Unmarshal(data, &task); err != nil {
		return delegate.Task{}, fmt.Errorf("decode task: %w", err)
	}
	return task, nil
}
