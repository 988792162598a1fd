// cmd/worker/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/tendant/simple-mediasync/internal/bus"
	"github.com/tendant/simple-mediasync/internal/parts"
	"github.com/tendant/simple-mediasync/internal/process"
	"github.com/tendant/simple-mediasync/internal/store"
	"github.com/tendant/simple-mediasync/pkg/schema"
	"github.com/tendant/simple-mediasync/pkg/status"
)

type config struct {
	NATSURL           string
	SyncSubject       string
	SyncQueue         string
	DoneSubject       string
	StoreBackend      string
	DatabaseURL       string
	MediaDir          string
	ThumbBox          int
	PartTimeout       time.Duration
	SyncTimeout       time.Duration
	ReconcileInterval time.Duration
	ReconcileBatch    int
}

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := loadConfig()
	if err != nil {
		fatal(logger, "load config", err)
	}
	logger.Info("worker starting", "nats_url", cfg.NATSURL, "sync_subject", cfg.SyncSubject, "queue", cfg.SyncQueue, "done_subject", cfg.DoneSubject, "store_backend", cfg.StoreBackend, "media_dir", cfg.MediaDir)

	st, cleanup, err := buildStore(cfg)
	if err != nil {
		fatal(logger, "build store", err, "backend", cfg.StoreBackend)
	}
	defer cleanup()
	logger.Info("store ready", "backend", cfg.StoreBackend)

	if err := os.MkdirAll(cfg.MediaDir, 0o755); err != nil {
		fatal(logger, "ensure media directory", err, "media_dir", cfg.MediaDir)
	}

	nc, err := bus.Connect(cfg.NATSURL)
	if err != nil {
		fatal(logger, "connect to NATS", err, "nats_url", cfg.NATSURL)
	}
	logger.Info("connected to NATS", "nats_url", cfg.NATSURL)
	defer nc.Close()

	fetcher := parts.NewFetcher(cfg.MediaDir, cfg.PartTimeout, cfg.ThumbBox)
	runners := map[schema.ItemKind]*parts.Runner{
		schema.KindVideo: parts.NewRunner(parts.VideoParts(fetcher), logger),
		schema.KindPage:  parts.NewRunner(parts.PageParts(fetcher), logger),
	}

	_, err = nc.QueueSubscribeJSON(cfg.SyncSubject, cfg.SyncQueue, cfg.SyncTimeout, func(ctx context.Context, data []byte) {
		var req schema.SyncRequested
		if err := json.Unmarshal(data, &req); err != nil {
			logger.Warn("drop malformed sync request", "err", err)
			return
		}
		if err := handleSync(ctx, req, cfg, st, nc, runners, logger); err != nil {
			logger.Error("sync pass failed", "item_id", req.ItemID, "kind", req.Kind, "err", err)
		}
	})
	if err != nil {
		fatal(logger, "subscribe worker", err, "sync_subject", cfg.SyncSubject, "queue", cfg.SyncQueue)
	}
	logger.Info("listening for sync jobs", "subject", cfg.SyncSubject, "queue", cfg.SyncQueue)

	go reconcileLoop(cfg, st, nc, logger)

	select {}
}

func buildStore(cfg config) (store.Store, func(), error) {
	switch cfg.StoreBackend {
	case "postgres":
		pg, err := store.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, nil, err
		}
		return pg, func() { _ = pg.Close() }, nil
	case "memory":
		return store.NewMemory(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown STORE_BACKEND %q (expected postgres or memory)", cfg.StoreBackend)
	}
}

// statusFor decodes a persisted status word with the slot layout of the kind.
func statusFor(kind schema.ItemKind, raw uint32) (status.Status, bool) {
	switch kind {
	case schema.KindVideo:
		return status.NewVideoStatus(raw), true
	case schema.KindPage:
		return status.NewPageStatus(raw), true
	}
	return status.Status{}, false
}

func handleSync(ctx context.Context, req schema.SyncRequested, cfg config, st store.Store, nc *bus.Client, runners map[schema.ItemKind]*parts.Runner, logger *slog.Logger) error {
	itemLogger := logger.With("item_id", req.ItemID, "kind", req.Kind)
	start := time.Now()

	itemID, err := uuid.Parse(req.ItemID)
	if err != nil {
		itemLogger.Warn("invalid item identifier", "err", err)
		publishDone(nc, cfg.DoneSubject, schema.SyncDone{
			ItemID:      req.ItemID,
			Kind:        req.Kind,
			Error:       err.Error(),
			FailureType: schema.FailureTypeValidation,
			HappenedAt:  time.Now().Unix(),
		}, itemLogger)
		return fmt.Errorf("parse item id: %w", err)
	}

	runner, ok := runners[req.Kind]
	if !ok {
		err := fmt.Errorf("unknown item kind %q", req.Kind)
		itemLogger.Warn("unknown item kind")
		publishDone(nc, cfg.DoneSubject, schema.SyncDone{
			ItemID:      req.ItemID,
			Kind:        req.Kind,
			Error:       err.Error(),
			FailureType: schema.FailureTypeValidation,
			HappenedAt:  time.Now().Unix(),
		}, itemLogger)
		return err
	}

	item := store.Item{ID: itemID, Kind: string(req.Kind)}
	if err := st.EnsureItem(ctx, item, req.Parts); err != nil {
		return fmt.Errorf("ensure item: %w", err)
	}
	raw, err := st.GetStatus(ctx, item)
	if err != nil {
		return fmt.Errorf("load status: %w", err)
	}

	packed, _ := statusFor(req.Kind, raw)
	if packed.Completed() {
		itemLogger.Info("item already completed", "status", raw)
		return nil
	}

	job := process.NewJob(string(req.Kind), req.ItemID, raw)
	process.MarkRunning(job)

	ran := packed.ShouldRun()
	results := runner.Run(ctx, parts.Item{ID: itemID, Kind: req.Kind, Parts: req.Parts}, packed)

	packed.Update(results)
	if err := st.SaveStatus(ctx, item, packed.Raw()); err != nil {
		process.MarkFailed(job, err)
		return fmt.Errorf("save status: %w", err)
	}
	process.MarkSucceeded(job, packed.Raw())

	done := buildDone(req, raw, packed, ran, results, runner.PartNames(), time.Since(start))
	publishDone(nc, cfg.DoneSubject, done, itemLogger)

	if packed.Completed() {
		itemLogger.Info("item completed", "status", packed.Raw(), "processing_time_ms", time.Since(start).Milliseconds())
	} else {
		remaining := 0
		for _, pending := range packed.ShouldRun() {
			if pending {
				remaining++
			}
		}
		itemLogger.Info("item still pending", "status", packed.Raw(), "remaining_parts", remaining)
	}
	return nil
}

// buildDone reports every slot: the ones this pass ran carry their attempt
// outcome, the rest just carry their stored value.
func buildDone(req schema.SyncRequested, before uint32, after status.Status, ran []bool, results []error, names []string, elapsed time.Duration) schema.SyncDone {
	slots := after.Slots()
	partResults := make([]schema.PartResult, len(slots))
	for i, v := range slots {
		pr := schema.PartResult{
			Name:      names[i],
			Slot:      i,
			Value:     v,
			Ran:       ran[i],
			Succeeded: v == status.Succeeded,
		}
		if ran[i] && results[i] != nil {
			pr.Error = results[i].Error()
			pr.FailureType = classifyError(results[i])
		}
		partResults[i] = pr
	}

	return schema.SyncDone{
		ItemID:           req.ItemID,
		Kind:             req.Kind,
		StatusBefore:     before,
		StatusAfter:      after.Raw(),
		Completed:        after.Completed(),
		Parts:            partResults,
		ProcessingTimeMs: elapsed.Milliseconds(),
		HappenedAt:       time.Now().Unix(),
	}
}

func classifyError(err error) schema.FailureType {
	if err == nil {
		return ""
	}

	var httpErr *parts.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.Permanent() {
			return schema.FailureTypePermanent
		}
		return schema.FailureTypeRetryable
	}

	var missing parts.MissingSourceError
	if errors.As(err, &missing) {
		return schema.FailureTypeValidation
	}

	errStr := err.Error()
	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "temporary failure") ||
		strings.Contains(errStr, "context deadline exceeded") ||
		strings.Contains(errStr, "context canceled") {
		return schema.FailureTypeRetryable
	}

	if strings.Contains(errStr, "no such file") ||
		strings.Contains(errStr, "permission denied") ||
		strings.Contains(errStr, "unsupported") {
		return schema.FailureTypePermanent
	}

	return schema.FailureTypeRetryable
}

func publishDone(nc *bus.Client, subject string, done schema.SyncDone, logger *slog.Logger) {
	if err := nc.PublishJSON(subject, done); err != nil {
		logger.Error("publish sync result failed", "subject", subject, "err", err)
	}
}

// reconcileLoop periodically republishes items whose completed flag is still
// clear, so failed parts get their remaining attempts even if the original
// requester never asks again.
func reconcileLoop(cfg config, st store.Store, nc *bus.Client, logger *slog.Logger) {
	ticker := time.NewTicker(cfg.ReconcileInterval)
	defer ticker.Stop()

	for range ticker.C {
		for _, kind := range []schema.ItemKind{schema.KindVideo, schema.KindPage} {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			pending, err := st.ListPending(ctx, string(kind), cfg.ReconcileBatch)
			cancel()
			if err != nil {
				logger.Error("list pending failed", "kind", kind, "err", err)
				continue
			}
			for _, p := range pending {
				req := schema.SyncRequested{
					ItemID:     p.ID.String(),
					Kind:       kind,
					Parts:      p.Parts,
					HappenedAt: time.Now().Unix(),
				}
				if err := nc.PublishJSON(cfg.SyncSubject, req); err != nil {
					logger.Error("requeue pending item failed", "item_id", p.ID, "err", err)
				}
			}
			if len(pending) > 0 {
				logger.Info("requeued pending items", "kind", kind, "count", len(pending))
			}
		}
	}
}

func fatal(logger *slog.Logger, msg string, err error, attrs ...any) {
	attrs = append(attrs, "err", err)
	logger.Error(msg, attrs...)
	os.Exit(1)
}

func loadConfig() (config, error) {
	cfg := config{
		NATSURL:      getenv("NATS_URL", "nats://127.0.0.1:4222"),
		SyncSubject:  getenv("SYNC_SUBJECT", "media-sync.jobs"),
		SyncQueue:    getenv("SYNC_QUEUE", "media-sync-workers"),
		DoneSubject:  getenv("SYNC_DONE_SUBJECT", "media-sync.done"),
		StoreBackend: getenv("STORE_BACKEND", "postgres"),
		DatabaseURL:  getenv("DATABASE_URL", ""),
		MediaDir:     getenv("MEDIA_DIR", "./data/media"),
	}

	if cfg.StoreBackend == "postgres" && cfg.DatabaseURL == "" {
		return config{}, fmt.Errorf("DATABASE_URL is required when STORE_BACKEND is postgres")
	}

	box, err := parsePositiveInt(getenv("COVER_THUMB_BOX", "512"), "COVER_THUMB_BOX")
	if err != nil {
		return config{}, err
	}
	cfg.ThumbBox = box

	partTimeout, err := parsePositiveInt(getenv("PART_TIMEOUT_SECONDS", "60"), "PART_TIMEOUT_SECONDS")
	if err != nil {
		return config{}, err
	}
	cfg.PartTimeout = time.Duration(partTimeout) * time.Second

	syncTimeout, err := parsePositiveInt(getenv("SYNC_TIMEOUT_SECONDS", "300"), "SYNC_TIMEOUT_SECONDS")
	if err != nil {
		return config{}, err
	}
	cfg.SyncTimeout = time.Duration(syncTimeout) * time.Second

	reconcile, err := parsePositiveInt(getenv("RECONCILE_INTERVAL_SECONDS", "300"), "RECONCILE_INTERVAL_SECONDS")
	if err != nil {
		return config{}, err
	}
	cfg.ReconcileInterval = time.Duration(reconcile) * time.Second

	batch, err := parsePositiveInt(getenv("RECONCILE_BATCH", "100"), "RECONCILE_BATCH")
	if err != nil {
		return config{}, err
	}
	cfg.ReconcileBatch = batch

	return cfg, nil
}

func parsePositiveInt(value string, name string) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be greater than zero (got %d)", name, v)
	}
	return v, nil
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}
