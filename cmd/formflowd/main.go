package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/formflow/formflow-go/adapters"
	"github.com/formflow/formflow-go/adapters/amqp"
	"github.com/formflow/formflow-go/adapters/files"
	"github.com/formflow/formflow-go/adapters/kafka"
	"github.com/formflow/formflow-go/adapters/s3"
	"github.com/formflow/formflow-go/form"
	"github.com/formflow/formflow-go/runtime"
)

var (
	configPath = flag.String("config", "", "Path to YAML config file")
	httpAddr   = flag.String("http-addr", "", "Address to serve the API on (overrides config)")
	formsDir   = flag.String("forms-dir", "", "Directory of form definition files (overrides config)")
	watchForms = flag.Bool("watch", false, "Hot-reload form definitions on change")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		log.Fatalf("formflowd: %v", err)
	}
}

func run() error {
	cfg, err := loadDaemonConfig(*configPath)
	if err != nil {
		return err
	}
	if *httpAddr != "" {
		cfg.HTTP.Addr = *httpAddr
	}
	if *formsDir != "" {
		cfg.Forms.Dir = *formsDir
	}
	if *watchForms {
		cfg.Forms.Watch = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	forms, submissions, cleanup, err := buildStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if cfg.Forms.Dir != "" {
		if err := loadForms(ctx, cfg, forms); err != nil {
			return err
		}
	}

	publisher, err := buildPublisher(cfg)
	if err != nil {
		return err
	}
	if publisher != nil {
		defer publisher.Close()
	}

	if cfg.Archive.Enabled {
		archiver, err := s3.NewArchiver(ctx, &cfg.Archive.S3)
		if err != nil {
			return err
		}
		go runArchiveLoop(ctx, cfg.Archive.Interval, archiver, forms, submissions)
	}

	srv := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: newServer(forms, submissions, publisher, cfg.API, cfg.Forms.Language).routes(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("formflowd listening on %s", cfg.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Printf("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildStores wires the configured storage backend. The memory backend
// doubles as the form store; postgres serves both; redis only holds
// submissions and pairs with a memory form store fed from the forms
// directory.
func buildStores(ctx context.Context, cfg *daemonConfig) (runtime.FormStore, runtime.SubmissionStore, func(), error) {
	switch cfg.Storage.Backend {
	case "memory":
		store := runtime.NewMemoryStore()
		return store, store, func() {}, nil
	case "postgres":
		store, err := runtime.NewPostgresStore(ctx, &cfg.Storage.Postgres)
		if err != nil {
			return nil, nil, nil, err
		}
		return store, store, store.Close, nil
	case "redis":
		subs, err := runtime.NewRedisStore(ctx, cfg.Storage.Redis)
		if err != nil {
			return nil, nil, nil, err
		}
		forms := runtime.NewMemoryStore()
		return forms, subs, func() { subs.Close() }, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

func loadForms(ctx context.Context, cfg *daemonConfig, forms runtime.FormStore) error {
	target, ok := forms.(files.DraftStore)
	if !ok {
		pgStore, isPG := forms.(*runtime.PostgresStore)
		if !isPG {
			return fmt.Errorf("storage backend %q cannot load form files", cfg.Storage.Backend)
		}
		target = &pgDraftStore{ctx: ctx, store: pgStore}
	}

	loader, err := files.NewLoader(cfg.Forms.Dir, target)
	if err != nil {
		return err
	}
	if err := loader.LoadAll(); err != nil {
		return err
	}
	// File-served forms are published as-is so fill sessions can start
	// without a builder round trip.
	slugs, err := forms.ListForms(ctx)
	if err != nil {
		return err
	}
	for _, slug := range slugs {
		if _, err := forms.PublishForm(ctx, slug, "loaded from "+cfg.Forms.Dir); err != nil {
			return fmt.Errorf("failed to publish %s: %w", slug, err)
		}
	}

	if cfg.Forms.Watch {
		if err := loader.Watch(ctx); err != nil {
			return err
		}
	}
	return nil
}

// pgDraftStore adapts the context-taking postgres draft writer to the
// loader's synchronous interface.
type pgDraftStore struct {
	ctx   context.Context
	store *runtime.PostgresStore
}

func (p *pgDraftStore) PutDraft(def *form.Definition) error {
	return p.store.PutDraft(p.ctx, def)
}

// runArchiveLoop periodically uploads each form's completed submissions.
func runArchiveLoop(ctx context.Context, interval time.Duration, archiver *s3.Archiver, forms runtime.FormStore, submissions runtime.SubmissionStore) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			slugs, err := forms.ListForms(ctx)
			if err != nil {
				log.Printf("archive: failed to list forms: %v", err)
				continue
			}
			for _, slug := range slugs {
				subs, err := submissions.ListSubmissions(ctx, slug)
				if err != nil {
					log.Printf("archive: failed to list submissions for %s: %v", slug, err)
					continue
				}
				if _, err := archiver.ArchiveCompleted(ctx, slug, subs); err != nil {
					log.Printf("archive: %s: %v", slug, err)
				}
			}
		}
	}
}

func buildPublisher(cfg *daemonConfig) (adapters.Publisher, error) {
	switch cfg.Events.Backend {
	case "none":
		return nil, nil
	case "kafka":
		return kafka.NewPublisher(cfg.Events.Kafka)
	case "amqp":
		return amqp.NewPublisher(cfg.Events.AMQP)
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.Events.Backend)
	}
}
