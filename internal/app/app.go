// -----------------------------------------------------------------------
// Last Modified: Wednesday, 5th November 2025 8:17:54 pm
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package app

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/docuscan/taxpipeline/internal/common"
	"github.com/docuscan/taxpipeline/internal/interfaces"
	"github.com/docuscan/taxpipeline/internal/models"
	"github.com/docuscan/taxpipeline/internal/services/bankadapter"
	"github.com/docuscan/taxpipeline/internal/services/events"
	"github.com/docuscan/taxpipeline/internal/services/export"
	"github.com/docuscan/taxpipeline/internal/services/kv"
	"github.com/docuscan/taxpipeline/internal/services/llm"
	"github.com/docuscan/taxpipeline/internal/services/notify"
	"github.com/docuscan/taxpipeline/internal/services/ocr"
	"github.com/docuscan/taxpipeline/internal/services/pdf"
	"github.com/docuscan/taxpipeline/internal/services/pipeline"
	"github.com/docuscan/taxpipeline/internal/services/template"
	"github.com/docuscan/taxpipeline/internal/storage"
)

// App holds every wired component the §6.1 HTTP surface drives: the Batch
// Scheduler, the collaborators the Document Pipeline needs, the
// Notification Fabric, and the Storage Manager.
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	ctx       context.Context
	cancelCtx context.CancelFunc

	StorageManager interfaces.StorageManager
	EventService   interfaces.EventService
	Notifications  *notify.Fabric

	BankRegistry     *bankadapter.Registry
	TemplateRegistry *template.Registry
	Providers        *llm.ProviderFactory
	SmartMapper      *llm.SmartMapper
	OCRRouter        *ocr.Router
	PDFExtractor     *pdf.Extractor
	PDFChunker       *pdf.Chunker
	BankProcessor    *pipeline.HybridBankProcessor
	DocumentPipeline *pipeline.DocumentPipeline
	Scheduler        *pipeline.Scheduler
	Exporters        *export.Factory
	KVService        *kv.Service
}

// New wires every collaborator in dependency order and starts the Batch
// Scheduler's worker pool. The caller must eventually call Close.
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{Config: cfg, Logger: logger}
	app.ctx, app.cancelCtx = context.WithCancel(context.Background())

	if err := app.initStorage(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	app.EventService = events.NewService(app.Logger)
	app.Notifications = notify.NewFabric(app.Logger)
	app.wireNotifications()

	app.KVService = kv.NewService(app.StorageManager.KeyValueStorage(), app.EventService, app.Logger)

	if err := app.initDocumentServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize document services: %w", err)
	}

	app.Scheduler.Start(app.ctx)
	app.Logger.Info().Msg("batch scheduler started")

	logger.Info().
		Str("ocr_mode", cfg.OCR.Mode).
		Str("tax_doc_provider", string(cfg.LLM.TaxDocProvider)).
		Str("bank_stmt_provider", string(cfg.LLM.BankStmtProvider)).
		Int("worker_pool_size", cfg.Scheduler.WorkerPoolSize).
		Msg("application initialization complete")

	return app, nil
}

// initStorage constructs the Badger-backed storage layer plus the
// append-only audit log (§6.4).
func (a *App) initStorage() error {
	storageManager, err := storage.NewStorageManager(a.Logger, a.Config)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}
	a.StorageManager = storageManager
	a.Logger.Info().
		Str("badger_path", a.Config.Storage.Badger.Path).
		Str("audit_log_path", a.Config.Audit.LogPath).
		Msg("storage layer initialized")
	return nil
}

// initDocumentServices wires the OCR Router, Smart Mapper, Hybrid Bank
// Processor, Document Pipeline, and the Batch Scheduler that drives them,
// in the dependency order each constructor requires.
func (a *App) initDocumentServices() error {
	a.BankRegistry = bankadapter.NewRegistry(a.Logger)
	a.TemplateRegistry = template.NewRegistry()
	a.Exporters = export.NewFactory(a.Logger)

	a.PDFExtractor = pdf.NewExtractor(a.StorageManager.KeyValueStorage(), a.Logger)
	a.PDFChunker = pdf.NewChunker(a.Logger)

	localEngine := ocr.NewLocalEngine(a.PDFExtractor, a.Logger)

	var cloudClient interfaces.CloudOCRClient
	if a.Config.OCR.Mode != string(interfaces.OCRModeLocalOnly) {
		cloud, err := ocr.NewCloudClient(&a.Config.OCR, a.Logger)
		if err != nil {
			a.Logger.Warn().Err(err).Msg("cloud OCR client unavailable, falling back to local engine only")
		} else {
			cloudClient = cloud
		}
	}
	a.OCRRouter = ocr.NewRouter(&a.Config.OCR, cloudClient, localEngine, a.Logger)

	a.Providers = llm.NewProviderFactory(&a.Config.Gemini, &a.Config.Claude, &a.Config.LLM, a.StorageManager.KeyValueStorage(), a.Logger)
	a.SmartMapper = llm.NewSmartMapper(a.Providers, a.Logger)

	a.BankProcessor = pipeline.NewHybridBankProcessor(a.BankRegistry, a.SmartMapper, a.TemplateRegistry, a.Logger)

	sched := &a.Config.Scheduler
	// innerChunkConcurrency only sizes the shared token bucket, at
	// worker_pool_size * innerChunkConcurrency permits. The Document
	// Pipeline processes the chunks of one oversized PDF one after another;
	// it does not fan chunks out concurrently.
	const innerChunkConcurrency = 4
	sem := pipeline.NewSharedTokenBucket(sched.WorkerPoolSize * innerChunkConcurrency)

	a.DocumentPipeline = pipeline.NewDocumentPipeline(
		a.OCRRouter,
		a.PDFChunker,
		a.SmartMapper,
		a.BankProcessor,
		a.TemplateRegistry,
		a.StorageManager.DocumentFileStorage(),
		a.StorageManager.ScanResultStorage(),
		a.EventService,
		sem,
		sched.ChunkSize*4, // chunkPageThreshold: chunk once a PDF runs well past a single window
		sched.ChunkSize,
		sched.ChunkOverlap,
		a.Logger,
	)

	a.Scheduler = pipeline.NewScheduler(
		a.StorageManager.BatchStorage(),
		a.StorageManager.DocumentFileStorage(),
		a.StorageManager.ScanResultStorage(),
		a.EventService,
		a.DocumentPipeline,
		*sched,
		a.Logger,
	)

	return nil
}

// wireNotifications bridges the internal event bus onto the Notification
// Fabric's per-topic pub/sub, translating each domain event into the
// ProgressEvent shape §4.10 clients receive over their websocket session.
// Adapted from a single WebSocket broadcast target to the Fabric's topic
// model.
func (a *App) wireNotifications() {
	batchTopic := func(payload map[string]interface{}) string {
		id, _ := payload["batch_id"].(string)
		return "batch:" + id
	}

	subscribe := func(eventType interfaces.EventType, phase string) {
		a.EventService.Subscribe(eventType, func(ctx context.Context, evt interfaces.Event) error {
			payload, ok := evt.Payload.(map[string]interface{})
			if !ok {
				return nil
			}
			counters := map[string]int{}
			for _, key := range []string{"files_processed", "files_failed", "total_files"} {
				if v, ok := payload[key].(int); ok {
					counters[key] = v
				}
			}
			a.Notifications.Publish(batchTopic(payload), models.ProgressEvent{
				Phase:    phase,
				Counters: counters,
				Extra:    payload,
			})
			return nil
		})
	}

	subscribe(interfaces.EventBatchCreated, "created")
	subscribe(interfaces.EventBatchProgress, "progress")
	subscribe(interfaces.EventBatchCompleted, "completed")
	subscribe(interfaces.EventBatchCancelled, "cancelled")

	a.EventService.Subscribe(interfaces.EventFileStageChanged, func(ctx context.Context, evt interfaces.Event) error {
		payload, ok := evt.Payload.(map[string]interface{})
		if !ok {
			return nil
		}
		fileID, _ := payload["file_id"].(string)
		a.Notifications.Publish("file:"+fileID, models.ProgressEvent{
			Phase: "stage_changed",
			Extra: payload,
		})
		return nil
	})
}

// Close shuts down the Batch Scheduler's worker pool and releases every
// storage handle.
func (a *App) Close() error {
	if a.cancelCtx != nil {
		a.cancelCtx()
	}

	if a.Scheduler != nil {
		a.Scheduler.Stop()
		a.Logger.Info().Msg("batch scheduler stopped")
	}

	if a.Providers != nil {
		if err := a.Providers.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("failed to close LLM provider factory")
		}
	}

	if a.EventService != nil {
		if err := a.EventService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("failed to close event service")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("storage closed")
	}

	return nil
}
