package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/sheetdesk/internal/api"
	"github.com/phrazzld/sheetdesk/internal/bot"
	"github.com/phrazzld/sheetdesk/internal/config"
	"github.com/phrazzld/sheetdesk/internal/domain"
	"github.com/phrazzld/sheetdesk/internal/events"
	"github.com/phrazzld/sheetdesk/internal/metrics"
	"github.com/phrazzld/sheetdesk/internal/notify"
	"github.com/phrazzld/sheetdesk/internal/platform/sheets"
	"github.com/phrazzld/sheetdesk/internal/platform/telegram"
	"github.com/phrazzld/sheetdesk/internal/redact"
	"github.com/phrazzld/sheetdesk/internal/service"
	"github.com/phrazzld/sheetdesk/internal/task"
	"google.golang.org/api/option"
)

// drainTimeout bounds how long queued notifications may keep the process
// alive after the HTTP server has stopped.
const drainTimeout = 5 * time.Second

// application holds the wired dependencies of a running server.
type application struct {
	config  *config.Config
	logger  *slog.Logger
	tf      domain.TimeFormat
	metrics *metrics.Recorder

	store      *sheets.RecordStore
	records    service.RecordService
	emitter    *events.InMemoryEventEmitter
	queue      *task.TaskQueue
	pool       *task.WorkerPool
	messenger  telegram.Messenger
	dispatcher api.UpdateDispatcher
}

func timeFormat(cfg *config.Config) (domain.TimeFormat, error) {
	tf, err := domain.NewTimeFormat(cfg.App.Timezone, cfg.App.TimestampLayout)
	if err != nil {
		return domain.TimeFormat{}, fmt.Errorf("invalid app time settings: %w", err)
	}
	return tf, nil
}

// newSheetStore connects to the configured spreadsheet.
func newSheetStore(
	ctx context.Context,
	cfg *config.Config,
	rec *metrics.Recorder,
	logger *slog.Logger,
	opts ...option.ClientOption,
) (*sheets.RecordStore, error) {
	tf, err := timeFormat(cfg)
	if err != nil {
		return nil, err
	}
	client, err := sheets.NewClient(ctx, cfg.Sheets, rec, logger, opts...)
	if err != nil {
		return nil, err
	}
	return sheets.NewRecordStore(client, cfg.Sheets.SheetName, tf, logger), nil
}

// newApplication wires every component for cfg. Extra client options are
// passed to the Sheets client.
func newApplication(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	opts ...option.ClientOption,
) (*application, error) {
	tf, err := timeFormat(cfg)
	if err != nil {
		return nil, err
	}

	app := &application{
		config:  cfg,
		logger:  logger,
		tf:      tf,
		metrics: metrics.NewRecorder(),
	}

	app.store, err = newSheetStore(ctx, cfg, app.metrics, logger, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to spreadsheet: %w", err)
	}

	app.emitter = events.NewInMemoryEventEmitter(logger)
	app.queue = task.NewTaskQueue(cfg.Notify.QueueSize, logger)
	app.pool = task.NewWorkerPool(app.queue, task.WorkerPoolConfig{WorkerCount: cfg.Notify.WorkerCount}, logger)
	app.pool.SetErrorHandler(func(t task.Task, err error) {
		logger.Warn("notification failed",
			slog.String("task_id", t.ID().String()),
			slog.String("task_type", t.Type()),
			slog.String("error", redact.Error(err)))
	})

	if cfg.Bot.Enabled {
		client, err := telegram.NewClient(cfg.Bot, nil, logger)
		if err != nil {
			app.cleanup()
			return nil, fmt.Errorf("failed to connect to telegram: %w", err)
		}
		app.messenger = client
		app.emitter.RegisterHandler(notify.NewNotifier(
			app.queue,
			client,
			cfg.Notify.RatePerSecond,
			cfg.Bot.AdminChatIDs,
			app.metrics,
			logger,
		), events.TypeRecordCreated, events.TypeRecordStatusChanged, events.TypeRecordCommented)
		logger.Info("telegram bot enabled", slog.String("username", client.Username()))
	}

	app.records, err = service.NewRecordService(app.store, app.emitter, tf.Location, logger)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to create record service: %w", err)
	}

	if cfg.Bot.Enabled {
		app.dispatcher = bot.NewDispatcher(app.records, cfg.Bot.AdminChatIDs, tf, app.metrics, logger)
	}

	return app, nil
}

// cleanup stops accepting notifications and gives queued ones a bounded
// chance to go out.
func (app *application) cleanup() {
	if app.queue != nil {
		app.queue.Close()
	}
	if app.pool != nil && !app.pool.Drain(drainTimeout) {
		app.logger.Warn("notification queue not drained before shutdown",
			slog.Int("remaining", app.queue.Len()))
	}
}
