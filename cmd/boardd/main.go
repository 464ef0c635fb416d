package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"

	"github.com/agalitsyn/taskboard/internal/app"
	"github.com/agalitsyn/taskboard/internal/board"
	"github.com/agalitsyn/taskboard/internal/httpapi"
	"github.com/agalitsyn/taskboard/internal/model"
	"github.com/agalitsyn/taskboard/internal/notify"
	"github.com/agalitsyn/taskboard/internal/realtime"
	"github.com/agalitsyn/taskboard/internal/storage/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := ParseFlags()
	log := setupLogger(cfg)

	if cfg.Debug {
		log.Logf("DEBUG running with config")
		color.Cyan(cfg.String())
	}

	db, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		log.Logf("FATAL could not open storage: %v", err)
	}
	defer db.Close()

	hub := realtime.NewHub(log)
	defer hub.Close()

	taskStorage := sqlite.NewTaskStorage(db, hub)
	commentStorage := sqlite.NewCommentStorage(db, hub)
	attachmentStorage := sqlite.NewAttachmentStorage(db, hub)
	activityStorage := sqlite.NewActivityStorage(db, hub)
	movementStorage := sqlite.NewMovementStorage(db, hub)
	assignmentStorage := sqlite.NewAssignmentStorage(db, hub)
	userStorage := sqlite.NewUserStorage(db)
	workspaceStorage := sqlite.NewWorkspaceStorage(db)

	workspace, err := ensureWorkspace(ctx, workspaceStorage, cfg)
	if err != nil {
		log.Logf("FATAL could not prepare workspace: %v", err)
	}

	engine := board.NewEngine(workspace.ID, board.Repositories{
		Tasks:       taskStorage,
		Comments:    commentStorage,
		Attachments: attachmentStorage,
		Activities:  activityStorage,
		Movements:   movementStorage,
		Assignments: assignmentStorage,
		Profiles:    userStorage,
	}, log)
	if err := engine.Load(ctx); err != nil {
		log.Logf("FATAL could not load board: %v", err)
	}

	go engine.Reconciler(hub).Run(ctx)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.New(engine, userStorage, hub, log).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Logf("INFO http server listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Logf("FATAL http server failed: %v", err)
		}
	}()

	if cfg.Telegram.Token.Unmask() != "" {
		bot, err := app.NewBot(
			app.BotConfig{UpdateTimeout: cfg.Telegram.UpdateTimeout},
			cfg.Telegram.Token.Unmask(),
			botLogger{log},
			engine,
			workspace,
			workspaceStorage,
			userStorage,
			log,
		)
		if err != nil {
			log.Logf("FATAL could not init bot: %v", err)
		}
		bot.SetDebug(cfg.Debug)
		log.Logf("INFO authorized as %s", bot.GetSelf().UserName)
		go bot.Start(ctx)

		if cfg.DigestTime != "" {
			notifier := notify.NewOverdueNotifier(engine.Store(), bot.BotAPI(), workspace.TgChatID, log)
			scheduler := notify.NewScheduler(time.Local)
			if _, err := scheduler.ScheduleDaily(cfg.DigestTime, func() {
				if err := notifier.Send(time.Now().UTC()); err != nil {
					log.Logf("WARN overdue digest failed: %v", err)
				}
			}); err != nil {
				log.Logf("FATAL could not schedule digest: %v", err)
			}
			scheduler.Start()
			defer scheduler.Stop()
		}
	}

	<-ctx.Done()
	log.Logf("INFO shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Logf("WARN http shutdown: %v", err)
	}
}

func setupLogger(cfg Config) lgr.L {
	opts := []lgr.Option{lgr.Msec, lgr.LevelBraces}
	if cfg.Debug {
		opts = append(opts, lgr.Debug, lgr.CallerFile, lgr.CallerFunc)
	}
	lgr.Setup(opts...)
	return lgr.Default()
}

func ensureWorkspace(ctx context.Context, storage *sqlite.WorkspaceStorage, cfg Config) (*model.Workspace, error) {
	workspace, err := storage.FetchWorkspaceByID(ctx, cfg.Workspace.ID)
	if err == nil {
		return workspace, nil
	}
	if !errors.Is(err, model.ErrWorkspaceNotFound) {
		return nil, err
	}

	workspace = model.NewWorkspace(cfg.Workspace.Title, cfg.Telegram.ChatID)
	workspace.ID = cfg.Workspace.ID
	if err := storage.CreateWorkspace(ctx, workspace); err != nil {
		return nil, fmt.Errorf("could not create workspace: %w", err)
	}
	return workspace, nil
}

type botLogger struct {
	log lgr.L
}

func (l botLogger) Printf(msg string, args ...interface{}) {
	l.log.Logf("DEBUG "+msg, args...)
}

func (l botLogger) Println(v ...interface{}) {
	l.log.Logf("DEBUG %s", fmt.Sprintln(v...))
}
