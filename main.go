package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"opora/internal/actions"
	"opora/internal/api"
	"opora/internal/config"
	"opora/internal/filecache"
	"opora/internal/reconcile"
	"opora/internal/session"
	"opora/internal/stubs"
	"opora/internal/ui"
)

func run(ctx context.Context) error {
	logout := flag.Bool("logout", false, "Clear the stored session and exit")
	stub := flag.Bool("stub", false, "Run against an embedded in-memory stub server (admin/admin)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if *stub {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("start stub server: %w", err)
		}
		defer func() { _ = ln.Close() }()
		go func() { _ = http.Serve(ln, stubs.NewServer().Handler()) }()
		cfg.ServerURL = "http://" + ln.Addr().String()
	}

	logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer func() { _ = logFile.Close() }()
	logger := slog.New(slog.NewTextHandler(logFile, nil))

	store, err := session.Open(cfg.DataFile, logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if *logout {
		return store.Clear()
	}

	logger.Info("starting", "server", cfg.ServerURL, "install", store.InstallID())

	client := api.New(ctx, api.Config{
		BaseURL: cfg.ServerURL,
		Tokens:  store,
		Logger:  logger,
	})
	reconciler := reconcile.New(client, store)

	files, err := filecache.New(cfg.DownloadDir)
	if err != nil {
		return err
	}

	// The dispatcher's refresh hook feeds back into the UI event loop;
	// the program exists only after the app model does, hence the
	// indirection.
	var program *tea.Program
	send := func(msg tea.Msg) {
		if program != nil {
			program.Send(msg)
		}
	}
	dispatcher := actions.New(client, ui.RefreshAfter(send), logger)

	app := ui.New(ui.Deps{
		Cfg:        cfg,
		Store:      store,
		API:        client,
		Reconciler: reconciler,
		Dispatcher: dispatcher,
		Files:      files,
		Log:        logger,
	})
	program = tea.NewProgram(app, tea.WithAltScreen())

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		_, err := program.Run()
		if err != nil {
			return err
		}
		// A clean exit still has to release the shutdown watcher.
		return context.Canceled
	})

	g.Go(func() error {
		<-gCtx.Done()
		program.Quit()
		return nil
	})

	return g.Wait()
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Application error: %v", err)
	}
}
