package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ayusman/signassess/internal/app"
	"github.com/ayusman/signassess/internal/capture"
	"github.com/ayusman/signassess/internal/config"
	"github.com/ayusman/signassess/internal/detector"
	"github.com/ayusman/signassess/internal/hook"
	"github.com/ayusman/signassess/internal/quiz"
	"github.com/ayusman/signassess/internal/server"
	"github.com/ayusman/signassess/internal/session"
	"github.com/ayusman/signassess/internal/sink"
	"github.com/ayusman/signassess/internal/store"
	"github.com/ayusman/signassess/internal/tray"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(opts *options) *cobra.Command {
	var withTray bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the assessment widget server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts, withTray)
		},
	}
	cmd.Flags().BoolVar(&withTray, "tray", false, "show the system tray menu")
	return cmd
}

func runServe(cmd *cobra.Command, opts *options, withTray bool) error {
	cfg, log, err := load(opts)
	if err != nil {
		return err
	}
	withTray = withTray || cfg.Tray

	log.Info("SignAssess - sign language assessment")

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	st, err := store.New(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer st.Close()

	quizSet := quiz.DefaultSet()
	if cfg.Quiz.File != "" {
		if quizSet, err = quiz.LoadSet(cfg.Quiz.File); err != nil {
			return err
		}
		log.WithField("quiz", quizSet.Name).Info("loaded quiz")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessionSink, closeSinks, err := buildSinks(ctx, cfg, st, log)
	if err != nil {
		return err
	}
	defer closeSinks()

	camera := capture.NewCamera(capture.Config{
		DeviceID: cfg.Camera.ID,
		Width:    cfg.Camera.Width,
		Height:   cfg.Camera.Height,
		FPS:      cfg.Camera.FPS,
	})

	application := app.New(app.Config{
		Store:      st,
		Camera:     camera,
		Recognizer: newRecognizer(cfg, log),
		QuizSet:    quizSet,
		TopN:       cfg.Summary.TopN,
		Sink:       sessionSink,
		Logger:     log,
	})
	defer application.Close()

	if err := application.LoadSigns(); err != nil {
		return fmt.Errorf("failed to load signs: %w", err)
	}

	webDir := findWebDir(cfg.Server.StaticDir)
	if webDir != "" {
		log.WithField("dir", webDir).Info("serving static files")
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		Store:     st,
		App:       application,
		TopN:      cfg.Summary.TopN,
		Logger:    log,
	})

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(cfg.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			stop()
		}
	}()

	if withTray {
		runTray(ctx, stop, application, pageURL(cfg.Server.Addr), log)
	} else {
		<-ctx.Done()
	}

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	default:
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// buildSinks combines the local store with the optional Redis and
// Cassandra backends and any discovered hooks. The returned func releases their connections.
func buildSinks(ctx context.Context, cfg *config.Config, st *store.Store, log logrus.FieldLogger) (sink.Sink, func(), error) {
	sinks := sink.Multi{sink.NewStoreSink(st)}
	var closers []func()

	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	if cfg.Redis.Addr != "" {
		rs, err := sink.ConnectRedis(ctx, cfg.Redis.Addr, cfg.Redis.Key)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, rs)
		closers = append(closers, func() { rs.Close() })
		log.WithField("addr", cfg.Redis.Addr).Info("publishing sessions to Redis")
	}

	if len(cfg.Cassandra.Hosts) > 0 {
		cs, err := sink.ConnectCassandra(cfg.Cassandra.Hosts, cfg.Cassandra.Keyspace)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		sinks = append(sinks, cs)
		closers = append(closers, cs.Close)
		log.WithField("keyspace", cfg.Cassandra.Keyspace).Info("archiving sessions to Cassandra")
	}

	hooks := hook.NewManager(cfg.HooksDir())
	if err := hooks.Discover(); err != nil {
		closeAll()
		return nil, nil, fmt.Errorf("failed to discover hooks: %w", err)
	}
	if n := len(hooks.List()); n > 0 {
		sinks = append(sinks, hook.NewSink(hooks, hook.NewExecutor(cfg.Hooks.Timeout), log))
		log.WithFields(logrus.Fields{"dir": hooks.Dir(), "hooks": n}).Info("running session hooks")
	}

	return sinks, closeAll, nil
}

// newRecognizer prefers the MediaPipe service and falls back to the mock
// recognizer, which only labels hands through trained sign templates.
func newRecognizer(cfg *config.Config, log logrus.FieldLogger) detector.Recognizer {
	mp, err := detector.NewMediaPipeRecognizer(detector.Config{
		MaxHands:      cfg.Detector.MaxHands,
		MinConfidence: cfg.Detector.MinConfidence,
		ModelPath:     cfg.Detector.ModelPath,
	})
	if err != nil {
		log.WithError(err).Warn("MediaPipe not available, using mock recognizer")
		return detector.NewMockRecognizer()
	}
	log.Info("using MediaPipe gesture recognizer")
	return mp
}

// runTray blocks in the tray loop until the user quits or ctx ends.
func runTray(ctx context.Context, cancel context.CancelFunc, application *app.App, url string, log logrus.FieldLogger) {
	t := tray.New()
	t.OnToggle(func(start bool) error {
		if start {
			_, err := application.StartSession(session.Identity{})
			return err
		}
		// A record that failed to save still ends the session.
		if _, _, err := application.StopSession(ctx); err != nil && !errors.Is(err, app.ErrNoSession) {
			log.WithError(err).Warn("session stopped with errors")
		}
		return nil
	})
	t.OnOpen(func() {
		if err := openBrowser(url); err != nil {
			log.WithError(err).Warn("failed to open browser")
		}
	})
	t.OnQuit(cancel)

	stopFollow := make(chan struct{})
	go t.Follow(application, time.Second, stopFollow)
	go func() {
		<-ctx.Done()
		t.Quit()
	}()

	t.Run()
	close(stopFollow)
}

func pageURL(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

// findWebDir resolves the static directory. A relative dir is also looked
// up one and two levels up and in ~/.signassess/web. Returns an empty
// string if none is found.
func findWebDir(dir string) string {
	if dir == "" {
		return ""
	}
	candidates := []string{dir}
	if !filepath.IsAbs(dir) {
		candidates = append(candidates, filepath.Join("..", dir), filepath.Join("..", "..", dir))
		if homeDir, err := os.UserHomeDir(); err == nil {
			candidates = append(candidates, filepath.Join(homeDir, ".signassess", "web"))
		}
	}

	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if absPath, err := filepath.Abs(p); err == nil {
				return absPath
			}
			return p
		}
	}
	return ""
}
