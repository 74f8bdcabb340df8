package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/five82/layerscope/internal/backend"
	"github.com/five82/layerscope/internal/cache"
	"github.com/five82/layerscope/internal/config"
	"github.com/five82/layerscope/internal/logging"
	"github.com/five82/layerscope/internal/metrics"
	"github.com/five82/layerscope/internal/prefs"
	"github.com/five82/layerscope/internal/session"
	"github.com/five82/layerscope/internal/ui"
)

// Options configure the layerscope application.
type Options struct {
	ConfigPath  string
	PrefsPath   string        // empty uses default ~/.config/layerscope/prefs.toml
	BackendAddr string        // overrides backend_addr
	MetricsAddr string        // overrides metrics_addr
	PollEvery   time.Duration // overrides poll_interval
	LogLevel    string        // overrides log_level
}

const (
	closeTimeout    = 5 * time.Second
	startupAttempts = 3
)

// env is everything a command needs, built once from Options.
type env struct {
	cfg     config.Config
	log     *zap.Logger
	client  *backend.Client
	session *session.Session
}

func setup(opts Options) (*env, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if addr := strings.TrimSpace(opts.BackendAddr); addr != "" {
		cfg.BackendAddr = addr
	}
	if addr := strings.TrimSpace(opts.MetricsAddr); addr != "" {
		cfg.MetricsAddr = addr
	}
	if opts.PollEvery > 0 {
		cfg.PollInterval = opts.PollEvery
	}
	if lvl := strings.TrimSpace(opts.LogLevel); lvl != "" {
		cfg.LogLevel = lvl
	}

	if err := logging.Init(cfg.Logging()); err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	logger := logging.L()

	client, err := backend.NewClient(cfg.BackendAddr, backend.Options{
		Timeout: cfg.RequestTimeout,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init backend client: %w", err)
	}

	sess := session.New(client, session.Options{
		Normalizer: cfg.Normalizer(),
		Budget:     cache.New(cfg.CacheBudget),
		Logger:     logger,
	})
	metrics.SetCacheUsage(0, cfg.CacheBudget)

	return &env{cfg: cfg, log: logger, client: client, session: sess}, nil
}

// close releases the backend's working image and flushes the log.
func (e *env) close() {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := e.session.Close(ctx); err != nil {
		e.log.Warn("cleanup of working image failed", zap.Error(err))
	}
	_ = logging.Sync()
}

// Run boots the layerscope TUI until the context is cancelled or the user quits.
func Run(ctx context.Context, opts Options) error {
	e, err := setup(opts)
	if err != nil {
		return err
	}
	defer e.close()

	userPrefs, _ := prefs.Load(opts.PrefsPath)

	if e.cfg.MetricsAddr != "" {
		srv := serveMetrics(e.cfg.MetricsAddr, e.log)
		defer shutdownServer(srv, e.log)
	}

	if err := waitForBackend(ctx, e.client, 1, e.cfg.PollInterval); err != nil {
		// The UI shows the offline state and the poller keeps retrying.
		e.log.Warn("backend not reachable at startup", zap.String("addr", e.cfg.BackendAddr), zap.Error(err))
	}

	StartPoller(ctx, e.session, e.cfg.PollInterval, e.log)

	e.log.Info("starting ui", zap.String("backend", e.cfg.BackendAddr))
	return ui.Run(ui.Options{
		Context:   ctx,
		Session:   e.session,
		Config:    &e.cfg,
		ThemeName: userPrefs.Theme,
		LastImage: userPrefs.LastImage,
		PrefsPath: opts.PrefsPath,
	})
}

func serveMetrics(addr string, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("metrics endpoint listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics endpoint failed", zap.Error(err))
		}
	}()
	return srv
}

func shutdownServer(srv *http.Server, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("metrics endpoint shutdown", zap.Error(err))
	}
}
