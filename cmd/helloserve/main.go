// Command helloserve is the classic thread-pool demo: a tiny HTTP file
// server where every accepted connection runs as one job on a fixed
// pool of workers.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	threadpool "github.com/azargarov/tpool"
	"github.com/azargarov/tpool/internal/config"
	"github.com/azargarov/tpool/internal/fileserve"
	"github.com/azargarov/tpool/internal/server"
)

// version is stamped at build time via -ldflags.
var version = "dev"

var (
	v       = viper.New()
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "helloserve",
	Short: "Tiny HTTP demo server backed by a fixed-size thread pool",
	Long: `helloserve binds a TCP address and serves a couple of static HTML
pages. Every accepted connection becomes one job on a fixed-size
worker pool, so at most --workers connections are served at a time;
the rest queue up in arrival order.

Routes: GET / serves hello.html, GET /sleep stalls before answering
(handy for watching the pool saturate), anything else gets the 404
page.`,
	Version:      version,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(v, cfgFile)
		if err != nil {
			return err
		}
		return run(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.Flags().StringVar(&cfgFile, "config-file", "", "Path to a YAML config file.")
	cobra.CheckErr(config.BindFlags(v, rootCmd.Flags()))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Sync()

	logger.Info("starting helloserve",
		zap.String("version", version),
		zap.String("addr", cfg.ListenAddr),
		zap.Int("workers", cfg.Workers))

	reg := prometheus.NewRegistry()
	metrics := threadpool.NewPrometheusMetrics("helloserve", "pool", reg)

	pool := threadpool.NewWithOptions(cfg.Workers, threadpool.Options{
		Logger:     logger.Named("pool"),
		Metrics:    metrics,
		PinWorkers: cfg.PinWorkers,
	})

	handler := fileserve.New(fileserve.Config{
		DocRoot:     cfg.DocRoot,
		SleepDelay:  cfg.SleepDelay,
		ReadTimeout: cfg.ReadTimeout,
	}, logger.Named("http"))

	srv := server.New(server.Config{
		Addr:     cfg.ListenAddr,
		MaxConns: cfg.MaxConns,
	}, pool, handler, logger.Named("server"))

	if err := srv.Listen(); err != nil {
		pool.Stop()
		return err
	}

	var msrv *http.Server
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		msrv = &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Serve)
	if msrv != nil {
		g.Go(func() error {
			logger.Info("metrics endpoint up", zap.String("addr", cfg.MetricsAddr))
			if err := msrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		// Fires on SIGINT/SIGTERM or on the first failure above.
		<-gctx.Done()
		logger.Info("shutting down")
		err := srv.Close()
		if msrv != nil {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			err = multierr.Append(err, msrv.Shutdown(sctx))
		}
		return err
	})

	err = g.Wait()

	// The listener is gone; let the workers finish what they hold.
	pool.Stop()
	logger.Info("shutdown complete")
	return err
}

// newLogger builds the process logger: console or JSON encoding, to
// stderr or to a size-rotated file.
func newLogger(lc config.LoggingConfig) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(lc.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	var enc zapcore.Encoder
	if lc.Format == "json" {
		enc = zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	} else {
		enc = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	}

	var sink zapcore.WriteSyncer
	if lc.FilePath != "" {
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   lc.FilePath,
			MaxSize:    lc.MaxSizeMB,
			MaxBackups: lc.MaxBackups,
			MaxAge:     lc.MaxAgeDays,
			Compress:   lc.Compress,
		})
	} else {
		sink = zapcore.Lock(os.Stderr)
	}

	return zap.New(zapcore.NewCore(enc, sink, lvl)), nil
}
