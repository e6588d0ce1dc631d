package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vango-dev/vcore/internal/config"
	"github.com/vango-dev/vcore/pkg/liveview"
	"github.com/vango-dev/vcore/pkg/metrics"
	"github.com/vango-dev/vcore/pkg/recorder"
	"github.com/vango-dev/vcore/pkg/vdom"
)

func serveCmd(load func() (*config.Config, error)) *cobra.Command {
	var (
		port int
		host string
		app  string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a demo application",
		Long: `Serve a demo application over HTTP and WebSocket.

Every browser tab gets its own session: events are dispatched to the
session's component tree and the resulting edits are streamed back.

Examples:
  vcore serve
  vcore serve --app=todo --port=9000
  vcore serve -c deploy/vcore.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Server.Port = port
			}
			if host != "" {
				cfg.Server.Host = host
			}
			render, ok := apps[app]
			if !ok {
				return fmt.Errorf("unknown app %q (available: %s)", app, appNames())
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, render)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from config)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from config)")
	cmd.Flags().StringVarP(&app, "app", "a", "counter", "Demo application: "+appNames())

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, app vdom.RenderFunc) error {
	logger := cfg.Logger(os.Stderr)
	slog.SetDefault(logger)
	vdom.DebugMode = cfg.Engine.Debug
	liveview.DebugMode = cfg.Engine.Debug

	opts := []liveview.Option{liveview.WithLogger(logger)}

	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		opts = append(opts, liveview.WithMetrics(metrics.New(
			metrics.WithRegistry(reg),
			metrics.WithNamespace(cfg.Metrics.Namespace),
		)))
	}

	if cfg.Recorder.Enabled {
		store, err := newStore(cfg.Recorder)
		if err != nil {
			return err
		}
		var recOpts []recorder.Option
		if cfg.Recorder.MaxBytes > 0 {
			recOpts = append(recOpts, recorder.WithMaxBytes(cfg.Recorder.MaxBytes))
		}
		recOpts = append(recOpts, recorder.WithLogger(logger))
		opts = append(opts, liveview.WithRecorder(recorder.New(store, recOpts...)))
	}

	srv := liveview.New(app, cfg.LiveviewConfig(), opts...)
	lc := cfg.LiveviewConfig()
	httpServer := &http.Server{
		Addr:              cfg.Address(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: lc.HandshakeTimeout,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("listening", "address", "http://"+cfg.Address(), "socket", lc.SocketPath)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutting down", "sessions", srv.SessionCount())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown", "error", err)
		}
		// Hijacked WebSocket connections are not tracked by http.Server.
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("stopped")
	return nil
}

// newStore opens the recording store selected by the recorder section.
func newStore(rc config.RecorderConfig) (recorder.Store, error) {
	switch rc.Backend {
	case "s3":
		return recorder.NewS3Store(newS3Client(rc), rc.Bucket, rc.Prefix), nil
	default:
		return recorder.NewDiskStore(rc.Dir)
	}
}

// newS3Client builds an S3 client from the recorder section and the
// standard AWS_* environment variables.
func newS3Client(rc config.RecorderConfig) *s3.Client {
	region := rc.Region
	if region == "" {
		region = os.Getenv("AWS_REGION")
	}
	opts := s3.Options{
		Region: region,
		Credentials: aws.NewCredentialsCache(aws.CredentialsProviderFunc(
			func(context.Context) (aws.Credentials, error) {
				creds := aws.Credentials{
					AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
					SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
					SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
					Source:          "environment",
				}
				if creds.AccessKeyID == "" || creds.SecretAccessKey == "" {
					return aws.Credentials{}, errors.New("recorder: AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set")
				}
				return creds, nil
			})),
		RetryMaxAttempts: 3,
	}
	if rc.Endpoint != "" {
		opts.BaseEndpoint = aws.String(rc.Endpoint)
		opts.UsePathStyle = true
	}
	return s3.New(opts)
}
