/*
Example code showing live pose matching against a reference photo.  Frames
are read from a camera or video file, scored against the captured reference
and the skeleton overlay is streamed over HTTP.
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/swdee/go-posematch"
	"github.com/swdee/go-posematch/calibration"
	"github.com/swdee/go-posematch/config"
	"github.com/swdee/go-posematch/logger"
	"github.com/swdee/go-posematch/metrics"
	"github.com/swdee/go-posematch/postprocess"
	"github.com/swdee/go-posematch/render"
	"github.com/swdee/go-posematch/rknn"
	"github.com/swdee/go-posematch/session"
	"github.com/swdee/go-posematch/source"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// disable logging timestamps
	log.SetFlags(0)

	// read in cli flags
	cfgFile := flag.String("c", "", "YAML configuration file, built in defaults are used when empty")
	query := flag.Bool("q", false, "Print the pose model tensor details and exit")

	flag.Parse()

	cfg, err := config.Load(*cfgFile)

	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	err = logger.Init(logger.Config{Level: cfg.Log.Level, Development: cfg.Log.Development})

	if err != nil {
		log.Fatalf("Error creating logger: %v", err)
	}

	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *query); err != nil {
		logger.Log().Fatal("posematch exited", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, query bool) error {

	zl := logger.Log()

	err := rknn.SetCPUAffinityByPlatform(cfg.Model.Platform, rknn.FastCores)

	if err != nil {
		zl.Warn("failed to set CPU affinity", zap.Error(err))
	}

	estimator, err := newEstimator(cfg, zl)

	if err != nil {
		return err
	}

	defer estimator.Close()

	if query {
		if err := estimator.Load(ctx); err != nil {
			return err
		}

		return estimator.Query(ctx, os.Stdout)
	}

	camera, err := source.OpenCamera(source.CameraConfig{
		Device: cfg.Camera.Device,
		Width:  cfg.Camera.TextureWidth,
		Height: cfg.Camera.TextureHeight,
		Loop:   cfg.Camera.Loop,
	}, zl)

	if err != nil {
		return err
	}

	defer camera.Close()

	overlay, stream, err := newOverlay(cfg)

	if err != nil {
		return err
	}

	space, err := posematch.ParseSpace(cfg.Session.Coords)

	if err != nil {
		return err
	}

	collector := metrics.New()

	sess := session.New(camera, estimator,
		session.WithLogger(zl),
		session.WithMetrics(collector),
		session.WithRenderer(overlay),
		session.WithDecoder(source.Decoder{}),
		session.WithThreshold(cfg.Session.Threshold),
		session.WithSpace(space),
		session.WithTargetFPS(cfg.Session.TargetFPS),
		session.WithReferenceHeight(cfg.Session.ReferenceHeight),
	)

	defer sess.Close()

	var calib *calibration.Client

	if cfg.Calibration.Enabled {
		calib = calibration.New(cfg.Calibration.BaseURL, cfg.Calibration.Timeout)
	}

	api := &server{
		sess:    sess,
		camera:  camera,
		calib:   calib,
		stream:  stream,
		metrics: collector,
		log:     zl.Named("http"),
	}

	srv := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: api.routes(),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return collector.WatchProcess(gctx, 5*time.Second)
	})

	g.Go(func() error {
		err := sess.Run(gctx)

		if errors.Is(err, posematch.ErrSourceExhausted) {
			zl.Info("video finished, API remains available until interrupted")
			return nil
		}

		return err
	})

	g.Go(func() error {
		zl.Info("serving control API", zap.String("addr", cfg.HTTP.Addr),
			zap.String("stream", fmt.Sprintf("http://%s/stream", cfg.HTTP.Addr)))

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}

		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// newEstimator creates the NPU pose estimator from the model config
func newEstimator(cfg *config.Config, zl *zap.Logger) (*rknn.Estimator, error) {

	params := postprocess.YOLOv8PoseCOCOParams()
	params.BoxThreshold = cfg.Model.BoxThreshold
	params.NMSThreshold = cfg.Model.NMSThreshold

	var parts []posematch.Part

	if cfg.Model.Labels != "" {
		var err error
		parts, err = rknn.LoadPartLabels(cfg.Model.Labels)

		if err != nil {
			return nil, err
		}
	}

	return rknn.NewEstimator(rknn.EstimatorConfig{
		ModelFile: cfg.Model.Path,
		PoolSize:  cfg.Model.PoolSize,
		Platform:  cfg.Model.Platform,
		Params:    params,
		Parts:     parts,
	}, zl)
}

// newOverlay creates the drawing surface and the overlay renderer on it
func newOverlay(cfg *config.Config) (*render.Overlay, latestFrame, error) {

	var (
		surface posematch.Surface
		stream  latestFrame
	)

	switch cfg.Render.Backend {
	case "canvas":
		c := render.NewCanvas(cfg.Render.Width, cfg.Render.Height, nil)
		surface = c
		stream = &canvasFrames{canvas: c}

	default:
		m := render.NewMatSurface(cfg.Render.Width, cfg.Render.Height)
		surface = m
		stream = m
	}

	overlay := render.NewOverlay(surface, cfg.Render.Width, cfg.Render.Height)
	overlay.Style.MarkerRadius = cfg.Render.MarkerRadius
	overlay.Style.LineWidth = cfg.Render.LineWidth

	if cfg.Session.SkeletonFile != "" {
		data, err := os.ReadFile(cfg.Session.SkeletonFile)

		if err != nil {
			return nil, nil, fmt.Errorf("error reading skeleton file: %w", err)
		}

		overlay.Skeleton, err = posematch.ParseSkeleton(data)

		if err != nil {
			return nil, nil, err
		}
	}

	return overlay, stream, nil
}
