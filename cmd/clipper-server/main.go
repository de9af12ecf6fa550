package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/clipforge/clipforge/clients"
	"github.com/clipforge/clipforge/config"
	"github.com/clipforge/clipforge/fetch"
	"github.com/clipforge/clipforge/handlers"
	"github.com/clipforge/clipforge/job"
	"github.com/clipforge/clipforge/log"
	"github.com/clipforge/clipforge/middleware"
	"github.com/clipforge/clipforge/speech"
	"github.com/clipforge/clipforge/store"
	"github.com/clipforge/clipforge/video"
	"github.com/clipforge/clipforge/visual"
)

// Exit codes: 0 success, 1 configuration error, 2 unrecoverable runtime
// error, 130 shut down by signal.
const (
	exitOK           = 0
	exitConfigError  = 1
	exitRuntimeError = 2
	exitInterrupted  = 130
)

func main() {
	os.Exit(run())
}

func run() int {
	cli, err := config.ParseCliFromOSArgs()
	if err != nil {
		log.LogNoRequestID("failed to parse cli flags", "err", err)
		return exitConfigError
	}

	pipelineCfg, err := config.FromEnv()
	if err != nil {
		log.LogNoRequestID("failed to load pipeline config", "err", err)
		return exitConfigError
	}
	pipelineCfg.Hardware = config.DetectHardwareProfile()
	log.LogNoRequestID("detected hardware profile",
		"cpus", pipelineCfg.Hardware.LogicalCPUs,
		"accelerated", pipelineCfg.Hardware.Accelerated,
		"suggested_max_parallel_renders", pipelineCfg.Hardware.SuggestedMaxParallelRenders)

	artifacts := store.NewStore(cli.StorageRoot)
	if cli.S3Bucket != "" {
		s3Client, err := clients.NewS3Client(cli.S3Region)
		if err != nil {
			log.LogNoRequestID("failed to build s3 client", "err", err)
			return exitConfigError
		}
		artifacts = artifacts.WithS3Mirror(s3Client, cli.S3Bucket)
	}

	prober := video.NewCachingProber(video.Probe{})
	transcriber := speech.NewTranscriber(
		speech.NewSubprocessDecoder(""),
		externalDecoderFor(pipelineCfg),
	)
	analyzer := visual.NewAnalyzer(
		visual.NewFrameSampler(filepath.Join(cli.StorageRoot, "tmp")),
		visual.NewHeuristicFaceDetector(),
	)

	coordinator := job.NewCoordinator(
		pipelineCfg.ProcessingConcurrency,
		pipelineCfg.ProcessingCooldown,
		prober, transcriber, analyzer, artifacts,
	)
	coordinator.Start()
	fetcher := fetch.NewFetcher(pipelineCfg.MaxSourceSizeBytes)

	h := handlers.NewClipperAPIHandlersCollection(coordinator, fetcher, artifacts, prober, pipelineCfg)
	router := newRouter(h, cli.APIToken)

	group, ctx := errgroup.WithContext(context.Background())

	server := &http.Server{
		Addr:    cli.HTTPAddr,
		Handler: router,
	}

	group.Go(func() error {
		log.LogNoRequestID("listening", "addr", cli.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		return handleSignals(ctx)
	})

	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		if _, cancelled := err.(signalError); cancelled {
			log.LogNoRequestID("shutting down on signal", "err", err)
			return exitInterrupted
		}
		log.LogNoRequestID("unrecoverable runtime error", "err", err)
		return exitRuntimeError
	}
	return exitOK
}

func externalDecoderFor(cfg config.Pipeline) speech.Decoder {
	if cfg.ExternalBackendKey == "" {
		return nil
	}
	return speech.NewExternalBackend(cfg.ExternalBackendURL, cfg.ExternalBackendKey)
}

func newRouter(h handlers.ClipperAPIHandlersCollection, apiToken string) *httprouter.Router {
	router := httprouter.New()

	authorize := func(next httprouter.Handle) httprouter.Handle {
		if apiToken == "" {
			return next
		}
		return middleware.IsAuthorized(apiToken, next)
	}
	wrap := func(next httprouter.Handle) httprouter.Handle {
		return middleware.AllowCORS()(middleware.LogRequest()(authorize(next)))
	}

	// preflight requests for any route get the CORS headers and nothing else
	router.GlobalOPTIONS = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		middleware.AllowCORS()(func(http.ResponseWriter, *http.Request, httprouter.Params) {})(w, r, nil)
	})

	router.GET("/ok", middleware.LogRequest()(h.Ok()))
	router.GET("/metrics", middleware.LogRequest()(metricsHandle()))

	router.POST("/upload", wrap(h.Upload()))
	router.POST("/fetch", wrap(h.Fetch()))
	router.POST("/process", wrap(h.Process()))
	router.GET("/status/:job_id", wrap(h.Status()))
	router.GET("/download/:job_id/:file", wrap(h.Download()))
	router.GET("/download-all/:job_id", wrap(h.DownloadAll()))
	router.POST("/cancel/:job_id", wrap(h.Cancel()))
	router.DELETE("/cleanup/:job_id", wrap(h.Cleanup()))

	return router
}

func metricsHandle() httprouter.Handle {
	wrapped := promhttp.Handler()
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		wrapped.ServeHTTP(w, r)
	}
}

// signalError distinguishes a signal-triggered shutdown from any other
// group error.
type signalError struct {
	signal os.Signal
}

func (e signalError) Error() string {
	return fmt.Sprintf("caught signal=%v", e.signal)
}

func handleSignals(ctx context.Context) error {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGINT)
	select {
	case s := <-c:
		return signalError{signal: s}
	case <-ctx.Done():
		return nil
	}
}
