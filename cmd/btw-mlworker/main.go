package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Bumblebee-3/BTW-daemon/asr"
	"github.com/Bumblebee-3/BTW-daemon/asr/groq"
	"github.com/Bumblebee-3/BTW-daemon/worker"
	"github.com/caarlos0/env/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

var CommitHash = ""

type config struct {
	// GROQ_* names are part of the deployment contract, so no prefix
	GroqOptions groq.GroqClientOptions
}

const logLevelEnvKey = "BTW_LOG_LEVEL"

func createLog() *zap.Logger {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = ""

	logLevelValue := os.Getenv(logLevelEnvKey)
	logLevel, logLevelErr := zapcore.ParseLevel(logLevelValue)

	if logLevelErr != nil {
		logLevel = zapcore.InfoLevel
	}

	// stdout carries the line protocol; diagnostics go to stderr only
	rawLog := zap.New(zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.Lock(os.Stderr),
		logLevel,
	)).Named("btw-mlworker")

	if CommitHash != "" {
		rawLog = rawLog.With(zap.String("commit", CommitHash))
	}

	if logLevelErr != nil && logLevelValue != "" {
		rawLog.With(zap.String(logLevelEnvKey, logLevelValue)).Warn("unable to parse log level, using INFO")
	}

	return rawLog
}

func main() {
	parentLogger := createLog()
	defer parentLogger.Sync()

	log := parentLogger.Named("main")
	log.With(zap.String("min_log_level", parentLogger.Level().String())).Info("starting")

	cfg := config{}
	if err := env.Parse(&cfg); err != nil {
		log.Fatal("failed to parse config", zap.Error(err))
	}

	w := worker.NewWorker(worker.WorkerOptions{
		Input:  os.Stdin,
		Output: os.Stdout,
		NewASR: func() asr.SpeechRecognitionAPI {
			return groq.NewGroqClient(cfg.GroqOptions, parentLogger)
		},
		ParentLogger: parentLogger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g := errgroup.Group{}

	g.Go(func() error {
		defer cancel()

		return w.Run(ctx)
	})

	shutdownSignal := make(chan os.Signal, 1)
	signal.Notify(shutdownSignal, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-shutdownSignal:
		// the loop may be blocked reading stdin; exit quietly so an
		// interrupt mid-read doesn't look like a crash to the daemon
		return
	case <-ctx.Done():
	}

	if err := g.Wait(); err != nil {
		log.Fatal("worker loop failed", zap.Error(err))
	}
}
