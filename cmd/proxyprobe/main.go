package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/outboundlb/proxyprobe/internal/config"
	"github.com/outboundlb/proxyprobe/internal/probe"
	"github.com/outboundlb/proxyprobe/internal/prom"
	"github.com/outboundlb/proxyprobe/internal/summary"
	"github.com/outboundlb/proxyprobe/internal/tracing"
	"github.com/outboundlb/proxyprobe/internal/transport"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	target, err := url.Parse(cfg.TargetURL)
	if err != nil {
		return fmt.Errorf("target: %w", err)
	}
	proxyURL, err := cfg.ProxyURL()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	tracer, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = tracer.Shutdown(shutdownCtx)
	}()

	var tr transport.Transport = transport.NewHTTPTransport()
	if cfg.Retries > 0 {
		tr = transport.WithRetry(tr, transport.RetryPolicy{MaxAttempts: cfg.Retries + 1})
	}
	if cfg.Tracing.Enabled {
		tr = tracing.WrapTransport(tr, tracer.Tracer())
	}
	if cfg.MetricsAddr != "" {
		tr = prom.WrapTransport(tr)
	}

	classifier := probe.Classifier{KeyPath: cfg.OriginField}
	var dispatcher probe.Dispatcher
	switch cfg.Model {
	case config.ModelCooperative:
		dispatcher = probe.NewCooperative(tr, probe.CooperativeOptions{
			MaxInflight:   cfg.MaxInflight,
			RatePerSecond: cfg.Rate,
			Classifier:    classifier,
		})
	default:
		dispatcher = probe.NewThreaded(tr, probe.ThreadedOptions{
			Workers:       cfg.Workers,
			RatePerSecond: cfg.Rate,
			Classifier:    classifier,
		})
	}

	var metricsWG sync.WaitGroup
	if cfg.MetricsAddr != "" {
		metricsWG.Add(1)
		go func() {
			defer metricsWG.Done()
			if err := prom.Serve(ctx, cfg.MetricsAddr); err != nil {
				fmt.Fprintf(os.Stderr, "metrics server: %v\n", err)
			}
		}()
	}

	batchID := ulid.Make().String()
	tasks := probe.Tasks(cfg.Requests, target, proxyURL, cfg.Credentials(), cfg.Timeout)

	recorders := []probe.Recorder{}
	agg := summary.NewAggregator()
	recorders = append(recorders, agg)
	if cfg.MetricsAddr != "" {
		recorders = append(recorders, prom.Recorder{})
	}
	if cfg.LogErrors {
		recorders = append(recorders, &stderrFailureLogger{})
	}

	batchCtx, batchSpan := tracing.StartBatchSpan(ctx, tracer.Tracer(), batchID, string(cfg.Model), len(tasks))
	start := time.Now()
	completed := probe.RunBatch(batchCtx, tasks, dispatcher, recorders...)
	elapsed := time.Since(start)
	batchSpan.End()

	cancel()
	metricsWG.Wait()

	result := agg.Summarize(len(tasks), elapsed)
	result.BatchID = batchID
	result.Model = string(cfg.Model)

	if err := summary.WriteReport(os.Stdout, cfg.Format, result); err != nil {
		return err
	}
	if cfg.ReportFile != "" {
		if err := summary.SaveReport(cfg.ReportFile, cfg.Format, result); err != nil {
			return err
		}
	}

	if completed > 0 && result.Successes() == 0 {
		return fmt.Errorf("no successful responses out of %d completed requests", completed)
	}
	return nil
}

type stderrFailureLogger struct {
	mu sync.Mutex
}

// Record writes one line per failed task to stderr.
func (l *stderrFailureLogger) Record(out probe.Outcome) {
	if out.Kind == probe.Success {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if out.Detail != "" {
		fmt.Fprintf(os.Stderr, "[proxyprobe] task %d: %s (%s)\n", out.TaskID, out.Kind, out.Detail)
		return
	}
	fmt.Fprintf(os.Stderr, "[proxyprobe] task %d: %s\n", out.TaskID, out.Kind)
}
