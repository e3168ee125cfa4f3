package inspector

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/hwfleet/hwfleet/internal/inspector/core/report"
	httpserver "github.com/hwfleet/hwfleet/internal/inspector/server/http"
	"github.com/hwfleet/hwfleet/pkg/log"
)

var errNoPass = errors.New("no reconciliation pass finished yet")

// PassRunner runs one reconciliation pass.
type PassRunner interface {
	RunPass(ctx context.Context) (*report.Summary, error)
}

// Inspector runs a single pass, or passes separated by a fixed delay.
type Inspector struct {
	runner   PassRunner
	interval time.Duration
	out      io.Writer
	logger   log.Logger

	server  *httpserver.Server
	closers []func(context.Context)

	mu      sync.Mutex
	lastErr error
}

// New creates an Inspector. An interval of zero runs exactly one pass.
func New(runner PassRunner, interval time.Duration, out io.Writer, logger log.Logger) *Inspector {
	if out == nil {
		out = io.Discard
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Inspector{runner: runner, interval: interval, out: out, logger: logger, lastErr: errNoPass}
}

// Run blocks until the single pass finished or, in loop mode, until ctx is canceled.
// In single pass mode the pass error is returned.
func (i *Inspector) Run(ctx context.Context) error {
	defer i.close()

	if i.interval <= 0 {
		return i.pass(ctx)
	}

	g, ctx := errgroup.WithContext(ctx)
	if i.server != nil {
		g.Go(func() error {
			return i.server.Start(ctx)
		})
	}
	g.Go(func() error {
		i.logger.Info("Running passes", "interval", i.interval)
		wait.UntilWithContext(ctx, func(ctx context.Context) {
			if err := i.pass(ctx); err != nil {
				i.logger.Error(err, "Reconciliation pass failed")
			}
		}, i.interval)
		return nil
	})
	return g.Wait()
}

// Ready reports the error of the last pass.
func (i *Inspector) Ready() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.lastErr
}

func (i *Inspector) pass(ctx context.Context) error {
	summary, err := i.runner.RunPass(ctx)

	i.mu.Lock()
	i.lastErr = err
	i.mu.Unlock()

	if err != nil {
		return err
	}
	summary.Render(i.out)
	return nil
}

func (i *Inspector) close() {
	closeAll(i.closers)
}

func closeAll(closers []func(context.Context)) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, c := range closers {
		c(ctx)
	}
}
