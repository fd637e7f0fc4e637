package ledger

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/niksmo/consumershop/internal/core/domain"
	"github.com/niksmo/consumershop/internal/core/port"
	"github.com/niksmo/consumershop/pkg/retry"
)

const (
	defaultPollInterval  = 4 * time.Second
	defaultMaxBlockRange = 2000
)

// LogsBackend is the node API polled by the [Watcher].
type LogsBackend interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
}

type WatcherConfig struct {
	PollInterval  time.Duration
	Confirmations uint64
	MaxBlockRange uint64
}

// A Watcher polls contract logs and hands decoded events to the handler.
type Watcher struct {
	backend  LogsBackend
	contract *ShopContract
	handler  port.EventsHandler
	cfg      WatcherConfig
	retryCfg retry.RetryConfig
	next     uint64
}

func NewWatcher(
	backend LogsBackend,
	contract *ShopContract,
	handler port.EventsHandler,
	cfg WatcherConfig,
) *Watcher {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.MaxBlockRange == 0 {
		cfg.MaxBlockRange = defaultMaxBlockRange
	}

	return &Watcher{
		backend:  backend,
		contract: contract,
		handler:  handler,
		cfg:      cfg,
		retryCfg: retry.RetryConfig{
			MaxAttempts: 3,
			Backoff:     retry.ExponentialBackoff(200 * time.Millisecond),
			ShouldRetry: func(err error) bool {
				return !errors.Is(err, context.Canceled)
			},
		},
	}
}

// Run polls from block until ctx is done.
func (w *Watcher) Run(ctx context.Context, from uint64) {
	const op = "Watcher.Run"
	log := slog.With("op", op)

	w.next = from
	log.Info("running", "fromBlock", from)

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := w.poll(ctx); err != nil && ctx.Err() == nil {
			log.Error("failed to poll logs", "err", err, "nextBlock", w.next)
		}

		select {
		case <-ctx.Done():
			log.Info("stopped", "nextBlock", w.next)
			return
		case <-ticker.C:
		}
	}
}

// Next returns the first block not handled yet.
func (w *Watcher) Next() uint64 {
	return w.next
}

// poll handles the confirmed blocks in ranges, the cursor is moved
// only after the range batch was handled.
func (w *Watcher) poll(ctx context.Context) error {
	const op = "Watcher.poll"

	head, err := w.backend.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if head < w.cfg.Confirmations {
		return nil
	}
	safe := head - w.cfg.Confirmations

	for w.next <= safe {
		to := min(w.next+w.cfg.MaxBlockRange-1, safe)

		evts, err := w.fetchEvents(ctx, w.next, to)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		if len(evts) != 0 {
			if err := w.handler.HandleEvents(ctx, evts); err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
		}
		w.next = to + 1
	}
	return nil
}

func (w *Watcher) fetchEvents(
	ctx context.Context, from, to uint64,
) ([]domain.Event, error) {
	log := slog.With("op", "Watcher.fetchEvents")

	q := w.contract.FilterQuery(from, to)
	logs, err := retry.DoWithResult(ctx, w.retryCfg,
		func() ([]types.Log, error) {
			return w.backend.FilterLogs(ctx, q)
		},
	)
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(logs, func(a, b types.Log) int {
		if c := cmp.Compare(a.BlockNumber, b.BlockNumber); c != 0 {
			return c
		}
		return cmp.Compare(a.Index, b.Index)
	})

	evts := make([]domain.Event, 0, len(logs))
	for _, l := range logs {
		if l.Removed {
			continue
		}
		e, err := w.contract.ParseLog(l)
		if err != nil {
			log.Warn("log skipped",
				"err", err, "block", l.BlockNumber, "tx", l.TxHash.Hex(),
			)
			continue
		}
		evts = append(evts, e)
	}

	log.Debug("logs fetched",
		"fromBlock", from, "toBlock", to, "events", len(evts),
	)
	return evts, nil
}
