package usecase

import (
	"context"
	"errors"

	"SignalHub/internal/broadcast"
	"SignalHub/internal/domain/models"
	drepo "SignalHub/internal/domain/repository"
	"SignalHub/internal/reconcile"
	applogger "SignalHub/pkg/logger"
)

var errStreamClosed = errors.New("stream closed")

// RowsFunc receives the reconciled rows after every applied event.
type RowsFunc func(rows []models.LiveSignal, scan *models.ScanStatus)

// Watcher follows a hub's real-time channel and keeps a reconciled view.
type Watcher struct {
	stream drepo.SignalStream
	view   *reconcile.View
	log    *applogger.Logger
	onRows RowsFunc
	scan   *models.ScanStatus
}

func NewWatcher(stream drepo.SignalStream, log *applogger.Logger, onRows RowsFunc) *Watcher {
	if log == nil {
		log = applogger.Nop()
	}
	return &Watcher{stream: stream, view: reconcile.NewView(), log: log, onRows: onRows}
}

// IsConnected returns true if the stream is connected.
func (w *Watcher) IsConnected() bool {
	return w.stream.IsConnected()
}

// Run connects and consumes until ctx is done, reconnecting on stream errors.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.stream.Connect(ctx); err != nil {
		return err
	}
	defer w.stream.Close()

	for {
		evCh, errCh := w.stream.Read(ctx)
		err := w.consume(ctx, evCh, errCh)
		if ctx.Err() != nil {
			return nil
		}
		w.log.Warn("stream interrupted, reconnecting", applogger.Error(err))
		for {
			rerr := w.stream.Reconnect(ctx)
			if rerr == nil {
				break
			}
			if ctx.Err() != nil {
				return nil
			}
			w.log.Warn("reconnect failed", applogger.Error(rerr))
		}
		w.view.Reset()
	}
}

func (w *Watcher) consume(ctx context.Context, evCh <-chan drepo.StreamEvent, errCh <-chan error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err, ok := <-errCh:
			if ok && err != nil {
				return err
			}
			errCh = nil
		case ev, ok := <-evCh:
			if !ok {
				return errStreamClosed
			}
			w.Apply(ev)
		}
	}
}

// Apply folds one event into the view and notifies the callback.
func (w *Watcher) Apply(ev drepo.StreamEvent) {
	switch broadcast.EventType(ev.Type) {
	case broadcast.EventStateUpdate:
		if !w.view.ApplySnapshot(ev.Snapshot) {
			w.log.Debug("stale snapshot ignored")
			return
		}
	case broadcast.EventPrices:
		if ev.Prices == nil {
			return
		}
		w.view.ApplyPrices(ev.Prices.Prices)
	case broadcast.EventScanStatus:
		w.scan = ev.Scan
	default:
		return
	}
	if w.onRows != nil {
		w.onRows(w.view.Rows(), w.scan)
	}
}

// Rows returns the current reconciled rows.
func (w *Watcher) Rows() []models.LiveSignal {
	return w.view.Rows()
}
