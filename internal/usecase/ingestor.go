package usecase

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"SignalHub/internal/broadcast"
	"SignalHub/internal/domain/models"
	domrepo "SignalHub/internal/domain/repository"
	"SignalHub/internal/state"
	"SignalHub/pkg/clock"
	applogger "SignalHub/pkg/logger"
	"SignalHub/pkg/validation"
)

// DefaultSignalCap bounds the visible signals per source.
const DefaultSignalCap = 1000

// Publisher receives encoded events for fan-out.
type Publisher interface {
	Publish(ev broadcast.Event)
}

// Ingestor validates producer input and is the only writer of the state store.
type Ingestor struct {
	mu      sync.Mutex
	seq     uint64
	store   *state.Store
	pub     Publisher
	sink    domrepo.SignalSink
	clk     clock.Clock
	log     *applogger.Logger
	metrics domrepo.Metrics
	cap     int
}

type IngestorOption func(*Ingestor)

func WithSignalCap(n int) IngestorOption {
	return func(i *Ingestor) {
		if n > 0 {
			i.cap = n
		}
	}
}

// WithSink forwards accepted signals downstream. Sink failures are logged only.
func WithSink(s domrepo.SignalSink) IngestorOption {
	return func(i *Ingestor) { i.sink = s }
}

func WithIngestorClock(c clock.Clock) IngestorOption {
	return func(i *Ingestor) {
		if c != nil {
			i.clk = c
		}
	}
}

func WithIngestorLogger(l *applogger.Logger) IngestorOption {
	return func(i *Ingestor) {
		if l != nil {
			i.log = l
		}
	}
}

func WithIngestorMetrics(m domrepo.Metrics) IngestorOption {
	return func(i *Ingestor) { i.metrics = m }
}

func NewIngestor(store *state.Store, pub Publisher, opts ...IngestorOption) *Ingestor {
	i := &Ingestor{
		store: store,
		pub:   pub,
		clk:   clock.Real(),
		log:   applogger.Nop(),
		cap:   DefaultSignalCap,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Accept validates one signal, stamps it and appends it to the source's visible set.
// The returned error is a *models.ValidationError for bad input.
func (i *Ingestor) Accept(ctx context.Context, source string, req models.SignalRequest) (*models.Signal, error) {
	start := time.Now()
	src, err := parseSource(source)
	if err != nil {
		i.reject(source, err)
		return nil, err
	}
	draft, err := buildSignal(ctx, src, req)
	if err != nil {
		i.reject(source, err)
		return nil, err
	}

	i.mu.Lock()
	now := i.clk.Now().UTC()
	i.seq++
	draft.stamp(now, i.seq)

	var visible []models.Signal
	if cur := i.store.Current().Source(src); cur != nil {
		visible = make([]models.Signal, 0, len(cur.Signals)+1)
		visible = append(visible, cur.Signals...)
	}
	visible = append(visible, draft.Signal)
	if over := len(visible) - i.cap; over > 0 {
		visible = visible[over:]
	}
	snap := i.store.Replace(src, visible, "", now)
	i.publish(snap)
	i.mu.Unlock()

	sig := draft.Signal
	i.forward(ctx, &sig)
	if i.metrics != nil {
		i.metrics.RecordSignalAccepted(string(src))
		i.metrics.RecordLatency("signal_accept", time.Since(start).Seconds())
	}
	i.log.Info("signal accepted",
		applogger.String("source", string(src)),
		applogger.String("symbol", sig.Symbol),
		applogger.String("side", string(sig.Side)),
		applogger.Float64("entry", sig.EntryPrice),
		applogger.Uint64("seq", sig.Seq),
	)
	return &sig, nil
}

// Rejection reports one entry of a full-state update that was skipped.
type Rejection struct {
	Index      int                `json:"index"`
	Symbol     string             `json:"symbol,omitempty"`
	Violations []models.Violation `json:"violations"`
}

// StateResult summarises a full-state update.
type StateResult struct {
	Source   models.Source   `json:"source"`
	Status   models.Status   `json:"status"`
	Version  uint64          `json:"version"`
	Accepted []models.Signal `json:"accepted"`
	Rejected []Rejection     `json:"rejected"`
}

// ApplyState replaces the visible set of a source with the valid entries of reqs.
// Invalid entries are skipped and reported; only an unknown source or status fails the call.
func (i *Ingestor) ApplyState(ctx context.Context, source string, reqs []models.SignalRequest, status string) (*StateResult, error) {
	src, err := parseSource(source)
	if err != nil {
		i.reject(source, err)
		return nil, err
	}
	var st models.Status
	if status != "" {
		var ok bool
		if st, ok = models.ParseStatus(status); !ok {
			err := models.NewValidationError("status", "ERR_ONEOF", "status must be one of: active, closed, expired, scanning, waiting")
			i.reject(source, err)
			return nil, err
		}
	}

	drafts := make([]*draftSignal, 0, len(reqs))
	res := &StateResult{Source: src, Rejected: []Rejection{}}
	for idx, req := range reqs {
		d, err := buildSignal(ctx, src, req)
		if err != nil {
			rej := Rejection{Index: idx, Symbol: req.Symbol}
			var verr *models.ValidationError
			if errors.As(err, &verr) {
				rej.Violations = verr.Violations
			}
			res.Rejected = append(res.Rejected, rej)
			i.reject(source, err)
			continue
		}
		drafts = append(drafts, d)
	}
	if over := len(drafts) - i.cap; over > 0 {
		drafts = drafts[over:]
	}

	i.mu.Lock()
	now := i.clk.Now().UTC()
	visible := make([]models.Signal, 0, len(drafts))
	for _, d := range drafts {
		i.seq++
		at := now
		if !d.requested.IsZero() {
			at = d.requested
		}
		d.stamp(at, i.seq)
		visible = append(visible, d.Signal)
	}
	snap := i.store.Replace(src, visible, st, now)
	i.publish(snap)
	i.mu.Unlock()

	res.Accepted = visible
	res.Version = snap.Version
	res.Status = snap.Source(src).Status
	for idx := range visible {
		i.forward(ctx, &visible[idx])
		if i.metrics != nil {
			i.metrics.RecordSignalAccepted(string(src))
		}
	}
	i.log.Info("source state replaced",
		applogger.String("source", string(src)),
		applogger.String("status", string(res.Status)),
		applogger.Int("accepted", len(res.Accepted)),
		applogger.Int("rejected", len(res.Rejected)),
	)
	return res, nil
}

// Query returns the visible signals newest first, filtered by q.
func (i *Ingestor) Query(q models.SignalQuery) []models.Signal {
	all := i.store.Current().Signals()
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	var src models.Source
	if q.Source != "" {
		if s, err := models.ParseSource(q.Source); err == nil {
			src = s
		} else {
			return []models.Signal{}
		}
	}

	out := make([]models.Signal, 0, min(limit, len(all)))
	for _, s := range all {
		if len(out) == limit {
			break
		}
		if q.Side != "" && string(s.Side) != q.Side {
			continue
		}
		if s.Score < q.MinScore {
			continue
		}
		if src != "" && s.Source != src {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Snapshot returns the current published snapshot.
func (i *Ingestor) Snapshot() *models.Snapshot {
	return i.store.Current()
}

// publish must run under i.mu so events leave in version order.
func (i *Ingestor) publish(snap *models.Snapshot) {
	if i.pub == nil {
		return
	}
	ev, err := broadcast.NewEvent(broadcast.EventStateUpdate, snap)
	if err != nil {
		i.log.Error("encode snapshot failed", applogger.Uint64("version", snap.Version), applogger.Error(err))
		if i.metrics != nil {
			i.metrics.RecordError("snapshot_encode")
		}
		return
	}
	i.pub.Publish(ev)
}

func (i *Ingestor) forward(ctx context.Context, sig *models.Signal) {
	if i.sink == nil {
		return
	}
	if err := i.sink.Publish(ctx, sig); err != nil {
		i.log.Warn("signal sink publish failed",
			applogger.String("id", sig.ID),
			applogger.Error(err),
		)
		if i.metrics != nil {
			i.metrics.RecordError("signal_sink")
		}
	}
}

func (i *Ingestor) reject(source string, err error) {
	reason := "invalid"
	var verr *models.ValidationError
	if errors.As(err, &verr) && len(verr.Violations) > 0 {
		reason = verr.Violations[0].Code
	}
	if i.metrics != nil {
		i.metrics.RecordSignalRejected(source, reason)
	}
	i.log.Debug("signal rejected", applogger.String("source", source), applogger.Error(err))
}

type draftSignal struct {
	models.Signal
	requested time.Time
}

func (d *draftSignal) stamp(at time.Time, seq uint64) {
	d.EntryTime = at
	d.Seq = seq
	d.ID = models.SignalID(d.Source, d.Symbol, at, seq)
}

func parseSource(source string) (models.Source, error) {
	src, err := models.ParseSource(source)
	if err != nil {
		return "", models.NewValidationError("source", "ERR_UNKNOWN_SOURCE", "unknown source: "+source)
	}
	return src, nil
}

// buildSignal validates and defaults req. Identity fields are stamped later under the writer lock.
func buildSignal(ctx context.Context, src models.Source, req models.SignalRequest) (*draftSignal, error) {
	if errs := validation.Struct(ctx, &req); len(errs) > 0 {
		verr := &models.ValidationError{}
		for _, fe := range errs {
			verr.Add(fe.Field, fe.Code, fe.Message)
		}
		return nil, verr
	}

	symbol := models.NormalizeSymbol(req.Symbol)
	if symbol == "" {
		return nil, models.NewValidationError("symbol", "ERR_REQUIRED", "symbol is required")
	}
	side := models.Side(req.Side)
	sl, tp, err := models.DeriveRiskLevels(side, float64(req.EntryPrice), req.StopLoss.Ptr(), req.TakeProfit.Ptr())
	if err != nil {
		return nil, err
	}

	status := models.StatusActive
	if req.Status != "" {
		st, ok := models.ParseStatus(req.Status)
		if !ok {
			return nil, models.NewValidationError("status", "ERR_ONEOF", "status "+strconv.Quote(req.Status)+" is not supported")
		}
		status = st
	}

	return &draftSignal{
		Signal: models.Signal{
			Symbol:     symbol,
			Side:       side,
			EntryPrice: float64(req.EntryPrice),
			StopLoss:   sl,
			TakeProfit: tp,
			Source:     src,
			Reasons:    append([]string(nil), req.Reasons...),
			Status:     status,
			Timeframe:  req.Timeframe,
			Score:      int(req.Score),
			Indicator:  req.Indicator,
		},
		requested: req.Timestamp.Time,
	}, nil
}
