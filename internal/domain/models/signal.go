package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// Sign is +1 for LONG and -1 for SHORT.
func (s Side) Sign() float64 {
	if s == SideShort {
		return -1
	}
	return 1
}

func (s Side) Valid() bool { return s == SideLong || s == SideShort }

type Status string

const (
	StatusActive   Status = "active"
	StatusClosed   Status = "closed"
	StatusExpired  Status = "expired"
	StatusScanning Status = "scanning"
	StatusWaiting  Status = "waiting"
)

// ParseStatus maps a producer supplied status onto a known value, case-insensitive.
func ParseStatus(s string) (Status, bool) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusActive, StatusClosed, StatusExpired, StatusScanning, StatusWaiting:
		return st, true
	}
	return "", false
}

type Source string

const (
	SourceTradingView  Source = "tradingview"
	SourceShortHunter  Source = "short_hunter"
	SourceBountySeeker Source = "bounty_seeker"
	SourceSniperGuru   Source = "sniper_guru"
	SourceManual       Source = "manual"
)

// Sources lists every accepted producer in display order.
var Sources = []Source{SourceTradingView, SourceShortHunter, SourceBountySeeker, SourceSniperGuru, SourceManual}

// ParseSource accepts the snake_case id as well as hyphenated or camelCase spellings.
func ParseSource(s string) (Source, error) {
	key := strings.ToLower(strings.NewReplacer("-", "", "_", "", " ", "").Replace(s))
	for _, src := range Sources {
		if strings.ReplaceAll(string(src), "_", "") == key {
			return src, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSource, s)
}

// Defaults applied to fields a producer leaves out.
const (
	DefaultTimeframe = "15m"
	DefaultScore     = 70
	DefaultIndicator = "GPS Pro"
	DefaultReason    = "TradingView Alert"

	DefaultStopPct   = 0.02
	DefaultTargetPct = 0.04
)

// Signal is an immutable trade recommendation.
type Signal struct {
	ID         string    `json:"id"`
	Seq        uint64    `json:"seq"`
	Symbol     string    `json:"symbol"`
	Side       Side      `json:"side"`
	EntryPrice float64   `json:"entry_price"`
	StopLoss   float64   `json:"stop_loss"`
	TakeProfit float64   `json:"take_profit"`
	EntryTime  time.Time `json:"entry_time"`
	Source     Source    `json:"source"`
	Reasons    []string  `json:"reasons"`
	Status     Status    `json:"status"`
	Timeframe  string    `json:"timeframe"`
	Score      int       `json:"score"`
	Indicator  string    `json:"indicator"`
}

// Key is the reconciliation identity of a signal.
type Key struct {
	Source    Source
	Symbol    string
	EntryTime int64
}

func (s *Signal) Key() Key {
	return Key{Source: s.Source, Symbol: NormalizeSymbol(s.Symbol), EntryTime: s.EntryTime.UnixNano()}
}

// SignalID derives a name-based UUID from the signal identity and its ingestion sequence.
func SignalID(source Source, symbol string, entry time.Time, seq uint64) string {
	name := string(source) + "|" + symbol + "|" + strconv.FormatInt(entry.UnixNano(), 10) + "|" + strconv.FormatUint(seq, 10)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}

// DeriveRiskLevels returns the stop and target for a signal. Missing levels are derived
// from the entry price; supplied levels must sit on the correct side of the entry.
func DeriveRiskLevels(side Side, entry float64, stop, target *float64) (float64, float64, error) {
	if !side.Valid() {
		return 0, 0, NewValidationError("side", "ERR_ONEOF", "side must be one of: LONG, SHORT")
	}
	if !finite(entry) {
		return 0, 0, NewValidationError("entry_price", "ERR_FINITE", "entry_price must be a finite number")
	}
	if entry <= 0 {
		return 0, 0, NewValidationError("entry_price", "ERR_GT", "entry_price must be greater than 0")
	}

	var sl, tp float64
	if side == SideLong {
		sl, tp = entry*(1-DefaultStopPct), entry*(1+DefaultTargetPct)
	} else {
		sl, tp = entry*(1+DefaultStopPct), entry*(1-DefaultTargetPct)
	}

	verr := &ValidationError{}
	if stop != nil && !finite(*stop) {
		verr.Add("stop_loss", "ERR_FINITE", "stop_loss must be a finite number")
		stop = nil
	}
	if target != nil && !finite(*target) {
		verr.Add("take_profit", "ERR_FINITE", "take_profit must be a finite number")
		target = nil
	}
	if stop != nil && *stop > 0 {
		sl = *stop
		if side == SideLong && sl >= entry {
			verr.Add("stop_loss", "ERR_RISK_ORDER", "stop_loss must be below entry_price for LONG")
		}
		if side == SideShort && sl <= entry {
			verr.Add("stop_loss", "ERR_RISK_ORDER", "stop_loss must be above entry_price for SHORT")
		}
	}
	if target != nil && *target > 0 {
		tp = *target
		if side == SideLong && tp <= entry {
			verr.Add("take_profit", "ERR_RISK_ORDER", "take_profit must be above entry_price for LONG")
		}
		if side == SideShort && tp >= entry {
			verr.Add("take_profit", "ERR_RISK_ORDER", "take_profit must be below entry_price for SHORT")
		}
	}
	if !finite(sl) || !finite(tp) {
		verr.Add("entry_price", "ERR_FINITE", "entry_price is too large to derive risk levels")
	}
	if verr.HasViolations() {
		return 0, 0, verr
	}
	return sl, tp, nil
}

func finite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}
