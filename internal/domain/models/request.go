package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"SignalHub/pkg/util"
)

// FlexFloat decodes from a JSON number or a numeric string.
// Alert templates commonly send prices as strings.
type FlexFloat float64

func (f *FlexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*f = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
			return fmt.Errorf("not a finite number: %q", s)
		}
		*f = FlexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = FlexFloat(v)
	return nil
}

// Ptr returns nil for zero so optional levels fall back to their defaults.
func (f FlexFloat) Ptr() *float64 {
	if f == 0 {
		return nil
	}
	v := float64(f)
	return &v
}

// FlexTime decodes RFC3339 strings or unix seconds/milliseconds.
type FlexTime struct{ time.Time }

func (t *FlexTime) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	raw := string(b)
	if b[0] == '"' {
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
	}
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}
	if i := strings.IndexByte(raw, '.'); i > 0 && b[0] != '"' {
		raw = raw[:i]
	}
	parsed, ok := util.ParseTime(raw)
	if !ok {
		return fmt.Errorf("not a timestamp: %q", raw)
	}
	t.Time = parsed.UTC()
	return nil
}

// SignalRequest is the producer payload for a single signal.
type SignalRequest struct {
	Symbol     string    `json:"symbol" validate:"required"`
	Side       string    `json:"side" validate:"required,oneof=LONG SHORT"`
	EntryPrice FlexFloat `json:"entry_price" validate:"required,gt=0"`
	StopLoss   FlexFloat `json:"stop_loss" validate:"gte=0"`
	TakeProfit FlexFloat `json:"take_profit" validate:"gte=0"`
	Timeframe  string    `json:"timeframe" default:"15m"`
	Score      FlexFloat `json:"score" validate:"gte=0,lte=100"`
	Indicator  string    `json:"indicator" default:"GPS Pro"`
	Reasons    []string  `json:"reasons"`
	Message    string    `json:"message"`
	Status     string    `json:"status"`
	// Timestamp is honoured for full-state updates only; single webhooks are stamped on arrival.
	Timestamp FlexTime `json:"timestamp"`
}

// Normalize upper-cases identifiers and fills list defaults.
func (r *SignalRequest) Normalize() {
	r.Symbol = strings.TrimSpace(r.Symbol)
	r.Side = strings.ToUpper(strings.TrimSpace(r.Side))
	switch r.Side {
	case "BUY":
		r.Side = string(SideLong)
	case "SELL":
		r.Side = string(SideShort)
	}
	if len(r.Reasons) == 0 {
		if r.Message != "" {
			r.Reasons = util.SplitAndTrim(r.Message, ",")
		}
		if len(r.Reasons) == 0 {
			r.Reasons = []string{DefaultReason}
		}
	}
	if r.Score == 0 {
		r.Score = DefaultScore
	}
}

// StateUpdateRequest is a producer full-state push.
type StateUpdateRequest struct {
	Source  string          `json:"source" validate:"required"`
	Status  string          `json:"status"`
	Signals []SignalRequest `json:"signals"`
	Data    *struct {
		Signals []SignalRequest `json:"signals"`
	} `json:"data"`
}

// Entries returns signals from the top level or the nested data envelope.
func (r *StateUpdateRequest) Entries() []SignalRequest {
	if len(r.Signals) > 0 || r.Data == nil {
		return r.Signals
	}
	return r.Data.Signals
}

// SignalQuery filters GET /api/signals.
type SignalQuery struct {
	Limit    int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=1000"`
	Side     string `query:"side" json:"side" validate:"omitempty,oneof=LONG SHORT"`
	MinScore int    `query:"minScore" json:"minScore" validate:"gte=0,lte=100"`
	Source   string `query:"source" json:"source"`
}

func (q *SignalQuery) Normalize() {
	q.Side = strings.ToUpper(strings.TrimSpace(q.Side))
}
