package models

import "time"

// ScanWindow describes a producer's scan cadence.
type ScanWindow struct {
	ProducerID      string `json:"producer_id"`
	IntervalMinutes int    `json:"interval_minutes"`
}

// ProducerScan is the oracle answer for one producer.
type ProducerScan struct {
	ProducerID      string    `json:"producer_id"`
	IntervalMinutes int       `json:"interval_minutes"`
	LastScan        time.Time `json:"last_scan"`
	NextScan        time.Time `json:"next_scan"`
	IsScanning      bool      `json:"is_scanning"`
	SecondsToNext   int64     `json:"seconds_to_next"`
}

// ScanStatus is the oracle answer for all producers.
type ScanStatus struct {
	Producers  []ProducerScan `json:"producers"`
	ServerTime time.Time      `json:"server_time"`
}

// LiveSignal is a signal joined with the current market price.
type LiveSignal struct {
	Signal
	CurrentPrice   float64 `json:"current_price,omitempty"`
	PnLPercent     float64 `json:"pnl_percent"`
	PriceAvailable bool    `json:"price_available"`
}
