package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"SignalHub/internal/domain/models"
	"SignalHub/internal/service/stream"
	"SignalHub/internal/usecase"
	applogger "SignalHub/pkg/logger"
)

func main() {
	url := flag.String("url", "ws://localhost:8080/ws", "hub websocket url")
	level := flag.String("log-level", "warn", "log level")
	limit := flag.Int("limit", 20, "rows to print")
	flag.Parse()

	l, err := applogger.New(&applogger.Config{Level: *level, Format: "console", Output: "stderr"})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w := usecase.NewWatcher(
		stream.New(*url, 2*time.Second, 30*time.Second, l.Named("stream")),
		l,
		func(rows []models.LiveSignal, scan *models.ScanStatus) { render(rows, scan, *limit) },
	)
	if err := w.Run(ctx); err != nil {
		l.Error("watch failed", applogger.Error(err))
		os.Exit(1)
	}
}

func render(rows []models.LiveSignal, scan *models.ScanStatus, limit int) {
	var b strings.Builder
	b.WriteString("\033[H\033[2J")
	if scan != nil {
		parts := make([]string, 0, len(scan.Producers))
		for _, p := range scan.Producers {
			mark := ""
			if p.IsScanning {
				mark = "*"
			}
			parts = append(parts, fmt.Sprintf("%s%s %ds", p.ProducerID, mark, p.SecondsToNext))
		}
		fmt.Fprintf(&b, "next scans: %s\n\n", strings.Join(parts, "  "))
	}

	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tSOURCE\tSYMBOL\tSIDE\tENTRY\tPRICE\tPNL%")
	for i, r := range rows {
		if i == limit {
			break
		}
		price, pnl := "-", "-"
		if r.PriceAvailable {
			price = fmt.Sprintf("%.6g", r.CurrentPrice)
			pnl = fmt.Sprintf("%+.2f", r.PnLPercent)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.6g\t%s\t%s\n",
			r.EntryTime.Local().Format("15:04:05"), r.Source, r.Symbol, r.Side, r.EntryPrice, price, pnl)
	}
	_ = tw.Flush()
	fmt.Print(b.String())
}
