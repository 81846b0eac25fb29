package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"freya/api/httpserver"
	"freya/domain/orderbook"
	"freya/infra/kafka"
	"freya/infra/outbox"
	"freya/infra/sequence"
	"freya/infra/wal"
	"freya/jobs/broadcaster"
	"freya/service"
)

func main() {
	var (
		listenAddr    = flag.String("listen", ":8080", "HTTP listen address")
		walDir        = flag.String("wal-dir", "./wal", "journal directory")
		outboxDir     = flag.String("outbox-dir", "./outbox", "outbox store directory")
		brokers       = flag.String("brokers", "", "comma-separated Kafka brokers, empty disables publishing")
		eventTopic    = flag.String("event-topic", "order-events", "durable event topic")
		notifyTopic   = flag.String("notify-topic", "order-notify", "best-effort notification topic")
		drainInterval = flag.Duration("drain-interval", 2*time.Second, "outbox drain interval")
	)
	flag.Parse()

	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// ---------------- Journal ----------------

	journal, err := wal.Open(wal.Config{
		Dir:             *walDir,
		SegmentSize:     2 * 1024 * 1024,
		SegmentDuration: time.Minute,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("journal init failed")
	}
	defer journal.Close()

	// ---------------- Outbox ----------------

	ob, err := outbox.Open(*outboxDir)
	if err != nil {
		log.Fatal().Err(err).Msg("outbox init failed")
	}
	defer ob.Close()

	// ---------------- Sequencer ----------------

	seqGen := sequence.New(0)

	// ---------------- Domain ----------------

	book := orderbook.NewBook()
	query := orderbook.NewQuery(book, nil, nil)

	// ---------------- Journal replay ----------------

	if err := service.Replay(*walDir, book, seqGen, log); err != nil {
		log.Fatal().Err(err).Msg("journal replay failed")
	}

	// ---------------- Kafka ----------------

	var notifier service.Notifier
	brokerList := splitBrokers(*brokers)
	if len(brokerList) > 0 {
		producer := kafka.NewProducer(brokerList, *notifyTopic)
		defer producer.Close()
		notifier = producer

		bc, err := broadcaster.New(ob, brokerList, *eventTopic, *drainInterval, log)
		if err != nil {
			log.Fatal().Err(err).Msg("broadcaster init failed")
		}
		defer bc.Close()
		go bc.Run(ctx)
	} else {
		log.Warn().Msg("no brokers configured, events stay staged in the outbox")
	}

	// ---------------- Service ----------------

	svc := service.NewOrderService(book, query, seqGen, journal, ob, notifier, log)

	// ---------------- HTTP ----------------

	httpSrv := &http.Server{
		Addr:    *listenAddr,
		Handler: httpserver.NewServer(svc, log).Router(),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", *listenAddr).Msg("order book server running")
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("HTTP server exited")
	}
}

func splitBrokers(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
