// cmd/backtest runs an SMA crossover strategy over stored candles and
// scores the resulting trades with the configured criteria.
//
// Usage:
//
//	go run ./cmd/backtest --db=data/candles.db --exchange=NSE --token=99926000 --tf=60 --fast=9 --slow=21
//	go run ./cmd/backtest --parquet=data/NIFTY.parquet --config=analysis.yaml --json
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"trading-analytics/config"
	"trading-analytics/internal/indicator"
	"trading-analytics/internal/logger"
	"trading-analytics/internal/markethours"
	"trading-analytics/internal/metrics"
	"trading-analytics/internal/model"
	"trading-analytics/internal/notification"
	"trading-analytics/internal/num"
	"trading-analytics/internal/report"
	"trading-analytics/internal/series"
	"trading-analytics/internal/store/parquet"
	redisstore "trading-analytics/internal/store/redis"
	sqlitestore "trading-analytics/internal/store/sqlite"
	"trading-analytics/internal/strategy"
	"trading-analytics/internal/trading"
)

var errNoBars = errors.New("no bars loaded")

type options struct {
	configPath  string
	dbPath      string
	parquetPath string
	exchange    string
	token       string
	tf          int
	fast, slow  int
	rsi         int
	feeRate     float64
	redisAddr   string
	webhookURL  string
	metricsAddr string
	save        bool
	asJSON      bool
	indicators  string
	session     bool
	resample    int
}

func main() {
	var o options
	flag.StringVar(&o.configPath, "config", "", "YAML config file (env vars override it)")
	flag.StringVar(&o.dbPath, "db", "", "SQLite database with candles_tf (default from config)")
	flag.StringVar(&o.parquetPath, "parquet", "", "Parquet bar file; takes precedence over --db")
	flag.StringVar(&o.exchange, "exchange", "NSE", "Exchange of the instrument in candles_tf")
	flag.StringVar(&o.token, "token", "99926000", "Instrument token in candles_tf")
	flag.IntVar(&o.tf, "tf", 60, "Timeframe in seconds")
	flag.IntVar(&o.fast, "fast", 9, "Fast SMA period")
	flag.IntVar(&o.slow, "slow", 21, "Slow SMA period")
	flag.IntVar(&o.rsi, "rsi", 0, "RSI filter period (0 disables the filter)")
	flag.Float64Var(&o.feeRate, "fee", 0, "Proportional transaction cost per trade, e.g. 0.0003")
	flag.StringVar(&o.redisAddr, "redis", "", "Publish the report to this Redis address")
	flag.StringVar(&o.webhookURL, "webhook", "", "POST the report as JSON to this URL")
	flag.StringVar(&o.metricsAddr, "metrics-addr", "", "Serve /metrics and /healthz here until interrupted")
	flag.BoolVar(&o.save, "save", false, "Store the report in the SQLite database")
	flag.BoolVar(&o.asJSON, "json", false, "Print the report as JSON")
	flag.StringVar(&o.indicators, "indicators", "", "Also print last values of TYPE:PERIOD,... indicators")
	flag.BoolVar(&o.session, "session", false, "Keep only bars inside NSE trading hours")
	flag.IntVar(&o.resample, "resample", 0, "Merge bars into this timeframe in seconds, aligned to the NSE open")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, o, os.Stdout); err != nil {
		slog.Error("backtest failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, o options, out io.Writer) error {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	if o.dbPath != "" {
		cfg.SQLitePath = o.dbPath
	}
	if o.parquetPath != "" {
		cfg.ParquetPath = o.parquetPath
	}
	if o.redisAddr != "" {
		cfg.RedisAddr = o.redisAddr
	}
	if o.webhookURL != "" {
		cfg.WebhookURL = o.webhookURL
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log := logger.Init("backtest", cfg.Level())
	runID := logger.NewRunID()
	ctx = logger.WithRunID(ctx, runID)
	log = log.With(logger.LogWithRun(ctx)...)

	f, _ := cfg.Factory()
	settings, _ := cfg.Settings()

	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	health := metrics.NewHealthStatus()
	if o.metricsAddr != "" {
		srv := metrics.NewServer(o.metricsAddr, reg, health)
		srv.Start()
		defer func() {
			stopCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
			defer stop()
			srv.Stop(stopCtx)
		}()
	}

	// ── Bars ──
	s, source, err := loadSeries(ctx, cfg, o, f)
	if err != nil {
		return err
	}
	if o.session {
		var dropped int
		s, dropped, err = markethours.NSE().Filter(s)
		if err != nil {
			return err
		}
		log.Info("session filter", "session", "NSE", "dropped", dropped)
	}
	if o.resample > 0 {
		if s, err = resampleSeries(s, o, f); err != nil {
			return err
		}
		log.Info("resampled", "series", s.Name(), "bars", s.BarCount())
	}
	if s.IsEmpty() {
		return fmt.Errorf("%w for %s", errNoBars, s.Name())
	}
	m.BarsLoaded.WithLabelValues(source).Add(float64(s.BarCount()))
	log.Info("series loaded", "series", s.Name(), "source", source, "bars", s.BarCount())

	// ── Strategy ──
	var strat *strategy.Strategy
	if o.rsi > 0 {
		strat, err = strategy.NewSMACrossoverRSI(s, o.fast, o.slow, o.rsi)
	} else {
		strat, err = strategy.NewSMACrossover(s, o.fast, o.slow)
	}
	if err != nil {
		return err
	}
	runner := &strategy.Runner{Logger: log}
	if o.feeRate > 0 {
		fee, err := trading.NewLinearTransactionCost(o.feeRate, 0)
		if err != nil {
			return err
		}
		runner.TxCost = fee
	}
	signals := make(chan strategy.Signal, 1024)
	runner.Signals = signals

	record, err := runner.Run(ctx, s, strat)
	if err != nil {
		return err
	}
	close(signals)
	var buys, sells int
	for sig := range signals {
		if sig.Action == strategy.ActionBuy {
			buys++
		} else {
			sells++
		}
	}
	m.IndicatorFills.Add(float64(indicator.TotalFills(strat.Indicators...)))
	log.Info("signals", "buy", buys, "sell", sells)

	// ── Criteria ──
	evaluator, err := report.NewRunner(cfg.Analysis.Criteria, settings, m, log)
	if err != nil {
		return err
	}
	rep, err := evaluator.Evaluate(ctx, s, record)
	if err != nil {
		return err
	}
	health.RecordRun(rep.RunID, rep.CreatedAt)

	// ── Sinks ──
	sinks, journal, closeSinks, err := openSinks(ctx, cfg, o, health)
	if err != nil {
		return err
	}
	defer closeSinks()
	if err := report.Deliver(ctx, rep, m, sinks...); err != nil {
		log.Warn("report delivery incomplete", "error", err)
	}
	if journal != nil {
		start := time.Now()
		err := journal.SaveTrades(ctx, rep.RunID, strat.Name, s, record)
		m.ObserveStore("sqlite_trades", start, err)
		if err != nil {
			log.Warn("trade journal failed", "error", err)
		}
	}

	// ── Output ──
	if o.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			return err
		}
	} else if err := rep.WriteTable(out); err != nil {
		return err
	}
	if o.indicators != "" {
		if err := printIndicators(out, s, parseIndicatorSpecs(o.indicators)); err != nil {
			return err
		}
	}

	if o.metricsAddr != "" {
		log.Info("serving metrics until interrupted", "addr", o.metricsAddr)
		<-ctx.Done()
	}
	return nil
}

func loadSeries(ctx context.Context, cfg *config.Config, o options, f num.Factory) (*series.BarSeries, string, error) {
	name := model.SeriesName(o.exchange, o.token, o.tf)
	if cfg.ParquetPath != "" {
		s, err := parquet.ReadSeries(cfg.ParquetPath, name, f, time.Duration(o.tf)*time.Second)
		return s, "parquet", err
	}
	reader, err := sqlitestore.NewReader(cfg.SQLitePath)
	if err != nil {
		return nil, "", err
	}
	defer reader.Close()
	s, err := reader.LoadSeries(ctx, f, o.exchange, o.token, o.tf)
	return s, "sqlite", err
}

// resampleSeries merges s into o.resample-second bars through the paise
// candle form used by the stores.
func resampleSeries(s *series.BarSeries, o options, f num.Factory) (*series.BarSeries, error) {
	candles := make([]model.TFCandle, 0, s.BarCount())
	for i := 0; i < s.BarCount(); i++ {
		candles = append(candles, model.FromBar(o.exchange, o.token, s.Bar(i)))
	}
	merged, err := model.Resample(candles, o.resample, markethours.NSE().OpenUTC())
	if err != nil {
		return nil, err
	}
	return model.ToSeries(model.SeriesName(o.exchange, o.token, o.resample), f, merged)
}

// openSinks returns the configured report sinks, the trade journal when
// saving, and a func closing them.
func openSinks(ctx context.Context, cfg *config.Config, o options, health *metrics.HealthStatus) ([]report.Sink, *sqlitestore.Writer, func(), error) {
	var (
		sinks   []report.Sink
		journal *sqlitestore.Writer
		closers []func() error
	)
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	if o.save {
		w, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: cfg.SQLitePath})
		if err != nil {
			return nil, nil, closeAll, err
		}
		health.CheckSQLite(ctx, w.DB())
		sinks = append(sinks, w)
		journal = w
		closers = append(closers, w.Close)
	} else {
		health.SetSQLiteOK(true)
	}

	if o.redisAddr != "" {
		client, err := redisstore.NewClient(ctx, redisstore.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			closeAll()
			return nil, nil, func() {}, err
		}
		health.CheckRedis(ctx, client)
		pub := redisstore.NewPublisher(client, redisstore.Config{TTL: cfg.ReportTTL})
		cb := redisstore.NewCircuitBreaker(3, 10*time.Second)
		sinks = append(sinks, redisstore.NewBufferedPublisher(pub, cb, 0))
		closers = append(closers, pub.Close)
	} else {
		health.SetRedisConnected(true)
	}

	if cfg.WebhookURL != "" {
		sinks = append(sinks, notification.NewWebhookNotifier(cfg.WebhookURL))
	}
	if cfg.TelegramToken != "" {
		sinks = append(sinks, notification.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID))
	}
	return sinks, journal, closeAll, nil
}

func parseIndicatorSpecs(s string) []indicator.Config {
	var configs []indicator.Config
	for _, part := range strings.Split(s, ",") {
		tokens := strings.SplitN(strings.TrimSpace(part), ":", 2)
		if len(tokens) != 2 {
			continue
		}
		period, err := strconv.Atoi(strings.TrimSpace(tokens[1]))
		if err != nil || period <= 0 {
			continue
		}
		configs = append(configs, indicator.Config{
			Type:   strings.ToUpper(strings.TrimSpace(tokens[0])),
			Period: period,
		})
	}
	return configs
}

func printIndicators(out io.Writer, s *series.BarSeries, cfgs []indicator.Config) error {
	if s.IsEmpty() || len(cfgs) == 0 {
		return nil
	}
	inds, err := indicator.BuildAll(s, cfgs)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(inds))
	for name := range inds {
		names = append(names, name)
	}
	sort.Strings(names)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\nINDICATOR\tLAST")
	for _, name := range names {
		v := inds[name].Value(s.EndIndex())
		text := "NaN"
		if !num.IsNaN(v) {
			text = v.String()
		}
		fmt.Fprintf(tw, "%s\t%s\n", name, text)
	}
	return tw.Flush()
}
