// Command actordemo runs a few ping actors and one analytics actor side by
// side and prints what comes back from them.
//
// Settings come from the environment, then from $ACTORDEMO_CONFIG (JSON or
// YAML, default actordemo.yaml), then from the defaults below:
//
//	HS_AL_LOGGING_LEVEL  DEBUG|INFO|WARNING|ERROR|CRITICAL (INFO)
//	PING_ACTORS          number of ping actors (4)
//	PINGS                pings each actor sends (5)
//	PING_INTERVAL        pause between pings (100ms)
//	ANALYTIC_UNITS       analytics workers, one per unit (2)
//	BUCKET_SIZE          analytics window size (100)
//	SAMPLES              samples fed to the analytics actor (1000)
//	METRICS_ADDR         serve /metrics here, e.g. :2121 (off)
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	promadapter "github.com/hastic-zzz/analytics/adapters/prometheus"
	"github.com/hastic-zzz/analytics/core/actor"
	"github.com/hastic-zzz/analytics/core/bucket"
	"github.com/hastic-zzz/analytics/core/config"
	"github.com/hastic-zzz/analytics/core/registry"
	"github.com/hastic-zzz/analytics/core/thread"
	"github.com/hastic-zzz/analytics/internal/analytics"
	"github.com/hastic-zzz/analytics/internal/codec"
)

type settings struct {
	logLevel     slog.Level
	pingActors   int
	pings        int
	pingInterval time.Duration
	units        int
	bucketSize   int
	samples      int
	metricsAddr  string
}

func loadSettings(log *slog.Logger) (s settings, err error) {
	path, ok := os.LookupEnv("ACTORDEMO_CONFIG")
	if !ok {
		path = "actordemo.yaml"
	}
	l, err := config.NewLoader(config.LoaderOptions{Path: path, Logger: log})
	if err != nil {
		return s, err
	}

	if s.logLevel, err = l.LogLevel("HS_AL_LOGGING_LEVEL", config.WithDefault("INFO")); err != nil {
		return s, err
	}
	if s.pingActors, err = l.Int("PING_ACTORS", config.WithDefault(4)); err != nil {
		return s, err
	}
	if s.pings, err = l.Int("PINGS", config.WithDefault(5)); err != nil {
		return s, err
	}
	if s.pingInterval, err = l.Duration("PING_INTERVAL", config.WithDefault("100ms")); err != nil {
		return s, err
	}
	if s.units, err = l.Int("ANALYTIC_UNITS", config.WithDefault(2)); err != nil {
		return s, err
	}
	if s.bucketSize, err = l.Int("BUCKET_SIZE", config.WithDefault(100)); err != nil {
		return s, err
	}
	if s.samples, err = l.Int("SAMPLES", config.WithDefault(1000)); err != nil {
		return s, err
	}
	if s.metricsAddr, err = l.String("METRICS_ADDR", config.WithDefault("")); err != nil {
		return s, err
	}
	return s, nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	level := new(slog.LevelVar)
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	s, err := loadSettings(log)
	if err != nil {
		log.Error("bad settings", slog.Any("error", err))
		os.Exit(2)
	}
	level.Set(s.logLevel)

	if err := run(ctx, log, s); err != nil {
		log.Error("demo failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger, s settings) error {
	reg := prometheus.NewRegistry()
	metrics := promadapter.NewThreadMetrics(reg)

	if s.metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: s.metricsAddr, Handler: mux}
		go func() {
			log.Info("metrics server starting", slog.String("addr", s.metricsAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server error", slog.Any("error", err))
			}
		}()
		defer srv.Shutdown(context.Background())
	}

	units, err := registry.New(registry.Options{
		Logger: log,
		Factory: func(unit string) (*actor.Actor, error) {
			w, err := analytics.NewWorker(analytics.Options{MaxSize: s.bucketSize, Logger: log})
			if err != nil {
				return nil, err
			}
			return actor.Spawn(w,
				actor.WithName("analytics-"+unit),
				actor.WithCompletionMode(false),
				actor.WithLogger(log),
				actor.WithMetrics(metrics),
			)
		},
	})
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := units.Close(sctx); err != nil {
			log.Warn("closing analytic units", slog.Any("error", err))
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	for i := range s.pingActors {
		name := fmt.Sprintf("ping-%d", i)
		g.Go(func() error {
			return runPing(gctx, log, metrics, name, s)
		})
	}
	for i := range s.units {
		g.Go(func() error {
			return runAnalytics(gctx, units, i, s)
		})
	}
	return g.Wait()
}

// pinger sends n pings from its own loop and echoes whatever it is told.
func pinger(n int, interval time.Duration) thread.Behavior {
	return thread.Funcs{
		Run: func(tc thread.Ctx) error {
			for i := 1; i <= n; i++ {
				if err := tc.Sleep(interval); err != nil {
					return err
				}
				if err := tc.SendMessageFromThread(fmt.Sprintf("%s: ping %d", tc.ThreadName(), i)); err != nil {
					return err
				}
			}
			return nil
		},
		OnMessage: func(tc thread.Ctx, msg string) error {
			return tc.SendMessageFromThread(tc.ThreadName() + ": echo " + msg)
		},
	}
}

func runPing(ctx context.Context, log *slog.Logger, m thread.Metrics, name string, s settings) error {
	a, err := actor.Spawn(pinger(s.pings, s.pingInterval),
		actor.WithName(name),
		actor.WithLogger(log),
		actor.WithMetrics(m),
	)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.PutMessageToThread(ctx, "hello"); err != nil {
		return err
	}

	start := time.Now()
	for {
		msg, err := a.RecvMessageFromThread(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		if err != nil {
			// the thread completed after its last ping
			break
		}
		fmt.Printf("%-8s %6dms  %s\n", name, time.Since(start).Milliseconds(), msg)
	}

	<-a.Done()
	return a.Err()
}

// runAnalytics feeds one unit a sine wave in batches and prints the stats of
// its window after each batch.
func runAnalytics(ctx context.Context, units *registry.Registry, n int, s settings) error {
	unit := fmt.Sprintf("unit-%d", n)
	a, err := units.Get(unit)
	if err != nil {
		return err
	}

	c := codec.JSONCodec{}
	if _, err := expect(ctx, a, c, analytics.MethodReady); err != nil {
		return err
	}

	const batch = 100
	now := time.Now().UnixMilli()
	phase := float64(n)
	for sent := 0; sent < s.samples; sent += batch {
		records := make([]bucket.Record, 0, batch)
		for i := sent; i < min(sent+batch, s.samples); i++ {
			records = append(records, bucket.Record{
				Timestamp: now + int64(i)*1000,
				Value:     math.Sin(float64(i)/10 + phase),
			})
		}
		msg, err := codec.Encode(c, analytics.Request{Method: analytics.MethodData, Records: records})
		if err != nil {
			return err
		}
		if err := units.Put(ctx, unit, msg); err != nil {
			return err
		}
		r, err := expect(ctx, a, c, analytics.MethodData)
		if err != nil {
			return err
		}
		fmt.Printf("%-8s size=%d min=%.3f max=%.3f mean=%.3f\n",
			unit, r.Stats.Size, r.Stats.Min, r.Stats.Max, r.Stats.Mean)
	}
	return nil
}

func expect(ctx context.Context, a *actor.Actor, c codec.Codec, method string) (analytics.Reply, error) {
	msg, err := a.RecvMessageFromThread(ctx)
	if err != nil {
		return analytics.Reply{}, err
	}
	r, err := codec.Decode[analytics.Reply](c, msg)
	if err != nil {
		return r, err
	}
	switch r.Method {
	case method:
		return r, nil
	case analytics.MethodError:
		return r, fmt.Errorf("analytics: %s", r.Error)
	default:
		return r, fmt.Errorf("analytics: expected %s, got %s", method, r.Method)
	}
}
