// Package analytics is a worker thread behavior that keeps a bounded window
// of samples and answers with summary statistics.
package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/hastic-zzz/analytics/core/bucket"
	"github.com/hastic-zzz/analytics/core/thread"
	"github.com/hastic-zzz/analytics/internal/codec"
)

const (
	MethodData       = "DATA"
	MethodSetMaxSize = "SET_MAX_SIZE"
	MethodStats      = "STATS"

	// replies only
	MethodReady = "READY"
	MethodError = "ERROR"
)

type Request struct {
	Method  string          `json:"method"`
	Records []bucket.Record `json:"records,omitempty"`
	MaxSize *int            `json:"max_size,omitempty"`
}

type Stats struct {
	Size  int     `json:"size"`
	First int64   `json:"first,omitempty"`
	Last  int64   `json:"last,omitempty"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Mean  float64 `json:"mean"`
}

type Reply struct {
	Method string `json:"method"`
	Stats  *Stats `json:"stats,omitempty"`
	Error  string `json:"error,omitempty"`
}

type Options struct {
	// MaxSize bounds the window. 0 keeps every sample.
	MaxSize int
	Codec   codec.Codec
	Logger  *slog.Logger
}

// Worker owns its bucket. Handlers read and update it without suspending in
// between, so the loop serializes them.
type Worker struct {
	bucket *bucket.Bucket
	codec  codec.Codec
	log    *slog.Logger
}

func NewWorker(opts Options) (*Worker, error) {
	if opts.Codec == nil {
		opts.Codec = codec.JSONCodec{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	b := bucket.New()
	if opts.MaxSize != 0 {
		if err := b.SetMaxSize(opts.MaxSize); err != nil {
			return nil, err
		}
	}
	return &Worker{bucket: b, codec: opts.Codec, log: opts.Logger}, nil
}

// RunThread announces readiness and idles until the thread stops.
func (w *Worker) RunThread(tc thread.Ctx) error {
	if err := w.reply(tc, Reply{Method: MethodReady}); err != nil {
		return err
	}
	return tc.Await(func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})
}

func (w *Worker) OnMessageToThread(tc thread.Ctx, message string) error {
	req, err := codec.Decode[Request](w.codec, message)
	if err != nil {
		tc.Log().Warn("undecodable request", slog.Any("error", err))
		return w.reply(tc, Reply{Method: MethodError, Error: fmt.Sprintf("decode: %v", err)})
	}

	switch req.Method {
	case MethodData:
		w.bucket.Append(req.Records...)
		tc.Log().Debug("data appended",
			slog.Int("records", len(req.Records)),
			slog.Int("size", w.bucket.Size()),
		)
	case MethodSetMaxSize:
		if req.MaxSize == nil {
			w.bucket.ClearMaxSize()
		} else if err := w.bucket.SetMaxSize(*req.MaxSize); err != nil {
			return w.reply(tc, Reply{Method: MethodError, Error: err.Error()})
		}
	case MethodStats:
	default:
		return w.reply(tc, Reply{Method: MethodError, Error: fmt.Sprintf("unknown method %q", req.Method)})
	}

	return w.reply(tc, Reply{Method: req.Method, Stats: summarize(w.bucket.Records())})
}

func (w *Worker) reply(tc thread.Ctx, r Reply) error {
	msg, err := codec.Encode(w.codec, r)
	if err != nil {
		return fmt.Errorf("encode reply: %w", err)
	}
	return tc.SendMessageFromThread(msg)
}

func summarize(records []bucket.Record) *Stats {
	s := &Stats{Size: len(records)}
	if len(records) == 0 {
		return s
	}
	s.First = records[0].Timestamp
	s.Last = records[len(records)-1].Timestamp
	s.Min, s.Max = math.Inf(1), math.Inf(-1)
	sum := 0.0
	for _, r := range records {
		s.Min = min(s.Min, r.Value)
		s.Max = max(s.Max, r.Value)
		sum += r.Value
	}
	s.Mean = sum / float64(len(records))
	return s
}

var _ thread.Behavior = (*Worker)(nil)
