// Package config resolves named settings from the environment, an optional
// JSON or YAML file and per-field defaults, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type LoaderOptions struct {
	// Path of an optional settings file. A missing file is not an error.
	// YAML and JSON are both accepted.
	Path string

	// LookupEnv defaults to os.LookupEnv.
	LookupEnv func(key string) (string, bool)

	Logger *slog.Logger
}

// Loader resolves fields. It reads the file once, on creation.
type Loader struct {
	lookupEnv func(string) (string, bool)
	file      map[string]string
	log       *slog.Logger
}

func NewLoader(opts LoaderOptions) (*Loader, error) {
	if opts.LookupEnv == nil {
		opts.LookupEnv = os.LookupEnv
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	l := &Loader{
		lookupEnv: opts.LookupEnv,
		file:      map[string]string{},
		log:       opts.Logger.With(slog.String("component", "config")),
	}
	if opts.Path == "" {
		return l, nil
	}

	data, err := os.ReadFile(opts.Path)
	if errors.Is(err, fs.ErrNotExist) {
		l.log.Info("config file does not exist, using environment variables and defaults",
			slog.String("path", opts.Path))
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// JSON documents are valid YAML
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", opts.Path, err)
	}
	for k, v := range raw {
		switch v := v.(type) {
		case nil:
		case map[string]any, []any:
			l.log.Warn("ignoring nested config value", slog.String("field", k))
		default:
			l.file[k] = fmt.Sprint(v)
		}
	}
	l.log.Debug("config file loaded", slog.String("path", opts.Path), slog.Int("fields", len(l.file)))
	return l, nil
}

type field struct {
	def             *string
	allowed         []string
	caseInsensitive bool
}

type FieldOption func(*field)

// WithDefault is used when neither the environment nor the file set the field.
func WithDefault(v any) FieldOption {
	s := fmt.Sprint(v)
	return func(f *field) { f.def = &s }
}

// WithAllowed restricts the resolved value to values.
func WithAllowed(values ...string) FieldOption {
	return func(f *field) { f.allowed = values }
}

// WithCaseInsensitive compares against the allowed set ignoring case and
// returns the value upper-cased.
func WithCaseInsensitive() FieldOption {
	return func(f *field) { f.caseInsensitive = true }
}

// String resolves name: the environment variable wins, then a non-empty file
// value, then the default.
func (l *Loader) String(name string, opts ...FieldOption) (string, error) {
	var f field
	for _, opt := range opts {
		opt(&f)
	}

	value, source, ok := l.lookup(name, f)
	if ok && f.caseInsensitive {
		value = strings.ToUpper(value)
	}

	if len(f.allowed) > 0 {
		allowed := f.allowed
		if f.caseInsensitive {
			allowed = upper(allowed)
		}
		if !ok || !slices.Contains(allowed, value) {
			return "", fmt.Errorf("%w: %s must be one of %v, got %q", ErrNotAllowed, name, f.allowed, value)
		}
	}
	if !ok {
		return "", fmt.Errorf("%w: please configure %s", ErrUnresolved, name)
	}

	l.log.Debug("config field resolved", slog.String("field", name), slog.String("source", source))
	return value, nil
}

func (l *Loader) Int(name string, opts ...FieldOption) (int, error) {
	s, err := l.String(name, opts...)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrInvalid, name, err)
	}
	return n, nil
}

func (l *Loader) Bool(name string, opts ...FieldOption) (bool, error) {
	s, err := l.String(name, opts...)
	if err != nil {
		return false, err
	}
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	if err != nil {
		return false, fmt.Errorf("%w: %s: %w", ErrInvalid, name, err)
	}
	return b, nil
}

// Duration accepts Go duration strings ("90s", "2m") or a bare number of
// seconds.
func (l *Loader) Duration(name string, opts ...FieldOption) (time.Duration, error) {
	s, err := l.String(name, opts...)
	if err != nil {
		return 0, err
	}
	s = strings.TrimSpace(s)
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrInvalid, name, err)
	}
	return d, nil
}

// LevelCritical sits above slog.LevelError.
const LevelCritical = slog.Level(12)

var levels = map[string]slog.Level{
	"DEBUG":    slog.LevelDebug,
	"INFO":     slog.LevelInfo,
	"WARNING":  slog.LevelWarn,
	"ERROR":    slog.LevelError,
	"CRITICAL": LevelCritical,
}

// LogLevel resolves one of DEBUG, INFO, WARNING, ERROR or CRITICAL, in any
// case.
func (l *Loader) LogLevel(name string, opts ...FieldOption) (slog.Level, error) {
	opts = append(opts,
		WithAllowed("DEBUG", "INFO", "WARNING", "ERROR", "CRITICAL"),
		WithCaseInsensitive(),
	)
	s, err := l.String(name, opts...)
	if err != nil {
		return 0, err
	}
	return levels[s], nil
}

func (l *Loader) lookup(name string, f field) (value, source string, ok bool) {
	if v, ok := l.lookupEnv(name); ok {
		return v, "env", true
	}
	if v, ok := l.file[name]; ok && v != "" {
		return v, "file", true
	}
	if f.def != nil {
		return *f.def, "default", true
	}
	return "", "", false
}

func upper(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToUpper(s)
	}
	return out
}
