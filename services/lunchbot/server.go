package lunchbot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"lunchbot/lib/serviceutil"
	"lunchbot/lib/timezone"

	"github.com/robfig/cron/v3"
)

var ErrRunInProgress = errors.New("a run is already in progress")

// LogBuffer keeps the last lines written to it, it is meant as the writer
// of a slog handler.
type LogBuffer struct {
	mutex sync.Mutex
	lines []string
	next  int
	full  bool
}

func NewLogBuffer(size int) *LogBuffer {
	if size <= 0 {
		size = 500
	}
	return &LogBuffer{lines: make([]string, size)}
}

func (b *LogBuffer) Write(p []byte) (int, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		b.lines[b.next] = line
		b.next = (b.next + 1) % len(b.lines)
		if b.next == 0 {
			b.full = true
		}
	}
	return len(p), nil
}

// Lines returns the buffered lines, oldest first.
func (b *LogBuffer) Lines() []string {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if !b.full {
		return append([]string(nil), b.lines[:b.next]...)
	}
	out := make([]string, 0, len(b.lines))
	out = append(out, b.lines[b.next:]...)
	out = append(out, b.lines[:b.next]...)
	return out
}

// teeHandler sends every record to all handlers that are enabled for it.
type teeHandler []slog.Handler

func NewTeeHandler(handlers ...slog.Handler) slog.Handler {
	return teeHandler(handlers)
}

func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, h := range t {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		errs = append(errs, h.Handle(ctx, record.Clone()))
	}
	return errors.Join(errs...)
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	out := make(teeHandler, len(t))
	for i, h := range t {
		out[i] = h.WithGroup(name)
	}
	return out
}

type Runner interface {
	Run(ctx context.Context, now time.Time) (RunResult, error)
}

// Server runs the pipeline on a cron schedule and on demand, never more
// than one run at a time.
type Server struct {
	runner Runner
	logs   *LogBuffer
	cron   *cron.Cron
	now    func() time.Time

	running sync.Mutex
}

func NewServer(runner Runner, logs *LogBuffer) *Server {
	return &Server{
		runner: runner,
		logs:   logs,
		cron: cron.New(
			cron.WithLogger(cronLogger{}),
			cron.WithLocation(timezone.Location),
		),
		now: timezone.Now,
	}
}

// Trigger starts a run unless one is in progress.
func (s *Server) Trigger(ctx context.Context) (RunResult, error) {
	if !s.running.TryLock() {
		return RunResult{}, ErrRunInProgress
	}
	defer s.running.Unlock()

	slog.InfoContext(ctx, "starting run")
	result, err := s.runner.Run(ctx, s.now())
	if err != nil {
		slog.ErrorContext(ctx, "run failed", "err", err)
		return result, err
	}
	slog.InfoContext(ctx, "run finished", "dishes", len(result.Dishes))
	return result, nil
}

func (s *Server) Schedule(ctx context.Context, spec string) error {
	_, err := s.cron.AddFunc(spec, func() {
		_, err := s.Trigger(ctx)
		if errors.Is(err, ErrRunInProgress) {
			slog.Warn("skipping scheduled run", "err", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %q: %w", spec, err)
	}
	return nil
}

type runResponse struct {
	Day    string   `json:"day"`
	Dishes []string `json:"dishes"`
	Error  string   `json:"error,omitempty"`
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	result, err := s.Trigger(r.Context())

	res := runResponse{Dishes: []string{}}
	if !result.Day.IsZero() {
		res.Day = result.Day.Format(dayLayout)
	}
	for _, dish := range result.Dishes {
		res.Dishes = append(res.Dishes, dish.Name)
	}

	status := http.StatusOK
	switch {
	case errors.Is(err, ErrRunInProgress):
		status = http.StatusConflict
		res.Error = err.Error()
	case err != nil:
		status = http.StatusInternalServerError
		res.Error = err.Error()
	}

	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(res)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("content-type", "text/plain; charset=utf-8")
	if s.logs == nil {
		return
	}
	for _, line := range s.logs.Lines() {
		fmt.Fprintln(w, line)
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /run", s.handleRun)
	mux.HandleFunc("GET /{$}", s.handleLogs)
	return mux
}

// Serve starts the schedule and the http server, both stop with ctx.
func (s *Server) Serve(ctx context.Context, addr string) error {
	s.cron.Start()
	defer func() {
		<-s.cron.Stop().Done()
	}()
	return serviceutil.StartHttpServer(ctx, addr, s.Handler())
}

type cronLogger struct{}

func (l cronLogger) formatParams(keysAndValues []any) []any {
	params := []any{}
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		params = append(params, fmt.Sprint(keysAndValues[i]), keysAndValues[i+1])
	}
	return params
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	slog.Debug(fmt.Sprintf("cron: %s", msg), l.formatParams(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	slog.Error(fmt.Sprintf("cron: %s", msg), append(l.formatParams(keysAndValues), "err", err)...)
}
