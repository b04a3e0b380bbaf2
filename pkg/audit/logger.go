// Package audit provides components for capturing, storing, and querying audit logs.
// This file implements the logger backends: stdout, rotated file, in-memory and no-op.
package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"skypath/pkg/logger"
)

// StdoutLogger implements the Logger interface by writing audit entries as JSON lines.
type StdoutLogger struct {
	config *Config
	out    io.Writer
	mu     sync.Mutex // Mutex to ensure thread-safe writes.
}

// NewStdoutLogger creates and returns a new StdoutLogger writing to os.Stdout.
func NewStdoutLogger(cfg *Config) *StdoutLogger {
	return NewWriterLogger(cfg, os.Stdout)
}

// NewWriterLogger creates a StdoutLogger that writes to an arbitrary writer.
func NewWriterLogger(cfg *Config, w io.Writer) *StdoutLogger {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &StdoutLogger{config: cfg, out: w}
}

// Log marshals an audit entry to JSON and prints it with the [AUDIT] prefix.
// If auditing is disabled in the config, it does nothing.
func (l *StdoutLogger) Log(_ context.Context, entry *Entry) error {
	if !l.config.Enabled {
		return nil
	}

	data, err := json.Marshal(mask(entry, l.config.MaskFields))
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	_, err = fmt.Fprintln(l.out, "[AUDIT]", string(data))
	return err
}

// Query is not supported by StdoutLogger and will always return an error.
func (l *StdoutLogger) Query(_ context.Context, _ *QueryFilter) ([]*Entry, error) {
	return nil, fmt.Errorf("query not supported for stdout logger")
}

// Close for StdoutLogger does nothing as there are no resources to release.
func (l *StdoutLogger) Close() error {
	return nil
}

// FileLogger implements the Logger interface by writing audit entries to a rotated file.
// It uses a buffered channel for asynchronous writing and periodic flushing.
type FileLogger struct {
	config *Config
	file   *lumberjack.Logger
	writer *bufio.Writer
	mu     sync.Mutex    // Mutex to protect file writes and internal state.
	buffer chan *Entry   // Buffered channel for asynchronous entry logging.
	done   chan struct{} // Channel to signal shutdown of the processLoop.
	wg     sync.WaitGroup
	once   sync.Once
}

// NewFileLogger creates and returns a new FileLogger.
// The file is rotated by lumberjack according to MaxSize, MaxBackups and MaxAge.
func NewFileLogger(cfg *Config) (*FileLogger, error) {
	if cfg.FilePath == "" {
		cfg.FilePath = "audit.log"
	}

	// lumberjack открывает файл лениво, поэтому проверяем доступность сразу
	f, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log file: %w", err)
	}
	_ = f.Close()

	file := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}

	bufferSize := cfg.BufferSize
	if bufferSize <= 0 {
		bufferSize = 1000
	}

	l := &FileLogger{
		config: cfg,
		file:   file,
		writer: bufio.NewWriter(file),
		buffer: make(chan *Entry, bufferSize),
		done:   make(chan struct{}),
	}

	l.wg.Add(1)
	go l.processLoop()

	return l, nil
}

// Log sends an audit entry to the internal buffer for asynchronous writing.
// If the buffer is full, it writes the entry synchronously.
func (l *FileLogger) Log(_ context.Context, entry *Entry) error {
	if !l.config.Enabled {
		return nil
	}

	select {
	case l.buffer <- entry:
		return nil
	default:
		return l.writeEntry(entry)
	}
}

// Query is not implemented for FileLogger and will always return an error.
func (l *FileLogger) Query(_ context.Context, _ *QueryFilter) ([]*Entry, error) {
	return nil, fmt.Errorf("query not implemented for file logger")
}

// Close stops the processLoop, drains remaining entries, flushes them
// and closes the underlying file.
func (l *FileLogger) Close() error {
	var err error
	l.once.Do(func() {
		close(l.done)
		l.wg.Wait()

		l.mu.Lock()
		defer l.mu.Unlock()

		for {
			select {
			case entry := <-l.buffer:
				if werr := l.writeEntryUnsafe(entry); werr != nil {
					logger.Log.Warn("Failed to write audit entry during shutdown", "error", werr)
				}
				continue
			default:
			}
			break
		}

		if ferr := l.writer.Flush(); ferr != nil {
			logger.Log.Warn("Failed to flush audit writer", "error", ferr)
		}
		err = l.file.Close()
	})
	return err
}

// processLoop writes buffered entries and flushes the writer periodically.
func (l *FileLogger) processLoop() {
	defer l.wg.Done()

	flushPeriod := l.config.FlushPeriod
	if flushPeriod <= 0 {
		flushPeriod = 5 * time.Second
	}

	ticker := time.NewTicker(flushPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case entry := <-l.buffer:
			if err := l.writeEntry(entry); err != nil {
				logger.Log.Warn("Failed to write audit entry", "error", err)
			}
		case <-ticker.C:
			l.flush()
		}
	}
}

func (l *FileLogger) writeEntry(entry *Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.writeEntryUnsafe(entry)
}

// writeEntryUnsafe assumes the caller holds the mutex.
func (l *FileLogger) writeEntryUnsafe(entry *Entry) error {
	data, err := json.Marshal(mask(entry, l.config.MaskFields))
	if err != nil {
		return err
	}

	_, err = l.writer.Write(append(data, '\n'))
	return err
}

func (l *FileLogger) flush() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.writer.Flush(); err != nil {
		logger.Log.Warn("Failed to flush audit writer", "error", err)
	}
}

// MemoryLogger keeps the most recent entries in memory and supports Query.
// Used by the CLI and in tests.
type MemoryLogger struct {
	mu       sync.RWMutex
	entries  []*Entry
	capacity int
}

// NewMemoryLogger creates a MemoryLogger holding at most capacity entries.
func NewMemoryLogger(capacity int) *MemoryLogger {
	if capacity <= 0 {
		capacity = 1000
	}
	return &MemoryLogger{capacity: capacity}
}

// Log appends an entry, evicting the oldest one when full.
func (l *MemoryLogger) Log(_ context.Context, entry *Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.entries) == l.capacity {
		l.entries = l.entries[1:]
	}
	l.entries = append(l.entries, entry)
	return nil
}

// Query returns matching entries, newest first.
func (l *MemoryLogger) Query(_ context.Context, filter *QueryFilter) ([]*Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []*Entry
	for _, e := range l.entries {
		if filter.Match(e) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})

	if filter != nil {
		if filter.Offset > 0 {
			if filter.Offset >= len(out) {
				return nil, nil
			}
			out = out[filter.Offset:]
		}
		if filter.Limit > 0 && len(out) > filter.Limit {
			out = out[:filter.Limit]
		}
	}
	return out, nil
}

// Close for MemoryLogger does nothing.
func (l *MemoryLogger) Close() error { return nil }

// filteredLogger drops entries whose action is excluded by configuration.
type filteredLogger struct {
	Logger
	exclude map[Action]bool
}

// WithExcludedActions wraps l so that the listed actions are never recorded.
func WithExcludedActions(l Logger, actions []string) Logger {
	if len(actions) == 0 {
		return l
	}
	exclude := make(map[Action]bool, len(actions))
	for _, a := range actions {
		exclude[Action(a)] = true
	}
	return &filteredLogger{Logger: l, exclude: exclude}
}

func (l *filteredLogger) Log(ctx context.Context, entry *Entry) error {
	if l.exclude[entry.Action] {
		return nil
	}
	return l.Logger.Log(ctx, entry)
}

// New creates and returns an appropriate Logger implementation based on the provided configuration.
// If `cfg` is nil, it uses DefaultConfig. If auditing is disabled, it returns a NoopLogger.
// It defaults to StdoutLogger if an unknown backend is specified.
func New(cfg *Config) (Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	if !cfg.Enabled {
		return &NoopLogger{}, nil
	}

	var (
		l   Logger
		err error
	)
	switch cfg.Backend {
	case "file":
		l, err = NewFileLogger(cfg)
		if err != nil {
			return nil, err
		}
	case "memory":
		l = NewMemoryLogger(cfg.BufferSize)
	case "noop":
		l = &NoopLogger{}
	case "stdout", "":
		l = NewStdoutLogger(cfg)
	default:
		logger.Log.Warn("Unknown audit backend, using stdout", "backend", cfg.Backend)
		l = NewStdoutLogger(cfg)
	}

	return WithExcludedActions(l, cfg.ExcludeActions), nil
}

// NoopLogger is a no-operation implementation of the Logger interface.
type NoopLogger struct{}

// Log for NoopLogger does nothing.
func (l *NoopLogger) Log(_ context.Context, _ *Entry) error { return nil }

// Query for NoopLogger does nothing and returns nil.
func (l *NoopLogger) Query(_ context.Context, _ *QueryFilter) ([]*Entry, error) {
	return nil, nil
}

// Close for NoopLogger does nothing.
func (l *NoopLogger) Close() error { return nil }

// globalLogger is the package-level default audit logger, initialized as a NoopLogger.
var globalLogger Logger = &NoopLogger{}

// globalMu protects access to globalLogger.
var globalMu sync.RWMutex

// SetGlobal sets the global audit logger instance.
func SetGlobal(l Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = l
}

// Get returns the current global audit logger instance.
func Get() Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// Log records an audit entry using the global audit logger.
func Log(ctx context.Context, entry *Entry) error {
	return Get().Log(ctx, entry)
}
