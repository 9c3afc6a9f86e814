package market

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	// DatasetExt is the file extension of daily tick datasets.
	DatasetExt = ".tks"

	defaultBufferCap     = 1000
	defaultFlushInterval = 10 * time.Second
)

// TickWriter appends ticks to a daily dataset file. Ticks are buffered
// and flushed as msgpack-encoded batches, either when the buffer fills
// or when the flush interval elapses.
type TickWriter struct {
	mu            sync.Mutex
	path          string
	buffer        []Tick
	capacity      int
	flushInterval time.Duration
	lastFlush     time.Time
}

// NewTickWriter creates a writer appending to path.
func NewTickWriter(path string) *TickWriter {
	return &TickWriter{
		path:          path,
		capacity:      defaultBufferCap,
		flushInterval: defaultFlushInterval,
		lastFlush:     time.Now(),
	}
}

// Append buffers one tick, flushing to disk when the buffer is full or
// the flush interval has elapsed.
func (w *TickWriter) Append(tick Tick) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buffer = append(w.buffer, tick)
	if len(w.buffer) >= w.capacity || time.Since(w.lastFlush) >= w.flushInterval {
		return w.flushLocked()
	}
	return nil
}

// Flush writes any buffered ticks to disk.
func (w *TickWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked()
}

func (w *TickWriter) flushLocked() error {
	if len(w.buffer) == 0 {
		return nil
	}

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open tick file: %w", err)
	}
	defer f.Close()

	if err := msgpack.NewEncoder(f).Encode(w.buffer); err != nil {
		return fmt.Errorf("failed to encode tick batch: %w", err)
	}

	w.buffer = w.buffer[:0]
	w.lastFlush = time.Now()
	return nil
}

// ReadTicks streams every tick in a dataset file in recorded order,
// invoking fn for each. Iteration stops at the first error from fn.
func ReadTicks(path string, fn func(Tick) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open tick file: %w", err)
	}
	defer f.Close()

	dec := msgpack.NewDecoder(f)
	for {
		var batch []Tick
		if err := dec.Decode(&batch); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to decode tick batch: %w", err)
		}
		for _, tick := range batch {
			if err := fn(tick); err != nil {
				return err
			}
		}
	}
}

// LoadTicks reads a whole dataset file into memory.
func LoadTicks(path string) ([]Tick, error) {
	var ticks []Tick
	err := ReadTicks(path, func(t Tick) error {
		ticks = append(ticks, t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ticks, nil
}

// ListDatasets returns the dataset files under dir, sorted by name.
// Daily files are named by date, so name order is chronological order.
func ListDatasets(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read data directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != DatasetExt {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}
