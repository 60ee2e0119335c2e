package log

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"monsterworkshop.game/internal/sim/world"
)

// SegmentWriter appends JSON lines to zstd-compressed files, one file per UTC
// hour: <dir>/<prefix>-YYYY-MM-DD-HH.jsonl.zst.
type SegmentWriter struct {
	dir    string
	prefix string
	now    func() time.Time

	mu      sync.Mutex
	segment string
	f       *os.File
	enc     *zstd.Encoder
	buf     *bufio.Writer
}

func NewSegmentWriter(dir, prefix string) *SegmentWriter {
	return &SegmentWriter{dir: dir, prefix: prefix, now: time.Now}
}

func (w *SegmentWriter) Write(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	seg := w.now().UTC().Format("2006-01-02-15")
	if seg != w.segment || w.buf == nil {
		if err := w.openLocked(seg); err != nil {
			return err
		}
	}
	if _, err := w.buf.Write(append(b, '\n')); err != nil {
		return err
	}
	return w.buf.Flush()
}

func (w *SegmentWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *SegmentWriter) openLocked(seg string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(w.dir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, seg))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f, w.enc, w.buf, w.segment = f, enc, bufio.NewWriterSize(enc, 64*1024), seg
	return nil
}

func (w *SegmentWriter) closeLocked() error {
	var err error
	if w.buf != nil {
		err = w.buf.Flush()
		w.buf = nil
	}
	if w.enc != nil {
		err = errors.Join(err, w.enc.Close())
		w.enc = nil
	}
	if w.f != nil {
		err = errors.Join(err, w.f.Close())
		w.f = nil
	}
	return err
}

// Segments lists the segment files of prefix under dir in write order.
func Segments(dir, prefix string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, prefix+"-*.jsonl.zst"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

// ReadLines decodes every line of the given segments in order. A segment cut
// short by a crash ends the read without error.
func ReadLines(paths []string, fn func(line []byte) error) error {
	for _, p := range paths {
		if err := readSegment(p, fn); err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(p), err)
		}
	}
	return nil
}

func readSegment(path string, fn func([]byte) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	r := bufio.NewReaderSize(dec, 256*1024)
	for {
		line, err := r.ReadBytes('\n')
		if len(strings.TrimSpace(string(line))) > 0 && err == nil {
			if ferr := fn(line); ferr != nil {
				return ferr
			}
		}
		if err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// TickLogger records the inputs and digest of every tick for replay.
type TickLogger struct{ w *SegmentWriter }

func NewTickLogger(worldDir string) *TickLogger {
	return &TickLogger{w: NewSegmentWriter(filepath.Join(worldDir, "events"), "ticks")}
}

func (l *TickLogger) WriteTick(e world.TickLogEntry) error { return l.w.Write(e) }
func (l *TickLogger) Close() error                         { return l.w.Close() }

// ReadTicks streams the tick log of worldDir in order.
func ReadTicks(worldDir string, fn func(world.TickLogEntry) error) error {
	paths, err := Segments(filepath.Join(worldDir, "events"), "ticks")
	if err != nil {
		return err
	}
	return ReadLines(paths, func(line []byte) error {
		var e world.TickLogEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return err
		}
		return fn(e)
	})
}

// AuditLogger records economy and crafting events.
type AuditLogger struct{ w *SegmentWriter }

func NewAuditLogger(worldDir string) *AuditLogger {
	return &AuditLogger{w: NewSegmentWriter(filepath.Join(worldDir, "audit"), "audit")}
}

func (l *AuditLogger) WriteAudit(e world.AuditEntry) error { return l.w.Write(e) }
func (l *AuditLogger) Close() error                        { return l.w.Close() }

// ReadAudit streams the audit log of worldDir in order.
func ReadAudit(worldDir string, fn func(world.AuditEntry) error) error {
	paths, err := Segments(filepath.Join(worldDir, "audit"), "audit")
	if err != nil {
		return err
	}
	return ReadLines(paths, func(line []byte) error {
		var e world.AuditEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return err
		}
		return fn(e)
	})
}
