// Package archive persists raw provider payloads to disk, zstd-compressed.
// Archived payloads are the audit trail for report debugging: when a rendered
// report looks wrong, the exact upstream response that produced it can be
// replayed. Capture is asynchronous and never blocks or fails a fetch.
package archive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"trailwatch/internal/types"
)

// captureBuffer bounds the number of pending payloads. When the writer falls
// behind, new captures are dropped with a warning rather than blocking fetches.
const captureBuffer = 64

type capture struct {
	provider string
	lat, lon float64
	payload  []byte
	at       time.Time
}

// Archiver writes compressed payloads under root, one file per capture:
//
//	{root}/{provider}/{YYYY-MM-DD}/{HHMMSS}_{lat}_{lon}.json.zst
type Archiver struct {
	root   string
	clock  types.Clock
	logger *slog.Logger

	encoder *zstd.Encoder

	// decoderPool provides reusable zstd decoders for Open.
	decoderPool sync.Pool

	ch   chan capture
	wg   sync.WaitGroup
	once sync.Once
}

// New creates an Archiver rooted at dir and starts its writer goroutine.
// The directory is created if missing.
func New(dir string, clock types.Clock, logger *slog.Logger) (*Archiver, error) {
	if clock == nil {
		clock = types.RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("archive: failed to create root %s: %w", dir, err)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("archive: failed to create zstd encoder: %w", err)
	}

	a := &Archiver{
		root:    dir,
		clock:   clock,
		logger:  logger,
		encoder: enc,
		decoderPool: sync.Pool{
			New: func() any {
				d, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
				if err != nil {
					// Never fails with nil input and default options.
					panic(fmt.Sprintf("failed to create zstd decoder: %v", err))
				}
				return d
			},
		},
		ch: make(chan capture, captureBuffer),
	}

	a.wg.Add(1)
	go a.run()

	return a, nil
}

// Capture queues one payload for archiving. It never blocks: if the buffer is
// full the payload is dropped and a warning logged.
func (a *Archiver) Capture(ctx context.Context, provider string, lat, lon float64, payload []byte) {
	// The payload buffer may be reused by the caller after Capture returns.
	cp := make([]byte, len(payload))
	copy(cp, payload)

	c := capture{provider: provider, lat: lat, lon: lon, payload: cp, at: a.clock.Now().UTC()}
	select {
	case a.ch <- c:
	default:
		a.logger.WarnContext(ctx, "archive buffer full, dropping payload",
			"provider", provider,
			"lat", lat,
			"lon", lon,
			"bytes", len(payload),
		)
	}
}

// Close stops accepting captures, drains the queue, and releases the encoder.
func (a *Archiver) Close() error {
	a.once.Do(func() {
		close(a.ch)
	})
	a.wg.Wait()
	return a.encoder.Close()
}

func (a *Archiver) run() {
	defer a.wg.Done()
	for c := range a.ch {
		if err := a.write(c); err != nil {
			a.logger.Error("failed to archive payload",
				"provider", c.provider,
				"error", err,
			)
		}
	}
}

func (a *Archiver) write(c capture) error {
	dir := filepath.Join(a.root, sanitize(c.provider), c.at.Format("2006-01-02"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir %s: %w", dir, err)
	}

	name := fmt.Sprintf("%s_%.4f_%.4f.json.zst", c.at.Format("150405"), c.lat, c.lon)
	path := filepath.Join(dir, name)

	compressed := a.encoder.EncodeAll(c.payload, nil)
	if err := os.WriteFile(path, compressed, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	a.logger.Debug("payload archived",
		"path", path,
		"raw_bytes", len(c.payload),
		"compressed_bytes", len(compressed),
	)
	return nil
}

// Open reads back one archived payload, decompressed.
func (a *Archiver) Open(path string) ([]byte, error) {
	if !strings.HasPrefix(filepath.Clean(path), filepath.Clean(a.root)) {
		return nil, fmt.Errorf("archive: path %s is outside the archive root", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("archive: open %s: %w", path, err)
	}
	defer f.Close()

	compressed, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("archive: read %s: %w", path, err)
	}

	decoder := a.decoderPool.Get().(*zstd.Decoder)
	defer a.decoderPool.Put(decoder)

	raw, err := decoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("archive: decompress %s: %w", path, err)
	}
	return raw, nil
}

// List returns the archived file paths for a provider on a given day, sorted
// lexically (which is chronological given the HHMMSS prefix).
func (a *Archiver) List(provider string, day time.Time) ([]string, error) {
	dir := filepath.Join(a.root, sanitize(provider), day.UTC().Format("2006-01-02"))
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("archive: list %s: %w", dir, err)
	}

	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".zst") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	return paths, nil
}

// sanitize keeps provider names filesystem-safe.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, s)
}
