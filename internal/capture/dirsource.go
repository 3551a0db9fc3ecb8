package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"sr-now/internal/logger"
)

// settleDelay gives a writer time to finish the file after the create
// event fires.
const settleDelay = 500 * time.Millisecond

type implDir struct {
	logger logger.Logger
}

// NewDir creates a Gateway that records by waiting for an audio file to
// appear in the source directory. It exists so the pipeline can run
// without ffmpeg or a live stream: drop pre-recorded chunks into the
// directory and they are consumed one per cycle.
func NewDir(log logger.Logger) Gateway {
	return &implDir{logger: log}
}

func (d *implDir) Record(ctx context.Context, source string, length time.Duration) ([]byte, error) {
	// Serve a chunk that was already waiting before watching for new ones.
	if path, ok := d.oldestPending(source); ok {
		return d.consume(ctx, path)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: create watcher: %v", ErrCapture, err)
	}
	defer watcher.Close()

	if err := watcher.Add(source); err != nil {
		return nil, fmt.Errorf("%w: watch %s: %v", ErrCapture, source, err)
	}

	// A file may have landed between the scan and the watch.
	if path, ok := d.oldestPending(source); ok {
		return d.consume(ctx, path)
	}

	d.logger.Debug(ctx, "waiting for audio chunk in %s", source)

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", ErrCapture, ctx.Err())

		case event, ok := <-watcher.Events:
			if !ok {
				return nil, fmt.Errorf("%w: watcher events channel closed", ErrCapture)
			}
			if event.Op&fsnotify.Create == fsnotify.Create && isAudioFile(event.Name) {
				return d.consume(ctx, event.Name)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil, fmt.Errorf("%w: watcher errors channel closed", ErrCapture)
			}
			d.logger.Warn(ctx, "watcher error: %v", err)
		}
	}
}

// consume reads and removes a chunk so it is not served twice.
func (d *implDir) consume(ctx context.Context, path string) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrCapture, ctx.Err())
	case <-time.After(settleDelay):
	}

	audio, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrCapture, path, err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("%w: empty chunk %s", ErrCapture, path)
	}

	if err := os.Remove(path); err != nil {
		d.logger.Warn(ctx, "failed to remove consumed chunk %s: %v", path, err)
	}

	return audio, nil
}

func (d *implDir) oldestPending(dir string) (string, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if isAudioFile(e.Name()) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		return "", false
	}

	sort.Strings(files)
	return files[0], true
}

func isAudioFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	supportedFormats := []string{".wav", ".mp3", ".m4a", ".ogg", ".flac"}

	for _, format := range supportedFormats {
		if ext == format {
			return true
		}
	}

	return false
}

// IsDirSource reports whether a channel source refers to a local
// directory rather than a stream URL.
func IsDirSource(source string) bool {
	info, err := os.Stat(source)
	return err == nil && info.IsDir()
}
