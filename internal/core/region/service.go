package region

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"badgehub/internal/platform/logger"

	"github.com/fsnotify/fsnotify"
)

// Service serves postal lookups from the current snapshot and hot-reloads the
// snapshot when an override file changes. Without an override path it stays on
// the embedded dataset
type Service struct {
	path string
	log  logger.Logger

	cur atomic.Pointer[Dataset]

	mu      sync.Mutex
	watcher *fsnotify.Watcher
}

// NewService loads the embedded snapshot and, when path is non-empty, replaces
// it with the file contents. A missing or broken file keeps the embedded data
func NewService(path string, log logger.Logger) (*Service, error) {
	ds, err := LoadEmbedded()
	if err != nil {
		return nil, err
	}

	s := &Service{path: path, log: log}
	s.cur.Store(ds)

	if path != "" {
		if err := s.Reload(); err != nil {
			s.log.Warn().Err(err).Str("path", path).Msg("region override not loaded, using embedded data")
		}
	}
	return s, nil
}

// Dataset returns the current snapshot
func (s *Service) Dataset() *Dataset {
	if s == nil {
		return nil
	}
	return s.cur.Load()
}

// Lookup pass-throughs so callers hold one handle and always see the
// live snapshot

// OrtByPLZ resolves a postal code to its town
func (s *Service) OrtByPLZ(plz string) string { return s.Dataset().OrtByPLZ(plz) }

// LandkreisByPLZ resolves a postal code to its district
func (s *Service) LandkreisByPLZ(plz string) string { return s.Dataset().LandkreisByPLZ(plz) }

// BundeslandByPLZ resolves a postal code to its state
func (s *Service) BundeslandByPLZ(plz string) string { return s.Dataset().BundeslandByPLZ(plz) }

// PLZForOrt lists the postal codes of a town
func (s *Service) PLZForOrt(ort string) []string { return s.Dataset().PLZForOrt(ort) }

// PLZForLandkreis lists the postal codes of a district
func (s *Service) PLZForLandkreis(lk string) []string { return s.Dataset().PLZForLandkreis(lk) }

// RegionPLZ expands a zip to its district and the district's full zip set
func (s *Service) RegionPLZ(zip string) (string, []string) { return s.Dataset().RegionPLZ(zip) }

// Reload swaps in the override file. The old snapshot stays on any error
func (s *Service) Reload() error {
	if s.path == "" {
		return nil
	}
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("region: open %s: %w", s.path, err)
	}
	defer f.Close()

	ds, err := Load(f)
	if err != nil {
		return err
	}
	s.cur.Store(ds)
	s.log.Info().Str("path", s.path).Int("rows", ds.Len()).Msg("region dataset reloaded")
	return nil
}

// Watch reloads the override file when it changes, until ctx is done.
// Watching the parent directory survives editors that replace the file
func (s *Service) Watch(ctx context.Context) error {
	if s.path == "" {
		return nil
	}

	abs, err := filepath.Abs(s.path)
	if err != nil {
		return fmt.Errorf("region: resolve %s: %w", s.path, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("region: watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return fmt.Errorf("region: watch %s: %w", filepath.Dir(abs), err)
	}

	s.mu.Lock()
	s.watcher = w
	s.mu.Unlock()

	go s.watchLoop(ctx, w, filepath.Base(abs))
	return nil
}

func (s *Service) watchLoop(ctx context.Context, w *fsnotify.Watcher, base string) {
	defer w.Close()

	// debounce rapid write bursts from editors
	var pending *time.Timer
	defer func() {
		if pending != nil {
			pending.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Rename) {
				continue
			}
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(200*time.Millisecond, func() {
				if err := s.Reload(); err != nil {
					s.log.Error().Err(err).Msg("region reload failed, keeping previous data")
				}
			})
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.log.Error().Err(err).Msg("region watcher error")
		}
	}
}
