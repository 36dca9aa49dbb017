package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// BackupFunc creates one backup of saveName using cfg.
type BackupFunc func(ctx context.Context, cfg *Config, saveName string) (*BackupResult, error)

// AutoBackupService runs the auto-backup loop and owns the per-save
// enable/interval state. One instance is shared by every entry point of a
// process; all fields below mu are guarded by it.
type AutoBackupService struct {
	deps   *Dependencies
	logger *slog.Logger
	now    func() time.Time
	backup BackupFunc

	mu         sync.RWMutex
	cfg        *Config
	running    bool
	generation uint64
	interval   time.Duration
	poll       time.Duration
	startedAt  *time.Time
	saves      map[string]*SaveAutoBackupState
	done       chan struct{}
}

// NewAutoBackupService creates a stopped scheduler using cfg for save lookup
// and backups.
func NewAutoBackupService(cfg *Config, deps *Dependencies, logger *slog.Logger) *AutoBackupService {
	if logger == nil {
		panic("logger is required")
	}
	if cfg == nil {
		panic("config is required")
	}
	s := &AutoBackupService{
		deps:     deps,
		logger:   logger.With("component", "scheduler"),
		now:      time.Now,
		cfg:      cfg,
		interval: time.Duration(DefaultAutoBackupIntervalSeconds) * time.Second,
		poll:     time.Duration(DefaultAutoBackupPollSeconds) * time.Second,
		saves:    make(map[string]*SaveAutoBackupState),
	}
	if secs := int(cfg.AutoBackupInterval / time.Second); ValidateAutoBackupInterval(secs) == nil {
		s.interval = time.Duration(secs) * time.Second
	}
	if cfg.AutoBackupPoll > 0 {
		s.poll = cfg.AutoBackupPoll
	}
	s.backup = func(ctx context.Context, cfg *Config, saveName string) (*BackupResult, error) {
		return CreateBackup(ctx, cfg, s.deps, s.logger, saveName)
	}
	closed := make(chan struct{})
	close(closed)
	s.done = closed
	return s
}

// Start launches the background loop. It fails with ErrAlreadyRunning when the
// loop is already running. Canceling ctx also ends the loop.
func (s *AutoBackupService) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.running = true
	s.generation++
	gen := s.generation
	started := s.now()
	s.startedAt = &started
	done := make(chan struct{})
	s.done = done
	interval := s.interval
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Auto backup started", "interval", interval)
	go s.run(ctx, gen, done)
	return nil
}

// Stop marks the service stopped. The loop notices on its next check; a
// backup already in progress completes.
func (s *AutoBackupService) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return ErrNotRunning
	}
	s.running = false
	s.startedAt = nil
	s.logger.Info("Auto backup stopped")
	return nil
}

// Done is closed when the most recently started loop has exited.
func (s *AutoBackupService) Done() <-chan struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.done
}

// IsRunning reports whether the loop is running.
func (s *AutoBackupService) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Status returns a copy of the scheduler state.
func (s *AutoBackupService) Status() AutoBackupStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status := AutoBackupStatus{
		Running:         s.running,
		IntervalSeconds: int(s.interval / time.Second),
		StartedAt:       copyTime(s.startedAt),
		Saves:           make(map[string]SaveAutoBackupState, len(s.saves)),
	}
	for name, st := range s.saves {
		status.Saves[name] = SaveAutoBackupState{
			SaveName:   st.SaveName,
			Enabled:    st.Enabled,
			LastBackup: copyTime(st.LastBackup),
			NextBackup: copyTime(st.NextBackup),
		}
	}
	return status
}

// Interval returns the configured interval in seconds.
func (s *AutoBackupService) Interval() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int(s.interval / time.Second)
}

// SetInterval changes the interval; the running loop picks it up on its next
// cycle. Values outside 60..86400 fail with ErrInvalidValue.
func (s *AutoBackupService) SetInterval(seconds int) error {
	if err := ValidateAutoBackupInterval(seconds); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interval = time.Duration(seconds) * time.Second
	for _, st := range s.saves {
		if st.Enabled && st.LastBackup != nil {
			next := st.LastBackup.Add(s.interval)
			st.NextBackup = &next
		}
	}
	return nil
}

// UpdateConfig swaps the configuration used for subsequent backups.
func (s *AutoBackupService) UpdateConfig(cfg *Config) {
	if cfg == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
	if cfg.AutoBackupPoll > 0 {
		s.poll = cfg.AutoBackupPoll
	}
}

// EnableSave marks a save for auto backup with an immediate next backup. The
// save directory must exist.
func (s *AutoBackupService) EnableSave(ctx context.Context, saveName string) error {
	name, err := NormalizeSaveName(saveName)
	if err != nil {
		return err
	}
	s.mu.RLock()
	cfg := s.cfg
	s.mu.RUnlock()

	if err := requireDir(ctx, s.deps.FileSystem, saveDirPath(s.deps.FileSystem, cfg, name), "save"); err != nil {
		if errors.Is(err, ErrNotADirectory) {
			return fmt.Errorf("save %s is not a directory: %w", name, ErrNotFound)
		}
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stateLocked(name)
	st.Enabled = true
	next := s.now()
	st.NextBackup = &next
	return nil
}

// DisableSave clears the enabled flag and next backup time. Unknown saves are
// not an error.
func (s *AutoBackupService) DisableSave(saveName string) error {
	name, err := NormalizeSaveName(saveName)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.saves[name]; ok {
		st.Enabled = false
		st.NextBackup = nil
	}
	return nil
}

// IsSaveEnabled reports whether auto backup is enabled for a save.
func (s *AutoBackupService) IsSaveEnabled(saveName string) bool {
	name, err := NormalizeSaveName(saveName)
	if err != nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.saves[name]
	return ok && st.Enabled
}

// EnabledSaves returns the enabled save names, sorted.
func (s *AutoBackupService) EnabledSaves() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabledLocked()
}

// Refresh rebuilds the save set from the save root. State is kept for saves
// that still exist and dropped for those that do not.
func (s *AutoBackupService) Refresh(ctx context.Context) error {
	s.mu.RLock()
	cfg := s.cfg
	known := make([]string, 0, len(s.saves))
	for name := range s.saves {
		known = append(known, name)
	}
	s.mu.RUnlock()

	discovered, err := ListSaveEntries(ctx, cfg, s.deps)
	if err != nil {
		return err
	}
	present := make(map[string]struct{}, len(discovered)+len(known))
	for _, e := range discovered {
		if e.Unsupported != "" {
			s.logger.DebugContext(ctx, "Skipping save", "save", e.RelativePath, "reason", e.Unsupported)
			continue
		}
		present[e.RelativePath] = struct{}{}
	}
	checked := make(map[string]struct{}, len(known))
	for _, name := range known {
		checked[name] = struct{}{}
		if _, ok := present[name]; ok {
			continue
		}
		if requireDir(ctx, s.deps.FileSystem, saveDirPath(s.deps.FileSystem, cfg, name), "save") == nil {
			present[name] = struct{}{}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rebuilt := make(map[string]*SaveAutoBackupState, len(present))
	for name := range present {
		if st, ok := s.saves[name]; ok {
			rebuilt[name] = st
			continue
		}
		rebuilt[name] = &SaveAutoBackupState{SaveName: name}
	}
	for name, st := range s.saves {
		if _, ok := checked[name]; !ok {
			// enabled while the scan was running
			rebuilt[name] = st
		}
	}
	for name := range s.saves {
		if _, ok := rebuilt[name]; !ok {
			s.logger.InfoContext(ctx, "Save no longer present", "save", name)
		}
	}
	s.saves = rebuilt
	return nil
}

func (s *AutoBackupService) run(ctx context.Context, gen uint64, done chan struct{}) {
	defer close(done)
	last := make(map[string]time.Time)
	for {
		if !s.active(gen) {
			return
		}
		if ctx.Err() != nil {
			s.halt(gen)
			return
		}
		s.runCycle(ctx, gen, last)

		s.mu.RLock()
		poll := s.poll
		s.mu.RUnlock()
		timer := time.NewTimer(poll)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.halt(gen)
			return
		case <-timer.C:
		}
	}
}

func (s *AutoBackupService) runCycle(ctx context.Context, gen uint64, last map[string]time.Time) {
	s.mu.RLock()
	interval := s.interval
	cfg := s.cfg
	enabled := s.enabledLocked()
	s.mu.RUnlock()

	backupCtx := context.WithoutCancel(ctx)
	for _, name := range enabled {
		if !s.active(gen) {
			return
		}
		if t, ok := last[name]; ok && s.now().Sub(t) < interval {
			continue
		}
		res, err := s.backup(backupCtx, cfg, name)
		if err != nil {
			s.logger.ErrorContext(ctx, "Auto backup failed", "save", name, "error", err)
			notify(ctx, cfg, s.deps, s.logger, "Auto backup failed", fmt.Sprintf("%s: %v", name, err))
			continue
		}
		finished := s.now()
		last[name] = finished
		s.recordBackup(name, finished)
		s.logger.InfoContext(ctx, "Auto backup created", "save", name, "archive", res.Name)
	}
}

func (s *AutoBackupService) recordBackup(name string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.saves[name]
	if !ok {
		return
	}
	st.LastBackup = &at
	if st.Enabled {
		next := at.Add(s.interval)
		st.NextBackup = &next
	}
}

func (s *AutoBackupService) active(gen uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running && s.generation == gen
}

// halt marks the service stopped after its context ended.
func (s *AutoBackupService) halt(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running && s.generation == gen {
		s.running = false
		s.startedAt = nil
	}
}

func (s *AutoBackupService) stateLocked(name string) *SaveAutoBackupState {
	st, ok := s.saves[name]
	if !ok {
		st = &SaveAutoBackupState{SaveName: name}
		s.saves[name] = st
	}
	return st
}

func (s *AutoBackupService) enabledLocked() []string {
	names := make([]string, 0, len(s.saves))
	for name, st := range s.saves {
		if st.Enabled {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
