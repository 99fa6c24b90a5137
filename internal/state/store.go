// Package state provides the mutation surface and persistence for agent
// orchestration state.
//
// The Store is the only writer of AgentState: the orchestrator and the
// oversight gate record everything through it, and the snapshot layer
// persists the state per workspace so an interrupted session can be resumed.
//
// Import rules:
//   - CAN import: internal/clock, internal/constants, internal/domain,
//     internal/errors
//   - MUST NOT import: internal/orchestrator, internal/engine, internal/cli
package state

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/kestrelworks/maestro/internal/clock"
	"github.com/kestrelworks/maestro/internal/constants"
	"github.com/kestrelworks/maestro/internal/domain"
	maestroerrors "github.com/kestrelworks/maestro/internal/errors"
)

// Store owns the in-memory AgentState and serializes all mutations behind a
// mutex. It is safe for concurrent use. A disposed store rejects every
// operation with ErrStoreDisposed.
type Store struct {
	mu       sync.RWMutex
	state    domain.AgentState
	disposed bool
	clock    clock.Clock
	logger   zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces the system clock for deterministic timestamps.
func WithClock(c clock.Clock) Option {
	return func(s *Store) {
		s.clock = c
	}
}

// NewStore creates an empty Store for a fresh session.
func NewStore(logger zerolog.Logger, opts ...Option) *Store {
	s := &Store{
		clock:  clock.RealClock{},
		logger: logger.With().Str("component", "state").Logger(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.state = domain.AgentState{
		TaskStatuses:  make(map[string]constants.TaskStatus),
		ProgressMarks: make(map[string]float64),
		SessionStart:  s.clock.Now(),
		SchemaVersion: constants.AgentStateSchemaVersion,
	}

	return s
}

// NewStoreFromState creates a Store seeded from a restored snapshot.
func NewStoreFromState(restored domain.AgentState, logger zerolog.Logger, opts ...Option) *Store {
	s := NewStore(logger, opts...)

	if restored.TaskStatuses == nil {
		restored.TaskStatuses = make(map[string]constants.TaskStatus)
	}
	if restored.ProgressMarks == nil {
		restored.ProgressMarks = make(map[string]float64)
	}
	if restored.SessionStart.IsZero() {
		restored.SessionStart = s.clock.Now()
	}
	restored.SchemaVersion = constants.AgentStateSchemaVersion

	s.state = restored
	return s
}

// SetCurrentTask installs the task being driven and records its status.
func (s *Store) SetCurrentTask(task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return maestroerrors.ErrStoreDisposed
	}
	if task == nil {
		return maestroerrors.Wrap(maestroerrors.ErrEmptyValue, "set current task")
	}

	s.state.CurrentTask = task
	s.state.TaskStatuses[task.ID] = task.Status
	s.state.ProgressMarks[task.ID] = task.Progress.PercentComplete

	return nil
}

// GetCurrentTask returns the task being driven.
// Returns ErrNoCurrentTask when none is set.
func (s *Store) GetCurrentTask() (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.disposed {
		return nil, maestroerrors.ErrStoreDisposed
	}
	if s.state.CurrentTask == nil {
		return nil, maestroerrors.ErrNoCurrentTask
	}

	return s.state.CurrentTask, nil
}

// TaskView is a copied snapshot of the current task's observable fields,
// safe to read while the run goroutine keeps mutating the task.
type TaskView struct {
	ID            string
	Goal          string
	Status        constants.TaskStatus
	Progress      float64
	CurrentStepID string
}

// CurrentTaskView snapshots the current task under the store lock. Status
// comes from the status map rather than the task struct, so the view never
// reads a field a transition is writing concurrently.
// Returns ErrNoCurrentTask when none is set.
func (s *Store) CurrentTaskView() (TaskView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.disposed {
		return TaskView{}, maestroerrors.ErrStoreDisposed
	}
	if s.state.CurrentTask == nil {
		return TaskView{}, maestroerrors.ErrNoCurrentTask
	}

	t := s.state.CurrentTask
	return TaskView{
		ID:            t.ID,
		Goal:          t.Goal,
		Status:        s.state.TaskStatuses[t.ID],
		Progress:      t.Progress.PercentComplete,
		CurrentStepID: t.Progress.CurrentStepID,
	}, nil
}

// SetCurrentStep records which step is in flight for the current task. All
// writes to the in-flight step id go through here so CurrentTaskView can
// read it under the same lock.
func (s *Store) SetCurrentStep(taskID, stepID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return maestroerrors.ErrStoreDisposed
	}

	if s.state.CurrentTask != nil && s.state.CurrentTask.ID == taskID {
		s.state.CurrentTask.Progress.CurrentStepID = stepID
	}

	return nil
}

// SetTaskStatus records the last known status for a task. Terminal statuses
// are retained for session statistics.
func (s *Store) SetTaskStatus(taskID string, status constants.TaskStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return maestroerrors.ErrStoreDisposed
	}
	if taskID == "" {
		return maestroerrors.Wrap(maestroerrors.ErrEmptyValue, "set task status")
	}

	s.state.TaskStatuses[taskID] = status
	if s.state.CurrentTask != nil && s.state.CurrentTask.ID == taskID {
		s.state.CurrentTask.Status = status
	}

	return nil
}

// UpdateTaskProgress records task progress. Progress outside [0,100] or
// below the task's recorded high-water mark is rejected with
// ErrInvalidProgress. Updates for unknown task IDs are logged and ignored so
// a late callback from a cancelled task cannot corrupt state.
func (s *Store) UpdateTaskProgress(taskID string, percent float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return maestroerrors.ErrStoreDisposed
	}

	if percent < 0 || percent > constants.MaxProgressPercent {
		return maestroerrors.Wrapf(maestroerrors.ErrInvalidProgress, "%.1f%% out of range", percent)
	}

	if _, known := s.state.TaskStatuses[taskID]; !known {
		s.logger.Warn().
			Str("task_id", taskID).
			Float64("percent", percent).
			Msg("progress update for unknown task ignored")
		return nil
	}

	if mark := s.state.ProgressMarks[taskID]; percent < mark {
		return maestroerrors.Wrapf(maestroerrors.ErrInvalidProgress,
			"%.1f%% regresses below recorded %.1f%%", percent, mark)
	}

	s.state.ProgressMarks[taskID] = percent
	if s.state.CurrentTask != nil && s.state.CurrentTask.ID == taskID {
		s.state.CurrentTask.Progress.PercentComplete = percent
	}

	return nil
}

// ResetProgressMark clears the high-water mark for a task after re-planning
// shortens or restructures its remaining work.
func (s *Store) ResetProgressMark(taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return maestroerrors.ErrStoreDisposed
	}

	s.state.ProgressMarks[taskID] = 0
	return nil
}

// AddTaskToQueue appends a task to the pending queue.
func (s *Store) AddTaskToQueue(task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return maestroerrors.ErrStoreDisposed
	}
	if task == nil {
		return maestroerrors.Wrap(maestroerrors.ErrEmptyValue, "enqueue task")
	}

	s.state.Queue = append(s.state.Queue, task)
	s.state.TaskStatuses[task.ID] = task.Status
	if _, ok := s.state.ProgressMarks[task.ID]; !ok {
		s.state.ProgressMarks[task.ID] = task.Progress.PercentComplete
	}

	return nil
}

// GetNextTask dequeues the oldest pending task.
// Returns ErrQueueEmpty when nothing is queued.
func (s *Store) GetNextTask() (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return nil, maestroerrors.ErrStoreDisposed
	}
	if len(s.state.Queue) == 0 {
		return nil, maestroerrors.ErrQueueEmpty
	}

	task := s.state.Queue[0]
	s.state.Queue = s.state.Queue[1:]

	return task, nil
}

// QueueLength returns the number of queued tasks.
func (s *Store) QueueLength() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.state.Queue)
}

// QueuedTasks returns a copy of the queue in FIFO order.
func (s *Store) QueuedTasks() []*domain.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	queue := make([]*domain.Task, len(s.state.Queue))
	copy(queue, s.state.Queue)
	return queue
}

// RecordExecutionStep appends one history entry. History is append-only:
// nothing ever removes or rewrites an entry.
func (s *Store) RecordExecutionStep(entry domain.ExecutionHistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return maestroerrors.ErrStoreDisposed
	}
	if entry.TaskID == "" {
		return maestroerrors.Wrap(maestroerrors.ErrEmptyValue, "record execution step")
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.clock.Now()
	}

	s.state.History = append(s.state.History, entry)
	return nil
}

// GetExecutionHistory returns the history entries for one task in recording
// order. Unknown task IDs yield an empty slice, not an error.
func (s *Store) GetExecutionHistory(taskID string) []domain.ExecutionHistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []domain.ExecutionHistoryEntry
	for _, entry := range s.state.History {
		if entry.TaskID == taskID {
			entries = append(entries, entry)
		}
	}
	return entries
}

// RecordIntervention appends an intervention to the audit trail.
func (s *Store) RecordIntervention(iv domain.Intervention) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return maestroerrors.ErrStoreDisposed
	}
	if iv.ID == "" {
		return maestroerrors.Wrap(maestroerrors.ErrEmptyValue, "record intervention")
	}
	if iv.Timestamp.IsZero() {
		iv.Timestamp = s.clock.Now()
	}

	s.state.Interventions = append(s.state.Interventions, iv)
	return nil
}

// Interventions returns a copy of the intervention audit trail.
func (s *Store) Interventions() []domain.Intervention {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ivs := make([]domain.Intervention, len(s.state.Interventions))
	copy(ivs, s.state.Interventions)
	return ivs
}

// GetTaskStatistics summarizes outcomes across every task recorded this
// session.
func (s *Store) GetTaskStatistics() domain.TaskStatistics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := domain.TaskStatistics{TotalTasks: len(s.state.TaskStatuses)}
	for _, status := range s.state.TaskStatuses {
		switch status {
		case constants.TaskStatusCompleted:
			stats.CompletedTasks++
		case constants.TaskStatusFailed:
			stats.FailedTasks++
		case constants.TaskStatusCancelled:
			stats.CancelledTasks++
		}
	}

	if stats.TotalTasks > 0 {
		stats.SuccessRate = float64(stats.CompletedTasks) / float64(stats.TotalTasks)
	}

	return stats
}

// Snapshot returns a deep-enough copy of the state for persistence. Slices
// and maps are copied; task pointers are shared, so callers must not mutate
// the returned tasks.
func (s *Store) Snapshot() domain.AgentState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.state

	snap.Queue = make([]*domain.Task, len(s.state.Queue))
	copy(snap.Queue, s.state.Queue)

	snap.History = make([]domain.ExecutionHistoryEntry, len(s.state.History))
	copy(snap.History, s.state.History)

	snap.Interventions = make([]domain.Intervention, len(s.state.Interventions))
	copy(snap.Interventions, s.state.Interventions)

	snap.TaskStatuses = make(map[string]constants.TaskStatus, len(s.state.TaskStatuses))
	for id, st := range s.state.TaskStatuses {
		snap.TaskStatuses[id] = st
	}

	snap.ProgressMarks = make(map[string]float64, len(s.state.ProgressMarks))
	for id, mark := range s.state.ProgressMarks {
		snap.ProgressMarks[id] = mark
	}

	return snap
}

// Dispose releases the store. All subsequent operations fail with
// ErrStoreDisposed. Dispose is idempotent.
func (s *Store) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.disposed {
		return
	}

	s.disposed = true
	s.state = domain.AgentState{}
}
