// Package workout owns the exercise catalog, the workout templates and the
// lifecycle of an in-progress session, from start to the logged result.
package workout

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meltforce/titanlift/internal/draft"
	"github.com/meltforce/titanlift/internal/history"
	"github.com/meltforce/titanlift/internal/models"
	"github.com/meltforce/titanlift/internal/state"
	"github.com/meltforce/titanlift/internal/timer"
)

var (
	ErrTemplateNotFound = errors.New("template not found")
	ErrExerciseNotFound = errors.New("exercise not found")
	ErrNoActiveSession  = errors.New("no active session")
	ErrIndexOutOfRange  = errors.New("index out of range")
	ErrInvalidName      = errors.New("name must not be empty")
)

// Deps are the collaborators of a Service.
type Deps struct {
	State     *state.Store
	Drafts    *draft.Store
	Scheduler *draft.Scheduler
	Log       *history.Log
	Tracker   *timer.Tracker
	Rest      *timer.Rest
	Logger    *slog.Logger

	// Now defaults to time.Now; NewID to uuid.NewString.
	Now   func() time.Time
	NewID func() string

	// OnFinish, when set, is called after a session is logged.
	OnFinish func(models.WorkoutSession)
}

// Service is safe for concurrent use. All state mutations go through mu.
type Service struct {
	st       *state.Store
	drafts   *draft.Store
	sched    *draft.Scheduler
	sessions *history.Log
	tracker  *timer.Tracker
	rest     *timer.Rest
	log      *slog.Logger
	now      func() time.Time
	newID    func() string
	onFinish func(models.WorkoutSession)

	mu sync.Mutex
	// working holds the latest draft per template while a debounced write
	// may still be pending; it is authoritative over the store.
	working map[string][]models.ActiveExercise
}

func New(d Deps) *Service {
	s := &Service{
		st:       d.State,
		drafts:   d.Drafts,
		sched:    d.Scheduler,
		sessions: d.Log,
		tracker:  d.Tracker,
		rest:     d.Rest,
		log:      d.Logger,
		now:      d.Now,
		newID:    d.NewID,
		onFinish: d.OnFinish,
		working:  make(map[string][]models.ActiveExercise),
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s
}

// Sessions exposes the session log.
func (s *Service) Sessions() *history.Log { return s.sessions }

// Tracker exposes the session stopwatch.
func (s *Service) Tracker() *timer.Tracker { return s.tracker }

// Rest exposes the rest timers.
func (s *Service) Rest() *timer.Rest { return s.rest }

// Now is the service clock.
func (s *Service) Now() time.Time { return s.now() }
