// Package engine drives a snake.State on a timer and fans the result out to
// presenters and the score store.
package engine

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hoshinonyaruko/snake-in-web/snake"
	"github.com/hoshinonyaruko/snake-in-web/structs"
	"github.com/rs/zerolog/log"
)

// storeTimeout bounds every call into the Store.
const storeTimeout = 2 * time.Second

// Presenter receives a snapshot after every step and every reset.
// Present runs on the engine's side-effect path and must not call back into the Engine.
type Presenter interface {
	Present(structs.Snapshot)
}

// PresenterFunc adapts a function to Presenter.
type PresenterFunc func(structs.Snapshot)

func (f PresenterFunc) Present(s structs.Snapshot) { f(s) }

// Store persists the high score and finished games.
type Store interface {
	LoadHighScore(ctx context.Context) (int, error)
	SaveHighScore(ctx context.Context, score int) error
	RecordGame(ctx context.Context, rec structs.GameRecord) error
}

// Options configures an Engine. Store and Rand may be nil.
type Options struct {
	Settings snake.Settings
	Variant  string
	Store    Store
	Rand     *rand.Rand
}

// Engine owns the tick timer and the phase machine
// NotStarted -> Running <-> Paused, Running -> GameOver -> Running.
type Engine struct {
	mu       sync.Mutex
	effectMu sync.Mutex // keeps side effects in step order

	state      *snake.State
	rng        *rand.Rand
	store      Store
	variant    string
	presenters []Presenter

	phase    structs.Phase
	session  string
	player   string
	faceSeed int
	started  time.Time

	// gen changes every time the timer is stopped so a tick that lost the
	// race against Stop or Restart is dropped.
	gen  uint64
	stop chan struct{}
}

// effects 在释放状态锁之后执行
type effects struct {
	snapshot  structs.Snapshot
	highScore int
	saveHigh  bool
	record    *structs.GameRecord
}

// New loads the high score from the store and prepares a fresh game.
func New(ctx context.Context, opts Options) (*Engine, error) {
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	highScore := 0
	if opts.Store != nil {
		hs, err := opts.Store.LoadHighScore(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("load high score failed, starting from 0")
		} else {
			highScore = hs
		}
	}

	state, err := snake.NewState(opts.Settings, highScore, rng)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		state:   state,
		rng:     rng,
		store:   opts.Store,
		variant: opts.Variant,
		phase:   structs.PhaseNotStarted,
	}
	e.newSessionLocked()
	return e, nil
}

// AddPresenter registers p. Call before Start.
func (e *Engine) AddPresenter(p Presenter) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.presenters = append(e.presenters, p)
}

// SetPlayer sets the name written to the game history.
func (e *Engine) SetPlayer(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.player = name
}

func (e *Engine) Phase() structs.Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

func (e *Engine) Snapshot() structs.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

// Start begins a game. A finished game is reset first; a paused one resumes.
func (e *Engine) Start() structs.Snapshot {
	e.mu.Lock()
	switch e.phase {
	case structs.PhaseRunning:
		snap := e.snapshotLocked()
		e.mu.Unlock()
		return snap
	case structs.PhaseGameOver:
		e.stopLocked()
		e.resetLocked()
	}
	e.runLocked()
	return e.publish(effects{snapshot: e.snapshotLocked()})
}

// Pause stops the timer without touching the game state.
func (e *Engine) Pause() structs.Snapshot {
	e.mu.Lock()
	if e.phase == structs.PhaseRunning {
		e.stopLocked()
		e.phase = structs.PhasePaused
	}
	return e.publish(effects{snapshot: e.snapshotLocked()})
}

// Resume restarts the timer of a paused game.
func (e *Engine) Resume() structs.Snapshot {
	e.mu.Lock()
	if e.phase == structs.PhasePaused {
		e.runLocked()
	}
	return e.publish(effects{snapshot: e.snapshotLocked()})
}

// Toggle behaves like the start button: pause a running game, start otherwise.
func (e *Engine) Toggle() structs.Snapshot {
	if e.Phase() == structs.PhaseRunning {
		return e.Pause()
	}
	return e.Start()
}

// Restart stops the timer, resets the game and runs it.
func (e *Engine) Restart() structs.Snapshot {
	e.mu.Lock()
	e.stopLocked()
	e.resetLocked()
	e.runLocked()
	return e.publish(effects{snapshot: e.snapshotLocked()})
}

// Stop halts the timer. Stopping a stopped engine is a no-op.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked()
	if e.phase == structs.PhaseRunning {
		e.phase = structs.PhasePaused
	}
}

// RequestDirection stores d as the pending direction while a game is running.
func (e *Engine) RequestDirection(d structs.Direction) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.phase != structs.PhaseRunning {
		return false
	}
	return e.state.RequestDirection(d)
}

// Tick advances a running game by one step.
func (e *Engine) Tick() structs.Snapshot {
	e.mu.Lock()
	if e.phase != structs.PhaseRunning {
		snap := e.snapshotLocked()
		e.mu.Unlock()
		return snap
	}
	return e.publish(e.stepLocked())
}

func (e *Engine) stepLocked() effects {
	res := e.state.Step()
	fx := effects{}
	if res.HighScoreChanged {
		fx.saveHigh = true
		fx.highScore = e.state.HighScore()
	}
	if res.Status == snake.Terminal {
		e.stopLocked()
		e.phase = structs.PhaseGameOver
		fx.record = &structs.GameRecord{
			SessionID: e.session,
			Variant:   e.variant,
			Player:    e.player,
			Score:     e.state.Score(),
			Length:    len(e.state.Body()),
			Reason:    string(res.Reason),
			StartedAt: e.started,
			EndedAt:   time.Now(),
		}
	}
	fx.snapshot = e.snapshotLocked()
	return fx
}

// publish releases e.mu and runs the side effects in order.
func (e *Engine) publish(fx effects) structs.Snapshot {
	presenters := e.presenters
	e.effectMu.Lock()
	e.mu.Unlock()
	defer e.effectMu.Unlock()

	if fx.saveHigh {
		e.saveHighScore(fx.highScore)
	}
	if fx.record != nil {
		log.Info().
			Str("session", fx.record.SessionID).
			Int("score", fx.record.Score).
			Str("reason", fx.record.Reason).
			Msg("game over")
		e.recordGame(*fx.record)
	}
	for _, p := range presenters {
		p.Present(fx.snapshot)
	}
	return fx.snapshot
}

func (e *Engine) saveHighScore(score int) {
	if e.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := e.store.SaveHighScore(ctx, score); err != nil {
		log.Error().Err(err).Int("high_score", score).Msg("save high score failed")
		return
	}
	log.Debug().Int("high_score", score).Msg("high score saved")
}

func (e *Engine) recordGame(rec structs.GameRecord) {
	if e.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := e.store.RecordGame(ctx, rec); err != nil {
		log.Error().Err(err).Str("session", rec.SessionID).Msg("record game failed")
	}
}

func (e *Engine) resetLocked() {
	e.state.Reset()
	e.newSessionLocked()
}

func (e *Engine) newSessionLocked() {
	e.session = uuid.NewString()
	e.faceSeed = e.rng.Intn(1024)
	e.started = time.Now()
}

func (e *Engine) snapshotLocked() structs.Snapshot {
	snap := e.state.Snapshot()
	snap.Phase = e.phase
	snap.Face = e.faceSeed + snap.Eaten
	snap.Session = e.session
	return snap
}
