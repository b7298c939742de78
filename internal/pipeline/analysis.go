package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/property-report/internal/model"
)

// Pacing holds the delays between the pre-call phases of an analysis job.
// They are presentation pacing only; tests set them to zero.
type Pacing struct {
	Preparing    time.Duration // preparing -> fetching-data
	FetchingData time.Duration // fetching-data -> analyzing
}

// JobConfig configures one analysis job.
type JobConfig[P any] struct {
	Name     string
	Pacing   Pacing
	Offline  bool
	Demo     P // payload used in offline mode
	Fallback P // payload attached to the error phase

	// Clone deep-copies a payload. Without it payloads are copied by value.
	Clone func(P) P
}

// Job is the phase state machine shared by the summary and valuation
// analyses. A job runs at most once; later triggers return the current state.
type Job[P any] struct {
	cfg      JobConfig[P]
	gate     TriggerGate
	onChange func()

	mu      sync.Mutex
	state   model.AnalysisState[P]
	history []model.Phase
	closed  bool

	doneOnce sync.Once
	done     chan struct{}
}

// NewJob creates an idle job. onChange, if set, is called after every phase
// transition without any job lock held.
func NewJob[P any](cfg JobConfig[P], onChange func()) *Job[P] {
	return &Job[P]{
		cfg:      cfg,
		onChange: onChange,
		state:    model.AnalysisState[P]{Phase: model.PhaseIdle},
		history:  []model.Phase{model.PhaseIdle},
		done:     make(chan struct{}),
	}
}

// Trigger starts the job if it has not run yet and returns its state. The
// phases after preparing advance asynchronously; run is called once the job
// reaches analyzing and is never retried.
func (j *Job[P]) Trigger(ctx context.Context, run func(ctx context.Context) (*P, error)) model.AnalysisState[P] {
	j.mu.Lock()
	if j.closed || !j.gate.Acquire() {
		st := j.snapshot()
		j.mu.Unlock()
		return st
	}
	j.state.Triggered = true
	j.mu.Unlock()

	j.advance(model.PhasePreparing, nil, "")
	st := j.State()
	go j.execute(ctx, run)
	return st
}

func (j *Job[P]) execute(ctx context.Context, run func(ctx context.Context) (*P, error)) {
	defer j.finish()
	log := zap.L().With(zap.String("job", j.cfg.Name))

	if j.cfg.Offline {
		demo := j.copyPayload(j.cfg.Demo)
		j.advance(model.PhaseComplete, &demo, "")
		return
	}

	if err := sleepCtx(ctx, j.cfg.Pacing.Preparing); err != nil {
		j.fail(log, err)
		return
	}
	j.advance(model.PhaseFetchingData, nil, "")

	if err := sleepCtx(ctx, j.cfg.Pacing.FetchingData); err != nil {
		j.fail(log, err)
		return
	}
	if !j.advance(model.PhaseAnalyzing, nil, "") {
		return
	}

	payload, err := run(ctx)
	if err == nil && payload == nil {
		err = eris.New("provider returned no payload")
	}
	if err != nil {
		j.fail(log, err)
		return
	}
	j.advance(model.PhaseComplete, payload, "")
}

func (j *Job[P]) fail(log *zap.Logger, err error) {
	log.Warn("pipeline: analysis failed, using fallback", zap.Error(err))
	fallback := j.copyPayload(j.cfg.Fallback)
	j.advance(model.PhaseError, &fallback, err.Error())
}

// advance moves the job forward. It is a no-op for closed jobs and for
// backward or repeated phases.
func (j *Job[P]) advance(next model.Phase, payload *P, errMsg string) bool {
	j.mu.Lock()
	if j.closed || !j.state.Phase.CanAdvanceTo(next) {
		j.mu.Unlock()
		return false
	}
	j.state.Phase = next
	if payload != nil {
		j.state.Payload = payload
	}
	j.state.Error = errMsg
	j.history = append(j.history, next)
	j.mu.Unlock()

	zap.L().Debug("pipeline: analysis phase",
		zap.String("job", j.cfg.Name),
		zap.String("phase", string(next)),
	)
	if j.onChange != nil {
		j.onChange()
	}
	return true
}

func (j *Job[P]) finish() {
	j.doneOnce.Do(func() { close(j.done) })
}

// State returns a snapshot of the job state.
func (j *Job[P]) State() model.AnalysisState[P] {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.snapshot()
}

// snapshot copies the state. Callers hold j.mu.
func (j *Job[P]) snapshot() model.AnalysisState[P] {
	st := j.state
	if st.Payload != nil {
		p := j.copyPayload(*st.Payload)
		st.Payload = &p
	}
	return st
}

func (j *Job[P]) copyPayload(p P) P {
	if j.cfg.Clone != nil {
		return j.cfg.Clone(p)
	}
	return p
}

// History returns every phase the job has entered, in order.
func (j *Job[P]) History() []model.Phase {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]model.Phase(nil), j.history...)
}

// Triggered reports whether Trigger has started the job.
func (j *Job[P]) Triggered() bool {
	return j.gate.Fired()
}

// Done is closed when the job reaches a terminal phase or is closed.
func (j *Job[P]) Done() <-chan struct{} {
	return j.done
}

// Close freezes the job; any result arriving later is dropped.
func (j *Job[P]) Close() {
	j.mu.Lock()
	j.closed = true
	j.mu.Unlock()
	j.finish()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
