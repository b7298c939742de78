// Package pipeline implements the per-address enrichment session: identity
// resolution, the dependent lookups, the data-loaded barrier and the two
// analysis jobs that follow it.
package pipeline

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/property-report/internal/gateway"
	"github.com/sells-group/property-report/internal/model"
	"github.com/sells-group/property-report/internal/narrative"
)

var (
	errNoProviderID = eris.New("pipeline: identity has no provider id")
	errNoPostalCode = eris.New("pipeline: address has no postal code")
)

// IdentitySink stores freshly fetched identities for later sessions.
type IdentitySink interface {
	PutIdentity(ctx context.Context, key string, identity *model.PropertyIdentity, ttl time.Duration) error
}

// Options configures sessions.
type Options struct {
	Gateway   gateway.Gateway
	Narrative narrative.Provider
	Canned    *narrative.Canned
	Sink      IdentitySink // optional

	Pacing  Pacing
	Offline bool

	LookupTimeout time.Duration // applied to every dependent lookup
	ImagesTimeout time.Duration // passed to the images lookup
	Grace         time.Duration // debounce before data loading is declared complete
	CacheTTL      time.Duration

	// OnDataLoaded is called once per session when data loading completes.
	OnDataLoaded func(View)
}

// Request is one address submission.
type Request struct {
	Address       string
	Questionnaire model.Questionnaire
	Cached        *model.PropertyIdentity // prefetched identity, optional
}

// Session owns all state for one address. It is never reused: a new address
// gets a new Session and the old one is closed.
type Session struct {
	ID string

	req  Request
	opts Options
	log  *zap.Logger

	summary   *Job[model.SummaryPayload]
	valuation *Job[model.ValuationPayload]

	mu                  sync.Mutex
	result              model.EnrichmentResult
	status              Status
	errMsg              string
	dataLoadingComplete bool
	closed              bool
	cancel              context.CancelFunc
	ctx                 context.Context

	subsMu  sync.Mutex
	subs    map[int]chan View
	nextSub int

	runOnce sync.Once
	settled chan struct{}
}

// NewSession creates an idle session. Call Run to start it.
func NewSession(req Request, opts Options) *Session {
	if opts.Canned == nil {
		opts.Canned = narrative.DefaultCanned()
	}
	req.Address = strings.TrimSpace(req.Address)

	s := &Session{
		ID:      uuid.New().String(),
		req:     req,
		opts:    opts,
		status:  StatusLoading,
		subs:    make(map[int]chan View),
		settled: make(chan struct{}),
	}
	s.log = zap.L().With(zap.String("session_id", s.ID), zap.String("address", req.Address))
	s.summary = newSummaryJob(opts, s.notify)
	s.valuation = newValuationJob(opts, s.notify)
	return s
}

// Run resolves the identity, runs the dependent lookups, waits out the
// grace interval, marks data loading complete and triggers the analysis
// jobs. It returns once the jobs are triggered; they finish asynchronously.
// ctx bounds the whole session including the jobs. Run is a no-op after the
// first call.
func (s *Session) Run(ctx context.Context) {
	s.runOnce.Do(func() {
		defer close(s.settled)
		s.run(ctx)
	})
}

func (s *Session) run(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		cancel()
		return
	}
	s.ctx, s.cancel = ctx, cancel
	s.mu.Unlock()

	s.log.Info("pipeline: session started")

	identity, ok := s.resolveIdentity(ctx)
	if !ok {
		return
	}

	s.fetchDependents(ctx, identity)

	if err := sleepCtx(ctx, s.opts.Grace); err != nil {
		return
	}
	if !s.markDataLoaded() {
		return
	}
	s.TriggerAnalysis()
}

func (s *Session) resolveIdentity(ctx context.Context) (*model.PropertyIdentity, bool) {
	if cached := s.req.Cached; cached != nil && Reconcile(cached.Address, s.req.Address).Reuse {
		id := *cached
		s.log.Info("pipeline: reusing cached identity", zap.String("cached_address", cached.Address))
		s.setIdentity(&id, model.IdentityFromCache)
		return &id, true
	}

	start := time.Now()
	id, err := s.opts.Gateway.FetchPropertyIdentity(ctx, s.req.Address)
	if err != nil {
		s.log.Warn("pipeline: identity lookup failed",
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.Error(err),
		)
		s.setNoData()
		return nil, false
	}
	if !s.setIdentity(id, model.IdentityFromLookup) {
		return nil, false
	}

	if s.opts.Sink != nil {
		key := NormalizeAddress(s.req.Address)
		if err := s.opts.Sink.PutIdentity(ctx, key, id, s.opts.CacheTTL); err != nil {
			s.log.Warn("pipeline: failed to cache identity", zap.Error(err))
		}
	}
	return id, true
}

// fetchDependents runs the four dependent lookups concurrently. Each records
// its own outcome; none returns an error to the group, so a failure never
// cancels a sibling.
func (s *Session) fetchDependents(ctx context.Context, id *model.PropertyIdentity) {
	gw := s.opts.Gateway
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.lookup(gCtx, model.LookupImages, s.imagesTimeout(), func(ctx context.Context) error {
			if !id.HasProviderID() {
				return errNoProviderID
			}
			images, err := gw.FetchPropertyImages(ctx, id.ProviderID, s.opts.ImagesTimeout)
			if err != nil {
				return err
			}
			s.update(func(r *model.EnrichmentResult) { r.Images = images })
			return nil
		})
		return nil
	})

	g.Go(func() error {
		s.lookup(gCtx, model.LookupComparables, s.opts.LookupTimeout, func(ctx context.Context) error {
			if !id.HasProviderID() {
				return errNoProviderID
			}
			comps, err := gw.FetchComparables(ctx, id.ProviderID)
			if err != nil {
				return err
			}
			s.update(func(r *model.EnrichmentResult) { r.Comparables = comps })
			return nil
		})
		return nil
	})

	g.Go(func() error {
		s.lookup(gCtx, model.LookupMarket, s.opts.LookupTimeout, func(ctx context.Context) error {
			zip := id.PostalCode(s.req.Address)
			if zip == "" {
				return errNoPostalCode
			}
			stats, err := gw.FetchMarketStatistics(ctx, zip)
			if err != nil {
				return err
			}
			s.update(func(r *model.EnrichmentResult) { r.Market = stats })
			return nil
		})
		return nil
	})

	g.Go(func() error {
		s.lookup(gCtx, model.LookupValuation, s.opts.LookupTimeout, func(ctx context.Context) error {
			if !id.HasProviderID() {
				return errNoProviderID
			}
			series, err := gw.FetchValuationSeries(ctx, id.ProviderID)
			if err != nil {
				return err
			}
			s.update(func(r *model.EnrichmentResult) { r.Valuation = series })
			return nil
		})
		return nil
	})

	_ = g.Wait()
}

// imagesTimeout bounds the images lookup by the tighter of its own timeout
// and the uniform lookup timeout.
func (s *Session) imagesTimeout() time.Duration {
	t := s.opts.LookupTimeout
	if it := s.opts.ImagesTimeout; it > 0 && (t <= 0 || it < t) {
		t = it
	}
	return t
}

func (s *Session) lookup(ctx context.Context, name model.LookupName, timeout time.Duration, fn func(ctx context.Context) error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	err := fn(ctx)
	duration := time.Since(start).Milliseconds()

	outcome := model.LookupOutcome{Name: name, Status: model.LookupStatusComplete, Duration: duration}
	if err != nil {
		outcome.Status = model.LookupStatusFailed
		outcome.Error = err.Error()
		s.log.Warn("pipeline: lookup failed",
			zap.String("lookup", string(name)),
			zap.Int64("duration_ms", duration),
			zap.Error(err),
		)
	} else {
		s.log.Info("pipeline: lookup complete",
			zap.String("lookup", string(name)),
			zap.Int64("duration_ms", duration),
		)
	}
	s.update(func(r *model.EnrichmentResult) { r.Lookups = append(r.Lookups, outcome) })
}

// update applies fn to the result unless the session is closed or data
// loading has already completed.
func (s *Session) update(fn func(r *model.EnrichmentResult)) bool {
	s.mu.Lock()
	if s.closed || s.dataLoadingComplete {
		s.mu.Unlock()
		return false
	}
	fn(&s.result)
	s.mu.Unlock()
	s.notify()
	return true
}

func (s *Session) setIdentity(id *model.PropertyIdentity, source model.IdentitySource) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.result.Identity = id
	s.result.IdentitySource = source
	s.status = StatusReady
	s.mu.Unlock()
	s.notify()
	return true
}

func (s *Session) setNoData() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.status = StatusNoData
	s.errMsg = NoDataMessage
	s.mu.Unlock()
	s.notify()
}

// markDataLoaded flips dataLoadingComplete exactly once.
func (s *Session) markDataLoaded() bool {
	s.mu.Lock()
	if s.closed || s.dataLoadingComplete {
		s.mu.Unlock()
		return false
	}
	s.dataLoadingComplete = true
	s.mu.Unlock()

	s.log.Info("pipeline: data loading complete")
	s.notify()
	if s.opts.OnDataLoaded != nil {
		s.opts.OnDataLoaded(s.View())
	}
	return true
}

// TriggerAnalysis starts whichever analysis jobs are eligible. It is safe to
// call any number of times; each job runs at most once per session.
func (s *Session) TriggerAnalysis() {
	s.mu.Lock()
	ready := !s.closed && s.dataLoadingComplete && s.result.Identity != nil && s.req.Address != ""
	var (
		id     model.PropertyIdentity
		series model.ValuationSeries
		ctx    = s.ctx
	)
	if ready {
		id = *s.result.Identity
		series = append(model.ValuationSeries(nil), s.result.Valuation...)
	}
	s.mu.Unlock()
	if !ready {
		return
	}

	if !s.summary.Triggered() {
		s.summary.Trigger(ctx, summaryRun(s.opts.Narrative, s.req.Address, &id, s.req.Questionnaire))
	}
	if id.HasProviderID() && !s.valuation.Triggered() {
		s.valuation.Trigger(ctx, valuationRun(s.opts.Narrative, s.req.Address, &id, series))
	}
}

// View returns a snapshot of the session.
func (s *Session) View() View {
	s.mu.Lock()
	v := View{
		SessionID:           s.ID,
		Address:             s.req.Address,
		Status:              s.status,
		Error:               s.errMsg,
		Result:              s.result.Clone(),
		DataLoadingComplete: s.dataLoadingComplete,
	}
	s.mu.Unlock()

	v.Summary = s.summary.State()
	v.Valuation = s.valuation.State()
	return v
}

// Subscribe returns a channel that receives the latest View after every
// change. Intermediate views may be skipped; the newest is always
// delivered. The channel is closed by cancel or when the session closes.
func (s *Session) Subscribe() (<-chan View, func()) {
	ch := make(chan View, 1)

	s.subsMu.Lock()
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		s.subsMu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	ch <- s.View()
	s.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subsMu.Lock()
			defer s.subsMu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
}

func (s *Session) notify() {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	if len(s.subs) == 0 {
		return
	}
	v := s.View()
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- v
	}
}

// Wait blocks until the session has settled: the run finished and every
// triggered job reached a terminal phase (or the session was closed).
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-s.settled:
	case <-ctx.Done():
		return ctx.Err()
	}
	for _, done := range []<-chan struct{}{s.summaryDone(), s.valuationDone()} {
		if done == nil {
			continue
		}
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (s *Session) summaryDone() <-chan struct{} {
	if !s.summary.Triggered() {
		return nil
	}
	return s.summary.Done()
}

func (s *Session) valuationDone() <-chan struct{} {
	if !s.valuation.Triggered() {
		return nil
	}
	return s.valuation.Done()
}

// Closed reports whether the session has been superseded or torn down.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close tears the session down: in-flight calls are cancelled, any result
// that still arrives is dropped, and subscriber channels are closed.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	cancel := s.cancel
	s.mu.Unlock()

	s.summary.Close()
	s.valuation.Close()
	if cancel != nil {
		cancel()
	}

	s.subsMu.Lock()
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	s.subsMu.Unlock()

	s.log.Info("pipeline: session closed")
}
