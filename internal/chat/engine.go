package chat

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/carousell/ct-go/pkg/logger/log_context"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rubihq/chat-sync/internal/models"
	"github.com/rubihq/chat-sync/pkg/util"
	"golang.org/x/sync/errgroup"
)

// EngineParams carries the session identity and tuning knobs. Identity is
// always passed in explicitly; the engine reads nothing ambient.
type EngineParams struct {
	SelfID           string
	DefaultRoom      string
	ReconcileTimeout time.Duration
	TypingTTL        time.Duration
}

// Engine is the synchronization core for one chat session. Three producers
// feed it: the change stream, the presence channel, and local user actions.
// All state transitions are applied by a single loop goroutine; every event
// carries the scope generation it was requested under and is silently
// dropped when that generation is no longer current.
type Engine struct {
	selfID           string
	reconcileTimeout time.Duration

	stream       ChangeStream
	messages     MessageQuerier
	reactionsAPI ReactionQuerier

	msgLog    *MessageLog
	reactions *ReactionIndex
	presence  *PresenceTracker

	events chan engineEvent
	gen    atomic.Uint64

	scopeMu sync.Mutex
	scope   models.Scope

	composeMu sync.Mutex
	composing bool

	degraded atomic.Bool

	// Loop-owned fields, touched only from Run.
	sub         Subscription
	scopeCtx    context.Context
	scopeCancel context.CancelFunc

	metrics engineMetrics
}

func NewEngine(
	p EngineParams,
	stream ChangeStream,
	messages MessageQuerier,
	reactions ReactionQuerier,
) (*Engine, error) {
	metrics, err := newEngineMetrics()
	if err != nil {
		return nil, err
	}
	return &Engine{
		selfID:           p.SelfID,
		reconcileTimeout: p.ReconcileTimeout,
		stream:           stream,
		messages:         messages,
		reactionsAPI:     reactions,
		msgLog:           NewMessageLog(),
		reactions:        NewReactionIndex(),
		presence:         NewPresenceTracker(p.TypingTTL),
		events:           make(chan engineEvent, 256),
		scope:            models.Scope{RoomID: p.DefaultRoom},
		metrics:          metrics,
	}, nil
}

// Run drives the engine loop until ctx is cancelled. It activates the
// initial scope first, so callers only need to start it.
func (e *Engine) Run(ctx context.Context) {
	log.Infow(ctx, "chat engine started", "user_id", e.selfID)
	e.SetScope(e.Scope())
	for {
		select {
		case <-ctx.Done():
			e.teardown()
			return
		case ev := <-e.events:
			if ev.eventGen() != e.gen.Load() {
				ev.discard()
				e.metrics.staleEvents.Inc()
				continue
			}
			e.handle(ctx, ev)
		}
	}
}

// SetScope switches the active (room, search) pair. The old scope's
// subscription and any in-flight seed query are cancelled; their late
// results carry a stale generation and are discarded on arrival.
func (e *Engine) SetScope(scope models.Scope) {
	e.scopeMu.Lock()
	e.scope = scope
	e.scopeMu.Unlock()
	gen := e.gen.Add(1)
	e.post(scopeChanged{genStamp{gen}, scope})
}

// Scope returns the currently requested scope.
func (e *Engine) Scope() models.Scope {
	e.scopeMu.Lock()
	defer e.scopeMu.Unlock()
	return e.scope
}

// Messages returns the ordered message snapshot for the active scope.
func (e *Engine) Messages() []models.Message {
	return e.msgLog.Query()
}

// ReactionsFor returns the reactions on one message.
func (e *Engine) ReactionsFor(messageID string) []models.Reaction {
	return e.reactions.ByMessage(messageID)
}

// TypingUsers returns who is typing right now, excluding the local identity.
func (e *Engine) TypingUsers() []string {
	return e.presence.Typing(e.selfID)
}

// Degraded reports whether the active scope could not be (re)seeded. The
// flag clears on the next successful seed or scope switch.
func (e *Engine) Degraded() bool {
	return e.degraded.Load()
}

func (e *Engine) post(ev engineEvent) {
	e.events <- ev
}

func (e *Engine) handle(ctx context.Context, ev engineEvent) {
	switch ev := ev.(type) {
	case scopeChanged:
		e.switchScope(ctx, ev)
	case subscribed:
		if ev.err != nil {
			e.degraded.Store(true)
			log.Errorw(ctx, "subscribe failed, scope degraded", "error", ev.err)
			return
		}
		e.sub = ev.sub
		e.trackPresence(e.composingState())
	case seeded:
		e.applySeed(ctx, ev)
	case messageArrived:
		e.applyMessage(ev.change)
	case reactionArrived:
		e.metrics.streamEvents.WithLabelValues("reaction").Inc()
		e.reactions.Upsert(ev.change.Reaction)
	case presenceSynced:
		e.metrics.streamEvents.WithLabelValues("presence").Inc()
		e.presence.ApplySnapshot(ev.snapshot)
	case streamResumed:
		// The stream cannot replay what the gap swallowed; correctness comes
		// from reseeding the whole scope.
		log.Warnw(ctx, "stream resumed after gap, reseeding",
			"scope", e.Scope(), "cause", models.ErrSubscriptionLost)
		e.metrics.reseeds.Inc()
		go e.runSeed(e.scopeCtx, ev.eventGen(), e.Scope())
	case provisionalQueued:
		e.msgLog.Append(ev.message)
	case sendFailed:
		e.msgLog.MarkFailed(ev.token)
	case reactionQueued:
		e.reactions.Upsert(ev.reaction)
	case reconcileExpired:
		if e.msgLog.MarkFailed(ev.token) {
			e.metrics.reconcileTimeouts.Inc()
			log.Warnw(ctx, "send not confirmed before deadline, marked failed",
				"token", ev.token, "error", models.ErrReconciliationTimeout)
		}
	case composeChanged:
		e.trackPresence(models.PresenceState{
			UserID:    e.selfID,
			IsTyping:  ev.composing,
			UpdatedAt: time.Now(),
		})
	}
}

func (e *Engine) switchScope(ctx context.Context, ev scopeChanged) {
	if e.scopeCancel != nil {
		e.scopeCancel()
	}
	if e.sub != nil {
		e.sub.Unsubscribe()
		e.sub = nil
	}
	// Nothing from the old scope may leak into the new one.
	e.msgLog.Clear()
	e.reactions.Clear()
	e.presence.Clear()
	e.degraded.Store(false)

	e.scopeCtx, e.scopeCancel = context.WithCancel(ctx)
	go e.openScope(e.scopeCtx, ev.eventGen(), ev.scope)
}

func (e *Engine) openScope(ctx context.Context, gen uint64, scope models.Scope) {
	h := StreamHandlers{
		OnMessage: func(c models.MessageChange) {
			e.post(messageArrived{genStamp{gen}, c})
		},
		OnReaction: func(c models.ReactionChange) {
			e.post(reactionArrived{genStamp{gen}, c})
		},
		OnPresence: func(s []models.PresenceState) {
			e.post(presenceSynced{genStamp{gen}, s})
		},
		OnReconnect: func() {
			e.post(streamResumed{genStamp{gen}})
		},
	}
	sub, err := e.stream.Subscribe(ctx, scope, h)
	e.post(subscribed{genStamp{gen}, sub, err})
	if err != nil {
		return
	}
	e.runSeed(ctx, gen, scope)
}

func (e *Engine) runSeed(ctx context.Context, gen uint64, scope models.Scope) {
	start := time.Now()
	var (
		msgs   []models.Message
		reacts []models.Reaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		msgs, err = e.messages.ListMessages(gctx, scope)
		return err
	})
	g.Go(func() error {
		var err error
		reacts, err = e.reactionsAPI.ListReactions(gctx, scope)
		return err
	})
	err := g.Wait()

	status := "ok"
	if err != nil {
		status = "error"
	}
	e.metrics.seedDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())
	e.post(seeded{genStamp{gen}, msgs, reacts, err})
}

func (e *Engine) applySeed(ctx context.Context, ev seeded) {
	if ev.err != nil {
		if errors.Is(ev.err, context.Canceled) {
			return
		}
		e.degraded.Store(true)
		log.Errorw(ctx, "scope seed failed", "error", ev.err)
		return
	}
	e.msgLog.Reset(ev.messages)
	e.reactions.Reset(ev.reactions)
	e.degraded.Store(false)
	log.Infow(ctx, "scope seeded",
		"messages", len(ev.messages), "reactions", len(ev.reactions))
}

func (e *Engine) applyMessage(c models.MessageChange) {
	// Messages are immutable once observed; only inserts matter.
	if c.Op != models.ChangeInsert {
		return
	}
	e.metrics.streamEvents.WithLabelValues("message").Inc()
	// Room scoping is enforced by the subscription; the search filter has to
	// be re-applied client-side for live inserts.
	if !e.Scope().MatchesMessage(c.Message) {
		return
	}
	e.msgLog.Append(c.Message)
}

func (e *Engine) trackPresence(state models.PresenceState) {
	if e.sub == nil {
		return
	}
	sub, ctx := e.sub, e.scopeCtx
	go func() {
		if err := sub.Track(ctx, state); err != nil && !errors.Is(err, context.Canceled) {
			log.Warnw(ctx, "presence track failed", "error", err)
		}
	}()
}

func (e *Engine) composingState() models.PresenceState {
	e.composeMu.Lock()
	defer e.composeMu.Unlock()
	return models.PresenceState{
		UserID:    e.selfID,
		IsTyping:  e.composing,
		UpdatedAt: time.Now(),
	}
}

func (e *Engine) teardown() {
	if e.scopeCancel != nil {
		e.scopeCancel()
	}
	if e.sub != nil {
		e.sub.Unsubscribe()
		e.sub = nil
	}
}

type engineMetrics struct {
	streamEvents      *prometheus.CounterVec
	staleEvents       prometheus.Counter
	reseeds           prometheus.Counter
	reconcileTimeouts prometheus.Counter
	seedDuration      *prometheus.HistogramVec
}

func newEngineMetrics() (engineMetrics, error) {
	streamEvents, err := util.GetCounterVec("chat_stream_events_consumed", "type")
	if err != nil {
		return engineMetrics{}, err
	}
	stale, err := util.GetCounter("chat_stale_scope_events_dropped")
	if err != nil {
		return engineMetrics{}, err
	}
	reseeds, err := util.GetCounter("chat_scope_reseeds")
	if err != nil {
		return engineMetrics{}, err
	}
	timeouts, err := util.GetCounter("chat_send_reconcile_timeouts")
	if err != nil {
		return engineMetrics{}, err
	}
	seed, err := util.GetHistogramVec("chat_scope_seed_duration_seconds", "status")
	if err != nil {
		return engineMetrics{}, err
	}
	return engineMetrics{
		streamEvents:      streamEvents,
		staleEvents:       stale,
		reseeds:           reseeds,
		reconcileTimeouts: timeouts,
		seedDuration:      seed,
	}, nil
}
