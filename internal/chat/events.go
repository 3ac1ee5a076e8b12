package chat

import "github.com/rubihq/chat-sync/internal/models"

// engineEvent is one unit of work for the engine loop. Every event is
// stamped with the scope generation it was produced under; the loop drops
// events whose generation is no longer current.
type engineEvent interface {
	eventGen() uint64
	// discard is called instead of handling when the event arrived stale.
	// Most events have nothing to release.
	discard()
}

type genStamp struct {
	gen uint64
}

func (g genStamp) eventGen() uint64 { return g.gen }
func (genStamp) discard()           {}

type scopeChanged struct {
	genStamp
	scope models.Scope
}

type subscribed struct {
	genStamp
	sub Subscription
	err error
}

// discard releases a subscription that raced a scope switch: nobody else
// holds the handle anymore.
func (s subscribed) discard() {
	if s.sub != nil {
		s.sub.Unsubscribe()
	}
}

type seeded struct {
	genStamp
	messages  []models.Message
	reactions []models.Reaction
	err       error
}

type messageArrived struct {
	genStamp
	change models.MessageChange
}

type reactionArrived struct {
	genStamp
	change models.ReactionChange
}

type presenceSynced struct {
	genStamp
	snapshot []models.PresenceState
}

type streamResumed struct {
	genStamp
}

type reconcileExpired struct {
	genStamp
	token string
}

// provisionalQueued carries an optimistic send into the loop. Stamping it
// like stream events closes the race where a send issued just before a scope
// switch would land its provisional in the new scope.
type provisionalQueued struct {
	genStamp
	message models.Message
}

type sendFailed struct {
	genStamp
	token string
}

type reactionQueued struct {
	genStamp
	reaction models.Reaction
}

type composeChanged struct {
	genStamp
	composing bool
}
