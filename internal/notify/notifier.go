// Package notify fans change events out to registered subscribers. Delivery
// is best-effort: the triggering operation never learns about, or waits on,
// subscriber outcomes.
package notify

import (
	"github.com/rs/zerolog"

	"github.com/joshuasalcedo-dev/fx/internal/database"
)

// Subscriber receives entry lifecycle events. Implementations must return
// quickly; anything slow belongs behind the implementation's own queue.
type Subscriber interface {
	EntryCreated(entry *database.ClipboardEntry)
	EntryUpdated(entry *database.ClipboardEntry)
	EntryDeleted(id int64)
	Cleared(includePinned bool)
}

// Notifier broadcasts to a fixed set of subscribers registered at
// construction. Zero subscribers is fine. A panicking subscriber is isolated
// and never propagates to the caller.
type Notifier struct {
	subscribers []Subscriber
	log         zerolog.Logger
}

func NewNotifier(log zerolog.Logger, subscribers ...Subscriber) *Notifier {
	return &Notifier{
		subscribers: subscribers,
		log:         log.With().Str("component", "notify").Logger(),
	}
}

func (n *Notifier) EntryCreated(entry *database.ClipboardEntry) {
	n.each(func(s Subscriber) { s.EntryCreated(entry) })
}

func (n *Notifier) EntryUpdated(entry *database.ClipboardEntry) {
	n.each(func(s Subscriber) { s.EntryUpdated(entry) })
}

func (n *Notifier) EntryDeleted(id int64) {
	n.each(func(s Subscriber) { s.EntryDeleted(id) })
}

func (n *Notifier) Cleared(includePinned bool) {
	n.each(func(s Subscriber) { s.Cleared(includePinned) })
}

func (n *Notifier) each(deliver func(Subscriber)) {
	for _, s := range n.subscribers {
		n.deliverSafely(s, deliver)
	}
}

func (n *Notifier) deliverSafely(s Subscriber, deliver func(Subscriber)) {
	defer func() {
		if r := recover(); r != nil {
			n.log.Error().Interface("panic", r).Msg("subscriber panicked during delivery")
		}
	}()
	deliver(s)
}
