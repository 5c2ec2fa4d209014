// internal/broadcast/hub.go
//
// Hub fans announcements out to connected recipients.
//
// Delivery rules:
//   - Broadcast only enqueues; Run drains the queue on its own goroutine.
//   - Each send is paced by a token-bucket limiter (golang.org/x/time/rate).
//   - Rich (Markdown) text is tried first, then plain text.
//   - A recipient that fails both is removed and reported to OnDrop.

package broadcast

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// ErrRichUnsupported is returned by recipients that only accept plain text.
var ErrRichUnsupported = errors.New("broadcast: recipient does not accept markdown")

// Recipient is one delivery target.
type Recipient interface {
	ID() string
	// Channel is the origin channel the recipient listens for, 0 if none.
	Channel() int64
	Send(ctx context.Context, text string, markdown bool) error
}

// Hub is a Broadcaster over a dynamic set of recipients.
type Hub struct {
	mu         sync.RWMutex
	recipients map[string]Recipient
	queue      chan Message
	limiter    *rate.Limiter
	onDrop     func(Recipient)
	log        zerolog.Logger
}

// NewHub creates a hub that sends at most perSecond messages per second
// (bursting up to 5). A non-positive rate disables pacing.
func NewHub(perSecond float64, logger zerolog.Logger) *Hub {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	return &Hub{
		recipients: make(map[string]Recipient),
		queue:      make(chan Message, 64),
		limiter:    rate.NewLimiter(limit, 5),
		log:        logger.With().Str("component", "hub").Logger(),
	}
}

// OnDrop registers fn to be called when a recipient is removed after a
// failed delivery. Must be set before Run.
func (h *Hub) OnDrop(fn func(Recipient)) { h.onDrop = fn }

// Add registers r, replacing any recipient with the same ID.
func (h *Hub) Add(r Recipient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.recipients[r.ID()] = r
}

// Remove unregisters the recipient with the given ID.
func (h *Hub) Remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.recipients, id)
}

// Len reports the number of registered recipients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.recipients)
}

// Broadcast queues m for delivery. If the queue is full the message is
// dropped and logged.
func (h *Hub) Broadcast(ctx context.Context, m Message) {
	select {
	case h.queue <- m:
	default:
		h.log.Warn().Str("kind", string(m.Kind)).Msg("broadcast queue full, message dropped")
	}
}

// Run delivers queued messages until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-h.queue:
			h.deliver(ctx, m)
		}
	}
}

// snapshot returns the recipients sorted by ID.
func (h *Hub) snapshot() []Recipient {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Recipient, 0, len(h.recipients))
	for _, r := range h.recipients {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

func (h *Hub) deliver(ctx context.Context, m Message) {
	for _, r := range h.snapshot() {
		if err := h.limiter.Wait(ctx); err != nil {
			return
		}
		if err := h.sendOne(ctx, r, m); err != nil {
			h.log.Warn().Err(err).Str("recipient", r.ID()).Msg("delivery failed, dropping recipient")
			h.Remove(r.ID())
			if h.onDrop != nil {
				h.onDrop(r)
			}
		}
	}
}

// sendOne tries rich text first and falls back to plain text.
func (h *Hub) sendOne(ctx context.Context, r Recipient, m Message) error {
	err := r.Send(ctx, m.Text, true)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrRichUnsupported) {
		h.log.Debug().Err(err).Str("recipient", r.ID()).Msg("rich delivery failed, retrying as plain text")
	}
	return r.Send(ctx, StripMarkdown(m.Text), false)
}
