// internal/broadcast/broadcast.go
//
// One-way announcement sink used by the tournament engine.
//
// The engine calls Broadcast and moves on; delivery, formatting fallback
// and dead-recipient cleanup are handled here.
//
// Formats:
//   - Message.Text is written in light Markdown (*bold*, _italic_).
//   - Recipients that cannot render Markdown get StripMarkdown(Text).

package broadcast

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

// Kind labels what an announcement is about.
type Kind string

const (
	KindRegistration Kind = "registration"
	KindJoin         Kind = "join"
	KindRound        Kind = "round"
	KindWarning      Kind = "warning"
	KindSummary      Kind = "summary"
	KindResult       Kind = "result"
	KindCancel       Kind = "cancel"
)

// Message is one announcement.
type Message struct {
	Kind Kind   `json:"kind"`
	Text string `json:"text"`
}

// Broadcaster delivers a message to every current recipient.
// Implementations must not block the caller on per-recipient delivery.
type Broadcaster interface {
	Broadcast(ctx context.Context, m Message)
}

// markdownReplacer removes the characters the announcement text uses for markup.
var markdownReplacer = strings.NewReplacer("*", "", "_", "", "`", "", "[", "", "]", "")

// StripMarkdown returns s without Markdown emphasis characters.
func StripMarkdown(s string) string { return markdownReplacer.Replace(s) }

// ------------------------------- sinks -------------------------------------

type multi []Broadcaster

// Multi fans a message out to several broadcasters in order.
func Multi(bs ...Broadcaster) Broadcaster { return multi(bs) }

func (m multi) Broadcast(ctx context.Context, msg Message) {
	for _, b := range m {
		b.Broadcast(ctx, msg)
	}
}

// Log writes every announcement to a zerolog logger as plain text.
type Log struct {
	Logger zerolog.Logger
}

func (l Log) Broadcast(ctx context.Context, m Message) {
	l.Logger.Info().Str("kind", string(m.Kind)).Str("text", StripMarkdown(m.Text)).Msg("broadcast")
}
