// internal/tournament/messages.go
//
// Announcement and reply texts. All of them use the light Markdown the
// broadcast hub understands; the hub strips it for plain recipients.

package tournament

import (
	"fmt"
	"strings"
	"time"

	"github.com/robalobadob/wordle-royale/internal/broadcast"
	"github.com/robalobadob/wordle-royale/internal/game"
	"github.com/robalobadob/wordle-royale/internal/store"
)

func minutes(d time.Duration) int { return int(d / time.Minute) }

func msgRegistrationOpen(regMinutes int, startsAt time.Time, prize int, t game.RoundTable) broadcast.Message {
	ladder := make([]string, len(t))
	for i, c := range t {
		ladder[i] = fmt.Sprint(c.MaxAttempts)
	}
	return broadcast.Message{Kind: broadcast.KindRegistration, Text: fmt.Sprintf(
		"🎯 *WORDLE ROYALE STARTING IN %d MINUTES!* 🎯\n\n"+
			"📅 *Start Time:* %s UTC\n"+
			"💰 *Prize:* $%d\n"+
			"⚡ *Format:* Elimination rounds (%s attempts)\n\n"+
			"Send /join to participate!\nSend /rules for game rules",
		regMinutes, startsAt.UTC().Format("15:04"), prize, strings.Join(ladder, "→"))}
}

func msgJoined(name string, total int) broadcast.Message {
	return broadcast.Message{Kind: broadcast.KindJoin, Text: fmt.Sprintf(
		"🎮 %s joined the game!\n👥 Total players: %d", name, total)}
}

func msgNoPlayers() broadcast.Message {
	return broadcast.Message{Kind: broadcast.KindCancel, Text: "😔 *Game Cancelled* - No players joined!"}
}

func msgRoundStart(cfg game.RoundConfig, active int) broadcast.Message {
	return broadcast.Message{Kind: broadcast.KindRound, Text: fmt.Sprintf(
		"🎯 *WORDLE ROYALE - ROUND %d* 🎯\n\n"+
			"Word: _ _ _ _ _\n"+
			"👥 *Players:* %d active\n"+
			"🎯 *Attempts:* %d remaining\n"+
			"⏰ *Time:* %d minutes\n\n"+
			"🔤 *Send your 5-letter guess now!*",
		cfg.Round, active, cfg.MaxAttempts, minutes(cfg.TimeLimit))}
}

func msgWarning(round, active int) broadcast.Message {
	return broadcast.Message{Kind: broadcast.KindWarning, Text: fmt.Sprintf(
		"⏰ *Time Warning!* 2 minutes remaining!\nRound %d - %d players still active", round, active)}
}

func msgRoundSummary(round, started, survived, eliminated int, next time.Duration) broadcast.Message {
	text := fmt.Sprintf(
		"⚡ *ROUND %d COMPLETE* ⚡\n\n📊 *%d started → %d survived*\n❌ *%d players eliminated*",
		round, started, survived, eliminated)
	if next > 0 {
		text += fmt.Sprintf("\n\nNext round starting in %d seconds...", int(next/time.Second))
	}
	return broadcast.Message{Kind: broadcast.KindSummary, Text: text}
}

func msgNoWinner() broadcast.Message {
	return broadcast.Message{Kind: broadcast.KindResult, Text: "😔 *No winners this round!* Better luck next time!"}
}

func msgChampion(name string, prize int, word string, eliminated int) broadcast.Message {
	return broadcast.Message{Kind: broadcast.KindResult, Text: fmt.Sprintf(
		"🏆 *WORDLE ROYALE CHAMPION!* 🏆\n\n"+
			"🎉 *Winner:* %s\n"+
			"💰 *Prize:* $%d\n\n"+
			"📊 *Final word:* %s\n"+
			"👥 *Total players eliminated:* %d\n\n"+
			"🎯 *Next game:* Check announcements!",
		name, prize, word, eliminated)}
}

func msgChampions(names []string, prize int, word string) broadcast.Message {
	return broadcast.Message{Kind: broadcast.KindResult, Text: fmt.Sprintf(
		"🏆 *WORDLE ROYALE CHAMPIONS!* 🏆\n\n"+
			"🎉 *Winners:* %s\n"+
			"💰 *Prize:* $%d (shared)\n\n"+
			"📊 *Final word:* %s\n"+
			"🔥 *All %d survivors solved the final puzzle!*\n\n"+
			"🎯 *Next game:* Check announcements!",
		strings.Join(names, ", "), prize, word, len(names))}
}

func msgCancelled() broadcast.Message {
	return broadcast.Message{Kind: broadcast.KindCancel, Text: "🛑 *Game Cancelled* - The current game was stopped by an admin."}
}

func guessReply(text string, o GuessOutcome) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Your guess:* %s\n\n%s\n\n", text, o.Feedback.Emoji())
	switch {
	case o.Feedback.Solved():
		b.WriteString("🎉 *Correct!* You've solved this round!\nWaiting for other players or round timer...")
	case o.Remaining > 0:
		fmt.Fprintf(&b, "*Attempts remaining:* %d", o.Remaining)
	default:
		b.WriteString("❌ *No attempts remaining!* You'll be eliminated if you don't solve it.")
	}
	return b.String()
}

func statusText(g store.Game, cfg game.RoundConfig, active, eliminated int) string {
	if g.Status == store.StatusScheduled {
		return fmt.Sprintf(
			"🎯 *Registration Open*\n\n👥 *Players:* %d joined\n⏰ *Starts at:* %s UTC\n\nSend /join to participate!",
			active, g.StartsAt.UTC().Format("15:04"))
	}
	return fmt.Sprintf(
		"🎯 *Current Game Status*\n\n"+
			"📊 *Round:* %d/%d\n"+
			"👥 *Active Players:* %d\n"+
			"❌ *Eliminated:* %d\n"+
			"🎯 *Max Attempts:* %d\n"+
			"⏰ *Time Limit:* %d minutes\n\n"+
			"Type your 5-letter guess to play!",
		g.CurrentRound, game.FinalRound, active, eliminated, cfg.MaxAttempts, minutes(cfg.TimeLimit))
}

// RulesText renders the rule sheet for the given round table and prize.
func RulesText(t game.RoundTable, prize int) string {
	var b strings.Builder
	b.WriteString("📋 *WORDLE ROYALE RULES* 📋\n\n🎯 *Objective:* Be the last player standing!\n\n🔄 *Round Structure:*\n")
	for _, c := range t {
		label := fmt.Sprintf("Round %d", c.Round)
		if c.Round == game.FinalRound {
			label = "Final"
		}
		plural := "s"
		if c.MaxAttempts == 1 {
			plural = ""
		}
		fmt.Fprintf(&b, "• %s: %d attempt%s, %d minutes\n", label, c.MaxAttempts, plural, minutes(c.TimeLimit))
	}
	fmt.Fprintf(&b, "\n⚡ *Elimination:* Fail to solve = eliminated\n"+
		"🏆 *Victory:* Last player wins $%d\n"+
		"🤝 *Final Round:* If all solve, prize is shared\n\n"+
		"🟩 = Correct letter & position\n"+
		"🟨 = Correct letter, wrong position\n"+
		"⬜ = Letter not in word", prize)
	return b.String()
}
