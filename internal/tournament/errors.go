package tournament

import "errors"

var (
	ErrNoGame            = errors.New("no game scheduled or running")
	ErrGameInProgress    = errors.New("a game is already scheduled or running")
	ErrNotJoinable       = errors.New("game is no longer accepting players")
	ErrNoActiveRound     = errors.New("no active round")
	ErrNotInDictionary   = errors.New("word is not in the dictionary")
	ErrNotParticipant    = errors.New("not an active participant")
	ErrAttemptsExhausted = errors.New("attempts exhausted for this round")
	ErrInvalidSetting    = errors.New("invalid setting")
)
