package game

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	c = StatusCorrect
	p = StatusPresent
	a = StatusAbsent
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name   string
		guess  string
		target string
		want   Feedback
	}{
		{"one letter off", "MOUSE", "HOUSE", Feedback{a, c, c, c, c}},
		{"middle letter off", "HORSE", "HOUSE", Feedback{c, c, a, c, c}},
		{"exact", "house", "HOUSE", Feedback{c, c, c, c, c}},
		{"duplicate E in guess and target", "SPEED", "ERASE", Feedback{p, a, p, p, a}},
		{"duplicate L both present", "LLAMA", "HELLO", Feedback{p, p, a, a, a}},
		{"correct consumes before present", "EERIE", "THERE", Feedback{p, a, p, a, c}},
		{"no shared letters", "BUMPY", "CHESS", Feedback{a, a, a, a, a}},
		{"surrounding whitespace", "  crane ", "REACT", Feedback{p, p, c, a, p}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(tt.guess, tt.target)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateInvalidInput(t *testing.T) {
	for _, pair := range [][2]string{
		{"MOUS", "HOUSE"},
		{"MOUSES", "HOUSE"},
		{"MO1SE", "HOUSE"},
		{"MOUSE", "HOUS"},
		{"", "HOUSE"},
		{"MÖUSE", "HOUSE"},
		{" mouse ", "HOUSE"},
		{"MOUSE", " house"},
		{"ſpeed", "SPEED"},
		{"SPEED", "ſpeed"},
	} {
		_, err := Evaluate(pair[0], pair[1])
		assert.ErrorIs(t, err, ErrInvalidInput, "%q vs %q", pair[0], pair[1])
	}
}

func TestNormalize(t *testing.T) {
	w, err := Normalize("mOuSe")
	require.NoError(t, err)
	assert.Equal(t, "MOUSE", w)

	for _, in := range []string{" MOUSE", "MOUSE\n", "ſpeed", "ｍｏｕｓｅ"} {
		_, err := Normalize(in)
		assert.ErrorIs(t, err, ErrInvalidInput, "%q", in)
	}
}

func TestEvaluateNeverOverCredits(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	// A small alphabet forces many duplicate letters.
	word := func() string {
		b := make([]byte, WordLength)
		for i := range b {
			b[i] = "AEST"[rng.Intn(4)]
		}
		return string(b)
	}

	for i := 0; i < 5000; i++ {
		guess, target := word(), word()
		fb, err := Evaluate(guess, target)
		require.NoError(t, err)
		require.Len(t, fb, WordLength)

		credited := map[byte]int{}
		inTarget := map[byte]int{}
		for j := 0; j < WordLength; j++ {
			inTarget[target[j]]++
			if fb[j] != StatusAbsent {
				credited[guess[j]]++
			}
			if fb[j] == StatusCorrect {
				assert.Equal(t, target[j], guess[j])
			}
		}
		for letter, n := range credited {
			assert.LessOrEqual(t, n, inTarget[letter], "%s vs %s", guess, target)
		}

		again, err := Evaluate(guess, target)
		require.NoError(t, err)
		assert.Equal(t, fb, again)
	}
}

func TestFeedbackHelpers(t *testing.T) {
	fb := Feedback{c, p, a, c, c}
	assert.False(t, fb.Solved())
	assert.True(t, Feedback{c, c, c, c, c}.Solved())
	assert.Equal(t, "🟩🟨⬜🟩🟩", fb.Emoji())
	assert.Equal(t, []string{"correct", "present", "absent", "correct", "correct"}, fb.Strings())
}
