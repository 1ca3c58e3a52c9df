package rating

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecide_LegalMoves(t *testing.T) {
	cases := []struct {
		name      string
		current   Disposition
		button    Button
		intent    int
		wantDelta int
		wantNext  Disposition
	}{
		{"neutral_like", None, LikeButton, 1, 1, Like},
		{"neutral_dislike", None, DislikeButton, -1, -1, Dislike},
		{"like_retract", Like, LikeButton, -1, -1, None},
		{"like_switch", Like, DislikeButton, -2, -2, Dislike},
		{"dislike_retract", Dislike, DislikeButton, 1, 1, None},
		{"dislike_switch", Dislike, LikeButton, 2, 2, Like},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Decide(tc.current, tc.button, tc.intent)
			assert.True(t, ok)
			assert.Equal(t, tc.wantDelta, got.Delta)
			assert.Equal(t, tc.wantNext, got.Next)
		})
	}
}

func TestDecide_RejectsEverythingElse(t *testing.T) {
	legal := map[move]bool{}
	for m := range transitions {
		legal[m] = true
	}

	var rejected int
	for _, current := range []Disposition{None, Like, Dislike} {
		for _, button := range []Button{LikeButton, DislikeButton, "", "upvote"} {
			for intent := -5; intent <= 5; intent++ {
				m := move{current, button, intent}
				_, ok := Decide(current, button, intent)
				assert.Equal(t, legal[m], ok, "current=%s button=%q intent=%d", current, button, intent)
				if !ok {
					rejected++
				}
			}
		}
	}
	assert.Equal(t, 3*4*11-len(transitions), rejected)
}

func TestDecide_ForgedIntents(t *testing.T) {
	cases := []struct {
		name    string
		current Disposition
		button  Button
		intent  int
	}{
		{"neutral_double_like", None, LikeButton, 2},
		{"neutral_like_button_negative", None, LikeButton, -1},
		{"neutral_huge_delta", None, LikeButton, 1000},
		{"like_again_positive", Like, LikeButton, 1},
		{"like_dislike_single_step", Like, DislikeButton, -1},
		{"dislike_again_negative", Dislike, DislikeButton, -1},
		{"dislike_like_single_step", Dislike, LikeButton, 1},
		{"zero_intent", None, LikeButton, 0},
		{"unknown_disposition", Disposition(7), LikeButton, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, ok := Decide(tc.current, tc.button, tc.intent)
			assert.False(t, ok)
		})
	}
}

// The delta of every legal move equals the rating change implied by moving
// from the current disposition to the next one.
func TestDecide_DeltaMatchesDispositionChange(t *testing.T) {
	for m, tr := range transitions {
		assert.Equal(t, int(tr.Next)-int(m.current), tr.Delta, "move %+v", m)
		assert.Equal(t, m.intent, tr.Delta, "move %+v", m)
	}
}

func TestParseButton(t *testing.T) {
	b, ok := ParseButton("like-button")
	assert.True(t, ok)
	assert.Equal(t, LikeButton, b)

	b, ok = ParseButton("dislike-button")
	assert.True(t, ok)
	assert.Equal(t, DislikeButton, b)

	_, ok = ParseButton("Like-Button")
	assert.False(t, ok)
	_, ok = ParseButton("")
	assert.False(t, ok)
}
