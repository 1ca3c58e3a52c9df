package rating

import (
	"errors"
	"fmt"
)

// Disposition is a voter's standing on a target. The zero value is neutral
// (no vote row).
type Disposition int

const (
	None    Disposition = 0
	Like    Disposition = 1
	Dislike Disposition = -1
)

func (d Disposition) String() string {
	switch d {
	case None:
		return "none"
	case Like:
		return "like"
	case Dislike:
		return "dislike"
	default:
		return fmt.Sprintf("disposition(%d)", int(d))
	}
}

// Button identifies which control the client pressed.
type Button string

const (
	LikeButton    Button = "like-button"
	DislikeButton Button = "dislike-button"
)

// ParseButton accepts only the two wire names.
func ParseButton(s string) (Button, bool) {
	switch Button(s) {
	case LikeButton, DislikeButton:
		return Button(s), true
	default:
		return "", false
	}
}

// Transition is the outcome of an accepted vote action.
type Transition struct {
	Delta int
	Next  Disposition
}

type move struct {
	current Disposition
	button  Button
	intent  int
}

// transitions is the complete set of legal moves. Anything not listed is a
// forged or stale action and must be dropped.
var transitions = map[move]Transition{
	{None, LikeButton, +1}:    {Delta: +1, Next: Like},
	{None, DislikeButton, -1}: {Delta: -1, Next: Dislike},

	{Like, LikeButton, -1}:    {Delta: -1, Next: None},
	{Like, DislikeButton, -2}: {Delta: -2, Next: Dislike},

	{Dislike, DislikeButton, +1}: {Delta: +1, Next: None},
	{Dislike, LikeButton, +2}:    {Delta: +2, Next: Like},
}

// Decide looks up the action in the transition table. ok is false when the
// action is not legal from the current disposition.
func Decide(current Disposition, button Button, intent int) (t Transition, ok bool) {
	t, ok = transitions[move{current: current, button: button, intent: intent}]
	return t, ok
}

// ErrIllegalTransition is returned by storage layers when Decide rejects an
// action, so the surrounding transaction rolls back untouched.
var ErrIllegalTransition = errors.New("illegal vote transition")
