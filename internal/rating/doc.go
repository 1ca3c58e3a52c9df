// Package rating holds the pure voting rules: the closed transition table that
// decides whether a like/dislike action is legal for a voter's current
// disposition, and the display formatter for ratings.
//
// Nothing here touches storage. Callers read the current disposition, ask
// Decide for a Transition and then apply Transition.Delta to the target's
// rating and Transition.Next to the vote row inside one transaction.
package rating
