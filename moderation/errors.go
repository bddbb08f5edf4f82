package moderation

import (
	"errors"
	"fmt"
)

// Actor lacks the role required for the attempted action. Also
// returned when the ban gate cannot be consulted, so a store outage
// never silently admits a banned user.
var ErrNotAuthorized = errors.New("not authorized for this action")

// Submitter (or actor) is present in the ban registry.
var ErrBanned = errors.New("user is banned")

// The confession already reached a terminal outcome.
var ErrAlreadyResolved = errors.New("confession already handled")

// The confession is not in the pending set: either it never existed,
// or another moderator claimed it first. Rendered the same as
// ErrAlreadyResolved for users.
var ErrAlreadyClaimed = errors.New("confession already claimed")

// Moderators may not submit confessions through the plain free-text path.
var ErrModeratorSubmission = errors.New("moderators must use the admin submission command")

// Submission below the minimum length. Carries the current length
// and the deficit so the caller can render guidance.
type TooShortError struct {
	Length  int
	Deficit int
}

func (e *TooShortError) Error() string {
	return fmt.Sprintf("confession too short: %d characters, %d more needed", e.Length, e.Deficit)
}

// A transport call failed. Fatal for publish (the claim is rolled
// back); best-effort everywhere else.
type DeliveryError struct {
	Op  string
	Err error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("delivery failed (%s): %v", e.Op, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
