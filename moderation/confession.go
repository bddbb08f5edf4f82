package moderation

import "fmt"

// Minimum length for a user-submitted confession, in characters
// (runes). Admin submissions are exempt.
const MinConfessionLength = 60

// Author identifies a submitter. Only the ID is required; Username
// and DisplayName are filled in when the transport knows them and are
// only ever shown to privileged moderators.
type Author struct {
	ID          int64
	Username    string
	DisplayName string
}

// A single submission awaiting (or having received) a moderation verdict.
//
// The Author field is retained only so the verdict can be delivered
// back; it is never included in fan-out notices to non-privileged
// moderators.
type Confession struct {
	ID             string
	Text           string
	Author         Author
	AdminSubmitted bool
}

// SubmissionMeta carries the transport-level context of an incoming
// message: who sent it, and the message id used to derive a stable
// confession id.
type SubmissionMeta struct {
	MessageID int64
	Author    Author
}

// Confession ids are derived from (message id, author id) so that a
// re-delivered update produces the same id instead of a duplicate
// record. The prefix distinguishes admin-authored submissions.
func userConfessionID(messageID, authorID int64) string {
	return fmt.Sprintf("user_%d_%d", messageID, authorID)
}

func adminConfessionID(messageID, authorID int64) string {
	return fmt.Sprintf("admin_%d_%d", messageID, authorID)
}
