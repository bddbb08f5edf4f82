package moderation

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRejectFlow(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng, transport := EngineTestFixture()
	id := submitFixtureConfession(t, eng, 42)

	// reject does not finalize: the confession is in flight, not resolved
	assert.NoError(eng.ProcessModeratorAction(ctx, TestModerator, id, ActionReject))
	assert.False(eng.Registry.IsResolved(id))
	assert.Equal(0, eng.Registry.PendingCount())

	// no other moderator can take it over
	_, err := eng.Registry.Claim(id)
	assert.ErrorIs(err, ErrAlreadyClaimed)

	// the moderator's next message is the reason, delivered to the author
	outcome, err := eng.ProcessMessage(ctx, SubmissionMeta{MessageID: 2, Author: Author{ID: TestModerator}}, "off topic")
	assert.NoError(err)
	assert.Equal(OutcomeReasonCaptured, outcome)
	assert.True(eng.Registry.IsResolved(id))
	assert.Equal(1, transport.MessagesToMatching(42, "off topic"))

	// pool is told the confession is handled
	assert.Equal(1, transport.MessagesToMatching(TestModerator2, "already handled"))
}

func TestShortReasonNeverLengthChecked(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng, transport := EngineTestFixture()
	id := submitFixtureConfession(t, eng, 42)

	require.NoError(t, eng.ProcessModeratorAction(ctx, TestModerator, id, ActionReject))

	// far below the 60-character minimum, still consumed as a reason
	outcome, err := eng.ProcessMessage(ctx, SubmissionMeta{MessageID: 2, Author: Author{ID: TestModerator}}, "no")
	assert.NoError(err)
	assert.Equal(OutcomeReasonCaptured, outcome)
	assert.Equal(1, transport.MessagesToMatching(42, "no"))
}

func TestModeratorFreeTextWithoutIntent(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng, transport := EngineTestFixture()

	outcome, err := eng.ProcessMessage(ctx, SubmissionMeta{MessageID: 2, Author: Author{ID: TestModerator}}, strings.Repeat("a", 80))
	assert.ErrorIs(err, ErrModeratorSubmission)
	assert.Equal(OutcomeNone, outcome)
	assert.Equal(0, eng.Registry.PendingCount())
	assert.Empty(transport.Notices)
}

func TestUserMessageRoutesToIntake(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng, transport := EngineTestFixture()

	outcome, err := eng.ProcessMessage(ctx, SubmissionMeta{MessageID: 2, Author: Author{ID: 42}}, strings.Repeat("a", 60))
	assert.NoError(err)
	assert.Equal(OutcomeSubmitted, outcome)
	assert.Len(transport.Notices, 3)

	outcome, err = eng.ProcessMessage(ctx, SubmissionMeta{MessageID: 3, Author: Author{ID: 43}}, "short")
	var tooShort *TooShortError
	require.ErrorAs(t, err, &tooShort)
	assert.Equal(OutcomeNone, outcome)
}

func TestRejectReasonDeliveryBestEffort(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng, transport := EngineTestFixture()
	id := submitFixtureConfession(t, eng, 42)

	require.NoError(t, eng.ProcessModeratorAction(ctx, TestModerator, id, ActionReject))

	// author unreachable: the rejection still finalizes
	transport.FailNotify[42] = true
	outcome, err := eng.ProcessMessage(ctx, SubmissionMeta{MessageID: 2, Author: Author{ID: TestModerator}}, "spam")
	assert.NoError(err)
	assert.Equal(OutcomeReasonCaptured, outcome)
	assert.True(eng.Registry.IsResolved(id))
}

func TestSecondRejectDisplacesFirst(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng, transport := EngineTestFixture()
	idA := submitFixtureConfession(t, eng, 42)
	meta := SubmissionMeta{MessageID: 2, Author: Author{ID: 43}}
	require.NoError(t, eng.ProcessSubmission(ctx, meta, strings.Repeat("b", 60)))
	idB := userConfessionID(2, 43)

	// reject A, then reject B without ever supplying A's reason
	require.NoError(t, eng.ProcessModeratorAction(ctx, TestModerator, idA, ActionReject))
	require.NoError(t, eng.ProcessModeratorAction(ctx, TestModerator, idB, ActionReject))

	// A is back in the pool, not stranded, and the moderator was told
	assert.Equal(1, eng.Registry.PendingCount())
	assert.False(eng.Registry.IsResolved(idA))
	assert.Equal(1, transport.MessagesToMatching(TestModerator, "cancelled"))
	assert.NoError(eng.ProcessModeratorAction(ctx, TestModerator2, idA, ActionAccept))

	// the next free-text message is B's reason
	outcome, err := eng.ProcessMessage(ctx, SubmissionMeta{MessageID: 3, Author: Author{ID: TestModerator}}, "duplicate")
	assert.NoError(err)
	assert.Equal(OutcomeReasonCaptured, outcome)
	assert.True(eng.Registry.IsResolved(idB))
	assert.Equal(1, transport.MessagesToMatching(43, "duplicate"))
}

func TestRedeliveredSubmissionWhileInFlight(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng, _ := EngineTestFixture()
	id := submitFixtureConfession(t, eng, 42)

	require.NoError(t, eng.ProcessModeratorAction(ctx, TestModerator, id, ActionReject))

	// the same update arrives again while the rejection is open: the
	// record must not reappear where a second moderator could claim it
	meta := SubmissionMeta{MessageID: 1, Author: Author{ID: 42}}
	assert.NoError(eng.ProcessSubmission(ctx, meta, strings.Repeat("a", 60)))
	assert.Equal(0, eng.Registry.PendingCount())

	err := eng.ProcessModeratorAction(ctx, TestModerator2, id, ActionAccept)
	assert.ErrorIs(err, ErrAlreadyClaimed)
}

func TestExpiredIntentReturnsToPool(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	eng, transport := EngineTestFixture()
	id := submitFixtureConfession(t, eng, 42)

	require.NoError(t, eng.ProcessModeratorAction(ctx, TestModerator, id, ActionReject))

	restored := eng.Registry.ExpireIntents(0)
	assert.Len(restored, 1)

	// the silent moderator's next message is ordinary input again
	outcome, err := eng.ProcessMessage(ctx, SubmissionMeta{MessageID: 2, Author: Author{ID: TestModerator}}, "late reason")
	assert.ErrorIs(err, ErrModeratorSubmission)
	assert.Equal(OutcomeNone, outcome)

	// and another moderator can accept the restored record
	assert.NoError(eng.ProcessModeratorAction(ctx, TestModerator2, id, ActionAccept))
	assert.Len(transport.Published, 1)
}
