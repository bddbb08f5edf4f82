package moderation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var confessionsReceived = promauto.NewCounter(prometheus.CounterOpts{
	Name: "secreto_confessions_received",
	Help: "Number of confessions accepted into the pending set",
})

var confessionsPublished = promauto.NewCounter(prometheus.CounterOpts{
	Name: "secreto_confessions_published",
	Help: "Number of confessions published to the channel",
})

var confessionsRejected = promauto.NewCounter(prometheus.CounterOpts{
	Name: "secreto_confessions_rejected",
	Help: "Number of confessions rejected with a reason",
})

var publishFailures = promauto.NewCounter(prometheus.CounterOpts{
	Name: "secreto_publish_failures",
	Help: "Number of channel publish attempts that failed and were rolled back",
})

var claimConflicts = promauto.NewCounter(prometheus.CounterOpts{
	Name: "secreto_claim_conflicts",
	Help: "Number of moderator actions that lost the claim race or hit a resolved confession",
})

var noticeFailures = promauto.NewCounter(prometheus.CounterOpts{
	Name: "secreto_notice_failures",
	Help: "Number of best-effort moderator notifications that failed",
})
