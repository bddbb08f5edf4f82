package main

import (
	"github.com/carlmjohnson/versioninfo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("secreto")

func serverVersion() string {
	return versioninfo.Short()
}

var updatesReceived = promauto.NewCounter(prometheus.CounterOpts{
	Name: "secreto_updates_received",
	Help: "Number of webhook updates received",
})

var updatesDuplicate = promauto.NewCounter(prometheus.CounterOpts{
	Name: "secreto_updates_duplicate",
	Help: "Number of redelivered webhook updates dropped by the dedupe cache",
})

var callbacksHandled = promauto.NewCounter(prometheus.CounterOpts{
	Name: "secreto_callbacks_handled",
	Help: "Number of accept/reject button presses handled",
})

var commandsHandled = promauto.NewCounter(prometheus.CounterOpts{
	Name: "secreto_commands_handled",
	Help: "Number of bot commands handled",
})

var intentsExpired = promauto.NewCounter(prometheus.CounterOpts{
	Name: "secreto_intents_expired",
	Help: "Number of rejection intents expired and returned to the pool",
})
