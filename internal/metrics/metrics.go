// Package metrics instruments the node with the ambient observability
// surface the spec's distillation leaves implicit (SPEC_FULL.md
// SUPPLEMENTED FEATURES): active realms, live sync sessions, per-peer
// sync lag, and sentiment/block events. Modeled on the teacher's
// `core/system_health_logging.go` prometheus registry construction.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collectors bundles every gauge/counter the node facade updates over its
// lifetime, registered against a private registry so embedding a second
// node in the same process (tests) never collides on global metric names.
type Collectors struct {
	Registry *prometheus.Registry

	ActiveRealms     prometheus.Gauge
	LiveSyncSessions prometheus.Gauge
	HeadsBehind      *prometheus.GaugeVec
	BlockEvents      prometheus.Counter
	SyncErrors       prometheus.Counter
	MessagesSent     prometheus.Counter
	MessagesRecv     prometheus.Counter
}

// New builds and registers a fresh set of collectors.
func New() *Collectors {
	reg := prometheus.NewRegistry()

	c := &Collectors{
		Registry: reg,
		ActiveRealms: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "indra_active_realms",
			Help: "Number of realms this node currently participates in.",
		}),
		LiveSyncSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "indra_live_sync_sessions",
			Help: "Number of live per-(artifact,peer) sync sessions.",
		}),
		HeadsBehind: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "indra_heads_behind",
			Help: "Number of change-log heads a tracked peer has not yet acknowledged.",
		}, []string{"peer"}),
		BlockEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "indra_block_events_total",
			Help: "Total number of local block cascades executed.",
		}),
		SyncErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "indra_sync_errors_total",
			Help: "Total number of dropped, malformed sync payloads.",
		}),
		MessagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "indra_messages_sent_total",
			Help: "Total number of realm messages sent by this node.",
		}),
		MessagesRecv: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "indra_messages_received_total",
			Help: "Total number of realm messages received by this node.",
		}),
	}

	reg.MustRegister(
		c.ActiveRealms,
		c.LiveSyncSessions,
		c.HeadsBehind,
		c.BlockEvents,
		c.SyncErrors,
		c.MessagesSent,
		c.MessagesRecv,
	)
	return c
}
