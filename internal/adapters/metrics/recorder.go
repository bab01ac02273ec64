package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder implementa ports.Recorder sobre contadores Prometheus.
type Recorder struct {
	placed   prometheus.Counter
	settled  *prometheus.CounterVec
	skipped  *prometheus.CounterVec
	dropped  prometheus.Counter
	bankroll prometheus.Gauge
}

// NewRecorder crea y registra las métricas en reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		placed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "drawbot_bets_placed_total",
			Help: "órdenes aceptadas por el venue",
		}),
		settled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "drawbot_bets_settled_total",
			Help: "apuestas liquidadas por resultado",
		}, []string{"result"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "drawbot_bets_skipped_total",
			Help: "snapshots que calificaban o repetían partido y no abrieron apuesta, por motivo",
		}, []string{"reason"}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "drawbot_feed_messages_dropped_total",
			Help: "mensajes del feed descartados por malformados",
		}),
		bankroll: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "drawbot_bankroll",
			Help: "bankroll liquidado",
		}),
	}

	for _, c := range []prometheus.Collector{r.placed, r.settled, r.skipped, r.dropped, r.bankroll} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("metrics.NewRecorder: register: %w", err)
		}
	}
	return r, nil
}

func (r *Recorder) BetPlaced() { r.placed.Inc() }

func (r *Recorder) BetSettled(won bool) {
	result := "lost"
	if won {
		result = "won"
	}
	r.settled.WithLabelValues(result).Inc()
}

func (r *Recorder) BetSkipped(reason string) { r.skipped.WithLabelValues(reason).Inc() }

func (r *Recorder) Bankroll(value float64) { r.bankroll.Set(value) }

// FeedMessageDropped se pasa como hook al feed.
func (r *Recorder) FeedMessageDropped() { r.dropped.Inc() }
