package metrics

import "github.com/prometheus/client_golang/prometheus"

// Consumer outcomes.
const (
	OutcomeProcessed = "processed"
	OutcomeDuplicate = "duplicate"
	OutcomeIgnored   = "ignored"
	OutcomeMalformed = "malformed"
	OutcomeRetry     = "retry"
)

// ConsumerMetrics counts Pub/Sub messages handled by a worker.
type ConsumerMetrics struct {
	messages *prometheus.CounterVec
}

func NewConsumerMetrics(reg prometheus.Registerer) *ConsumerMetrics {
	if reg == nil {
		return &ConsumerMetrics{}
	}
	messages := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "consumer",
		Name:      "messages_total",
		Help:      "Messages handled per consumer and outcome.",
	}, []string{"consumer", "outcome"})
	reg.MustRegister(messages)
	return &ConsumerMetrics{messages: messages}
}

// Observe counts one message for the consumer with the given outcome.
func (c *ConsumerMetrics) Observe(consumer, outcome string) {
	if c == nil || c.messages == nil {
		return
	}
	c.messages.WithLabelValues(normalizeLabel(consumer), outcome).Inc()
}
