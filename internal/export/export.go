// Package export forwards persisted telemetry readings to the analytics
// pipeline over Kafka. Export is best-effort: it must never slow down or
// fail telemetry ingestion.
package export

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"unit-gateway/internal/logging"
	"unit-gateway/internal/models"
)

// event is the wire form of one exported reading.
type event struct {
	UnitID      int64   `json:"unit_id"`
	Time        int64   `json:"time"`
	Power       float64 `json:"power"`
	TotalEnergy float64 `json:"total_energy"`
	Toggle      bool    `json:"toggle"`
}

// Producer writes telemetry events to a Kafka topic through a bounded
// queue drained by Run.
type Producer struct {
	writer *kafka.Writer
	queue  chan models.StatusRecord
	logger *logging.Logger
}

func NewProducer(broker, topic string, queueSize int, logger *logging.Logger) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(broker),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 100 * time.Millisecond,
		},
		queue:  make(chan models.StatusRecord, queueSize),
		logger: logger,
	}
}

// Export enqueues a reading without blocking; a full queue drops it with a
// warning.
func (p *Producer) Export(rec models.StatusRecord) {
	select {
	case p.queue <- rec:
	default:
		p.logger.Warnf("export: queue full, dropping event for unit %d", rec.UnitID)
	}
}

// Run drains the queue until ctx is cancelled.
func (p *Producer) Run(ctx context.Context) {
	p.logger.Infof("export: producer started (topic %s)", p.writer.Topic)
	for {
		select {
		case <-ctx.Done():
			p.logger.Infof("export: producer stopped")
			return
		case rec := <-p.queue:
			p.write(ctx, rec)
		}
	}
}

func (p *Producer) write(ctx context.Context, rec models.StatusRecord) {
	value, err := json.Marshal(event{
		UnitID:      rec.UnitID,
		Time:        rec.Time.Unix(),
		Power:       rec.Power,
		TotalEnergy: rec.TotalEnergy,
		Toggle:      rec.Toggle,
	})
	if err != nil {
		p.logger.Errorf("export: marshal failed: %v", err)
		return
	}
	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(rec.UnitID, 10)),
		Value: value,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Errorf("export: write for unit %d failed: %v", rec.UnitID, err)
	}
}

// Close flushes and closes the underlying writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
