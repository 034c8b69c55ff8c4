package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"

	"github.com/iwtcode/calibService/internal/config"
	"github.com/iwtcode/calibService/internal/interfaces"
)

type ReportProducer struct {
	writer *kafka.Writer
}

// NewReportProducer создает продюсера итоговых отчетов о прогонах.
// При выключенном экспорте возвращает nil: оркестратор это допускает.
func NewReportProducer(cfg *config.AppConfig) (interfaces.ReportProducer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	writer := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Kafka.Broker),
		Topic:    cfg.Kafka.Topic,
		Balancer: &kafka.LeastBytes{},
	}
	return &ReportProducer{writer: writer}, nil
}

// Produce отправляет отчет, ключ — идентификатор прогона.
func (p *ReportProducer) Produce(ctx context.Context, key, value []byte) error {
	return p.writer.WriteMessages(ctx,
		kafka.Message{
			Key:   key,
			Value: value,
		},
	)
}

// Close закрывает соединение с Kafka.
func (p *ReportProducer) Close() error {
	return p.writer.Close()
}
