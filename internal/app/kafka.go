package app

import (
	"fmt"

	"github.com/IBM/sarama"

	"checkout/internal/config"
)

// NewKafkaProducer creates a synchronous producer that waits for all
// in-sync replicas before a completion event counts as published.
func NewKafkaProducer(cfg config.KafkaConfig) (sarama.SyncProducer, error) {
	saramaCfg := sarama.NewConfig()
	saramaCfg.ClientID = "checkout-service"
	saramaCfg.Producer.RequiredAcks = sarama.WaitForAll
	saramaCfg.Producer.Retry.Max = 5
	saramaCfg.Producer.Return.Successes = true
	saramaCfg.Producer.Idempotent = true
	saramaCfg.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return producer, nil
}
