package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"kickstore/internal/config"
	"kickstore/internal/logger"
	"kickstore/internal/models"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
)

// Producer публикует события заказов в Kafka.
type Producer struct {
	producer sarama.SyncProducer
	log      *logger.Logger
	topics   *config.Topics
}

// NewProducer создает продюсер Kafka.
func NewProducer(cfg *config.KafkaConfig, log *logger.Logger) (*Producer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = 3

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	log.Info("Successfully connected to Kafka")

	return &Producer{
		producer: producer,
		log:      log,
		topics:   &cfg.Topics,
	}, nil
}

// Close закрывает продюсер.
func (p *Producer) Close() error {
	if p == nil || p.producer == nil {
		return nil
	}
	return p.producer.Close()
}

// PublishOrderPaid публикует событие об успешно оплаченном заказе.
func (p *Producer) PublishOrderPaid(order *models.Order) error {
	event := models.Event{
		ID:        uuid.New(),
		Type:      models.EventTypeOrderPaid,
		Timestamp: time.Now(),
		Data: models.OrderPaidEvent{
			OrderID:   order.ID,
			UserID:    order.UserID,
			Total:     order.Total,
			PromoCode: order.PromoCode,
			ItemCount: len(order.Items),
		},
	}
	return p.publishEvent(p.topics.Orders, event)
}

// PublishPromoRedeemed публикует событие о применении промокода.
func (p *Producer) PublishPromoRedeemed(code string, orderID uuid.UUID, discount float64) error {
	event := models.Event{
		ID:        uuid.New(),
		Type:      models.EventTypePromoRedeemed,
		Timestamp: time.Now(),
		Data: models.PromoRedeemedEvent{
			Code:     code,
			OrderID:  orderID,
			Discount: discount,
		},
	}
	return p.publishEvent(p.topics.Orders, event)
}

// publishEvent сериализует и отправляет событие в топик.
func (p *Producer) publishEvent(topic string, event models.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(event.ID.String()),
		Value: sarama.ByteEncoder(data),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to send message to kafka: %w", err)
	}

	p.log.WithFields(map[string]interface{}{
		"topic":     topic,
		"type":      event.Type,
		"partition": partition,
		"offset":    offset,
	}).Debug("Event published to Kafka")

	return nil
}
