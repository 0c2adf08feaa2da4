package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/streadway/amqp"

	"sales-backend/config"
	"sales-backend/internal/models"
)

const publishTimeout = 5 * time.Second

// OrderEvent is the payload published on order lifecycle transitions.
type OrderEvent struct {
	EventID     string           `json:"eventId"`
	OrderNumber string           `json:"orderNumber"`
	DealerID    uint             `json:"dealerId"`
	Status      string           `json:"status"`
	TotalAmount decimal.Decimal  `json:"totalAmount"`
	Items       []OrderEventItem `json:"items"`
	Timestamp   time.Time        `json:"timestamp"`
}

type OrderEventItem struct {
	ProductID uint            `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// Publisher is a publish-only RabbitMQ connection with confirms enabled.
type Publisher struct {
	cfg           config.RabbitMQConfig
	connection    *amqp.Connection
	channel       *amqp.Channel
	notifyConfirm chan amqp.Confirmation
	isReady       bool
}

func NewPublisher(cfg config.RabbitMQConfig) (*Publisher, error) {
	p := &Publisher{cfg: cfg}

	log.Info().Str("url", cfg.URL).Msg("Connecting to RabbitMQ")
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial RabbitMQ: %w", err)
	}
	p.connection = conn

	p.channel, err = conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := p.channel.Confirm(false); err != nil {
		return nil, fmt.Errorf("channel could not be put into confirm mode: %w", err)
	}
	p.notifyConfirm = make(chan amqp.Confirmation, 1)
	p.channel.NotifyPublish(p.notifyConfirm)

	err = p.channel.ExchangeDeclare(
		cfg.Exchange,
		cfg.ExchangeType,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare exchange %s: %w", cfg.Exchange, err)
	}

	p.isReady = true
	log.Info().Str("exchange", cfg.Exchange).Msg("RabbitMQ publisher ready")
	return p, nil
}

// PublishOrderEvent sends an order lifecycle event and waits for the broker
// confirmation.
func (p *Publisher) PublishOrderEvent(ctx context.Context, routingKey string, order *models.Order) error {
	if !p.isReady {
		return errors.New("publisher not ready")
	}

	event := OrderEvent{
		EventID:     uuid.New().String(),
		OrderNumber: order.OrderNumber,
		DealerID:    order.DealerID,
		Status:      order.Status,
		TotalAmount: order.TotalAmount,
		Timestamp:   time.Now(),
	}
	for _, item := range order.Items {
		event.Items = append(event.Items, OrderEventItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal order event: %w", err)
	}

	err = p.channel.Publish(
		p.cfg.Exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish order event: %w", err)
	}

	select {
	case confirm := <-p.notifyConfirm:
		if confirm.Ack {
			log.Debug().Str("routing_key", routingKey).Str("order_number", order.OrderNumber).Msg("Order event published")
			return nil
		}
		return errors.New("order event published but not confirmed")
	case <-time.After(publishTimeout):
		return errors.New("publish confirmation timeout")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Publisher) Close() {
	if p.connection != nil && !p.connection.IsClosed() {
		p.connection.Close()
	}
}
