package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"budgetly/internal/models"

	"github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 5 * time.Second

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

// AMQPNotifier publishes alerts as JSON to a direct exchange.
type AMQPNotifier struct {
	mu         sync.Mutex
	conn       *amqp091.Connection
	channel    publisher
	closer     func() error
	exchange   string
	routingKey string
}

// NewAMQPNotifier dials url and declares a durable direct exchange.
func NewAMQPNotifier(url, exchange, routingKey string) (*AMQPNotifier, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange, // name
		"direct", // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	n := newAMQPNotifier(ch, exchange, routingKey)
	n.conn = conn
	n.closer = ch.Close
	return n, nil
}

func newAMQPNotifier(ch publisher, exchange, routingKey string) *AMQPNotifier {
	return &AMQPNotifier{channel: ch, exchange: exchange, routingKey: routingKey}
}

func (n *AMQPNotifier) NotifyBudgetAlert(ctx context.Context, alert models.BudgetAlert) error {
	body, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	n.mu.Lock()
	defer n.mu.Unlock()

	err = n.channel.PublishWithContext(
		ctx,
		n.exchange,   // exchange
		n.routingKey, // routing key
		false,        // mandatory
		false,        // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    alert.OccurredAt,
			Type:         "budget.alert",
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish alert: %w", err)
	}
	return nil
}

func (n *AMQPNotifier) Close() error {
	if n.closer != nil {
		_ = n.closer()
	}
	if n.conn != nil {
		return n.conn.Close()
	}
	return nil
}
