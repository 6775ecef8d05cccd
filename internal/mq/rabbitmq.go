package mq

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/musicclub/apiserver/config"
	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitMQClient publishes each channel to a fanout exchange of the same name.
// Subscribers bind their own queue to it: a private auto-deleted queue by
// default, or a shared named queue when a consumer group is configured.
type RabbitMQClient struct {
	conn *amqp.Connection

	// publishMu serializes use of pubCh.
	publishMu sync.Mutex
	pubCh     *amqp.Channel

	group           string
	queueDurable    bool
	queueAutoDelete bool
	prefetchCount   int
}

// NewRabbitMQClient dials the broker and opens the publishing channel.
func NewRabbitMQClient(cfg config.RabbitMQConfig, group string) (*RabbitMQClient, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, errors.New("rabbitmq url is required")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	return &RabbitMQClient{
		conn:            conn,
		pubCh:           ch,
		group:           strings.TrimSpace(group),
		queueDurable:    cfg.QueueDurable,
		queueAutoDelete: cfg.QueueAutoDelete,
		prefetchCount:   cfg.PrefetchCount,
	}, nil
}

// Publish sends a persistent message to the channel's exchange and returns its id.
func (r *RabbitMQClient) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("rabbitmq channel is required")
	}

	msg := amqp.Publishing{
		ContentType:  "application/octet-stream",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Headers:      amqp.Table{},
		Body:         data,
	}
	for key, value := range attrs {
		switch key {
		case AttrContentType:
			msg.ContentType = value
		case AttrOrderingKey:
			// A single queue already preserves publish order.
		default:
			msg.Headers[key] = value
		}
	}

	r.publishMu.Lock()
	defer r.publishMu.Unlock()

	if err := declareExchange(r.pubCh, channel); err != nil {
		return "", err
	}
	if err := r.pubCh.PublishWithContext(ctx, channel, "", false, false, msg); err != nil {
		return "", fmt.Errorf("publish to %s: %w", channel, err)
	}
	return msg.MessageId, nil
}

// Subscribe binds a queue to the channel's exchange and handles deliveries
// until ctx ends. Handler errors requeue the message.
func (r *RabbitMQClient) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("rabbitmq channel is required")
	}

	ch, err := r.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if r.prefetchCount > 0 {
		if err := ch.Qos(r.prefetchCount, 0, false); err != nil {
			return err
		}
	}
	if err := declareExchange(ch, channel); err != nil {
		return err
	}

	queue, err := r.declareQueue(ch, channel)
	if err != nil {
		return err
	}
	if err := ch.QueueBind(queue.Name, "", channel, false, nil); err != nil {
		return fmt.Errorf("bind %s to %s: %w", queue.Name, channel, err)
	}

	consumerTag := "clubd-" + uuid.NewString()
	deliveries, err := ch.ConsumeWithContext(ctx, queue.Name, consumerTag, false, false, false, false, nil)
	if err != nil {
		return err
	}
	closed := ch.NotifyClose(make(chan *amqp.Error, 1))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case amqpErr := <-closed:
			if amqpErr != nil {
				return fmt.Errorf("rabbitmq channel closed: %w", amqpErr)
			}
			return errors.New("rabbitmq channel closed")
		case delivery, ok := <-deliveries:
			if !ok {
				return errors.New("rabbitmq delivery channel closed")
			}
			if err := handler(ctx, deliveryMessage(delivery)); err != nil {
				// Redelivered messages are dropped on a second failure.
				_ = delivery.Nack(false, !delivery.Redelivered)
				continue
			}
			_ = delivery.Ack(false)
		}
	}
}

// Close closes the publishing channel and the connection.
func (r *RabbitMQClient) Close() error {
	r.publishMu.Lock()
	defer r.publishMu.Unlock()
	if r.pubCh != nil {
		_ = r.pubCh.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

func declareExchange(ch *amqp.Channel, name string) error {
	if err := ch.ExchangeDeclare(name, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", name, err)
	}
	return nil
}

func (r *RabbitMQClient) declareQueue(ch *amqp.Channel, channel string) (amqp.Queue, error) {
	if r.group == "" {
		return ch.QueueDeclare("", false, true, true, false, nil)
	}
	return ch.QueueDeclare(
		channel+"."+r.group,
		r.queueDurable,
		r.queueAutoDelete,
		false,
		false,
		nil,
	)
}

func deliveryMessage(d amqp.Delivery) Message {
	attrs := make(map[string]string, len(d.Headers)+1)
	for key, value := range d.Headers {
		switch typed := value.(type) {
		case string:
			attrs[key] = typed
		case []byte:
			attrs[key] = string(typed)
		default:
			attrs[key] = fmt.Sprint(value)
		}
	}
	if d.ContentType != "" {
		attrs[AttrContentType] = d.ContentType
	}
	return Message{ID: d.MessageId, Data: d.Body, Attributes: attrs}
}
