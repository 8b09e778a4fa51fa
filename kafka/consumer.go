package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rdpmakerop/spark-host-sell/middleware"
	"github.com/rdpmakerop/spark-host-sell/models"
	"github.com/rdpmakerop/spark-host-sell/notifications"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

func InitConsumer(broker string, logger *zap.Logger) (sarama.Consumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Return.Errors = true
	config.Consumer.Retry.Backoff = 1 * time.Second

	consumer, err := sarama.NewConsumer([]string{broker}, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka consumer: %w", err)
	}

	logger.Info("Kafka consumer initialized", zap.String("broker", broker))
	return consumer, nil
}

// NotificationConsumer turns order events into user notifications. Status
// changes are made by the fulfilment side; this service only reports them.
type NotificationConsumer struct {
	consumer sarama.Consumer
	topic    string
	queue    notifications.Queue
	logger   *zap.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

func NewNotificationConsumer(consumer sarama.Consumer, topic string, queue notifications.Queue, logger *zap.Logger) *NotificationConsumer {
	return &NotificationConsumer{consumer: consumer, topic: topic, queue: queue, logger: logger}
}

// Start runs the consumer in a background goroutine until Stop.
func (nc *NotificationConsumer) Start(ctx context.Context) {
	ctx, nc.cancel = context.WithCancel(ctx)
	nc.done = make(chan struct{})
	go func() {
		defer close(nc.done)
		if err := nc.Run(ctx); err != nil {
			nc.logger.Error("Kafka consumer exited", zap.Error(err))
		}
	}()
}

// Stop cancels Run, waits for its partition consumers to close and then
// closes the parent consumer, which sarama requires to go last.
func (nc *NotificationConsumer) Stop() error {
	if nc.cancel != nil {
		nc.cancel()
		<-nc.done
	}
	if err := nc.consumer.Close(); err != nil {
		return fmt.Errorf("failed to close Kafka consumer: %w", err)
	}
	return nil
}

// Run consumes every partition of the topic until ctx is cancelled.
func (nc *NotificationConsumer) Run(ctx context.Context) error {
	partitions, err := nc.consumer.Partitions(nc.topic)
	if err != nil {
		return fmt.Errorf("failed to list partitions: %w", err)
	}

	messages := make(chan *sarama.ConsumerMessage)
	errs := make(chan *sarama.ConsumerError)
	for _, partition := range partitions {
		pc, err := nc.consumer.ConsumePartition(nc.topic, partition, sarama.OffsetNewest)
		if err != nil {
			return fmt.Errorf("failed to consume partition %d: %w", partition, err)
		}
		defer pc.Close()

		go forward(ctx, pc, messages, errs)
	}

	nc.logger.Info("Kafka consumer started", zap.String("topic", nc.topic), zap.Int("partitions", len(partitions)))

	for {
		select {
		case <-ctx.Done():
			nc.logger.Info("Kafka consumer stopped")
			return nil
		case message := <-messages:
			if err := nc.handleMessage(message); err != nil {
				nc.logger.Error("Failed to handle message", zap.Error(err))
			}
		case err := <-errs:
			nc.logger.Error("Kafka consumer error", zap.Error(err))
		}
	}
}

func forward(ctx context.Context, pc sarama.PartitionConsumer, messages chan<- *sarama.ConsumerMessage, errs chan<- *sarama.ConsumerError) {
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-pc.Messages():
			if !ok {
				return
			}
			select {
			case messages <- m:
			case <-ctx.Done():
				return
			}
		case e, ok := <-pc.Errors():
			if !ok {
				return
			}
			select {
			case errs <- e:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (nc *NotificationConsumer) handleMessage(message *sarama.ConsumerMessage) error {
	ctx := otel.GetTextMapPropagator().Extract(context.Background(), consumerHeaderCarrier(message.Headers))
	ctx, span := otel.Tracer("storefront-service").Start(ctx, "ProcessOrderEvent")
	defer span.End()

	var event models.OrderEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}

	span.SetAttributes(
		attribute.String("event.type", event.EventType),
		attribute.String("order.id", event.OrderID),
	)

	notification, ok := notificationFor(event)
	if !ok {
		nc.logger.Debug("Ignoring event", zap.String("event_type", event.EventType))
		return nil
	}
	if event.UserID == "" {
		return fmt.Errorf("event %s for order %s has no user", event.EventType, event.OrderID)
	}

	if err := nc.queue.Push(ctx, event.UserID, notification); err != nil {
		span.RecordError(err)
		return err
	}

	middleware.RecordNotificationSent(event.EventType)
	nc.logger.Info("Notification queued",
		zap.String("trace_id", middleware.GetTraceID(ctx)),
		zap.String("event_type", event.EventType),
		zap.String("order_id", event.OrderID),
		zap.String("user_id", event.UserID),
	)
	return nil
}

func notificationFor(event models.OrderEvent) (models.Notification, bool) {
	ref := shortID(event.OrderID)
	switch event.EventType {
	case models.EventOrderPlaced:
		return models.Notification{
			Level:   models.NotificationSuccess,
			Message: fmt.Sprintf("Your order #%s has been placed. We'll contact you shortly.", ref),
		}, true
	case models.EventOrderCompleted:
		return models.Notification{
			Level:   models.NotificationSuccess,
			Message: fmt.Sprintf("Your order #%s is complete. Your server is ready.", ref),
		}, true
	case models.EventOrderCancelled:
		return models.Notification{
			Level:   models.NotificationError,
			Message: fmt.Sprintf("Your order #%s was cancelled.", ref),
		}, true
	}
	return models.Notification{}, false
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
