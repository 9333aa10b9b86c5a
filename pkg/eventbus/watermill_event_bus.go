package eventbus

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dealgrid/playrun/pkg/events"
	"github.com/dealgrid/playrun/pkg/otelhelper"
)

type WatermillEventBus struct {
	publisher     message.Publisher
	subscriber    message.Subscriber
	subscriptions map[events.EventType]EventHandler
	tracer        trace.Tracer
}

func NewWatermillEventBus(pub message.Publisher, sub message.Subscriber) EventBus {
	return &WatermillEventBus{
		publisher:     pub,
		subscriber:    sub,
		subscriptions: make(map[events.EventType]EventHandler),
		tracer:        otel.Tracer("playrun-eventbus"),
	}
}

func (eb *WatermillEventBus) GenerateID() string {
	return watermill.NewULID()
}

// topicFor routes node-level and notification events to their own topics;
// everything else goes to the play lifecycle topic.
func topicFor(eventType events.EventType) string {
	switch eventType {
	case events.NodeCompletedEvent, events.NodeBlockedEvent,
		events.NodeFailedEvent, events.NodeSkippedEvent:
		return events.NodeExecutionTopic
	case events.NotificationRequestedEvent:
		return events.NotificationTopic
	default:
		return events.Topic
	}
}

func (eb *WatermillEventBus) Publish(ctx context.Context, key string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := message.NewMessage("msg-"+eb.GenerateID(), payload)
	msg.Metadata.Set(events.EventMetadataKey, key)
	msg.Metadata.Set(events.EventTypeMetadataKey, string(event.GetType()))

	return eb.publisher.Publish(topicFor(event.GetType()), msg)
}

func (eb *WatermillEventBus) Subscribe(ctx context.Context) error {
	for _, topic := range []string{events.Topic, events.NodeExecutionTopic, events.NotificationTopic} {
		messages, err := eb.subscriber.Subscribe(ctx, topic)
		if err != nil {
			return err
		}

		go eb.consume(ctx, messages)
	}

	return nil
}

func (eb *WatermillEventBus) consume(ctx context.Context, messages <-chan *message.Message) {
	for msg := range messages {
		var event any

		eventType := events.EventType(msg.Metadata.Get(events.EventTypeMetadataKey))

		handler, exists := eb.subscriptions[eventType]
		if !exists {
			msg.Ack()

			continue
		}

		switch eventType {
		case events.PlayExecutionStartedEvent:
			event = &events.PlayExecutionStarted{}
		case events.PlayExecutionCompletedEvent:
			event = &events.PlayExecutionCompleted{}
		case events.PlayExecutionFailedEvent:
			event = &events.PlayExecutionFailed{}
		case events.PlayExecutionSuspendedEvent:
			event = &events.PlayExecutionSuspended{}
		case events.PlayExecutionResumedEvent:
			event = &events.PlayExecutionResumed{}
		case events.NodeCompletedEvent:
			event = &events.NodeCompleted{}
		case events.NodeBlockedEvent:
			event = &events.NodeBlocked{}
		case events.NodeFailedEvent:
			event = &events.NodeFailed{}
		case events.NodeSkippedEvent:
			event = &events.NodeSkipped{}
		case events.NotificationRequestedEvent:
			event = &events.NotificationRequested{}
		default:
			msg.Nack()

			continue
		}

		err := json.Unmarshal(msg.Payload, event)
		if err != nil {
			msg.Nack()

			continue
		}

		msgCtx, span := otelhelper.StartSpan(ctx, eb.tracer, "eventbus.consume",
			attribute.String(otelhelper.EventIDKey, msg.UUID),
			attribute.String("event.type", string(eventType)))

		err = handler(msgCtx, event)
		if err != nil {
			otelhelper.SetError(span, err)
			span.End()
			msg.Nack()

			continue
		}

		span.End()
		msg.Ack()
	}
}

func (eb *WatermillEventBus) Handle(eventType events.EventType, handler EventHandler) error {
	eb.subscriptions[eventType] = handler

	return nil
}

func (eb *WatermillEventBus) Close() error {
	err := eb.publisher.Close()
	if err != nil {
		return err
	}

	return eb.subscriber.Close()
}
