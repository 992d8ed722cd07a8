package broker

import (
	"context"
	"log"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Handler processes one inbound message from a subscription.
type Handler func(topic string, message mqtt.Message) error

// IConsumer subscribes to a topic and dispatches messages to a handler.
type IConsumer interface {
	Consume(ctx context.Context)
	SetHandler(h Handler)
}

// Consumer is a single-topic subscriber over a shared MQTT client.
type Consumer struct {
	client  mqtt.Client
	topic   string
	handler Handler
}

var _ IConsumer = (*Consumer)(nil)

func NewConsumer(client mqtt.Client, topic string, h Handler) *Consumer {
	return &Consumer{client: client, topic: topic, handler: h}
}

func (c *Consumer) SetHandler(h Handler) { c.handler = h }

// Health observations ride QoS 1 so a restarted vision service can
// re-deliver; everything else is fire-and-forget telemetry.
func qosFor(topic string) byte {
	if strings.HasPrefix(strings.TrimSpace(topic), "event/health") {
		return 1
	}
	return 0
}

// Consume subscribes and blocks until ctx is cancelled, then
// unsubscribes.
func (c *Consumer) Consume(ctx context.Context) {
	token := c.client.Subscribe(c.topic, qosFor(c.topic), func(_ mqtt.Client, m mqtt.Message) {
		if c.handler == nil {
			log.Printf("broker: no handler for topic %s", c.topic)
			return
		}
		if err := c.handler(c.topic, m); err != nil {
			log.Printf("broker: handler error on %s: %v", c.topic, err)
		}
	})
	if token.Wait() && token.Error() != nil {
		log.Printf("broker: subscribe %s: %v", c.topic, token.Error())
		return
	}
	log.Printf("broker: subscribed to %s", c.topic)

	<-ctx.Done()

	unsub := c.client.Unsubscribe(c.topic)
	unsub.Wait()
}
