package rabbit

import (
	"bitbucket.org/airenas/slidego/internal/pkg/cmdapp"

	"github.com/pkg/errors"
	"github.com/streadway/amqp"
)

// Publisher publishes job events to rabbit mq broker
type Publisher struct {
	ChannelProvider *ChannelProvider
}

// NewPublisher initializes rabbit publisher
func NewPublisher(provider *ChannelProvider) *Publisher {
	return &Publisher{ChannelProvider: provider}
}

// Publish publishes the job id to a fanout exchange
func (sender *Publisher) Publish(id string, topic string) error {
	cmdapp.Log.Infof("Publishing event %s(%s)", topic, id)

	err := sender.ChannelProvider.RunOnChannelWithRetry(func(ch *amqp.Channel) error {
		if err := ch.ExchangeDeclare(topic, "fanout", false, false, false, false, nil); err != nil {
			return err
		}
		return ch.Publish(
			topic, // exchange
			"",
			false, // mandatory
			false,
			amqp.Publishing{
				ContentType: "text/plain",
				Body:        []byte(id),
			})
	})
	if err != nil {
		return errors.Wrap(err, "Can't publish event")
	}
	return nil
}
