package events

import (
	"context"
	"fmt"
	"time"

	"github.com/Dan9191/issue-tracker/internal/config"
	"github.com/Dan9191/issue-tracker/internal/models"
	"github.com/sirupsen/logrus"
)

// Type names an issue lifecycle event. It doubles as the AMQP routing key.
type Type string

const (
	IssueCreated Type = "issue.created"
	IssueUpdated Type = "issue.updated"
	IssueDeleted Type = "issue.deleted"
)

// Event is the JSON payload published for every issue mutation
type Event struct {
	Type       Type          `json:"type"`
	IssueID    string        `json:"issueId"`
	ActorID    string        `json:"actorId"`
	OccurredAt time.Time     `json:"occurredAt"`
	Issue      *models.Issue `json:"issue,omitempty"`
}

// Publisher delivers events to a broker
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// NopPublisher drops events. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }

// NewPublisher builds the publisher selected by EVENTS_BROKER
func NewPublisher(cfg *config.Config, log *logrus.Logger) (Publisher, error) {
	switch cfg.EventsBroker {
	case config.BrokerAMQP:
		p, err := NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return nil, err
		}
		log.Infof("Publishing issue events to AMQP exchange %s", cfg.AMQPExchange)
		return p, nil
	case config.BrokerKafka:
		log.Infof("Publishing issue events to Kafka topic %s", cfg.KafkaTopic)
		return NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic), nil
	case "":
		return NopPublisher{}, nil
	default:
		return nil, fmt.Errorf("unknown events broker %q", cfg.EventsBroker)
	}
}
