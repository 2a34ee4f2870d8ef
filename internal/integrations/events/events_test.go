package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/Dan9191/issue-tracker/internal/config"
	"github.com/Dan9191/issue-tracker/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKafkaMessage(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	e := Event{
		Type:       IssueUpdated,
		IssueID:    "issue-1",
		ActorID:    "user-1",
		OccurredAt: at,
		Issue:      &models.Issue{ID: "issue-1", Title: "Broken", Status: models.StatusOpen},
	}

	msg, err := kafkaMessage(e)
	require.NoError(t, err)
	assert.Equal(t, []byte("issue-1"), msg.Key)
	assert.Equal(t, at, msg.Time)
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "issue.updated", string(msg.Headers[0].Value))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "issue.updated", decoded["type"])
	assert.Equal(t, "issue-1", decoded["issueId"])
	assert.Equal(t, "Broken", decoded["issue"].(map[string]any)["title"])
}

func TestNewPublisherDefaultsToNop(t *testing.T) {
	p, err := NewPublisher(&config.Config{}, logrus.New())
	require.NoError(t, err)
	assert.IsType(t, NopPublisher{}, p)
	assert.NoError(t, p.Publish(context.Background(), Event{Type: IssueCreated}))
	assert.NoError(t, p.Close())
}

func TestNewPublisherKafka(t *testing.T) {
	cfg := &config.Config{EventsBroker: config.BrokerKafka, KafkaBrokers: []string{"localhost:9092"}, KafkaTopic: "t"}
	p, err := NewPublisher(cfg, logrus.New())
	require.NoError(t, err)
	assert.IsType(t, &KafkaPublisher{}, p)
	assert.NoError(t, p.Close())
}

func TestKafkaPublisherFlushesSingleMessages(t *testing.T) {
	p := NewKafkaPublisher([]string{"localhost:9092"}, "issue-events")
	defer p.Close()

	assert.Equal(t, 1, p.writer.BatchSize)
	assert.Equal(t, kafkaBatchTimeout, p.writer.BatchTimeout)
	assert.Less(t, p.writer.BatchTimeout, 100*time.Millisecond)
	assert.False(t, p.writer.Async, "publish errors must reach the caller for logging")
	assert.Equal(t, "issue-events", p.writer.Topic)
}

func TestNewPublisherRejectsUnknownBroker(t *testing.T) {
	_, err := NewPublisher(&config.Config{EventsBroker: "nats"}, logrus.New())
	assert.Error(t, err)
}
