//go:build integration
// +build integration

package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/rabbitmq"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ad-tracker/video-moderation-go/internal/config"
	"github.com/ad-tracker/video-moderation-go/internal/models"
)

func setupTestRabbitMQ(t *testing.T) *config.RabbitMQConfig {
	t.Helper()
	ctx := context.Background()

	rabbitmqContainer, err := rabbitmq.Run(ctx,
		"rabbitmq:3.13-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Server startup complete").
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := rabbitmqContainer.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	})

	host, err := rabbitmqContainer.Host(ctx)
	require.NoError(t, err)

	port, err := rabbitmqContainer.MappedPort(ctx, "5672/tcp")
	require.NoError(t, err)

	return &config.RabbitMQConfig{
		Host:             host,
		Port:             port.Int(),
		User:             "guest",
		Password:         "guest",
		Exchange:         "test.moderation",
		Queue:            "test.moderation.audit",
		RoutingKeyPrefix: "video",
		ConfirmTimeout:   5 * time.Second,
		Enabled:          true,
	}
}

func TestMessagePublisher_PublishEvent(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	cfg := setupTestRabbitMQ(t)

	mp, err := NewMessagePublisher(cfg)
	require.NoError(t, err)
	defer mp.Close()

	assert.True(t, mp.IsHealthy())

	moderator := "alice"
	events := []*models.ModerationEvent{
		models.NewModerationEvent(models.EventVideoAdmitted, "x8abc12", nil, models.StatusPending),
		models.NewModerationEvent(models.EventVideoAssigned, "x8abc12", &moderator, models.StatusPending),
		models.NewModerationEvent(models.EventVideoResolved, "x8abc12", &moderator, models.StatusSpam),
	}
	for _, event := range events {
		require.NoError(t, mp.PublishEvent(context.Background(), event))
	}

	conn, err := amqp.Dial(cfg.URL())
	require.NoError(t, err)
	defer conn.Close()
	ch, err := conn.Channel()
	require.NoError(t, err)
	defer ch.Close()

	for _, want := range events {
		msg, ok, err := ch.Get(cfg.Queue, true)
		require.NoError(t, err)
		require.True(t, ok, "expected a message for %s", want.Type)

		assert.Equal(t, RoutingKey("video", want.Type), msg.RoutingKey)
		assert.Equal(t, want.ID.String(), msg.MessageId)

		var got models.ModerationEvent
		require.NoError(t, json.Unmarshal(msg.Body, &got))
		assert.Equal(t, want.Type, got.Type)
		assert.Equal(t, want.Status, got.Status)
	}
}

func TestMessagePublisher_ConcurrentPublishes(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	cfg := setupTestRabbitMQ(t)

	mp, err := NewMessagePublisher(cfg)
	require.NoError(t, err)
	defer mp.Close()

	const n = 50
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			event := models.NewModerationEvent(models.EventVideoAdmitted, fmt.Sprintf("vid%03d", i), nil, models.StatusPending)
			errs <- mp.PublishEvent(context.Background(), event)
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	conn, err := amqp.Dial(cfg.URL())
	require.NoError(t, err)
	defer conn.Close()
	ch, err := conn.Channel()
	require.NoError(t, err)
	defer ch.Close()

	q, err := ch.QueueDeclarePassive(cfg.Queue, true, false, false, false, amqp.Table{
		"x-message-ttl": 86400000,
		"x-max-length":  100000,
	})
	require.NoError(t, err)
	assert.Equal(t, n, q.Messages)
}

func TestMessagePublisher_Close(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	cfg := setupTestRabbitMQ(t)

	mp, err := NewMessagePublisher(cfg)
	require.NoError(t, err)

	require.NoError(t, mp.Close())
	assert.False(t, mp.IsHealthy())

	event := models.NewModerationEvent(models.EventVideoAdmitted, "x1", nil, models.StatusPending)
	assert.ErrorIs(t, mp.PublishEvent(context.Background(), event), ErrPublisherClosed)
}
