//go:build integration

package integration_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/float-query-service/internal/adapter/fixture"
	"github.com/couchcryptid/float-query-service/internal/adapter/kafka"
	"github.com/couchcryptid/float-query-service/internal/config"
	"github.com/couchcryptid/float-query-service/internal/domain"
	"github.com/couchcryptid/float-query-service/internal/history"
	"github.com/couchcryptid/float-query-service/internal/observability"
	"github.com/couchcryptid/float-query-service/internal/pipeline"
)

const testHistoryTopic = "test-query-history"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node broker and returns its address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	ctr, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("float-query-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(ctr); err != nil {
			t.Logf("terminate kafka: %v", err)
		}
	})

	brokers, err := ctr.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	cc, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer cc.Close()

	require.NoError(t, cc.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

func readRecord(ctx context.Context, t *testing.T, consumer *kafkago.Reader) (kafkago.Message, domain.HistoryRecord) {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from history topic")
	rec, err := kafka.DecodeMessage(msg)
	require.NoError(t, err)
	return msg, rec
}

// TestHistoryPublishedToKafka answers a query through the pipeline with a
// memory store and a Kafka sink, then reads the published record back.
func TestHistoryPublishedToKafka(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testHistoryTopic)

	cfg := &config.Config{
		KafkaBrokers:      []string{broker},
		KafkaHistoryTopic: testHistoryTopic,
	}
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	gen := fixture.DefaultGeneratorConfig()
	gen.Profiles, gen.Levels = 10, 40
	store, err := domain.NewStore(fixture.Generate(gen))
	require.NoError(t, err)

	metrics := observability.NewMetricsForTesting()
	mem := history.NewMemoryStore()
	tee := history.NewTee(metrics, discardLogger(),
		history.Sink{Name: "memory", Recorder: mem},
		history.Sink{Name: "kafka", Recorder: writer},
	)
	p := pipeline.New(store, discardLogger(), metrics, pipeline.WithHistory(tee))

	ans := p.Answer(ctx, pipeline.Request{
		Query:  "What's the average temperature at 1000 meters depth?",
		UserID: "alice",
	})
	require.NotNil(t, ans.Data)
	require.True(t, ans.Data.Success)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testHistoryTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	msg, rec := readRecord(ctx, t, consumer)
	assert.Equal(t, ans.SessionID, string(msg.Key))

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "AVERAGE", headers["operation"])
	_, err = time.Parse(time.RFC3339, headers["created_at"])
	assert.NoError(t, err, "created_at should be valid RFC3339")

	assert.Equal(t, ans.QueryID, rec.ID)
	assert.Equal(t, "alice", rec.UserID)
	assert.Equal(t, ans.Response, rec.Response)
	assert.Equal(t, domain.VariableTemperature, rec.Variable)
	assert.True(t, rec.Success)

	stored, err := mem.Get(ctx, ans.QueryID)
	require.NoError(t, err)
	assert.Equal(t, stored.SessionID, rec.SessionID)
	assert.True(t, stored.CreatedAt.Equal(rec.CreatedAt))
}

// TestHistorySessionOrdering checks that records of one session land on one
// partition in append order.
func TestHistorySessionOrdering(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testHistoryTopic)

	writer := kafka.NewWriter(&config.Config{
		KafkaBrokers:      []string{broker},
		KafkaHistoryTopic: testHistoryTopic,
	}, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := range 3 {
		require.NoError(t, writer.Append(ctx, domain.HistoryRecord{
			ID:        fmt.Sprintf("q-%d", i),
			SessionID: "session_bob_00c0ffee",
			UserID:    "bob",
			Query:     "salinity",
			Operation: domain.OperationAverage,
			Variable:  domain.VariableSalinity,
			Success:   true,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testHistoryTopic,
		GroupID:     fmt.Sprintf("test-order-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	for i := range 3 {
		_, rec := readRecord(ctx, t, consumer)
		assert.Equal(t, fmt.Sprintf("q-%d", i), rec.ID)
	}
}
