package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/eventtix/internal/messaging/kafka"
)

const (
	defaultScanLimit   = 100
	defaultIdleTimeout = 2 * time.Second
)

// options описывает параметры прогона реплея DLQ.
type options struct {
	brokers     []string
	sourceTopic string
	targetTopic string
	limit       int
	execute     bool
	fromNewest  bool
	idleTimeout time.Duration
}

// candidate — сообщение, восстановленное из DLQ и готовое к повторной публикации.
type candidate struct {
	topic string
	key   string
	value []byte
}

// replayStats агрегирует итоги прогона.
type replayStats struct {
	scanned  int
	replayed int
	skipped  int
}

func (s *replayStats) add(other replayStats) {
	s.scanned += other.scanned
	s.replayed += other.replayed
	s.skipped += other.skipped
}

// kafkaCluster абстрагирует sarama для тестов.
type kafkaCluster interface {
	Partitions(topic string) ([]int32, error)
	GetOffset(topic string, partition int32, time int64) (int64, error)
	ConsumePartition(topic string, partition int32, offset int64) (sarama.PartitionConsumer, error)
	SendMessage(msg *sarama.ProducerMessage) (int32, int64, error)
	Close() error
}

// saramaCluster — боевая реализация kafkaCluster.
type saramaCluster struct {
	client   sarama.Client
	consumer sarama.Consumer
	producer sarama.SyncProducer // nil в dry-run
}

func connectCluster(opts options) (*saramaCluster, error) {
	consumerConfig := sarama.NewConfig()
	consumerConfig.Consumer.Return.Errors = true

	client, err := sarama.NewClient(opts.brokers, consumerConfig)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	consumer, err := sarama.NewConsumerFromClient(client)
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}

	cluster := &saramaCluster{client: client, consumer: consumer}
	if !opts.execute {
		return cluster, nil
	}

	producerConfig := sarama.NewConfig()
	producerConfig.Producer.RequiredAcks = sarama.WaitForAll
	producerConfig.Producer.Retry.Max = 5
	producerConfig.Producer.Return.Successes = true
	producerConfig.Producer.Compression = sarama.CompressionSnappy
	producerConfig.Producer.Idempotent = true
	producerConfig.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(opts.brokers, producerConfig)
	if err != nil {
		_ = cluster.Close()
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	cluster.producer = producer

	return cluster, nil
}

func (c *saramaCluster) Partitions(topic string) ([]int32, error) {
	return c.client.Partitions(topic)
}

func (c *saramaCluster) GetOffset(topic string, partition int32, t int64) (int64, error) {
	return c.client.GetOffset(topic, partition, t)
}

func (c *saramaCluster) ConsumePartition(topic string, partition int32, offset int64) (sarama.PartitionConsumer, error) {
	return c.consumer.ConsumePartition(topic, partition, offset)
}

func (c *saramaCluster) SendMessage(msg *sarama.ProducerMessage) (int32, int64, error) {
	if c.producer == nil {
		return 0, 0, fmt.Errorf("producer is not configured")
	}
	return c.producer.SendMessage(msg)
}

func (c *saramaCluster) Close() error {
	if c.producer != nil {
		_ = c.producer.Close()
	}
	if c.consumer != nil {
		_ = c.consumer.Close()
	}
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

var connect = func(opts options) (kafkaCluster, error) {
	return connectCluster(opts)
}

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(log.InfoLevel)

	opts, err := readOptions()
	if err != nil {
		fail("%v", err)
	}

	cluster, err := connect(opts)
	if err != nil {
		fail("connect kafka: %v", err)
	}
	defer func() { _ = cluster.Close() }()

	if err := replay(context.Background(), cluster, opts); err != nil {
		fail("dlq replay failed: %v", err)
	}
}

func readOptions() (options, error) {
	var (
		brokersRaw string
		opts       options
	)

	flag.StringVar(&brokersRaw, "brokers", "", "Kafka brokers as comma-separated list (fallback: KAFKA_BROKERS)")
	flag.StringVar(&opts.sourceTopic, "source-topic", kafka.TopicDeadLetterQueue, "DLQ source topic")
	flag.StringVar(&opts.targetTopic, "target-topic", kafka.TopicReservationEvents, "target topic for replay")
	flag.IntVar(&opts.limit, "limit", defaultScanLimit, "max number of messages to scan/replay")
	flag.BoolVar(&opts.execute, "execute", false, "execute replay; default is dry-run")
	flag.BoolVar(&opts.fromNewest, "from-newest", false, "scan latest messages first (bounded by limit)")
	flag.DurationVar(&opts.idleTimeout, "idle-timeout", defaultIdleTimeout, "idle timeout per partition")
	flag.Parse()

	if strings.TrimSpace(brokersRaw) == "" {
		brokersRaw = os.Getenv("KAFKA_BROKERS")
	}
	opts.brokers = splitBrokers(brokersRaw)

	switch {
	case len(opts.brokers) == 0:
		return options{}, fmt.Errorf("kafka brokers are required (-brokers or KAFKA_BROKERS)")
	case strings.TrimSpace(opts.sourceTopic) == "":
		return options{}, fmt.Errorf("source-topic is required")
	case strings.TrimSpace(opts.targetTopic) == "":
		return options{}, fmt.Errorf("target-topic is required")
	case opts.limit <= 0:
		return options{}, fmt.Errorf("limit must be > 0")
	case opts.idleTimeout <= 0:
		return options{}, fmt.Errorf("idle-timeout must be > 0")
	}

	return opts, nil
}

func splitBrokers(raw string) []string {
	var brokers []string
	for _, chunk := range strings.Split(raw, ",") {
		if broker := strings.TrimSpace(chunk); broker != "" {
			brokers = append(brokers, broker)
		}
	}
	return brokers
}

func replay(ctx context.Context, cluster kafkaCluster, opts options) error {
	log.WithFields(log.Fields{
		"source_topic": opts.sourceTopic,
		"target_topic": opts.targetTopic,
		"limit":        opts.limit,
		"execute":      opts.execute,
		"from_newest":  opts.fromNewest,
	}).Info("starting dlq replay")

	partitions, err := cluster.Partitions(opts.sourceTopic)
	if err != nil {
		return fmt.Errorf("get partitions for topic %s: %w", opts.sourceTopic, err)
	}
	if len(partitions) == 0 {
		log.WithField("topic", opts.sourceTopic).Warn("source topic has no partitions")
		return nil
	}
	sort.Slice(partitions, func(i, j int) bool { return partitions[i] < partitions[j] })

	var total replayStats
	for _, partition := range partitions {
		remaining := opts.limit - total.scanned
		if remaining <= 0 {
			break
		}

		stats, err := scanPartition(ctx, cluster, opts, partition, remaining)
		if err != nil {
			return err
		}
		total.add(stats)
	}

	mode := "dry-run"
	if opts.execute {
		mode = "execute"
	}
	log.WithFields(log.Fields{
		"mode":     mode,
		"scanned":  total.scanned,
		"replayed": total.replayed,
		"skipped":  total.skipped,
	}).Info("dlq replay finished")

	return nil
}

func scanPartition(ctx context.Context, cluster kafkaCluster, opts options, partition int32, limit int) (replayStats, error) {
	var stats replayStats

	oldest, err := cluster.GetOffset(opts.sourceTopic, partition, sarama.OffsetOldest)
	if err != nil {
		return stats, fmt.Errorf("get oldest offset for partition %d: %w", partition, err)
	}
	newest, err := cluster.GetOffset(opts.sourceTopic, partition, sarama.OffsetNewest)
	if err != nil {
		return stats, fmt.Errorf("get newest offset for partition %d: %w", partition, err)
	}
	if newest <= oldest {
		return stats, nil
	}

	startOffset := oldest
	if opts.fromNewest {
		if startOffset = newest - int64(limit); startOffset < oldest {
			startOffset = oldest
		}
	}

	pc, err := cluster.ConsumePartition(opts.sourceTopic, partition, startOffset)
	if err != nil {
		return stats, fmt.Errorf("consume partition %d: %w", partition, err)
	}
	defer func() { _ = pc.Close() }()

	idleTimer := time.NewTimer(opts.idleTimeout)
	defer idleTimer.Stop()

	for stats.scanned < limit {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		case err := <-pc.Errors():
			if err != nil {
				return stats, fmt.Errorf("partition %d consumer error: %w", partition, err)
			}
		case msg, ok := <-pc.Messages():
			if !ok || msg == nil || msg.Offset >= newest {
				return stats, nil
			}

			if !idleTimer.Stop() {
				select {
				case <-idleTimer.C:
				default:
				}
			}
			idleTimer.Reset(opts.idleTimeout)

			stats.scanned++
			if err := handleMessage(cluster, opts, msg, &stats); err != nil {
				return stats, err
			}

			if msg.Offset+1 >= newest {
				return stats, nil
			}
		case <-idleTimer.C:
			return stats, nil
		}
	}

	return stats, nil
}

func handleMessage(cluster kafkaCluster, opts options, msg *sarama.ConsumerMessage, stats *replayStats) error {
	cand, ok, err := restoreCandidate(msg, opts.targetTopic)
	if err != nil {
		stats.skipped++
		log.WithError(err).WithFields(log.Fields{
			"partition": msg.Partition,
			"offset":    msg.Offset,
		}).Warn("skip unsupported dlq message")
		return nil
	}
	if !ok {
		stats.skipped++
		return nil
	}

	if !opts.execute {
		log.WithFields(log.Fields{
			"partition":    msg.Partition,
			"offset":       msg.Offset,
			"target_topic": cand.topic,
			"key":          cand.key,
		}).Info("dlq replay candidate")
		stats.replayed++
		return nil
	}

	_, _, err = cluster.SendMessage(&sarama.ProducerMessage{
		Topic:     cand.topic,
		Key:       sarama.StringEncoder(cand.key),
		Value:     sarama.ByteEncoder(cand.value),
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("publish replay message: %w", err)
	}
	stats.replayed++
	return nil
}

// restoreCandidate восстанавливает исходное сообщение из DLQ-записи.
// Поддерживаются два формата: запись consumer-а (original_topic/key/value)
// и конверт outbox-worker-а с вложенным payload исходного события.
func restoreCandidate(msg *sarama.ConsumerMessage, defaultTopic string) (candidate, bool, error) {
	var consumerRecord struct {
		OriginalTopic string `json:"original_topic"`
		OriginalKey   string `json:"original_key"`
		OriginalValue string `json:"original_value"`
	}
	if err := json.Unmarshal(msg.Value, &consumerRecord); err == nil && consumerRecord.OriginalValue != "" {
		topic := strings.TrimSpace(consumerRecord.OriginalTopic)
		if topic == "" {
			topic = defaultTopic
		}
		return candidate{
			topic: topic,
			key:   consumerRecord.OriginalKey,
			value: []byte(consumerRecord.OriginalValue),
		}, true, nil
	}

	var envelope struct {
		ID            string          `json:"id"`
		AggregateType string          `json:"aggregate_type"`
		AggregateID   string          `json:"aggregate_id"`
		EventType     string          `json:"event_type"`
		Payload       json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(msg.Value, &envelope); err != nil || len(envelope.Payload) == 0 {
		return candidate{}, false, nil
	}

	var dlqRecord struct {
		OutboxID      string          `json:"outbox_id"`
		AggregateType string          `json:"aggregate_type"`
		AggregateID   string          `json:"aggregate_id"`
		EventType     string          `json:"event_type"`
		Payload       json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(envelope.Payload, &dlqRecord); err != nil {
		return candidate{}, false, fmt.Errorf("decode outbox dlq payload: %w", err)
	}
	if len(dlqRecord.Payload) == 0 {
		return candidate{}, false, fmt.Errorf("outbox dlq payload does not contain original event payload")
	}

	restored := struct {
		ID            string          `json:"id"`
		AggregateType string          `json:"aggregate_type"`
		AggregateID   string          `json:"aggregate_id"`
		EventType     string          `json:"event_type"`
		Payload       json.RawMessage `json:"payload"`
		PublishedAt   time.Time       `json:"published_at"`
	}{
		ID:            firstNonEmpty(dlqRecord.OutboxID, envelope.ID),
		AggregateType: firstNonEmpty(dlqRecord.AggregateType, envelope.AggregateType),
		AggregateID:   firstNonEmpty(dlqRecord.AggregateID, envelope.AggregateID),
		EventType:     firstNonEmpty(dlqRecord.EventType, envelope.EventType),
		Payload:       dlqRecord.Payload,
		PublishedAt:   time.Now().UTC(),
	}
	encoded, err := json.Marshal(restored)
	if err != nil {
		return candidate{}, false, fmt.Errorf("encode replay envelope: %w", err)
	}

	key := restored.AggregateID
	if key == "" {
		key = restored.ID
	}

	return candidate{topic: defaultTopic, key: key, value: encoded}, true, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
