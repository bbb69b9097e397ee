// Package kafka wraps the sarama producer used to publish ledger events.
//
//	kafka-console-consumer.sh --topic settlements --bootstrap-server localhost:9092 --from-beginning
package kafka

import (
	"encoding/binary"
	"net/url"
	"strings"

	"github.com/IBM/sarama"
	"github.com/nomadmarket/nomadledger/errors"
	"github.com/nomadmarket/nomadledger/util"
)

type Producer interface {
	Send(key []byte, data []byte) error
	Close() error
}

// TopicConfig is what a kafka URL describes:
//
//	kafka://broker1:9092,broker2:9092/settlements?partitions=4&replication=1&retention=604800000&flush_bytes=1024
type TopicConfig struct {
	Brokers     []string
	Topic       string
	Partitions  int32
	Replication int16
	RetentionMs string
	FlushBytes  int
}

func ParseURL(kafkaURL *url.URL) (*TopicConfig, error) {
	if kafkaURL.Scheme != "kafka" {
		return nil, errors.NewConfigurationError("kafka url %s must use the kafka scheme", kafkaURL.Redacted())
	}

	if kafkaURL.Host == "" {
		return nil, errors.NewConfigurationError("kafka url %s has no brokers", kafkaURL.Redacted())
	}

	topic := strings.TrimPrefix(kafkaURL.Path, "/")
	if topic == "" {
		return nil, errors.NewConfigurationError("kafka url %s has no topic", kafkaURL.Redacted())
	}

	partitions := util.GetQueryParamInt(kafkaURL, "partitions", 1)
	if partitions < 1 {
		return nil, errors.NewConfigurationError("kafka url %s: partitions must be positive", kafkaURL.Redacted())
	}

	return &TopicConfig{
		Brokers:     strings.Split(kafkaURL.Host, ","),
		Topic:       topic,
		Partitions:  int32(partitions),
		Replication: int16(util.GetQueryParamInt(kafkaURL, "replication", 1)),
		RetentionMs: util.GetQueryParam(kafkaURL, "retention", "604800000"), // 7 days
		FlushBytes:  util.GetQueryParamInt(kafkaURL, "flush_bytes", 1024),
	}, nil
}

// NewProducer creates the topic named by kafkaURL if it does not exist and
// connects a synchronous producer to it.
func NewProducer(kafkaURL *url.URL) (Producer, error) {
	cfg, err := ParseURL(kafkaURL)
	if err != nil {
		return nil, err
	}

	if err = ensureTopic(cfg); err != nil {
		return nil, err
	}

	producer, err := Connect(cfg)
	if err != nil {
		return nil, errors.NewServiceError("unable to connect to kafka", err)
	}

	return producer, nil
}

func ensureTopic(cfg *TopicConfig) error {
	config := sarama.NewConfig()
	config.Version = sarama.V2_1_0_0

	admin, err := sarama.NewClusterAdmin(cfg.Brokers, config)
	if err != nil {
		return errors.NewServiceError("error while creating cluster admin", err)
	}

	defer func() {
		_ = admin.Close()
	}()

	err = admin.CreateTopic(cfg.Topic, &sarama.TopicDetail{
		NumPartitions:     cfg.Partitions,
		ReplicationFactor: cfg.Replication,
		ConfigEntries:     map[string]*string{"retention.ms": &cfg.RetentionMs},
	}, false)
	if err != nil && !errors.Is(err, sarama.ErrTopicAlreadyExists) {
		return errors.NewServiceError("failed to create topic %s", cfg.Topic, err)
	}

	return nil
}

// Connect opens a producer that waits for all in-sync replicas and chooses the
// partition itself.
func Connect(cfg *TopicConfig) (*SyncProducer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Partitioner = sarama.NewManualPartitioner
	config.Producer.Flush.Bytes = cfg.FlushBytes

	producer, err := sarama.NewSyncProducer(cfg.Brokers, config)
	if err != nil {
		return nil, err
	}

	return NewSyncProducer(producer, cfg.Topic, cfg.Partitions), nil
}

type SyncProducer struct {
	producer   sarama.SyncProducer
	topic      string
	partitions int32
}

func NewSyncProducer(producer sarama.SyncProducer, topic string, partitions int32) *SyncProducer {
	if partitions < 1 {
		partitions = 1
	}

	return &SyncProducer{producer: producer, topic: topic, partitions: partitions}
}

// Partition maps a key to a partition. Equal keys share a partition, keys
// shorter than 4 bytes use partition 0.
func (k *SyncProducer) Partition(key []byte) int32 {
	if len(key) < 4 {
		return 0
	}

	return int32(binary.LittleEndian.Uint32(key) % uint32(k.partitions))
}

func (k *SyncProducer) Send(key []byte, data []byte) error {
	_, _, err := k.producer.SendMessage(&sarama.ProducerMessage{
		Topic:     k.topic,
		Key:       sarama.ByteEncoder(key),
		Value:     sarama.ByteEncoder(data),
		Partition: k.Partition(key),
	})
	if err != nil {
		return errors.NewServiceError("failed to send message to topic %s", k.topic, err)
	}

	return nil
}

func (k *SyncProducer) Close() error {
	if err := k.producer.Close(); err != nil {
		return errors.NewServiceError("failed to close kafka producer", err)
	}

	return nil
}
