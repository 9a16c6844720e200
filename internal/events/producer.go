package events

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

// Publisher 写路径的事件出口
type Publisher interface {
	Publish(env Envelope) error
}

// Broadcaster 本地 ws 集线器（Kafka 不可用时的降级出口，也是消费端的最终出口）
type Broadcaster interface {
	BroadcastToHive(hiveID uint, payload any)
}

// KafkaPublisher 将事件写入 Kafka，按 HiveID 作为分区键
// 保证同一 Hive 的事件落在同一分区，维持单连接内有序
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("启动 Sarama 生产者失败: %w", err)
	}

	return &KafkaPublisher{
		producer: producer,
		topic:    topic,
	}, nil
}

func (k *KafkaPublisher) Publish(env Envelope) error {
	bytes, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("序列化事件失败: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(strconv.FormatUint(uint64(env.HiveID), 10)),
		Value: sarama.ByteEncoder(bytes),
	}

	if _, _, err := k.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("发送事件到 kafka 失败: %w", err)
	}
	return nil
}

func (k *KafkaPublisher) Close() error {
	return k.producer.Close()
}

// FallbackPublisher 优先走 Kafka，失败或未配置时直接广播到本地 Hub
// 对应 Kafka 不可用时的降级模式：事件仍能到达本节点的在线客户端
type FallbackPublisher struct {
	kafka  Publisher
	hub    Broadcaster
	logger *zap.Logger
}

func NewFallbackPublisher(kafka Publisher, hub Broadcaster, logger *zap.Logger) *FallbackPublisher {
	return &FallbackPublisher{kafka: kafka, hub: hub, logger: logger}
}

func (p *FallbackPublisher) Publish(env Envelope) error {
	if p.kafka != nil {
		if err := p.kafka.Publish(env); err == nil {
			return nil
		} else if p.logger != nil {
			p.logger.Warn("事件写入 Kafka 失败，降级为本地广播", zap.String("kind", env.Kind), zap.Error(err))
		}
	}
	if p.hub != nil {
		p.hub.BroadcastToHive(env.HiveID, env)
	}
	return nil
}
