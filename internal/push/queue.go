package push

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

// KafkaNotifier 把推送任务排进 Kafka，由 Dispatcher 异步投递
// 发送方不等待投递结果，公告创建等触发路径因此不会被推送拖慢
type KafkaNotifier struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaNotifier(brokers []string, topic string) (*KafkaNotifier, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Retry.Max = 3

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("启动推送队列生产者失败: %w", err)
	}
	return &KafkaNotifier{producer: producer, topic: topic}, nil
}

func (k *KafkaNotifier) Notify(_ context.Context, n Notification) error {
	bytes, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("序列化推送任务失败: %w", err)
	}
	msg := &sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(strconv.FormatUint(uint64(n.RecipientID), 10)),
		Value: sarama.ByteEncoder(bytes),
	}
	if _, _, err := k.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("推送任务入队失败: %w", err)
	}
	return nil
}

func (k *KafkaNotifier) Close() error {
	return k.producer.Close()
}

// Dispatcher 消费推送队列并投递
// 任何投递失败只记日志，消息照常 mark，不重试不阻塞
type Dispatcher struct {
	sender Notifier
	logger *zap.Logger
}

func NewDispatcher(sender Notifier, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{sender: sender, logger: logger}
}

func (d *Dispatcher) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (d *Dispatcher) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (d *Dispatcher) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		var n Notification
		if err := json.Unmarshal(message.Value, &n); err != nil {
			d.logger.Warn("反序列化推送任务失败", zap.Error(err))
			session.MarkMessage(message, "")
			continue
		}

		if err := d.sender.Notify(session.Context(), n); err != nil {
			// 尽力而为：投递失败不重试
			d.logger.Warn("推送投递失败",
				zap.Uint("recipient", n.RecipientID),
				zap.Error(err))
		}
		session.MarkMessage(message, "")
	}
	return nil
}

// StartDispatcher 启动推送消费组
func StartDispatcher(brokers []string, groupID, topic string, dispatcher *Dispatcher, logger *zap.Logger) error {
	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.Strategy = sarama.NewBalanceStrategyRoundRobin()
	config.Consumer.Offsets.Initial = sarama.OffsetNewest

	client, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return fmt.Errorf("创建推送消费组失败: %w", err)
	}

	ctx := context.Background()
	go func() {
		for {
			if err := client.Consume(ctx, []string{topic}, dispatcher); err != nil {
				logger.Error("推送消费组错误", zap.Error(err))
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()
	return nil
}
