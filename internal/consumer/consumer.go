package consumer

import (
	"context"
	"encoding/json"
	"log"

	"github.com/IBM/sarama"

	"github.com/hivechat/hive/internal/events"
)

// Sink 本地扇出出口，只投递到本节点的连接
type Sink interface {
	BroadcastLocal(hiveID uint, payload any)
}

// EventConsumer 消费事件主题并扇出到本节点的 WebSocket 集线器
// 每个网关节点以独立 GroupID 订阅全量事件，扇出只走本地：
// 跨节点到达由各节点自己的消费组保证，再经 Redis 转发会让客户端收到 N 份
type EventConsumer struct {
	hub Sink
}

func NewEventConsumer(hub Sink) *EventConsumer {
	return &EventConsumer{hub: hub}
}

// Setup is run at the beginning of a new session, before ConsumeClaim
func (consumer *EventConsumer) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

// Cleanup is run at the end of a session, once all ConsumeClaim goroutines have exited
func (consumer *EventConsumer) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

// ConsumeClaim must start a consumer loop of ConsumerGroupClaim's Messages().
func (consumer *EventConsumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		var env events.Envelope
		if err := json.Unmarshal(message.Value, &env); err != nil {
			log.Printf("反序列化事件失败: %v", err)
			session.MarkMessage(message, "")
			continue
		}

		// 写库已在发布前完成，这里只做本节点扇出
		consumer.hub.BroadcastLocal(env.HiveID, env)

		session.MarkMessage(message, "")
	}
	return nil
}

// StartConsumer 启动消费者组循环，直到 ctx 取消
func StartConsumer(ctx context.Context, brokers []string, groupID string, topic string, consumer *EventConsumer) error {
	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.Strategy = sarama.NewBalanceStrategyRoundRobin()
	config.Consumer.Offsets.Initial = sarama.OffsetNewest

	client, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return err
	}

	go func() {
		defer client.Close()
		for {
			if err := client.Consume(ctx, []string{topic}, consumer); err != nil {
				log.Printf("消费者错误: %v", err)
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()
	return nil
}
