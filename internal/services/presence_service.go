package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// PresenceService 在线心跳计数
// 用共享缓存的 TTL key 取代进程内 map，多实例部署下计数一致；
// 仅用于界面展示，绝不参与任何鉴权判断
type PresenceService struct {
	redis      *redis.Client
	ttl        time.Duration
	Membership *MembershipService
}

func NewPresenceService(redisClient *redis.Client, ttl time.Duration, membership *MembershipService) *PresenceService {
	return &PresenceService{
		redis:      redisClient,
		ttl:        ttl,
		Membership: membership,
	}
}

func presenceKey(hiveID, userID uint) string {
	return fmt.Sprintf("presence:hive:%d:user:%d", hiveID, userID)
}

func presencePattern(hiveID uint) string {
	return fmt.Sprintf("presence:hive:%d:user:*", hiveID)
}

// Heartbeat 刷新在线标记并返回当前在线人数
// 过期修剪交给 Redis TTL，无需主动清扫
func (s *PresenceService) Heartbeat(ctx context.Context, userID, hiveID uint) (int, error) {
	hive, err := s.Membership.HiveRepo.GetByID(hiveID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrHiveNotFound
	}
	if err != nil {
		return 0, err
	}

	state, err := s.Membership.StateOf(hive, userID)
	if err != nil {
		return 0, err
	}
	if state != StateMember && state != StateCreator {
		return 0, ErrNotMember
	}

	if err := s.redis.Set(ctx, presenceKey(hiveID, userID), time.Now().Unix(), s.ttl).Err(); err != nil {
		return 0, err
	}
	return s.count(ctx, hiveID)
}

// Touch 批量续期在线标记，供长连接的 Pong 回调使用
// 连接建立时已校验过成员资格，这里不再重复查库
func (s *PresenceService) Touch(ctx context.Context, userID uint, hiveIDs []uint) {
	for _, hiveID := range hiveIDs {
		_ = s.redis.Set(ctx, presenceKey(hiveID, userID), time.Now().Unix(), s.ttl).Err()
	}
}

// OnlineCount 某 Hive 当前在线人数（未过期 key 的数量）
func (s *PresenceService) OnlineCount(ctx context.Context, hiveID uint) (int, error) {
	return s.count(ctx, hiveID)
}

func (s *PresenceService) count(ctx context.Context, hiveID uint) (int, error) {
	var (
		cursor uint64
		total  int
	)
	for {
		keys, next, err := s.redis.Scan(ctx, cursor, presencePattern(hiveID), 100).Result()
		if err != nil {
			return 0, err
		}
		total += len(keys)
		cursor = next
		if cursor == 0 {
			return total, nil
		}
	}
}
