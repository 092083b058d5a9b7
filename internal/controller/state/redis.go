package state

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// DialogTTL время жизни брошенного диалога
	DialogTTL = 30 * time.Minute

	redisKeyPrefix  = "medbooking:dialog:"
	redisStateField = "state"
	redisDataPrefix = "data:"
)

// RedisManager хранит состояния диалогов в Redis: один hash на пользователя.
// Ошибки Redis логируются, диалог при этом считается пустым.
type RedisManager struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisManager создаёт хранилище состояний в Redis
func NewRedisManager(client *redis.Client, logger *zap.Logger) *RedisManager {
	return &RedisManager{
		client: client,
		ttl:    DialogTTL,
		logger: logger,
	}
}

func redisKey(telegramID int64) string {
	return fmt.Sprintf("%s%d", redisKeyPrefix, telegramID)
}

// GetState получает текущее состояние пользователя
func (rm *RedisManager) GetState(ctx context.Context, telegramID int64) UserState {
	value, err := rm.client.HGet(ctx, redisKey(telegramID), redisStateField).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			rm.logError("get state", telegramID, err)
		}
		return StateNone
	}
	return UserState(value)
}

// SetState устанавливает состояние пользователя
func (rm *RedisManager) SetState(ctx context.Context, telegramID int64, state UserState) {
	key := redisKey(telegramID)

	pipe := rm.client.TxPipeline()
	if state == StateNone {
		pipe.HDel(ctx, key, redisStateField)
	} else {
		pipe.HSet(ctx, key, redisStateField, string(state))
	}
	pipe.Expire(ctx, key, rm.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		rm.logError("set state", telegramID, err)
	}
}

// GetData получает временные данные пользователя
func (rm *RedisManager) GetData(ctx context.Context, telegramID int64, key string) (string, bool) {
	value, err := rm.client.HGet(ctx, redisKey(telegramID), redisDataPrefix+key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			rm.logError("get data", telegramID, err)
		}
		return "", false
	}
	return value, true
}

// SetData устанавливает временные данные пользователя
func (rm *RedisManager) SetData(ctx context.Context, telegramID int64, key string, value string) {
	hashKey := redisKey(telegramID)

	pipe := rm.client.TxPipeline()
	pipe.HSet(ctx, hashKey, redisDataPrefix+key, value)
	pipe.Expire(ctx, hashKey, rm.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		rm.logError("set data", telegramID, err)
	}
}

// DeleteData удаляет одно значение
func (rm *RedisManager) DeleteData(ctx context.Context, telegramID int64, key string) {
	if err := rm.client.HDel(ctx, redisKey(telegramID), redisDataPrefix+key).Err(); err != nil {
		rm.logError("delete data", telegramID, err)
	}
}

// ClearState очищает состояние и данные пользователя
func (rm *RedisManager) ClearState(ctx context.Context, telegramID int64) {
	if err := rm.client.Del(ctx, redisKey(telegramID)).Err(); err != nil {
		rm.logError("clear state", telegramID, err)
	}
}

// GetAllData получает все временные данные пользователя
func (rm *RedisManager) GetAllData(ctx context.Context, telegramID int64) map[string]string {
	fields, err := rm.client.HGetAll(ctx, redisKey(telegramID)).Result()
	if err != nil {
		rm.logError("get all data", telegramID, err)
		return nil
	}

	data := make(map[string]string, len(fields))
	for field, value := range fields {
		if name, ok := strings.CutPrefix(field, redisDataPrefix); ok {
			data[name] = value
		}
	}
	if len(data) == 0 {
		return nil
	}
	return data
}

func (rm *RedisManager) logError(op string, telegramID int64, err error) {
	rm.logger.Error("Dialog state store failed",
		zap.String("op", op),
		zap.Int64("telegram_id", telegramID),
		zap.Error(err))
}
