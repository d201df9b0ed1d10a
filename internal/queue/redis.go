package queue

import (
	"context"
	"errors"
	"fmt"

	"photocache/downloader/internal/config"
	"photocache/downloader/internal/domain/task"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Queue journals tasks to one stream per task type.
type Queue interface {
	AddTask(ctx context.Context, task task.Task) (string, error) // Returns message ID
	EnsureStreamsExist(ctx context.Context) error
}

// StreamPrefix namespaces every stream written by this application.
const StreamPrefix = "photocache:stream:"

// journaledTaskTypes are the streams downstream consumers read from.
var journaledTaskTypes = []string{
	(&task.DownloadOutcomeTask{}).TaskType(),
}

type RedisQueue struct {
	redisClient  *redis.Client
	streamPrefix string
	groupName    string
	maxLen       int64
}

func NewRedisQueue(ctx context.Context, redisClient *redis.Client, cfg config.RedisConfig) (*RedisQueue, error) {
	q := &RedisQueue{
		redisClient:  redisClient,
		streamPrefix: StreamPrefix,
		groupName:    cfg.ConsumerGroup,
		maxLen:       100000,
	}

	// Consumers attach to the group, so it must exist before the first outcome is journaled.
	if err := q.EnsureStreamsExist(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure streams exist: %w", err)
	}

	return q, nil
}

func (q *RedisQueue) StreamName(taskType string) string {
	return q.streamPrefix + taskType
}

func (q *RedisQueue) CreateGroup(ctx context.Context, stream, group string) error {
	err := q.redisClient.XGroupCreateMkStream(ctx, stream, group, "$").Err()
	if err != nil && err.Error() == "BUSYGROUP Consumer Group name already exists" {
		log.Debugf("Group %s already exists for stream %s", group, stream)
		return nil
	}
	return err
}

func (q *RedisQueue) AddTask(ctx context.Context, task task.Task) (string, error) {
	taskType := task.TaskType()
	streamName := q.StreamName(taskType)

	taskValue, err := task.TaskValue()
	if err != nil {
		return "", fmt.Errorf("failed to serialize task: %w", err)
	}

	messageID, err := q.redisClient.XAdd(ctx, &redis.XAddArgs{
		Stream: streamName,
		MaxLen: q.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"task_type": taskType,
			"task_data": string(taskValue),
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("failed to add task to Redis stream %s: %w", streamName, err)
	}

	log.Debugf("Added task %s to stream %s with message ID: %s", taskType, streamName, messageID)
	return messageID, nil
}

// EnsureStreamsExist creates every journal stream together with its consumer group.
func (q *RedisQueue) EnsureStreamsExist(ctx context.Context) error {
	if q.groupName == "" {
		return errors.New("consumer group name is empty")
	}

	for _, taskType := range journaledTaskTypes {
		streamName := q.StreamName(taskType)

		if err := q.CreateGroup(ctx, streamName, q.groupName); err != nil {
			return fmt.Errorf("failed to create consumer group for %s: %w", taskType, err)
		}

		log.Infof("✅ Stream %s and consumer group %s ready", streamName, q.groupName)
	}

	return nil
}
