package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"mindcare/models"

	"github.com/go-redis/redis/v8"
)

const (
	EVENT_QUEUE        = "chat_event_queue"
	QUEUE_WORKER_COUNT = 5
)

// Действия, которые обрабатывают воркеры очереди
const (
	TaskChatEvent  = "chat_event"
	TaskFeedUpdate = "feed_update"
	TaskFeedRemove = "feed_remove"
)

// QueueTask - задача фоновой обработки: доставка события чата или
// обновление лент после изменения поста
type QueueTask struct {
	Action string       `json:"action"`
	Event  *ChatEvent   `json:"event,omitempty"`
	UserID int64        `json:"user_id,omitempty"`
	Post   *models.Post `json:"post,omitempty"`
}

// QueueServiceInstance создается на старте сервера после подключения Redis
var QueueServiceInstance *QueueService

type QueueService struct {
	postService *PostService
}

func NewQueueService() *QueueService {
	return &QueueService{
		postService: NewPostService(),
	}
}

// StartWorkers запускает воркеры для обработки очереди
func (qs *QueueService) StartWorkers(ctx context.Context) {
	for i := 0; i < QUEUE_WORKER_COUNT; i++ {
		go qs.worker(ctx, i)
	}
}

// Enqueue кладет задачу в очередь, ошибка означает что вызывающий
// должен выполнить работу синхронно
func (qs *QueueService) Enqueue(ctx context.Context, task QueueTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return RedisClient.RPush(ctx, EVENT_QUEUE, data).Err()
}

// EnqueueChatEvent ставит событие чата на доставку
func (qs *QueueService) EnqueueChatEvent(ctx context.Context, event ChatEvent) error {
	return qs.Enqueue(ctx, QueueTask{Action: TaskChatEvent, Event: &event})
}

// EnqueueFeedUpdate ставит обновление лент после создания/удаления поста
func (qs *QueueService) EnqueueFeedUpdate(ctx context.Context, userID int64, post models.Post, action string) error {
	taskAction := TaskFeedUpdate
	if action == "delete" {
		taskAction = TaskFeedRemove
	}
	return qs.Enqueue(ctx, QueueTask{Action: taskAction, UserID: userID, Post: &post})
}

// worker обрабатывает задачи из очереди
func (qs *QueueService) worker(ctx context.Context, workerID int) {
	log.Printf("Queue worker %d started", workerID)

	for {
		select {
		case <-ctx.Done():
			log.Printf("Queue worker %d stopping", workerID)
			return
		default:
			result, err := RedisClient.BLPop(ctx, 5*time.Second, EVENT_QUEUE).Result()
			if err != nil {
				if err == redis.Nil {
					// Таймаут - продолжаем
					continue
				}
				if ctx.Err() != nil {
					return
				}
				log.Printf("Worker %d error getting task: %v", workerID, err)
				time.Sleep(time.Second)
				continue
			}

			if len(result) < 2 {
				continue
			}

			var task QueueTask
			if err := json.Unmarshal([]byte(result[1]), &task); err != nil {
				log.Printf("Worker %d error unmarshaling task: %v", workerID, err)
				continue
			}

			qs.processTask(ctx, &task, workerID)
		}
	}
}

// processTask обрабатывает конкретную задачу
func (qs *QueueService) processTask(ctx context.Context, task *QueueTask, workerID int) {
	switch task.Action {
	case TaskChatEvent:
		if task.Event == nil {
			return
		}
		DeliverChatEvent(ctx, *task.Event)
	case TaskFeedUpdate:
		if task.Post == nil {
			return
		}
		qs.postService.fanOutPost(ctx, task.UserID, task.Post)
	case TaskFeedRemove:
		if task.Post == nil {
			return
		}
		qs.postService.removePostFromAllFeeds(ctx, task.UserID, task.Post.ID)
	default:
		log.Printf("Worker %d unknown task action: %s", workerID, task.Action)
	}
}

// DeliverChatEvent сбрасывает кеш счетчиков получателя и пушит событие.
// RabbitMQ с fallback на прямую отправку через WebSocket.
func DeliverChatEvent(ctx context.Context, event ChatEvent) {
	InvalidateUnreadCounts(ctx, event.UserID)

	if err := PublishChatEvent(ctx, event); err != nil {
		pushData, merr := json.Marshal(event)
		if merr != nil {
			return
		}
		GlobalWSConnManager.Send(event.UserID, pushData)
	}
}
