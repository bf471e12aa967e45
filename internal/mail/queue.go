package mail

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const defaultMaxLen = 10000

// Queue hands messages to the mailer process through a Redis stream. Send
// returns once the message is durably enqueued, not when it is delivered.
type Queue struct {
	client *redis.Client
	stream string
}

func NewQueue(client *redis.Client, stream string) *Queue {
	return &Queue{client: client, stream: stream}
}

func (q *Queue) Send(ctx context.Context, to string, subject string, body string) error {
	msg := Message{To: to, Subject: subject, Body: body}
	if err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		MaxLen: defaultMaxLen,
		Approx: true,
		Values: msg.values(),
	}).Err(); err != nil {
		return fmt.Errorf("enqueue mail: %w", err)
	}
	return nil
}
