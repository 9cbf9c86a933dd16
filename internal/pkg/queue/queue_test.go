package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return client, cleanup
}

func TestQueue_PushPop(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()

	t.Run("message survives the queue", func(t *testing.T) {
		q := NewQueue(client, "test_roundtrip")

		original := &TranscriptionMessage{
			JobID:     42,
			TaskID:    "5f1d7a2e-8c1b-4c59-9a3e-2b8f3f6a1c10",
			UserID:    7,
			AudioRef:  "minio://audio-files/7/interview.wav",
			Filename:  "interview.wav",
			Model:     "base",
			Translate: true,
		}
		require.NoError(t, q.Push(ctx, original))

		length, err := q.Length(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), length)

		result, err := q.Pop(ctx, time.Second)
		require.NoError(t, err)
		require.NotNil(t, result)
		assert.Equal(t, original, result)
	})

	t.Run("FIFO order", func(t *testing.T) {
		q := NewQueue(client, "test_fifo_queue")

		for i := 1; i <= 3; i++ {
			require.NoError(t, q.Push(ctx, &TranscriptionMessage{JobID: int64(i)}))
		}

		for i := 1; i <= 3; i++ {
			result, err := q.Pop(ctx, time.Second)
			require.NoError(t, err)
			require.NotNil(t, result)
			assert.Equal(t, int64(i), result.JobID)
		}

		length, err := q.Length(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), length)
	})

	t.Run("empty queue times out", func(t *testing.T) {
		q := NewQueue(client, "test_empty_queue")

		result, err := q.Pop(ctx, 10*time.Millisecond)
		// miniredis 的 BRPop 超时行为与真实 Redis 略有差异
		if err == nil {
			assert.Nil(t, result)
		}
	})

	t.Run("queues are isolated", func(t *testing.T) {
		q1 := NewQueue(client, "queue_1")
		q2 := NewQueue(client, "queue_2")

		require.NoError(t, q1.Push(ctx, &TranscriptionMessage{JobID: 1}))
		require.NoError(t, q2.Push(ctx, &TranscriptionMessage{JobID: 2}))

		r1, err := q1.Pop(ctx, time.Second)
		require.NoError(t, err)
		r2, err := q2.Pop(ctx, time.Second)
		require.NoError(t, err)

		assert.Equal(t, int64(1), r1.JobID)
		assert.Equal(t, int64(2), r2.JobID)
	})
}

func TestQueue_PopInvalidPayload(t *testing.T) {
	client, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	q := NewQueue(client, "test_bad_payload")

	require.NoError(t, client.LPush(ctx, "test_bad_payload", "not json").Err())

	result, err := q.Pop(ctx, time.Second)
	assert.Error(t, err)
	assert.Nil(t, result)
}
