package kraken

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/assist-by/halvar/internal/domain"
)

// attemptFunc는 개인 API 요청 한 번의 시도입니다.
// 매 시도마다 새 논스로 요청을 새로 만들어 전송해야 하므로 함수로 전달됩니다.
type attemptFunc func(ctx context.Context) ([]byte, error)

type taskResult struct {
	body []byte
	err  error
}

type queueTask struct {
	ctx     context.Context
	attempt attemptFunc
	done    chan taskResult
}

// PrivateQueue는 모든 개인 API 요청을 하나의 FIFO로 직렬화합니다.
// 논스가 디스패치 순서대로 증가해야 하므로 동시에 두 요청이 전송되는 일은 없습니다.
type PrivateQueue struct {
	mu      sync.Mutex
	tasks   []*queueTask
	running bool

	maxAttempts int           // 작업당 최대 시도 횟수
	retryDelay  time.Duration // 일시적 실패 재시도 간격
	cooldown    time.Duration // 레이트 리밋 초과 시 대기 시간
}

// QueueOption은 큐 생성 옵션을 정의합니다
type QueueOption func(*PrivateQueue)

// WithMaxAttempts는 작업당 최대 시도 횟수를 설정합니다
func WithMaxAttempts(n int) QueueOption {
	return func(q *PrivateQueue) {
		q.maxAttempts = n
	}
}

// WithRetryDelay는 일시적 실패 후 재시도 간격을 설정합니다
func WithRetryDelay(d time.Duration) QueueOption {
	return func(q *PrivateQueue) {
		q.retryDelay = d
	}
}

// WithCooldown은 레이트 리밋 초과 시 대기 시간을 설정합니다
func WithCooldown(d time.Duration) QueueOption {
	return func(q *PrivateQueue) {
		q.cooldown = d
	}
}

// NewPrivateQueue는 새로운 개인 요청 큐를 생성합니다
func NewPrivateQueue(opts ...QueueOption) *PrivateQueue {
	q := &PrivateQueue{
		maxAttempts: 3,
		retryDelay:  1 * time.Second,
		cooldown:    3 * time.Second,
	}

	for _, opt := range opts {
		opt(q)
	}

	return q
}

// Enqueue는 작업을 큐에 추가하고 결과를 기다립니다.
// 큐가 비어 있었으면 워커 루프를 정확히 한 번 다시 시작합니다.
func (q *PrivateQueue) Enqueue(ctx context.Context, attempt attemptFunc) ([]byte, error) {
	task := &queueTask{
		ctx:     ctx,
		attempt: attempt,
		done:    make(chan taskResult, 1),
	}

	q.mu.Lock()
	q.tasks = append(q.tasks, task)
	if !q.running {
		q.running = true
		go q.drain()
	}
	q.mu.Unlock()

	// 취소된 호출자는 결과를 기다리지 않고 반환합니다.
	// 작업 자체는 워커가 순서대로 처리하며, done 채널은 버퍼가 있어 누수되지 않습니다.
	select {
	case result := <-task.done:
		return result.body, result.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// drain은 큐가 빌 때까지 작업을 하나씩 처리합니다.
// 한 호출자의 실패가 큐 전체를 멈추거나 실패시키지 않습니다.
func (q *PrivateQueue) drain() {
	for {
		q.mu.Lock()
		if len(q.tasks) == 0 {
			q.running = false
			q.mu.Unlock()
			return
		}
		task := q.tasks[0]
		q.tasks = q.tasks[1:]
		q.mu.Unlock()

		body, err := q.execute(task)
		task.done <- taskResult{body: body, err: err}
	}
}

// execute는 하나의 작업을 재시도 한도 내에서 실행합니다.
// 레이트 리밋 에러는 쿨다운 후 같은 작업을 재전송하며, 다음 작업으로 넘어가지 않습니다.
func (q *PrivateQueue) execute(task *queueTask) ([]byte, error) {
	var lastErr error

	for attempt := 1; attempt <= q.maxAttempts; attempt++ {
		if err := task.ctx.Err(); err != nil {
			return nil, err
		}

		body, err := task.attempt(task.ctx)
		if err == nil {
			return body, nil
		}
		lastErr = err

		var exchangeErr *domain.ExchangeError
		if errors.As(err, &exchangeErr) {
			if exchangeErr.RateLimited() {
				log.Printf("레이트 리밋 초과, %v 대기 후 재전송합니다 (시도 %d/%d)", q.cooldown, attempt, q.maxAttempts)
				if attempt < q.maxAttempts {
					q.sleep(task.ctx, q.cooldown)
				}
				continue
			}
			// 레이트 리밋이 아닌 거래소 거부는 재시도해도 결과가 같으므로 즉시 실패 처리합니다
			return nil, err
		}

		// 네트워크 등 일시적 실패는 고정 간격으로 재시도합니다
		log.Printf("개인 요청 실패, 재시도합니다 (시도 %d/%d): %v", attempt, q.maxAttempts, err)
		if attempt < q.maxAttempts {
			q.sleep(task.ctx, q.retryDelay)
		}
	}

	return nil, lastErr
}

func (q *PrivateQueue) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
