package scheduler

import (
	"context"
	"log"
	"sync"
	"time"
)

// Task는 스케줄러가 실행할 작업을 정의하는 인터페이스입니다
type Task interface {
	Execute(ctx context.Context) error
}

// Scheduler는 고정 간격으로 작업을 실행하는 스케줄러입니다.
// 작업은 루프 안에서 순차 실행되므로 사이클이 겹치는 일은 없습니다.
// 사이클이 간격보다 오래 걸리면 그 사이의 틱은 버려집니다.
type Scheduler struct {
	interval time.Duration
	task     Task
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewScheduler는 새로운 스케줄러를 생성합니다
func NewScheduler(interval time.Duration, task Task) *Scheduler {
	return &Scheduler{
		interval: interval,
		task:     task,
		stopCh:   make(chan struct{}),
	}
}

// Start는 스케줄러 루프를 실행합니다. Stop이 호출되거나 ctx가 취소될 때까지 블록합니다.
func (s *Scheduler) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-s.stopCh:
			return nil

		case <-ticker.C:
			if err := s.task.Execute(ctx); err != nil {
				log.Printf("작업 실행 실패: %v", err)
				// 에러가 발생해도 계속 실행
			}
		}
	}
}

// Stop은 스케줄러를 중지합니다. 여러 번 호출해도 안전합니다.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}
