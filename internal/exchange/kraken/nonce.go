package kraken

import (
	"log"
	"sync"
	"time"
)

// NonceStorage는 논스 상태의 영속화를 추상화합니다.
// 파일, 내장 DB 등 구현체를 교체해도 파이프라인 로직은 변하지 않습니다.
type NonceStorage interface {
	// LoadNonce는 저장된 논스 상태를 반환합니다. 저장된 값이 없으면 (0, 0, nil)을 반환합니다.
	LoadNonce() (lastNonce int64, increment int64, err error)
	SaveNonce(lastNonce int64, increment int64) error
}

// NonceManager는 개인 API 호출마다 엄격히 증가하는 논스를 생성합니다.
// 프로세스 재시작 후에도 저장된 상태를 기준으로 단조 증가가 유지됩니다.
type NonceManager struct {
	mu        sync.Mutex
	lastNonce int64 // 마이크로초 단위 벽시계 기준값
	increment int64
	store     NonceStorage
	now       func() int64
}

// NonceManagerOption은 논스 매니저 생성 옵션을 정의합니다
type NonceManagerOption func(*NonceManager)

// WithNonceClock은 마이크로초 시계를 교체합니다 (테스트용)
func WithNonceClock(now func() int64) NonceManagerOption {
	return func(m *NonceManager) {
		m.now = now
	}
}

// NewNonceManager는 새로운 논스 매니저를 생성합니다.
// store가 nil이 아니면 저장된 상태를 로드하여 이전 프로세스가 발급한 값 위에서 이어갑니다.
func NewNonceManager(store NonceStorage, opts ...NonceManagerOption) *NonceManager {
	m := &NonceManager{
		store: store,
		now: func() int64 {
			return time.Now().UnixMicro()
		},
	}

	for _, opt := range opts {
		opt(m)
	}

	if store != nil {
		last, inc, err := store.LoadNonce()
		if err != nil {
			log.Printf("논스 상태 로드 실패 (현재 시각부터 시작합니다): %v", err)
		} else {
			m.lastNonce = last
			m.increment = inc
		}
	}

	return m
}

// Next는 이전에 반환된 모든 값보다 엄격히 큰 논스를 반환합니다.
// 이 연산은 실패하지 않습니다. 영속화 실패는 로그만 남기고 논스 반환을 막지 않습니다.
func (m *NonceManager) Next() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	// 시계가 마지막 발급 논스를 지나친 경우에만 기준값을 갱신합니다.
	// 그렇지 않으면 (연속 호출, 시계 되감김) increment만 증가시켜 단조성을 보장합니다.
	now := m.now()
	if now > m.lastNonce+m.increment {
		m.lastNonce = now
		m.increment = 0
	}
	m.increment++

	nonce := m.lastNonce + m.increment

	if m.store != nil {
		if err := m.store.SaveNonce(m.lastNonce, m.increment); err != nil {
			log.Printf("논스 상태 저장 실패: %v", err)
		}
	}

	return nonce
}
