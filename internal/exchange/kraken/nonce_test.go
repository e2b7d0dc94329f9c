package kraken

import (
	"fmt"
	"testing"
)

// fakeNonceStore는 테스트용 인메모리 논스 저장소입니다
type fakeNonceStore struct {
	lastNonce int64
	increment int64
	failSave  bool
	saveCalls int
}

func (s *fakeNonceStore) LoadNonce() (int64, int64, error) {
	return s.lastNonce, s.increment, nil
}

func (s *fakeNonceStore) SaveNonce(lastNonce, increment int64) error {
	s.saveCalls++
	if s.failSave {
		return fmt.Errorf("저장 실패")
	}
	s.lastNonce = lastNonce
	s.increment = increment
	return nil
}

func TestNonceManagerStrictlyIncreasing(t *testing.T) {
	tests := []struct {
		name   string
		clocks []int64 // 호출마다 시계가 반환할 값
	}{
		{
			name:   "시계가 정상적으로 증가하는 경우",
			clocks: []int64{1000, 2000, 3000, 4000},
		},
		{
			name:   "시계가 멈춰 있는 경우",
			clocks: []int64{1000, 1000, 1000, 1000},
		},
		{
			name:   "시계가 뒤로 가는 경우",
			clocks: []int64{5000, 4000, 3000, 2000},
		},
		{
			name:   "시계가 불규칙한 경우",
			clocks: []int64{1000, 500, 1001, 900, 1002},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := 0
			m := NewNonceManager(nil, WithNonceClock(func() int64 {
				v := tt.clocks[idx]
				if idx < len(tt.clocks)-1 {
					idx++
				}
				return v
			}))

			prev := int64(0)
			for i := range tt.clocks {
				nonce := m.Next()
				if nonce <= prev {
					t.Fatalf("호출 %d: nonce %d는 이전 값 %d보다 커야 합니다", i, nonce, prev)
				}
				prev = nonce
			}
		})
	}
}

func TestNonceManagerRestart(t *testing.T) {
	store := &fakeNonceStore{}

	// 첫 번째 프로세스: 시계 1_000_000에서 논스 여러 개 발급
	m1 := NewNonceManager(store, WithNonceClock(func() int64 { return 1_000_000 }))
	var last int64
	for i := 0; i < 5; i++ {
		last = m1.Next()
	}

	// 재시작: 시계가 과거로 되감긴 상태에서도 이어서 증가해야 합니다
	m2 := NewNonceManager(store, WithNonceClock(func() int64 { return 500_000 }))
	next := m2.Next()
	if next <= last {
		t.Errorf("재시작 후 nonce %d는 이전 프로세스의 마지막 값 %d보다 커야 합니다", next, last)
	}
}

func TestNonceManagerSaveFailureDoesNotBlock(t *testing.T) {
	store := &fakeNonceStore{failSave: true}
	m := NewNonceManager(store, WithNonceClock(func() int64 { return 1_000_000 }))

	first := m.Next()
	second := m.Next()

	if second <= first {
		t.Errorf("저장 실패와 무관하게 nonce는 증가해야 합니다: %d, %d", first, second)
	}
	if store.saveCalls != 2 {
		t.Errorf("저장 시도 횟수 = %d, want 2", store.saveCalls)
	}
}
