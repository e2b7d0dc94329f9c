package ledger

import (
	"log"
	"sync"

	"github.com/assist-by/halvar/internal/domain"
)

// Storage는 거래 기록의 영속화를 추상화합니다
type Storage interface {
	AppendTrade(trade domain.Trade) error
	LoadTrades() ([]domain.Trade, error)
}

// Ledger는 확정/실패한 거래의 추가 전용 기록입니다.
// 과거 항목의 삭제나 수정은 지원하지 않습니다.
type Ledger struct {
	mu     sync.Mutex
	trades []domain.Trade
	store  Storage
}

// NewLedger는 새로운 거래 장부를 생성합니다.
// store가 nil이 아니면 저장된 거래 기록을 로드해 재시작 후에도 이력이 유지됩니다.
func NewLedger(store Storage) *Ledger {
	l := &Ledger{store: store}

	if store != nil {
		trades, err := store.LoadTrades()
		if err != nil {
			log.Printf("거래 기록 로드 실패 (빈 장부로 시작합니다): %v", err)
		} else {
			l.trades = trades
		}
	}

	return l
}

// Record는 거래를 장부에 추가합니다.
// 영속화 실패는 로그만 남기며 메모리 기록은 유지됩니다.
func (l *Ledger) Record(trade domain.Trade) {
	l.mu.Lock()
	l.trades = append(l.trades, trade)
	l.mu.Unlock()

	if l.store != nil {
		if err := l.store.AppendTrade(trade); err != nil {
			log.Printf("거래 기록 영속화 실패 (ID: %s): %v", trade.ID, err)
		}
	}
}

// All은 입력 순서대로 거래 기록의 스냅샷을 반환합니다
func (l *Ledger) All() []domain.Trade {
	l.mu.Lock()
	defer l.mu.Unlock()

	snapshot := make([]domain.Trade, len(l.trades))
	copy(snapshot, l.trades)
	return snapshot
}
