package ledger

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assist-by/halvar/internal/domain"
)

// fakeStorage는 테스트용 인메모리 거래 저장소입니다
type fakeStorage struct {
	trades     []domain.Trade
	failAppend bool
}

func (s *fakeStorage) AppendTrade(trade domain.Trade) error {
	if s.failAppend {
		return fmt.Errorf("저장 실패")
	}
	s.trades = append(s.trades, trade)
	return nil
}

func (s *fakeStorage) LoadTrades() ([]domain.Trade, error) {
	return s.trades, nil
}

func makeTrade(id string, side domain.OrderSide) domain.Trade {
	return domain.Trade{
		ID:        id,
		Side:      side,
		Price:     decimal.RequireFromString("30000"),
		Amount:    decimal.RequireFromString("0.001"),
		Timestamp: time.Now(),
		Fee:       decimal.RequireFromString("0.0000026"),
		Status:    domain.TradeConfirmed,
	}
}

func TestLedgerRecordOrder(t *testing.T) {
	l := NewLedger(nil)

	l.Record(makeTrade("T1", domain.Buy))
	l.Record(makeTrade("T2", domain.Sell))
	l.Record(makeTrade("T3", domain.Buy))

	trades := l.All()
	require.Len(t, trades, 3)
	assert.Equal(t, "T1", trades[0].ID)
	assert.Equal(t, "T2", trades[1].ID)
	assert.Equal(t, "T3", trades[2].ID)
}

func TestLedgerSnapshotIsolation(t *testing.T) {
	l := NewLedger(nil)
	l.Record(makeTrade("T1", domain.Buy))

	snapshot := l.All()
	require.Len(t, snapshot, 1)

	// 스냅샷 수정이 장부에 영향을 주지 않아야 합니다
	snapshot[0].ID = "변조"
	assert.Equal(t, "T1", l.All()[0].ID)

	// 스냅샷 이후의 기록도 이전 스냅샷에 나타나지 않습니다
	l.Record(makeTrade("T2", domain.Sell))
	assert.Len(t, snapshot, 1)
	assert.Len(t, l.All(), 2)
}

func TestLedgerLoadsPersistedTrades(t *testing.T) {
	store := &fakeStorage{
		trades: []domain.Trade{
			makeTrade("OLD1", domain.Buy),
			makeTrade("OLD2", domain.Sell),
		},
	}

	l := NewLedger(store)

	trades := l.All()
	require.Len(t, trades, 2)
	assert.Equal(t, "OLD1", trades[0].ID)

	l.Record(makeTrade("NEW1", domain.Buy))
	assert.Len(t, l.All(), 3)
	assert.Len(t, store.trades, 3)
}

func TestLedgerPersistFailureKeepsMemory(t *testing.T) {
	store := &fakeStorage{failAppend: true}
	l := NewLedger(store)

	l.Record(makeTrade("T1", domain.Buy))

	// 영속화가 실패해도 메모리 기록은 유지됩니다
	require.Len(t, l.All(), 1)
	assert.Empty(t, store.trades)
}
