// internal/storage/store.go
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/shopspring/decimal"

	"github.com/assist-by/halvar/internal/domain"
)

// 상태 테이블에서 사용하는 키
const (
	keyNonceState     = "nonce_state"
	keyLastOperations = "last_operations"
)

// nonceRecord는 영속화되는 논스 상태입니다
type nonceRecord struct {
	LastNonce int64 `json:"lastNonce"`
	Increment int64 `json:"increment"`
}

// Store는 봇의 영속 상태를 SQLite에 저장합니다.
// 논스 상태, 마지막 매수/매도 가격, 거래 기록을 담당합니다.
type Store struct {
	db *sql.DB
}

// Open은 저장소를 열고 필요한 테이블을 생성합니다
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("SQLite 열기 실패: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("PRAGMA 설정 실패 (%s): %w", pragma, err)
		}
	}

	// 키-값 상태 테이블
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS bot_state (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("bot_state 테이블 생성 실패: %w", err)
	}

	// 거래 기록 테이블 (추가 전용)
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS trades (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			tx_id TEXT NOT NULL,
			side TEXT NOT NULL,
			price TEXT NOT NULL,
			amount TEXT NOT NULL,
			fee TEXT NOT NULL,
			is_manual INTEGER NOT NULL,
			status TEXT NOT NULL,
			ts INTEGER NOT NULL
		);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("trades 테이블 생성 실패: %w", err)
	}

	return &Store{db: db}, nil
}

// upsertState는 상태 키에 JSON 값을 저장합니다
func (s *Store) upsertState(key string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("상태 직렬화 실패 (%s): %w", key, err)
	}

	_, err = s.db.Exec(
		"INSERT INTO bot_state (key, value, updated_at) VALUES (?, ?, ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at",
		key, string(payload), time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("상태 저장 실패 (%s): %w", key, err)
	}
	return nil
}

// loadState는 상태 키의 JSON 값을 읽습니다. 값이 없으면 false를 반환합니다.
func (s *Store) loadState(key string, value interface{}) (bool, error) {
	var raw string
	err := s.db.QueryRow("SELECT value FROM bot_state WHERE key = ?", key).Scan(&raw)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("상태 조회 실패 (%s): %w", key, err)
	}

	if err := json.Unmarshal([]byte(raw), value); err != nil {
		return false, fmt.Errorf("상태 역직렬화 실패 (%s): %w", key, err)
	}
	return true, nil
}

// SaveNonce는 논스 상태를 저장합니다
func (s *Store) SaveNonce(lastNonce int64, increment int64) error {
	return s.upsertState(keyNonceState, nonceRecord{
		LastNonce: lastNonce,
		Increment: increment,
	})
}

// LoadNonce는 저장된 논스 상태를 반환합니다. 저장된 값이 없으면 (0, 0, nil)입니다.
func (s *Store) LoadNonce() (int64, int64, error) {
	var record nonceRecord
	found, err := s.loadState(keyNonceState, &record)
	if err != nil {
		return 0, 0, err
	}
	if !found {
		return 0, 0, nil
	}
	return record.LastNonce, record.Increment, nil
}

// SaveLastOperations는 마지막 매수/매도 가격을 저장합니다
func (s *Store) SaveLastOperations(ops domain.LastOperations) error {
	return s.upsertState(keyLastOperations, ops)
}

// LoadLastOperations는 저장된 마지막 매수/매도 가격을 반환합니다.
// 저장된 값이 없으면 빈 LastOperations를 반환합니다.
func (s *Store) LoadLastOperations() (domain.LastOperations, error) {
	var ops domain.LastOperations
	if _, err := s.loadState(keyLastOperations, &ops); err != nil {
		return domain.LastOperations{}, err
	}
	return ops, nil
}

// AppendTrade는 거래 기록을 추가합니다. 기존 행은 수정하지 않습니다.
func (s *Store) AppendTrade(trade domain.Trade) error {
	isManual := 0
	if trade.IsManual {
		isManual = 1
	}

	_, err := s.db.Exec(
		"INSERT INTO trades (tx_id, side, price, amount, fee, is_manual, status, ts) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		trade.ID, string(trade.Side), trade.Price.String(), trade.Amount.String(),
		trade.Fee.String(), isManual, string(trade.Status), trade.Timestamp.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("거래 기록 저장 실패: %w", err)
	}
	return nil
}

// LoadTrades는 저장된 거래 기록을 입력 순서대로 반환합니다
func (s *Store) LoadTrades() ([]domain.Trade, error) {
	rows, err := s.db.Query("SELECT tx_id, side, price, amount, fee, is_manual, status, ts FROM trades ORDER BY seq ASC")
	if err != nil {
		return nil, fmt.Errorf("거래 기록 조회 실패: %w", err)
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		var (
			trade           domain.Trade
			side, status    string
			price, amount   string
			fee             string
			isManual        int
			timestampMillis int64
		)
		if err := rows.Scan(&trade.ID, &side, &price, &amount, &fee, &isManual, &status, &timestampMillis); err != nil {
			return nil, fmt.Errorf("거래 기록 스캔 실패: %w", err)
		}

		trade.Side = domain.OrderSide(side)
		trade.Status = domain.TradeStatus(status)
		trade.IsManual = isManual != 0
		trade.Timestamp = time.UnixMilli(timestampMillis)
		if trade.Price, err = parseDecimal(price); err != nil {
			return nil, fmt.Errorf("거래 가격 변환 실패: %w", err)
		}
		if trade.Amount, err = parseDecimal(amount); err != nil {
			return nil, fmt.Errorf("거래 수량 변환 실패: %w", err)
		}
		if trade.Fee, err = parseDecimal(fee); err != nil {
			return nil, fmt.Errorf("거래 수수료 변환 실패: %w", err)
		}

		trades = append(trades, trade)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("거래 기록 순회 실패: %w", err)
	}

	return trades, nil
}

// Close는 저장소 연결을 닫습니다
func (s *Store) Close() error {
	return s.db.Close()
}

func parseDecimal(raw string) (decimal.Decimal, error) {
	return decimal.NewFromString(raw)
}
