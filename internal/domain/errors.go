package domain

import (
	"fmt"
	"strings"
)

// 주문 요청이 네트워크 호출 전에 거부되는 검증 에러들입니다
var (
	ErrInvalidOrderVolume = fmt.Errorf("주문 수량은 0보다 커야 합니다")
	ErrInvalidOrderPrice  = fmt.Errorf("지정가는 0보다 커야 합니다")
)

// rateLimitMessage는 크라켄이 레이트 리밋 초과 시 반환하는 에러 문자열입니다
const rateLimitMessage = "EAPI:Rate limit exceeded"

// ExchangeError는 거래소가 에러 목록을 반환한 경우를 표현합니다
type ExchangeError struct {
	Endpoint string   // 요청한 엔드포인트
	Errors   []string // 거래소가 반환한 에러 목록
}

// Error는 error 인터페이스를 구현합니다
func (e *ExchangeError) Error() string {
	return fmt.Sprintf("거래소 에러 [%s]: %s", e.Endpoint, strings.Join(e.Errors, ", "))
}

// RateLimited는 레이트 리밋 초과 에러인지 여부를 반환합니다
func (e *ExchangeError) RateLimited() bool {
	for _, msg := range e.Errors {
		if msg == rateLimitMessage {
			return true
		}
	}
	return false
}

// NewExchangeError는 새로운 ExchangeError를 생성합니다
func NewExchangeError(endpoint string, errors []string) *ExchangeError {
	return &ExchangeError{
		Endpoint: endpoint,
		Errors:   errors,
	}
}
