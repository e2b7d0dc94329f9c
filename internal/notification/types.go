package notification

import "github.com/assist-by/halvar/internal/domain"

const (
	ColorSuccess = 0x00FF00 // 녹색
	ColorError   = 0xFF0000 // 빨간색
	ColorInfo    = 0x0000FF // 파란색
)

// Notifier는 알림 전송 인터페이스를 정의합니다
type Notifier interface {
	// SendTrade는 체결된 거래 알림을 전송합니다
	SendTrade(trade domain.Trade) error

	// SendError는 에러 알림을 전송합니다
	SendError(err error) error

	// SendInfo는 일반 정보 알림을 전송합니다
	SendInfo(message string) error
}

// GetColorForSide는 주문 방향에 따른 색상을 반환합니다
func GetColorForSide(side domain.OrderSide) int {
	switch side {
	case domain.Buy:
		return ColorSuccess
	case domain.Sell:
		return ColorError
	default:
		return ColorInfo
	}
}
