package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	// 크라켄 API 설정
	Kraken struct {
		APIKey     string `envconfig:"KRAKEN_API_KEY" required:"true"`
		PrivateKey string `envconfig:"KRAKEN_PRIVATE_KEY" required:"true"`
		BaseURL    string `envconfig:"KRAKEN_BASE_URL" default:"https://api.kraken.com"`
		Pair       string `envconfig:"KRAKEN_PAIR" default:"XXBTZEUR"`
	}

	// 디스코드 웹훅 설정
	Discord struct {
		TradeWebhook string `envconfig:"DISCORD_TRADE_WEBHOOK"`
		ErrorWebhook string `envconfig:"DISCORD_ERROR_WEBHOOK"`
		InfoWebhook  string `envconfig:"DISCORD_INFO_WEBHOOK"`
	}

	// 애플리케이션 설정
	App struct {
		CycleInterval     time.Duration `envconfig:"CYCLE_INTERVAL" default:"10s"`
		ListenAddr        string        `envconfig:"LISTEN_ADDR" default:":3001"`
		StoragePath       string        `envconfig:"STORAGE_PATH" default:"halvar.db"`
		AutoStart         bool          `envconfig:"AUTO_START" default:"false"`
		BroadcastInterval time.Duration `envconfig:"BROADCAST_INTERVAL" default:"2s"`
	}

	// 거래 설정
	Trading struct {
		InitialInvestment  decimal.Decimal `envconfig:"INITIAL_INVESTMENT" required:"true"`
		MinSecurityCapital decimal.Decimal `envconfig:"MIN_SECURITY_CAPITAL" required:"true"`
		InvestmentPercent  decimal.Decimal `envconfig:"INVESTMENT_PERCENT" default:"10"`
		FeeRate            decimal.Decimal `envconfig:"FEE_RATE" default:"0.0026"`
	}
}

// ValidateConfig는 설정이 유효한지 확인합니다.
func ValidateConfig(cfg *Config) error {
	if cfg.Trading.InvestmentPercent.LessThanOrEqual(decimal.Zero) ||
		cfg.Trading.InvestmentPercent.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("INVESTMENT_PERCENT는 0 초과 100 이하이어야 합니다")
	}

	if cfg.Trading.MinSecurityCapital.LessThan(decimal.Zero) {
		return fmt.Errorf("MIN_SECURITY_CAPITAL은 0 이상이어야 합니다")
	}

	if cfg.Trading.FeeRate.LessThan(decimal.Zero) ||
		cfg.Trading.FeeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("FEE_RATE는 0 이상 1 미만이어야 합니다")
	}

	if cfg.App.CycleInterval < 1*time.Second {
		return fmt.Errorf("CYCLE_INTERVAL은 1초 이상이어야 합니다")
	}

	return nil
}

// LoadConfig는 환경변수에서 설정을 로드합니다.
func LoadConfig() (*Config, error) {
	// .env 파일 로드
	if err := godotenv.Load(); err != nil {
		return nil, fmt.Errorf(".env 파일 로드 실패: %w", err)
	}

	var cfg Config
	// 환경변수를 구조체로 파싱
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("환경변수 처리 실패: %w", err)
	}

	// 설정값 검증
	if err := ValidateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("설정값 검증 실패: %w", err)
	}

	return &cfg, nil
}
