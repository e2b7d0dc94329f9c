package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func validConfig() *Config {
	cfg := &Config{}
	cfg.Kraken.APIKey = "key"
	cfg.Kraken.PrivateKey = "secret"
	cfg.App.CycleInterval = 10 * time.Second
	cfg.Trading.InitialInvestment = decimal.RequireFromString("1000")
	cfg.Trading.MinSecurityCapital = decimal.RequireFromString("500")
	cfg.Trading.InvestmentPercent = decimal.RequireFromString("10")
	cfg.Trading.FeeRate = decimal.RequireFromString("0.0026")
	return cfg
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "정상 설정",
			mutate:  func(cfg *Config) {},
			wantErr: false,
		},
		{
			name: "투자 비율이 0이면 거부",
			mutate: func(cfg *Config) {
				cfg.Trading.InvestmentPercent = decimal.Zero
			},
			wantErr: true,
		},
		{
			name: "투자 비율이 100을 넘으면 거부",
			mutate: func(cfg *Config) {
				cfg.Trading.InvestmentPercent = decimal.RequireFromString("101")
			},
			wantErr: true,
		},
		{
			name: "수수료율이 1 이상이면 거부",
			mutate: func(cfg *Config) {
				cfg.Trading.FeeRate = decimal.RequireFromString("1")
			},
			wantErr: true,
		},
		{
			name: "최소 보안 금액이 음수면 거부",
			mutate: func(cfg *Config) {
				cfg.Trading.MinSecurityCapital = decimal.RequireFromString("-1")
			},
			wantErr: true,
		},
		{
			name: "사이클 간격이 너무 짧으면 거부",
			mutate: func(cfg *Config) {
				cfg.App.CycleInterval = 100 * time.Millisecond
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := ValidateConfig(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
