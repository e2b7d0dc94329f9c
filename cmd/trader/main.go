package main

import (
	"context"
	"log"
	"os"
	osSignal "os/signal"
	"syscall"
	"time"

	"github.com/assist-by/halvar/internal/bot"
	"github.com/assist-by/halvar/internal/config"
	"github.com/assist-by/halvar/internal/exchange/kraken"
	"github.com/assist-by/halvar/internal/ledger"
	"github.com/assist-by/halvar/internal/notification/discord"
	"github.com/assist-by/halvar/internal/server"
	"github.com/assist-by/halvar/internal/storage"
)

func main() {
	// 컨텍스트 생성
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 로그 설정
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.Println("트레이딩 봇 시작...")

	// 설정 로드
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("설정 로드 실패: %v", err)
	}

	// 저장소 열기
	store, err := storage.Open(cfg.App.StoragePath)
	if err != nil {
		log.Fatalf("저장소 열기 실패: %v", err)
	}
	defer store.Close()

	// Discord 클라이언트 생성
	discordClient := discord.NewClient(
		cfg.Discord.TradeWebhook,
		cfg.Discord.ErrorWebhook,
		cfg.Discord.InfoWebhook,
		discord.WithTimeout(10*time.Second),
	)

	// 시작 알림 전송
	if err := discordClient.SendInfo("🚀 트레이딩 봇이 시작되었습니다."); err != nil {
		log.Printf("시작 알림 전송 실패: %v", err)
	}

	// 크라켄 클라이언트 생성
	nonceManager := kraken.NewNonceManager(store)
	krakenClient := kraken.NewClient(
		cfg.Kraken.APIKey,
		cfg.Kraken.PrivateKey,
		nonceManager,
		kraken.WithBaseURL(cfg.Kraken.BaseURL),
		kraken.WithPair(cfg.Kraken.Pair),
		kraken.WithTimeout(10*time.Second),
	)

	// 거래 기록 장부 생성
	tradeLedger := ledger.NewLedger(store)

	// 거래 엔진 생성
	engine := bot.NewEngine(
		krakenClient,
		tradeLedger,
		store,
		bot.Config{
			Pair:               cfg.Kraken.Pair,
			CycleInterval:      cfg.App.CycleInterval,
			MinSecurityCapital: cfg.Trading.MinSecurityCapital,
			InvestmentPercent:  cfg.Trading.InvestmentPercent,
			FeeRate:            cfg.Trading.FeeRate,
			InitialInvestment:  cfg.Trading.InitialInvestment,
		},
		bot.WithNotifier(discordClient),
	)

	// 거래소 연결 확인 및 마지막 거래 가격 복원
	if err := engine.Initialize(ctx); err != nil {
		log.Printf("엔진 초기화 실패: %v", err)
		if err := discordClient.SendError(err); err != nil {
			log.Printf("에러 알림 전송 실패: %v", err)
		}
		os.Exit(1)
	}

	// 자동 시작 설정 처리
	if cfg.App.AutoStart {
		engine.Start()
	}

	// HTTP/웹소켓 서버 생성
	srv := server.NewServer(
		engine,
		cfg.App.ListenAddr,
		server.WithBroadcastInterval(cfg.App.BroadcastInterval),
	)

	// 시그널 처리
	sigChan := make(chan os.Signal, 1)
	osSignal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// 서버 시작
	go func() {
		if err := srv.Run(ctx); err != nil {
			log.Printf("서버 실행 중 에러 발생: %v", err)
			if err := discordClient.SendError(err); err != nil {
				log.Printf("에러 알림 전송 실패: %v", err)
			}
		}
	}()

	// 시그널 대기
	sig := <-sigChan
	log.Printf("시스템 종료 신호 수신: %v", sig)

	// 엔진 중지
	engine.Stop()

	// 서버 정상 종료
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("서버 종료 실패: %v", err)
	}

	// 종료 알림 전송
	if err := discordClient.SendInfo("👋 트레이딩 봇이 종료되었습니다."); err != nil {
		log.Printf("종료 알림 전송 실패: %v", err)
	}

	log.Println("프로그램을 종료합니다.")
}
