package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"market-mirror-go/config"
	"market-mirror-go/gateway"
	"market-mirror-go/infrastructure/alert"
	"market-mirror-go/infrastructure/logger"
	"market-mirror-go/market"
	"market-mirror-go/metrics"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	rootSymbol := flag.String("root", "", "根交易对（例如 XBT），留空则取目录首个")
	view := flag.String("view", "book", "订阅视图: book 或 trades")
	metricsAddr := flag.String("metricsAddr", "", "Prometheus metrics 监听地址，留空则用配置")
	watch := flag.Bool("watch", false, "监听配置文件热更新")
	flag.Parse()

	// .env 提供 MIRROR_WS_ENDPOINT / MIRROR_REST_URL 覆盖
	_ = godotenv.Load()

	cfg, err := config.LoadWithEnvOverrides(*cfgPath)
	if err != nil {
		log.Printf("加载配置失败，使用默认配置: %v", err)
		cfg = config.Default()
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}

	zlog, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer zlog.Close()

	metrics.StartMetricsServer(cfg.MetricsAddr)

	alerts := alert.NewManager([]alert.Channel{
		alert.NewLogChannel("log", os.Stderr),
	}, 30*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// instrument 目录：失败或为空都回退到默认交易对
	limiter := gateway.NewTokenBucket(cfg.Catalog.RatePerSec, cfg.Catalog.Burst)
	catalog := gateway.NewInstrumentClient(cfg.Feed.RestURL, limiter)
	instruments, err := catalog.Instruments(ctx)
	if err != nil {
		zlog.LogError(err, map[string]interface{}{"stage": "catalog"})
		alerts.SendWarning("instrument catalog unavailable, using default", map[string]interface{}{
			"default": cfg.Catalog.DefaultRootSymbol,
		})
		instruments = nil
	}
	root := resolveRoot(strings.ToUpper(*rootSymbol), instruments, cfg.Catalog.DefaultRootSymbol)
	quoteSymbol := market.Instrument{RootSymbol: root}.Quote(cfg.Catalog.SettlementCurrency)
	zlog.LogFeed("catalog_loaded", map[string]interface{}{
		"instruments": len(instruments),
		"symbol":      quoteSymbol,
	})

	// 引擎与发布器
	book := market.NewBook(cfg.Book.DepthCap)
	trades := market.NewTradeFeed(cfg.Trades.MaxCount)
	pub := market.NewPublisher(cfg.Book.PublishInterval())
	pub.OnCoalesced(metrics.BookPublishCoalesced.Inc)
	pub.OnTradeDropped(metrics.TradePublishDropped.Inc)
	defer pub.Close()
	svc := market.NewService(book, trades, pub, cfg.Trades.HighlightDelay())
	svc.Start()
	defer svc.Stop()

	client := gateway.NewFeedClient(cfg.Feed.WSEndpoint, svc, zlog.Logger)
	client.SetMaxConsecutiveErrors(cfg.Feed.MaxConsecutiveErrors)
	client.OnDisconnect(func(err error) {
		alerts.SendWarning("feed disconnected", map[string]interface{}{"error": err.Error()})
	})

	if err := client.Connect(); err != nil {
		zlog.LogError(err, map[string]interface{}{"stage": "connect"})
		log.Fatalf("连接行情失败: %v", err)
	}
	defer client.Disconnect()

	// 同一时刻只保持一条订阅
	switch *view {
	case "trades":
		err = client.SubscribeTrades(quoteSymbol)
	default:
		err = client.Subscribe(gateway.TopicOrderBookL2_25, quoteSymbol)
	}
	if err != nil {
		log.Fatalf("订阅失败: %v", err)
	}

	go consumeBooks(ctx, pub, zlog)
	go consumeTrades(ctx, pub, zlog)

	if *watch {
		watcher, err := config.NewWatcher(*cfgPath, config.DefaultWatchConfig())
		if err != nil {
			zlog.LogError(err, map[string]interface{}{"stage": "watch"})
		} else {
			watcher.OnUpdate(func(next config.AppConfig) {
				client.SetMaxConsecutiveErrors(next.Feed.MaxConsecutiveErrors)
				zlog.LogFeed("config_reloaded", nil)
			})
			if err := watcher.Start(ctx); err != nil {
				zlog.LogError(err, map[string]interface{}{"stage": "watch"})
			}
			defer watcher.Stop()
		}
	}

	// systemd 就绪与看门狗
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	if interval, err := daemon.SdWatchdogEnabled(false); err == nil && interval > 0 {
		go func() {
			ticker := time.NewTicker(interval / 2)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
				}
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	if err := client.Unsubscribe(); err != nil {
		zlog.LogError(err, map[string]interface{}{"stage": "shutdown"})
	}
	cancel()
	zlog.LogFeed("mirror_exit", map[string]interface{}{"symbol": quoteSymbol})
}

// resolveRoot 选取根交易对：优先命令行指定，其次目录首个，目录为空用默认值。
func resolveRoot(flagRoot string, instruments []market.Instrument, fallback string) string {
	if flagRoot != "" {
		return flagRoot
	}
	if len(instruments) == 0 {
		return fallback
	}
	return instruments[0].RootSymbol
}

// consumeBooks 打印每次发布的快照顶部并上报深度指标。
func consumeBooks(ctx context.Context, pub *market.Publisher, zlog *logger.Logger) {
	ch, cancel := pub.SubscribeBook()
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-ch:
			if !ok {
				return
			}
			metrics.UpdateBookDepth(len(snap.Bids), len(snap.Asks))
			renderBook(snap)
			zlog.Debug("book_published",
				zap.Int("bids", len(snap.Bids)),
				zap.Int("asks", len(snap.Asks)),
			)
		}
	}
}

func consumeTrades(ctx context.Context, pub *market.Publisher, zlog *logger.Logger) {
	ch, cancel := pub.SubscribeTrades()
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case events, ok := <-ch:
			if !ok {
				return
			}
			renderTrades(events)
			zlog.Debug("trades_published", zap.Int("count", len(events)))
		}
	}
}

func renderBook(snap market.BookSnapshot) {
	n := len(snap.Bids)
	if len(snap.Asks) > n {
		n = len(snap.Asks)
	}
	fmt.Printf("---- %s ----\n", time.Now().Format("15:04:05.000"))
	fmt.Printf("%12s %14s | %-14s %-12s\n", "Qty", "Bid", "Ask", "Qty")
	for i := 0; i < n; i++ {
		var bidQty, bid, ask, askQty string
		if i < len(snap.Bids) {
			l := snap.Bids[i]
			if l.Size != nil {
				bidQty = fmt.Sprintf("%d", *l.Size)
			}
			bid = fmt.Sprintf("%.1f", l.PriceOrZero())
		}
		if i < len(snap.Asks) {
			l := snap.Asks[i]
			ask = fmt.Sprintf("%.1f", l.PriceOrZero())
			if l.Size != nil {
				askQty = fmt.Sprintf("%d", *l.Size)
			}
		}
		fmt.Printf("%12s %14s | %-14s %-12s\n", bidQty, bid, ask, askQty)
	}
}

func renderTrades(events []market.TradeEvent) {
	fmt.Printf("---- %s ----\n", time.Now().Format("15:04:05.000"))
	for _, ev := range events {
		marker := " "
		if ev.IsNew {
			marker = "*"
		}
		fmt.Printf("%s %-4s %10.1f %10d %s\n", marker, ev.Side, ev.Price, ev.Size, ev.Timestamp)
	}
}
