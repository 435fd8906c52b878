package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"market-mirror-go/gateway"
)

// 一次性拉取 instrument 目录，用于排查 REST 连通性。
func main() {
	restURL := flag.String("rest", gateway.DefaultRestURL, "REST API 基础地址")
	settlement := flag.String("settlement", "USD", "结算货币后缀")
	timeout := flag.Duration("timeout", 10*time.Second, "请求超时")
	flag.Parse()

	_ = godotenv.Load()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client := gateway.NewInstrumentClient(*restURL, gateway.NewTokenBucket(2, 2))
	instruments, err := client.Instruments(ctx)
	if err != nil {
		log.Fatalf("获取目录失败: %v", err)
	}

	fmt.Printf("active instruments: %d\n", len(instruments))
	for _, inst := range instruments {
		fmt.Printf("%-8s -> %s\n", inst.RootSymbol, inst.Quote(*settlement))
	}
}
