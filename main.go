package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"roleinventory/ioc"
)

func main() {
	configPath := flag.String("config", ioc.DefaultConfigPath, "配置文件路径")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app, cleanup, err := InitApp(ctx, ioc.ConfigPath(*configPath))
	if err != nil {
		log.Fatalf("init app failed: %v", err)
	}
	defer cleanup()

	if err := app.Run(ctx); err != nil {
		log.Printf("app run failed: %v", err)
	}
	app.Shutdown()
}
