package main

import (
	"context"
	"log"

	"github.com/rytkhs/event-pay-sub006/internal/app/bootstrap"
)

func main() {
	ctx := context.Background()
	runtime, err := bootstrap.NewRuntime(ctx, "configs/default.yaml")
	if err != nil {
		log.Fatalf("bootstrap scheduler runtime: %v", err)
	}
	if err := runtime.RunScheduler(ctx); err != nil {
		log.Fatalf("run scheduler: %v", err)
	}
}
