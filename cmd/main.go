package main

import (
	"context"
	"log"

	"github.com/GoogleCloudPlatform/functions-framework-go/funcframework"
	"github.com/joho/godotenv"
	"github.com/klipach/cuchat"
	"github.com/klipach/cuchat/config"
)

func main() {
	log.Println("Started")
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config.Load: %v\n", err)
	}

	ctx := context.Background()
	if err := funcframework.RegisterEventFunctionContext(ctx, "/SendChatNotification", cuchat.SendChatNotification); err != nil {
		log.Fatalf("funcframework.RegisterEventFunctionContext: %v\n", err)
	}
	if err := funcframework.RegisterEventFunctionContext(ctx, "/SendNearbyUserNotification", cuchat.SendNearbyUserNotification); err != nil {
		log.Fatalf("funcframework.RegisterEventFunctionContext: %v\n", err)
	}

	if err := funcframework.Start(cfg.Port); err != nil {
		log.Fatalf("funcframework.Start: %v\n", err)
	}

	log.Println("Done")
}
