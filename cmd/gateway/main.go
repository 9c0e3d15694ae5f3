package main

import (
	"log"

	"github.com/kindergrid/kindergrid/internal/gateway"
)

func main() {
	cfg, err := gateway.LoadConfig()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	application, err := gateway.New(cfg)
	if err != nil {
		log.Fatalf("failed to initialize gateway: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("gateway error: %v", err)
	}
}
