package main

import (
	"context"
	"log"

	"github.com/Apurer/pantry-partner-api/internal/app/api"
)

func main() {
	if err := api.Run(context.Background()); err != nil {
		log.Fatalf("pantry api: %v", err)
	}
}
