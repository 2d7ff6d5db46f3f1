package main

import (
	"log"

	"github.com/joho/godotenv"

	"chitter/cmd/internal/app"
)

func main() {
	// Optional .env for local dev; missing file is fine.
	_ = godotenv.Load()

	if err := app.Run(); err != nil {
		log.Fatal(err)
	}
}
