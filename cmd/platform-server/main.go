package main

import (
	"log"

	"github.com/joho/godotenv"

	"support-console-backend/internal/api"
	"support-console-backend/internal/api/router"
	"support-console-backend/internal/database"
	"support-console-backend/internal/env"
	"support-console-backend/internal/queue"
)

func main() {
	godotenv.Load()
	env.Require(env.AWSRegion, env.OperatorSecretKey)

	queueManager := queue.NewRequestQueueManager(10, 10)
	db, err := database.NewDatabase()
	if err != nil {
		log.Fatalf("db init failed: %v", err)
	}

	server := api.NewAPIServer(
		":81",
		queueManager,
		db,
		nil,
		router.UtilsRoutes("/api/platform/v1"),
		router.AuthRoutes("/api/platform/v1"),
		router.ConversationRoutes("/api/platform/v1"),
	)

	server.Run()
}
