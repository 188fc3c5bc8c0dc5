package main

import (
	"github.com/joho/godotenv"

	"support-console-backend/internal/api"
	"support-console-backend/internal/api/router"
	"support-console-backend/internal/console"
	"support-console-backend/internal/dto"
	"support-console-backend/internal/env"
	"support-console-backend/internal/queue"
	"support-console-backend/internal/transport"
	"support-console-backend/internal/transport/httptransport"
	"support-console-backend/internal/websocket"
)

func main() {
	godotenv.Load()
	env.Require(env.OperatorSecretKey, env.PlatformAPIURL)

	queueManager := queue.NewRequestQueueManager(10, 10)

	hub := websocket.NewHub()
	go hub.Run()
	handler := websocket.NewHandler(hub)

	platformURL := env.Get(env.PlatformAPIURL)
	registry := console.NewRegistry(
		func(tokens *console.TokenStore) transport.Client {
			return httptransport.New(platformURL, tokens.Token)
		},
		func(operatorID string, view dto.SessionView) {
			websocket.NotifyRoom(websocket.RoomID(operatorID), view)
		},
	)

	server := api.NewAPIServer(
		":82",
		queueManager,
		nil,
		handler,
		router.UtilsRoutes("/api/console/v1"),
		router.ConsoleRoutes("/api/console/v1"),
	)
	server.SetRegistry(registry)

	handler.SubscribeToRedisChannels()

	server.Run()
}
