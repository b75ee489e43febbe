package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mindcare/api/routes"
	"mindcare/config"
	"mindcare/db"
	"mindcare/services"

	"github.com/gin-gonic/gin"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "Path to the configuration file")
	flag.Parse()

	if err := config.LoadConfig(configPath); err != nil {
		panic("Failed to load configuration: " + err.Error())
	}
	log.Println("Starting server...")

	if err := db.ConnectDB(); err != nil {
		panic("Failed to connect to the database: " + err.Error())
	}

	if err := services.InitRedis(); err != nil {
		panic("Failed to connect to Redis: " + err.Error())
	}

	if err := services.InitRabbitMQ(); err != nil {
		// Без RabbitMQ события уходят напрямую через WebSocket
		log.Printf("RabbitMQ unavailable, falling back to direct push: %v", err)
	}

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	services.QueueServiceInstance = services.NewQueueService()
	services.QueueServiceInstance.StartWorkers(workerCtx)
	if err := services.StartChatEventConsumer(workerCtx, "chat_events_push"); err != nil {
		log.Printf("Chat event consumer not started: %v", err)
	}

	router := gin.Default()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	routes.PublicApi(router)

	addr := fmt.Sprintf("%s:%d", config.AppConfig.Backend.Host, config.AppConfig.Backend.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()
	log.Printf("Listening on %s", addr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}

	stopWorkers()
	services.GlobalWSConnManager.CloseAll()
	services.CloseRabbitMQ()
	if err := services.CloseRedis(); err != nil {
		log.Printf("Redis close error: %v", err)
	}
	if err := db.Close(); err != nil {
		log.Printf("DB close error: %v", err)
	}
}
