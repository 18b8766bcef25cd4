package main

import (
	"log"

	"github.com/beaconsms/broadcast-service/internal/config"
	"github.com/beaconsms/broadcast-service/internal/db"
	"github.com/beaconsms/broadcast-service/internal/queue"
	"github.com/beaconsms/broadcast-service/internal/repository"
	"github.com/beaconsms/broadcast-service/internal/service"
)

// The worker drains gateway webhook events from RabbitMQ and applies them to
// delivery logs. It is only needed when the server runs with AMQP_URL set;
// without a broker the server reconciles in-process.
func main() {
	cfg := config.Load()

	if cfg.AMQPURL == "" {
		log.Fatal("AMQP_URL must be set for the worker")
	}

	conn, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to connect to DB:", err)
	}

	logStore := &repository.PostgresDeliveryLogStore{DB: conn}
	subscriberStore := &repository.PostgresSubscriberStore{DB: conn}

	reconciler := &service.WebhookReconciler{
		Logs:        logStore,
		Subscribers: subscriberStore,
	}

	q, err := queue.DialAMQP(cfg.AMQPURL)
	if err != nil {
		log.Fatal("failed to connect to RabbitMQ:", err)
	}
	defer q.Close()

	if err := queue.StartWebhookSubscriber(q, reconciler); err != nil {
		log.Fatal("failed to start webhook subscriber:", err)
	}

	log.Println("worker running, waiting for gateway events...")
	select {}
}
