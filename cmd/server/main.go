package main

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/beaconsms/broadcast-service/internal/config"
	"github.com/beaconsms/broadcast-service/internal/controller"
	"github.com/beaconsms/broadcast-service/internal/db"
	"github.com/beaconsms/broadcast-service/internal/gateway"
	"github.com/beaconsms/broadcast-service/internal/handler"
	"github.com/beaconsms/broadcast-service/internal/queue"
	"github.com/beaconsms/broadcast-service/internal/repository"
	"github.com/beaconsms/broadcast-service/internal/service"
)

func main() {
	cfg := config.Load()

	// Storage: postgres primary with an in-memory fallback behind a shared
	// failover switch. Fallback contents are lost on restart and never
	// reconciled back; a restart is also what re-arms the primary.
	failoverState := repository.NewFailoverState()
	memMessages := repository.NewMemoryMessageStore()
	memSubscribers := repository.NewMemorySubscriberStore()
	memLogs := repository.NewMemoryDeliveryLogStore(memSubscribers)

	var messageStore repository.MessageStore = memMessages
	var subscriberStore repository.SubscriberStore = memSubscribers
	var logStore repository.DeliveryLogStore = memLogs

	conn, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Println("running on in-memory storage only:", err)
	} else {
		messageStore = &repository.FailoverMessageStore{
			Primary:  &repository.PostgresMessageStore{DB: conn},
			Fallback: memMessages,
			State:    failoverState,
		}
		subscriberStore = &repository.FailoverSubscriberStore{
			Primary:  &repository.PostgresSubscriberStore{DB: conn},
			Fallback: memSubscribers,
			State:    failoverState,
		}
		logStore = &repository.FailoverDeliveryLogStore{
			Primary:  &repository.PostgresDeliveryLogStore{DB: conn},
			Fallback: memLogs,
			State:    failoverState,
		}
	}

	gatewayClient := gateway.NewTelnyxClient(cfg.TelnyxAPIKey, cfg.TelnyxAPIBase)

	dispatcher := &service.Dispatcher{
		Messages:    messageStore,
		Subscribers: subscriberStore,
		Logs:        logStore,
		Gateway:     gatewayClient,
		FromNumber:  cfg.FromNumber,
		WebhookURL:  cfg.WebhookURL,
		Concurrency: cfg.SendConcurrency,
	}
	aggregator := &service.StatusAggregator{
		Messages: messageStore,
		Logs:     logStore,
	}
	retryCoordinator := &service.RetryCoordinator{
		Subscribers: subscriberStore,
		Logs:        logStore,
		Dispatcher:  dispatcher,
	}
	reconciler := &service.WebhookReconciler{
		Logs:        logStore,
		Subscribers: subscriberStore,
	}

	// Webhook events flow through a queue: RabbitMQ with cmd/worker
	// consuming when AMQP_URL is set, otherwise handled in-process.
	var q queue.Queue
	if cfg.AMQPURL != "" {
		amqpQueue, err := queue.DialAMQP(cfg.AMQPURL)
		if err != nil {
			log.Fatal("failed to connect to RabbitMQ:", err)
		}
		defer amqpQueue.Close()
		q = amqpQueue
	} else {
		inMem := queue.NewInMemoryQueue()
		if err := queue.StartWebhookSubscriber(inMem, reconciler); err != nil {
			log.Fatal("failed to start webhook subscriber:", err)
		}
		q = inMem
	}

	messageController := &controller.MessageController{
		Dispatcher: dispatcher,
		Aggregator: aggregator,
		Retry:      retryCoordinator,
	}
	webhookController := &controller.WebhookController{Queue: q}
	healthController := &controller.HealthController{
		Storage:    failoverState,
		Dispatcher: dispatcher,
	}
	deliveryLogHandler := &handler.DeliveryLogHandler{Logs: logStore}
	subscriberHandler := &handler.SubscriberHandler{Subscribers: subscriberStore}

	r := chi.NewRouter()

	r.Post("/messages", messageController.CreateMessage)
	r.Get("/messages", messageController.ListMessages)
	r.Post("/delivery-logs/retry", messageController.RetryDelivery)
	r.Get("/delivery-logs", deliveryLogHandler.ListDeliveryLogs)
	r.Post("/webhooks/gateway", webhookController.HandleGatewayWebhook)
	r.Post("/subscribers", subscriberHandler.CreateSubscriber)
	r.Get("/subscribers", subscriberHandler.ListSubscribers)
	r.Patch("/subscribers/{id}/status", subscriberHandler.UpdateSubscriberStatus)
	r.Get("/health", healthController.Health)

	log.Println("server running on :" + cfg.HTTPPort)
	log.Fatal(http.ListenAndServe(":"+cfg.HTTPPort, r))
}
