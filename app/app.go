// Package app builds the service graph shared by the server and crmctl.
package app

import (
	"context"
	"time"

	"admissions-crm/cache"
	"admissions-crm/config"
	"admissions-crm/db"
	"admissions-crm/http/middleware"
	"admissions-crm/logger"
	"admissions-crm/repository"
	"admissions-crm/services"
	"admissions-crm/services/assignment"
	"admissions-crm/services/kafka"
	"admissions-crm/services/presence"
	"admissions-crm/services/reassignment"
)

const dlqRetryInterval = 5 * time.Minute

// App holds every long-lived component.
type App struct {
	DB          *db.DB
	Repos       *repository.Repos
	Producer    *kafka.Producer
	Consumer    *kafka.Consumer
	DLQ         *kafka.DLQService
	Courses     *cache.CourseCache
	Engine      *assignment.Engine
	Tracker     *presence.Tracker
	Coordinator *reassignment.Coordinator
	Auth        *middleware.Auth
}

// New wires the components around database using cfg.
func New(cfg config.Config, database *db.DB) *App {
	repos := repository.New(database)
	brokers := config.KafkaBrokerList()
	topics := []string{cfg.KafkaLeadTopic, cfg.KafkaPresenceTopic, cfg.KafkaEmailTopic}

	producer := kafka.NewProducer(brokers, topics, repos.DLQ)
	consumer := kafka.NewConsumer(brokers, cfg.KafkaGroupID,
		[]string{cfg.KafkaPresenceTopic, cfg.KafkaEmailTopic}, repos.DLQ)

	mailer := services.NewMailer(producer, cfg.KafkaEmailTopic, cfg.AdminEmail)
	consumer.Register(kafka.EventEmailSend, services.NewSMTPSender(cfg).HandleEmailEvent)

	courses := cache.NewCourseCache(repos.Courses, cfg.CourseCacheSize, cfg.CourseCacheTTL)
	engine := assignment.NewEngine(database, database,
		assignment.WithCourses(courses),
		assignment.WithPublisher(producer, cfg.KafkaLeadTopic),
		assignment.WithNotifier(mailer),
	)
	tracker := presence.NewTracker(database, database,
		presence.WithLocation(config.Location()),
		presence.WithPublisher(producer, cfg.KafkaPresenceTopic),
		presence.WithNotifier(mailer),
	)
	tracker.Register(consumer)

	return &App{
		DB:          database,
		Repos:       repos,
		Producer:    producer,
		Consumer:    consumer,
		DLQ:         kafka.NewDLQService(repos.DLQ, producer, consumer),
		Courses:     courses,
		Engine:      engine,
		Tracker:     tracker,
		Coordinator: reassignment.NewCoordinator(database, engine),
		Auth:        middleware.NewAuth(cfg.JWTSecret),
	}
}

// Start runs the event consumer and DLQ auto-retry until ctx ends.
func (a *App) Start(ctx context.Context) {
	go a.Consumer.Run(ctx)
	a.DLQ.StartAutoRetry(ctx, dlqRetryInterval)
}

// Close releases Kafka clients and the database.
func (a *App) Close() {
	if err := a.Consumer.Close(); err != nil {
		logger.Error("Error closing Kafka consumer: %v", err)
	}
	if err := a.Producer.Close(); err != nil {
		logger.Error("Error closing Kafka producer: %v", err)
	}
	if err := a.DB.Close(); err != nil {
		logger.Error("Error closing database: %v", err)
	}
}
