package main

import (
	bookingshandler "bookwell/internal/bookings/handler"
	bookingsrepo "bookwell/internal/bookings/repository"
	bookingsservice "bookwell/internal/bookings/service"
	bookingsvalidator "bookwell/internal/bookings/validator"
	clientshandler "bookwell/internal/clients/handler"
	clientsrepo "bookwell/internal/clients/repository"
	clientsservice "bookwell/internal/clients/service"
	clientsvalidator "bookwell/internal/clients/validator"
	orgshandler "bookwell/internal/organizations/handler"
	orgsrepo "bookwell/internal/organizations/repository"
	orgsservice "bookwell/internal/organizations/service"
	orgsvalidator "bookwell/internal/organizations/validator"
	sessionshandler "bookwell/internal/sessions/handler"
	sessionsrepo "bookwell/internal/sessions/repository"
	sessionsservice "bookwell/internal/sessions/service"
	sessionsvalidator "bookwell/internal/sessions/validator"
	spaceshandler "bookwell/internal/spaces/handler"
	spacesrepo "bookwell/internal/spaces/repository"
	spacesservice "bookwell/internal/spaces/service"
	spacesvalidator "bookwell/internal/spaces/validator"
	"bookwell/pkg/app"
	"bookwell/pkg/config"
	"bookwell/pkg/contracts"
	"bookwell/pkg/events"
	"bookwell/pkg/kafka"
	kafkaconfig "bookwell/pkg/kafka/config"
	"bookwell/pkg/sealer"

	"github.com/joho/godotenv"
)

const ServiceName = "bookwell"

func main() {
	_ = godotenv.Load()

	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	publisher := initPublisher(cfg)
	defer func() {
		if err := publisher.Close(); err != nil {
			cfg.Log.Error("Failed to close event publisher", "error", err)
		}
	}()

	handlers := initHandlers(cfg, publisher)

	cfg.Log.Info("Starting bookwell server")
	app.NewApplication(cfg, handlers...).Run()
}

func initPublisher(cfg *config.Config) events.Publisher {
	if cfg.KafkaBrokers == "" {
		cfg.Log.Info("Kafka brokers not configured, booking events disabled")
		return events.NoopPublisher{}
	}

	kafkaCfg, err := kafkaconfig.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}

	producer, err := kafka.NewProducer(kafkaCfg, cfg.KafkaBookingTopic)
	if err != nil {
		cfg.Log.Fatal("Failed to initialize Kafka producer", "error", err)
	}
	cfg.Log.Info("Kafka producer initialized", "topic", cfg.KafkaBookingTopic)
	return events.NewKafkaPublisher(producer, ServiceName, cfg.Log)
}

func initHandlers(cfg *config.Config, publisher events.Publisher) []contracts.Handler {
	bookingRepo := bookingsrepo.NewMongoBookingRepository(cfg)
	lockRepo := bookingsrepo.NewBookingLockRepository(cfg)
	orgRepo := orgsrepo.NewMongoOrganizationRepository(cfg)
	sessionRepo := sessionsrepo.NewMongoSessionRepository(cfg)
	spaceRepo := spacesrepo.NewMongoSpaceRepository(cfg)
	clientRepo := clientsrepo.NewMongoClientRepository(cfg)

	orgService := orgsservice.NewOrganizationService(
		orgRepo,
		orgsvalidator.NewOrganizationValidator(),
		cfg,
	)
	sessionService := sessionsservice.NewSessionService(
		sessionRepo,
		bookingRepo,
		bookingRepo,
		sessionsvalidator.NewSessionValidator(cfg.Log),
		cfg,
	)
	spaceService := spacesservice.NewSpaceService(
		spaceRepo,
		bookingRepo,
		spacesvalidator.NewSpaceValidator(),
		cfg,
	)
	clientService := clientsservice.NewClientService(
		clientRepo,
		clientsvalidator.NewClientValidator(),
		cfg,
	)

	tokenSealer, err := sealer.New(cfg.CheckInSecret)
	if err != nil {
		cfg.Log.Fatal("Invalid check-in secret", "error", err)
	}

	bookingService := bookingsservice.NewBookingService(
		bookingRepo,
		lockRepo,
		bookingsvalidator.NewBookingValidator(),
		sessionRepo,
		spaceRepo,
		clientRepo,
		orgRepo,
		tokenSealer,
		publisher,
		cfg,
	)

	cfg.Log.Info("Services initialized", "database", cfg.MongoDatabaseName)

	return []contracts.Handler{
		orgshandler.NewOrganizationHandler(orgService, cfg.Log),
		sessionshandler.NewSessionHandler(sessionService, cfg.Log),
		spaceshandler.NewSpaceHandler(spaceService, cfg.Log),
		clientshandler.NewClientHandler(clientService, cfg.Log),
		bookingshandler.NewBookingHandler(bookingService, cfg.Log),
	}
}
