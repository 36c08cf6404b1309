package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/sushihentaime/bloglist/internal/blogservice"
	"github.com/sushihentaime/bloglist/internal/common"
	"github.com/sushihentaime/bloglist/internal/config"
	"github.com/sushihentaime/bloglist/internal/indexservice"
	"github.com/sushihentaime/bloglist/internal/mailservice"
	"github.com/sushihentaime/bloglist/internal/userservice"
)

type application struct {
	config       *config.Config
	logger       *slog.Logger
	userService  *userservice.UserService
	blogService  *blogservice.BlogService
	indexService *indexservice.IndexService
	mailService  *mailservice.MailService
	broker       *common.MessageBroker
	limiter      *clientLimiter
}

func main() {
	configPath := flag.String("config", ".env", "path to the dotenv configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := newLogger(cfg)

	err = run(cfg, logger)
	if err != nil {
		logger.Error("server exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.Environment == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

// stores bundles the user and blog stores of the configured driver.
type stores struct {
	users userservice.Store
	blogs blogservice.Store
	close func() error
}

func openStores(cfg *config.Config, logger *slog.Logger) (*stores, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		client, db, err := common.NewMongoDB(context.Background(), cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		logger.Info("connected to mongodb", slog.String("db", cfg.MongoDB))

		return &stores{
			users: userservice.NewMongoModel(db),
			blogs: blogservice.NewMongoModel(db),
			close: func() error { return common.CloseMongo(client) },
		}, nil

	case config.DriverPostgres:
		db, err := common.NewDB(cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBMaxIdleTime)
		if err != nil {
			return nil, err
		}

		if _, err := common.MigrateDB(db); err != nil {
			_ = common.CloseDB(db)
			return nil, err
		}
		logger.Info("connected to postgres", slog.String("db", cfg.DBName))

		return &stores{
			users: userservice.NewPostgresModel(db),
			blogs: blogservice.NewPostgresModel(db),
			close: func() error { return common.CloseDB(db) },
		}, nil
	}

	return nil, errors.New("unknown store driver " + cfg.StoreDriver)
}

func run(cfg *config.Config, logger *slog.Logger) error {
	st, err := openStores(cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	tm, err := userservice.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	if err != nil {
		return err
	}

	cache := common.NewCache(cfg.CacheTTL, 2*cfg.CacheTTL)

	app := &application{
		config:  cfg,
		logger:  logger,
		limiter: newClientLimiter(cfg.LimiterRPS, cfg.LimiterBurst),
	}

	var userEvents, blogEvents common.MessageProducer
	if cfg.BrokerEnabled() {
		broker, err := common.NewMessageBroker(common.AMQPURI(cfg.MQUser, cfg.MQPassword, cfg.MQHost, cfg.MQPort))
		if err != nil {
			return err
		}
		defer broker.Close()

		if err := common.SetupUserExchange(broker); err != nil {
			return err
		}
		if err := common.SetupBlogExchange(broker); err != nil {
			return err
		}

		app.broker = broker
		userEvents, blogEvents = broker, broker
	}

	app.userService = userservice.NewUserService(st.users, userEvents, cache, tm, logger)

	var consumer common.MessageConsumer
	if app.broker != nil {
		consumer = app.broker
	}
	app.indexService = indexservice.NewIndexService(consumer, app.userService, nil, logger)

	if blogEvents == nil {
		logger.Warn("no message broker configured, applying blog events in process")
		blogEvents = app.indexService
	}

	app.blogService = blogservice.NewBlogService(st.blogs, blogEvents, logger)
	app.indexService.SetBlogSource(app.blogService)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := app.indexService.Rebuild(ctx); err != nil {
		logger.Error("could not rebuild blog index", slog.String("error", err.Error()))
	}

	if app.broker != nil {
		if err := app.indexService.Run(); err != nil {
			return err
		}
		defer app.indexService.Close()

		if cfg.MailEnabled() {
			app.mailService = mailservice.NewMailService(app.broker, cfg.MailHost, cfg.MailUser, cfg.MailPassword, cfg.MailSender, cfg.MailPort, logger)
			if err := app.mailService.SendWelcomeEmail(); err != nil {
				return err
			}
			defer app.mailService.Close()
		}
	}

	return app.serve(cfg.Port)
}
