package app

import (
	"context"
	"log/slog"
	"sync"

	"github.com/niksmo/consumershop/config"
	"github.com/niksmo/consumershop/internal/adapter/kafka"
	"github.com/niksmo/consumershop/internal/adapter/storage"
	"github.com/niksmo/consumershop/internal/core/service"
	"github.com/niksmo/consumershop/pkg/schema"
)

// Projector folds the catalog events into the group table
// and saves the product states to the database.
type Projector struct {
	base

	sqlDB     storage.SQLDB
	service   *service.Service
	processor *kafka.CatalogProcessor
	consumer  kafka.ProductsConsumer
	wg        sync.WaitGroup
}

func NewProjector(ctx context.Context, cfg config.Config) *Projector {
	app := &Projector{base: base{ctx: ctx, cfg: cfg}}

	app.initLogger()
	app.validate()
	app.initTLS()
	app.initStorage()
	app.initCoreService()
	app.initStreamAdapters()

	return app
}

func (app *Projector) validate() {
	const op = "Projector.validate"
	if err := app.cfg.ValidateBroker(); err != nil {
		app.fallDown(op, err)
	}
}

func (app *Projector) initStorage() {
	const op = "Projector.initStorage"

	sqlDB, err := storage.NewSQLDB(app.ctx, app.cfg.SQLDB)
	if err != nil {
		app.fallDown(op, err)
	}
	app.sqlDB = sqlDB
}

func (app *Projector) initCoreService() {
	repo := storage.NewProductsRepository(app.sqlDB)
	app.service = service.New(nil, nil, nil, nil, repo)
}

func (app *Projector) initStreamAdapters() {
	const op = "Projector.initStreamAdapters"

	broker := app.cfg.Broker
	group := broker.Groups.CatalogProcessor
	tableTopic := kafka.TableTopic(group)

	si := app.schemaIdentifier()
	eventsSerde := app.eventsSerde(si)

	stateSerde, err := schema.NewSerdeProductStateV1(
		app.ctx,
		schema.SubjectOpt(tableTopic+"-value"),
		schema.SchemaIdentifierOpt(si),
	)
	if err != nil {
		app.fallDown(op, err)
	}

	kafka.UseTLS(app.tlsConfig)
	processor, err := kafka.NewCatalogProcessor(
		broker.SeedBrokers,
		broker.Topics.CatalogEvents,
		group,
		eventsSerde,
		stateSerde,
	)
	if err != nil {
		app.fallDown(op, err)
	}

	consumer, err := kafka.NewProductsConsumer(
		kafka.ConsumerClientOpt(
			broker.SeedBrokers, tableTopic, broker.Groups.ProductsSaver,
			app.tlsConfig,
		),
		kafka.ConsumerDecoderOpt(stateSerde),
		kafka.ConsumerProductsSaverOpt(app.service),
	)
	if err != nil {
		app.fallDown(op, err)
	}

	app.processor = processor
	app.consumer = consumer
}

// Run starts the consumer once the processor is ready.
func (app *Projector) Run(stopFn context.CancelFunc) {
	var procWG sync.WaitGroup
	procWG.Add(1)
	app.processor.Run(app.ctx, stopFn, &procWG)
	procWG.Wait()

	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		app.consumer.Run(app.ctx)
	}()

	slog.Info("application is running")
}

func (app *Projector) Close(ctx context.Context) {
	slog.Info("application is closing...")

	app.processor.Close()
	app.wg.Wait()
	app.consumer.Close()
	app.sqlDB.Close()

	slog.Info("application is closed")
}
