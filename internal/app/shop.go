package app

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/niksmo/consumershop/config"
	"github.com/niksmo/consumershop/internal/adapter/httphandler"
	"github.com/niksmo/consumershop/internal/adapter/kafka"
	"github.com/niksmo/consumershop/internal/adapter/ledger"
	"github.com/niksmo/consumershop/internal/core/catalog"
	"github.com/niksmo/consumershop/internal/core/port"
	"github.com/niksmo/consumershop/internal/core/service"
)

// Shop is the dashboard application: ledger sync, event watcher,
// event fan-out and the HTTP API.
type Shop struct {
	base

	ethClient  *ethclient.Client
	contract   *ledger.ShopContract
	ledger     *ledger.Ledger
	producer   *kafka.EventsProducer
	service    *service.Service
	watcher    *ledger.Watcher
	httpServer httphandler.HTTPServer
	wg         sync.WaitGroup
}

func NewShop(ctx context.Context, cfg config.Config) *Shop {
	app := &Shop{base: base{ctx: ctx, cfg: cfg}}

	app.initLogger()
	app.validate()
	app.initTLS()
	app.initLedger()
	app.initProducer()
	app.initCoreService()
	app.initWatcher()
	app.initInboundAdapters()

	return app
}

func (app *Shop) validate() {
	const op = "Shop.validate"
	if err := app.cfg.ValidateLedger(); err != nil {
		app.fallDown(op, err)
	}
}

func (app *Shop) initLedger() {
	const op = "Shop.initLedger"
	cfg := app.cfg.Ledger

	if !common.IsHexAddress(cfg.ContractAddress) {
		app.fallDown(op, ledger.ErrInvalidAddress)
	}

	cl, err := ledger.Dial(app.ctx, cfg.RPCURL, cfg.ChainID)
	if err != nil {
		app.fallDown(op, err)
	}

	contract, err := ledger.NewShopContract(
		common.HexToAddress(cfg.ContractAddress), cl,
	)
	if err != nil {
		app.fallDown(op, err)
	}

	var wallet *ledger.Wallet
	if cfg.PrivateKey != "" {
		wallet, err = ledger.NewWallet(cfg.PrivateKey, cfg.ChainID)
		if err != nil {
			app.fallDown(op, err)
		}
	} else {
		slog.Warn("private key is not set, ledger is read only", "op", op)
	}

	app.ethClient = cl
	app.contract = contract
	app.ledger = ledger.New(cl, contract, wallet)
}

func (app *Shop) initProducer() {
	const op = "Shop.initProducer"

	if len(app.cfg.Broker.SeedBrokers) == 0 {
		slog.Info("broker is not set, events fan-out is disabled", "op", op)
		return
	}
	if err := app.cfg.ValidateBroker(); err != nil {
		app.fallDown(op, err)
	}

	serde := app.eventsSerde(app.schemaIdentifier())

	producer, err := kafka.NewEventsProducer(
		kafka.ProducerClientOpt(
			app.ctx,
			app.cfg.Broker.SeedBrokers,
			app.cfg.Broker.Topics.CatalogEvents,
			app.tlsConfig,
		),
		kafka.ProducerEncoderOpt(serde),
	)
	if err != nil {
		app.fallDown(op, err)
	}
	app.producer = &producer
}

func (app *Shop) initCoreService() {
	var producer port.EventsProducer
	if app.producer != nil {
		producer = app.producer
	}

	s := service.New(catalog.New(), app.ledger, app.ledger, producer, nil)
	s.SetFetchConcurrency(app.cfg.Ledger.FetchConcurrency)
	app.service = s
}

func (app *Shop) initWatcher() {
	cfg := app.cfg.Ledger
	app.watcher = ledger.NewWatcher(
		app.ethClient, app.contract, app.service,
		ledger.WatcherConfig{
			PollInterval:  cfg.PollInterval,
			Confirmations: cfg.Confirmations,
			MaxBlockRange: cfg.MaxBlockRange,
		},
	)
}

func (app *Shop) initInboundAdapters() {
	mux := http.NewServeMux()
	httphandler.RegisterProducts(
		mux, app.service, httphandler.DefaultImageOpt(app.cfg.DefaultImage),
	)

	app.httpServer = httphandler.NewHTTPServer(
		app.cfg.HTTPServerAddr, mux, app.cfg.HTTPRequestTimeout,
	)
}

// Run loads the catalog then follows the ledger from the next block.
func (app *Shop) Run(stopFn context.CancelFunc) {
	const op = "Shop.Run"
	log := slog.With("op", op)

	head, err := app.service.SyncProducts(app.ctx)
	if err != nil {
		log.Error("failed to load products", "err", err)
		stopFn()
		return
	}

	app.wg.Add(1)
	go func() {
		defer app.wg.Done()
		app.watcher.Run(app.ctx, head+1)
	}()

	go app.httpServer.Run(stopFn)

	log.Info("application is running", "head", head)
}

func (app *Shop) Close(ctx context.Context) {
	slog.Info("application is closing...")

	app.httpServer.Close(ctx)
	app.wg.Wait()

	if app.producer != nil {
		app.producer.Close()
	}
	app.ethClient.Close()

	slog.Info("application is closed")
}
