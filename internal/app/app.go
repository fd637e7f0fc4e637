package app

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"os"

	"github.com/niksmo/consumershop/config"
	"github.com/niksmo/consumershop/internal/adapter"
	"github.com/niksmo/consumershop/pkg/schema"
	"github.com/twmb/franz-go/pkg/sr"
)

// base holds what both applications set up first.
type base struct {
	ctx       context.Context
	cfg       config.Config
	tlsConfig *tls.Config
}

func (app *base) initLogger() {
	opts := &slog.HandlerOptions{Level: app.cfg.LogLevel}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, opts))
	slog.SetDefault(logger)
}

func (app *base) initTLS() {
	const op = "App.initTLS"

	files := app.cfg.Broker.TLS
	if !files.Enabled() {
		return
	}

	tlsConfig, err := adapter.MakeTLSConfig(files.CA, files.Cert, files.Key)
	if err != nil {
		app.fallDown(op, err)
	}
	app.tlsConfig = tlsConfig
}

func (app *base) schemaIdentifier() schema.SchemaIdentifier {
	const op = "App.schemaIdentifier"

	opts := []sr.ClientOpt{sr.URLs(app.cfg.Broker.SchemaRegistryURLs...)}
	if app.tlsConfig != nil {
		opts = append(opts, sr.DialTLSConfig(app.tlsConfig))
	}

	srClient, err := sr.NewClient(opts...)
	if err != nil {
		app.fallDown(op, err)
	}
	return schema.NewSchemaIdentifier(srClient)
}

func (app *base) eventsSerde(si schema.SchemaIdentifier) schema.Serde {
	const op = "App.eventsSerde"

	s, err := schema.NewSerdeProductEventV1(
		app.ctx,
		schema.SubjectOpt(app.cfg.Broker.Topics.CatalogEvents+"-value"),
		schema.SchemaIdentifierOpt(si),
	)
	if err != nil {
		app.fallDown(op, err)
	}
	return s
}

func (app *base) fallDown(op string, err error) {
	panic(fmt.Errorf("%s: %w", op, err))
}
