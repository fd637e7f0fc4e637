package kafka

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/lovoo/goka"
	"github.com/niksmo/consumershop/internal/core/domain"
	"github.com/niksmo/consumershop/pkg/schema"
)

// A processor is used for composition.
//
// Running and closing the underlying [goka.Processor]
type processor struct {
	opPrefix string
	gp       *goka.Processor
}

func (p *processor) run(
	ctx context.Context, stopFn context.CancelFunc, wg *sync.WaitGroup,
) {
	const op = "run"
	log := slog.With("op", makeOp(p.opPrefix, op))

	defer wg.Done()

	go p.runProc(ctx, stopFn)

	log.Info("preparing...")
	p.waitForReady(ctx)
	log.Info("running")
}

func (p *processor) runProc(ctx context.Context, stopFn context.CancelFunc) {
	const op = "runProc"
	log := slog.With("op", makeOp(p.opPrefix, op))

	defer stopFn()

	err := p.gp.Run(ctx)
	if err != nil {
		log.Error("stopped", "err", err)
		return
	}
	log.Info("stopped")
}

func (p *processor) waitForReady(ctx context.Context) {
	const op = "waitForReady"
	log := slog.With("op", makeOp(p.opPrefix, op))

	err := p.gp.WaitForReadyContext(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		log.Error("fall down while preparing", "err", err)
	}
}

func (p *processor) close() {
	const op = "close"
	log := slog.With("op", makeOp(p.opPrefix, op))

	log.Info("closing processor...")
	p.gp.Stop()
	log.Info("processor is closed")
}

// A productEventCodec used for serde [schema.ProductEventV1]
type productEventCodec struct {
	serde Serde
}

func (c productEventCodec) Encode(v any) ([]byte, error) {
	const op = "productEventCodec.Encode"
	if _, ok := v.(schema.ProductEventV1); !ok {
		return nil, opErr(ErrInvalidValueType, op)
	}
	return c.serde.Encode(v)
}

func (c productEventCodec) Decode(data []byte) (any, error) {
	const op = "productEventCodec.Decode"
	var s schema.ProductEventV1
	if err := c.serde.Decode(data, &s); err != nil {
		return nil, opErr(err, op)
	}
	return s, nil
}

// A productStateCodec used for serde [schema.ProductStateV1]
type productStateCodec struct {
	serde Serde
}

func (c productStateCodec) Encode(v any) ([]byte, error) {
	const op = "productStateCodec.Encode"
	if _, ok := v.(schema.ProductStateV1); !ok {
		return nil, opErr(ErrInvalidValueType, op)
	}
	return c.serde.Encode(v)
}

func (c productStateCodec) Decode(data []byte) (any, error) {
	const op = "productStateCodec.Decode"
	var s schema.ProductStateV1
	if err := c.serde.Decode(data, &s); err != nil {
		return nil, opErr(err, op)
	}
	return s, nil
}

// A CatalogProcessor folds catalog events into a group table
// holding the current state of every product keyed by index.
type CatalogProcessor struct {
	opPrefix string
	proc     processor
}

// NewCatalogProcessor defines the processor group.
//
// The group table topic is [goka.GroupTable] of the group name.
func NewCatalogProcessor(
	seedBrokers []string,
	inputStream string,
	group string,
	eventSerde Serde,
	stateSerde Serde,
) (*CatalogProcessor, error) {
	const op = "NewCatalogProcessor"

	p := &CatalogProcessor{opPrefix: "CatalogProcessor"}

	gg := goka.DefineGroup(goka.Group(group),
		goka.Input(
			goka.Stream(inputStream),
			productEventCodec{eventSerde},
			p.processFn,
		),
		goka.Persist(productStateCodec{stateSerde}),
	)

	gp, err := goka.NewProcessor(seedBrokers, gg, withNonlogProcOpt())
	if err != nil {
		return nil, opErr(err, op)
	}

	p.proc = processor{
		opPrefix: p.opPrefix,
		gp:       gp,
	}
	return p, nil
}

// Run starts the processor and blocks until it is ready.
func (p *CatalogProcessor) Run(
	ctx context.Context, stopFn context.CancelFunc, wg *sync.WaitGroup,
) {
	p.proc.run(ctx, stopFn, wg)
}

func (p *CatalogProcessor) Close() {
	p.proc.close()
}

func (p *CatalogProcessor) processFn(ctx goka.Context, msg any) {
	const op = "processFn"
	log := slog.With("op", makeOp(p.opPrefix, op), "key", ctx.Key())

	event, ok := msg.(schema.ProductEventV1)
	if !ok {
		log.Error("unexpected message", "err", ErrInvalidValueType)
		return
	}

	var current *schema.ProductStateV1
	if v, ok := ctx.Value().(schema.ProductStateV1); ok {
		current = &v
	}

	next, changed, err := reduceProductState(current, event)
	if err != nil {
		log.Error("failed to reduce event", "err", err)
		return
	}
	if !changed {
		log.Warn("event skipped: unknown product or stale block",
			"kind", event.Kind, "block", event.BlockNumber)
		return
	}

	ctx.SetValue(next)
	log.Debug("product state updated", "kind", event.Kind)
}

// reduceProductState applies an event to the stored product state using
// the catalog reconciliation rules. A sale without state is not applied,
// neither is an event older than the block the state was built at.
func reduceProductState(
	current *schema.ProductStateV1, event schema.ProductEventV1,
) (schema.ProductStateV1, bool, error) {
	e, err := schemaV1ToEvent(event)
	if err != nil {
		return schema.ProductStateV1{}, false, err
	}

	block := e.Metadata().BlockNumber
	if current != nil && block < uint64(current.BlockNumber) {
		return schema.ProductStateV1{}, false, nil
	}

	switch e := e.(type) {
	case domain.ProductSynced:
		return productToStateV1(e.Product, block), true, nil
	case domain.ProductCreated:
		return productToStateV1(domain.FromCreated(e), block), true, nil
	case domain.ProductSold:
		if current == nil {
			return schema.ProductStateV1{}, false, nil
		}
		p, err := stateV1ToProduct(*current)
		if err != nil {
			return schema.ProductStateV1{}, false, err
		}
		return productToStateV1(p.WithSale(e), block), true, nil
	}
	return schema.ProductStateV1{}, false, ErrUnknownEventKind
}
