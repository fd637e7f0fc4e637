package kafka

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/niksmo/consumershop/internal/core/domain"
	"github.com/niksmo/consumershop/internal/core/port"
	"github.com/niksmo/consumershop/pkg/schema"
	"github.com/twmb/franz-go/pkg/kgo"
)

type ConsumerOpt func(*consumerOpts) error

// ConsumerClientOpt creates a [kgo.Client] in the consumer group
// with manual offset commits.
func ConsumerClientOpt(
	seedBrokers []string, topic, group string, tlsConfig *tls.Config,
) ConsumerOpt {
	return func(co *consumerOpts) error {
		kgoOpts := append(clientOpts(seedBrokers, tlsConfig),
			kgo.ConsumeTopics(topic),
			kgo.ConsumerGroup(group),
			kgo.DisableAutoCommit(),
			kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
		)
		cl, err := kgo.NewClient(kgoOpts...)
		if err != nil {
			return err
		}
		co.cl = cl
		return nil
	}
}

// ConsumerWithClientOpt sets an already built client.
func ConsumerWithClientOpt(cl ConsumerClient) ConsumerOpt {
	return func(co *consumerOpts) error {
		if cl == nil {
			return errors.New("consumer client is nil")
		}
		co.cl = cl
		return nil
	}
}

func ConsumerDecoderOpt(decoder Decoder) ConsumerOpt {
	return func(co *consumerOpts) error {
		if decoder == nil {
			return errors.New("decoder is nil")
		}
		co.decoder = decoder
		return nil
	}
}

func ConsumerProductsSaverOpt(ps port.ProductsSaver) ConsumerOpt {
	return func(co *consumerOpts) error {
		if ps == nil {
			return errors.New("products saver is nil")
		}
		co.productsSaver = ps
		return nil
	}
}

type consumerOpts struct {
	cl            ConsumerClient
	decoder       Decoder
	productsSaver port.ProductsSaver
}

func (co *consumerOpts) apply(opts ...ConsumerOpt) error {
	for _, opt := range opts {
		if err := opt(co); err != nil {
			return err
		}
	}
	return nil
}

// A ProductsConsumer consumes product states from the catalog table topic
// then sends them to the core service for save.
type ProductsConsumer struct {
	opPrefix      string
	cl            ConsumerClient
	saver         port.ProductsSaver
	decoder       Decoder
	slowDownDelay time.Duration
}

func NewProductsConsumer(opts ...ConsumerOpt) (ProductsConsumer, error) {
	const op = "NewProductsConsumer"

	if len(opts) != 3 {
		panic(opErr(ErrTooFewOpts, op)) // develop mistake
	}

	var options consumerOpts
	if err := options.apply(opts...); err != nil {
		return ProductsConsumer{}, opErr(err, op)
	}

	return ProductsConsumer{
		opPrefix:      "ProductsConsumer",
		cl:            options.cl,
		saver:         options.productsSaver,
		decoder:       options.decoder,
		slowDownDelay: time.Second,
	}, nil
}

// Run polls the table topic until ctx is done.
func (c ProductsConsumer) Run(ctx context.Context) {
	const op = "Run"
	log := slog.With("op", makeOp(c.opPrefix, op))

	log.Info("running")

	for {
		select {
		case <-ctx.Done():
			return
		default:
			err := c.consume(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					continue
				}
				log.Error("failed to consume", "err", err)
				c.slowDown(ctx)
			}
		}
	}
}

func (c ProductsConsumer) Close() {
	const op = "Close"
	log := slog.With("op", makeOp(c.opPrefix, op))

	log.Info("closing consumer...")
	c.cl.Close()
	log.Info("consumer is closed")
}

func (c ProductsConsumer) consume(ctx context.Context) error {
	const op = "consume"

	fetches, err := c.pollFetches(ctx)
	if err != nil {
		return opErr(err, c.opPrefix, op)
	}

	if fetches.Empty() {
		return nil
	}

	values := c.toDomain(fetches)
	if len(values) != 0 {
		if err := c.saver.SaveProducts(ctx, values); err != nil {
			return opErr(err, c.opPrefix, op)
		}
	}

	if err := c.cl.CommitUncommittedOffsets(ctx); err != nil {
		return opErr(err, c.opPrefix, op)
	}
	return nil
}

func (c ProductsConsumer) pollFetches(ctx context.Context) (kgo.Fetches, error) {
	const op = "pollFetches"

	fetches := c.cl.PollFetches(ctx)
	if err := fetches.Err0(); err != nil {
		return nil, opErr(err, c.opPrefix, op)
	}

	if err := c.handleFetchesErrs(fetches); err != nil {
		return nil, opErr(err, c.opPrefix, op)
	}

	return fetches, nil
}

func (c ProductsConsumer) handleFetchesErrs(fetches kgo.Fetches) error {
	var errsMessages []string
	fetches.EachError(func(t string, p int32, err error) {
		if err != nil {
			errMsg := fmt.Sprintf(
				"topic %q partition %d: %q", t, p, err,
			)
			errsMessages = append(errsMessages, errMsg)
		}
	})

	if len(errsMessages) != 0 {
		return errors.New(strings.Join(errsMessages, "; "))
	}
	return nil
}

// toDomain decodes the fetched states keeping only the latest one per index.
func (c ProductsConsumer) toDomain(fetches kgo.Fetches) []domain.Product {
	const op = "toDomain"
	log := slog.With("op", makeOp(c.opPrefix, op))

	var vs []domain.Product
	position := make(map[uint64]int)

	fetches.EachRecord(func(r *kgo.Record) {
		if r.Value == nil {
			return
		}
		v, err := c.decodeRecValue(r)
		if err != nil {
			log.Error(
				"failed to decode value",
				"err", opErr(err, c.opPrefix, op),
				"offset", r.Offset,
			)
			return
		}
		if pos, ok := position[v.Index]; ok {
			vs[pos] = v
			return
		}
		position[v.Index] = len(vs)
		vs = append(vs, v)
	})
	return vs
}

func (c ProductsConsumer) decodeRecValue(r *kgo.Record) (domain.Product, error) {
	var s schema.ProductStateV1
	if err := c.decoder.Decode(r.Value, &s); err != nil {
		return domain.Product{}, err
	}
	return stateV1ToProduct(s)
}

func (c ProductsConsumer) slowDown(ctx context.Context) {
	t := time.NewTimer(c.slowDownDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
