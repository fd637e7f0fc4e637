package kafka

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"

	"github.com/niksmo/consumershop/internal/core/domain"
	"github.com/niksmo/consumershop/internal/core/port"
	"github.com/twmb/franz-go/pkg/kgo"
)

var _ port.EventsProducer = (*EventsProducer)(nil)

type ProducerOpt func(*producerOpts) error

type producerOpts struct {
	cl      ProducerClient
	encoder Encoder
}

// ProducerClientOpt creates a [kgo.Client] producing to the topic
// and checks the brokers are reachable.
func ProducerClientOpt(
	ctx context.Context, seedBrokers []string, topic string, tlsConfig *tls.Config,
) ProducerOpt {
	return func(opts *producerOpts) error {
		kgoOpts := append(clientOpts(seedBrokers, tlsConfig),
			kgo.DefaultProduceTopicAlways(),
			kgo.DefaultProduceTopic(topic),
			kgo.RequiredAcks(kgo.AllISRAcks()),
		)
		cl, err := kgo.NewClient(kgoOpts...)
		if err != nil {
			return err
		}

		if err := cl.Ping(ctx); err != nil {
			cl.Close()
			return err
		}
		opts.cl = cl
		return nil
	}
}

// ProducerWithClientOpt sets an already built client.
func ProducerWithClientOpt(cl ProducerClient) ProducerOpt {
	return func(opts *producerOpts) error {
		if cl == nil {
			return errors.New("producer client is nil")
		}
		opts.cl = cl
		return nil
	}
}

func ProducerEncoderOpt(encoder Encoder) ProducerOpt {
	return func(opts *producerOpts) error {
		if encoder == nil {
			return errors.New("encoder is nil")
		}
		opts.encoder = encoder
		return nil
	}
}

// An EventsProducer publishes ledger events to the catalog events topic.
//
// Records are keyed by product index so events of one product
// keep their order within a partition.
type EventsProducer struct {
	opPrefix string
	cl       ProducerClient
	encoder  Encoder
}

func NewEventsProducer(opts ...ProducerOpt) (EventsProducer, error) {
	const op = "NewEventsProducer"

	if len(opts) != 2 {
		panic(opErr(ErrTooFewOpts, op)) // develop mistake
	}

	var options producerOpts
	for _, opt := range opts {
		if err := opt(&options); err != nil {
			return EventsProducer{}, opErr(err, op)
		}
	}

	return EventsProducer{
		opPrefix: "EventsProducer",
		cl:       options.cl,
		encoder:  options.encoder,
	}, nil
}

func (p EventsProducer) Close() {
	const op = "Close"
	log := slog.With("op", makeOp(p.opPrefix, op))
	log.Info("closing producer...")
	p.cl.Close()
	log.Info("producer is closed")
}

func (p EventsProducer) ProduceEvents(
	ctx context.Context, evts []domain.Event,
) error {
	const op = "ProduceEvents"

	if err := ctx.Err(); err != nil {
		return opErr(err, p.opPrefix, op)
	}

	rs, err := p.createRecords(evts)
	if err != nil {
		return opErr(err, p.opPrefix, op)
	}

	if len(rs) == 0 {
		return nil
	}

	res := p.cl.ProduceSync(ctx, rs...)
	if err := res.FirstErr(); err != nil {
		return opErr(err, p.opPrefix, op)
	}
	return nil
}

func (p EventsProducer) createRecords(
	evts []domain.Event,
) (rs []*kgo.Record, err error) {
	const op = "createRecords"

	for _, e := range evts {
		s, err := eventToSchemaV1(e)
		if errors.Is(err, ErrOutOfRange) {
			slog.Error("event is not representable, skipped",
				"op", makeOp(p.opPrefix, op), "index", e.ProductIndex(), "err", err)
			continue
		}
		if err != nil {
			return nil, opErr(err, p.opPrefix, op)
		}
		b, err := p.encoder.Encode(s)
		if err != nil {
			return nil, opErr(err, p.opPrefix, op)
		}
		r := &kgo.Record{Key: indexKey(e.ProductIndex()), Value: b}
		rs = append(rs, r)
	}
	return rs, nil
}
