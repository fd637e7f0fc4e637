package kafka

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/lovoo/goka"
	"github.com/niksmo/consumershop/internal/core/domain"
	"github.com/niksmo/consumershop/pkg/schema"
	"github.com/twmb/franz-go/pkg/kgo"
)

var (
	ErrTooFewOpts       = errors.New("too few options")
	ErrInvalidValueType = errors.New("invalid value type")
	ErrUnknownEventKind = errors.New("unknown event kind")
	ErrInvalidPrice     = errors.New("invalid price")
	ErrOutOfRange       = errors.New("value out of avro long range")
)

type ProducerClient interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

type ConsumerClient interface {
	PollFetches(context.Context) kgo.Fetches
	CommitUncommittedOffsets(context.Context) error
	Close()
}

type Encoder interface {
	Encode(v any) ([]byte, error)
}

type Decoder interface {
	Decode(b []byte, v any) error
}

type Serde interface {
	Encoder
	Decoder
}

// clientOpts returns the [kgo.Opt] shared by producers and consumers.
func clientOpts(seedBrokers []string, tlsConfig *tls.Config) []kgo.Opt {
	opts := []kgo.Opt{kgo.SeedBrokers(seedBrokers...)}
	if tlsConfig != nil {
		opts = append(opts, kgo.DialTLSConfig(tlsConfig))
	}
	return opts
}

// UseTLS makes goka processors dial brokers over TLS.
func UseTLS(tlsConfig *tls.Config) {
	if tlsConfig == nil {
		return
	}
	cfg := goka.DefaultConfig()
	cfg.Net.TLS.Enable = true
	cfg.Net.TLS.Config = tlsConfig
	goka.ReplaceGlobalConfig(cfg)
}

// TableTopic returns the group table topic of the processor group.
func TableTopic(group string) string {
	return string(goka.GroupTable(goka.Group(group)))
}

func withNonlogProcOpt() goka.ProcessorOption {
	return goka.WithLogger(log.New(io.Discard, "", 0))
}

func makeOp(s ...string) string {
	return strings.Join(s, ".")
}

func opErr(err error, op ...string) error {
	return fmt.Errorf("%s: %w", makeOp(op...), err)
}

func indexKey(index uint64) []byte {
	return strconv.AppendUint(nil, index, 10)
}

func eventToSchemaV1(e domain.Event) (s schema.ProductEventV1, err error) {
	meta := e.Metadata()
	s.BlockNumber = int64(meta.BlockNumber)
	s.TxHash = meta.TxHash
	s.LogIndex = int64(meta.LogIndex)

	switch e := e.(type) {
	case domain.ProductCreated:
		err = checkLongRange(e.Index, e.SKU, e.QuantityAvailable)
		s.Kind = schema.EventKindCreated
		s.Index = int64(e.Index)
		s.SKU = int64(e.SKU)
		s.Name = e.Name
		s.Image = e.Image
		s.Description = e.Description
		s.Price = priceString(e.Price)
		s.QuantityAvailable = int64(e.QuantityAvailable)
	case domain.ProductSold:
		err = checkLongRange(
			e.Index, e.SKU, e.NewQuantityAvailable,
			e.QuantitySold, e.TotalQuantitySold,
		)
		s.Kind = schema.EventKindSold
		s.Index = int64(e.Index)
		s.SKU = int64(e.SKU)
		s.Price = "0"
		s.QuantityAvailable = int64(e.NewQuantityAvailable)
		s.QuantitySold = int64(e.QuantitySold)
		s.TotalQuantitySold = int64(e.TotalQuantitySold)
	case domain.ProductSynced:
		p := e.Product
		err = checkLongRange(p.Index, p.SKU, p.QuantityAvailable, p.QuantitySold)
		s.Kind = schema.EventKindSynced
		s.Index = int64(p.Index)
		s.SKU = int64(p.SKU)
		s.Name = p.Name
		s.Image = p.Image
		s.Description = p.Description
		s.Price = priceString(p.Price)
		s.QuantityAvailable = int64(p.QuantityAvailable)
		s.TotalQuantitySold = int64(p.QuantitySold)
	default:
		return s, fmt.Errorf("%w: %T", ErrUnknownEventKind, e)
	}
	return s, err
}

// checkLongRange fails when a value does not fit an avro long.
func checkLongRange(vs ...uint64) error {
	for _, v := range vs {
		if v > math.MaxInt64 {
			return fmt.Errorf("%w: %d", ErrOutOfRange, v)
		}
	}
	return nil
}

func schemaV1ToEvent(s schema.ProductEventV1) (domain.Event, error) {
	meta := domain.EventMeta{
		BlockNumber: uint64(s.BlockNumber),
		TxHash:      s.TxHash,
		LogIndex:    uint(s.LogIndex),
	}

	switch s.Kind {
	case schema.EventKindCreated:
		price, err := parsePrice(s.Price)
		if err != nil {
			return nil, err
		}
		return domain.ProductCreated{
			Meta:              meta,
			Index:             uint64(s.Index),
			SKU:               uint64(s.SKU),
			Name:              s.Name,
			Image:             s.Image,
			Description:       s.Description,
			QuantityAvailable: uint64(s.QuantityAvailable),
			Price:             price,
		}, nil
	case schema.EventKindSold:
		return domain.ProductSold{
			Meta:                 meta,
			Index:                uint64(s.Index),
			SKU:                  uint64(s.SKU),
			QuantitySold:         uint64(s.QuantitySold),
			TotalQuantitySold:    uint64(s.TotalQuantitySold),
			NewQuantityAvailable: uint64(s.QuantityAvailable),
		}, nil
	case schema.EventKindSynced:
		price, err := parsePrice(s.Price)
		if err != nil {
			return nil, err
		}
		return domain.ProductSynced{
			Meta: meta,
			Product: domain.Product{
				Index:             uint64(s.Index),
				SKU:               uint64(s.SKU),
				Name:              s.Name,
				Image:             s.Image,
				Description:       s.Description,
				Price:             price,
				QuantityAvailable: uint64(s.QuantityAvailable),
				QuantitySold:      uint64(s.TotalQuantitySold),
			},
		}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEventKind, s.Kind)
}

func productToStateV1(p domain.Product, block uint64) (s schema.ProductStateV1) {
	s.Index = int64(p.Index)
	s.SKU = int64(p.SKU)
	s.Name = p.Name
	s.Image = p.Image
	s.Description = p.Description
	s.Price = priceString(p.Price)
	s.QuantityAvailable = int64(p.QuantityAvailable)
	s.QuantitySold = int64(p.QuantitySold)
	s.BlockNumber = int64(block)
	return
}

func stateV1ToProduct(s schema.ProductStateV1) (domain.Product, error) {
	price, err := parsePrice(s.Price)
	if err != nil {
		return domain.Product{}, err
	}
	return domain.Product{
		Index:             uint64(s.Index),
		SKU:               uint64(s.SKU),
		Name:              s.Name,
		Image:             s.Image,
		Description:       s.Description,
		Price:             price,
		QuantityAvailable: uint64(s.QuantityAvailable),
		QuantitySold:      uint64(s.QuantitySold),
	}, nil
}

func priceString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func parsePrice(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPrice, s)
	}
	return v, nil
}
