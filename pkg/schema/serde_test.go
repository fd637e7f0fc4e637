package schema_test

import (
	"context"
	"errors"
	"testing"

	"github.com/niksmo/consumershop/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/sr"
)

type MockSchemaIdentifier struct {
	mock.Mock
}

func (c *MockSchemaIdentifier) DetermineID(
	ctx context.Context, subject string, avroSchemaText string,
) (id int, err error) {
	args := c.Called(ctx, subject, avroSchemaText)
	return args.Int(0), args.Error(1)
}

func TestSerdeProductEventV1(t *testing.T) {

	t.Run("NoOpts", func(t *testing.T) {
		_, err := schema.NewSerdeProductEventV1(t.Context())
		require.Error(t, err)
		assert.ErrorIs(t, err, schema.ErrTooFewOpts)
	})

	t.Run("OneOpt", func(t *testing.T) {
		_, err := schema.NewSerdeProductEventV1(
			t.Context(),
			schema.SchemaIdentifierOpt(new(MockSchemaIdentifier)),
		)
		require.Error(t, err)
		assert.ErrorIs(t, err, schema.ErrTooFewOpts)
	})

	t.Run("EmptySubject", func(t *testing.T) {
		_, err := schema.NewSerdeProductEventV1(
			t.Context(),
			schema.SubjectOpt(""),
			schema.SchemaIdentifierOpt(new(MockSchemaIdentifier)),
		)
		require.Error(t, err)
	})

	t.Run("RegistryUnavailable", func(t *testing.T) {
		errRegistry := errors.New("registry unavailable")
		schemaIdentifier := new(MockSchemaIdentifier)
		subject := "catalog-events-value"
		schemaIdentifier.On(
			"DetermineID", t.Context(), subject, schema.ProductEventSchemaTextV1,
		).Return(0, errRegistry)

		_, err := schema.NewSerdeProductEventV1(
			t.Context(),
			schema.SubjectOpt(subject),
			schema.SchemaIdentifierOpt(schemaIdentifier),
		)
		assert.ErrorIs(t, err, errRegistry)
	})

	t.Run("EncodeDecode", func(t *testing.T) {
		schemaIdentifier := new(MockSchemaIdentifier)
		schemaID := 1
		subject := "catalog-events-value"

		schemaIdentifier.On(
			"DetermineID", t.Context(), subject, schema.ProductEventSchemaTextV1,
		).Return(schemaID, nil)

		serde, err := schema.NewSerdeProductEventV1(
			t.Context(),
			schema.SubjectOpt(subject),
			schema.SchemaIdentifierOpt(schemaIdentifier),
		)
		require.NoError(t, err)

		v1 := schema.ProductEventV1{
			Kind:              schema.EventKindSold,
			Index:             4,
			SKU:               1001,
			Price:             "1000000000000000",
			QuantityAvailable: 7,
			QuantitySold:      1,
			TotalQuantitySold: 3,
			BlockNumber:       120,
			TxHash:            "0xabc",
			LogIndex:          2,
		}

		data, err := serde.Encode(v1)
		require.NoError(t, err)

		var v2 schema.ProductEventV1
		err = serde.Decode(data, &v2)
		require.NoError(t, err)

		assert.Equal(t, v1, v2)
	})
}

func TestSerdeProductStateV1(t *testing.T) {
	schemaIdentifier := new(MockSchemaIdentifier)
	subject := "catalog-processor-table-value"
	schemaIdentifier.On(
		"DetermineID", t.Context(), subject, schema.ProductStateSchemaTextV1,
	).Return(2, nil)

	serde, err := schema.NewSerdeProductStateV1(
		t.Context(),
		schema.SubjectOpt(subject),
		schema.SchemaIdentifierOpt(schemaIdentifier),
	)
	require.NoError(t, err)

	v1 := schema.ProductStateV1{
		Index:             0,
		SKU:               1,
		Name:              "testName",
		Image:             "https://img",
		Description:       "testDescription",
		Price:             "15000000000000000",
		QuantityAvailable: 10,
		QuantitySold:      0,
		BlockNumber:       99,
	}

	data, err := serde.Encode(v1)
	require.NoError(t, err)

	var v2 schema.ProductStateV1
	require.NoError(t, serde.Decode(data, &v2))
	assert.Equal(t, v1, v2)
}

type MockSchemaCreater struct {
	mock.Mock
}

func (c *MockSchemaCreater) CreateSchema(
	ctx context.Context, subject string, s sr.Schema,
) (sr.SubjectSchema, error) {
	args := c.Called(ctx, subject, s)
	return args.Get(0).(sr.SubjectSchema), args.Error(1)
}

func TestSchemaIdentifier(t *testing.T) {
	subject := "catalog-events-value"
	want := sr.Schema{Type: sr.TypeAvro, Schema: schema.ProductEventSchemaTextV1}

	cl := new(MockSchemaCreater)
	cl.On("CreateSchema", t.Context(), subject, want).
		Return(sr.SubjectSchema{Subject: subject, ID: 17}, nil)

	id, err := schema.NewSchemaIdentifier(cl).DetermineID(
		t.Context(), subject, schema.ProductEventSchemaTextV1,
	)
	require.NoError(t, err)
	assert.Equal(t, 17, id)
}

func TestAvroSchemas(t *testing.T) {
	require.NotPanics(t, func() { schema.ProductEventV1Avro() })
	require.NotPanics(t, func() { schema.ProductStateV1Avro() })
}
