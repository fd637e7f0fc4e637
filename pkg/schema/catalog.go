package schema

import "github.com/hamba/avro/v2"

const (
	EventKindCreated = "created"
	EventKindSold    = "sold"
	EventKindSynced  = "synced"
)

const ProductEventSchemaTextV1 = `{
	"type": "record",
	"namespace": "consumershop",
	"name": "product_event",
	"fields" : [
		{"name": "kind", "type": "string"},
		{"name": "index", "type": "long"},
		{"name": "sku", "type": "long"},
		{"name": "name", "type": "string", "default": ""},
		{"name": "image", "type": "string", "default": ""},
		{"name": "description", "type": "string", "default": ""},
		{"name": "price", "type": "string", "default": "0"},
		{"name": "quantity_available", "type": "long"},
		{"name": "quantity_sold", "type": "long", "default": 0},
		{"name": "total_quantity_sold", "type": "long", "default": 0},
		{"name": "block_number", "type": "long"},
		{"name": "tx_hash", "type": "string"},
		{"name": "log_index", "type": "long"}
	]
}`

const ProductStateSchemaTextV1 = `{
	"type": "record",
	"namespace": "consumershop",
	"name": "product_state",
	"fields" : [
		{"name": "index", "type": "long"},
		{"name": "sku", "type": "long"},
		{"name": "name", "type": "string"},
		{"name": "image", "type": "string"},
		{"name": "description", "type": "string"},
		{"name": "price", "type": "string"},
		{"name": "quantity_available", "type": "long"},
		{"name": "quantity_sold", "type": "long"},
		{"name": "block_number", "type": "long"}
	]
}`

type (
	// A ProductEventV1 is a ledger event on the catalog events topic.
	//
	// Price is a decimal wei string. For sold events QuantityAvailable
	// holds the new available quantity. Synced events carry a whole record
	// read at BlockNumber, its sold counter in TotalQuantitySold.
	ProductEventV1 struct {
		Kind              string `avro:"kind"`
		Index             int64  `avro:"index"`
		SKU               int64  `avro:"sku"`
		Name              string `avro:"name"`
		Image             string `avro:"image"`
		Description       string `avro:"description"`
		Price             string `avro:"price"`
		QuantityAvailable int64  `avro:"quantity_available"`
		QuantitySold      int64  `avro:"quantity_sold"`
		TotalQuantitySold int64  `avro:"total_quantity_sold"`
		BlockNumber       int64  `avro:"block_number"`
		TxHash            string `avro:"tx_hash"`
		LogIndex          int64  `avro:"log_index"`
	}

	// A ProductStateV1 is the projected product kept in the catalog table.
	ProductStateV1 struct {
		Index             int64  `avro:"index"`
		SKU               int64  `avro:"sku"`
		Name              string `avro:"name"`
		Image             string `avro:"image"`
		Description       string `avro:"description"`
		Price             string `avro:"price"`
		QuantityAvailable int64  `avro:"quantity_available"`
		QuantitySold      int64  `avro:"quantity_sold"`
		BlockNumber       int64  `avro:"block_number"`
	}
)

func ProductEventV1Avro() avro.Schema {
	return avro.MustParse(ProductEventSchemaTextV1)
}

func ProductStateV1Avro() avro.Schema {
	return avro.MustParse(ProductStateSchemaTextV1)
}
