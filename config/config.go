package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	configFileEnvName = "SHOP_CONFIG_FILE"
	envPrefix         = "SHOP"
)

type topics struct {
	CatalogEvents string `mapstructure:"catalog_events"`
}

type groups struct {
	CatalogProcessor string `mapstructure:"catalog_processor"`
	ProductsSaver    string `mapstructure:"products_saver"`
}

type tlsFiles struct {
	CA   string `mapstructure:"ca"`
	Cert string `mapstructure:"cert"`
	Key  string `mapstructure:"key"`
}

// Enabled reports whether all of the certificate files are set.
func (t tlsFiles) Enabled() bool {
	return t.CA != "" && t.Cert != "" && t.Key != ""
}

type broker struct {
	SeedBrokers        []string `mapstructure:"seed_brokers"`
	SchemaRegistryURLs []string `mapstructure:"schema_registry_urls"`
	TLS                tlsFiles `mapstructure:"tls"`
	Topics             topics   `mapstructure:"topics"`
	Groups             groups   `mapstructure:"groups"`
}

type ledger struct {
	RPCURL           string        `mapstructure:"rpc_url"`
	ContractAddress  string        `mapstructure:"contract_address"`
	ChainID          uint64        `mapstructure:"chain_id"`
	PrivateKey       string        `mapstructure:"private_key"`
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	Confirmations    uint64        `mapstructure:"confirmations"`
	MaxBlockRange    uint64        `mapstructure:"max_block_range"`
	FetchConcurrency int           `mapstructure:"fetch_concurrency"`
}

type Config struct {
	LogLevel           slog.Level    `mapstructure:"log_level"`
	HTTPServerAddr     string        `mapstructure:"http_server_addr"`
	HTTPRequestTimeout time.Duration `mapstructure:"http_request_timeout"`
	DefaultImage       string        `mapstructure:"default_product_image"`
	SQLDB              string        `mapstructure:"sql_db"`
	Ledger             ledger        `mapstructure:"ledger"`
	Broker             broker        `mapstructure:"broker"`
}

// defaultProductImage is a light gray placeholder.
const defaultProductImage = "data:image/svg+xml," +
	"%3Csvg xmlns='http://www.w3.org/2000/svg' width='275' height='183'%3E" +
	"%3Crect width='100%25' height='100%25' fill='%23e4e4e4'/%3E%3C/svg%3E"

var defaults = map[string]any{
	"log_level":                       "info",
	"http_server_addr":                "127.0.0.1:8000",
	"http_request_timeout":            "60s",
	"default_product_image":           defaultProductImage,
	"sql_db":                          "",
	"ledger.rpc_url":                  "http://127.0.0.1:8545",
	"ledger.contract_address":         "",
	"ledger.chain_id":                 31337,
	"ledger.private_key":              "",
	"ledger.poll_interval":            "4s",
	"ledger.confirmations":            0,
	"ledger.max_block_range":          2000,
	"ledger.fetch_concurrency":        8,
	"broker.seed_brokers":             []string{},
	"broker.schema_registry_urls":     []string{},
	"broker.tls.ca":                   "",
	"broker.tls.cert":                 "",
	"broker.tls.key":                  "",
	"broker.topics.catalog_events":    "catalog-events",
	"broker.groups.catalog_processor": "catalog-processor",
	"broker.groups.products_saver":    "products-saver",
}

// Load reads the config file given by --config flag or SHOP_CONFIG_FILE env,
// SHOP_ prefixed env vars override the file values.
func Load() Config {
	cfg, err := load(getConfigFilepath())
	if err != nil {
		die(err)
	}
	return cfg
}

func load(path string) (Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Config{}, err
	}

	var cfg Config
	err := v.UnmarshalExact(&cfg, viper.DecodeHook(
		mapstructure.ComposeDecodeHookFunc(
			mapstructure.TextUnmarshallerHookFunc(),
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	))
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func getConfigFilepath() string {
	cmdLine := pflag.NewFlagSet(os.Args[0], pflag.ContinueOnError)
	cmdLine.ParseErrorsWhitelist.UnknownFlags = true
	arg := cmdLine.String("config", "/config.yaml", "config file")
	_ = cmdLine.Parse(os.Args[1:])
	env, ok := os.LookupEnv(configFileEnvName)
	if ok {
		return env
	}
	return *arg
}

func die(err error) {
	fmt.Printf("failed to load config file: %v\n", err)
	os.Exit(2)
}

// ValidateLedger checks the settings required to talk to the contract.
func (c Config) ValidateLedger() error {
	var errs []error
	if c.Ledger.RPCURL == "" {
		errs = append(errs, errors.New("ledger.rpc_url: required"))
	}
	if c.Ledger.ContractAddress == "" {
		errs = append(errs, errors.New("ledger.contract_address: required"))
	}
	if c.Ledger.ChainID == 0 {
		errs = append(errs, errors.New("ledger.chain_id: required"))
	}
	return errors.Join(errs...)
}

// ValidateBroker checks the settings required to produce and consume.
func (c Config) ValidateBroker() error {
	var errs []error
	if len(c.Broker.SeedBrokers) == 0 {
		errs = append(errs, errors.New("broker.seed_brokers: required"))
	}
	if len(c.Broker.SchemaRegistryURLs) == 0 {
		errs = append(errs, errors.New("broker.schema_registry_urls: required"))
	}
	if c.Broker.Topics.CatalogEvents == "" {
		errs = append(errs, errors.New("broker.topics.catalog_events: required"))
	}
	return errors.Join(errs...)
}

func (c Config) Print() {
	tamplate := `
	General:
	LogLevel=%q
	HTTPServerAddr=%q
	HTTPRequestTimeout=%q
	DefaultImage=%q
	SQLDB=%q

	Ledger:
	RPCURL=%q
	ContractAddress=%q
	ChainID=%d
	PrivateKey=%q
	PollInterval=%q
	Confirmations=%d
	MaxBlockRange=%d
	FetchConcurrency=%d

	BrokerConfig:
	SeedBrokers=%q
	SchemaRegistryURLs=%q
	TLS=%t
	Topics:
		CatalogEvents=%q
	Groups:
		CatalogProcessor=%q
		ProductsSaver=%q

`
	fmt.Println("Loaded config:")
	fmt.Printf(
		strings.TrimLeft(tamplate, "\n"),
		c.LogLevel,
		c.HTTPServerAddr,
		c.HTTPRequestTimeout,
		c.DefaultImage,
		maskDSN(c.SQLDB),
		c.Ledger.RPCURL,
		c.Ledger.ContractAddress,
		c.Ledger.ChainID,
		mask(c.Ledger.PrivateKey),
		c.Ledger.PollInterval,
		c.Ledger.Confirmations,
		c.Ledger.MaxBlockRange,
		c.Ledger.FetchConcurrency,
		c.Broker.SeedBrokers,
		c.Broker.SchemaRegistryURLs,
		c.Broker.TLS.Enabled(),
		c.Broker.Topics.CatalogEvents,
		c.Broker.Groups.CatalogProcessor,
		c.Broker.Groups.ProductsSaver,
	)
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "******"
}

// maskDSN hides the password of a postgres URL.
func maskDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at == -1 || scheme == -1 {
		return dsn
	}
	creds := dsn[scheme+3 : at]
	user, _, hasPassword := strings.Cut(creds, ":")
	if !hasPassword {
		return dsn
	}
	return dsn[:scheme+3] + user + ":******" + dsn[at:]
}
