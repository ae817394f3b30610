package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
)

const defaultProductsAPI = "https://fake.jsonmockapi.com"

type Options struct {
	runAddr        string
	logLevel       string
	logConsole     bool
	dataBaseDSN    string
	productsAPIURL string
	productsLength int
	productsTTL    time.Duration
	fetchTimeout   time.Duration
	dataDir        string
}

func NewOptions() *Options {
	return new(Options)
}

// ParseFlags handles command line arguments
// and stores their values in the corresponding variables.
func (o *Options) ParseFlags() {
	// Load environment variables from the .env file
	loadEnvFile()

	if err := o.parse(os.Args[0], os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

// parse registers the flags on a fresh set so it can run more than once (tests).
// Environment variables provide the defaults; flags override them.
func (o *Options) parse(name string, args []string) error {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)

	fs.StringVarP(&o.runAddr, "address", "a", getEnvOrDefault("RUN_ADDRESS", ":8080"), "address and port to run server")
	fs.StringVarP(&o.logLevel, "log-level", "l", getEnvOrDefault("LOG_LEVEL", "info"), "log level")
	fs.BoolVar(&o.logConsole, "log-console", getBoolEnvOrDefault("LOG_CONSOLE", false), "human-readable log output")
	fs.StringVarP(&o.dataBaseDSN, "database", "d", getEnvOrDefault("DATABASE_URI", ""), "database connection string; empty keeps state in files")
	fs.StringVarP(&o.productsAPIURL, "products-api", "u", getEnvOrDefault("PRODUCTS_API_URL", defaultProductsAPI), "base URL of the products API")
	fs.IntVarP(&o.productsLength, "products-length", "n", getIntEnvOrDefault("PRODUCTS_LENGTH", 50), "number of products to fetch")
	fs.DurationVarP(&o.productsTTL, "products-ttl", "t", getDurationEnvOrDefault("PRODUCTS_TTL", 5*time.Minute), "how long a fetched product list is reused; 0 refetches on every visit")
	fs.DurationVarP(&o.fetchTimeout, "fetch-timeout", "f", getDurationEnvOrDefault("FETCH_TIMEOUT", 10*time.Second), "timeout of a products API request")
	fs.StringVarP(&o.dataDir, "data-dir", "s", getEnvOrDefault("DATA_DIR", "./data"), "directory for carts and the products snapshot when no database is set")

	// parse the arguments passed to the server into registered variables
	return fs.Parse(args)
}

func (o *Options) RunAddr() string {
	return o.runAddr
}

func (o *Options) LogLevel() string {
	return o.logLevel
}

func (o *Options) LogConsole() bool {
	return o.logConsole
}

func (o *Options) DataBaseDSN() string {
	return o.dataBaseDSN
}

func (o *Options) ProductsAPIURL() string {
	return o.productsAPIURL
}

func (o *Options) ProductsLength() int {
	return o.productsLength
}

func (o *Options) ProductsTTL() time.Duration {
	return o.productsTTL
}

func (o *Options) FetchTimeout() time.Duration {
	return o.fetchTimeout
}

func (o *Options) DataDir() string {
	return o.dataDir
}

// getEnvOrDefault reads an environment variable or returns a default value if the variable is not set or is empty.
func getEnvOrDefault(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getIntEnvOrDefault(key string, defaultValue int) int {
	if v, err := strconv.Atoi(getEnvOrDefault(key, "")); err == nil {
		return v
	}
	return defaultValue
}

func getBoolEnvOrDefault(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(getEnvOrDefault(key, "")); err == nil {
		return v
	}
	return defaultValue
}

func getDurationEnvOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(getEnvOrDefault(key, "")); err == nil {
		return v
	}
	return defaultValue
}

// loadEnvFile loads environment variables from a .env file in the working directory
// or, when started from cmd/storefront, from the repository root.
func loadEnvFile() {
	cwd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}

	for _, envPath := range []string{
		filepath.Join(cwd, ".env"),
		filepath.Join(cwd, "..", "..", ".env"),
	} {
		if err := godotenv.Load(envPath); err == nil {
			log.Printf(".env file loaded from %s", envPath)
			return
		}
	}
	log.Printf("No .env file found, proceeding without it")
}
