package main

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/perontips/backend/internal/logger"
)

const (
	defaultListenAddr     = "localhost:5000"
	defaultLoggingLevel   = logger.LevelInfo
	defaultEnvironment    = logger.EnvProduction
	defaultGatewayBaseURL = "https://sandbox.safaricom.co.ke"

	defaultAmount           = "20"
	defaultAccountReference = "PeronTips"
	defaultTransactionDesc  = "Betting Prediction"
	defaultAccessURL        = "https://perontips-frontend.vercel.app/"

	// How long an accepted payment may stay pending before the reconciler
	// fails it as timed out
	defaultPendingTimeout = 3 * time.Minute
)

type Config struct {
	// Default logging level
	LogLevel string

	// Address the backend will listen on
	ListenAddr string

	// Environment (dev, prod)
	Environment string

	// Database to connect to
	DatabaseDSN string

	// Daraja gateway address, sandbox by default, production selectable
	GatewayBaseURL string

	// OAuth client credentials for the gateway token endpoint
	ConsumerKey    string
	ConsumerSecret string

	// Paybill shortcode and passkey used to sign push requests
	Shortcode string
	Passkey   string

	// URL the gateway delivers settlement callbacks to
	CallbackURL string

	// Frontend URL returned to clients after a push request is accepted
	AccessURL string

	// Fixed transaction options
	Amount           string
	AccountReference string
	TransactionDesc  string

	// Pending payment lifetime before the reconciler times it out
	PendingTimeout time.Duration
}

func NewConfig() *Config {
	return &Config{
		LogLevel:         defaultLoggingLevel,
		ListenAddr:       defaultListenAddr,
		Environment:      defaultEnvironment,
		GatewayBaseURL:   defaultGatewayBaseURL,
		Amount:           defaultAmount,
		AccountReference: defaultAccountReference,
		TransactionDesc:  defaultTransactionDesc,
		AccessURL:        defaultAccessURL,
		PendingTimeout:   defaultPendingTimeout,
	}
}

// Load variable from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		c.LoadEnv(func(key string) string {
			return envMap[key]
		})
		return nil
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) {
		return func(value string) {
			if value != "" {
				*o = value
			}
		}
	}

	// PORT holds the bare port number, keep the original contract
	setPort := func(value string) {
		if value != "" {
			c.ListenAddr = ":" + value
		}
	}

	setDuration := func(o *time.Duration) func(value string) {
		return func(value string) {
			if value == "" {
				return
			}
			if d, err := time.ParseDuration(value); err == nil {
				*o = d
			}
		}
	}

	envMap := map[string]func(string){
		"PORT":               setPort,
		"DATABASE_URI":       setString(&c.DatabaseDSN),
		"LOG_LEVEL":          setString(&c.LogLevel),
		"ENVIRONMENT":        setString(&c.Environment),
		"GATEWAY_BASE_URL":   setString(&c.GatewayBaseURL),
		"CONSUMER_KEY":       setString(&c.ConsumerKey),
		"CONSUMER_SECRET":    setString(&c.ConsumerSecret),
		"BUSINESS_SHORTCODE": setString(&c.Shortcode),
		"PASSKEY":            setString(&c.Passkey),
		"CALLBACK_URL":       setString(&c.CallbackURL),
		"ACCESS_URL":         setString(&c.AccessURL),
		"PAYMENT_AMOUNT":     setString(&c.Amount),
		"ACCOUNT_REFERENCE":  setString(&c.AccountReference),
		"TRANSACTION_DESC":   setString(&c.TransactionDesc),
		"PENDING_TIMEOUT":    setDuration(&c.PendingTimeout),
	}

	for key, parseFn := range envMap {
		parseFn(getenv(key))
	}
}

// ParseFlags parses command line flags
// Gateway secrets are environment-only on purpose, they don't belong in
// process listings
func (c *Config) ParseFlags(args []string) error {
	fs := pflag.NewFlagSet("perontips", pflag.ContinueOnError)

	fs.StringVarP(&c.ListenAddr, "address", "a", c.ListenAddr, "Server listen address")
	fs.StringVarP(&c.DatabaseDSN, "database", "d", c.DatabaseDSN, "Database connection string")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")
	fs.StringVarP(&c.GatewayBaseURL, "gateway", "g", c.GatewayBaseURL, "Payment gateway base URL")
	fs.DurationVarP(&c.PendingTimeout, "pending-timeout", "t", c.PendingTimeout, "Pending payment lifetime before timing out")

	return fs.Parse(args)
}
