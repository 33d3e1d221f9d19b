package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/dnldd/marketgraph/shared"
	"github.com/joho/godotenv"
)

const (
	// defaultStart is the default analysis window start date.
	defaultStart = "2003-01-01"
	// defaultEnd is the default analysis window end date.
	defaultEnd = "2008-01-01"
	// defaultOutput is the default rendered graph filepath.
	defaultOutput = "marketgraph.svg"
	// defaultEdgeCutoff is the default minimum partial correlation magnitude
	// rendered as an edge.
	defaultEdgeCutoff = 0.02
)

// Config is the configuration struct for the service.
type Config struct {
	// Symbols represents the tracked instrument symbols. The default
	// universe is used when none are provided.
	Symbols []string
	// FMPAPIKey is the FMP service API Key.
	FMPAPIKey string
	// Start is the analysis window start date (YYYY-MM-DD).
	Start string
	// End is the analysis window end date (YYYY-MM-DD).
	End string
	// Output is the rendered graph output filepath.
	Output string
	// EdgeCutoff is the minimum partial correlation magnitude rendered as an edge.
	EdgeCutoff float64
	// Watch reruns the analysis on a daily schedule when set.
	Watch bool
	// DBEndpoint is the optional run storage endpoint.
	DBEndpoint string
	// DBUser is the database user.
	DBUser string
	// DBPass is the database user pass.
	DBPass string

	registeredFlags map[string]bool
}

// Window parses the configured analysis window.
func (cfg *Config) Window() (time.Time, time.Time, error) {
	start, err := time.Parse(shared.DateLayout, cfg.Start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parsing window start: %w", err)
	}

	end, err := time.Parse(shared.DateLayout, cfg.End)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("parsing window end: %w", err)
	}

	return start, end, nil
}

// Validate asserts the config has sane inputs.
func (cfg *Config) Validate() error {
	var errs error

	if cfg.FMPAPIKey == "" {
		errs = errors.Join(errs, fmt.Errorf("fmp api key cannot be an empty string"))
	}
	if cfg.Output == "" {
		errs = errors.Join(errs, fmt.Errorf("output path cannot be an empty string"))
	}
	if cfg.EdgeCutoff < 0 {
		errs = errors.Join(errs, fmt.Errorf("edge cutoff cannot be negative"))
	}

	start, end, err := cfg.Window()
	switch {
	case err != nil:
		errs = errors.Join(errs, err)
	case !start.Before(end):
		errs = errors.Join(errs, fmt.Errorf("analysis window start must precede its end"))
	}

	return errs
}

// registerFlag registers command line arguments of any type and tracks them to avoid reregistration.
func (cfg *Config) registerFlag(name string, value interface{}, usage string) error {
	if cfg.registeredFlags == nil {
		cfg.registeredFlags = make(map[string]bool)
	}

	if cfg.registeredFlags[name] {
		return nil
	}

	cfg.registeredFlags[name] = true

	defValue := os.Getenv(name)
	val := reflect.ValueOf(value)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return fmt.Errorf("%s: value must be a non-nil pointer", name)
	}

	switch val.Elem().Kind() {
	case reflect.String:
		flag.StringVar(value.(*string), name, defValue, usage)
	case reflect.Bool:
		var def bool
		if defValue != "" {
			def, _ = strconv.ParseBool(defValue)
		}
		flag.BoolVar(value.(*bool), name, def, usage)
	case reflect.Int:
		var def int
		if defValue != "" {
			def, _ = strconv.Atoi(defValue)
		}
		flag.IntVar(value.(*int), name, def, usage)
	case reflect.Float64:
		var def float64
		if defValue != "" {
			def, _ = strconv.ParseFloat(defValue, 64)
		}
		flag.Float64Var(value.(*float64), name, def, usage)
	case reflect.Slice:
		// Only handle []string
		if val.Elem().Type().Elem().Kind() == reflect.String {
			var def []string
			if defValue != "" {
				def = strings.Split(defValue, ",")
			}
			flag.Func(name, usage, func(s string) error {
				*value.(*[]string) = strings.Split(s, ",")
				return nil
			})
			// Set default if not provided via flag
			if len(def) > 0 {
				*value.(*[]string) = def
			}
		} else {
			return fmt.Errorf("%s: unsupported slice type", name)
		}
	default:
		return fmt.Errorf("%s: unsupported type", name)
	}

	return nil
}

// loadConfig loads the configuration from environment variables and command line flags.
func loadConfig(cfg *Config, path string) error {
	if path == "" {
		path = ".env"
	}

	// Check if the expected .env file exists before loading it.
	_, err := os.Stat(path)
	if err == nil {
		err := godotenv.Load(path)
		if err != nil {
			return fmt.Errorf("loading .env file: %w", err)
		}
	}

	// Register command line arguments using loaded environment variables as defaults.
	err = cfg.registerFlag("symbols", &cfg.Symbols, "the tracked instrument symbols")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("fmpapikey", &cfg.FMPAPIKey, "the FMP api key")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("start", &cfg.Start, "the analysis window start date")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("end", &cfg.End, "the analysis window end date")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("output", &cfg.Output, "the rendered graph filepath")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("edgecutoff", &cfg.EdgeCutoff, "the minimum rendered edge weight")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("watch", &cfg.Watch, "rerun the analysis on a daily schedule")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("dbendpoint", &cfg.DBEndpoint, "the run storage endpoint")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("dbuser", &cfg.DBUser, "the database user")
	if err != nil {
		return err
	}
	err = cfg.registerFlag("dbpass", &cfg.DBPass, "the database user pass")
	if err != nil {
		return err
	}

	// Parse command-line flags.
	flag.Parse()

	if cfg.Start == "" {
		cfg.Start = defaultStart
	}
	if cfg.End == "" {
		cfg.End = defaultEnd
	}
	if cfg.Output == "" {
		cfg.Output = defaultOutput
	}
	if cfg.EdgeCutoff == 0 {
		cfg.EdgeCutoff = defaultEdgeCutoff
	}

	return cfg.Validate()
}
