// Package config parses and validates the server command line.
//
// Usage:
//
//	server <ip> <port> [-c max-clients] [-r max-rooms] [options]
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// Defaults for the optional limits.
const (
	DefaultMaxClients = 10
	DefaultMaxRooms   = 5
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ErrUsage is returned when the arguments cannot be parsed at all; the
// caller prints usage and exits non-zero.
var ErrUsage = errors.New("config: bad usage")

// Config is the fully parsed and validated server configuration.
type Config struct {
	IP   string `validate:"required,ip"`
	Port int    `validate:"required,min=1,max=65535"`

	MaxClients int `validate:"min=1,max=1000"`
	MaxRooms   int `validate:"min=1,max=500"`

	// AdminAddr hosts the HTTP admin API and the WebSocket endpoint.
	// Empty disables it.
	AdminAddr string `validate:"omitempty,hostname_port"`

	LogFile     string
	JournalFile string
	JournalDB   string
	RedisAddr   string `validate:"omitempty,hostname_port"`
	OtelAddr    string `validate:"omitempty,hostname_port"`
}

// Addr returns the TCP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.IP, c.Port)
}

// Usage writes the command-line help.
func Usage(w io.Writer, program string) {
	fmt.Fprintf(w, "Usage: %s <ip> <port> [options]\n", program)
	fmt.Fprintln(w, "  -c int     maximum concurrent clients (default 10)")
	fmt.Fprintln(w, "  -r int     maximum concurrent rooms (default 5)")
	fmt.Fprintln(w, "  -admin addr    HTTP admin API and WebSocket listen address")
	fmt.Fprintln(w, "  -log-file path     JSON log file")
	fmt.Fprintln(w, "  -journal-file path state event journal, JSON lines")
	fmt.Fprintln(w, "  -journal-db path   state event journal, SQLite database")
	fmt.Fprintln(w, "  -redis addr    publish state events to this Redis server")
	fmt.Fprintln(w, "  -otel addr     OTLP gRPC collector for traces, metrics and logs")
}

// Parse builds a Config from the argument list (without the program name).
func Parse(args []string) (*Config, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("%w: ip and port are required", ErrUsage)
	}

	cfg := &Config{
		IP:         args[0],
		MaxClients: DefaultMaxClients,
		MaxRooms:   DefaultMaxRooms,
	}
	port, err := strconv.Atoi(args[1])
	if err != nil {
		return nil, fmt.Errorf("%w: invalid port %q", ErrUsage, args[1])
	}
	cfg.Port = port

	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.IntVar(&cfg.MaxClients, "c", DefaultMaxClients, "maximum concurrent clients")
	fs.IntVar(&cfg.MaxRooms, "r", DefaultMaxRooms, "maximum concurrent rooms")
	fs.StringVar(&cfg.AdminAddr, "admin", "", "HTTP admin listen address")
	fs.StringVar(&cfg.LogFile, "log-file", "", "JSON log file")
	fs.StringVar(&cfg.JournalFile, "journal-file", "", "state event journal file")
	fs.StringVar(&cfg.JournalDB, "journal-db", "", "state event journal SQLite database")
	fs.StringVar(&cfg.RedisAddr, "redis", "", "Redis address for state events")
	fs.StringVar(&cfg.OtelAddr, "otel", "", "OTLP gRPC collector address")
	if err := fs.Parse(args[2:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("%w: unexpected argument %q", ErrUsage, fs.Arg(0))
	}

	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			f := verrs[0]
			return nil, fmt.Errorf("%w: invalid %s", ErrUsage, f.StructField())
		}
		return nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	return cfg, nil
}
