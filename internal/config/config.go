// Package config handles the parsing and validation of application configuration
// from command-line arguments and environment variables.
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/jessevdk/go-flags"
	"github.com/woozymasta/autojoin/internal/logger"
	"github.com/woozymasta/autojoin/internal/vars"
)

// ErrInvalidAddress is returned for server addresses that are not IPv4 "ip:port" pairs.
var ErrInvalidAddress = errors.New("invalid server address")

// ErrNoServers is returned when no server address is configured.
var ErrNoServers = errors.New("no server addresses configured")

// Mode selects what the application does after startup.
type Mode int

const (
	// ModeJoin polls until a server qualifies, then joins it.
	ModeJoin Mode = iota

	// ModeShow queries once and prints the ranked list.
	ModeShow

	// ModeInspect prints the full A2S_INFO of every server.
	ModeInspect
)

func (m Mode) String() string {
	switch m {
	case ModeShow:
		return "show"
	case ModeInspect:
		return "inspect"
	default:
		return "join"
	}
}

// Config represents the complete application flags configuration.
type Config struct {
	// betteralign:ignore

	Args struct {
		Address string `positional-arg-name:"ADDRESS" description:"Poll only this server (ip:port) instead of the server list"`
	} `positional-args:"yes"`

	Poll    Poll          `group:"Poll Options" env-namespace:"AUTOJOIN"`
	Query   Query         `group:"Query Options" namespace:"query" env-namespace:"AUTOJOIN_QUERY"`
	Join    Join          `group:"Join Options" namespace:"join" env-namespace:"AUTOJOIN_JOIN"`
	Probe   Probe         `group:"Probe Options" namespace:"probe" env-namespace:"AUTOJOIN_PROBE"`
	GeoIP   GeoIP         `group:"GeoIP Options" namespace:"geoip" env-namespace:"AUTOJOIN_GEOIP"`
	HTTP    HTTP          `group:"HTTP Options" namespace:"http" env-namespace:"AUTOJOIN_HTTP"`
	Logger  logger.Config `group:"Logger Options" namespace:"log" env-namespace:"AUTOJOIN_LOG"`
	Show    bool          `short:"s" long:"show" description:"Query all servers once, print the ranked list and exit"`
	Inspect bool          `short:"i" long:"inspect" description:"Print the full A2S_INFO of every server as JSON and exit"`
	Version bool          `short:"v" long:"version" description:"Print version and build info"`
}

// Poll holds the server list and poll loop settings.
type Poll struct {
	// betteralign:ignore

	Servers  []string      `short:"S" long:"server" env:"SERVERS" env-delim:"," description:"Server address ip:port, repeatable" default:"72.5.195.76:27015" default:"74.91.125.129:27015" default:"74.201.57.120:27015" default:"74.91.114.102:27015" default:"104.153.107.122:27015" default:"104.153.107.121:27015" default:"104.153.107.120:27015"`
	Interval time.Duration `long:"interval" env:"INTERVAL" description:"Pause between poll cycles" default:"1s"`
	Workers  int           `long:"workers" env:"WORKERS" description:"Servers queried concurrently" default:"8"`
}

// Query holds Source Query protocol configuration.
type Query struct {
	// betteralign:ignore

	Timeout    time.Duration `long:"timeout" env:"TIMEOUT" description:"Query timeout" default:"1s"`
	BufferSize uint16        `long:"buffer-size" env:"BUFFER_SIZE" description:"Response body buffer size" default:"1400"`
	Bind       string        `long:"bind" env:"BIND" description:"Local IPv4 address to send queries from"`
	Rate       float64       `long:"rate" env:"RATE" description:"Max queries per second, 0 is unlimited" default:"0"`
	Burst      int           `long:"burst" env:"BURST" description:"Query burst size when rate is set" default:"8"`
}

// Join holds the admission policy and launch settings.
type Join struct {
	// betteralign:ignore

	Threshold  uint8         `short:"t" long:"threshold" env:"THRESHOLD" description:"Join when human players exceed this count" default:"6"`
	LatencyCap time.Duration `long:"latency-cap" env:"LATENCY_CAP" description:"Join only below this latency, 0 disables" default:"50ms"`
	URI        string        `long:"uri" env:"URI" description:"Launch URI prefix, the server address is appended" default:"steam://rungame/730/76561202255233023/+connect%20"`
	Opener     []string      `long:"opener" env:"OPENER" env-delim:" " description:"Command opening the launch URI, repeat for each argument (default: platform URI handler)"`
}

// Probe holds the latency measurement configuration.
type Probe struct {
	// betteralign:ignore

	Method  string        `long:"method" env:"METHOD" description:"Latency source" choice:"query" choice:"ping" default:"query"`
	Command string        `long:"command" env:"COMMAND" description:"Ping command for the ping method" default:"ping"`
	Timeout time.Duration `long:"timeout" env:"TIMEOUT" description:"Ping wait time" default:"1s"`
}

// GeoIP holds MaxMind GeoIP configuration.
type GeoIP struct {
	// betteralign:ignore

	Path     string        `short:"g" long:"path" env:"PATH" description:"Path to MMDB file, empty disables country lookup"`
	URL      string        `long:"url" env:"URL" description:"URL to download MMDB" default:"https://git.io/GeoLite2-Country.mmdb"`
	Interval time.Duration `long:"interval" env:"INTERVAL" description:"Update interval check" default:"24h"`
}

// HTTP holds the optional status server configuration.
type HTTP struct {
	// betteralign:ignore

	Address        string        `short:"l" long:"address" env:"LISTEN_ADDRESS" description:"Status server listen address, empty disables it"`
	RateLimitCount int           `long:"rate-count" env:"RATE_COUNT" description:"Requests allowed per IP within the window" default:"60"`
	RateLimitWin   time.Duration `long:"rate-window" env:"RATE_WINDOW" description:"Rate limit window" default:"1m"`
}

// Parse reads the configuration from flags and environment variables.
// It terminates the application if the configuration is invalid or if the help flag is invoked.
func Parse() *Config {
	cfg, err := parse(os.Args[1:])
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}

	if cfg.Version {
		vars.Print()
		os.Exit(0)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	return cfg
}

func parse(args []string) (*Config, error) {
	var cfg Config
	parser := flags.NewParser(&cfg, flags.Default)
	parser.NamespaceDelimiter = "-"

	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks option combinations and the server list.
func (c *Config) Validate() error {
	if c.Show && c.Inspect {
		return errors.New("flags `--show' and `--inspect' are mutually exclusive")
	}
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.Poll.Interval)
	}
	if c.Query.Timeout <= 0 {
		return fmt.Errorf("query timeout must be positive, got %s", c.Query.Timeout)
	}
	if _, err := c.Query.BindAddr(); err != nil {
		return err
	}

	_, err := c.Targets()
	return err
}

// Mode returns the selected run mode.
func (c *Config) Mode() Mode {
	switch {
	case c.Inspect:
		return ModeInspect
	case c.Show:
		return ModeShow
	default:
		return ModeJoin
	}
}

// BindAddr parses the local query address. The zero Addr means "any".
func (q Query) BindAddr() (netip.Addr, error) {
	if q.Bind == "" {
		return netip.Addr{}, nil
	}

	addr, err := netip.ParseAddr(q.Bind)
	if err != nil || !addr.Is4() {
		return netip.Addr{}, fmt.Errorf("invalid bind address %q: must be IPv4", q.Bind)
	}

	return addr, nil
}

// Targets returns the servers to poll: the positional address if given, otherwise the
// server list in its configured order with duplicates removed.
func (c *Config) Targets() ([]netip.AddrPort, error) {
	list := c.Poll.Servers
	if c.Args.Address != "" {
		list = []string{c.Args.Address}
	}

	return ParseAddresses(list)
}

// ParseAddresses parses IPv4 "ip:port" strings, keeping the first occurrence of duplicates.
func ParseAddresses(list []string) ([]netip.AddrPort, error) {
	seen := make(map[uint64]struct{}, len(list))
	out := make([]netip.AddrPort, 0, len(list))

	for _, s := range list {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}

		addr, err := netip.ParseAddrPort(s)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %w", ErrInvalidAddress, s, err)
		}
		if !addr.Addr().Is4() || addr.Port() == 0 {
			return nil, fmt.Errorf("%w %q: need IPv4 address and non-zero port", ErrInvalidAddress, s)
		}

		hash := xxhash.Sum64String(addr.String())
		if _, dup := seen[hash]; dup {
			continue
		}
		seen[hash] = struct{}{}
		out = append(out, addr)
	}

	if len(out) == 0 {
		return nil, ErrNoServers
	}

	return out, nil
}
