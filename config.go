package atsreport

import (
	"io/ioutil"
	"os"
	"time"

	"github.com/hnakamur/errstack"
	"github.com/prometheus/common/version"
	"gopkg.in/alecthomas/kingpin.v2"
	"gopkg.in/yaml.v2"
)

// Collector type
const (
	CollectorZabbix   = "zabbix"
	CollectorGraphite = "graphite"
)

// Default option values
const (
	DefaultHost           = "localhost"
	DefaultPort           = 80
	DefaultZabbixServer   = "localhost"
	DefaultZabbixPort     = 10051
	DefaultGraphiteServer = "localhost"
	DefaultGraphitePort   = 2003
	DefaultGraphitePrefix = "servers"
	DefaultTimeout        = time.Second
)

// Options is the run configuration built from the command line and an
// optional YAML file.
type Options struct {
	Host           string        `yaml:"Host"`
	Port           int           `yaml:"Port"`
	ZabbixServer   string        `yaml:"ZabbixServer"`
	ZabbixPort     int           `yaml:"ZabbixPort"`
	Collector      string        `yaml:"Collector"`
	GraphiteServer string        `yaml:"GraphiteServer"`
	GraphitePort   int           `yaml:"GraphitePort"`
	GraphitePrefix string        `yaml:"GraphitePrefix"`
	Timeout        time.Duration `yaml:"Timeout"`

	Dry     bool `yaml:"-"`
	Debug   bool `yaml:"-"`
	Verbose bool `yaml:"-"`

	ConfigFile string `yaml:"-"`
}

// DefaultOptions returns options with every default applied.
func DefaultOptions() Options {
	return Options{
		Host:           DefaultHost,
		Port:           DefaultPort,
		ZabbixServer:   DefaultZabbixServer,
		ZabbixPort:     DefaultZabbixPort,
		Collector:      CollectorZabbix,
		GraphiteServer: DefaultGraphiteServer,
		GraphitePort:   DefaultGraphitePort,
		GraphitePrefix: DefaultGraphitePrefix,
		Timeout:        DefaultTimeout,
	}
}

// ConfigLoad is loading yaml config over the defaults
func ConfigLoad(file string) (Options, error) {
	opts := DefaultOptions()
	fd, err := os.Open(file)
	if err != nil {
		return opts, errstack.WithLV(errstack.Errorf("failed to open config file=%s err=%+v", file, err))
	}
	defer fd.Close()

	buf, err := ioutil.ReadAll(fd)
	if err != nil {
		return opts, errstack.WithLV(errstack.Errorf("failed to read config file=%s err=%+v", file, err))
	}
	if err := yaml.Unmarshal(buf, &opts); err != nil {
		return opts, errstack.WithLV(errstack.Errorf("failed to parse config file=%s err=%+v", file, err))
	}
	if !isValidCollector(opts.Collector) {
		return opts, errstack.WithLV(errstack.Errorf("collector %s is unsupported", opts.Collector))
	}
	opts.ConfigFile = file
	return opts, nil
}

// ParseArgs parses the command line. Flags given explicitly take precedence
// over the config file, which takes precedence over the defaults.
func ParseArgs(args []string) (*Options, error) {
	var cli Options

	app := kingpin.New("atsreport", "Get TrafficServer statistics, format them and send the result to Zabbix")
	app.Version(version.Print("atsreport"))
	app.HelpFlag.Short('h')

	app.Flag("config", "YAML file holding default values for the options below").
		Short('c').PlaceHolder("FILE").StringVar(&cli.ConfigFile)
	app.Flag("dry", "Performs TrafficServer API calls but do not send anything to the collector").
		Short('d').BoolVar(&cli.Dry)
	app.Flag("debug", "Enable debug mode. Items are sent one after the other, displaying result for each one").
		Short('D').BoolVar(&cli.Debug)
	app.Flag("verbose", "When used with debug option, display the value of each item").
		Short('v').BoolVar(&cli.Verbose)
	app.Flag("timeout", "Timeout of the TrafficServer request and of each collector exchange, default is 1s").
		DurationVar(&cli.Timeout)

	app.Flag("host", "Apache TrafficServer hostname, default is localhost").
		Short('H').PlaceHolder("HOST").StringVar(&cli.Host)
	app.Flag("port", "Apache TrafficServer port, default is 80").
		Short('p').PlaceHolder("PORT").IntVar(&cli.Port)

	app.Flag("collector", "Collector type, zabbix or graphite").
		EnumVar(&cli.Collector, CollectorZabbix, CollectorGraphite)
	app.Flag("zabbix-server", "The hostname of Zabbix server or proxy, default is localhost").
		PlaceHolder("HOST").StringVar(&cli.ZabbixServer)
	app.Flag("zabbix-port", "The port on which the Zabbix server or proxy is running, default is 10051").
		PlaceHolder("PORT").IntVar(&cli.ZabbixPort)
	app.Flag("graphite-server", "The hostname of the carbon receiver, default is localhost").
		PlaceHolder("HOST").StringVar(&cli.GraphiteServer)
	app.Flag("graphite-port", "The port of the carbon receiver, default is 2003").
		PlaceHolder("PORT").IntVar(&cli.GraphitePort)
	app.Flag("graphite-prefix", "Prefix of every graphite metric name, default is servers").
		StringVar(&cli.GraphitePrefix)

	if _, err := app.Parse(args); err != nil {
		return nil, err
	}

	opts := DefaultOptions()
	if cli.ConfigFile != "" {
		var err error
		opts, err = ConfigLoad(cli.ConfigFile)
		if err != nil {
			return nil, err
		}
	}
	opts.merge(&cli)
	return &opts, nil
}

// merge overwrites o with every value set in cli.
func (o *Options) merge(cli *Options) {
	if cli.Host != "" {
		o.Host = cli.Host
	}
	if cli.Port != 0 {
		o.Port = cli.Port
	}
	if cli.ZabbixServer != "" {
		o.ZabbixServer = cli.ZabbixServer
	}
	if cli.ZabbixPort != 0 {
		o.ZabbixPort = cli.ZabbixPort
	}
	if cli.Collector != "" {
		o.Collector = cli.Collector
	}
	if cli.GraphiteServer != "" {
		o.GraphiteServer = cli.GraphiteServer
	}
	if cli.GraphitePort != 0 {
		o.GraphitePort = cli.GraphitePort
	}
	if cli.GraphitePrefix != "" {
		o.GraphitePrefix = cli.GraphitePrefix
	}
	if cli.Timeout != 0 {
		o.Timeout = cli.Timeout
	}
	o.Dry = cli.Dry
	o.Debug = cli.Debug
	o.Verbose = cli.Verbose
}

func isValidCollector(str string) bool {
	if str == CollectorZabbix || str == CollectorGraphite {
		return true
	}
	return false
}
