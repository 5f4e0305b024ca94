package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/kilianp07/pubsense/app"
	"github.com/kilianp07/pubsense/config"
	"github.com/kilianp07/pubsense/infra/logger"
)

var cfgPath string

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"debug-level":   "logging.level",
	"log-file":      "logging.file",
	"mqtt-host":     "mqtt.host",
	"mqtt-port":     "mqtt.port",
	"mqtt-topic":    "mqtt.topic",
	"mqtt-username": "mqtt.username",
	"mqtt-password": "mqtt.password",
	"metrics-dir":   "metrics.textfile_dir",
	"interval":      "cycle.interval_seconds",
}

var rootCmd = &cobra.Command{
	Use:           "pubsense",
	Short:         "Publish Sense HAT readings to MQTT and a Prometheus textfile",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (yaml or json)")
	addFlags(rootCmd.PersistentFlags())
}

func addFlags(f *pflag.FlagSet) {
	f.StringP("debug-level", "d", "INFO", "console log level: CRITICAL, ERROR, WARNING, INFO, DEBUG or NOTSET")
	f.StringP("log-file", "l", "", "file receiving every debug message (default $HOME/log/pub_sense.log)")
	f.String("mqtt-host", "", "MQTT broker host")
	f.Int("mqtt-port", 1883, "MQTT broker port")
	f.String("mqtt-topic", "sense-hat", "MQTT topic")
	f.String("mqtt-username", "", "MQTT username")
	f.String("mqtt-password", "", "MQTT password")
	f.String("metrics-dir", "/var/lib/prometheus/node-exporter", "folder receiving sense_hat.prom")
	f.Int("interval", 0, "seconds between readings, 0 reads once and exits")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

// overrides returns the configuration keys of the flags set on the command line.
func overrides(fs *pflag.FlagSet) (map[string]any, error) {
	out := make(map[string]any)
	for name, key := range flagKeys {
		fl := fs.Lookup(name)
		if fl == nil || !fl.Changed {
			continue
		}
		var (
			v   any
			err error
		)
		switch fl.Value.Type() {
		case "int":
			v, err = fs.GetInt(name)
		default:
			v = fl.Value.String()
		}
		if err != nil {
			return nil, err
		}
		out[key] = v
	}
	return out, nil
}

// setup loads the configuration and builds the root logger writing its
// console output to w.
func setup(cmd *cobra.Command, w io.Writer) (*config.Config, zerolog.Logger, io.Closer, error) {
	ov, err := overrides(cmd.Flags())
	if err != nil {
		return nil, zerolog.Nop(), nil, err
	}
	cfg, err := config.Load(cfgPath, ov)
	if err != nil {
		return nil, zerolog.Nop(), nil, fmt.Errorf("load config: %w", err)
	}
	root, closer, err := logger.Build(cfg.Logging, w)
	if err != nil {
		return nil, zerolog.Nop(), nil, fmt.Errorf("logger: %w", err)
	}
	return cfg, root, closer, nil
}

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, root, closer, err := setup(cmd, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()
	log := logger.New(root, "main")

	svc, err := app.New(cfg, root)
	if err != nil {
		log.Errorf("startup failed: %v", err)
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			log.Errorf("service close: %v", err)
		}
	}()
	return svc.Run(ctx)
}
