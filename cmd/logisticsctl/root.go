package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"google.golang.org/grpc"

	"github.com/vladislavdragonenkov/logistics/internal/domain"
	"github.com/vladislavdragonenkov/logistics/internal/version"
)

const (
	envPrefix      = "LOGISTICSCTL"
	configName     = ".logisticsctl"
	defaultAddr    = "localhost:50051"
	defaultTimeout = 10 * time.Second
)

// dialFunc открывает соединение с сервисом; второй результат закрывает его.
type dialFunc func(addr string) (grpc.ClientConnInterface, func() error, error)

// cli хранит состояние одного запуска: настройки и лениво открытое соединение.
type cli struct {
	v          *viper.Viper
	dial       dialFunc
	configFile string

	conn      grpc.ClientConnInterface
	closeConn func() error
}

func newRootCmd(dial dialFunc) *cobra.Command {
	c := &cli{v: viper.New(), dial: dial}

	root := &cobra.Command{
		Use:   "logisticsctl",
		Short: "Command line client for the logistics records service",
		Long: `logisticsctl manages orders, containers and goods stored by logistics-service.

Settings are resolved from flags, then LOGISTICSCTL_* environment variables,
then ~/.logisticsctl.yaml.`,
		SilenceUsage:      true,
		PersistentPreRunE: func(*cobra.Command, []string) error { return c.loadConfig() },
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return c.close()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.configFile, "config", "", "config file (default: ~/.logisticsctl.yaml)")
	flags.String("addr", defaultAddr, "gRPC address of logistics-service")
	flags.Duration("timeout", defaultTimeout, "timeout of a single request")
	_ = c.v.BindPFlag("addr", flags.Lookup("addr"))
	_ = c.v.BindPFlag("timeout", flags.Lookup("timeout"))

	root.AddCommand(
		newRecordCmd[domain.Order](c, domain.KindOrder),
		newRecordCmd[domain.Container](c, domain.KindContainer),
		newRecordCmd[domain.Good](c, domain.KindGood),
		newWatchCmd(c),
		newVersionCmd(),
	)
	return root
}

func (c *cli) loadConfig() error {
	c.v.SetEnvPrefix(envPrefix)
	c.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	c.v.AutomaticEnv()

	if c.configFile != "" {
		c.v.SetConfigFile(c.configFile)
	} else {
		c.v.SetConfigName(configName)
		c.v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			c.v.AddConfigPath(home)
		}
	}

	if err := c.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if c.configFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

func (c *cli) connection() (grpc.ClientConnInterface, error) {
	if c.conn != nil {
		return c.conn, nil
	}
	addr := c.v.GetString("addr")
	if addr == "" {
		return nil, errors.New("service address is empty")
	}
	conn, closeConn, err := c.dial(addr)
	if err != nil {
		return nil, err
	}
	c.conn, c.closeConn = conn, closeConn
	return conn, nil
}

func (c *cli) timeout() time.Duration {
	if d := c.v.GetDuration("timeout"); d > 0 {
		return d
	}
	return defaultTimeout
}

func (c *cli) close() error {
	if c.closeConn == nil {
		return nil
	}
	err := c.closeConn()
	c.conn, c.closeConn = nil, nil
	return err
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "logisticsctl "+version.String())
		},
	}
}
