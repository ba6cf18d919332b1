package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/moyoez/castanet/provision"
	"github.com/moyoez/castanet/tool"
)

var (
	cfgFile string
	v       = tool.NewViper()
	config  tool.Config
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "castanet",
	Short: "provision a Chromecast onto a WiFi network",
	Long: `castanet talks to the local setup API of a Chromecast in setup mode,
encrypts the WiFi password with the device's public key and asks the
device to join and remember the network.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		config, err = tool.LoadConfig(v, cfgFile)
		if err != nil {
			return err
		}
		tool.SetLogMode(config.Log)
		return tool.InitLogger(config.LogDir)
	},
}

// Execute adds all child commands to the root command and runs it.
// SIGINT and SIGTERM cancel the running command. Any error exits with status 1.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		reportError(os.Stderr, err)
		os.Exit(1)
	}
}

// reportError writes the error that ends the process. It reaches w even
// when the log mode hides errors.
func reportError(w io.Writer, err error) {
	if errors.Is(err, provision.ErrNetworkNotFound) {
		fmt.Fprintf(w, "Error: Could not find WiFi network '%s'\n", config.SSID)
		return
	}
	if tool.DefaultLogger.GetLevel() > log.ErrorLevel {
		fmt.Fprintf(w, "Error: %v\n", err)
		return
	}
	tool.DefaultLogger.Error(err)
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "YAML config file")
	pf.String("log", "prod", "log mode: dev|prod|none")
	pf.String("log-dir", "", "also write logs to a dated file in this directory")
	pf.StringP("device", "d", "", "device IP address or host")
	pf.Int("port", tool.DefaultSetupPort, "device setup port")
	pf.Bool("insecure", false, "skip TLS verification (needed for the device's self-signed certificate)")
	pf.Duration("timeout", tool.DefaultTimeout, "per-request HTTP timeout")

	bindFlags(v, pf, map[string]string{
		"log":      "log",
		"log_dir":  "log-dir",
		"device":   "device",
		"port":     "port",
		"insecure": "insecure",
		"timeout":  "timeout",
	})
}

func bindFlags(vp *viper.Viper, flags *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		cobra.CheckErr(vp.BindPFlag(key, flags.Lookup(name)))
	}
}
