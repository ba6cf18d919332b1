package cmd

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/moyoez/castanet/emulator"
	"github.com/moyoez/castanet/tool"
)

var emulateCmd = &cobra.Command{
	Use:   "emulate",
	Short: "serve a fake setup API for testing",
	Long: `emulate runs an HTTPS server that answers like a Chromecast in setup
mode, with a self-signed certificate and a freshly generated RSA key.
Networks and the device name come from --fixture, or a built-in set.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		listen, err := cmd.Flags().GetString("listen")
		if err != nil {
			return err
		}
		fixturePath, err := cmd.Flags().GetString("fixture")
		if err != nil {
			return err
		}
		fixture := emulator.DefaultFixture()
		if fixturePath != "" {
			if fixture, err = emulator.LoadFixture(fixturePath); err != nil {
				return err
			}
		}
		srv, err := emulator.New(fixture)
		if err != nil {
			return err
		}

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start(listen) }()

		select {
		case err := <-errCh:
			return err
		case <-cmd.Context().Done():
		}
		tool.DefaultLogger.Info("Shutting down emulator")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Stop(ctx); err != nil {
			return err
		}
		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(emulateCmd)
	emulateCmd.Flags().String("listen", "127.0.0.1:8443", "address to serve on")
	emulateCmd.Flags().String("fixture", "", "YAML fixture with the device name and networks")
}
