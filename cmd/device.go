package cmd

import (
	"fmt"
	"strconv"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/moyoez/castanet/provision"
	"github.com/moyoez/castanet/setup"
	"github.com/moyoez/castanet/types"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "print the device's eureka_info",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := dialDevice()
		if err != nil {
			return err
		}
		info, err := client.EurekaInfo(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd, info)
	},
}

var networksCmd = &cobra.Command{
	Use:   "networks",
	Short: "list the networks saved on the device",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := dialDevice()
		if err != nil {
			return err
		}
		networks, err := client.ConfiguredNetworks(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd, networks)
	},
}

var forgetCmd = &cobra.Command{
	Use:   "forget <wpa_id>",
	Short: "remove a saved network from the device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("%w: wpa_id must be a number, got %q", provision.ErrInvalidOptions, args[0])
		}
		client, err := dialDevice()
		if err != nil {
			return err
		}
		resp, err := client.ForgetWifi(cmd.Context(), types.ForgetCommand{WpaID: id})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Forgot network %d. Response: %d\n", id, resp.StatusCode)
		return nil
	},
}

var renameCmd = &cobra.Command{
	Use:   "rename <name>",
	Short: "rename the device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := dialDevice()
		if err != nil {
			return err
		}
		resp, err := client.SetEurekaInfo(cmd.Context(), types.NewRenameCommand(args[0]))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Renamed Chromecast to '%s'. Response: %d\n", args[0], resp.StatusCode)
		return nil
	},
}

func dialDevice() (*setup.Client, error) {
	if config.Device == "" {
		return nil, fmt.Errorf("%w: device address is required", provision.ErrInvalidOptions)
	}
	return setup.Dial(config.Device, config.Port, config.Insecure, config.Timeout)
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func init() {
	rootCmd.AddCommand(infoCmd, networksCmd, forgetCmd, renameCmd)
}
