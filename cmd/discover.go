package cmd

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/moyoez/castanet/discover"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "list cast devices on the local network",
	Long: `discover browses mDNS for _googlecast._tcp services. A device in setup
mode is usually reached on its own hotspot at 192.168.255.249.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		wait, err := cmd.Flags().GetDuration("wait")
		if err != nil {
			return err
		}
		devices, err := discover.Browse(cmd.Context(), discover.Config{Timeout: wait})
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(devices) == 0 {
			fmt.Fprintln(out, "No cast devices found")
			return nil
		}
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tADDRESS\tMODEL\tID")
		for _, d := range devices {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.Name, deviceAddress(d), d.Model, d.ID)
		}
		return w.Flush()
	},
}

func deviceAddress(d discover.Device) string {
	if len(d.Addresses) == 0 {
		return ""
	}
	addr := d.Addresses[0]
	if d.Port > 0 {
		return net.JoinHostPort(addr, strconv.Itoa(d.Port))
	}
	if strings.Contains(addr, ":") {
		return "[" + addr + "]"
	}
	return addr
}

func init() {
	rootCmd.AddCommand(discoverCmd)
	discoverCmd.Flags().Duration("wait", discover.DefaultTimeout, "how long to listen for announcements")
}
