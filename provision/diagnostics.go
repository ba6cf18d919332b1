package provision

import (
	"fmt"
	"io"
)

const diagnosticsTemplate = `
Additional commands you can run:
- To see device info:
  curl --insecure --tlsv1.2 --tls-max 1.2 https://%[1]s/setup/eureka_info | jq .
- To list known networks:
  curl --insecure --tlsv1.2 --tls-max 1.2 https://%[1]s/setup/configured_networks | jq .
- To forget a network:
  curl --insecure --tlsv1.2 --tls-max 1.2 -H "content-type: application/json" -d '{"wpa_id": 0}' https://%[1]s/setup/forget_wifi
- To set name and opt out of things:
  curl --insecure --tlsv1.2 --tls-max 1.2 -H "content-type: application/json" -d '{"name": "NovakCast5000", "opt_in": {"crash": false, "stats": false, "opencast": false}}' https://%[1]s/setup/set_eureka_info
`

// Diagnostics prints follow-up curl commands for poking at the device by hand.
// hostPort is the device address including the setup port.
func Diagnostics(w io.Writer, hostPort string) {
	fmt.Fprintf(w, diagnosticsTemplate, hostPort)
}
