package types

// ConnectCommand is the body of /setup/connect_wifi. Field order is the wire order.
type ConnectCommand struct {
	SSID      string `json:"ssid"`
	WpaAuth   int    `json:"wpa_auth"`
	WpaCipher int    `json:"wpa_cipher"`
	EncPasswd string `json:"enc_passwd"`
}

// SaveCommand is the body of /setup/save_wifi.
type SaveCommand struct {
	KeepHotspotUntilConnected bool `json:"keep_hotspot_until_connected"`
}

// RenameCommand is the body of /setup/set_eureka_info.
type RenameCommand struct {
	Name  string `json:"name"`
	OptIn OptIn  `json:"opt_in"`
}

// ForgetCommand is the body of /setup/forget_wifi.
type ForgetCommand struct {
	WpaID int `json:"wpa_id"`
}

// NewSaveCommand returns the only save command the device is ever sent.
func NewSaveCommand() SaveCommand {
	return SaveCommand{KeepHotspotUntilConnected: true}
}

// NewRenameCommand builds a rename that opts out of crash reports, stats and opencast.
func NewRenameCommand(name string) RenameCommand {
	return RenameCommand{Name: name, OptIn: OptIn{}}
}
