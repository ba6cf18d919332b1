package types

// EurekaInfo is the device's self-reported identity payload from /setup/eureka_info.
// Only PublicKey is required for provisioning; the rest is informational.
type EurekaInfo struct {
	Name              string `json:"name"`
	PublicKey         string `json:"public_key"`
	SsdpUdn           string `json:"ssdp_udn,omitempty"`
	BuildVersion      string `json:"build_version,omitempty"`
	CastBuildRevision string `json:"cast_build_revision,omitempty"`
	MacAddress        string `json:"mac_address,omitempty"`
	IPAddress         string `json:"ip_address,omitempty"`
	SSID              string `json:"ssid,omitempty"`
	Connected         bool   `json:"connected"`
	SetupState        int    `json:"setup_state,omitempty"`
	HotspotBSSID      string `json:"hotspot_bssid,omitempty"`
	Locale            string `json:"locale,omitempty"`
	TimeZone          string `json:"timezone,omitempty"`
}

// OptIn controls the telemetry toggles sent with a rename.
type OptIn struct {
	Crash    bool `json:"crash"`
	Stats    bool `json:"stats"`
	Opencast bool `json:"opencast"`
}
