package panel

import "regexp"

var (
	macPattern      = regexp.MustCompile(`(?i)MAC=([0-9A-F:]+)`)
	firmwarePattern = regexp.MustCompile(`VERSION=@Version\s+([\d.]+[A-Za-z_\d]*)`)
)

// BannerInfo is what the identification line tells about the device
type BannerInfo struct {
	Raw      string `json:"raw,omitempty"`
	MAC      string `json:"mac,omitempty"`
	Firmware string `json:"firmware,omitempty"`
}

// ParseBanner extracts MAC address and firmware version from a banner like
// "DxShop Gemini 1 MAC=00:50:C2:4C:E0:00 VERSION=@Version 2.5Ee_05:41:42 Mar 29 2022@".
// Missing parts are left empty.
func ParseBanner(line string) BannerInfo {
	info := BannerInfo{Raw: line}
	if m := macPattern.FindStringSubmatch(line); m != nil {
		info.MAC = m[1]
	}
	if m := firmwarePattern.FindStringSubmatch(line); m != nil {
		info.Firmware = m[1]
	}
	return info
}
