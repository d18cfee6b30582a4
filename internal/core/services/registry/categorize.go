package registry

import (
	"strings"

	"github.com/jarvis-lab/netguard/internal/core/domain"
)

// Keyword sets behind the classification rules. Matches are
// case-insensitive substring checks against hostname and vendor.
var (
	smartHomeVendors = []string{
		"nest", "ring", "echo", "alexa", "google home", "sonos",
		"wyze", "tuya", "lifx", "ecobee", "espressif", "smartthings",
	}
	cameraHosts     = []string{"camera", "cam", "webcam", "ipcam", "doorbell", "ring"}
	cameraVendors   = []string{"hikvision", "dahua", "reolink", "axis communications"}
	thermostatHosts = []string{"thermostat", "nest", "hvac", "honeywell", "ecobee"}
	tvHosts         = []string{"tv", "roku", "chromecast", "firetv", "appletv", "shield"}
	tvOnlyVendors   = []string{"roku", "vizio"}
	tvBrandVendors  = []string{"samsung", "lg electronics", "sony", "tcl"}
	printerHosts    = []string{"printer", "print"}
	printerVendors  = []string{"canon", "epson", "brother", "lexmark"}
	lightHosts      = []string{"light", "hue", "bulb", "lifx"}
	lightVendors    = []string{"philips"}
	tabletHosts     = []string{"tablet", "ipad", "tab-", "kindle"}
	networkVendors  = []string{
		"cisco", "juniper", "mikrotik", "ubiquiti",
		"tp-link", "netgear", "d-link", "belkin", "linksys", "zyxel",
	}
	networkHosts  = []string{"router", "gateway", "modem", "switch", "ap-", "access-point"}
	computerHosts = []string{"desktop", "laptop", "pc-", "workstation", "macbook", "imac"}
	// Vendors that build both computers and phones; the hostname breaks the tie.
	computerVendors = []string{"apple", "microsoft", "intel", "dell", "hewlett", "hp inc", "lenovo", "asus", "acer"}
	phoneHosts      = []string{"iphone", "android", "phone", "mobile", "galaxy", "pixel"}
	serverHosts     = []string{"server", "nas", "storage", "plex", "synology", "qnap"}
	serverVendors   = []string{"synology", "qnap"}
	piHosts         = []string{"raspberrypi", "raspberry", "pi-"}
	vmVendors       = []string{"vmware", "virtualbox", "qemu", "xen"}
)

// Categorize derives (device type, category) from hostname and vendor.
// Rules are ordered: the first match wins, so the specific IoT classes
// run before the broad vendor classes. Unknown inputs fall through to
// Unknown/Unknown rather than guessing.
func Categorize(hostname, vendor string) (domain.DeviceType, string) {
	host := strings.ToLower(hostname)
	vend := strings.ToLower(vendor)

	switch {
	case containsAny(vend, smartHomeVendors):
		return domain.TypeIoT, domain.CategorySmartHome
	case containsAny(host, cameraHosts) || containsAny(vend, cameraVendors):
		return domain.TypeIoT, domain.CategoryCamera
	case containsAny(host, thermostatHosts):
		return domain.TypeIoT, domain.CategoryThermostat
	case containsAny(host, tvHosts) || containsAny(vend, tvOnlyVendors):
		return domain.TypeIoT, domain.CategorySmartTV
	case containsAny(vend, tvBrandVendors) && strings.Contains(host, "tv"):
		return domain.TypeIoT, domain.CategorySmartTV
	case containsAny(host, printerHosts) || containsAny(vend, printerVendors):
		return domain.TypeIoT, domain.CategoryPrinter
	case containsAny(host, lightHosts) || containsAny(vend, lightVendors):
		return domain.TypeIoT, domain.CategorySmartLight
	case containsAny(host, tabletHosts):
		return domain.TypeMobile, domain.CategoryTablet
	case containsAny(vend, networkVendors) || containsAny(host, networkHosts):
		return domain.TypeNetwork, domain.CategoryRouterSwitch
	case containsAny(vend, computerVendors):
		if containsAny(host, phoneHosts) {
			return domain.TypeMobile, domain.CategorySmartphone
		}
		return domain.TypeComputer, domain.CategoryDesktop
	case containsAny(host, computerHosts):
		return domain.TypeComputer, domain.CategoryDesktop
	case containsAny(host, phoneHosts):
		return domain.TypeMobile, domain.CategorySmartphone
	case containsAny(host, serverHosts) || containsAny(vend, serverVendors):
		return domain.TypeServer, domain.CategoryNAS
	case strings.Contains(vend, "raspberry") || containsAny(host, piHosts):
		return domain.TypeIoT, domain.CategoryRaspberryPi
	case containsAny(vend, vmVendors):
		return domain.TypeVirtual, domain.CategoryVM
	}
	return domain.TypeUnknown, domain.CategoryUnknown
}

func containsAny(s string, keywords []string) bool {
	if s == "" {
		return false
	}
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
