package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jarvis-lab/netguard/internal/core/domain"
)

func TestCategorize(t *testing.T) {
	tests := []struct {
		name         string
		hostname     string
		vendor       string
		wantType     domain.DeviceType
		wantCategory string
	}{
		{"nest vendor", "", "Nest Labs", domain.TypeIoT, domain.CategorySmartHome},
		{"sonos vendor", "Sonos-One", "Sonos", domain.TypeIoT, domain.CategorySmartHome},
		{"camera hostname", "front-door-camera", "", domain.TypeIoT, domain.CategoryCamera},
		{"doorbell hostname", "ring-doorbell", "", domain.TypeIoT, domain.CategoryCamera},
		{"hikvision vendor", "DS-2CD2085", "Hangzhou Hikvision", domain.TypeIoT, domain.CategoryCamera},
		{"thermostat hostname", "hallway-thermostat", "", domain.TypeIoT, domain.CategoryThermostat},
		{"roku hostname", "roku-ultra", "", domain.TypeIoT, domain.CategorySmartTV},
		{"chromecast hostname", "chromecast-bedroom", "", domain.TypeIoT, domain.CategorySmartTV},
		{"samsung tv needs tv hostname", "samsung-tv-living", "Samsung Electronics", domain.TypeIoT, domain.CategorySmartTV},
		{"printer hostname", "office-printer", "", domain.TypeIoT, domain.CategoryPrinter},
		{"epson vendor", "ET-2850", "Epson", domain.TypeIoT, domain.CategoryPrinter},
		{"hue hostname", "hue-bridge", "", domain.TypeIoT, domain.CategorySmartLight},
		{"philips vendor", "", "Philips Lighting", domain.TypeIoT, domain.CategorySmartLight},
		{"ipad hostname", "Johns-iPad", "", domain.TypeMobile, domain.CategoryTablet},
		{"ubiquiti vendor", "", "Ubiquiti Networks", domain.TypeNetwork, domain.CategoryRouterSwitch},
		{"router hostname", "openwrt-router", "", domain.TypeNetwork, domain.CategoryRouterSwitch},
		{"tplink vendor", "", "TP-Link", domain.TypeNetwork, domain.CategoryRouterSwitch},
		{"apple laptop", "Johns-MacBook-Pro", "Apple", domain.TypeComputer, domain.CategoryDesktop},
		{"apple phone override", "Johns-iPhone", "Apple", domain.TypeMobile, domain.CategorySmartphone},
		{"intel nic desktop", "", "Intel Corporate", domain.TypeComputer, domain.CategoryDesktop},
		{"desktop hostname no vendor", "gaming-desktop", "", domain.TypeComputer, domain.CategoryDesktop},
		{"samsung phone", "Galaxy-S21", "Samsung Electronics", domain.TypeMobile, domain.CategorySmartphone},
		{"pixel hostname", "Pixel-7", "", domain.TypeMobile, domain.CategorySmartphone},
		{"synology hostname", "synology-ds220", "", domain.TypeServer, domain.CategoryNAS},
		{"plex server", "plex-server", "", domain.TypeServer, domain.CategoryNAS},
		{"raspberry pi oui vendor", "", "Raspberry Pi Foundation", domain.TypeIoT, domain.CategoryRaspberryPi},
		{"raspberrypi hostname", "raspberrypi", "", domain.TypeIoT, domain.CategoryRaspberryPi},
		{"vmware vendor", "", "VMware", domain.TypeVirtual, domain.CategoryVM},
		{"nothing known", "host-42", "", domain.TypeUnknown, domain.CategoryUnknown},
		{"empty", "", "", domain.TypeUnknown, domain.CategoryUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			devType, category := Categorize(tt.hostname, tt.vendor)
			assert.Equal(t, tt.wantType, devType)
			assert.Equal(t, tt.wantCategory, category)
		})
	}
}

func TestCategorizeRuleOrder(t *testing.T) {
	// Smart-home vendors win over every hostname rule.
	devType, category := Categorize("tv-bridge", "Nest Labs")
	assert.Equal(t, domain.TypeIoT, devType)
	assert.Equal(t, domain.CategorySmartHome, category)

	// A TV-brand vendor without a tv hostname is not a Smart TV; with
	// nothing else to go on it stays unclassified.
	devType, category = Categorize("host-17", "Sony")
	assert.Equal(t, domain.TypeUnknown, devType)
	assert.Equal(t, domain.CategoryUnknown, category)
}
