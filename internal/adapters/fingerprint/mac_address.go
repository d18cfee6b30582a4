package fingerprint

import (
	"fmt"
	"net"
	"strings"
)

// MACAddress is a value object representing a validated MAC address
type MACAddress struct {
	address net.HardwareAddr
}

// ParseMAC parses a MAC address string into a MACAddress value object.
// Supports formats: "XX:XX:XX:XX:XX:XX", "XX-XX-XX-XX-XX-XX", "XXXXXXXXXXXX"
func ParseMAC(s string) (MACAddress, error) {
	if s == "" {
		return MACAddress{}, ErrEmptyMAC
	}

	// Normalize separators to colons
	normalized := strings.ReplaceAll(s, "-", ":")
	normalized = strings.ReplaceAll(normalized, ".", ":")

	// If no separators, add them (assumes 12 hex chars)
	if !strings.Contains(normalized, ":") && len(normalized) == 12 {
		var parts []string
		for i := 0; i < len(normalized); i += 2 {
			parts = append(parts, normalized[i:i+2])
		}
		normalized = strings.Join(parts, ":")
	}

	hw, err := net.ParseMAC(normalized)
	if err != nil {
		return MACAddress{}, &ValidationError{
			Field: "mac",
			Value: s,
			Err:   ErrInvalidMAC,
		}
	}

	return MACAddress{address: hw}, nil
}

// MustParseMAC parses a MAC address and panics on error.
// Only use in tests or with known-valid input.
func MustParseMAC(s string) MACAddress {
	mac, err := ParseMAC(s)
	if err != nil {
		panic(fmt.Sprintf("invalid MAC address %q: %v", s, err))
	}
	return mac
}

// OUI returns the Organizationally Unique Identifier (first 3 bytes) as "XX:XX:XX"
func (m MACAddress) OUI() string {
	if len(m.address) < 3 {
		return ""
	}
	return fmt.Sprintf("%02X:%02X:%02X",
		m.address[0],
		m.address[1],
		m.address[2],
	)
}

// IsRandomized checks if the MAC has the Locally Administered Address bit
// set. Randomized addresses carry no registered OUI, so vendor lookups on
// them are pointless.
func (m MACAddress) IsRandomized() bool {
	if len(m.address) == 0 {
		return false
	}
	return (m.address[0] & 0x02) != 0
}

// IsMulticast checks if the MAC address is a multicast address.
func (m MACAddress) IsMulticast() bool {
	if len(m.address) == 0 {
		return false
	}
	return (m.address[0] & 0x01) != 0
}

// String returns the MAC address in standard format "XX:XX:XX:XX:XX:XX"
func (m MACAddress) String() string {
	return strings.ToUpper(m.address.String())
}

// IsValid returns true if the MAC address is valid (non-empty)
func (m MACAddress) IsValid() bool {
	return len(m.address) > 0
}
