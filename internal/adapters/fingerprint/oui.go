package fingerprint

import (
	"bufio"
	"context"
	"log/slog"
	"os"
	"strings"
	"time"
)

// BuiltinVendors is a small static OUI map used as the last lookup tier
// when the full registry database is missing or incomplete. It leans
// toward vendors common on home and small-office networks, IoT brands
// in particular, since those drive the security checks.
var BuiltinVendors = map[string]string{
	// Single-board and embedded
	"B8:27:EB": "Raspberry Pi Foundation",
	"DC:A6:32": "Raspberry Pi Trading",
	"E4:5F:01": "Raspberry Pi Trading",
	"24:0A:C4": "Espressif",
	"30:AE:A4": "Espressif",
	"5C:CF:7F": "Espressif",
	"18:FE:34": "Espressif",
	"A0:20:A6": "Espressif",

	// Smart home
	"18:B4:30": "Nest Labs",
	"64:16:66": "Nest Labs",
	"00:17:88": "Philips Lighting",
	"EC:B5:FA": "Philips Lighting",
	"D0:73:D5": "LIFX",
	"2C:AA:8E": "Wyze Labs",
	"44:61:32": "Ecobee",
	"94:10:3E": "Belkin",
	"EC:1A:59": "Belkin",
	"10:D5:61": "Tuya Smart",
	"FC:65:DE": "Amazon Technologies",
	"44:65:0D": "Amazon Technologies",
	"0C:47:C9": "Amazon Technologies",
	"F4:F5:D8": "Google",
	"54:60:09": "Google",
	"00:0E:58": "Sonos",
	"5C:AA:FD": "Sonos",

	// Cameras
	"44:19:B6": "Hangzhou Hikvision",
	"28:57:BE": "Hangzhou Hikvision",
	"C0:56:E3": "Hangzhou Hikvision",
	"3C:EF:8C": "Zhejiang Dahua",

	// TVs and streaming
	"B0:A7:37": "Roku",
	"DC:3A:5E": "Roku",
	"A8:23:FE": "LG Electronics",
	"04:5D:4B": "Sony",
	"8C:F5:A3": "Samsung Electronics",
	"5C:0A:5B": "Samsung Electronics",
	"78:BD:BC": "Samsung Electronics",

	// Phones, tablets, computers
	"F0:18:98": "Apple",
	"AC:BC:32": "Apple",
	"F4:5C:89": "Apple",
	"3C:22:FB": "Apple",
	"28:6C:07": "Xiaomi",
	"64:09:80": "Xiaomi",
	"A4:BF:01": "Intel Corporate",
	"3C:A9:F4": "Intel Corporate",
	"18:03:73": "Dell",
	"D4:BE:D9": "Dell",
	"3C:D9:2B": "Hewlett Packard",
	"94:57:A5": "Hewlett Packard",

	// Printers
	"00:80:77": "Brother Industries",
	"30:05:5C": "Brother Industries",
	"00:1E:8F": "Canon",
	"64:EB:8C": "Seiko Epson",

	// Network gear
	"50:C7:BF": "TP-Link",
	"14:CC:20": "TP-Link",
	"EC:08:6B": "TP-Link",
	"B0:4E:26": "TP-Link",
	"A0:40:A0": "Netgear",
	"9C:3D:CF": "Netgear",
	"20:E5:2A": "Netgear",
	"1C:7E:E5": "D-Link",
	"2C:FD:A1": "ASUSTek",
	"08:60:6E": "ASUSTek",
	"F0:9F:C2": "Ubiquiti",
	"FC:EC:DA": "Ubiquiti",
	"78:8A:20": "Ubiquiti",
	"4C:5E:0C": "MikroTik",
	"E4:8D:8C": "MikroTik",
	"00:1A:A1": "Cisco",
	"F8:66:F2": "Cisco",

	// Virtualization
	"00:0C:29": "VMware",
	"00:50:56": "VMware",
	"08:00:27": "VirtualBox",
	"52:54:00": "QEMU",
}

// OpenRepository builds the standard lookup chain: the on-disk registry
// first, the builtin map as fallback. A missing or broken database file
// degrades to the builtin map alone rather than failing startup.
func OpenRepository(dbPath string, cacheSize int) VendorRepository {
	static := NewStaticVendorRepository(BuiltinVendors)

	db, err := NewOUIDatabase(dbPath, cacheSize)
	if err != nil {
		slog.Warn("OUI database unavailable, using builtin vendor map", "path", dbPath, "error", err)
		return static
	}

	if stats, err := db.GetStats(context.Background()); err == nil {
		slog.Info("OUI database opened", "entries", stats.TotalEntries, "last_updated", stats.LastUpdated)
	}

	return NewCompositeVendorRepository(db, static)
}

// ParseOUIFile reads an OUI registry dump into entries. Both the IEEE
// oui.txt format ("XX-XX-XX   (hex)  Vendor Name") and the plain
// "XX:XX:XX Vendor Name" format are accepted.
func ParseOUIFile(path string) ([]OUIEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	now := time.Now()
	var entries []OUIEntry

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if len(line) < 8 || strings.HasPrefix(line, "#") {
			continue
		}

		var prefix, vendor string
		if idx := strings.Index(line, "(hex)"); idx > 0 {
			prefix = strings.TrimSpace(line[:idx])
			vendor = strings.TrimSpace(line[idx+len("(hex)"):])
		} else {
			prefix = line[:8]
			vendor = strings.TrimSpace(line[8:])
		}

		prefix = strings.ToUpper(strings.ReplaceAll(prefix, "-", ":"))
		if !isValidOUI(prefix) || vendor == "" {
			continue
		}

		entries = append(entries, OUIEntry{
			Prefix:      prefix,
			Vendor:      vendor,
			LastUpdated: now,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

// isValidOUI checks the "XX:XX:XX" shape.
func isValidOUI(s string) bool {
	if len(s) != 8 || s[2] != ':' || s[5] != ':' {
		return false
	}
	for i, c := range s {
		if i == 2 || i == 5 {
			continue
		}
		isHex := (c >= '0' && c <= '9') || (c >= 'A' && c <= 'F')
		if !isHex {
			return false
		}
	}
	return true
}
