package registry

import (
	"bufio"
	"os"
	"strings"
)

const zeroMAC = "00:00:00:00:00:00"

// ARPEntry is one resolved row of the kernel neighbour table.
type ARPEntry struct {
	IP  string
	MAC string
}

// ARPTable reads the kernel's IPv4 neighbour table. The path is
// configurable for tests; production reads /proc/net/arp.
type ARPTable struct {
	path string
}

// NewARPTable creates a reader over the given neighbour table file.
// An empty path defaults to /proc/net/arp.
func NewARPTable(path string) *ARPTable {
	if path == "" {
		path = "/proc/net/arp"
	}
	return &ARPTable{path: path}
}

// Entries returns the resolved neighbours. Unresolved slots (zero MAC
// or incomplete entries) are skipped, and MACs come back uppercased so
// they match the registry's canonical form.
func (a *ARPTable) Entries() ([]ARPEntry, error) {
	file, err := os.Open(a.path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var entries []ARPEntry
	scanner := bufio.NewScanner(file)
	header := true
	for scanner.Scan() {
		if header {
			header = false
			continue
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) < 4 {
			continue
		}
		ip, mac := parts[0], parts[3]
		if mac == zeroMAC || mac == "<incomplete>" {
			continue
		}
		entries = append(entries, ARPEntry{IP: ip, MAC: strings.ToUpper(mac)})
	}
	return entries, scanner.Err()
}
