package domain

import (
	"net"
	"regexp"
	"strings"
)

// Validation Helpers

var (
	macRegex       = regexp.MustCompile(`^([0-9A-Fa-f]{2}[:-]){5}([0-9A-Fa-f]{2})$`)
	interfaceRegex = regexp.MustCompile(`^[a-zA-Z0-9\-_.]+$`)
	tableRegex     = regexp.MustCompile(`^[a-z0-9_]+$`)
)

// IsValidMAC checks if the string is a valid MAC address.
func IsValidMAC(mac string) bool {
	return macRegex.MatchString(mac)
}

// NormalizeMAC uppercases a MAC and converts dashes to colons.
func NormalizeMAC(mac string) string {
	return strings.ToUpper(strings.ReplaceAll(mac, "-", ":"))
}

// IsValidInterface checks if the string is a safe interface name (IFNAMSIZ
// caps Linux names at 16).
func IsValidInterface(iface string) bool {
	if len(iface) == 0 || len(iface) > 16 {
		return false
	}
	return interfaceRegex.MatchString(iface)
}

// IsValidTableName guards dynamic table identifiers before they reach SQL.
// Capture table names are machine-generated, but API callers can request
// arbitrary names, so the check is strict: lowercase, digits, underscore.
func IsValidTableName(name string) bool {
	if len(name) == 0 || len(name) > 64 {
		return false
	}
	return tableRegex.MatchString(name)
}

// IsLocalIP reports whether the address is in an RFC1918 range, loopback, or
// link-local. Consumers treat these as "our side" of a conversation.
func IsLocalIP(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	return parsed.IsPrivate() || parsed.IsLoopback() || parsed.IsLinkLocalUnicast()
}

// IsExternalIP is the complement of IsLocalIP for parseable addresses.
func IsExternalIP(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	return !parsed.IsPrivate() && !parsed.IsLoopback() && !parsed.IsLinkLocalUnicast() &&
		!parsed.IsMulticast() && !parsed.IsUnspecified()
}
