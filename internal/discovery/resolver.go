// Package discovery probes the candidate backends for a hostname and
// classifies the result into the closed ServiceType set.
package discovery

import (
	"fmt"
	"strings"
)

// Unit-name suffix grammar. A plugin hostname's first label is the plugin
// prefix followed by the unit base name and an optional variant suffix:
//
//	os-widgets         -> widgets-main        (no suffix: production alias)
//	os-widgets-main    -> widgets-main
//	os-widgets-dev     -> widgets-development (alias normalized)
//	os-widgets-development -> widgets-development
//	os-widgets-fix-42  -> widgets-fix-42      (arbitrary branch, verbatim)
const (
	suffixMain        = "main"
	suffixDevelopment = "development"
	suffixDevAlias    = "dev"
)

// IsPluginHost reports whether the hostname's first label carries the
// plugin prefix.
func IsPluginHost(host, pluginPrefix string) bool {
	label, _, _ := strings.Cut(host, ".")
	return strings.HasPrefix(label, pluginPrefix) && len(label) > len(pluginPrefix)
}

// ResolveUnitName maps a plugin hostname to its deployable-unit routing
// name using the suffix grammar above. It is a pure string transform: no
// network or store I/O, so callers may cache the result freely.
//
// Passing a hostname without the plugin prefix is a programmer error and
// panics; the router must only call this for plugin-classified hosts.
func ResolveUnitName(host, pluginPrefix string) string {
	label, _, _ := strings.Cut(host, ".")
	if !strings.HasPrefix(label, pluginPrefix) || len(label) == len(pluginPrefix) {
		panic(fmt.Sprintf("discovery: %q is not a plugin hostname", host))
	}

	name := label[len(pluginPrefix):]

	i := strings.LastIndex(name, "-")
	if i < 0 {
		return name + "-" + suffixMain
	}

	switch name[i+1:] {
	case suffixMain, suffixDevelopment:
		return name
	case suffixDevAlias:
		return name[:i] + "-" + suffixDevelopment
	default:
		// Any other trailing token is an arbitrary branch name, preserved
		// verbatim.
		return name
	}
}

// UnitBase returns the unit name with any variant suffix removed, used for
// cache healing when comparing a cached target against the current
// grammar.
func UnitBase(unitName string) string {
	for _, suffix := range []string{"-" + suffixMain, "-" + suffixDevelopment} {
		if strings.HasSuffix(unitName, suffix) {
			return unitName[:len(unitName)-len(suffix)]
		}
	}
	return unitName
}
