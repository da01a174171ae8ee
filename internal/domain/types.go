package domain

import (
	"net"
	"strings"
	"time"

	"golang.org/x/net/idna"
)

// Backend identifies one of the two candidate hosting platforms.
type Backend string

const (
	// BackendPrimary is the platform tried first for every service type
	BackendPrimary Backend = "primary"
	// BackendSecondary is the platform tried on fallback
	BackendSecondary Backend = "secondary"
)

// String returns the string representation of Backend
func (b Backend) String() string {
	return string(b)
}

// Subject is the kind of thing a hostname addresses.
type Subject int

const (
	// SubjectHost is a standard hosted site
	SubjectHost Subject = iota
	// SubjectPlugin is a deployable unit resolved via the unit-name grammar
	SubjectPlugin
)

// String returns the string representation of Subject
func (s Subject) String() string {
	switch s {
	case SubjectHost:
		return "host"
	case SubjectPlugin:
		return "plugin"
	default:
		return "unknown"
	}
}

// Availability records which backends actually host content for a name.
// It is derived solely from existence probes at discovery time, not an
// ownership claim; later unavailability must be rediscovered.
type Availability int

const (
	// AvailabilityNone - neither backend hosts the name
	AvailabilityNone Availability = iota
	// AvailabilityPrimary - only the primary backend hosts the name
	AvailabilityPrimary
	// AvailabilitySecondary - only the secondary backend hosts the name
	AvailabilitySecondary
	// AvailabilityBoth - both backends host the name
	AvailabilityBoth
)

// String returns the string representation of Availability
func (a Availability) String() string {
	switch a {
	case AvailabilityNone:
		return "none"
	case AvailabilityPrimary:
		return "primary"
	case AvailabilitySecondary:
		return "secondary"
	case AvailabilityBoth:
		return "both"
	default:
		return "unknown"
	}
}

// JoinAvailability maps the two existence probe results onto Availability.
func JoinAvailability(onPrimary, onSecondary bool) Availability {
	switch {
	case onPrimary && onSecondary:
		return AvailabilityBoth
	case onPrimary:
		return AvailabilityPrimary
	case onSecondary:
		return AvailabilitySecondary
	default:
		return AvailabilityNone
	}
}

// ServiceType is the closed classification of a hostname: what it addresses
// and which backends host it. Eight values total.
type ServiceType struct {
	Subject      Subject      `json:"subject"`
	Availability Availability `json:"availability"`
}

// String returns the string representation of ServiceType, e.g. "plugin-both"
func (st ServiceType) String() string {
	return st.Subject.String() + "-" + st.Availability.String()
}

// HasPrimary reports whether the primary backend hosts the name
func (st ServiceType) HasPrimary() bool {
	return st.Availability == AvailabilityPrimary || st.Availability == AvailabilityBoth
}

// HasSecondary reports whether the secondary backend hosts the name
func (st ServiceType) HasSecondary() bool {
	return st.Availability == AvailabilitySecondary || st.Availability == AvailabilityBoth
}

// IsNone reports whether no backend hosts the name
func (st ServiceType) IsNone() bool {
	return st.Availability == AvailabilityNone
}

// ParseServiceType parses the string form produced by ServiceType.String.
// Unknown strings report ok=false so corrupt cached values surface instead
// of silently classifying as none.
func ParseServiceType(s string) (ServiceType, bool) {
	subject, availability, found := strings.Cut(s, "-")
	if !found {
		return ServiceType{}, false
	}

	st := ServiceType{}
	switch subject {
	case "host":
		st.Subject = SubjectHost
	case "plugin":
		st.Subject = SubjectPlugin
	default:
		return ServiceType{}, false
	}

	switch availability {
	case "none":
		st.Availability = AvailabilityNone
	case "primary":
		st.Availability = AvailabilityPrimary
	case "secondary":
		st.Availability = AvailabilitySecondary
	case "both":
		st.Availability = AvailabilityBoth
	default:
		return ServiceType{}, false
	}

	return st, true
}

// Manifest is the JSON descriptor a deployable unit must expose to be
// considered valid on a backend.
type Manifest struct {
	Name          string                 `json:"name"`
	Description   string                 `json:"description"`
	Commands      map[string]interface{} `json:"commands,omitempty"`
	Listeners     []string               `json:"listeners,omitempty"`
	Configuration map[string]interface{} `json:"configuration,omitempty"`
}

// Valid reports whether the manifest carries the required fields.
func (m *Manifest) Valid() bool {
	return m != nil && m.Name != "" && m.Description != ""
}

// RouteEntry is a resolved backend target cached per lookup key.
type RouteEntry struct {
	TargetURL   string      `json:"target_url"`
	ServiceType ServiceType `json:"service_type"`
	ResolvedAt  time.Time   `json:"resolved_at"`
}

// NormalizeHost canonicalizes a hostname for lookup keys: strips any port,
// applies IDNA mapping and lowercases. Invalid international names fall
// back to plain lowercasing so a lookup key always exists.
func NormalizeHost(host string) string {
	// A bare IPv6 address has colons but no port; SplitHostPort rejects
	// it, keeping the address intact.
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimSuffix(host, ".")

	ascii, err := idna.Lookup.ToASCII(strings.ToLower(host))
	if err != nil {
		return strings.ToLower(host)
	}
	return ascii
}

// LookupKey builds the normalized hostname+path key shared by the route
// cache, the coalescer and discovery. An empty path defaults to "/".
// Query strings never participate; they vary per request without changing
// which backend serves the route.
func LookupKey(host, path string) string {
	if path == "" {
		path = "/"
	}
	return NormalizeHost(host) + path
}

// BreakerKey builds the circuit breaker key for a target identity and
// backend. Paths never participate in breaker keys.
func BreakerKey(target string, backend Backend) string {
	return NormalizeHost(target) + "|" + backend.String()
}
