package vt

import (
	"fmt"
	"strings"
)

// Kind is the type of an indicator of compromise.
type Kind string

const (
	KindFile      Kind = "file"
	KindDomain    Kind = "domain"
	KindIPAddress Kind = "ip_address"
	KindURL       Kind = "url"
)

var endpoints = map[Kind]string{
	KindFile:      "files",
	KindURL:       "urls",
	KindIPAddress: "ip_addresses",
	KindDomain:    "domains",
}

// basicProperties are the attributes kept when an object is flattened.
var basicProperties = map[Kind][]string{
	KindFile: {
		"type_description",
		"size",
		"first_submission_date",
		"last_submission_date",
		"times_submitted",
		"meaningful_name",
	},
	KindURL:       {"first_submission_date", "last_submission_date", "times_submitted"},
	KindIPAddress: {"date", "country", "asn", "as_owner"},
	KindDomain:    {"id", "creation_date", "last_update_date", "country"},
}

// SupportedKinds returns the closed set of indicator kinds.
func SupportedKinds() []Kind {
	return []Kind{KindFile, KindDomain, KindIPAddress, KindURL}
}

// ParseKind validates s against the supported kinds.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.TrimSpace(s))
	if _, ok := endpoints[k]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedKind, s)
	}
	return k, nil
}

// Endpoint returns the API collection name for the kind.
func (k Kind) Endpoint() string {
	return endpoints[k]
}

// Path returns the object path for value, e.g. "/files/<sha256>".
func (k Kind) Path(value string) string {
	return "/" + k.Endpoint() + "/" + value
}

// BasicProperties returns the attribute allowlist for the kind.
func (k Kind) BasicProperties() []string {
	return basicProperties[k]
}

func (k Kind) String() string { return string(k) }
