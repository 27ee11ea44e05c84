package placement

import (
	"strconv"
	"strings"
)

// Canonical payload keys written by the portal platform.
const (
	KeyPlacement        = "PLACEMENT"
	KeyPlacementOptions = "PLACEMENT_OPTIONS"
	KeyAuthID           = "AUTH_ID"
	KeyAuthExpires      = "AUTH_EXPIRES"
	KeyRefreshID        = "REFRESH_ID"
	KeyDomain           = "DOMAIN"
	KeyDomainLower      = "domain"
	KeyMemberID         = "member_id"
	KeyStatus           = "status"
	KeyAppSID           = "APP_SID"
	KeyProtocol         = "PROTOCOL"
	KeyLang             = "LANG"
)

// Payload is the raw key/value data of an inbound request. Values are a
// string, a []string for repeated form/query keys, or whatever a JSON body
// carried.
type Payload map[string]any

// Str returns the value under key as a string. The first element is used
// for repeated keys; absent keys and JSON nulls yield "".
func (p Payload) Str(key string) string {
	switch v := p[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case []string:
		if len(v) == 0 {
			return ""
		}
		return v[0]
	case []any:
		if len(v) == 0 {
			return ""
		}
		return Payload{key: v[0]}.Str(key)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// Has reports whether key carries a non-blank value.
func (p Payload) Has(key string) bool { return strings.TrimSpace(p.Str(key)) != "" }

// Clone returns a shallow copy so enrichment never mutates the caller's map.
func (p Payload) Clone() Payload {
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
