package placement

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ValidationError reports a payload field the placement value object refuses.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return fmt.Sprintf("invalid %s: %s", e.Field, e.Message) }

func invalid(field, msg string) error { return &ValidationError{Field: field, Message: msg} }

// Account statuses the portal platform reports for an application install.
var knownStatuses = map[string]struct{}{
	"F": {}, "D": {}, "T": {}, "P": {}, "L": {}, "S": {},
}

const defaultStatus = "L"

// Data is the normalized placement payload. Values are copied in at
// construction and only exposed through getters.
type Data struct {
	domain           string
	memberID         string
	placement        string
	options          map[string]any
	authID           string
	authExpires      time.Duration
	refreshID        string
	applicationToken string
	status           string
	protocol         int
	lang             string
}

// FromPayload builds Data from an enriched payload (DOMAIN and member_id
// already resolved).
func FromPayload(p Payload) (Data, error) {
	d := Data{
		placement:        strings.TrimSpace(p.Str(KeyPlacement)),
		authID:           strings.TrimSpace(p.Str(KeyAuthID)),
		refreshID:        strings.TrimSpace(p.Str(KeyRefreshID)),
		applicationToken: strings.TrimSpace(p.Str(KeyAppSID)),
		lang:             strings.TrimSpace(p.Str(KeyLang)),
		status:           defaultStatus,
		protocol:         1,
	}

	domain := strings.ToLower(strings.TrimSpace(p.Str(KeyDomain)))
	if domain == "" {
		domain = strings.ToLower(strings.TrimSpace(p.Str(KeyDomainLower)))
	}
	if err := checkDomain(domain); err != nil {
		return Data{}, err
	}
	d.domain = domain

	d.memberID = strings.TrimSpace(p.Str(KeyMemberID))
	if d.memberID == "" {
		return Data{}, invalid(KeyMemberID, "must not be empty")
	}
	if d.authID == "" {
		return Data{}, invalid(KeyAuthID, "must not be empty")
	}

	if raw := strings.TrimSpace(p.Str(KeyAuthExpires)); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil || secs < 0 {
			return Data{}, invalid(KeyAuthExpires, "must be a non-negative integer")
		}
		d.authExpires = time.Duration(secs) * time.Second
	}

	if s := strings.ToUpper(strings.TrimSpace(p.Str(KeyStatus))); s != "" {
		if _, ok := knownStatuses[s]; !ok {
			return Data{}, invalid(KeyStatus, fmt.Sprintf("unknown status %q", s))
		}
		d.status = s
	}

	if raw := strings.TrimSpace(p.Str(KeyProtocol)); raw != "" {
		switch raw {
		case "0":
			d.protocol = 0
		case "1":
			d.protocol = 1
		default:
			return Data{}, invalid(KeyProtocol, "must be 0 or 1")
		}
	}

	opts, err := parseOptions(p[KeyPlacementOptions])
	if err != nil {
		return Data{}, err
	}
	d.options = opts
	return d, nil
}

func checkDomain(domain string) error {
	switch {
	case domain == "":
		return invalid(KeyDomain, "must not be empty")
	case strings.Contains(domain, "://"), strings.ContainsAny(domain, "/?# \t"):
		return invalid(KeyDomain, "must be a bare host name")
	}
	host := domain
	if i := strings.LastIndex(host, ":"); i > 0 {
		if _, err := strconv.Atoi(host[i+1:]); err != nil {
			return invalid(KeyDomain, "port must be numeric")
		}
		host = host[:i]
	}
	for _, c := range host {
		if !(c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '-' || c == '.') {
			return invalid(KeyDomain, fmt.Sprintf("invalid character %q", c))
		}
	}
	if host != "localhost" && !strings.Contains(host, ".") {
		return invalid(KeyDomain, "must be a fully qualified host name")
	}
	if strings.HasPrefix(host, ".") || strings.HasSuffix(host, ".") || strings.Contains(host, "..") {
		return invalid(KeyDomain, "must be a fully qualified host name")
	}
	return nil
}

func parseOptions(v any) (map[string]any, error) {
	switch o := v.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return copyMap(o), nil
	case string:
		if strings.TrimSpace(o) == "" {
			return map[string]any{}, nil
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(o), &m); err != nil || m == nil {
			return nil, invalid(KeyPlacementOptions, "must be a JSON object")
		}
		return m, nil
	case []string:
		if len(o) == 0 {
			return map[string]any{}, nil
		}
		return parseOptions(o[0])
	default:
		return nil, invalid(KeyPlacementOptions, "must be a JSON object")
	}
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (d Data) Domain() string             { return d.domain }
func (d Data) MemberID() string           { return d.memberID }
func (d Data) Placement() string          { return d.placement }
func (d Data) AuthID() string             { return d.authID }
func (d Data) AuthExpires() time.Duration { return d.authExpires }
func (d Data) RefreshID() string          { return d.refreshID }
func (d Data) ApplicationToken() string   { return d.applicationToken }
func (d Data) Status() string             { return d.status }
func (d Data) Protocol() int              { return d.protocol }
func (d Data) Lang() string               { return d.lang }

// Options returns a copy of PLACEMENT_OPTIONS.
func (d Data) Options() map[string]any { return copyMap(d.options) }

// ClientEndpoint is the portal REST base. PROTOCOL=0 means plain http.
func (d Data) ClientEndpoint() string {
	scheme := "https"
	if d.protocol == 0 {
		scheme = "http"
	}
	return scheme + "://" + d.domain + "/rest/"
}
