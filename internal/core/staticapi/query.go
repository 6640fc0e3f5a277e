package staticapi

import (
	"net/url"
	"strings"
)

// Param is one query pair. Order is kept as built.
type Param struct {
	Name  string
	Value string
}

// AccessTokenParam is the query key of the credential.
const AccessTokenParam = "access_token"

// BuildQuery lists the query pairs for req. Flags at their service default
// are left out; the token always comes last.
func BuildQuery(req Request, token string) []Param {
	var q []Param
	if _, ok := req.Source.(StyleSource); ok {
		if req.BeforeLayer != "" {
			q = append(q, Param{"before_layer", req.BeforeLayer})
		}
		if req.HideLogo {
			q = append(q, Param{"logo", "false"})
		}
		if req.HideAttribution {
			q = append(q, Param{"attribution", "false"})
		}
	}
	return append(q, Param{AccessTokenParam, token})
}

// EncodeQuery joins params as name=value pairs separated by "&".
func EncodeQuery(params []Param) string {
	var b strings.Builder
	for i, p := range params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.Name))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return b.String()
}

// Redact replaces the access token value, for anything shown or logged.
func Redact(params []Param) []Param {
	out := make([]Param, len(params))
	for i, p := range params {
		if p.Name == AccessTokenParam {
			p.Value = "REDACTED"
		}
		out[i] = p
	}
	return out
}
