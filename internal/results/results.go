// Package results normalizes server analysis payloads at the network
// boundary. The server schema has drifted over time and the same concept
// arrives under different key names or value types depending on deployment
// age, so each payload type has one normalization function mapping every
// known historical shape onto a single canonical type. Display code never
// inspects alternative shapes itself.
//
// Normalizers never fail: absent or unrecognized fields degrade to zero
// values so a partial payload still renders as a partial result.
package results

import "encoding/json"

// NormalizeToken accepts an access token serialized either as a bare string
// (legacy servers) or as an {access_token, ...} object (canonical contract)
// and returns the token string. The bare-string form is a migration shim and
// should disappear once no legacy deployments remain.
func NormalizeToken(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var obj struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.AccessToken
	}
	return ""
}
