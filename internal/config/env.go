package config

import (
	"fmt"
	"sort"
	"strings"
)

// renderEnv produces the .env contents: one generated-secret line per
// minted secret, and one OIDC_<UPPER> line per synced OIDC key/value pair.
// Both groups are emitted in sorted-key order so re-running apply with an
// unchanged config yields byte-identical output.
func (s *Store) renderEnv() string {
	var b strings.Builder

	secretKeys := make([]string, 0, len(s.Local.Secrets))
	for k := range s.Local.Secrets {
		secretKeys = append(secretKeys, k)
	}
	sort.Strings(secretKeys)
	for _, k := range secretKeys {
		fmt.Fprintf(&b, "%s=%s\n", k, quoteEnvValue(s.Local.Secrets[k]))
	}

	oidcKeys := make([]string, 0, len(s.Local.Oidc))
	for k := range s.Local.Oidc {
		oidcKeys = append(oidcKeys, k)
	}
	sort.Strings(oidcKeys)
	for _, k := range oidcKeys {
		fmt.Fprintf(&b, "OIDC_%s=%s\n", strings.ToUpper(k), quoteEnvValue(s.Local.Oidc[k]))
	}

	return b.String()
}

// quoteEnvValue produces a double-quoted value safe for `KEY="VALUE"` shell
// sourcing. The generated-secret alphabet never contains a quote or
// backslash, but OIDC values come from an external process and are escaped
// defensively.
func quoteEnvValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return `"` + v + `"`
}
