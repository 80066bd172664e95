package secret

import (
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"
)

// LookupFunc reports the value of an environment variable.
type LookupFunc func(key string) (string, bool)

// MapLookup looks variables up in env.
func MapLookup(env map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

var bracedVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ExpandEnvStrict expands variables in s from the process environment.
// See ExpandStrict.
func ExpandEnvStrict(s string) (string, error) {
	return ExpandStrict(s, os.LookupEnv)
}

// ExpandStrict expands $VAR and ${VAR} in s using lookup.
//
// A braced ${VAR} that lookup does not know is an error naming every such
// variable. A bare $VAR that is unknown expands to "". $$ is a literal $.
func ExpandStrict(s string, lookup LookupFunc) (string, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	const dollar = "\x00REQCLIENT_SECRET_DOLLAR\x00"
	s = strings.ReplaceAll(s, "$$", dollar)

	var missing []string
	for _, m := range bracedVarPattern.FindAllStringSubmatch(s, -1) {
		if _, ok := lookup(m[1]); !ok && !slices.Contains(missing, m[1]) {
			missing = append(missing, m[1])
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return "", fmt.Errorf("secret: missing required environment variables: %s", strings.Join(missing, ", "))
	}

	s = os.Expand(s, func(key string) string {
		v, _ := lookup(key)
		return v
	})
	return strings.ReplaceAll(s, dollar, "$"), nil
}
