// Package apps holds the closed set of applications the bot can configure.
package apps

import (
	"fmt"
	"strings"
)

// ID identifies an application in the config store.
type ID string

const (
	Chat        ID = "chat"
	Matchmaking ID = "matchmaking"
	Tournament  ID = "tournament"
)

// ordered is the single source for both the classifier prompt and response
// parsing. Earlier entries win when a response mentions more than one.
var ordered = []ID{Chat, Matchmaking, Tournament}

// All returns the registry in match order.
func All() []ID {
	out := make([]ID, len(ordered))
	copy(out, ordered)
	return out
}

// Names returns the registry as plain strings in match order.
func Names() []string {
	names := make([]string, len(ordered))
	for i, id := range ordered {
		names[i] = string(id)
	}
	return names
}

// Parse converts an exact identifier into an ID.
func Parse(s string) (ID, error) {
	for _, id := range ordered {
		if string(id) == s {
			return id, nil
		}
	}
	return "", fmt.Errorf("unknown application %q", s)
}

// Match returns the first registered identifier contained in text.
func Match(text string) (ID, bool) {
	for _, id := range ordered {
		if strings.Contains(text, string(id)) {
			return id, true
		}
	}
	return "", false
}

func (id ID) String() string { return string(id) }
