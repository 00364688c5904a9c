// Package classify maps a single line of the SSH client's diagnostic output
// to a connection signal.
//
// The classification is heuristic: the ssh client does not emit a structured
// "tunnel is up" marker on stderr, so we look for substrings that accompany a
// successful session negotiation (known-hosts warnings, authorized_keys
// provisioning chatter from gcloud, "Connecting" progress lines). Both
// directions can be wrong: a matched line does not guarantee the forward
// works, and a working tunnel may never print a recognized line. The
// supervisor compensates for the latter with its quiet-EOF fallback. Keeping
// the heuristic behind this package means it can be swapped for a structured
// probe (e.g. dialing the local SOCKS port) without touching the supervisor.
package classify

import "strings"

// Signal is the outcome of classifying one diagnostic line.
type Signal int

const (
	// NoSignal means the line says nothing about connection state.
	NoSignal Signal = iota
	// LikelyConnected means the line matches a pattern associated with a
	// successfully negotiated session.
	LikelyConnected
)

// DefaultPatterns are the case-sensitive substrings recognized as connection
// indicators. "Warning" covers the OpenSSH known-hosts banner family
// ("Warning: Permanently added ..."), "authorized_keys" covers gcloud's key
// provisioning output, and "Connecting" covers progress messages.
var DefaultPatterns = []string{
	"Warning",
	"authorized_keys",
	"Connecting",
}

// Classifier matches diagnostic lines against a fixed pattern set. The zero
// value matches nothing; use New for the default set.
type Classifier struct {
	patterns []string
}

// New returns a classifier using DefaultPatterns.
func New() *Classifier {
	return &Classifier{patterns: DefaultPatterns}
}

// NewWithPatterns returns a classifier with a caller-supplied substring set.
func NewWithPatterns(patterns []string) *Classifier {
	return &Classifier{patterns: append([]string(nil), patterns...)}
}

// Classify maps one line to a Signal. Matching is plain case-sensitive
// substring containment.
func (c *Classifier) Classify(line string) Signal {
	for _, p := range c.patterns {
		if strings.Contains(line, p) {
			return LikelyConnected
		}
	}
	return NoSignal
}
