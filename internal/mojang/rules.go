package mojang

import "github.com/quantumlauncher/qlcore/internal/paths"

// Rule is the tagged variant from §9 "Rule evaluation polymorphism": either
// an Os predicate, a Features predicate, or unconditional, combined with an
// Allow/Disallow action. Represented as a sum type via the Kind discriminant
// rather than inheritance, per the design note.
type RuleKind int

const (
	RuleUnconditional RuleKind = iota
	RuleOS
	RuleFeatures
)

type Action int

const (
	Allow Action = iota
	Disallow
)

type OsPredicate struct {
	Name    string // mojang name: "windows"|"osx"|"linux"
	Version string // carried from the rule JSON; ruleMatches does not evaluate it
	Arch    string
}

type Rule struct {
	Kind     RuleKind
	Action   Action
	OS       OsPredicate
	Features map[string]bool
}

// EvaluateRules applies an ordered list of rules with last-match-wins
// semantics and a default of Allow when no rule is present or none match,
// exactly as §4.C(3) specifies.
func EvaluateRules(rules []Rule, activeFeatures map[string]bool) Action {
	result := Allow
	matched := false
	for _, r := range rules {
		if ruleMatches(r, activeFeatures) {
			result = r.Action
			matched = true
		}
	}
	if !matched {
		return Allow
	}
	return result
}

func ruleMatches(r Rule, activeFeatures map[string]bool) bool {
	switch r.Kind {
	case RuleUnconditional:
		return true
	case RuleOS:
		if r.OS.Name != "" && r.OS.Name != paths.CurrentOS().MojangName() {
			return false
		}
		if r.OS.Arch != "" && r.OS.Arch != currentMojangArch() {
			return false
		}
		return true
	case RuleFeatures:
		for k, want := range r.Features {
			if activeFeatures[k] != want {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func currentMojangArch() string {
	switch paths.CurrentArch() {
	case "amd64":
		return "x86_64" // Mojang's manifest rarely pins arch on x86_64; kept for symmetry
	case "arm64":
		return "arm64"
	case "386":
		return "x86"
	default:
		return paths.CurrentArch()
	}
}
