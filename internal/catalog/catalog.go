package catalog

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"relex/internal/relgraph"
)

// RoleClass says whether a rule's role begins or ends a tracked instance.
type RoleClass string

const (
	ClassOpener RoleClass = "opener"
	ClassCloser RoleClass = "closer"
)

// Mode distinguishes exclusive primitives (mutex, wrlock) from shared ones
// (rdlock), which permit concurrent open instances on one identity.
type Mode string

const (
	ModeExclusive Mode = "exclusive"
	ModeShared    Mode = "shared"
)

// Rule declares one trigger construct of the relationship catalog. Several
// trigger names across API families may map to the same resource and role,
// so the matcher never knows which API produced an event.
type Rule struct {
	// Trigger is the callee name that fires the rule.
	Trigger string `yaml:"trigger"`
	// Category is the reporting bucket of records produced from this rule.
	Category relgraph.Category `yaml:"category"`
	// Resource is the state-machine key space ("mutex", "thread", "heap", ...).
	Resource string `yaml:"resource"`
	Role     string `yaml:"role"`
	Class    RoleClass `yaml:"class"`
	Mode     Mode      `yaml:"mode,omitempty"`
	// IdentityArg is the argument index that carries the resource identity.
	// TargetIdentity means the identity comes from the assignment target
	// (malloc, fopen, CreateThread return values).
	IdentityArg int `yaml:"identity_arg"`
	// SecondaryArg names an argument whose identity is checked against
	// another resource's state, e.g. the mutex of pthread_cond_wait.
	// Negative when unused.
	SecondaryArg int `yaml:"secondary_arg,omitempty"`
	// SecondaryResource is the resource table the secondary identity is
	// checked against ("mutex" for condvar waits).
	SecondaryResource string `yaml:"secondary_resource,omitempty"`
	// CallbackArg is the argument index carrying a start routine or
	// callback function (pthread_create's third argument). Zero means
	// none; no builtin or plausible rule passes a callback first.
	CallbackArg int `yaml:"callback_arg,omitempty"`
	// CloseAll makes a closer release every open instance on the identity
	// (broadcast) instead of the most recent one (signal).
	CloseAll bool `yaml:"close_all,omitempty"`
	// Quiet suppresses the unmatched-release record when a closer finds no
	// open instance. Used for closers shared across resources (CloseHandle)
	// so only one table reports the release.
	Quiet bool `yaml:"quiet,omitempty"`
	// Partner is the role expected to complete the relationship,
	// informational for the consumer.
	Partner string `yaml:"partner,omitempty"`
}

// TargetIdentity marks rules whose identity is the assignment target.
const TargetIdentity = -1

// Catalog is the immutable rule table consulted by the matcher. It is
// loaded once at startup and never mutated afterwards.
type Catalog struct {
	byTrigger map[string][]Rule
	triggers  []string
}

// New builds a catalog from a rule list.
func New(rules []Rule) *Catalog {
	c := &Catalog{byTrigger: make(map[string][]Rule)}
	for _, r := range rules {
		if r.SecondaryArg == 0 && r.SecondaryResource == "" {
			r.SecondaryArg = -1
		}
		c.byTrigger[r.Trigger] = append(c.byTrigger[r.Trigger], r)
	}
	for name := range c.byTrigger {
		c.triggers = append(c.triggers, name)
	}
	sort.Strings(c.triggers)
	return c
}

// Match returns the rules fired by a callee name, in declaration order.
func (c *Catalog) Match(callee string) []Rule {
	return c.byTrigger[callee]
}

// Triggers returns all trigger names in sorted order.
func (c *Catalog) Triggers() []string {
	return c.triggers
}

// ruleFile is the YAML shape of a user-supplied rule extension file.
type ruleFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadFile parses extra rules from a YAML file. Meant to be merged into
// the builtin set before the catalog is handed to any engine.
func LoadFile(path string) ([]Rule, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule file %s: %w", path, err)
	}

	var rf ruleFile
	if err := yaml.Unmarshal(raw, &rf); err != nil {
		return nil, fmt.Errorf("failed to parse rule file %s: %w", path, err)
	}

	for i, r := range rf.Rules {
		if r.Trigger == "" || r.Role == "" || r.Resource == "" {
			return nil, fmt.Errorf("rule %d in %s: trigger, resource and role are required", i, path)
		}
		if r.Class != ClassOpener && r.Class != ClassCloser {
			return nil, fmt.Errorf("rule %d in %s: unknown class %q", i, path, r.Class)
		}
	}
	return rf.Rules, nil
}
