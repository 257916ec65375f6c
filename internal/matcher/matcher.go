package matcher

import (
	"sort"

	"relex/internal/catalog"
	"relex/internal/relgraph"
	"relex/internal/symbols"
)

// Event is one trigger occurrence, already rule-matched and resolved.
type Event struct {
	Rule      catalog.Rule
	Identity  symbols.Identity
	Label     string
	Secondary *symbols.Identity // paired identity (condvar's mutex), nil if none
	Loc       relgraph.Location
	ViaMacro  bool
}

// instance is one open relationship being tracked.
type instance struct {
	rule    catalog.Rule
	key     string
	root    symbols.DeclID
	label   string
	events  []relgraph.RoleEvent
	flag    relgraph.Status // pending non-normal status, empty means normal
	lowConf bool
	macro   bool
	closed  bool
}

// Matcher runs the per-category state machines for one file. Instances are
// keyed by (resource, identity); each key holds an ordered list of open
// instances so shared openers (rdlock) can coexist.
type Matcher struct {
	open   map[string][]*instance
	byRoot map[symbols.DeclID][]*instance
	// lockStack tracks open exclusive lock-state instances across
	// identities; a release not matching its top is a reordering risk.
	lockStack []*instance

	records []relgraph.Record

	curFunc     string
	curAcquires []relgraph.AcquireEvent
	sequences   []relgraph.AcquireSequence
}

// New creates a matcher for one analysis run.
func New() *Matcher {
	return &Matcher{
		open:   make(map[string][]*instance),
		byRoot: make(map[symbols.DeclID][]*instance),
	}
}

// BeginFunction starts acquire-sequence tracking for a function body.
func (m *Matcher) BeginFunction(name string) {
	m.curFunc = name
	m.curAcquires = nil
}

// EndFunction flushes the function's acquire sequence.
func (m *Matcher) EndFunction() {
	if len(m.curAcquires) > 0 {
		m.sequences = append(m.sequences, relgraph.AcquireSequence{
			Function: m.curFunc,
			Acquires: m.curAcquires,
		})
	}
	m.curFunc = ""
	m.curAcquires = nil
}

// Handle consumes one event in source traversal order.
func (m *Matcher) Handle(ev Event) {
	switch ev.Rule.Class {
	case catalog.ClassOpener:
		m.handleOpener(ev)
	case catalog.ClassCloser:
		m.handleCloser(ev)
	}
}

func key(rule catalog.Rule, id symbols.Identity) string {
	return rule.Resource + "|" + id.Key()
}

func (m *Matcher) handleOpener(ev Event) {
	k := key(ev.Rule, ev.Identity)

	inst := &instance{
		rule:    ev.Rule,
		key:     k,
		root:    rootOf(ev.Identity),
		label:   ev.Label,
		events:  []relgraph.RoleEvent{{Role: ev.Rule.Role, Loc: ev.Loc}},
		lowConf: !ev.Identity.Resolved,
		macro:   ev.ViaMacro,
	}

	// A second exclusive acquire before a matching release is flagged,
	// not silently overwritten.
	if ev.Rule.Mode == catalog.ModeExclusive && m.hasOpenExclusive(k) {
		inst.flag = relgraph.StatusDoubleAcquire
	}

	// Condvar policy: a wait must sit inside a held lock on its mutex.
	if ev.Rule.SecondaryResource != "" && ev.Secondary != nil {
		secKey := ev.Rule.SecondaryResource + "|" + ev.Secondary.Key()
		if len(m.liveList(secKey)) == 0 {
			inst.flag = relgraph.StatusPolicyViolation
		}
	}

	m.open[k] = append(m.open[k], inst)
	m.byRoot[inst.root] = append(m.byRoot[inst.root], inst)

	if ev.Rule.Mode != "" && isLockResource(ev.Rule.Resource) {
		m.curAcquires = append(m.curAcquires, relgraph.AcquireEvent{
			Identity: ev.Label, Role: ev.Rule.Role, Loc: ev.Loc,
		})
		if ev.Rule.Mode == catalog.ModeExclusive {
			m.lockStack = append(m.lockStack, inst)
		}
	}
}

func (m *Matcher) handleCloser(ev Event) {
	k := key(ev.Rule, ev.Identity)
	live := m.liveList(k)

	if len(live) == 0 {
		if ev.Rule.Quiet {
			return
		}
		// May be legitimately opened elsewhere: recorded, low confidence.
		m.records = append(m.records, relgraph.Record{
			Category: ev.Rule.Category,
			Resource: ev.Rule.Resource,
			Identity: ev.Label,
			Events:   []relgraph.RoleEvent{{Role: ev.Rule.Role, Loc: ev.Loc}},
			Status:   relgraph.StatusUnmatchedRelease,
			Confidence: 0.5 * catalog.CalibrateConfidence(
				ev.Rule.Category, ev.Identity.Resolved, ev.ViaMacro),
		})
		return
	}

	if ev.Rule.CloseAll {
		// Broadcast closes every outstanding waiter on the identity.
		for _, inst := range live {
			m.close(inst, ev)
		}
		return
	}

	// LIFO: mutual-exclusion primitives release last-acquired-first in
	// correct programs. An out-of-order release is recorded, not rejected.
	inst := live[len(live)-1]
	if inst.flag == "" && m.onLockStack(inst) && m.topOfLockStack() != inst {
		inst.flag = relgraph.StatusReorderingRisk
	}
	m.close(inst, ev)
}

func (m *Matcher) close(inst *instance, ev Event) {
	inst.events = append(inst.events, relgraph.RoleEvent{Role: ev.Rule.Role, Loc: ev.Loc})
	inst.closed = true
	inst.lowConf = inst.lowConf || !ev.Identity.Resolved
	inst.macro = inst.macro || ev.ViaMacro

	status := relgraph.StatusNormal
	if inst.flag != "" {
		status = inst.flag
	}

	m.records = append(m.records, relgraph.Record{
		Category:   inst.rule.Category,
		Resource:   inst.rule.Resource,
		Identity:   inst.label,
		Events:     inst.events,
		Status:     status,
		Confidence: catalog.CalibrateConfidence(inst.rule.Category, !inst.lowConf, inst.macro),
	})

	m.dropFromStack(inst)
	m.compact(inst.key)
}

// FinalizeDecls is called at scope exit: any still-open instance whose
// identity root was declared in the exiting scope is finalized as leaked.
func (m *Matcher) FinalizeDecls(ids []symbols.DeclID) {
	for _, id := range ids {
		for _, inst := range m.byRoot[id] {
			if !inst.closed {
				m.leak(inst)
			}
		}
		delete(m.byRoot, id)
	}
}

// FinalizeAll closes out the file: everything still open leaks, including
// instances on unresolved identities that no scope owns.
func (m *Matcher) FinalizeAll() {
	for _, k := range sortedKeys(m.open) {
		for _, inst := range m.open[k] {
			if !inst.closed {
				m.leak(inst)
			}
		}
	}
	m.open = make(map[string][]*instance)
	m.byRoot = make(map[symbols.DeclID][]*instance)
	m.lockStack = nil
}

func (m *Matcher) leak(inst *instance) {
	inst.closed = true

	note := ""
	if inst.flag != "" {
		note = "also " + string(inst.flag)
	}
	if inst.rule.Partner != "" {
		if note != "" {
			note += "; "
		}
		note += "missing " + inst.rule.Partner
	}

	m.records = append(m.records, relgraph.Record{
		Category:   inst.rule.Category,
		Resource:   inst.rule.Resource,
		Identity:   inst.label,
		Events:     inst.events,
		Status:     relgraph.StatusLeaked,
		Confidence: catalog.CalibrateConfidence(inst.rule.Category, !inst.lowConf, inst.macro),
		Note:       note,
	})

	m.dropFromStack(inst)
	m.compact(inst.key)
}

// Records returns everything emitted so far, in emission order.
func (m *Matcher) Records() []relgraph.Record {
	return m.records
}

// Sequences returns the per-function acquire sequences.
func (m *Matcher) Sequences() []relgraph.AcquireSequence {
	return m.sequences
}

func (m *Matcher) liveList(k string) []*instance {
	var out []*instance
	for _, inst := range m.open[k] {
		if !inst.closed {
			out = append(out, inst)
		}
	}
	return out
}

func (m *Matcher) hasOpenExclusive(k string) bool {
	for _, inst := range m.open[k] {
		if !inst.closed && inst.rule.Mode == catalog.ModeExclusive {
			return true
		}
	}
	return false
}

func (m *Matcher) compact(k string) {
	var live []*instance
	for _, inst := range m.open[k] {
		if !inst.closed {
			live = append(live, inst)
		}
	}
	if len(live) == 0 {
		delete(m.open, k)
		return
	}
	m.open[k] = live
}

func (m *Matcher) onLockStack(inst *instance) bool {
	for _, s := range m.lockStack {
		if s == inst {
			return true
		}
	}
	return false
}

func (m *Matcher) topOfLockStack() *instance {
	for i := len(m.lockStack) - 1; i >= 0; i-- {
		if !m.lockStack[i].closed {
			return m.lockStack[i]
		}
	}
	return nil
}

func (m *Matcher) dropFromStack(inst *instance) {
	for i, s := range m.lockStack {
		if s == inst {
			m.lockStack = append(m.lockStack[:i], m.lockStack[i+1:]...)
			return
		}
	}
}

func sortedKeys(m map[string][]*instance) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func rootOf(id symbols.Identity) symbols.DeclID {
	if !id.Resolved {
		return symbols.NoDecl
	}
	return id.Root
}

func isLockResource(resource string) bool {
	return resource == "mutex" || resource == "rwlock"
}
