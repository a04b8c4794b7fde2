package identity

import (
	"context"
	"fmt"
)

// Action is an operation on the users resource
type Action string

const (
	ActionList     Action = "list"
	ActionCreate   Action = "create"
	ActionRetrieve Action = "retrieve"
	ActionUpdate   Action = "update"
	ActionDestroy  Action = "destroy"
)

// Decision is the outcome of a policy evaluation
type Decision int

const (
	Deny Decision = iota
	Allow
)

func (d Decision) String() string {
	if d == Allow {
		return "allow"
	}
	return "deny"
}

// Allowed reports whether the decision grants access
func (d Decision) Allowed() bool {
	return d == Allow
}

type rule func(actor, target *User) Decision

var rules = map[Action]rule{
	ActionCreate:   allowAny,
	ActionList:     staffOnly,
	ActionRetrieve: ownerOrStaff,
	ActionUpdate:   ownerOrStaff,
	ActionDestroy:  ownerOrStaff,
}

func allowAny(_, _ *User) Decision {
	return Allow
}

func staffOnly(actor, _ *User) Decision {
	if !authenticated(actor) || !actor.IsStaff {
		return Deny
	}
	return Allow
}

func ownerOrStaff(actor, target *User) Decision {
	if !authenticated(actor) {
		return Deny
	}
	if actor.IsStaff {
		return Allow
	}
	if target != nil && actor.ID == target.ID {
		return Allow
	}
	return Deny
}

func authenticated(actor *User) bool {
	return actor != nil && actor.IsActive
}

// PolicyFault describes a rule that failed while being evaluated
type PolicyFault struct {
	Action Action
	Cause  any
}

func (f PolicyFault) Error() string {
	return fmt.Sprintf("policy evaluation for %q failed: %v", f.Action, f.Cause)
}

// Policy evaluates the decision table. A nil actor is an unauthenticated
// caller. A fault while evaluating a rule is reported to the fault hook
// and becomes Deny.
type Policy struct {
	rules    map[Action]rule
	logger   Logger
	activity ActivitySink
	onFault  func(PolicyFault)
}

// NewPolicy returns the users resource policy
func NewPolicy() *Policy {
	return &Policy{
		rules:    rules,
		logger:   defLogger{},
		activity: noopActivitySink{},
	}
}

func (p *Policy) WithLogger(l Logger) *Policy {
	p.logger = normalizeLogger(l)
	return p
}

func (p *Policy) WithActivitySink(sink ActivitySink) *Policy {
	p.activity = normalizeActivitySink(sink)
	return p
}

// WithFaultHandler registers an extra observer for evaluation faults
func (p *Policy) WithFaultHandler(fn func(PolicyFault)) *Policy {
	p.onFault = fn
	return p
}

// WithRule replaces the rule for a single action on this policy only
func (p *Policy) WithRule(action Action, fn func(actor, target *User) Decision) *Policy {
	next := make(map[Action]rule, len(p.rules)+1)
	for k, v := range p.rules {
		next[k] = v
	}
	next[action] = fn
	p.rules = next
	return p
}

// Decide maps (actor, action, target) to Allow or Deny
func (p *Policy) Decide(actor *User, action Action, target *User) (decision Decision) {
	r, ok := p.rules[action]
	if !ok || r == nil {
		return Deny
	}

	defer func() {
		if cause := recover(); cause != nil {
			decision = Deny
			p.fault(PolicyFault{Action: action, Cause: cause})
		}
	}()

	return r(actor, target)
}

func (p *Policy) fault(f PolicyFault) {
	p.logger.Error("policy fault, denying", "action", string(f.Action), "error", f.Error())
	emitActivity(context.Background(), p.activity, p.logger, ActivityEvent{
		EventType: ActivityEventPolicyFault,
		Metadata: map[string]any{
			"action": string(f.Action),
			"cause":  fmt.Sprint(f.Cause),
		},
	})
	if p.onFault != nil {
		p.onFault(f)
	}
}

var defaultPolicy = NewPolicy()

// Decide evaluates the default users policy
func Decide(actor *User, action Action, target *User) Decision {
	return defaultPolicy.Decide(actor, action, target)
}
