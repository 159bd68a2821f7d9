// Package flowcontrol implements the Flow Control decision function: given a
// Content Label and a destination, it returns allow, ask, or deny. It holds
// no state of its own — every decision is a pure function of its inputs.
package flowcontrol

import "github.com/haasonsaas/nexus/internal/labels"

// Decision is the outcome of a flow-control check.
type Decision int

const (
	Allow Decision = iota
	Ask
	Deny
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Ask:
		return "ask"
	case Deny:
		return "deny"
	default:
		return "unknown"
	}
}

// Destination names a sink that content may flow into.
type Destination int

const (
	// DestinationEgress is an outbound network write.
	DestinationEgress Destination = iota
	// DestinationSemanticMemory is a write to long-lived semantic/vector memory.
	DestinationSemanticMemory
	// DestinationWorkingMemory is a write to in-session working memory.
	DestinationWorkingMemory
	// DestinationToolChain is passing content as another tool's input.
	DestinationToolChain
)

// ToolChainOptions qualifies a DestinationToolChain check.
type ToolChainOptions struct {
	// SinkLeaks is true when the destination tool may itself leak content
	// further (e.g. it writes to the network or to a file a third party
	// can read).
	SinkLeaks bool
	// SinkSanitizes is true when the destination tool redacts/sanitizes
	// its input before acting on it.
	SinkSanitizes bool
}

// Check evaluates a flow-control decision for content carrying label l
// flowing to destination dest. opts is only consulted for
// DestinationToolChain; pass the zero value otherwise.
func Check(l labels.Label, dest Destination, opts ToolChainOptions) Decision {
	switch dest {
	case DestinationEgress:
		return checkEgress(l)
	case DestinationSemanticMemory:
		return checkSemanticMemory(l)
	case DestinationWorkingMemory:
		return checkWorkingMemory(l)
	case DestinationToolChain:
		return checkToolChain(l, opts)
	default:
		return Deny
	}
}

func checkEgress(l labels.Label) Decision {
	if l.DataClass == labels.ClassSecret {
		return Deny
	}
	if l.Trust == labels.TrustUntrusted && l.DataClass == labels.ClassSensitive {
		return Deny
	}
	if l.DataClass == labels.ClassSensitive {
		return Ask
	}
	return Allow
}

func checkSemanticMemory(l labels.Label) Decision {
	switch l.Trust {
	case labels.TrustUntrusted:
		return Deny
	case labels.TrustVerified:
		return Ask
	default:
		return Allow
	}
}

func checkWorkingMemory(l labels.Label) Decision {
	if l.DataClass == labels.ClassSecret {
		return Deny
	}
	return Allow
}

func checkToolChain(l labels.Label, opts ToolChainOptions) Decision {
	if l.DataClass == labels.ClassSecret && !opts.SinkSanitizes {
		return Deny
	}
	if l.Trust == labels.TrustUntrusted && opts.SinkLeaks {
		return Ask
	}
	return Allow
}
