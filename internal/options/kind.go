package options

import (
	"fmt"
	"sort"
)

// ExecutionKind selects the backend call sequence used for an item.
type ExecutionKind int

const (
	// KindScript is submitted, awaited, its results fetched and optionally forgotten.
	KindScript ExecutionKind = iota
	// KindQuery is submitted and awaited.
	KindQuery
	// KindYqlScript is submitted and awaited using the engine's script dialect.
	KindYqlScript
	// KindAsync is submitted without waiting for completion.
	KindAsync
)

var kindNames = map[string]ExecutionKind{
	"script":     KindScript,
	"query":      KindQuery,
	"yql-script": KindYqlScript,
	"async":      KindAsync,
}

func (k ExecutionKind) String() string {
	for name, kind := range kindNames {
		if kind == k {
			return name
		}
	}
	return fmt.Sprintf("ExecutionKind(%d)", int(k))
}

// Synchronous reports whether the run loop waits for the item to finish.
func (k ExecutionKind) Synchronous() bool {
	return k != KindAsync
}

// ParseExecutionKind maps a CLI/run-file name to an ExecutionKind.
func ParseExecutionKind(name string) (ExecutionKind, error) {
	kind, ok := kindNames[name]
	if !ok {
		return 0, fmt.Errorf("unknown execution case %q, expected one of %v", name, KindNames())
	}
	return kind, nil
}

// KindNames lists the accepted execution case names in sorted order.
func KindNames() []string {
	names := make([]string, 0, len(kindNames))
	for name := range kindNames {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Action tells the backend whether to run a query or only explain it.
type Action int

const (
	ActionExecute Action = iota
	ActionExplain
)

func (a Action) String() string {
	switch a {
	case ActionExecute:
		return "execute"
	case ActionExplain:
		return "explain"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// ParseAction maps "execute" or "explain" to an Action.
func ParseAction(name string) (Action, error) {
	switch name {
	case "execute":
		return ActionExecute, nil
	case "explain":
		return ActionExplain, nil
	default:
		return 0, fmt.Errorf("unknown script action %q, expected execute or explain", name)
	}
}
