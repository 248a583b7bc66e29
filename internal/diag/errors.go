package diag

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Kind classifies a compilation failure.
type Kind int

const (
	InvalidSignature Kind = iota + 1
	UnknownNode
	UnknownSlot
	TypeMismatch
	SlotAlreadyBound
	CycleDetected
	UnresolvedRequiredInput
)

// Sentinel errors for programmatic error checking via errors.Is().
var (
	ErrInvalidSignature        = errors.New("invalid signature")
	ErrUnknownNode             = errors.New("unknown node")
	ErrUnknownSlot             = errors.New("unknown slot")
	ErrTypeMismatch            = errors.New("type mismatch")
	ErrSlotAlreadyBound        = errors.New("slot already bound")
	ErrCycleDetected           = errors.New("cycle detected")
	ErrUnresolvedRequiredInput = errors.New("unresolved required input")
)

var sentinels = map[Kind]error{
	InvalidSignature:        ErrInvalidSignature,
	UnknownNode:             ErrUnknownNode,
	UnknownSlot:             ErrUnknownSlot,
	TypeMismatch:            ErrTypeMismatch,
	SlotAlreadyBound:        ErrSlotAlreadyBound,
	CycleDetected:           ErrCycleDetected,
	UnresolvedRequiredInput: ErrUnresolvedRequiredInput,
}

// String returns the kind's name as used in log output.
func (k Kind) String() string {
	switch k {
	case InvalidSignature:
		return "InvalidSignature"
	case UnknownNode:
		return "UnknownNode"
	case UnknownSlot:
		return "UnknownSlot"
	case TypeMismatch:
		return "TypeMismatch"
	case SlotAlreadyBound:
		return "SlotAlreadyBound"
	case CycleDetected:
		return "CycleDetected"
	case UnresolvedRequiredInput:
		return "UnresolvedRequiredInput"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Error is a structured compilation error.
type Error struct {
	Kind Kind
	// Op is the operation tag involved, when there is one.
	Op string
	// Nodes are the offending node ids, in the order relevant to Kind:
	// source then target for connections.
	Nodes []int64
	// Slots are the offending slot names, aligned with Nodes where both apply.
	Slots []string
	// Cycle is the cycle path for CycleDetected: each node reads from the
	// next one, and the last reads from the first.
	Cycle []int64
	// Detail is a human readable explanation.
	Detail string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(sentinels[e.Kind].Error())
	if e.Op != "" {
		fmt.Fprintf(&sb, " [op %s]", e.Op)
	}
	if len(e.Nodes) > 0 {
		fmt.Fprintf(&sb, " [nodes %s]", joinIDs(e.Nodes, ", "))
	}
	if len(e.Slots) > 0 {
		fmt.Fprintf(&sb, " [slots %s]", strings.Join(e.Slots, ", "))
	}
	if len(e.Cycle) > 0 {
		path := append(append([]int64{}, e.Cycle...), e.Cycle[0])
		fmt.Fprintf(&sb, " [path %s]", joinIDs(path, " -> "))
	}
	if e.Detail != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Detail)
	}
	return sb.String()
}

// Unwrap returns the Kind's sentinel so errors.Is works.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return sentinels[e.Kind]
}

func joinIDs(ids []int64, sep string) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, sep)
}

// KindOf returns the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return 0
}

// Newf builds an *Error with a formatted detail message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// WithNodes records offending node ids and returns e.
func (e *Error) WithNodes(ids ...int64) *Error {
	e.Nodes = append(e.Nodes, ids...)
	return e
}

// WithSlots records offending slot names and returns e.
func (e *Error) WithSlots(slots ...string) *Error {
	e.Slots = append(e.Slots, slots...)
	return e
}

// WithOp records the operation tag and returns e.
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}
