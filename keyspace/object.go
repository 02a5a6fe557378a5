package keyspace

import (
	"github.com/joeycumines/kvcore/hashtable"
	"github.com/joeycumines/kvcore/intset"
	"github.com/joeycumines/kvcore/listpack"
)

// Kind is the object-header encoding tag: which container, if any,
// actually backs a key's value.
type Kind int

const (
	// KindString holds a raw byte string directly, with no sub-container.
	KindString Kind = iota
	// KindIntSet backs a set-typed value purely of integers.
	KindIntSet
	// KindList backs a list-typed value as a packed entry list.
	KindList
	// KindHash backs a hash-typed value as a field -> value hash table.
	KindHash
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindIntSet:
		return "intset"
	case KindList:
		return "list"
	case KindHash:
		return "hash"
	default:
		return "unknown"
	}
}

// Object is the header every keyspace value carries: an encoding tag plus
// exactly one live container field, the way the source format tags a
// value with its encoding before dispatching to the type-specific
// implementation.
type Object struct {
	Kind   Kind
	Str    []byte
	IntSet *intset.IntSet
	List   *listpack.List
	Hash   *hashtable.Table[string, []byte]
}

// NewString wraps raw as a string object.
func NewString(raw []byte) *Object { return &Object{Kind: KindString, Str: raw} }

// NewIntSet wraps an empty intset object.
func NewIntSet() *Object { return &Object{Kind: KindIntSet, IntSet: intset.New()} }

// NewList wraps an empty list object.
func NewList() *Object { return &Object{Kind: KindList, List: listpack.New()} }

// NewHash wraps an empty hash object.
func NewHash() *Object {
	return &Object{Kind: KindHash, Hash: hashtable.New[string, []byte](hashtable.StringHasher)}
}
