package value

import (
	"encoding/binary"
	"math"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"
)

// leafEncoding is the canonical wire shape fed to cbor before hashing a
// scalar. Tag disambiguates kinds that could otherwise collide once
// encoded (an Int and a Keyword sharing a textual form, for instance).
type leafEncoding struct {
	Tag  string
	Data interface{}
}

var encMode = func() cbor.EncMode {
	m, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return m
}()

// Hash returns a content-addressed 64-bit digest of v. Equal values always
// hash equal. Collections hash order-independently for Map and Set (an
// XOR of per-element digests) and order-dependently for List and Vector.
// Floats hash by canonical bit pattern: +0.0 and -0.0 collapse to the same
// digest, and every NaN payload collapses to one canonical NaN digest.
func Hash(v Value) uint64 {
	switch t := v.(type) {
	case *List:
		return hashSeq("list", t.Items)
	case *Vector:
		return hashSeq("vector", t.Items)
	case *MapVal:
		var h uint64
		for _, e := range t.entries {
			h ^= mix(Hash(e.Key), Hash(e.Val))
		}
		return h ^ hashLeaf("map-tag", nil)
	case *SetVal:
		var h uint64
		for _, item := range t.items {
			h ^= Hash(item)
		}
		return h ^ hashLeaf("set-tag", nil)
	case Float:
		bits := canonicalFloatBits(float64(t))
		return hashLeaf("float", bits)
	default:
		return hashLeafValue(v)
	}
}

func hashSeq(tag string, items []Value) uint64 {
	h := hashLeaf(tag, len(items))
	for _, item := range items {
		h = mix(h, Hash(item))
	}
	return h
}

func canonicalFloatBits(f float64) uint64 {
	if math.IsNaN(f) {
		return 0x7ff8000000000000 // canonical quiet NaN
	}
	if f == 0 {
		return 0 // collapses +0.0 and -0.0
	}
	return math.Float64bits(f)
}

func hashLeafValue(v Value) uint64 {
	switch t := v.(type) {
	case Nil:
		return hashLeaf("nil", nil)
	case Bool:
		return hashLeaf("bool", bool(t))
	case Int:
		// Equal compares an Int with a Float through float64, so an Int
		// hashes through the same float64 bits to keep equal numbers'
		// digests equal.
		return hashLeaf("float", canonicalFloatBits(float64(t)))
	case Char:
		return hashLeaf("char", int32(t))
	case Str:
		return hashLeaf("string", string(t))
	case Keyword:
		return hashLeaf("keyword", [2]string{t.Namespace, t.Name})
	case Symbol:
		return hashLeaf("symbol", [2]string{t.Namespace, t.Name})
	default:
		// Builtins, lambdas, macros, and recur sentinels are never valid
		// map/set keys; hash by type name so they don't crash if one
		// slips through construction.
		return hashLeaf("opaque", v.TypeName())
	}
}

func hashLeaf(tag string, data interface{}) uint64 {
	enc, err := encMode.Marshal(leafEncoding{Tag: tag, Data: data})
	if err != nil {
		// data is always one of the plain scalar shapes above; encoding
		// cannot fail for them.
		panic(err)
	}
	sum := blake2b.Sum512(enc)
	return binary.LittleEndian.Uint64(sum[:8])
}

func mix(a, b uint64) uint64 {
	a ^= b + 0x9e3779b97f4a7c15 + (a << 6) + (a >> 2)
	return a
}
