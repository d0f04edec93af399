package cipher

import "fmt"

// Kind identifies one of the three primitive transforms found in player
// scripts.
type Kind int

const (
	// KindReverse inverts the character order of the signature.
	KindReverse Kind = iota
	// KindSwap exchanges the first character with the one at Arg modulo the
	// current length.
	KindSwap
	// KindSlice drops the first Arg characters.
	KindSlice
)

var kindNames = map[Kind]string{
	KindReverse: "reverse",
	KindSwap:    "swap",
	KindSlice:   "slice",
}

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Operation is a single replayable transform. It carries only the parsed
// argument, never a reference back to the script it came from.
type Operation struct {
	Kind Kind
	Arg  int
}

// Reverse returns a reverse operation.
func Reverse() Operation { return Operation{Kind: KindReverse} }

// Swap returns a swap operation for index i.
func Swap(i int) Operation { return Operation{Kind: KindSwap, Arg: i} }

// Slice returns a slice operation dropping n leading characters.
func Slice(n int) Operation { return Operation{Kind: KindSlice, Arg: n} }

// String returns a compact form like "swap(3)" used in logs and tests.
func (op Operation) String() string {
	if op.Kind == KindReverse {
		return op.Kind.String()
	}
	return fmt.Sprintf("%s(%d)", op.Kind, op.Arg)
}

// Apply runs the operation against a signature. It is total: every input,
// including the empty string and out-of-range arguments, maps to a defined
// output.
func (op Operation) Apply(sig string) string {
	r := []rune(sig)
	switch op.Kind {
	case KindReverse:
		r = reverseRunes(r)
	case KindSwap:
		r = swapRunes(r, op.Arg)
	case KindSlice:
		r = sliceRunes(r, op.Arg)
	}
	return string(r)
}

// Decipher applies ops to sig in order, seeding the fold with sig itself.
// An empty operation list is the identity.
func Decipher(sig string, ops []Operation) string {
	for _, op := range ops {
		sig = op.Apply(sig)
	}
	return sig
}

func reverseRunes(r []rune) []rune {
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return r
}

// swapRunes exchanges r[0] and r[n % len(r)]. The modulo is taken on the
// length at call time, so the same argument means a different index after a
// preceding slice shortened the signature.
func swapRunes(r []rune, n int) []rune {
	if len(r) == 0 {
		return r
	}
	n %= len(r)
	if n < 0 {
		n += len(r)
	}
	r[0], r[n] = r[n], r[0]
	return r
}

func sliceRunes(r []rune, n int) []rune {
	if n < 0 {
		return r
	}
	if n > len(r) {
		return r[:0]
	}
	return r[n:]
}
