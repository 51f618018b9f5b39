// Package fixedn renders the fixed-point decimal tokens NEP-17 balances
// use (GAS with 8 decimals, NEO with 0) as human-readable strings, the
// formatting layer RPC/CLI collaborators would otherwise need (spec.md
// §1 "core answers ... RPC front-ends ... appear only via the contracts
// the core exposes to them").
package fixedn

import (
	"math/big"
	"strings"
)

// ToString renders n, understood as a fixed-point number with decimals
// fractional digits, in plain decimal notation with no trailing zeros
// past the decimal point.
func ToString(n *big.Int, decimals int) string {
	if decimals == 0 {
		return n.String()
	}
	neg := n.Sign() < 0
	abs := new(big.Int).Abs(n)
	s := abs.String()
	for len(s) <= decimals {
		s = "0" + s
	}
	intPart := s[:len(s)-decimals]
	fracPart := strings.TrimRight(s[len(s)-decimals:], "0")
	out := intPart
	if fracPart != "" {
		out += "." + fracPart
	}
	if neg {
		out = "-" + out
	}
	return out
}

// FromString parses a plain decimal string into its fixed-point integer
// representation with decimals fractional digits, the inverse of
// ToString.
func FromString(s string, decimals int) (*big.Int, error) {
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	parts := strings.SplitN(s, ".", 2)
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if len(fracPart) > decimals {
		fracPart = fracPart[:decimals] // truncate excess precision, matches fixed-point storage
	}
	for len(fracPart) < decimals {
		fracPart += "0"
	}
	n, ok := new(big.Int).SetString(intPart+fracPart, 10)
	if !ok {
		return nil, &parseError{s}
	}
	if neg {
		n.Neg(n)
	}
	return n, nil
}

type parseError struct{ s string }

func (e *parseError) Error() string { return "invalid fixed-point number: " + e.s }
