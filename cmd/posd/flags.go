package main

import (
	"flag"
	"fmt"
	"strconv"

	"github.com/valterra/pos/pkg/types"
)

// flagSet wraps flag.FlagSet to add support for the uint64 and Address flag
// types posd's subcommands need beyond what the standard package provides.
type flagSet struct {
	*flag.FlagSet
}

func newCustomFlagSet(name string) *flagSet {
	return &flagSet{FlagSet: flag.NewFlagSet(name, flag.ContinueOnError)}
}

// Uint64Var defines a uint64 flag.
func (fs *flagSet) Uint64Var(p *uint64, name string, value uint64, usage string) {
	fs.FlagSet.Var(&uint64Value{p: p}, name, usage)
	*p = value
}

// AddressVar defines a hex-address flag.
func (fs *flagSet) AddressVar(p *types.Address, name, value, usage string) {
	fs.FlagSet.Var(&addressValue{p: p}, name, usage)
	if value != "" {
		*p = types.HexToAddress(value)
	}
}

type uint64Value struct{ p *uint64 }

func (v *uint64Value) String() string {
	if v.p == nil {
		return "0"
	}
	return strconv.FormatUint(*v.p, 10)
}

func (v *uint64Value) Set(s string) error {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid uint64 value %q", s)
	}
	*v.p = n
	return nil
}

type addressValue struct{ p *types.Address }

func (v *addressValue) String() string {
	if v.p == nil {
		return ""
	}
	return v.p.Hex()
}

func (v *addressValue) Set(s string) error {
	*v.p = types.HexToAddress(s)
	return nil
}
