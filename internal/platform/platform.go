// Package platform describes the C data model of a target triple: pointer
// width, the size of long and wchar_t, and the alignment quirks of 64-bit
// integers on 32-bit System V targets.
package platform

import (
	"fmt"
	"sort"
	"strings"
)

// Arch is the normalized CPU architecture of a triple.
type Arch string

const (
	ArchX64     Arch = "x86_64"
	ArchX86     Arch = "i686"
	ArchARM64   Arch = "aarch64"
	ArchARM     Arch = "arm"
	ArchRISCV64 Arch = "riscv64"
	ArchWasm32  Arch = "wasm32"
)

// Platform describes the ABI target triple and its scalar properties.
type Platform struct {
	Triple string // e.g. "x86_64-unknown-linux-gnu"
	Arch   Arch
	Vendor string
	OS     string
	Env    string

	PtrSize    int // bytes
	PtrAlign   int // bytes
	LongSize   int
	WCharSize  int
	Int64Align int // alignment of long long / double inside aggregates
}

// Windows reports whether the triple targets the Windows LLP64 model.
func (p Platform) Windows() bool {
	return p.OS == "windows"
}

func (p Platform) String() string {
	return p.Triple
}

var archAliases = map[string]Arch{
	"x86_64":  ArchX64,
	"amd64":   ArchX64,
	"i386":    ArchX86,
	"i486":    ArchX86,
	"i586":    ArchX86,
	"i686":    ArchX86,
	"x86":     ArchX86,
	"aarch64": ArchARM64,
	"arm64":   ArchARM64,
	"arm":     ArchARM,
	"armv7":   ArchARM,
	"armv7a":  ArchARM,
	"riscv64": ArchRISCV64,
	"wasm32":  ArchWasm32,
}

var knownOS = map[string]struct{}{
	"linux":   {},
	"windows": {},
	"darwin":  {},
	"macos":   {},
	"ios":     {},
	"android": {},
	"freebsd": {},
	"wasi":    {},
	"none":    {},
}

// Parse splits a triple of the form arch-vendor-os[-env] (the vendor may be
// omitted, as in "aarch64-linux-android") and derives its data model.
func Parse(triple string) (Platform, error) {
	triple = strings.TrimSpace(triple)
	parts := strings.Split(triple, "-")
	if len(parts) < 2 {
		return Platform{}, fmt.Errorf("platform %q: expected arch-vendor-os[-env]", triple)
	}
	arch, ok := archAliases[strings.ToLower(parts[0])]
	if !ok {
		return Platform{}, fmt.Errorf("platform %q: unknown architecture %q", triple, parts[0])
	}

	p := Platform{Triple: triple, Arch: arch}
	rest := parts[1:]
	if _, isOS := knownOS[osName(rest[0])]; isOS {
		p.Vendor = "unknown"
	} else {
		p.Vendor = rest[0]
		rest = rest[1:]
	}
	if len(rest) == 0 {
		return Platform{}, fmt.Errorf("platform %q: missing operating system", triple)
	}
	p.OS = osName(rest[0])
	if _, isOS := knownOS[p.OS]; !isOS {
		return Platform{}, fmt.Errorf("platform %q: unknown operating system %q", triple, rest[0])
	}
	if len(rest) > 1 {
		p.Env = strings.Join(rest[1:], "-")
	}

	switch arch {
	case ArchX64, ArchARM64, ArchRISCV64:
		p.PtrSize = 8
	default:
		p.PtrSize = 4
	}
	p.PtrAlign = p.PtrSize
	p.LongSize = p.PtrSize
	if p.Windows() {
		p.LongSize = 4
	}
	p.WCharSize = 4
	if p.Windows() {
		p.WCharSize = 2
	}
	p.Int64Align = 8
	if arch == ArchX86 && !p.Windows() {
		p.Int64Align = 4
	}
	return p, nil
}

// MustParse is Parse for triples known at compile time.
func MustParse(triple string) Platform {
	p, err := Parse(triple)
	if err != nil {
		panic(err)
	}
	return p
}

func osName(s string) string {
	s = strings.ToLower(s)
	// darwin triples carry a version suffix: x86_64-apple-darwin21.6.0
	if strings.HasPrefix(s, "darwin") {
		return "darwin"
	}
	if strings.HasPrefix(s, "macos") {
		return "macos"
	}
	if strings.HasPrefix(s, "ios") {
		return "ios"
	}
	return s
}

// Sort orders platforms by triple so cross-platform joins are deterministic.
func Sort(ps []Platform) {
	sort.Slice(ps, func(i, j int) bool { return ps[i].Triple < ps[j].Triple })
}
