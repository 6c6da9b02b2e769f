package release

import (
	"errors"
	"fmt"
	"strings"
)

// Arch is the target Windows architecture of the LÖVE runtime.
type Arch string

const (
	// Arch32 selects the 32-bit runtime.
	Arch32 Arch = "32"
	// Arch64 selects the 64-bit runtime.
	Arch64 Arch = "64"
)

// RuntimeExecutable is the engine binary the game package is fused onto.
const RuntimeExecutable = "love.exe"

// ErrUnsupportedArch is returned for anything other than 32 or 64.
var ErrUnsupportedArch = errors.New("unsupported architecture")

// SupportedArches lists the recognized values in display order.
func SupportedArches() []Arch {
	return []Arch{Arch32, Arch64}
}

// ParseArch accepts "32", "64" and the common win32/win64/x86/x64 spellings.
func ParseArch(s string) (Arch, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "32", "win32", "x86", "386":
		return Arch32, nil
	case "64", "win64", "x64", "amd64":
		return Arch64, nil
	default:
		return "", fmt.Errorf("%q (want %s): %w", s, SupportedArchesText(), ErrUnsupportedArch)
	}
}

// SupportedArchesText renders SupportedArches for messages and flag help, e.g. "32 or 64".
func SupportedArchesText() string {
	arches := SupportedArches()

	names := make([]string, 0, len(arches))
	for _, arch := range arches {
		names = append(names, arch.String())
	}

	return strings.Join(names, " or ")
}

// String implements fmt.Stringer.
func (a Arch) String() string {
	return string(a)
}

// RuntimeLibraries returns the DLLs that must ship next to the fused executable.
// The 32-bit runtime names its OpenAL build OpenAL32.dll, the 64-bit one OpenAL.dll.
func RuntimeLibraries(arch Arch) []string {
	openAL := "OpenAL.dll"
	if arch == Arch32 {
		openAL = "OpenAL32.dll"
	}

	return []string{
		"love.dll",
		"lua51.dll",
		openAL,
		"SDL2.dll",
		"mpg123.dll",
		"msvcp120.dll",
		"msvcr120.dll",
	}
}

// RuntimeFiles returns every file a usable runtime cache must contain.
func RuntimeFiles(arch Arch) []string {
	return append([]string{RuntimeExecutable}, RuntimeLibraries(arch)...)
}

// ExpandTemplate substitutes {arch} and {version} placeholders.
func ExpandTemplate(template string, arch Arch, version string) string {
	return strings.NewReplacer("{arch}", string(arch), "{version}", version).Replace(template)
}
