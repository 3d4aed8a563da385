package gen

import (
	"path/filepath"
	"slices"
	"strings"

	"github.com/qobs-build/cargo-xcode/internal/metadata"
)

// cargo target kinds that turn into Xcode products
const (
	KindBin       = "bin"
	KindCdylib    = "cdylib"
	KindStaticlib = "staticlib"
)

const (
	productTypeTool           = "com.apple.product-type.tool"
	productTypeDynamicLibrary = "com.apple.product-type.library.dynamic"
	productTypeStaticLibrary  = "com.apple.product-type.library.static"

	fileTypeExecutable = "compiled.mach-o.executable"
	fileTypeDylib      = "compiled.mach-o.dylib"
	fileTypeArchive    = "archive.ar"
)

var (
	desktopPlatforms = []string{"macosx"}
	// static libraries are the only products that can be linked into iOS and tvOS apps
	allPlatforms = []string{"macosx", "iphonesimulator", "iphoneos", "appletvsimulator", "appletvos"}
)

// Target is one Xcode product derived from a (cargo target, kind) pair
type Target struct {
	Kind          string
	BaseName      string
	CargoFileName string // what cargo writes into target/<triple>/<mode>/
	XcodeFileName string // what the product is called inside Xcode
	ProductName   string
	FileType      string
	ProductType   string
	CompilerFlags string // passed to cargo by the build rule
	Platforms     []string
	SkipInstall   bool
}

// Name is the native target's display name
func (t *Target) Name() string {
	return t.BaseName + "-" + t.Kind
}

// DepFileName is the name of the makefile-style dep-info file cargo writes next to the artifact
func (t *Target) DepFileName() string {
	return strings.TrimSuffix(t.CargoFileName, filepath.Ext(t.CargoFileName)) + ".d"
}

func (t *Target) IsStatic() bool { return t.ProductType == productTypeStaticLibrary }
func (t *Target) IsDylib() bool  { return t.ProductType == productTypeDynamicLibrary }

// KindFilter selects which kinds are emitted. A nil filter accepts every supported kind.
type KindFilter func(kind string) bool

// OnlyKind returns a filter accepting just the given kind
func OnlyKind(kind string) KindFilter {
	return func(k string) bool { return k == kind }
}

// libFileStem is how rustc names library artifacts: hyphens are not valid in crate names
func libFileStem(name string) string {
	return "lib" + strings.ReplaceAll(name, "-", "_")
}

// ClassifyTargets turns cargo targets into Xcode products, in target order and then kind order.
// Kinds other than bin, cdylib and staticlib are ignored.
func ClassifyTargets(targets []metadata.Target, filter KindFilter) []Target {
	var out []Target
	for _, target := range targets {
		for _, kind := range target.Kinds {
			if filter != nil && !filter(kind) {
				continue
			}
			if t, ok := classify(target, kind); ok {
				out = append(out, t)
			}
		}
	}
	return out
}

func classify(target metadata.Target, kind string) (Target, bool) {
	name := target.Name
	t := Target{Kind: kind, BaseName: name}

	switch kind {
	case KindBin:
		t.CargoFileName = name
		t.XcodeFileName = name
		t.ProductName = name
		t.FileType = fileTypeExecutable
		t.ProductType = productTypeTool
		t.CompilerFlags = "--bin '" + name + "'"
		if len(target.RequiredFeatures) > 0 {
			t.CompilerFlags += " --features '" + strings.Join(target.RequiredFeatures, ",") + "'"
		}
		t.Platforms = slices.Clone(desktopPlatforms)
	case KindCdylib:
		t.CargoFileName = libFileStem(name) + ".dylib"
		t.XcodeFileName = name + ".dylib"
		t.ProductName = name
		t.FileType = fileTypeDylib
		t.ProductType = productTypeDynamicLibrary
		t.CompilerFlags = "--lib"
		t.Platforms = slices.Clone(desktopPlatforms)
	case KindStaticlib:
		t.CargoFileName = libFileStem(name) + ".a"
		// Xcode refuses to build a static and a dynamic library with the same product name,
		// so the static one always gets a suffix
		t.XcodeFileName = "lib" + name + "_static.a"
		t.ProductName = name + "_static"
		t.FileType = fileTypeArchive
		t.ProductType = productTypeStaticLibrary
		t.CompilerFlags = "--lib"
		t.Platforms = slices.Clone(allPlatforms)
		// archiving tries to chmod the installed copy of an intermediate library and fails
		t.SkipInstall = true
	default:
		return Target{}, false
	}

	return t, true
}
