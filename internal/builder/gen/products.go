package gen

import (
	"strconv"
	"strings"

	"github.com/qobs-build/cargo-xcode/internal/metadata"
)

// SharedRefs are the project-wide objects every native target points at
type SharedRefs struct {
	Manifest  Ref // Cargo.toml file reference
	BuildRule Ref // runs cargo for */Cargo.toml
	LipoPhase Ref // merges per-arch builds into a universal binary
}

// TargetGraph is the cluster of objects produced for one Target
type TargetGraph struct {
	Target  Ref // PBXNativeTarget
	Product Ref // PBXFileReference of the built product
	Objects []Object
}

// targetIDs are the identifiers of one cluster. All of them hang off the product id, which is unique
// per (file type, file name), so same-named targets of different kinds never share an id.
type targetIDs struct {
	product, target, confList, confRelease, confDebug, sources, manifestBuildFile string
}

func allocateTargetIDs(ids IDAllocator, t *Target) targetIDs {
	prod := ids.ID(t.FileType, t.CargoFileName)
	return targetIDs{
		product:           prod,
		target:            ids.ID(t.FileType, prod),
		confList:          ids.ID("<config-list>", prod),
		confRelease:       ids.ID("<config-release>", prod),
		confDebug:         ids.ID("<config-debug>", prod),
		sources:           ids.ID("<cargo>", prod),
		manifestBuildFile: ids.ID("<cargo-toml>", prod),
	}
}

// BuildTargetGraph creates the native target of t together with its build phase, build file,
// configurations and product reference
func BuildTargetGraph(ids IDAllocator, t Target, shared SharedRefs, version metadata.Version) TargetGraph {
	tid := allocateTargetIDs(ids, &t)

	product := Object{
		ID:      tid.product,
		Isa:     IsaFileReference,
		Comment: t.XcodeFileName,
		Body: Dict{
			{Key: "explicitFileType", Value: t.FileType},
			{Key: "includeInIndex", Value: 0},
			{Key: "name", Value: t.XcodeFileName},
			// Xcode writes a path for products but can't read it back; the build dir is enough
			{Key: "sourceTree", Value: "BUILT_PRODUCTS_DIR"},
		},
	}

	buildFile := Object{
		ID:      tid.manifestBuildFile,
		Isa:     IsaBuildFile,
		Comment: "Cargo.toml in Sources",
		Body: Dict{
			{Key: "fileRef", Value: shared.Manifest},
			{Key: "settings", Value: Dict{
				{Key: "COMPILER_FLAGS", Value: t.CompilerFlags, Comment: "== OTHER_INPUT_FILE_FLAGS"},
			}},
		},
	}

	sources := Object{
		ID:      tid.sources,
		Isa:     IsaSourcesBuildPhase,
		Comment: "Sources",
		Body: Dict{
			{Key: "buildActionMask", Value: 2147483647},
			{Key: "files", Value: List{buildFile.Ref()}},
			{Key: "runOnlyForDeploymentPostprocessing", Value: 0},
		},
	}

	native := Object{
		ID:      tid.target,
		Isa:     IsaNativeTarget,
		Comment: t.Name(),
	}

	confList, configs := configurationPair(
		tid.confList, tid.confRelease, tid.confDebug,
		`Build configuration list for PBXNativeTarget "`+t.Name()+`"`,
		targetBuildSettings(&t, version), nil, nil,
	)

	native.Body = Dict{
		{Key: "buildConfigurationList", Value: confList.Ref()},
		{Key: "buildPhases", Value: List{sources.Ref(), shared.LipoPhase}},
		{Key: "buildRules", Value: List{shared.BuildRule}},
		{Key: "dependencies", Value: List{}},
		{Key: "name", Value: t.Name()},
		{Key: "productName", Value: t.XcodeFileName},
		{Key: "productReference", Value: product.Ref()},
		{Key: "productType", Value: t.ProductType},
	}

	objects := []Object{native, sources, buildFile, confList}
	objects = append(objects, configs...)
	objects = append(objects, product)

	return TargetGraph{
		Target:  native.Ref(),
		Product: product.Ref(),
		Objects: objects,
	}
}

func targetBuildSettings(t *Target, version metadata.Version) Dict {
	settings := Dict{
		{Key: "PRODUCT_NAME", Value: t.ProductName},
		{Key: "CARGO_XCODE_CARGO_FILE_NAME", Value: t.CargoFileName},
		{Key: "CARGO_XCODE_CARGO_DEP_FILE_NAME", Value: t.DepFileName()},
		{Key: "SUPPORTED_PLATFORMS", Value: strings.Join(t.Platforms, " ")},
	}
	if t.SkipInstall {
		settings = append(settings,
			Field{Key: "SKIP_INSTALL", Value: "YES"},
			Field{Key: "INSTALL_GROUP", Value: ""},
			Field{Key: "INSTALL_MODE_FLAG", Value: ""},
			Field{Key: "INSTALL_OWNER", Value: ""},
		)
	}
	if t.IsDylib() && version.Major() != 1 {
		settings = append(settings, Field{Key: "DYLIB_COMPATIBILITY_VERSION", Value: strconv.Itoa(version.Major())})
	}
	return settings
}

// configurationPair builds a configuration list holding exactly Release (the default) and Debug.
// common settings go into both, releaseOnly and debugOnly are appended after them.
func configurationPair(listID, releaseID, debugID, comment string, common, releaseOnly, debugOnly Dict) (Object, []Object) {
	newConfig := func(id, name string, extra Dict) Object {
		settings := make(Dict, 0, len(common)+len(extra))
		settings = append(settings, common...)
		settings = append(settings, extra...)
		return Object{
			ID:      id,
			Isa:     IsaBuildConfiguration,
			Comment: name,
			Body: Dict{
				{Key: "buildSettings", Value: settings},
				{Key: "name", Value: name},
			},
		}
	}

	release := newConfig(releaseID, "Release", releaseOnly)
	debug := newConfig(debugID, "Debug", debugOnly)

	list := Object{
		ID:      listID,
		Isa:     IsaConfigurationList,
		Comment: comment,
		Body: Dict{
			{Key: "buildConfigurations", Value: List{release.Ref(), debug.Ref()}},
			{Key: "defaultConfigurationIsVisible", Value: 0},
			{Key: "defaultConfigurationName", Value: "Release"},
		},
	}
	return list, []Object{release, debug}
}
