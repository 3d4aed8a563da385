package gen

import (
	"strings"

	"github.com/qobs-build/cargo-xcode/internal/metadata"
)

// ProjectInfo is the package-wide input of AssembleProject
type ProjectInfo struct {
	Name         string // package name, the base of Xcode's output file names
	Version      metadata.Version
	ManifestPath string // Cargo.toml, relative to the directory containing the .xcodeproj
	Features     []string
	Scripts      ScriptParams
}

// archAndSDKSettings map Xcode's build context to the parts of a Rust target triple
var archAndSDKSettings = Dict{
	{Key: "CARGO_XCODE_TARGET_ARCH[arch=arm64*]", Value: "aarch64"},
	{Key: "CARGO_XCODE_TARGET_ARCH[arch=x86_64*]", Value: "x86_64", Comment: "catalyst adds h suffix"},
	{Key: "CARGO_XCODE_TARGET_ARCH[arch=i386]", Value: "i686"},
	{Key: "CARGO_XCODE_TARGET_OS[sdk=macosx*]", Value: "darwin"},
	{Key: "CARGO_XCODE_TARGET_OS[sdk=iphonesimulator*]", Value: "ios-sim"},
	{Key: "CARGO_XCODE_TARGET_OS[sdk=iphonesimulator*][arch=x86_64*]", Value: "ios"},
	{Key: "CARGO_XCODE_TARGET_OS[sdk=iphoneos*]", Value: "ios"},
	{Key: "CARGO_XCODE_TARGET_OS[sdk=appletvsimulator*]", Value: "tvos"},
	{Key: "CARGO_XCODE_TARGET_OS[sdk=appletvos*]", Value: "tvos"},
}

// AssembleProject builds the complete object graph: one cluster per target plus the groups, shared
// build rule and script phase, project configurations and the PBXProject itself.
func AssembleProject(ids IDAllocator, info ProjectInfo, targets []Target) *Project {
	p := &Project{
		RootID:    ids.ID("", "<project>"),
		Generator: strings.TrimSpace(info.Scripts.Tool + " " + info.Scripts.Version),
	}

	manifestPath := info.ManifestPath
	if manifestPath == "" {
		manifestPath = "Cargo.toml"
	}
	manifest := Object{
		ID:      ids.ID("", "Cargo.toml"),
		Isa:     IsaFileReference,
		Comment: "Cargo.toml",
		Body: Dict{
			{Key: "fileEncoding", Value: 4},
			{Key: "lastKnownFileType", Value: "text"},
			{Key: "name", Value: "Cargo.toml"},
			{Key: "path", Value: manifestPath},
			{Key: "sourceTree", Value: "<group>"},
		},
	}

	buildRule := Object{
		ID:      ids.ID("", "BuildRule"),
		Isa:     IsaBuildRule,
		Comment: "PBXBuildRule",
		Body: Dict{
			{Key: "compilerSpec", Value: "com.apple.compilers.proxy.script"},
			{Key: "dependencyFile", Value: "$(DERIVED_FILE_DIR)/$(CARGO_XCODE_TARGET_ARCH)-$(EXECUTABLE_NAME).d"},
			{Key: "filePatterns", Value: "*/Cargo.toml", Comment: "must contain asterisk"},
			{Key: "fileType", Value: "pattern.proxy"},
			{Key: "inputFiles", Value: List{}},
			{Key: "isEditable", Value: 0},
			{Key: "name", Value: "Cargo project build"},
			{Key: "outputFiles", Value: List{"$(OBJECT_FILE_DIR)/$(CARGO_XCODE_TARGET_ARCH)-$(EXECUTABLE_NAME)"}},
			{Key: "script", Value: RenderBuildScript(info.Scripts)},
		},
	}

	lipoPhase := Object{
		ID:      ids.ID("", "LipoScript"),
		Isa:     IsaShellScriptPhase,
		Comment: "Universal Binary lipo",
		Body: Dict{
			{Key: "buildActionMask", Value: 2147483647},
			{Key: "files", Value: List{}},
			{Key: "inputFileListPaths", Value: List{}},
			{Key: "inputPaths", Value: List{"$(DERIVED_FILE_DIR)/$(ARCHS)-$(EXECUTABLE_NAME).xcfilelist"}},
			{Key: "name", Value: "Universal Binary lipo"},
			{Key: "outputFileListPaths", Value: List{}},
			{Key: "outputPaths", Value: List{"$(TARGET_BUILD_DIR)/$(EXECUTABLE_PATH)"}},
			{Key: "runOnlyForDeploymentPostprocessing", Value: 0},
			{Key: "shellPath", Value: "/bin/sh"},
			{Key: "shellScript", Value: RenderLipoScript(info.Scripts)},
		},
	}

	p.Add(manifest, buildRule, lipoPhase)

	shared := SharedRefs{
		Manifest:  manifest.Ref(),
		BuildRule: buildRule.Ref(),
		LipoPhase: lipoPhase.Ref(),
	}

	productRefs := make(List, 0, len(targets))
	targetRefs := make(List, 0, len(targets))
	targetAttrs := make(Dict, 0, len(targets))
	hasStatic := false
	for _, t := range targets {
		graph := BuildTargetGraph(ids, t, shared, info.Version)
		p.Add(graph.Objects...)

		productRefs = append(productRefs, graph.Product)
		targetRefs = append(targetRefs, graph.Target)
		targetAttrs = append(targetAttrs, Field{Key: graph.Target.ID, Value: Dict{
			{Key: "CreatedOnToolsVersion", Value: "9.2"},
			{Key: "ProvisioningStyle", Value: "Automatic"},
		}})
		hasStatic = hasStatic || t.IsStatic()
	}

	// groups
	frameworks := Object{
		ID:      ids.ID("", "Frameworks"), // a magic name Xcode looks for
		Isa:     IsaGroup,
		Comment: "Frameworks",
		Body: Dict{
			{Key: "children", Value: List{}},
			{Key: "name", Value: "Frameworks"},
			{Key: "sourceTree", Value: "<group>"},
		},
	}
	products := Object{
		ID:      ids.ID("", "Products"),
		Isa:     IsaGroup,
		Comment: "Products",
		Body: Dict{
			{Key: "children", Value: productRefs},
			{Key: "name", Value: "Products"},
			{Key: "sourceTree", Value: "<group>"},
		},
	}

	mainChildren := List{manifest.Ref()}
	if hasStatic {
		// Rust's std needs libresolv when a static library is linked into an iOS or tvOS app
		libresolv := Object{
			ID:      ids.ID("", "libresolv.tbd"),
			Isa:     IsaFileReference,
			Comment: "libresolv.tbd",
			Body: Dict{
				{Key: "lastKnownFileType", Value: "sourcecode.text-based-dylib-definition"},
				{Key: "name", Value: "libresolv.tbd"},
				{Key: "path", Value: "usr/lib/libresolv.tbd"},
				{Key: "sourceTree", Value: "SDKROOT"},
			},
		}
		required := Object{
			ID:      ids.ID("", "Required Libraries"),
			Isa:     IsaGroup,
			Comment: "Required Libraries",
			Body: Dict{
				{Key: "children", Value: List{libresolv.Ref()}},
				{Key: "name", Value: "Required Libraries"},
				{Key: "sourceTree", Value: "<group>"},
			},
		}
		p.Add(libresolv, required)
		mainChildren = append(mainChildren, required.Ref())
	}
	mainChildren = append(mainChildren, products.Ref(), frameworks.Ref())

	mainGroup := Object{
		ID:      ids.ID("", "<root>"),
		Isa:     IsaGroup,
		Comment: "Main",
		Body: Dict{
			{Key: "children", Value: mainChildren},
			{Key: "sourceTree", Value: "<group>"},
		},
	}
	p.Add(frameworks, products, mainGroup)

	// project
	confList, configs := configurationPair(
		ids.ID("", "<configuration-list>"),
		ids.ID("configuration", "Release"),
		ids.ID("configuration", "Debug"),
		`Build configuration list for PBXProject "`+info.Name+`"`,
		projectBuildSettings(&info),
		Dict{{Key: "CARGO_XCODE_BUILD_MODE", Value: "release", Comment: "for xcode scripts"}},
		Dict{
			{Key: "CARGO_XCODE_BUILD_MODE", Value: "debug", Comment: "for xcode scripts"},
			{Key: "ONLY_ACTIVE_ARCH", Value: "YES"},
		},
	)
	p.Add(confList)
	p.Add(configs...)

	p.Add(Object{
		ID:      p.RootID,
		Isa:     IsaProject,
		Comment: "Project object",
		Body: Dict{
			{Key: "attributes", Value: Dict{
				{Key: "LastUpgradeCheck", Value: 1300},
				{Key: "TargetAttributes", Value: targetAttrs},
			}},
			{Key: "buildConfigurationList", Value: confList.Ref()},
			{Key: "compatibilityVersion", Value: "Xcode 11.4"},
			{Key: "developmentRegion", Value: "en"},
			{Key: "hasScannedForEncodings", Value: 0},
			{Key: "knownRegions", Value: List{"en", "Base"}},
			{Key: "mainGroup", Value: mainGroup.Ref()},
			{Key: "productRefGroup", Value: products.Ref()},
			{Key: "projectDirPath", Value: ""},
			{Key: "projectRoot", Value: ""},
			{Key: "targets", Value: targetRefs},
		},
	})

	return p
}

func projectBuildSettings(info *ProjectInfo) Dict {
	settings := Dict{
		{Key: "ALWAYS_SEARCH_USER_PATHS", Value: "NO"},
		{Key: "SUPPORTS_MACCATALYST", Value: "YES"},
		{Key: "CARGO_TARGET_DIR", Value: "$(PROJECT_TEMP_DIR)/cargo_target", Comment: "for cargo"},
		{Key: "CARGO_XCODE_FEATURES", Value: strings.Join(info.Features, ","), Comment: "configure yourself"},
	}
	settings = append(settings, archAndSDKSettings...)
	settings = append(settings,
		Field{Key: "PRODUCT_NAME", Value: info.Name},
		Field{Key: "MARKETING_VERSION", Value: info.Version.String()},
		Field{Key: "CURRENT_PROJECT_VERSION", Value: info.Version.MajorMinor()},
		Field{Key: "SDKROOT", Value: "macosx"},
	)
	return settings
}
