package gen

import (
	"strings"
	"testing"

	"github.com/qobs-build/cargo-xcode/internal/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"howett.net/plist"
)

func TestQuote(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"macosx", "macosx"},
		{"usr/lib/libresolv.tbd", "usr/lib/libresolv.tbd"},
		{"", `""`},
		{"<group>", `"<group>"`},
		{"a b", `"a b"`},
		{"--lib", `"--lib"`},
		{"$(ARCHS)", `"$(ARCHS)"`},
		{`say "hi"`, `"say \"hi\""`},
		{`back\slash`, `"back\\slash"`},
		{"line\nbreak\ttab\r", `"line\nbreak\ttab\r"`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, quote(tt.in), "quote(%q)", tt.in)
	}
}

func TestComment(t *testing.T) {
	assert.Equal(t, "", comment(""))
	assert.Equal(t, " /* Products */", comment("Products"))
	assert.Equal(t, " /* a * / b */", comment("a */ b"))
}

func TestSerializeLayout(t *testing.T) {
	p := &Project{RootID: "CA6000000000000000000001", Generator: "cargo-xcode test"}
	p.Add(
		Object{ID: "CA6000000000000000000003", Isa: IsaGroup, Comment: "B", Body: Dict{
			{Key: "children", Value: List{Ref{ID: "CA6000000000000000000004", Comment: "x.txt"}}},
			{Key: "sourceTree", Value: "<group>"},
		}},
		Object{ID: "CA6000000000000000000002", Isa: IsaGroup, Comment: "A", Body: Dict{
			{Key: "children", Value: List{}},
		}},
		Object{ID: "CA6000000000000000000004", Isa: IsaFileReference, Comment: "x.txt", Body: Dict{
			{Key: "includeInIndex", Value: 0},
			{Key: "path", Value: "x.txt", Comment: "note"},
		}},
		Object{ID: p.RootID, Isa: IsaProject, Comment: "Project object", Body: Dict{
			{Key: "attributes", Value: Dict{{Key: "LastUpgradeCheck", Value: 1300}}},
		}},
	)

	want := `// !$*UTF8*$!
{
	/* generated with cargo-xcode test */
	archiveVersion = 1;
	classes = {
	};
	objectVersion = 53;
	objects = {

/* Begin PBXFileReference section */
		CA6000000000000000000004 /* x.txt */ = {
			isa = PBXFileReference;
			includeInIndex = 0;
			path = x.txt; /* note */
		};
/* End PBXFileReference section */

/* Begin PBXGroup section */
		CA6000000000000000000002 /* A */ = {
			isa = PBXGroup;
			children = (
			);
		};
		CA6000000000000000000003 /* B */ = {
			isa = PBXGroup;
			children = (
				CA6000000000000000000004 /* x.txt */,
			);
			sourceTree = "<group>";
		};
/* End PBXGroup section */

/* Begin PBXProject section */
		CA6000000000000000000001 /* Project object */ = {
			isa = PBXProject;
			attributes = {
				LastUpgradeCheck = 1300;
			};
		};
/* End PBXProject section */
	};
	rootObject = CA6000000000000000000001 /* Project object */;
}
`
	assert.Equal(t, want, Serialize(p))
}

func TestSerializeUnsupportedValue(t *testing.T) {
	p := &Project{RootID: "R"}
	p.Add(Object{ID: "R", Isa: IsaProject, Body: Dict{{Key: "bad", Value: 1.5}}})
	assert.Panics(t, func() { Serialize(p) })
}

func fullProject() *Project {
	info := ProjectInfo{
		Name:         "foo",
		Version:      metadata.MustParseVersion("2.0.0"),
		ManifestPath: "../foo/Cargo.toml",
		Features:     []string{"a", "b"},
		Scripts:      ScriptParams{Tool: "cargo-xcode", Version: "test"},
	}
	targets := ClassifyTargets([]metadata.Target{
		{Name: "foo", Kinds: []string{"cdylib", "staticlib"}},
		{Name: "foo-cli", Kinds: []string{"bin"}, RequiredFeatures: []string{"cli"}},
	}, nil)
	return AssembleProject(NewIDAllocator("path+file:///src/foo#2.0.0"), info, targets)
}

func TestSerializeDeterministic(t *testing.T) {
	first := Serialize(fullProject())
	for range 5 {
		assert.Equal(t, first, Serialize(fullProject()))
	}
}

// the output must stay readable by a standard property list parser
func TestSerializeRoundTrip(t *testing.T) {
	data := Serialize(fullProject())

	var doc map[string]any
	_, err := plist.Unmarshal([]byte(data), &doc)
	require.NoError(t, err)

	objects, ok := doc["objects"].(map[string]any)
	require.True(t, ok)
	rootID, ok := doc["rootObject"].(string)
	require.True(t, ok)

	root, ok := objects[rootID].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "PBXProject", root["isa"])

	targets, ok := root["targets"].([]any)
	require.True(t, ok)
	assert.Len(t, targets, 3)

	groupID, ok := root["productRefGroup"].(string)
	require.True(t, ok)
	products, ok := objects[groupID].(map[string]any)
	require.True(t, ok)
	assert.Len(t, products["children"], 3)

	// scripts survive escaping intact
	var rule map[string]any
	for _, o := range objects {
		if obj := o.(map[string]any); obj["isa"] == "PBXBuildRule" {
			rule = obj
		}
	}
	require.NotNil(t, rule)
	assert.Equal(t, RenderBuildScript(ScriptParams{Tool: "cargo-xcode", Version: "test"}), rule["script"])

	// every native target carries its cargo flags through the build file
	flags := map[string]bool{}
	for _, o := range objects {
		obj := o.(map[string]any)
		if obj["isa"] != "PBXBuildFile" {
			continue
		}
		settings := obj["settings"].(map[string]any)
		flags[settings["COMPILER_FLAGS"].(string)] = true
	}
	assert.Equal(t, map[string]bool{"--lib": true, "--bin 'foo-cli' --features 'cli'": true}, flags)
}

func TestSerializeSectionsSorted(t *testing.T) {
	data := Serialize(fullProject())

	var sections []string
	for _, line := range strings.Split(data, "\n") {
		if name, ok := strings.CutPrefix(line, "/* Begin "); ok {
			sections = append(sections, strings.TrimSuffix(name, " section */"))
		}
	}
	assert.Equal(t, []string{
		"PBXBuildFile",
		"PBXBuildRule",
		"PBXFileReference",
		"PBXGroup",
		"PBXNativeTarget",
		"PBXProject",
		"PBXShellScriptBuildPhase",
		"PBXSourcesBuildPhase",
		"XCBuildConfiguration",
		"XCConfigurationList",
	}, sections)
}
