package gen

import (
	"strings"
	"text/template"
)

// ScriptParams is the full set of placeholders the embedded scripts may use
type ScriptParams struct {
	Tool    string // name of this generator, for the "generated with" banner
	Version string
}

// buildScriptTemplate is the body of the PBXBuildRule. Xcode runs it once per architecture and
// platform, with SCRIPT_INPUT_FILE set to Cargo.toml and the target's COMPILER_FLAGS in
// OTHER_INPUT_FILE_FLAGS.
const buildScriptTemplate = `# generated with {{.Tool}} {{.Version}}

set -eu; export PATH="$HOME/.cargo/bin:$PATH:/usr/local/bin";
if [ "${IS_MACCATALYST-NO}" = YES ]; then
    CARGO_XCODE_TARGET_TRIPLE="${CARGO_XCODE_TARGET_ARCH}-apple-ios-macabi"
    CARGO_XCODE_USE_NIGHTLY="+nightly"
    CARGO_XCODE_BUILD_FLAGS="-Z build-std=panic_abort,std"
else
    CARGO_XCODE_TARGET_TRIPLE="${CARGO_XCODE_TARGET_ARCH}-apple-${CARGO_XCODE_TARGET_OS}"
    CARGO_XCODE_USE_NIGHTLY=""
    CARGO_XCODE_BUILD_FLAGS=""
fi
if [ "$CARGO_XCODE_TARGET_OS" != "darwin" ]; then
    # the host build scripts must not pick up Xcode's ld, it can't link against the host libSystem
    PATH="${PATH/\/Contents\/Developer\/Toolchains\/XcodeDefault.xctoolchain\/usr\/bin:/xcode-provided-ld-cant-link-lSystem-for-the-host-build-script:}"
fi
# crates often need extra tools (nasm, cmake) that Xcode's environment lacks
PATH="$PATH:/opt/homebrew/bin"
if [ "$CARGO_XCODE_BUILD_MODE" == release ]; then
    OTHER_INPUT_FILE_FLAGS="${OTHER_INPUT_FILE_FLAGS} --release"
fi
if command -v rustup &> /dev/null; then
    if ! rustup target list --installed | egrep -q "${CARGO_XCODE_TARGET_TRIPLE}"; then
        echo "warning: this build requires rustup toolchain for $CARGO_XCODE_TARGET_TRIPLE, but it isn't installed"
    fi
fi
if [ "$ACTION" = clean ]; then
 ( set -x; cargo $CARGO_XCODE_USE_NIGHTLY clean $CARGO_XCODE_BUILD_FLAGS --manifest-path="$SCRIPT_INPUT_FILE" ${OTHER_INPUT_FILE_FLAGS} --target="${CARGO_XCODE_TARGET_TRIPLE}"; );
else
 ( set -x; cargo $CARGO_XCODE_USE_NIGHTLY build $CARGO_XCODE_BUILD_FLAGS --manifest-path="$SCRIPT_INPUT_FILE" --features="${CARGO_XCODE_FEATURES:-}" ${OTHER_INPUT_FILE_FLAGS} --target="${CARGO_XCODE_TARGET_TRIPLE}"; );
fi

# hardlink cargo's artifact to the output path declared in the build rule
BUILT_SRC="${CARGO_TARGET_DIR}/${CARGO_XCODE_TARGET_TRIPLE}/${CARGO_XCODE_BUILD_MODE}/${CARGO_XCODE_CARGO_FILE_NAME}"
ln -f -- "$BUILT_SRC" "$SCRIPT_OUTPUT_FILE_0"

# cargo's dep file names its own artifact path, add a rule for the hardlink
DEP_FILE_SRC="${CARGO_TARGET_DIR}/${CARGO_XCODE_TARGET_TRIPLE}/${CARGO_XCODE_BUILD_MODE}/${CARGO_XCODE_CARGO_DEP_FILE_NAME}"
if [ -f "$DEP_FILE_SRC" ]; then
    DEP_FILE_DST="${DERIVED_FILE_DIR}/${CARGO_XCODE_TARGET_ARCH}-${EXECUTABLE_NAME}.d"
    cp -f "$DEP_FILE_SRC" "$DEP_FILE_DST"

    echo >> "$DEP_FILE_DST" "$(echo "$SCRIPT_OUTPUT_FILE_0" | sed 's/ /\\ /g'): $(echo "$BUILT_SRC" | sed 's/ /\\ /g')"
fi

# record every per-arch output for the lipo phase. ARCHS is part of the name so the list
# is rebuilt from scratch when the architecture set changes. Must match the lipo phase's input.
FILE_LIST="${DERIVED_FILE_DIR}/${ARCHS}-${EXECUTABLE_NAME}.xcfilelist"
touch "$FILE_LIST"
if ! egrep -q "$SCRIPT_OUTPUT_FILE_0" "$FILE_LIST" ; then
    echo >> "$FILE_LIST" "$SCRIPT_OUTPUT_FILE_0"
fi
`

// lipoScriptTemplate is the body of the PBXShellScriptBuildPhase that runs once per target after
// every architecture was built
const lipoScriptTemplate = `# generated with {{.Tool}} {{.Version}}

set -eux; cat "$DERIVED_FILE_DIR/$ARCHS-$EXECUTABLE_NAME.xcfilelist" | tr '\n' '\0' | xargs -0 lipo -create -output "$TARGET_BUILD_DIR/$EXECUTABLE_PATH"
if [ ${LD_DYLIB_INSTALL_NAME:+1} ]; then
    install_name_tool -id "$LD_DYLIB_INSTALL_NAME" "$TARGET_BUILD_DIR/$EXECUTABLE_PATH"
fi
`

var (
	buildScript = template.Must(template.New("build").Option("missingkey=error").Parse(buildScriptTemplate))
	lipoScript  = template.Must(template.New("lipo").Option("missingkey=error").Parse(lipoScriptTemplate))
)

func render(tpl *template.Template, params ScriptParams) string {
	var sb strings.Builder
	if err := tpl.Execute(&sb, params); err != nil {
		// the templates are constants and ScriptParams has every field they use
		panic(err)
	}
	return sb.String()
}

// RenderBuildScript returns the shell script of the cargo build rule
func RenderBuildScript(params ScriptParams) string { return render(buildScript, params) }

// RenderLipoScript returns the shell script of the universal binary phase
func RenderLipoScript(params ScriptParams) string { return render(lipoScript, params) }
