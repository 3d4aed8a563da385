package metadata

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/mod/semver"
)

// ErrMalformed is returned when the metadata document breaks the shape cargo promises.
var ErrMalformed = errors.New("malformed cargo metadata")

// Package is one entry of `cargo metadata`'s "packages" array, reduced to what project generation needs
type Package struct {
	ID           string // opaque and unique, e.g. "path+file:///src/foo#0.1.0"
	Name         string
	Version      Version
	ManifestPath string
	Targets      []Target
}

// Target is a cargo build target (lib, bin, example, ...)
type Target struct {
	Name             string
	Kinds            []string
	RequiredFeatures []string
}

// Kinds returns every distinct target kind in the package, in discovery order
func (p *Package) Kinds() []string {
	var kinds []string
	seen := make(map[string]bool)
	for _, t := range p.Targets {
		for _, k := range t.Kinds {
			if !seen[k] {
				seen[k] = true
				kinds = append(kinds, k)
			}
		}
	}
	return kinds
}

// TargetNames returns the names of all targets in discovery order
func (p *Package) TargetNames() []string {
	names := make([]string, 0, len(p.Targets))
	for _, t := range p.Targets {
		names = append(names, t.Name)
	}
	return names
}

// Version is a validated semantic version as written in Cargo.toml (without a "v" prefix)
type Version struct {
	raw   string
	major int
	minor int
}

// ParseVersion validates a semver string such as "1.2.3" or "0.4.0-beta.1+build5"
func ParseVersion(s string) (Version, error) {
	canon := "v" + s
	// semver accepts "v1.2" shorthand, cargo never writes it
	core, _, _ := strings.Cut(strings.SplitN(s, "+", 2)[0], "-")
	if !semver.IsValid(canon) || strings.Count(core, ".") != 2 {
		return Version{}, fmt.Errorf("%w: invalid version %q", ErrMalformed, s)
	}
	// MajorMinor is "vX.Y"
	majorStr, minorStr, _ := strings.Cut(strings.TrimPrefix(semver.MajorMinor(canon), "v"), ".")
	major, err := strconv.Atoi(majorStr)
	if err != nil {
		return Version{}, fmt.Errorf("%w: invalid major version in %q", ErrMalformed, s)
	}
	minor, err := strconv.Atoi(minorStr)
	if err != nil {
		return Version{}, fmt.Errorf("%w: invalid minor version in %q", ErrMalformed, s)
	}
	return Version{raw: s, major: major, minor: minor}, nil
}

// MustParseVersion is like ParseVersion but panics on error. Meant for tests and constants.
func MustParseVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

func (v Version) String() string { return v.raw }
func (v Version) Major() int     { return v.major }
func (v Version) Minor() int     { return v.minor }

// MajorMinor returns "X.Y"
func (v Version) MajorMinor() string {
	return strconv.Itoa(v.major) + "." + strconv.Itoa(v.minor)
}

// Parse reads a `cargo metadata --format-version 1` JSON document
func Parse(rdr io.Reader) ([]*Package, error) {
	data, err := io.ReadAll(rdr)
	if err != nil {
		return nil, err
	}
	return ParseBytes(data)
}

func ParseBytes(data []byte) ([]*Package, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: not a JSON document", ErrMalformed)
	}
	doc := gjson.ParseBytes(data)

	if v := doc.Get("version"); v.Exists() && v.Int() != 1 {
		return nil, fmt.Errorf("%w: unsupported format version %d", ErrMalformed, v.Int())
	}

	packagesJSON := doc.Get("packages")
	if !packagesJSON.IsArray() {
		return nil, fmt.Errorf("%w: missing \"packages\" array", ErrMalformed)
	}

	var packages []*Package
	var parseErr error
	packagesJSON.ForEach(func(_, p gjson.Result) bool {
		pkg, err := parsePackage(p)
		if err != nil {
			parseErr = err
			return false
		}
		packages = append(packages, pkg)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return packages, nil
}

func requiredString(obj gjson.Result, key, where string) (string, error) {
	v := obj.Get(key)
	if v.Type != gjson.String || v.String() == "" {
		return "", fmt.Errorf("%w: %s has no %q", ErrMalformed, where, key)
	}
	return v.String(), nil
}

func stringArray(v gjson.Result) []string {
	var out []string
	v.ForEach(func(_, item gjson.Result) bool {
		out = append(out, item.String())
		return true
	})
	return out
}

func parsePackage(p gjson.Result) (*Package, error) {
	name, err := requiredString(p, "name", "package")
	if err != nil {
		return nil, err
	}
	where := fmt.Sprintf("package %q", name)

	id, err := requiredString(p, "id", where)
	if err != nil {
		return nil, err
	}
	rawVersion, err := requiredString(p, "version", where)
	if err != nil {
		return nil, err
	}
	version, err := ParseVersion(rawVersion)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", where, err)
	}
	manifestPath, err := requiredString(p, "manifest_path", where)
	if err != nil {
		return nil, err
	}

	pkg := &Package{
		ID:           id,
		Name:         name,
		Version:      version,
		ManifestPath: manifestPath,
	}

	var targetErr error
	p.Get("targets").ForEach(func(_, t gjson.Result) bool {
		target, err := parseTarget(t, where)
		if err != nil {
			targetErr = err
			return false
		}
		pkg.Targets = append(pkg.Targets, target)
		return true
	})
	if targetErr != nil {
		return nil, targetErr
	}

	return pkg, nil
}

func parseTarget(t gjson.Result, where string) (Target, error) {
	name, err := requiredString(t, "name", "target in "+where)
	if err != nil {
		return Target{}, err
	}
	kind := t.Get("kind")
	if !kind.IsArray() || len(kind.Array()) == 0 {
		return Target{}, fmt.Errorf("%w: target %q in %s has no kind list", ErrMalformed, name, where)
	}
	return Target{
		Name:             name,
		Kinds:            stringArray(kind),
		RequiredFeatures: stringArray(t.Get("required-features")),
	}, nil
}
