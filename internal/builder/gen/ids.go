package gen

import (
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

const (
	idPrefix = "CA60"
	idLength = 24
)

// IDAllocator hands out pbxproj object identifiers. Identifiers are a pure function of the package id,
// a namespace and a name, so regenerating a project keeps every object's identity and Xcode keeps
// treating it as the same project.
type IDAllocator struct {
	seed uuid.UUID
}

// NewIDAllocator seeds an allocator from cargo's package id
func NewIDAllocator(packageID string) IDAllocator {
	return IDAllocator{seed: uuid.NewSHA1(uuid.NameSpaceURL, []byte(packageID))}
}

// ID returns a 24 character identifier, e.g. CA60A1B2C3D4E5F6A7B8C9D0
func (a IDAllocator) ID(namespace, name string) string {
	u := uuid.NewSHA1(a.seed, []byte(namespace+"\x00"+name))
	digits := (idLength - len(idPrefix)) / 2
	return idPrefix + strings.ToUpper(hex.EncodeToString(u[:digits]))
}
