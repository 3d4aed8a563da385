package gen

import (
	"slices"
	"strings"
)

// Isa is the class of a pbxproj object
type Isa string

const (
	IsaBuildFile          Isa = "PBXBuildFile"
	IsaBuildRule          Isa = "PBXBuildRule"
	IsaFileReference      Isa = "PBXFileReference"
	IsaGroup              Isa = "PBXGroup"
	IsaNativeTarget       Isa = "PBXNativeTarget"
	IsaProject            Isa = "PBXProject"
	IsaShellScriptPhase   Isa = "PBXShellScriptBuildPhase"
	IsaSourcesBuildPhase  Isa = "PBXSourcesBuildPhase"
	IsaBuildConfiguration Isa = "XCBuildConfiguration"
	IsaConfigurationList  Isa = "XCConfigurationList"
)

// Values that can appear in an object body: string, int, Ref, List and Dict.
type (
	Value any

	// Ref points at another object by id. Comment is written next to it, as Xcode does.
	Ref struct {
		ID      string
		Comment string
	}

	List []Value

	// Dict keeps keys in insertion order so output never depends on map iteration
	Dict []Field

	Field struct {
		Key     string
		Value   Value
		Comment string
	}
)

// Get returns the value stored under key
func (d Dict) Get(key string) (Value, bool) {
	for _, f := range d {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// GetString is Get for string values; missing keys and other types yield ""
func (d Dict) GetString(key string) string {
	v, _ := d.Get(key)
	s, _ := v.(string)
	return s
}

// GetRefs returns the ids of a List of Refs (or of a single Ref)
func (d Dict) GetRefs(key string) []string {
	v, _ := d.Get(key)
	switch v := v.(type) {
	case Ref:
		return []string{v.ID}
	case List:
		ids := make([]string, 0, len(v))
		for _, item := range v {
			if r, ok := item.(Ref); ok {
				ids = append(ids, r.ID)
			}
		}
		return ids
	}
	return nil
}

// Object is a node of the project graph
type Object struct {
	ID      string
	Isa     Isa
	Comment string
	Body    Dict
}

// Ref returns a reference to o annotated with its comment
func (o *Object) Ref() Ref {
	return Ref{ID: o.ID, Comment: o.Comment}
}

// Project is the whole object graph of one .xcodeproj
type Project struct {
	RootID    string
	Generator string // e.g. "cargo-xcode 1.10.0", written into the file header
	Objects   []Object
}

// Add appends objects to the project
func (p *Project) Add(objs ...Object) {
	p.Objects = append(p.Objects, objs...)
}

// Get finds an object by id
func (p *Project) Get(id string) (*Object, bool) {
	for i := range p.Objects {
		if p.Objects[i].ID == id {
			return &p.Objects[i], true
		}
	}
	return nil, false
}

// ByIsa returns all objects of a class in insertion order
func (p *Project) ByIsa(isa Isa) []*Object {
	var out []*Object
	for i := range p.Objects {
		if p.Objects[i].Isa == isa {
			out = append(out, &p.Objects[i])
		}
	}
	return out
}

// Root returns the PBXProject object
func (p *Project) Root() *Object {
	root, _ := p.Get(p.RootID)
	return root
}

// sections groups objects per class, classes sorted by name and objects sorted by id
func (p *Project) sections() [][]*Object {
	byIsa := make(map[Isa][]*Object)
	for i := range p.Objects {
		o := &p.Objects[i]
		byIsa[o.Isa] = append(byIsa[o.Isa], o)
	}

	isas := make([]Isa, 0, len(byIsa))
	for isa := range byIsa {
		isas = append(isas, isa)
	}
	slices.Sort(isas)

	out := make([][]*Object, 0, len(isas))
	for _, isa := range isas {
		objs := byIsa[isa]
		slices.SortStableFunc(objs, func(a, b *Object) int { return strings.Compare(a.ID, b.ID) })
		out = append(out, objs)
	}
	return out
}
