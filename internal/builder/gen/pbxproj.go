package gen

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	archiveVersion = 1
	objectVersion  = 53
)

// strings made only of these characters are written without quotes
var bareString = regexp.MustCompile(`^[A-Za-z0-9_./]+$`)

var stringEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
	"\t", `\t`,
)

func quote(s string) string {
	if bareString.MatchString(s) {
		return s
	}
	return `"` + stringEscaper.Replace(s) + `"`
}

func comment(s string) string {
	if s == "" {
		return ""
	}
	// a "*/" inside the text would end the comment early
	return " /* " + strings.ReplaceAll(s, "*/", "* /") + " */"
}

// Serialize renders the project in the property list dialect of project.pbxproj.
// Objects are grouped by class like Xcode does, so output is stable and diffs well.
func Serialize(p *Project) string {
	var sb strings.Builder

	writeln(&sb, "// !$*UTF8*$!")
	writeln(&sb, "{")
	if p.Generator != "" {
		writeln(&sb, "\t/* generated with ", strings.ReplaceAll(p.Generator, "*/", ""), " */")
	}
	writeln(&sb, "\tarchiveVersion = ", strconv.Itoa(archiveVersion), ";")
	writeln(&sb, "\tclasses = {")
	writeln(&sb, "\t};")
	writeln(&sb, "\tobjectVersion = ", strconv.Itoa(objectVersion), ";")
	writeln(&sb, "\tobjects = {")

	for _, section := range p.sections() {
		isa := string(section[0].Isa)
		writeln(&sb)
		writeln(&sb, "/* Begin ", isa, " section */")
		for _, o := range section {
			writeObject(&sb, o)
		}
		writeln(&sb, "/* End ", isa, " section */")
	}

	writeln(&sb, "\t};")
	rootComment := ""
	if root := p.Root(); root != nil {
		rootComment = root.Comment
	}
	writeln(&sb, "\trootObject = ", p.RootID, comment(rootComment), ";")
	writeln(&sb, "}")

	return sb.String()
}

func writeObject(sb *strings.Builder, o *Object) {
	write(sb, "\t\t", o.ID, comment(o.Comment), " = {\n")
	writeln(sb, "\t\t\tisa = ", string(o.Isa), ";")
	writeFields(sb, o.Body, 3)
	writeln(sb, "\t\t};")
}

func writeFields(sb *strings.Builder, d Dict, depth int) {
	indent := strings.Repeat("\t", depth)
	for _, f := range d {
		write(sb, indent, quote(f.Key), " = ")
		writeValue(sb, f.Value, depth)
		writeln(sb, ";", comment(f.Comment))
	}
}

func writeValue(sb *strings.Builder, v Value, depth int) {
	indent := strings.Repeat("\t", depth)
	switch v := v.(type) {
	case string:
		write(sb, quote(v))
	case int:
		write(sb, strconv.Itoa(v))
	case Ref:
		write(sb, v.ID, comment(v.Comment))
	case List:
		writeln(sb, "(")
		for _, item := range v {
			write(sb, indent, "\t")
			writeValue(sb, item, depth+1)
			writeln(sb, ",")
		}
		write(sb, indent, ")")
	case Dict:
		writeln(sb, "{")
		writeFields(sb, v, depth+1)
		write(sb, indent, "}")
	default:
		panic(fmt.Sprintf("pbxproj: unsupported value type %T", v))
	}
}
