package report

import (
	"strings"
	"unicode"
)

// LanguageNames turns VM names of packages, classes and methods into names
// shown to users.
type LanguageNames interface {
	PackageName(vmname string) string
	ClassName(vmname string) string
	QualifiedClassName(vmname string) string
	MethodName(vmclassname, vmmethodname, desc string) string
}

// JavaNames renders names the way Java source code spells them.
type JavaNames struct{}

// PackageName implements LanguageNames. The unnamed package is called "default".
func (JavaNames) PackageName(vmname string) string {
	if vmname == "" {
		return "default"
	}
	return strings.Replace(vmname, "/", ".", -1)
}

// ClassName implements LanguageNames.
func (JavaNames) ClassName(vmname string) string {
	simple := vmname
	if i := strings.LastIndex(simple, "/"); i >= 0 {
		simple = simple[i+1:]
	}
	parts := strings.Split(simple, "$")
	for i, p := range parts {
		if i > 0 && isAnonymous(p) {
			parts[i] = "{...}"
		}
	}
	return strings.Join(parts, ".")
}

// QualifiedClassName implements LanguageNames.
func (j JavaNames) QualifiedClassName(vmname string) string {
	i := strings.LastIndex(vmname, "/")
	if i < 0 {
		return j.ClassName(vmname)
	}
	return j.PackageName(vmname[:i]) + "." + j.ClassName(vmname)
}

// MethodName implements LanguageNames. Constructors are named after their
// class, static initializers "static {...}" and lambdas "{...}".
func (j JavaNames) MethodName(vmclassname, vmmethodname, desc string) string {
	switch {
	case vmmethodname == "<clinit>":
		return "static {...}"
	case strings.HasPrefix(vmmethodname, "lambda$"):
		return "{...}"
	}
	name := vmmethodname
	if name == "<init>" {
		name = j.ClassName(vmclassname)
		if i := strings.LastIndex(name, "."); i >= 0 {
			name = name[i+1:]
		}
	}
	return name + "(" + strings.Join(parameterTypes(desc), ", ") + ")"
}

func isAnonymous(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

var primitives = map[byte]string{
	'B': "byte", 'C': "char", 'D': "double", 'F': "float",
	'I': "int", 'J': "long", 'S': "short", 'Z': "boolean", 'V': "void",
}

// parameterTypes decodes the parameter list of a method descriptor such as
// "(I[Ljava/lang/String;)V" into simple type names. Malformed descriptors
// yield the types decoded so far.
func parameterTypes(desc string) []string {
	types := []string{}
	if !strings.HasPrefix(desc, "(") {
		return types
	}
	for i := 1; i < len(desc) && desc[i] != ')'; {
		dims := 0
		for i < len(desc) && desc[i] == '[' {
			dims++
			i++
		}
		if i >= len(desc) {
			break
		}
		var name string
		if desc[i] == 'L' {
			end := strings.IndexByte(desc[i:], ';')
			if end < 0 {
				break
			}
			name = JavaNames{}.ClassName(desc[i+1 : i+end])
			i += end + 1
		} else {
			p, ok := primitives[desc[i]]
			if !ok {
				break
			}
			name = p
			i++
		}
		types = append(types, name+strings.Repeat("[]", dims))
	}
	return types
}
