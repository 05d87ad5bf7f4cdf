package tree

import "strings"

// Root is the path of the mirrored root folder.
const Root = "/"

// Normalize returns an absolute, slash separated path without repeated or
// trailing slashes.
func Normalize(p string) string {
	parts := Split(p)
	if len(parts) == 0 {
		return Root
	}
	return Root + strings.Join(parts, "/")
}

// Split returns the non empty segments of p.
func Split(p string) []string {
	raw := strings.Split(p, "/")
	ret := raw[:0]
	for _, part := range raw {
		if part != "" {
			ret = append(ret, part)
		}
	}
	return ret
}

// Join appends name to a parent path.
func Join(parent, name string) string {
	return Normalize(parent + "/" + name)
}

// Parent returns the parent path and the last segment of p.
func Parent(p string) (string, string) {
	parts := Split(p)
	if len(parts) == 0 {
		return Root, ""
	}
	return Normalize(strings.Join(parts[:len(parts)-1], "/")), parts[len(parts)-1]
}

// Within reports whether p equals ancestor or lies below it.
func Within(p, ancestor string) bool {
	p, ancestor = Normalize(p), Normalize(ancestor)
	if ancestor == Root || p == ancestor {
		return true
	}
	return strings.HasPrefix(p, ancestor+"/")
}

// SanitizeName strips control characters from an entry name.
func SanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
}
