package pyast

import "strings"

// Import is a name bound by an import statement.
type Import struct {
	Name string // Local name, e.g. "pd" for "import pandas as pd"
	Path string // Dotted target, e.g. "pandas"
	Line int    // 1-based source line of the import statement
}

// parseImport decodes a single (joined) import statement.
// Relative and wildcard imports bind nothing we can resolve and are dropped.
func parseImport(stmt string, line int) []Import {
	if i := strings.Index(stmt, "#"); i >= 0 {
		stmt = stmt[:i]
	}
	stmt = strings.NewReplacer("(", " ", ")", " ", "\\", " ").Replace(stmt)
	fields := strings.Fields(stmt)
	if len(fields) < 2 {
		return nil
	}

	switch fields[0] {
	case "import":
		var out []Import
		for _, item := range splitItems(strings.Join(fields[1:], " ")) {
			path, alias := splitAlias(item)
			if path == "" {
				continue
			}
			if alias == "" {
				// "import a.b.c" binds "a" to the top-level package.
				root := strings.SplitN(path, ".", 2)[0]
				out = append(out, Import{Name: root, Path: root, Line: line})
				continue
			}
			out = append(out, Import{Name: alias, Path: path, Line: line})
		}
		return out

	case "from":
		if len(fields) < 4 || fields[2] != "import" {
			return nil
		}
		module := fields[1]
		if strings.HasPrefix(module, ".") {
			return nil
		}
		var out []Import
		for _, item := range splitItems(strings.Join(fields[3:], " ")) {
			name, alias := splitAlias(item)
			if name == "" || name == "*" {
				continue
			}
			if alias == "" {
				alias = name
			}
			out = append(out, Import{Name: alias, Path: module + "." + name, Line: line})
		}
		return out
	}
	return nil
}

func splitItems(s string) []string {
	parts := strings.Split(s, ",")
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			items = append(items, p)
		}
	}
	return items
}

func splitAlias(item string) (name, alias string) {
	fields := strings.Fields(item)
	switch {
	case len(fields) == 1:
		return fields[0], ""
	case len(fields) == 3 && fields[1] == "as":
		return fields[0], fields[2]
	default:
		return "", ""
	}
}
