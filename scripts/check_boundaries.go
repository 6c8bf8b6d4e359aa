//go:build ignore

package main

import (
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	modulePath     = "slothsafe"
	contextsPrefix = modulePath + "/contexts/"
	sharedPrefix   = modulePath + "/internal/shared"
)

type violation struct {
	File   string
	Line   int
	Import string
	Rule   string
}

// layerRule lists the in-module prefixes a layer may import besides the
// standard library. Third-party imports are only allowed where external is set.
type layerRule struct {
	name     string
	allowed  func(servicePrefix string) []string
	external bool
}

var layerRules = map[string]layerRule{
	"domain": {
		name: "domain",
		allowed: func(servicePrefix string) []string {
			return []string{servicePrefix + "/domain"}
		},
	},
	"ports": {
		name: "ports",
		allowed: func(servicePrefix string) []string {
			return []string{servicePrefix + "/domain", sharedPrefix}
		},
	},
	"application": {
		name: "application",
		allowed: func(servicePrefix string) []string {
			return []string{
				servicePrefix + "/application",
				servicePrefix + "/domain",
				servicePrefix + "/ports",
			}
		},
	},
}

// Usage: go run scripts/check_boundaries.go [root]
func main() {
	root := "contexts"
	if len(os.Args) > 1 {
		root = os.Args[1]
	}

	violations := collectViolations(root)
	if len(violations) == 0 {
		fmt.Println("boundary checks passed")
		return
	}

	sort.Slice(violations, func(i, j int) bool {
		if violations[i].File != violations[j].File {
			return violations[i].File < violations[j].File
		}
		if violations[i].Line != violations[j].Line {
			return violations[i].Line < violations[j].Line
		}
		return violations[i].Import < violations[j].Import
	})

	fmt.Println("boundary violations found:")
	for _, v := range violations {
		fmt.Printf("- %s:%d imports %q (%s)\n", v.File, v.Line, v.Import, v.Rule)
	}
	os.Exit(1)
}

func collectViolations(root string) []violation {
	var violations []violation

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}

		parts := strings.Split(filepath.ToSlash(path), "/")
		idx := indexOf(parts, "contexts")
		if idx < 0 || len(parts) < idx+4 {
			return nil
		}

		servicePrefix := contextsPrefix + parts[idx+1] + "/" + parts[idx+2]
		layer := parts[idx+3]
		violations = append(violations, validateFile(path, filepath.ToSlash(path), layer, servicePrefix)...)
		return nil
	})

	return violations
}

func validateFile(path string, normalizedPath string, layer string, servicePrefix string) []violation {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
	if err != nil {
		return []violation{{File: normalizedPath, Line: 1, Rule: "file must parse"}}
	}

	var violations []violation
	for _, imp := range file.Imports {
		importPath := strings.Trim(imp.Path.Value, "\"")
		line := fset.Position(imp.Pos()).Line
		add := func(rule string) {
			violations = append(violations, violation{
				File:   normalizedPath,
				Line:   line,
				Import: importPath,
				Rule:   rule,
			})
		}

		if strings.HasPrefix(importPath, contextsPrefix) && !hasPrefix(importPath, servicePrefix) {
			add("cross-service imports are forbidden")
		}

		rule, ok := layerRules[layer]
		if !ok {
			continue
		}
		if strings.Contains(importPath, "/adapters/") || strings.HasSuffix(importPath, "/adapters") {
			add(rule.name + " must not import adapters")
		}
		if isModuleImport(importPath) && !isAllowed(importPath, rule.allowed(servicePrefix)) {
			add(rule.name + " import is outside explicit allowlist")
			continue
		}
		if !isModuleImport(importPath) && !isStdlib(importPath) && !rule.external {
			add(rule.name + " must not import third-party packages")
		}
	}

	return violations
}

func indexOf(items []string, target string) int {
	for i, item := range items {
		if item == target {
			return i
		}
	}
	return -1
}

func hasPrefix(path string, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func isAllowed(importPath string, allowedPrefixes []string) bool {
	for _, p := range allowedPrefixes {
		if hasPrefix(importPath, p) {
			return true
		}
	}
	return false
}

func isModuleImport(importPath string) bool {
	return hasPrefix(importPath, modulePath)
}

func isStdlib(importPath string) bool {
	first := importPath
	if idx := strings.Index(first, "/"); idx != -1 {
		first = first[:idx]
	}
	return !strings.Contains(first, ".")
}
