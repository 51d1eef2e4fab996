package architecture_test

import (
	"bufio"
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// layers maps a directory prefix under internal/ to the internal packages it
// must not import. The longest matching prefix wins.
var layers = map[string][]string{
	"platform/":      {"domain", "data", "clients", "realtime", "llm", "services", "modules", "jobs", "http", "app", "observability"},
	"domain/":        {"data", "clients", "realtime", "llm", "services", "modules", "jobs", "http", "app"},
	"data/":          {"clients", "realtime", "llm", "services", "modules", "jobs", "http", "app"},
	"clients/":       {"data", "realtime", "llm", "services", "modules", "jobs", "http", "app"},
	"realtime/":      {"data", "clients", "llm", "services", "modules", "jobs", "http", "app"},
	"observability/": {"data", "clients", "realtime", "llm", "services", "modules", "jobs", "http", "app"},
	"llm/":           {"data", "clients", "realtime", "services", "modules", "jobs", "http", "app"},
	"services/":      {"llm", "modules", "jobs", "http", "app"},
	"modules/":       {"jobs", "http", "app"},
	"jobs/":          {"http", "app"},
	"http/":          {"llm", "modules", "jobs", "app"},
}

func TestImportBoundaries(t *testing.T) {
	root, modulePath := moduleRoot(t)
	internalDir := filepath.Join(root, "internal")
	fset := token.NewFileSet()

	type violation struct {
		file string
		imp  string
		rule string
	}
	var violations []violation

	walkErr := filepath.WalkDir(internalDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".go") {
			return nil
		}
		rel, err := filepath.Rel(internalDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		disallowed := disallowedFor(rel)
		if len(disallowed) == 0 {
			return nil
		}

		f, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
		if err != nil {
			return err
		}
		for _, spec := range f.Imports {
			imp, err := strconv.Unquote(spec.Path.Value)
			if err != nil {
				continue
			}
			for _, bad := range disallowed {
				target := modulePath + "/internal/" + bad
				if imp == target || strings.HasPrefix(imp, target+"/") {
					violations = append(violations, violation{file: "internal/" + rel, imp: imp, rule: bad})
					break
				}
			}
		}
		return nil
	})
	if walkErr != nil {
		t.Fatalf("walk internal/: %v", walkErr)
	}

	if len(violations) > 0 {
		var b strings.Builder
		b.WriteString("import boundary violations:\n")
		for _, v := range violations {
			fmt.Fprintf(&b, "- %s imports %q (layer may not import internal/%s)\n", v.file, v.imp, v.rule)
		}
		t.Fatal(b.String())
	}
}

func TestDisallowedForPicksLongestPrefix(t *testing.T) {
	cases := []struct {
		rel  string
		want string
	}{
		{rel: "platform/logger/logger.go", want: "domain"},
		{rel: "jobs/worker/worker.go", want: "http"},
		{rel: "app/app.go", want: ""},
	}
	for _, tc := range cases {
		got := disallowedFor(tc.rel)
		if tc.want == "" {
			if len(got) != 0 {
				t.Fatalf("%s: got %v, want none", tc.rel, got)
			}
			continue
		}
		if len(got) == 0 || got[0] != tc.want {
			t.Fatalf("%s: got %v, want first %q", tc.rel, got, tc.want)
		}
	}
}

func disallowedFor(rel string) []string {
	best := ""
	for prefix := range layers {
		if strings.HasPrefix(rel, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best == "" {
		return nil
	}
	return layers[best]
}

func moduleRoot(t *testing.T) (string, string) {
	t.Helper()
	start, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	root, err := findModuleRoot(start)
	if err != nil {
		t.Fatalf("find module root: %v", err)
	}
	modulePath, err := readModulePath(filepath.Join(root, "go.mod"))
	if err != nil {
		t.Fatalf("read module path: %v", err)
	}
	return root, modulePath
}

func findModuleRoot(start string) (string, error) {
	dir := start
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found from %s", start)
		}
		dir = parent
	}
}

func readModulePath(goModPath string) (string, error) {
	f, err := os.Open(goModPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "module ") {
			continue
		}
		mp := strings.TrimSpace(strings.TrimPrefix(line, "module "))
		if mp == "" {
			return "", fmt.Errorf("empty module path in %s", goModPath)
		}
		return mp, nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", fmt.Errorf("module path not found in %s", goModPath)
}
