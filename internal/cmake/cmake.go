// Package cmake renders the ezvcpkg.cmake file that points a CMake build at a
// prepared vcpkg installation.
package cmake

import (
	"bytes"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"
)

// FileName is the name of the generated file inside the build root.
const FileName = "ezvcpkg.cmake"

//go:embed templates/*.tmpl
var templateFS embed.FS

var loadTemplate = sync.OnceValues(func() (*template.Template, error) {
	funcs := sprig.TxtFuncMap()
	funcs["cmakeQuote"] = quote
	return template.New("ezvcpkg.cmake.tmpl").Funcs(funcs).ParseFS(templateFS, "templates/ezvcpkg.cmake.tmpl")
})

// Data is the content of the generated file.
type Data struct {
	Root        string // vcpkg installation root
	Commit      string
	Triplet     string
	Packages    []string
	ToolVersion string
	WrittenAt   time.Time
}

// ToolchainFile is the vcpkg toolchain file inside the root, with forward slashes.
func (d Data) ToolchainFile() string {
	return filepath.ToSlash(filepath.Join(d.Root, "scripts", "buildsystems", "vcpkg.cmake"))
}

// Render produces the file content. Paths are written with forward slashes.
func Render(d Data) ([]byte, error) {
	tmpl, err := loadTemplate()
	if err != nil {
		return nil, fmt.Errorf("parse cmake template: %w", err)
	}
	view := d
	view.Root = filepath.ToSlash(d.Root)
	if view.WrittenAt.IsZero() {
		view.WrittenAt = time.Now()
	}
	view.WrittenAt = view.WrittenAt.UTC()

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("exec cmake template: %w", err)
	}
	return buf.Bytes(), nil
}

// Write renders d into <buildRoot>/ezvcpkg.cmake via a temporary file and rename.
// An existing file whose settings already match is left untouched so CMake does
// not reconfigure. It returns the path and whether the file changed.
func Write(buildRoot string, d Data) (string, bool, error) {
	content, err := Render(d)
	if err != nil {
		return "", false, err
	}
	if err := os.MkdirAll(buildRoot, 0o755); err != nil {
		return "", false, fmt.Errorf("create build root: %w", err)
	}
	path := filepath.Join(buildRoot, FileName)
	if existing, err := os.ReadFile(path); err == nil && bytes.Equal(stripHeader(existing), stripHeader(content)) {
		return path, false, nil
	}

	tmp, err := os.CreateTemp(buildRoot, "."+FileName+".*.tmp")
	if err != nil {
		return "", false, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()
	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		return "", false, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", false, fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return "", false, fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return "", false, fmt.Errorf("rename %s: %w", path, err)
	}
	return path, true, nil
}

// stripHeader drops the leading comment line which carries the generation time.
func stripHeader(b []byte) []byte {
	if bytes.HasPrefix(b, []byte("#")) {
		if i := bytes.IndexByte(b, '\n'); i >= 0 {
			return b[i+1:]
		}
	}
	return b
}

// quote renders s as a CMake quoted argument.
func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, `$`, `\$`)
	return `"` + r.Replace(s) + `"`
}
