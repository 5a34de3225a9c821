package core

import (
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// The resolver must stay free of clocks, logging and I/O: its only non-standard
// import is the definition package.
func TestResolverImportsStayPure(t *testing.T) {
	forbidden := []string{"log", "log/slog", "os", "net", "net/http", "sync"}
	files, err := filepath.Glob("*.go")
	require.NoError(t, err)

	fset := token.NewFileSet()
	for _, file := range files {
		if strings.HasSuffix(file, "_test.go") {
			continue
		}
		src, err := os.ReadFile(file)
		require.NoError(t, err)
		f, err := parser.ParseFile(fset, file, src, parser.ImportsOnly)
		require.NoError(t, err)
		for _, imp := range f.Imports {
			path := strings.Trim(imp.Path.Value, `"`)
			if strings.Contains(path, ".") {
				require.Equal(t, "github.com/comalice/xchart/internal/primitives", path, "%s imports %s", file, path)
				continue
			}
			for _, bad := range forbidden {
				require.NotEqual(t, bad, path, "%s imports %s", file, path)
			}
		}
	}
}
