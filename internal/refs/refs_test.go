package refs

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/eugenenazirov/confpack/internal/loader"
	"github.com/eugenenazirov/confpack/internal/overlay"
	"github.com/eugenenazirov/confpack/internal/tree"
)

// namespaceFromFiles writes the given logical-path -> content files under a
// temp root and returns a namespace over them.
func namespaceFromFiles(t *testing.T, files map[string]string) overlay.Namespace {
	t.Helper()
	root := t.TempDir()
	ns := make(overlay.Namespace)
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
		ns[rel] = full
	}
	return ns
}

func mapping(pairs ...any) *tree.Mapping {
	m := tree.NewMapping()
	for i := 0; i+1 < len(pairs); i += 2 {
		m.Set(pairs[i].(string), pairs[i+1])
	}
	return m
}

func TestResolveWholeFile(t *testing.T) {
	t.Parallel()

	ns := namespaceFromFiles(t, map[string]string{
		"a.yaml": "content:\n  $ref: \"b.yaml#\"\n",
		"b.yaml": "key: value\n",
	})

	got, err := NewResolver(ns, loader.Load).Resolve("a.yaml")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	want := mapping("content", mapping("key", "value"))
	if diff := cmp.Diff(any(want), got); diff != "" {
		t.Fatalf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveMissingHashMeansWholeFile(t *testing.T) {
	t.Parallel()

	ns := namespaceFromFiles(t, map[string]string{
		"a.yaml": "content:\n  $ref: b.yaml\n",
		"b.yaml": "key: value\n",
	})

	got, err := NewResolver(ns, loader.Load).Resolve("a.yaml")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	want := mapping("content", mapping("key", "value"))
	if diff := cmp.Diff(any(want), got); diff != "" {
		t.Fatalf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestResolvePointer(t *testing.T) {
	t.Parallel()

	ns := namespaceFromFiles(t, map[string]string{
		"a.yaml": "db:\n  $ref: \"b.yaml#/defaults/db\"\n",
		"b.yaml": "defaults:\n  db:\n    host: localhost\n    port: 5432\n",
	})

	got, err := NewResolver(ns, loader.Load).Resolve("a.yaml")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	want := mapping("db", mapping("host", "localhost", "port", int64(5432)))
	if diff := cmp.Diff(any(want), got); diff != "" {
		t.Fatalf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestResolvePointerIntoSequence(t *testing.T) {
	t.Parallel()

	ns := namespaceFromFiles(t, map[string]string{
		"a.yaml": "pick:\n  $ref: \"b.yaml#/items/1\"\n",
		"b.yaml": "items:\n  - first\n  - second\n",
	})

	got, err := NewResolver(ns, loader.Load).Resolve("a.yaml")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	want := mapping("pick", "second")
	if diff := cmp.Diff(any(want), got); diff != "" {
		t.Fatalf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveRelativeHops(t *testing.T) {
	t.Parallel()

	// a.yaml references b/c.yaml, which references ./d.yaml relative to b/.
	ns := namespaceFromFiles(t, map[string]string{
		"a.yaml":   "top:\n  $ref: \"b/c.yaml#\"\n",
		"b/c.yaml": "inner:\n  $ref: \"./d.yaml#\"\n",
		"b/d.yaml": "deep: true\n",
		"d.yaml":   "wrong: file\n",
	})

	got, err := NewResolver(ns, loader.Load).Resolve("a.yaml")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	want := mapping("top", mapping("inner", mapping("deep", true)))
	if diff := cmp.Diff(any(want), got); diff != "" {
		t.Fatalf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestResolvePropertiesTarget(t *testing.T) {
	t.Parallel()

	ns := namespaceFromFiles(t, map[string]string{
		"a.yaml":          "db:\n  $ref: \"conn.properties#/db\"\n",
		"conn.properties": "db.host=h\ndb.port=5432\n",
	})

	got, err := NewResolver(ns, loader.Load).Resolve("a.yaml")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	want := mapping("db", mapping("host", "h", "port", "5432"))
	if diff := cmp.Diff(any(want), got); diff != "" {
		t.Fatalf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveDiamondIsLegal(t *testing.T) {
	t.Parallel()

	// Two independent paths into the same target must not trip the cycle guard.
	ns := namespaceFromFiles(t, map[string]string{
		"a.yaml":      "left:\n  $ref: \"shared.yaml#\"\nright:\n  $ref: \"shared.yaml#\"\n",
		"shared.yaml": "v: 1\n",
	})

	got, err := NewResolver(ns, loader.Load).Resolve("a.yaml")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	want := mapping("left", mapping("v", int64(1)), "right", mapping("v", int64(1)))
	if diff := cmp.Diff(any(want), got); diff != "" {
		t.Fatalf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveCycleDetected(t *testing.T) {
	t.Parallel()

	ns := namespaceFromFiles(t, map[string]string{
		"a.yaml": "x:\n  $ref: \"b.yaml#/y\"\n",
		"b.yaml": "y:\n  $ref: \"a.yaml#/x\"\n",
	})

	_, err := NewResolver(ns, loader.Load).Resolve("a.yaml")
	if !errors.Is(err, ErrCircularReference) {
		t.Fatalf("expected ErrCircularReference, got %v", err)
	}
}

func TestResolveSelfCycleDetected(t *testing.T) {
	t.Parallel()

	ns := namespaceFromFiles(t, map[string]string{
		"a.yaml": "x:\n  $ref: \"a.yaml#/x\"\n",
	})

	_, err := NewResolver(ns, loader.Load).Resolve("a.yaml")
	if !errors.Is(err, ErrCircularReference) {
		t.Fatalf("expected ErrCircularReference, got %v", err)
	}
}

func TestResolveTargetNotFound(t *testing.T) {
	t.Parallel()

	ns := namespaceFromFiles(t, map[string]string{
		"a.yaml": "x:\n  $ref: \"missing.yaml#\"\n",
		"b.yaml": "y: 1\n",
	})

	_, err := NewResolver(ns, loader.Load).Resolve("a.yaml")
	if !errors.Is(err, ErrTargetNotFound) {
		t.Fatalf("expected ErrTargetNotFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "missing.yaml") {
		t.Fatalf("error should name the attempted path: %v", err)
	}
	if !strings.Contains(err.Error(), "a.yaml") || !strings.Contains(err.Error(), "b.yaml") {
		t.Fatalf("error should list available keys: %v", err)
	}
}

func TestResolvePointerFailure(t *testing.T) {
	t.Parallel()

	ns := namespaceFromFiles(t, map[string]string{
		"a.yaml": "x:\n  $ref: \"b.yaml#/no/such/path\"\n",
		"b.yaml": "y: 1\n",
	})

	_, err := NewResolver(ns, loader.Load).Resolve("a.yaml")
	if !errors.Is(err, ErrPointer) {
		t.Fatalf("expected ErrPointer, got %v", err)
	}
	if !strings.Contains(err.Error(), "/no/such/path") || !strings.Contains(err.Error(), "b.yaml") {
		t.Fatalf("error should name pointer and file: %v", err)
	}
}

func TestResolveMalformedRef(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		main string
	}{
		{name: "SiblingKeys", main: "x:\n  $ref: \"b.yaml#\"\n  extra: 1\n"},
		{name: "NonStringValue", main: "x:\n  $ref: 42\n"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ns := namespaceFromFiles(t, map[string]string{
				"a.yaml": tc.main,
				"b.yaml": "y: 1\n",
			})
			_, err := NewResolver(ns, loader.Load).Resolve("a.yaml")
			if !errors.Is(err, ErrMalformedRef) {
				t.Fatalf("expected ErrMalformedRef, got %v", err)
			}
		})
	}
}

func TestResolveScalarAndSequenceTargets(t *testing.T) {
	t.Parallel()

	ns := namespaceFromFiles(t, map[string]string{
		"a.yaml": "scalar:\n  $ref: \"b.yaml#/port\"\nseq:\n  $ref: \"b.yaml#/hosts\"\n",
		"b.yaml": "port: 5432\nhosts:\n  - h1\n  - h2\n",
	})

	got, err := NewResolver(ns, loader.Load).Resolve("a.yaml")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	want := mapping("scalar", int64(5432), "seq", []any{"h1", "h2"})
	if diff := cmp.Diff(any(want), got); diff != "" {
		t.Fatalf("tree mismatch (-want +got):\n%s", diff)
	}
}
