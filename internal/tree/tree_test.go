package tree

import (
	"encoding/json"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestMappingOrderPreserved(t *testing.T) {
	t.Parallel()

	m := NewMapping()
	m.Set("zebra", int64(1))
	m.Set("apple", int64(2))
	m.Set("mango", int64(3))
	m.Set("apple", int64(4)) // overwrite keeps position

	want := []string{"zebra", "apple", "mango"}
	got := m.Keys()
	if len(got) != len(want) {
		t.Fatalf("unexpected keys: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("key %d: want %q, got %q", i, want[i], got[i])
		}
	}

	if v, _ := m.Get("apple"); v != int64(4) {
		t.Fatalf("overwrite lost: %v", v)
	}
}

func TestMappingMarshalJSON(t *testing.T) {
	t.Parallel()

	inner := NewMapping()
	inner.Set("port", int64(5432))

	m := NewMapping()
	m.Set("name", "svc")
	m.Set("db", inner)
	m.Set("tags", []any{"a", "b"})

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"name":"svc","db":{"port":5432},"tags":["a","b"]}`
	if string(data) != want {
		t.Fatalf("want %s, got %s", want, data)
	}
}

func TestMappingMarshalJSONDeterministic(t *testing.T) {
	t.Parallel()

	build := func() *Mapping {
		m := NewMapping()
		m.Set("b", int64(1))
		m.Set("a", int64(2))
		m.Set("c", NewMapping())
		return m
	}

	first, err := json.Marshal(build())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := json.Marshal(build())
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if string(again) != string(first) {
			t.Fatalf("non-deterministic output: %s vs %s", first, again)
		}
	}
}

func TestMappingMarshalYAML(t *testing.T) {
	t.Parallel()

	m := NewMapping()
	m.Set("second", "two")
	m.Set("first", "one")

	data, err := yaml.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := "second: two\nfirst: one\n"
	if string(data) != want {
		t.Fatalf("want %q, got %q", want, data)
	}
}

func TestCloneIsDeep(t *testing.T) {
	t.Parallel()

	inner := NewMapping()
	inner.Set("host", "localhost")

	m := NewMapping()
	m.Set("db", inner)
	m.Set("list", []any{int64(1), int64(2)})

	clone := Clone(m).(*Mapping)

	cloneDB, _ := clone.Get("db")
	cloneDB.(*Mapping).Set("host", "changed")
	cloneList, _ := clone.Get("list")
	cloneList.([]any)[0] = int64(99)

	if v, _ := inner.Get("host"); v != "localhost" {
		t.Fatalf("clone aliased nested mapping: %v", v)
	}
	origList, _ := m.Get("list")
	if origList.([]any)[0] != int64(1) {
		t.Fatalf("clone aliased nested sequence")
	}
}

func TestEqual(t *testing.T) {
	t.Parallel()

	a := NewMapping()
	a.Set("x", int64(1))
	a.Set("y", []any{"p", "q"})

	b := NewMapping()
	b.Set("x", int64(1))
	b.Set("y", []any{"p", "q"})

	if !a.Equal(b) {
		t.Fatalf("expected equal mappings")
	}

	// Same entries, different order.
	c := NewMapping()
	c.Set("y", []any{"p", "q"})
	c.Set("x", int64(1))
	if a.Equal(c) {
		t.Fatalf("order-insensitive equality not expected")
	}
}

func TestJSONLookup(t *testing.T) {
	t.Parallel()

	m := NewMapping()
	m.Set("present", "yes")

	if v, err := m.JSONLookup("present"); err != nil || v != "yes" {
		t.Fatalf("lookup present: %v, %v", v, err)
	}
	if _, err := m.JSONLookup("absent"); err == nil {
		t.Fatalf("expected error for absent key")
	}
}

func TestFormatScalar(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value any
		want  string
		ok    bool
	}{
		{name: "String", value: "h", want: "h", ok: true},
		{name: "Int", value: int64(5432), want: "5432", ok: true},
		{name: "Float", value: 1.5, want: "1.5", ok: true},
		{name: "Bool", value: true, want: "true", ok: true},
		{name: "Null", value: nil, want: "null", ok: true},
		{name: "Mapping", value: NewMapping(), ok: false},
		{name: "Sequence", value: []any{}, ok: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, ok := FormatScalar(tc.value)
			if ok != tc.ok {
				t.Fatalf("ok: want %v, got %v", tc.ok, ok)
			}
			if ok && got != tc.want {
				t.Fatalf("want %q, got %q", tc.want, got)
			}
		})
	}
}
