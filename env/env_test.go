package env

import (
	"reflect"
	"testing"
)

func TestParseEnvPair(t *testing.T) {
	tests := []struct {
		token string
		want  EnvPair
	}{
		{"FOO=bar", EnvPair{Key: "FOO", Value: "bar"}},
		{"FOO=a=b", EnvPair{Key: "FOO", Value: "a=b"}},
		{"FOO=", EnvPair{Key: "FOO", Value: ""}},
		{"FOO", EnvPair{Key: "FOO", Value: ""}},
		{"=bar", EnvPair{Key: "", Value: "bar"}},
		{"", EnvPair{}},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got := ParseEnvPair(tt.token)
			if got != tt.want {
				t.Errorf("ParseEnvPair(%q) = %+v, want %+v", tt.token, got, tt.want)
			}
		})
	}
}

func TestEnvPairString(t *testing.T) {
	if got := (EnvPair{Key: "A", Value: "b=c"}).String(); got != "A=b=c" {
		t.Errorf("String() = %q", got)
	}
}

func TestFromSliceSkipsMalformed(t *testing.T) {
	got := FromSlice([]string{"A=1", "broken", "B=x=y"})
	want := []EnvPair{{Key: "A", Value: "1"}, {Key: "B", Value: "x=y"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("FromSlice() = %v, want %v", got, want)
	}
	if !reflect.DeepEqual(ToSlice(got), []string{"A=1", "B=x=y"}) {
		t.Fatalf("ToSlice() = %v", ToSlice(got))
	}
}

func TestLookup(t *testing.T) {
	list := []string{"AB=1", "A=2"}
	if v, ok := Lookup(list, "A"); !ok || v != "2" {
		t.Errorf("Lookup(A) = %q, %v", v, ok)
	}
	if _, ok := Lookup(list, "C"); ok {
		t.Error("Lookup(C) should miss")
	}
}

func TestUpsert(t *testing.T) {
	original := []string{"A=1", "B=2"}

	added := Upsert(original, EnvPair{Key: "C", Value: "3"})
	if !reflect.DeepEqual(added, []string{"A=1", "B=2", "C=3"}) {
		t.Errorf("append: got %v", added)
	}

	replaced := Upsert(original, EnvPair{Key: "A", Value: "9"})
	if !reflect.DeepEqual(replaced, []string{"A=9", "B=2"}) {
		t.Errorf("replace: got %v", replaced)
	}

	if !reflect.DeepEqual(original, []string{"A=1", "B=2"}) {
		t.Errorf("input was mutated: %v", original)
	}

	// AB must not be treated as an entry for A
	prefixed := Upsert([]string{"AB=1"}, EnvPair{Key: "A", Value: "2"})
	if !reflect.DeepEqual(prefixed, []string{"AB=1", "A=2"}) {
		t.Errorf("prefix collision: got %v", prefixed)
	}

	dupes := Upsert([]string{"A=1", "A=2"}, EnvPair{Key: "A", Value: "3"})
	if !reflect.DeepEqual(dupes, []string{"A=3"}) {
		t.Errorf("duplicates: got %v", dupes)
	}

	fromNil := Upsert(nil, EnvPair{Key: "A", Value: "1"})
	if !reflect.DeepEqual(fromNil, []string{"A=1"}) {
		t.Errorf("nil list: got %v", fromNil)
	}
}

func TestRemove(t *testing.T) {
	list, found := Remove([]string{"A=1", "AB=2", "B=3"}, "A")
	if !found {
		t.Fatal("expected A to be found")
	}
	if !reflect.DeepEqual(list, []string{"AB=2", "B=3"}) {
		t.Errorf("got %v", list)
	}

	list, found = Remove([]string{"A=1"}, "Z")
	if found {
		t.Error("Z should not be found")
	}
	if !reflect.DeepEqual(list, []string{"A=1"}) {
		t.Errorf("got %v", list)
	}
}
