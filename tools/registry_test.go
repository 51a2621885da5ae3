package tools

import (
	"context"
	"reflect"
	"testing"
)

func echoTool(name string) Tool {
	return NewLocationTool(name, "echo "+name, func(_ context.Context, location string) string {
		return name + ":" + location
	})
}

func TestRegistry_AllIsSortedByName(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Register(echoTool("zeta"))
	r.Register(echoTool("alpha"))
	r.Register(echoTool("mid"))

	if got, want := r.Names(), []string{"alpha", "mid", "zeta"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
}

func TestRegistry_RegisterReplacesSameName(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Register(echoTool("dup"))
	replacement := NewLocationTool("dup", "second", func(context.Context, string) string { return "second" })
	r.Register(replacement)

	got, ok := r.Get("dup")
	if !ok {
		t.Fatalf("tool not found")
	}
	if got.Description() != "second" {
		t.Fatalf("expected replacement, got %q", got.Description())
	}
	if len(r.All()) != 1 {
		t.Fatalf("expected one tool, got %d", len(r.All()))
	}
}

func TestOllamaFormat(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Register(echoTool("get_soil_npk"))

	formatted := OllamaFormat(r.All())
	if len(formatted) != 1 {
		t.Fatalf("expected one entry, got %d", len(formatted))
	}
	if formatted[0]["type"] != "function" {
		t.Fatalf("unexpected type %v", formatted[0]["type"])
	}
	fn := formatted[0]["function"].(map[string]any)
	if fn["name"] != "get_soil_npk" {
		t.Fatalf("unexpected name %v", fn["name"])
	}
	params := fn["parameters"].(map[string]any)
	if !reflect.DeepEqual(params["required"], []string{"location"}) {
		t.Fatalf("unexpected required list %v", params["required"])
	}
}

func TestLocationTool_MissingArgumentIsEmptyString(t *testing.T) {
	t.Parallel()

	result, err := echoTool("echo").Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "echo:" {
		t.Fatalf("result = %q", result)
	}
}
