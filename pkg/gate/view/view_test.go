package view

import (
	"strings"
	"testing"
)

func TestHTML_Structure(t *testing.T) {
	tree := El("div", map[string]string{"class": "gate"},
		El("h1", nil, Text("Sign in")),
		El("input", map[string]string{"type": "password", "name": "password"}),
	)

	got := tree.HTML()
	want := `<div class="gate"><h1>Sign in</h1><input name="password" type="password"></div>`
	if got != want {
		t.Errorf("HTML = %q, want %q", got, want)
	}
}

func TestHTML_EscapesText(t *testing.T) {
	tree := El("p", nil, Text(`<script>alert("x")</script>`))

	got := tree.HTML()
	if strings.Contains(got, "<script>") {
		t.Errorf("text not escaped: %q", got)
	}
	if !strings.Contains(got, "&lt;script&gt;") {
		t.Errorf("expected escaped script tag, got %q", got)
	}
}

func TestHTML_EscapesAttributes(t *testing.T) {
	tree := El("a", map[string]string{"href": `" onmouseover="evil()`})

	got := tree.HTML()
	if strings.Contains(got, `" onmouseover="`) {
		t.Errorf("attribute not escaped: %q", got)
	}
	if !strings.Contains(got, "&quot;") {
		t.Errorf("expected escaped quote, got %q", got)
	}
}

func TestHTML_DeterministicAttributeOrder(t *testing.T) {
	tree := El("input", map[string]string{"type": "text", "id": "user", "name": "username"})

	first := tree.HTML()
	for i := 0; i < 20; i++ {
		if got := tree.HTML(); got != first {
			t.Fatalf("non-deterministic output: %q vs %q", got, first)
		}
	}
	if first != `<input id="user" name="username" type="text">` {
		t.Errorf("HTML = %q", first)
	}
}

func TestHTML_Fragment(t *testing.T) {
	tree := Fragment(El("span", nil, Text("a")), El("span", nil, Text("b")))
	if got := tree.HTML(); got != "<span>a</span><span>b</span>" {
		t.Errorf("HTML = %q", got)
	}
}

func TestFind(t *testing.T) {
	tree := El("form", nil,
		El("input", map[string]string{"name": "username"}),
		El("input", map[string]string{"name": "password"}),
		El("button", map[string]string{"type": "submit"}, Text("Sign in")),
	)

	if n := tree.Find("name", "password"); n == nil || n.Tag != "input" {
		t.Errorf("Find(name=password) = %v", n)
	}
	if n := tree.Find("name", "nope"); n != nil {
		t.Errorf("Find(name=nope) = %v, want nil", n)
	}
	if got := len(tree.FindAll("input")); got != 2 {
		t.Errorf("FindAll(input) = %d nodes, want 2", got)
	}
}

func TestTextContent(t *testing.T) {
	tree := El("div", nil, El("b", nil, Text("Hello, ")), Text("world"))
	if got := tree.TextContent(); got != "Hello, world" {
		t.Errorf("TextContent = %q", got)
	}
}
