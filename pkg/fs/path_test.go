package fs

import "testing"

func TestIsValidName(t *testing.T) {
	tests := []struct {
		src  string
		want bool
	}{
		{"/a/b/c", true},
		{"/", true},
		{"", true},
		{"/a//b", true},
		{"/a/./b", false},
		{"/a/../b", false},
		{"/.", false},
		{"/..", false},
		{"/a/b:c", false},
		{"/x:y/z", false},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			if got := IsValidName(tt.src); got != tt.want {
				t.Errorf("IsValidName(%q) = %v, want %v", tt.src, got, tt.want)
			}
		})
	}
}

func TestParsePath(t *testing.T) {
	p, err := ParsePath("s3://bucket:9000/data/file.txt")
	if err != nil {
		t.Fatalf("ParsePath() unexpected error: %v", err)
	}
	if p.Scheme() != "s3" || p.Authority() != "bucket:9000" || p.PathPart() != "/data/file.txt" {
		t.Errorf("ParsePath() = %q/%q/%q", p.Scheme(), p.Authority(), p.PathPart())
	}
	if p.host() != "bucket" || p.port() != 9000 {
		t.Errorf("host/port = %q/%d, want bucket/9000", p.host(), p.port())
	}

	rel, err := ParsePath("/plain/name")
	if err != nil {
		t.Fatalf("ParsePath() unexpected error: %v", err)
	}
	if rel.Scheme() != "" || !rel.IsAbsolute() {
		t.Errorf("unqualified path parsed as %q scheme, absolute=%v", rel.Scheme(), rel.IsAbsolute())
	}
}

func TestPathParentAndName(t *testing.T) {
	p := NewPath("/a/b/c")
	if p.Name() != "c" {
		t.Errorf("Name() = %q, want c", p.Name())
	}
	parent, ok := p.Parent()
	if !ok || parent.PathPart() != "/a/b" {
		t.Errorf("Parent() = %q, %v", parent.PathPart(), ok)
	}

	top := NewPath("/a")
	parent, ok = top.Parent()
	if !ok || parent.PathPart() != "/" {
		t.Errorf("Parent(/a) = %q, %v, want /", parent.PathPart(), ok)
	}

	root := NewPath("/")
	if _, ok := root.Parent(); ok {
		t.Error("Parent(/) should report no parent")
	}
}

func TestPathChild(t *testing.T) {
	dir := NewPath("/a/b")
	if got := dir.Child("c").PathPart(); got != "/a/b/c" {
		t.Errorf("Child() = %q, want /a/b/c", got)
	}
	root, _ := ParsePath("mem:///")
	child := root.Child("x")
	if child.String() != "mem:///x" {
		t.Errorf("Child() on root = %q, want mem:///x", child.String())
	}
}

func TestPathEqual(t *testing.T) {
	a, _ := ParsePath("MEM:///data")
	b, _ := ParsePath("mem:///data")
	if !a.Equal(b) {
		t.Error("schemes must compare case-insensitively")
	}
	c, _ := ParsePath("mem:///Data")
	if b.Equal(c) {
		t.Error("path segments must compare exactly")
	}
}
