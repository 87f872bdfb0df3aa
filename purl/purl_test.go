package purl

import (
	"reflect"
	"testing"
)

func TestParseRoundTrip(t *testing.T) {
	const in = "pkg:maven/org.apache.logging.log4j/log4j-core@2.14.1?type=jar"
	p, err := Parse(in)
	if err != nil {
		t.Fatalf("Parse(%q): %v", in, err)
	}
	if got, want := p.Type, "maven"; got != want {
		t.Errorf("Type = %q, want %q", got, want)
	}
	if got, want := p.Name, "log4j-core"; got != want {
		t.Errorf("Name = %q, want %q", got, want)
	}
	if got, want := p.BaseString(), "pkg:maven/org.apache.logging.log4j/log4j-core"; got != want {
		t.Errorf("BaseString() = %q, want %q", got, want)
	}
	if got, want := p.VersionedString(), "pkg:maven/org.apache.logging.log4j/log4j-core@2.14.1"; got != want {
		t.Errorf("VersionedString() = %q, want %q", got, want)
	}
	again, err := Parse(p.String())
	if err != nil {
		t.Fatalf("Parse(%q): %v", p.String(), err)
	}
	if !reflect.DeepEqual(again, p) {
		t.Errorf("Parse(String()) = %+v, want %+v", again, p)
	}
}

func TestParseInvalid(t *testing.T) {
	if _, err := Parse("not a purl"); err == nil {
		t.Fatal("expected an error parsing a malformed purl")
	}
}

func TestQualifierUUIDDeterministic(t *testing.T) {
	a, err := Parse("pkg:npm/left-pad@1.3.0?arch=x86&os=linux")
	if err != nil {
		t.Fatal(err)
	}
	b, err := Parse("pkg:npm/left-pad@1.3.0?os=linux&arch=x86")
	if err != nil {
		t.Fatal(err)
	}
	if a.QualifierUUID() != b.QualifierUUID() {
		t.Fatal("qualifier UUID must not depend on qualifier insertion order")
	}

	c, err := Parse("pkg:npm/left-pad@1.3.0?arch=arm64&os=linux")
	if err != nil {
		t.Fatal(err)
	}
	if a.QualifierUUID() == c.QualifierUUID() {
		t.Fatal("different qualifier sets must produce different UUIDs")
	}
}

func TestStringSortsQualifiers(t *testing.T) {
	p, err := Parse("pkg:npm/left-pad@1.3.0?os=linux&arch=x86")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := p.String(), "pkg:npm/left-pad@1.3.0?arch=x86&os=linux"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
