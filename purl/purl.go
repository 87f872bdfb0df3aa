// Package purl implements the package-url identifier codec: parsing,
// canonical serialization, and the deterministic qualifier UUID used to key
// a qualified_package row.
package purl

import (
	"sort"
	"strings"

	"github.com/google/uuid"
	packageurl "github.com/package-url/packageurl-go"

	"github.com/sbomgraph/ingestor"
)

// qualifierNamespace is the fixed namespace UUID qualifier sets are hashed
// into. Any stable, arbitrarily-chosen UUID works here; this one has no
// meaning beyond being a constant.
var qualifierNamespace = uuid.MustParse("f54f2e78-0f3c-4a0d-9a5a-0c1a6b6bf7d1")

// Purl is a parsed package-url, split the way the graph stores it: a base
// identity (type/namespace/name), a version, and a qualifier set.
type Purl struct {
	Type       string
	Namespace  string
	Name       string
	Version    string
	Qualifiers map[string]string
	Subpath    string
}

// Parse parses s as a package-url.
func Parse(s string) (Purl, error) {
	p, err := packageurl.FromString(s)
	if err != nil {
		return Purl{}, ingestor.Wrap("purl.Parse", ingestor.ErrInvalidIdentifier, err)
	}
	q := make(map[string]string, len(p.Qualifiers))
	for _, kv := range p.Qualifiers {
		q[kv.Key] = kv.Value
	}
	return Purl{
		Type:       p.Type,
		Namespace:  p.Namespace,
		Name:       p.Name,
		Version:    p.Version,
		Qualifiers: q,
		Subpath:    p.Subpath,
	}, nil
}

// BaseString returns the canonical type/namespace/name string with no
// version or qualifiers, the identity of a base_purl row.
func (p Purl) BaseString() string {
	var b strings.Builder
	b.WriteString("pkg:")
	b.WriteString(p.Type)
	if p.Namespace != "" {
		b.WriteByte('/')
		b.WriteString(p.Namespace)
	}
	b.WriteByte('/')
	b.WriteString(p.Name)
	return b.String()
}

// VersionedString returns the canonical type/namespace/name@version string,
// the identity of a versioned_purl row.
func (p Purl) VersionedString() string {
	s := p.BaseString()
	if p.Version != "" {
		s += "@" + p.Version
	}
	return s
}

// String returns the full canonical package-url, qualifiers sorted by key,
// matching packageurl-go's own ToString ordering so it is stable across
// process restarts.
func (p Purl) String() string {
	pu := packageurl.NewPackageURL(p.Type, p.Namespace, p.Name, p.Version, p.qualifierList(), p.Subpath)
	return pu.ToString()
}

func (p Purl) qualifierList() packageurl.Qualifiers {
	keys := make([]string, 0, len(p.Qualifiers))
	for k := range p.Qualifiers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(packageurl.Qualifiers, 0, len(keys))
	for _, k := range keys {
		out = append(out, packageurl.Qualifier{Key: k, Value: p.Qualifiers[k]})
	}
	return out
}

// QualifierUUID computes the deterministic identifier of the qualified
// package: a UUIDv5 of the versioned identity plus the canonical,
// key-sorted qualifier string. Two Purl values with the same type,
// namespace, name, version, and qualifier set (regardless of qualifier
// insertion order) always produce the same UUID.
func (p Purl) QualifierUUID() uuid.UUID {
	keys := make([]string, 0, len(p.Qualifiers))
	for k := range p.Qualifiers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString(p.VersionedString())
	for _, k := range keys {
		b.WriteByte('?')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(p.Qualifiers[k])
	}
	return uuid.NewSHA1(qualifierNamespace, []byte(b.String()))
}
