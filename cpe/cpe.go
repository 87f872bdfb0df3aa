// Package cpe implements the CPE identifier codec used to key a cpe row:
// parsing both the 2.2 URI-bound and 2.3 formatted-string grammars into the
// 7-tuple the graph schema stores, via the well-formed-name machinery the
// claircore toolkit module already implements.
package cpe

import (
	"strings"

	wfn "github.com/quay/claircore/toolkit/types/cpe"

	"github.com/sbomgraph/ingestor"
)

// Cpe is the 7-field tuple the graph persists: part, vendor, product,
// version, update, edition, and language. Any further well-formed-name
// attributes present in a 2.3 formatted string (sw_edition, target_sw,
// target_hw, other) are read during Parse and then discarded, per the
// schema's narrower tuple.
type Cpe struct {
	Part     string
	Vendor   string
	Product  string
	Version  string
	Update   string
	Edition  string
	Language string
}

// any is the CPE "ANY" value, rendered as the tuple field's zero value.
const any = ""

// Parse accepts either a 2.2 URI-bound CPE ("cpe:/a:...") or a 2.3
// formatted string ("cpe:2.3:a:...") and returns the projected 7-tuple.
func Parse(s string) (Cpe, error) {
	w, err := wfn.Unbind(s)
	if err != nil {
		return Cpe{}, ingestor.Wrap("cpe.Parse", ingestor.ErrInvalidIdentifier, err)
	}
	return fromWFN(w), nil
}

func fromWFN(w wfn.WFN) Cpe {
	return Cpe{
		Part:     attrString(w.Attr[wfn.Part]),
		Vendor:   attrString(w.Attr[wfn.Vendor]),
		Product:  attrString(w.Attr[wfn.Product]),
		Version:  attrString(w.Attr[wfn.Version]),
		Update:   attrString(w.Attr[wfn.Update]),
		Edition:  attrString(w.Attr[wfn.Edition]),
		Language: attrString(w.Attr[wfn.Language]),
	}
}

func attrString(v wfn.Value) string {
	switch v.Kind {
	case wfn.ValueAny, wfn.ValueNA, wfn.ValueUnset:
		return any
	default:
		return v.V
	}
}

// String renders the tuple as a 2.3 formatted string, with any unset field
// reported as the CPE "ANY" ("*") value.
func (c Cpe) String() string {
	f := func(v string) string {
		if v == any {
			return "*"
		}
		return v
	}
	parts := []string{
		"cpe", "2.3",
		f(c.Part), f(c.Vendor), f(c.Product), f(c.Version),
		f(c.Update), f(c.Edition), f(c.Language), "*", "*", "*", "*",
	}
	return strings.Join(parts, ":")
}
