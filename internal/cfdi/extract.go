// Package cfdi extracts tax and commercial fields from raw CFDI bodies.
// It understands CFDI 3.3 and 4.0 plus the Pagos 1.0 and 2.0 complements,
// and never fails: malformed input yields the all-default field set.
package cfdi

import (
	"encoding/xml"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	nsCFDI40  = "http://www.sat.gob.mx/cfd/4"
	nsCFDI33  = "http://www.sat.gob.mx/cfd/3"
	nsPagos10 = "http://www.sat.gob.mx/Pagos"
	nsPagos20 = "http://www.sat.gob.mx/Pagos20"
)

// Recognized IVA rates for the traslado buckets.
const (
	rateIVA16 = 0.16
	rateIVA8  = 0.08
	rateEps   = 1e-6
)

// Fields is the flat set of values read from one voucher body. The zero
// value is the documented default for every member.
type Fields struct {
	Serie      string
	Folio      string
	MetodoPago string
	FormaPago  string
	UsoCFDI    string
	Moneda     string

	Subtotal  decimal.Decimal
	Descuento decimal.Decimal
	Total     decimal.Decimal

	TrasladoIVA16      decimal.Decimal
	TrasladoIVA8       decimal.Decimal
	TotalImpTrasladado decimal.Decimal

	EsPago   bool
	PagosNum int
}

type node struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []node     `xml:",any"`
}

// Extract parses one raw voucher body. It is purely functional and does not
// error out: anything it cannot read stays at its default.
func Extract(body []byte) Fields {
	var out Fields

	var root node
	if err := xml.Unmarshal(body, &root); err != nil {
		return out
	}

	if root.XMLName.Local != "Comprobante" {
		return out
	}
	ns := ""
	switch root.XMLName.Space {
	case nsCFDI40:
		ns = nsCFDI40
	case nsCFDI33:
		ns = nsCFDI33
	default:
		return out
	}

	// CFDI 4.0 capitalizes attributes, 3.3 producers sometimes use the old
	// camelCase names. Accept both.
	out.Serie = attr(&root, "Serie", "serie")
	out.Folio = attr(&root, "Folio", "folio")
	out.MetodoPago = attr(&root, "MetodoPago", "metodoDePago")
	out.FormaPago = attr(&root, "FormaPago", "formaDePago")
	out.Moneda = attr(&root, "Moneda")
	out.Subtotal = parseAmount(attr(&root, "SubTotal"))
	out.Descuento = parseAmount(attr(&root, "Descuento"))
	out.Total = parseAmount(attr(&root, "Total"))

	out.EsPago = strings.EqualFold(attr(&root, "TipoDeComprobante"), "P")

	if receptor := childNS(&root, ns, "Receptor"); receptor != nil {
		out.UsoCFDI = attr(receptor, "UsoCFDI", "usoCFDI")
	}

	// Some producers mislabel TipoDeComprobante, so the presence of payment
	// complement nodes overrides the type-code check.
	out.PagosNum = countPagos(&root)
	if out.PagosNum > 0 {
		out.EsPago = true
	}

	for _, t := range trasladoNodes(&root, ns) {
		rate, err := strconv.ParseFloat(attr(t, "TasaOCuota"), 64)
		if err != nil {
			rate = 0
		}
		importe := parseAmount(attr(t, "Importe"))

		switch {
		case math.Abs(rate-rateIVA16) < rateEps:
			out.TrasladoIVA16 = out.TrasladoIVA16.Add(importe)
		case math.Abs(rate-rateIVA8) < rateEps:
			out.TrasladoIVA8 = out.TrasladoIVA8.Add(importe)
		}
	}
	out.TotalImpTrasladado = out.TrasladoIVA16.Add(out.TrasladoIVA8)

	return out
}

// trasladoNodes returns the traslado entries to sum. Voucher-level entries
// win; concept-level entries are only used when no voucher-level block
// exists, which avoids counting the same tax twice.
func trasladoNodes(root *node, ns string) []*node {
	top := pathNS(root, ns, "Impuestos", "Traslados", "Traslado")
	if len(top) > 0 {
		return top
	}

	var out []*node
	for _, concepto := range pathNS(root, ns, "Conceptos", "Concepto") {
		out = append(out, pathNS(concepto, ns, "Impuestos", "Traslados", "Traslado")...)
	}
	return out
}

// countPagos counts Pago entries anywhere in the body, under either the
// Pagos 1.0 or Pagos 2.0 namespace.
func countPagos(n *node) int {
	count := 0
	if n.XMLName.Local == "Pago" &&
		(n.XMLName.Space == nsPagos10 || n.XMLName.Space == nsPagos20) {
		count++
	}
	for i := range n.Children {
		count += countPagos(&n.Children[i])
	}
	return count
}

func attr(n *node, names ...string) string {
	for _, name := range names {
		for _, a := range n.Attrs {
			if a.Name.Local == name {
				return a.Value
			}
		}
	}
	return ""
}

func childNS(n *node, ns, local string) *node {
	for i := range n.Children {
		c := &n.Children[i]
		if c.XMLName.Space == ns && c.XMLName.Local == local {
			return c
		}
	}
	return nil
}

// pathNS collects every node reachable from n through the given chain of
// child element names, all within namespace ns.
func pathNS(n *node, ns string, path ...string) []*node {
	current := []*node{n}
	for _, local := range path {
		var next []*node
		for _, c := range current {
			for i := range c.Children {
				ch := &c.Children[i]
				if ch.XMLName.Space == ns && ch.XMLName.Local == local {
					next = append(next, ch)
				}
			}
		}
		current = next
	}
	return current
}

func parseAmount(raw string) decimal.Decimal {
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}
