package reconcile

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/hgarces/verificasat/internal/domain"
)

// Report accumulates the rows and discrepancies of one reconciliation pass.
// It is built in a single pass and never mutated after being returned.
type Report struct {
	Items       []domain.ReportItem
	Diferencias []domain.Discrepancy
	Totales     int
}

func NewReport() *Report {
	return &Report{
		Items:       []domain.ReportItem{},
		Diferencias: []domain.Discrepancy{},
	}
}

// AddItem appends one display row carrying the full voucher payload.
func (r *Report) AddItem(v domain.Voucher) {
	r.Items = append(r.Items, domain.ReportItem{
		UUID:      v.UUID,
		Status:    v.Estatus,
		Emisor:    v.Emisor.Nombre,
		RFCEmisor: v.Emisor.RFC,
		Receptor:  v.Receptor.Nombre,
		RFC:       v.Receptor.RFC,
		Completo:  v,
		Monto:     "$" + formatMoney(parseTotal(v.Total)),
		Tipo:      v.Efecto,
		Fecha:     formatFecha(v.FechaCertificacion),
	})
}

// AddDiscrepancy appends one entry and bumps the counter; nothing else in
// the report changes.
func (r *Report) AddDiscrepancy(tipo, persona string, total decimal.Decimal, problema, uuid, fecha string, url *string) {
	r.Diferencias = append(r.Diferencias, domain.Discrepancy{
		Tipo:     tipo,
		Persona:  persona,
		Total:    "$ " + formatMoney(total),
		Problema: problema,
		UUID:     uuid,
		Fecha:    formatFecha(fecha),
		URL:      url,
	})
	r.Totales++
}

// SortByCertificationDate orders vouchers newest-first. The sort is stable
// and a record whose date cannot be parsed sorts as the oldest possible
// value.
func SortByCertificationDate(items []domain.Voucher) {
	sort.SliceStable(items, func(i, j int) bool {
		ti, _ := parseFecha(items[i].FechaCertificacion)
		tj, _ := parseFecha(items[j].FechaCertificacion)
		return ti.After(tj)
	})
}
