package reconcile

import (
	"strings"

	"github.com/hgarces/verificasat/internal/cfdi"
	"github.com/hgarces/verificasat/internal/domain"
	"github.com/hgarces/verificasat/internal/satclient"
)

// ResolveStatus maps the SAT's free-text voucher state to the tri-state
// status. The "no cancelado" check must run before the "cancel" check, since
// the former contains the latter.
func ResolveStatus(raw string) (domain.Status, string) {
	if raw == "" {
		return domain.StatusDesconocido, "Desconocido"
	}

	lower := strings.ToLower(raw)
	switch {
	case strings.Contains(lower, "vigente"), lower == "1", strings.Contains(lower, "no cancelado"):
		return domain.StatusVigente, "Vigente"
	case strings.Contains(lower, "cancel"), lower == "0":
		return domain.StatusCancelado, "Cancelado"
	default:
		return domain.StatusDesconocido, raw
	}
}

// Normalize converts one authority metadata row into the canonical record.
// Detail slots start at their defaults; the metadata fallback only fills a
// slot when the metadata actually carries a value, so a spurious zero or
// empty string never masks a legitimate absence.
func Normalize(item satclient.SummaryItem, direction domain.Direction) domain.Voucher {
	status, desc := ResolveStatus(item.EstadoComprobante)

	v := domain.Voucher{
		UUID:               item.UUID,
		Estatus:            status,
		EstatusDescripcion: desc,
		Emisor:             domain.Party{RFC: item.RFCEmisor, Nombre: item.NombreEmisor},
		Receptor:           domain.Party{RFC: item.RFCReceptor, Nombre: item.NombreReceptor},
		FechaEmision:       item.FechaEmision,
		FechaCertificacion: item.FechaCertificacion,
		Total:              item.Total,
		Efecto:             domain.Effect(item.EfectoComprobante),
		TipoComprobante:    direction.Label(),
	}

	if item.Serie != "" {
		v.Serie = item.Serie
	}
	if item.Folio != "" {
		v.Folio = item.Folio
	}
	if item.Moneda != "" {
		v.Moneda = item.Moneda
	}
	if item.FormaPago != "" {
		v.FormaPago = item.FormaPago
	}
	if item.MetodoPago != "" {
		v.MetodoPago = item.MetodoPago
	}
	if item.UsoCFDI != "" {
		v.UsoCFDI = item.UsoCFDI
	}
	if item.Subtotal.IsPositive() {
		v.Subtotal = item.Subtotal
	}
	if item.Descuento.IsPositive() {
		v.Descuento = item.Descuento
	}
	if total := parseTotal(item.Total); total.IsPositive() {
		v.TotalNum = total
	}

	return v
}

// ApplyDetail merges the extractor's output into the record. The XML is the
// authoritative source, so every extracted field overwrites its
// metadata-derived counterpart unconditionally.
func ApplyDetail(v *domain.Voucher, f cfdi.Fields) {
	v.Serie = f.Serie
	v.Folio = f.Folio
	v.MetodoPago = f.MetodoPago
	v.FormaPago = f.FormaPago
	v.UsoCFDI = f.UsoCFDI
	v.Moneda = f.Moneda
	v.Subtotal = f.Subtotal
	v.Descuento = f.Descuento
	v.TotalNum = f.Total
	v.TrasladoIVA16 = f.TrasladoIVA16
	v.TrasladoIVA8 = f.TrasladoIVA8
	v.TotalImpTrasladado = f.TotalImpTrasladado
	v.EsPago = f.EsPago
	v.PagosNum = f.PagosNum
}
