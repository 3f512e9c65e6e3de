package reconcile

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/hgarces/verificasat/internal/cfdi"
	"github.com/hgarces/verificasat/internal/domain"
	"github.com/hgarces/verificasat/internal/satclient"
)

func TestResolveStatus(t *testing.T) {
	cases := []struct {
		raw      string
		want     domain.Status
		wantDesc string
	}{
		{"Vigente", domain.StatusVigente, "Vigente"},
		{"vigente", domain.StatusVigente, "Vigente"},
		{"1", domain.StatusVigente, "Vigente"},
		// "No cancelado" contains "cancel"; it must still resolve as valid.
		{"No cancelado", domain.StatusVigente, "Vigente"},
		{"Cancelado", domain.StatusCancelado, "Cancelado"},
		{"Cancelado con aceptación", domain.StatusCancelado, "Cancelado"},
		{"0", domain.StatusCancelado, "Cancelado"},
		{"", domain.StatusDesconocido, "Desconocido"},
		{"En proceso", domain.StatusDesconocido, "En proceso"},
	}

	for _, tc := range cases {
		got, desc := ResolveStatus(tc.raw)
		if got != tc.want || desc != tc.wantDesc {
			t.Errorf("ResolveStatus(%q) = (%v, %q), want (%v, %q)",
				tc.raw, got, desc, tc.want, tc.wantDesc)
		}
	}
}

func TestNormalizeFillsOnlyPresentMetadata(t *testing.T) {
	item := satclient.SummaryItem{
		UUID:               "AAA-111",
		EstadoComprobante:  "Vigente",
		RFCEmisor:          "EMI010101AAA",
		NombreEmisor:       "Emisor SA",
		RFCReceptor:        "REC010101BBB",
		NombreReceptor:     "Receptor SA",
		FechaEmision:       "2024-02-01T10:00:00",
		FechaCertificacion: "2024-02-01T10:05:00",
		Total:              "$1,500.00",
		EfectoComprobante:  "Ingreso",
		Serie:              "A",
		Moneda:             "MXN",
	}

	v := Normalize(item, domain.DirectionEmitidos)

	if v.Estatus != domain.StatusVigente || v.EstatusDescripcion != "Vigente" {
		t.Errorf("estatus = (%v, %q)", v.Estatus, v.EstatusDescripcion)
	}
	if v.Emisor.Nombre != "Emisor SA" || v.Receptor.RFC != "REC010101BBB" {
		t.Errorf("parties = %+v / %+v", v.Emisor, v.Receptor)
	}
	if v.Efecto != domain.EffectIngreso {
		t.Errorf("Efecto = %q, want Ingreso", v.Efecto)
	}
	if v.TipoComprobante != "Emitidos" {
		t.Errorf("TipoComprobante = %q, want Emitidos", v.TipoComprobante)
	}
	if v.Serie != "A" || v.Moneda != "MXN" {
		t.Errorf("serie/moneda = %q/%q", v.Serie, v.Moneda)
	}
	if !v.TotalNum.Equal(decimal.RequireFromString("1500")) {
		t.Errorf("TotalNum = %s, want 1500", v.TotalNum)
	}

	// Absent metadata must leave the detail slots at their defaults.
	if v.Folio != "" || v.MetodoPago != "" || v.UsoCFDI != "" {
		t.Errorf("empty metadata leaked: folio=%q metodo=%q uso=%q", v.Folio, v.MetodoPago, v.UsoCFDI)
	}
	if !v.Subtotal.IsZero() || !v.Descuento.IsZero() {
		t.Errorf("zero amounts leaked: subtotal=%s descuento=%s", v.Subtotal, v.Descuento)
	}
}

func TestApplyDetailOverwritesUnconditionally(t *testing.T) {
	item := satclient.SummaryItem{
		UUID:               "BBB-222",
		EstadoComprobante:  "Vigente",
		NombreEmisor:       "Emisor SA",
		FechaCertificacion: "2024-02-01T10:05:00",
		Total:              "1160.00",
		EfectoComprobante:  "Ingreso",
		Serie:              "META",
		Folio:              "99",
		Moneda:             "USD",
		Subtotal:           decimal.RequireFromString("999"),
	}

	base := Normalize(item, domain.DirectionRecibidos)
	merged := base
	ApplyDetail(&merged, cfdi.Fields{
		Serie:              "A",
		MetodoPago:         "PUE",
		Moneda:             "MXN",
		Subtotal:           decimal.RequireFromString("1000"),
		Total:              decimal.RequireFromString("1160"),
		TrasladoIVA16:      decimal.RequireFromString("160"),
		TotalImpTrasladado: decimal.RequireFromString("160"),
	})

	if merged.Serie != "A" {
		t.Errorf("Serie = %q, want A", merged.Serie)
	}
	// The XML carried no folio, so the metadata folio is cleared too.
	if merged.Folio != "" {
		t.Errorf("Folio = %q, want empty", merged.Folio)
	}
	if merged.Moneda != "MXN" || merged.MetodoPago != "PUE" {
		t.Errorf("moneda/metodo = %q/%q", merged.Moneda, merged.MetodoPago)
	}
	if !merged.Subtotal.Equal(decimal.RequireFromString("1000")) {
		t.Errorf("Subtotal = %s, want 1000", merged.Subtotal)
	}
	if !merged.TrasladoIVA16.Equal(decimal.RequireFromString("160")) {
		t.Errorf("TrasladoIVA16 = %s, want 160", merged.TrasladoIVA16)
	}

	// Identity and status fields are outside the detail merge.
	if merged.UUID != base.UUID ||
		merged.Estatus != base.Estatus ||
		merged.Emisor != base.Emisor ||
		merged.FechaCertificacion != base.FechaCertificacion ||
		merged.Total != base.Total ||
		merged.Efecto != base.Efecto {
		t.Errorf("detail merge touched identity fields: %+v", merged)
	}
}
