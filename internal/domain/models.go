package domain

import (
	"github.com/shopspring/decimal"
)

func init() {
	// Wire format carries plain JSON numbers for amounts, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Direction tells whether the query covers vouchers the business issued or
// vouchers issued to it. The values double as wire values.
type Direction string

const (
	DirectionEmitidos  Direction = "emitidos"
	DirectionRecibidos Direction = "recibidos"
)

func (d Direction) IsValid() bool {
	return d == DirectionEmitidos || d == DirectionRecibidos
}

// Label is the display form used in voucher rows ("Emitidos"/"Recibidos").
func (d Direction) Label() string {
	if d == DirectionEmitidos {
		return "Emitidos"
	}
	return "Recibidos"
}

// Effect is the SAT voucher effect: Ingreso (invoice), Egreso (credit/debit
// note), Pago (payment complement), Nomina (payroll receipt).
type Effect string

const (
	EffectIngreso Effect = "Ingreso"
	EffectEgreso  Effect = "Egreso"
	EffectPago    Effect = "Pago"
	EffectNomina  Effect = "Nomina"
)

// Status is the tri-state cancellation status recognized by the SAT.
// The zero value is Unknown.
type Status int

const (
	StatusDesconocido Status = iota
	StatusVigente
	StatusCancelado
)

// MarshalJSON keeps the legacy wire encoding: "1" for vigente, "0" for
// cancelado, null when the raw status text matched neither pattern.
func (s Status) MarshalJSON() ([]byte, error) {
	switch s {
	case StatusVigente:
		return []byte(`"1"`), nil
	case StatusCancelado:
		return []byte(`"0"`), nil
	default:
		return []byte("null"), nil
	}
}

// Party identifies the issuer or recipient of a voucher.
type Party struct {
	RFC    string `json:"rfc"`
	Nombre string `json:"nombre"`
}

// Voucher is the canonical record for one SAT-reported fiscal document.
// The detail slots past TipoComprobante stay at their zero values until XML
// detail is merged in, except for the fields the metadata fallback fills.
type Voucher struct {
	UUID               string `json:"uuid"`
	Estatus            Status `json:"estatus"`
	EstatusDescripcion string `json:"estatus_descripcion"`
	Emisor             Party  `json:"emisor"`
	Receptor           Party  `json:"receptor"`
	FechaEmision       string `json:"fecha_emision"`
	FechaCertificacion string `json:"fecha_certificacion"`
	Total              string `json:"total"`
	Efecto             Effect `json:"efecto_comprobante"`
	TipoComprobante    string `json:"tipo_comprobante"`

	Serie              string          `json:"serie"`
	Folio              string          `json:"folio"`
	MetodoPago         string          `json:"metodo_pago"`
	FormaPago          string          `json:"forma_pago"`
	UsoCFDI            string          `json:"uso_cfdi"`
	Moneda             string          `json:"moneda"`
	Subtotal           decimal.Decimal `json:"subtotal"`
	Descuento          decimal.Decimal `json:"descuento"`
	TotalNum           decimal.Decimal `json:"total_num"`
	TrasladoIVA16      decimal.Decimal `json:"traslado_iva_16"`
	TrasladoIVA8       decimal.Decimal `json:"traslado_iva_8"`
	TotalImpTrasladado decimal.Decimal `json:"total_imp_trasladado"`
	EsPago             bool            `json:"es_pago"`
	PagosNum           int             `json:"pagos_num"`

	// DetalleError is set when XML detail was requested for this uuid but the
	// download failed. The rest of the record keeps metadata fidelity.
	DetalleError string `json:"detalle_error,omitempty"`
}

// ReportItem is one row of the reconciliation report, shaped for display.
type ReportItem struct {
	UUID      string  `json:"uuid"`
	Status    Status  `json:"status"`
	Emisor    string  `json:"emisor"`
	RFCEmisor string  `json:"rfc_emisor"`
	Receptor  string  `json:"receptor"`
	RFC       string  `json:"rfc"`
	Completo  Voucher `json:"completo"`
	Monto     string  `json:"monto"`
	Tipo      Effect  `json:"tipo"`
	Fecha     string  `json:"fecha"`
}

// Discrepancy is one reported disagreement between the SAT and the local
// ledger. Immutable once appended to a report.
type Discrepancy struct {
	Tipo     string  `json:"tipo"`
	Persona  string  `json:"persona"`
	Total    string  `json:"total"`
	Problema string  `json:"problema"`
	UUID     string  `json:"uuid"`
	Fecha    string  `json:"fecha"`
	URL      *string `json:"url"`
}

// Resumen summarizes one reconciliation pass.
type Resumen struct {
	Total       int    `json:"total"`
	Tipo        string `json:"tipo"`
	RangoFechas string `json:"rango_fechas"`
}

// VerifyRequest is the payload for the reconciliation endpoint.
type VerifyRequest struct {
	EmpresaID   int64     `json:"empresa_id"`
	FechaInicio string    `json:"fecha_inicio"`
	FechaFinal  string    `json:"fecha_final"`
	Tipo        Direction `json:"tipo"`
}

// VerifyResponse is the reconciliation endpoint's canonical response. Tipo
// classifies failures ("conexion", "interno", "sin_resultados", ...).
type VerifyResponse struct {
	Exito              bool          `json:"exito"`
	Mensaje            string        `json:"mensaje"`
	Errores            []string      `json:"errores"`
	Tipo               string        `json:"tipo,omitempty"`
	Items              []ReportItem  `json:"items,omitempty"`
	Diferencias        []Discrepancy `json:"diferencias,omitempty"`
	TotalesDiferencias int           `json:"totales_diferencias"`
	Resumen            *Resumen      `json:"resumen,omitempty"`
}

// QueryRequest is the payload for the detail-query endpoint.
type QueryRequest struct {
	EmpresaID    int64     `json:"empresa_id"`
	FechaInicio  string    `json:"fecha_inicio"`
	FechaFinal   string    `json:"fecha_final"`
	Tipo         Direction `json:"tipo"`
	Detallado    bool      `json:"detallado"`
	MaxDetalles  int       `json:"max_detalles"`
	Concurrencia int       `json:"concurrencia"`
}

// QueryResponse is the detail-query endpoint's canonical response.
type QueryResponse struct {
	Exito        bool      `json:"exito"`
	Mensaje      string    `json:"mensaje"`
	Errores      []string  `json:"errores"`
	Items        []Voucher `json:"items"`
	Detallado    bool      `json:"detallado"`
	DescargasXML int       `json:"descargas_xml"`
}
