package reconcile

import (
	"context"
	"fmt"

	"github.com/hgarces/verificasat/internal/domain"
	"github.com/hgarces/verificasat/internal/ledger"
)

// Reconciler decides, for one normalized voucher, whether the SAT and the
// local ledger disagree about cancellation. Payroll vouchers never reach a
// comparison: emitidos filters them out before this point and recibidos has
// no dispatch branch for them.
type Reconciler struct {
	ledger ledger.Lookup
}

func NewReconciler(l ledger.Lookup) *Reconciler {
	return &Reconciler{ledger: l}
}

// Compare appends zero or more discrepancies for the voucher to the report.
// Only the received credit-note branch can produce more than one.
func (r *Reconciler) Compare(ctx context.Context, empresaID int64, direction domain.Direction, v *domain.Voucher, rep *Report) error {
	if direction == domain.DirectionEmitidos {
		return r.compareEmitidos(ctx, empresaID, v, rep)
	}
	return r.compareRecibidos(ctx, empresaID, v, rep)
}

func (r *Reconciler) compareEmitidos(ctx context.Context, empresaID int64, v *domain.Voucher, rep *Report) error {
	vigente := v.Estatus == domain.StatusVigente
	persona := v.Receptor.Nombre
	total := parseTotal(v.Total)

	switch v.Efecto {
	case domain.EffectIngreso:
		factura, err := r.ledger.FindFactura(ctx, empresaID, v.UUID)
		if err != nil {
			return err
		}
		if factura != nil {
			if vigente && factura.Cancelled() {
				rep.AddDiscrepancy("Factura", persona, total,
					"La factura esta cancelada pero vigente en el SAT.",
					v.UUID, v.FechaCertificacion, entityLink(empresaID, "facturas", factura.ID))
			} else if !vigente && !factura.Cancelled() {
				rep.AddDiscrepancy("Factura", persona, total,
					"La factura está vigente pero cancelada en el SAT.",
					v.UUID, v.FechaCertificacion, entityLink(empresaID, "facturas", factura.ID))
			}
			return nil
		}

		anticipo, err := r.ledger.FindAnticipo(ctx, empresaID, v.UUID)
		if err != nil {
			return err
		}
		if anticipo != nil {
			if vigente && anticipo.Cancelled() {
				rep.AddDiscrepancy("Anticipo", persona, total,
					"El anticipo está cancelado pero vigente en el SAT.",
					v.UUID, v.FechaCertificacion, entityLink(empresaID, "anticipos", anticipo.ID))
			} else if !vigente && !anticipo.Cancelled() {
				rep.AddDiscrepancy("Anticipo", persona, total,
					"El anticipo está vigente pero cancelado en el SAT.",
					v.UUID, v.FechaCertificacion, entityLink(empresaID, "anticipos", anticipo.ID))
			}
			return nil
		}

		if vigente {
			rep.AddDiscrepancy("Factura", persona, total,
				"No se encontró la factura/anticipo.",
				v.UUID, v.FechaCertificacion, nil)
		}

	case domain.EffectPago:
		pago, err := r.ledger.FindFacturaPago(ctx, empresaID, v.UUID)
		if err != nil {
			return err
		}
		if pago != nil {
			if vigente && pago.Cancelled() {
				rep.AddDiscrepancy("Pago", persona, total,
					"El complemento de pago está cancelado pero vigente en el SAT.",
					v.UUID, v.FechaCertificacion, entityLink(empresaID, "facturas_pagos", pago.ID))
			} else if !vigente && !pago.Cancelled() {
				rep.AddDiscrepancy("Pago", persona, total,
					"El complemento de pago esta cancelado en el SAT.",
					v.UUID, v.FechaCertificacion, entityLink(empresaID, "facturas_pagos", pago.ID))
			}
			return nil
		}

		if vigente {
			rep.AddDiscrepancy("Pago", persona, total,
				"No se encontró el complemento de pago.",
				v.UUID, v.FechaCertificacion, nil)
		}

	case domain.EffectEgreso:
		nota, err := r.ledger.FindNotaCredito(ctx, empresaID, v.UUID)
		if err != nil {
			return err
		}
		if nota != nil {
			if vigente && nota.Cancelled() {
				rep.AddDiscrepancy("Nota de crédito", persona, total,
					"La nota de crédito está cancelada pero vigente en el SAT.",
					v.UUID, v.FechaCertificacion, entityLink(empresaID, "notas_credito", nota.ID))
			} else if !vigente && !nota.Cancelled() {
				rep.AddDiscrepancy("Nota de crédito", persona, total,
					"La nota de crédito está vigente pero cancelada en el SAT.",
					v.UUID, v.FechaCertificacion, entityLink(empresaID, "notas_credito", nota.ID))
			}
			return nil
		}

		if vigente {
			rep.AddDiscrepancy("Nota de crédito", persona, total,
				"No se encontró la nota de crédito.",
				v.UUID, v.FechaCertificacion, nil)
		}
	}

	return nil
}

func (r *Reconciler) compareRecibidos(ctx context.Context, empresaID int64, v *domain.Voucher, rep *Report) error {
	vigente := v.Estatus == domain.StatusVigente
	cancelado := v.Estatus == domain.StatusCancelado
	persona := v.Emisor.Nombre
	total := parseTotal(v.Total)

	switch v.Efecto {
	case domain.EffectIngreso:
		compra, err := r.ledger.FindCompra(ctx, empresaID, v.UUID)
		if err != nil {
			return err
		}
		if compra != nil {
			if vigente && compra.Cancelled() {
				// A second active row with the same uuid means the purchase
				// was correctly reissued; suppress.
				reemplazo, err := r.ledger.OtherActiveCompraExists(ctx, empresaID, v.UUID)
				if err != nil {
					return err
				}
				if !reemplazo {
					rep.AddDiscrepancy("Compra", persona, total,
						"La compra está cancelada pero vigente en el SAT.",
						v.UUID, v.FechaCertificacion, entityLink(empresaID, "compras", compra.ID))
				}
			} else if !vigente && !compra.Cancelled() {
				rep.AddDiscrepancy("Compra", persona, total,
					"La compra está vigente pero cancelada en el SAT.",
					v.UUID, v.FechaCertificacion, entityLink(empresaID, "compras", compra.ID))
			}
			return nil
		}

		if !cancelado {
			rep.AddDiscrepancy("Compra", persona, total,
				"No se encontró la compra a proveedor.",
				v.UUID, v.FechaCertificacion, nil)
		}

	case domain.EffectPago:
		pago, err := r.ledger.FindPagoComplemento(ctx, empresaID, v.UUID)
		if err != nil {
			return err
		}
		if pago != nil {
			if !vigente && pago.Pago != nil && !pago.Pago.Cancelled() {
				rep.AddDiscrepancy("Pago", persona, total,
					"El complemento de pago de proveedor está cancelado pero lo tienes vinculado a un pago activo.",
					v.UUID, v.FechaCertificacion, entityLink(empresaID, "pagoscompras", pago.Pago.ID))
			}
			// Vigente at the SAT with the linked payment cancelled locally is
			// deliberately not reported.
			return nil
		}

		if !cancelado {
			rep.AddDiscrepancy("Pago a proveedor", persona, total,
				"No se encontró el complemento de pago de proveedor.",
				v.UUID, v.FechaCertificacion, nil)
		}

	case domain.EffectEgreso:
		nota, err := r.ledger.FindCompraNotaCredito(ctx, empresaID, v.UUID)
		if err != nil {
			return err
		}
		if nota != nil {
			if nota.Compra != nil {
				// Both directions are checked independently.
				if cancelado && !nota.Compra.Cancelled() {
					rep.AddDiscrepancy("Nota de crédito", persona, total,
						"La nota de crédito de proveedor está cancelada y en sistema está cargada.",
						v.UUID, v.FechaCertificacion, entityLink(empresaID, "compras", nota.Compra.ID))
				}
				if vigente && nota.Compra.Cancelled() {
					rep.AddDiscrepancy("Nota de crédito", persona, total,
						"La nota de crédito de proveedor está vigente en el SAT pero en sistema está cancelada.",
						v.UUID, v.FechaCertificacion, entityLink(empresaID, "compras", nota.Compra.ID))
				}
				return nil
			}

			if !cancelado {
				rep.AddDiscrepancy("Nota de crédito", persona, total,
					"La nota de crédito de proveedor existe en sistema pero no tiene compra relacionada.",
					v.UUID, v.FechaCertificacion, nil)
			}
			return nil
		}

		if !cancelado {
			rep.AddDiscrepancy("Nota de crédito", persona, total,
				"No se encontró la nota de crédito de proveedor.",
				v.UUID, v.FechaCertificacion, nil)
		}
	}

	return nil
}

func entityLink(empresaID int64, resource string, id int64) *string {
	link := fmt.Sprintf("/empresas/%d/%s/%d", empresaID, resource, id)
	return &link
}
