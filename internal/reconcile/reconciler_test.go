package reconcile

import (
	"context"
	"testing"

	"github.com/hgarces/verificasat/internal/domain"
	"github.com/hgarces/verificasat/internal/ledger"
)

// fakeLookup serves entries from in-memory maps keyed by uuid. A missing key
// behaves like a missing row.
type fakeLookup struct {
	facturas      map[string]*ledger.Entry
	anticipos     map[string]*ledger.Entry
	facturasPagos map[string]*ledger.Entry
	notasCredito  map[string]*ledger.Entry
	compras       map[string]*ledger.Entry
	reemplazos    map[string]bool
	pagosComp     map[string]*ledger.PaymentComplement
	comprasNotas  map[string]*ledger.SupplierCreditNote
}

func (f *fakeLookup) FindFactura(_ context.Context, _ int64, uuid string) (*ledger.Entry, error) {
	return f.facturas[uuid], nil
}

func (f *fakeLookup) FindAnticipo(_ context.Context, _ int64, uuid string) (*ledger.Entry, error) {
	return f.anticipos[uuid], nil
}

func (f *fakeLookup) FindFacturaPago(_ context.Context, _ int64, uuid string) (*ledger.Entry, error) {
	return f.facturasPagos[uuid], nil
}

func (f *fakeLookup) FindNotaCredito(_ context.Context, _ int64, uuid string) (*ledger.Entry, error) {
	return f.notasCredito[uuid], nil
}

func (f *fakeLookup) FindCompra(_ context.Context, _ int64, uuid string) (*ledger.Entry, error) {
	return f.compras[uuid], nil
}

func (f *fakeLookup) OtherActiveCompraExists(_ context.Context, _ int64, uuid string) (bool, error) {
	return f.reemplazos[uuid], nil
}

func (f *fakeLookup) FindPagoComplemento(_ context.Context, _ int64, uuid string) (*ledger.PaymentComplement, error) {
	return f.pagosComp[uuid], nil
}

func (f *fakeLookup) FindCompraNotaCredito(_ context.Context, _ int64, uuid string) (*ledger.SupplierCreditNote, error) {
	return f.comprasNotas[uuid], nil
}

func testVoucher(uuid string, efecto domain.Effect, st domain.Status) domain.Voucher {
	return domain.Voucher{
		UUID:               uuid,
		Estatus:            st,
		Efecto:             efecto,
		Emisor:             domain.Party{RFC: "PRO010101AAA", Nombre: "Proveedor SA"},
		Receptor:           domain.Party{RFC: "CLI010101BBB", Nombre: "Cliente SA"},
		Total:              "1500.00",
		FechaCertificacion: "2024-02-10T09:30:00",
	}
}

func runCompare(t *testing.T, lookup *fakeLookup, direction domain.Direction, v domain.Voucher) *Report {
	t.Helper()
	rep := NewReport()
	if err := NewReconciler(lookup).Compare(context.Background(), 1, direction, &v, rep); err != nil {
		t.Fatalf("Compare: %v", err)
	}
	return rep
}

func wantProblems(t *testing.T, rep *Report, problems ...string) {
	t.Helper()
	if len(rep.Diferencias) != len(problems) {
		t.Fatalf("got %d discrepancies, want %d: %+v", len(rep.Diferencias), len(problems), rep.Diferencias)
	}
	for i, p := range problems {
		if rep.Diferencias[i].Problema != p {
			t.Errorf("discrepancy %d = %q, want %q", i, rep.Diferencias[i].Problema, p)
		}
	}
	if rep.Totales != len(rep.Diferencias) {
		t.Errorf("Totales = %d, want %d", rep.Totales, len(rep.Diferencias))
	}
}

func TestCompareEmitidosFacturaMismatch(t *testing.T) {
	cases := []struct {
		name        string
		local       ledger.EntryStatus
		sat         domain.Status
		wantProblem string
	}{
		{"cancelled locally, valid at SAT", ledger.StatusCancelado, domain.StatusVigente,
			"La factura esta cancelada pero vigente en el SAT."},
		{"active locally, cancelled at SAT", ledger.StatusActivo, domain.StatusCancelado,
			"La factura está vigente pero cancelada en el SAT."},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			lookup := &fakeLookup{
				facturas: map[string]*ledger.Entry{
					"F-1": {ID: 42, UUID: "F-1", Status: tc.local},
				},
			}
			rep := runCompare(t, lookup, domain.DirectionEmitidos, testVoucher("F-1", domain.EffectIngreso, tc.sat))

			wantProblems(t, rep, tc.wantProblem)
			d := rep.Diferencias[0]
			if d.Tipo != "Factura" || d.Persona != "Cliente SA" {
				t.Errorf("tipo/persona = %q/%q", d.Tipo, d.Persona)
			}
			if d.URL == nil || *d.URL != "/empresas/1/facturas/42" {
				t.Errorf("URL = %v, want /empresas/1/facturas/42", d.URL)
			}
		})
	}
}

func TestCompareEmitidosFacturaAgreement(t *testing.T) {
	lookup := &fakeLookup{
		facturas: map[string]*ledger.Entry{
			"F-2": {ID: 7, UUID: "F-2", Status: ledger.StatusActivo},
		},
	}
	rep := runCompare(t, lookup, domain.DirectionEmitidos, testVoucher("F-2", domain.EffectIngreso, domain.StatusVigente))
	wantProblems(t, rep)
}

func TestCompareEmitidosIngresoNotFound(t *testing.T) {
	t.Run("valid at SAT", func(t *testing.T) {
		rep := runCompare(t, &fakeLookup{}, domain.DirectionEmitidos,
			testVoucher("F-3", domain.EffectIngreso, domain.StatusVigente))
		wantProblems(t, rep, "No se encontró la factura/anticipo.")
		if rep.Diferencias[0].URL != nil {
			t.Errorf("URL = %v, want nil", rep.Diferencias[0].URL)
		}
	})
	t.Run("cancelled at SAT", func(t *testing.T) {
		rep := runCompare(t, &fakeLookup{}, domain.DirectionEmitidos,
			testVoucher("F-3", domain.EffectIngreso, domain.StatusCancelado))
		wantProblems(t, rep)
	})
	t.Run("unknown at SAT", func(t *testing.T) {
		rep := runCompare(t, &fakeLookup{}, domain.DirectionEmitidos,
			testVoucher("F-3", domain.EffectIngreso, domain.StatusDesconocido))
		wantProblems(t, rep)
	})
}

func TestCompareEmitidosAnticipoFallback(t *testing.T) {
	lookup := &fakeLookup{
		anticipos: map[string]*ledger.Entry{
			"A-1": {ID: 9, UUID: "A-1", Status: ledger.StatusCancelado},
		},
	}
	rep := runCompare(t, lookup, domain.DirectionEmitidos, testVoucher("A-1", domain.EffectIngreso, domain.StatusVigente))

	wantProblems(t, rep, "El anticipo está cancelado pero vigente en el SAT.")
	if d := rep.Diferencias[0]; d.Tipo != "Anticipo" || d.URL == nil || *d.URL != "/empresas/1/anticipos/9" {
		t.Errorf("discrepancy = %+v", d)
	}
}

func TestCompareEmitidosPago(t *testing.T) {
	t.Run("cancelled locally, valid at SAT", func(t *testing.T) {
		lookup := &fakeLookup{
			facturasPagos: map[string]*ledger.Entry{
				"P-1": {ID: 3, UUID: "P-1", Status: ledger.StatusCancelado},
			},
		}
		rep := runCompare(t, lookup, domain.DirectionEmitidos, testVoucher("P-1", domain.EffectPago, domain.StatusVigente))
		wantProblems(t, rep, "El complemento de pago está cancelado pero vigente en el SAT.")
	})
	t.Run("active locally, cancelled at SAT", func(t *testing.T) {
		lookup := &fakeLookup{
			facturasPagos: map[string]*ledger.Entry{
				"P-1": {ID: 3, UUID: "P-1", Status: ledger.StatusActivo},
			},
		}
		rep := runCompare(t, lookup, domain.DirectionEmitidos, testVoucher("P-1", domain.EffectPago, domain.StatusCancelado))
		wantProblems(t, rep, "El complemento de pago esta cancelado en el SAT.")
	})
	t.Run("not found, valid at SAT", func(t *testing.T) {
		rep := runCompare(t, &fakeLookup{}, domain.DirectionEmitidos, testVoucher("P-2", domain.EffectPago, domain.StatusVigente))
		wantProblems(t, rep, "No se encontró el complemento de pago.")
	})
}

func TestCompareEmitidosNominaHasNoBranch(t *testing.T) {
	rep := runCompare(t, &fakeLookup{}, domain.DirectionEmitidos, testVoucher("N-1", domain.EffectNomina, domain.StatusVigente))
	wantProblems(t, rep)
}

func TestCompareRecibidosCompraReplacement(t *testing.T) {
	base := &fakeLookup{
		compras: map[string]*ledger.Entry{
			"C-1": {ID: 11, UUID: "C-1", Status: ledger.StatusCancelado},
		},
		reemplazos: map[string]bool{},
	}

	t.Run("reissued purchase suppresses the discrepancy", func(t *testing.T) {
		base.reemplazos["C-1"] = true
		rep := runCompare(t, base, domain.DirectionRecibidos, testVoucher("C-1", domain.EffectIngreso, domain.StatusVigente))
		wantProblems(t, rep)
	})
	t.Run("no reissue reports it", func(t *testing.T) {
		base.reemplazos["C-1"] = false
		rep := runCompare(t, base, domain.DirectionRecibidos, testVoucher("C-1", domain.EffectIngreso, domain.StatusVigente))
		wantProblems(t, rep, "La compra está cancelada pero vigente en el SAT.")
		if d := rep.Diferencias[0]; d.Persona != "Proveedor SA" || *d.URL != "/empresas/1/compras/11" {
			t.Errorf("discrepancy = %+v", d)
		}
	})
}

func TestCompareRecibidosCompraNotFound(t *testing.T) {
	// The received side reports a missing purchase for any status except a
	// confirmed cancellation, unknown included.
	for _, st := range []domain.Status{domain.StatusVigente, domain.StatusDesconocido} {
		rep := runCompare(t, &fakeLookup{}, domain.DirectionRecibidos, testVoucher("C-2", domain.EffectIngreso, st))
		wantProblems(t, rep, "No se encontró la compra a proveedor.")
	}

	rep := runCompare(t, &fakeLookup{}, domain.DirectionRecibidos, testVoucher("C-2", domain.EffectIngreso, domain.StatusCancelado))
	wantProblems(t, rep)
}

func TestCompareRecibidosPagoAsymmetry(t *testing.T) {
	t.Run("cancelled at SAT but linked payment active", func(t *testing.T) {
		lookup := &fakeLookup{
			pagosComp: map[string]*ledger.PaymentComplement{
				"PP-1": {
					Entry: ledger.Entry{ID: 5, UUID: "PP-1", Status: ledger.StatusActivo},
					Pago:  &ledger.Entry{ID: 77, Status: ledger.StatusActivo},
				},
			},
		}
		rep := runCompare(t, lookup, domain.DirectionRecibidos, testVoucher("PP-1", domain.EffectPago, domain.StatusCancelado))
		wantProblems(t, rep, "El complemento de pago de proveedor está cancelado pero lo tienes vinculado a un pago activo.")
		if *rep.Diferencias[0].URL != "/empresas/1/pagoscompras/77" {
			t.Errorf("URL = %q", *rep.Diferencias[0].URL)
		}
	})

	// The mirror case is a deliberate no-op: valid at the SAT with the linked
	// payment cancelled locally must stay silent.
	t.Run("valid at SAT with linked payment cancelled", func(t *testing.T) {
		lookup := &fakeLookup{
			pagosComp: map[string]*ledger.PaymentComplement{
				"PP-1": {
					Entry: ledger.Entry{ID: 5, UUID: "PP-1", Status: ledger.StatusActivo},
					Pago:  &ledger.Entry{ID: 77, Status: ledger.StatusCancelado},
				},
			},
		}
		rep := runCompare(t, lookup, domain.DirectionRecibidos, testVoucher("PP-1", domain.EffectPago, domain.StatusVigente))
		wantProblems(t, rep)
	})

	t.Run("not found, not cancelled", func(t *testing.T) {
		rep := runCompare(t, &fakeLookup{}, domain.DirectionRecibidos, testVoucher("PP-2", domain.EffectPago, domain.StatusVigente))
		wantProblems(t, rep, "No se encontró el complemento de pago de proveedor.")
		if rep.Diferencias[0].Tipo != "Pago a proveedor" {
			t.Errorf("Tipo = %q, want Pago a proveedor", rep.Diferencias[0].Tipo)
		}
	})
}

func TestCompareRecibidosNotaCredito(t *testing.T) {
	withCompra := func(st ledger.EntryStatus) *fakeLookup {
		return &fakeLookup{
			comprasNotas: map[string]*ledger.SupplierCreditNote{
				"NC-1": {
					Entry:  ledger.Entry{ID: 6, UUID: "NC-1", Status: ledger.StatusActivo},
					Compra: &ledger.Entry{ID: 88, Status: st},
				},
			},
		}
	}

	t.Run("cancelled at SAT, purchase still loaded", func(t *testing.T) {
		rep := runCompare(t, withCompra(ledger.StatusActivo), domain.DirectionRecibidos,
			testVoucher("NC-1", domain.EffectEgreso, domain.StatusCancelado))
		wantProblems(t, rep, "La nota de crédito de proveedor está cancelada y en sistema está cargada.")
	})
	t.Run("valid at SAT, purchase cancelled", func(t *testing.T) {
		rep := runCompare(t, withCompra(ledger.StatusCancelado), domain.DirectionRecibidos,
			testVoucher("NC-1", domain.EffectEgreso, domain.StatusVigente))
		wantProblems(t, rep, "La nota de crédito de proveedor está vigente en el SAT pero en sistema está cancelada.")
	})
	t.Run("unknown at SAT with linked purchase", func(t *testing.T) {
		rep := runCompare(t, withCompra(ledger.StatusActivo), domain.DirectionRecibidos,
			testVoucher("NC-1", domain.EffectEgreso, domain.StatusDesconocido))
		wantProblems(t, rep)
	})
	t.Run("no linked purchase", func(t *testing.T) {
		lookup := &fakeLookup{
			comprasNotas: map[string]*ledger.SupplierCreditNote{
				"NC-2": {Entry: ledger.Entry{ID: 6, UUID: "NC-2", Status: ledger.StatusActivo}},
			},
		}
		rep := runCompare(t, lookup, domain.DirectionRecibidos,
			testVoucher("NC-2", domain.EffectEgreso, domain.StatusVigente))
		wantProblems(t, rep, "La nota de crédito de proveedor existe en sistema pero no tiene compra relacionada.")
	})
	t.Run("not found", func(t *testing.T) {
		rep := runCompare(t, &fakeLookup{}, domain.DirectionRecibidos,
			testVoucher("NC-3", domain.EffectEgreso, domain.StatusVigente))
		wantProblems(t, rep, "No se encontró la nota de crédito de proveedor.")
	})
}

func TestCompareRecibidosNominaHasNoBranch(t *testing.T) {
	rep := runCompare(t, &fakeLookup{}, domain.DirectionRecibidos, testVoucher("N-2", domain.EffectNomina, domain.StatusVigente))
	wantProblems(t, rep)
}
