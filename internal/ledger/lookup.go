// Package ledger exposes the local bookkeeping side of the reconciliation:
// one lookup per entity variant, keyed by voucher uuid and scoped to one
// empresa. Callers inject the concrete adapter.
package ledger

import "context"

// EntryStatus mirrors the bookkeeping status column: 0 is cancelled,
// anything else is active.
type EntryStatus int

const (
	StatusCancelado EntryStatus = iota
	StatusActivo
)

// Entry is one bookkeeping row matched by uuid.
type Entry struct {
	ID     int64
	UUID   string
	Status EntryStatus
}

func (e *Entry) Cancelled() bool { return e.Status == StatusCancelado }

// PaymentComplement is a supplier payment complement together with the
// payment it is linked to.
type PaymentComplement struct {
	Entry
	Pago *Entry
}

// SupplierCreditNote is a supplier credit note together with the purchase it
// is linked to. The link may be absent when the note was loaded without a
// related purchase.
type SupplierCreditNote struct {
	Entry
	Compra *Entry
}

// Lookup is the capability the reconciler depends on. Every method returns
// (nil, nil) when no row matches.
type Lookup interface {
	// Issued side.
	FindFactura(ctx context.Context, empresaID int64, uuid string) (*Entry, error)
	FindAnticipo(ctx context.Context, empresaID int64, uuid string) (*Entry, error)
	FindFacturaPago(ctx context.Context, empresaID int64, uuid string) (*Entry, error)
	FindNotaCredito(ctx context.Context, empresaID int64, uuid string) (*Entry, error)

	// Received side.
	FindCompra(ctx context.Context, empresaID int64, uuid string) (*Entry, error)
	// OtherActiveCompraExists reports whether an active purchase row shares
	// the uuid, which marks the cancelled row as a correct reissue.
	OtherActiveCompraExists(ctx context.Context, empresaID int64, uuid string) (bool, error)
	FindPagoComplemento(ctx context.Context, empresaID int64, uuid string) (*PaymentComplement, error)
	FindCompraNotaCredito(ctx context.Context, empresaID int64, uuid string) (*SupplierCreditNote, error)
}

// FielCredential is the SAT credential material configured for one empresa.
type FielCredential struct {
	CerPath  string
	KeyPath  string
	Password string
}

// CredentialStore resolves the FIEL configuration of one empresa. A nil
// credential with nil error means the empresa never configured one.
type CredentialStore interface {
	FindCredential(ctx context.Context, empresaID int64) (*FielCredential, error)
}
