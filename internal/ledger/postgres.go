package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the pgx-backed adapter for Lookup and CredentialStore.
type Store struct {
	Db *pgxpool.Pool
}

func NewStore(connString string) (*Store, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &Store{Db: pool}, nil
}

func NewStoreWithPool(pool *pgxpool.Pool) *Store {
	return &Store{Db: pool}
}

func (s *Store) Close() {
	s.Db.Close()
}

func (s *Store) FindFactura(ctx context.Context, empresaID int64, uuid string) (*Entry, error) {
	return s.findByUUID(ctx, "facturas", "uuid", empresaID, uuid)
}

func (s *Store) FindAnticipo(ctx context.Context, empresaID int64, uuid string) (*Entry, error) {
	return s.findByUUID(ctx, "anticipos", "uuid", empresaID, uuid)
}

// FindFacturaPago matches a payment complement by the uuid of the CFDI it
// was stamped for, which is how the rows are keyed.
func (s *Store) FindFacturaPago(ctx context.Context, empresaID int64, uuid string) (*Entry, error) {
	return s.findByUUID(ctx, "facturas_pagos", "cfdi", empresaID, uuid)
}

func (s *Store) FindNotaCredito(ctx context.Context, empresaID int64, uuid string) (*Entry, error) {
	return s.findByUUID(ctx, "notas_credito", "uuid", empresaID, uuid)
}

func (s *Store) FindCompra(ctx context.Context, empresaID int64, uuid string) (*Entry, error) {
	return s.findByUUID(ctx, "compras", "uuid", empresaID, uuid)
}

func (s *Store) OtherActiveCompraExists(ctx context.Context, empresaID int64, uuid string) (bool, error) {
	var exists bool
	err := s.Db.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM compras WHERE empresa_id = $1 AND uuid = $2 AND status != 0)",
		empresaID, uuid).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (s *Store) FindPagoComplemento(ctx context.Context, empresaID int64, uuid string) (*PaymentComplement, error) {
	var (
		pc         PaymentComplement
		status     int
		pagoID     *int64
		pagoStatus *int
	)
	err := s.Db.QueryRow(ctx,
		`SELECT pc.id, pc.uuid, pc.status, p.id, p.status
		   FROM pagos_complemento pc
		   LEFT JOIN compras_pagos p ON p.id = pc.pago_id
		  WHERE pc.empresa_id = $1 AND pc.uuid = $2`,
		empresaID, uuid).Scan(&pc.ID, &pc.UUID, &status, &pagoID, &pagoStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	pc.Entry.Status = statusFromInt(status)
	if pagoID != nil {
		pc.Pago = &Entry{ID: *pagoID, UUID: uuid, Status: statusFromInt(*pagoStatus)}
	}
	return &pc, nil
}

func (s *Store) FindCompraNotaCredito(ctx context.Context, empresaID int64, uuid string) (*SupplierCreditNote, error) {
	var (
		nc           SupplierCreditNote
		status       int
		compraID     *int64
		compraUUID   *string
		compraStatus *int
	)
	err := s.Db.QueryRow(ctx,
		`SELECT nc.id, nc.uuid, nc.status, c.id, c.uuid, c.status
		   FROM compras_notas_credito nc
		   LEFT JOIN compras c ON c.id = nc.compra_id
		  WHERE nc.empresa_id = $1 AND nc.uuid = $2`,
		empresaID, uuid).Scan(&nc.ID, &nc.UUID, &status, &compraID, &compraUUID, &compraStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	nc.Entry.Status = statusFromInt(status)
	if compraID != nil {
		linked := &Entry{ID: *compraID, Status: statusFromInt(*compraStatus)}
		if compraUUID != nil {
			linked.UUID = *compraUUID
		}
		nc.Compra = linked
	}
	return &nc, nil
}

func (s *Store) FindCredential(ctx context.Context, empresaID int64) (*FielCredential, error) {
	var cred FielCredential
	err := s.Db.QueryRow(ctx,
		`SELECT fiel, llave_fiel, clave_fiel
		   FROM empresa_ajustes
		  WHERE empresa_id = $1 AND modulo = 'verificador_sat'`,
		empresaID).Scan(&cred.CerPath, &cred.KeyPath, &cred.Password)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

func (s *Store) findByUUID(ctx context.Context, table, column string, empresaID int64, uuid string) (*Entry, error) {
	var (
		e      Entry
		status int
	)
	query := fmt.Sprintf(
		"SELECT id, %s, status FROM %s WHERE empresa_id = $1 AND %s = $2 LIMIT 1",
		column, table, column)
	err := s.Db.QueryRow(ctx, query, empresaID, uuid).Scan(&e.ID, &e.UUID, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	e.Status = statusFromInt(status)
	return &e, nil
}

func statusFromInt(v int) EntryStatus {
	if v == 0 {
		return StatusCancelado
	}
	return StatusActivo
}
