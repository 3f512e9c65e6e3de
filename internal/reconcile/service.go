package reconcile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hgarces/verificasat/internal/cfdi"
	"github.com/hgarces/verificasat/internal/domain"
	"github.com/hgarces/verificasat/internal/ledger"
	"github.com/hgarces/verificasat/internal/satclient"
)

const (
	defaultMaxDetalles  = 50
	defaultConcurrencia = 25
)

// AuthorityClient is the SAT-facing collaborator the service depends on.
type AuthorityClient interface {
	QueryByPeriod(ctx context.Context, cred satclient.Credential, fechaInicio, fechaFinal string, tipo domain.Direction) ([]satclient.SummaryItem, error)
	FetchDocumentBodies(ctx context.Context, cred satclient.Credential, uuids []string, tipo domain.Direction, concurrency int) (map[string]satclient.BodyResult, error)
}

// Service runs the two verification flows: ledger reconciliation and the
// detailed voucher query.
type Service struct {
	authority  AuthorityClient
	reconciler *Reconciler
	creds      ledger.CredentialStore
	log        *logrus.Logger
}

func NewService(authority AuthorityClient, lookup ledger.Lookup, creds ledger.CredentialStore, log *logrus.Logger) *Service {
	return &Service{
		authority:  authority,
		reconciler: NewReconciler(lookup),
		creds:      creds,
		log:        log,
	}
}

// Verify reconciles every voucher the SAT reports for the period against
// the local ledger.
func (s *Service) Verify(ctx context.Context, req domain.VerifyRequest) (*domain.VerifyResponse, *Error) {
	cred, fechaInicio, fechaFinal, vErr := s.validate(ctx, req.EmpresaID, req.FechaInicio, req.FechaFinal)
	if vErr != nil {
		return nil, vErr
	}

	items, err := s.authority.QueryByPeriod(ctx, *cred, req.FechaInicio, req.FechaFinal, req.Tipo)
	if err != nil {
		return nil, s.classifyUpstream(err)
	}
	if len(items) == 0 {
		return nil, newError(KindEmptyResult, "No se encontraron comprobantes").withTipo("sin_resultados")
	}

	rep := NewReport()
	for _, item := range items {
		v := Normalize(item, req.Tipo)

		// Payroll receipts issued by the business are excluded before they
		// even reach the report rows.
		if req.Tipo == domain.DirectionEmitidos && v.Efecto == domain.EffectNomina {
			continue
		}

		rep.AddItem(v)

		if err := s.reconciler.Compare(ctx, req.EmpresaID, req.Tipo, &v, rep); err != nil {
			s.log.WithFields(logrus.Fields{
				"module": "reconcile",
				"op":     "Verify",
				"uuid":   v.UUID,
			}).Error(err.Error())
			return nil, newError(KindInternal, "Error interno del sistema", err.Error()).withTipo("interno")
		}
	}

	return &domain.VerifyResponse{
		Exito:              true,
		Mensaje:            "Consulta exitosa",
		Errores:            []string{},
		Items:              rep.Items,
		Diferencias:        rep.Diferencias,
		TotalesDiferencias: rep.Totales,
		Resumen: &domain.Resumen{
			Total:       len(rep.Items),
			Tipo:        string(req.Tipo),
			RangoFechas: fechaInicio.Format("02/01/2006") + " - " + fechaFinal.Format("02/01/2006"),
		},
	}, nil
}

// Query lists the period's vouchers and, when requested, downloads the XML
// body for a bounded prefix of them and merges the extracted fields in.
func (s *Service) Query(ctx context.Context, req domain.QueryRequest) (*domain.QueryResponse, *Error) {
	cred, _, _, vErr := s.validate(ctx, req.EmpresaID, req.FechaInicio, req.FechaFinal)
	if vErr != nil {
		return nil, vErr
	}

	maxDetalles := req.MaxDetalles
	if maxDetalles < 1 {
		maxDetalles = defaultMaxDetalles
	}
	concurrencia := req.Concurrencia
	if concurrencia < 1 {
		concurrencia = defaultConcurrencia
	}

	summaries, err := s.authority.QueryByPeriod(ctx, *cred, req.FechaInicio, req.FechaFinal, req.Tipo)
	if err != nil {
		return nil, s.classifyUpstream(err)
	}

	vouchers := make([]domain.Voucher, 0, len(summaries))
	index := make(map[string]int, len(summaries))
	var uuidsForDetail []string

	for _, item := range summaries {
		v := Normalize(item, req.Tipo)
		index[v.UUID] = len(vouchers)
		vouchers = append(vouchers, v)

		// Full-document retrieval is expensive and the SAT is rate
		// sensitive; only the first maxDetalles uuids are attempted.
		if req.Detallado && len(uuidsForDetail) < maxDetalles {
			uuidsForDetail = append(uuidsForDetail, v.UUID)
		}
	}

	descargas := 0
	if req.Detallado && len(uuidsForDetail) > 0 {
		bodies, err := s.authority.FetchDocumentBodies(ctx, *cred, uuidsForDetail, req.Tipo, concurrencia)
		if err != nil {
			return nil, newError(KindInternal, "Error interno del sistema", err.Error()).withTipo("interno")
		}

		for _, uuid := range uuidsForDetail {
			i, ok := index[uuid]
			if !ok {
				continue
			}
			res := bodies[uuid]
			if res.Err != nil {
				vouchers[i].DetalleError = res.Err.Error()
				continue
			}
			if res.XML == nil {
				vouchers[i].DetalleError = "No se pudo descargar el XML de este UUID"
				continue
			}
			ApplyDetail(&vouchers[i], cfdi.Extract(res.XML))
			descargas++
		}
	}

	SortByCertificationDate(vouchers)

	return &domain.QueryResponse{
		Exito:        true,
		Mensaje:      fmt.Sprintf("Consulta exitosa - %d comprobantes encontrados", len(vouchers)),
		Errores:      []string{},
		Items:        vouchers,
		Detallado:    req.Detallado,
		DescargasXML: descargas,
	}, nil
}

// validate runs every check that must pass before any network call.
func (s *Service) validate(ctx context.Context, empresaID int64, fechaInicio, fechaFinal string) (*satclient.Credential, time.Time, time.Time, *Error) {
	var zero time.Time

	cred, err := s.creds.FindCredential(ctx, empresaID)
	if err != nil {
		return nil, zero, zero, newError(KindInternal, "Error interno del sistema", err.Error()).withTipo("interno")
	}
	if cred == nil {
		return nil, zero, zero, newError(KindConfigMissing,
			"Configuración requerida",
			"La empresa no ha configurado el verificador del SAT.")
	}
	if _, err := os.Stat(cred.CerPath); err != nil {
		return nil, zero, zero, newError(KindCredentialFileMissing,
			"Archivo de certificado no encontrado",
			"No se encontró el archivo del certificado FIEL (.cer).")
	}
	if _, err := os.Stat(cred.KeyPath); err != nil {
		return nil, zero, zero, newError(KindCredentialFileMissing,
			"Archivo de llave no encontrado",
			"No se encontró el archivo de la llave FIEL (.key).")
	}
	if cred.Password == "" {
		return nil, zero, zero, newError(KindCredentialInvalid,
			"Contraseña inválida",
			"La contraseña de la FIEL está vacía o es inválida.")
	}

	inicio, okInicio := parseFecha(fechaInicio)
	final, okFinal := parseFecha(fechaFinal)
	if !okInicio || !okFinal {
		return nil, zero, zero, newError(KindInvalidDateRange,
			"Rango de fechas inválido",
			"Las fechas deben tener el formato YYYY-MM-DD.")
	}
	if inicio.After(final) {
		return nil, zero, zero, newError(KindInvalidDateRange,
			"Rango de fechas inválido",
			"La fecha inicial no puede ser mayor a la fecha final.")
	}

	return &satclient.Credential{
		CerPath:  cred.CerPath,
		KeyPath:  cred.KeyPath,
		Password: cred.Password,
	}, inicio, final, nil
}

// classifyUpstream separates SAT rejections from plain connectivity
// failures and maps known rejection texts to friendly messages.
func (s *Service) classifyUpstream(err error) *Error {
	var authErr *satclient.AuthorityError
	if !errors.As(err, &authErr) {
		return newError(KindInternal, "Error interno del sistema", err.Error()).withTipo("interno")
	}

	if authErr.Kind == satclient.KindConexion {
		errores := authErr.Errores
		if len(errores) == 0 {
			errores = []string{authErr.Mensaje}
		}
		return (&Error{
			Kind:    KindUpstreamConnection,
			Mensaje: "Error de conexión con el SAT",
			Errores: errores,
		}).withTipo("conexion")
	}

	msg := authErr.Mensaje
	errores := append([]string{}, authErr.Errores...)
	lower := strings.ToLower(msg)

	var mensaje string
	switch {
	case strings.Contains(lower, "expired"):
		mensaje = "El certificado FIEL ha vencido."
		errores = append(errores, "Certificado vencido")
	case strings.Contains(lower, "credential"):
		mensaje = "Credenciales SAT inválidas. Verifique RFC y contraseña."
		errores = append(errores, "Credenciales incorrectas")
	default:
		mensaje = "Error al consultar el SAT: " + msg
		if len(errores) == 0 {
			errores = []string{msg}
		}
	}

	return (&Error{
		Kind:    KindUpstreamBusiness,
		Mensaje: mensaje,
		Errores: errores,
	}).withTipo("sat")
}
