package reconcile

// Kind enumerates every failure class the verification flows can produce.
// Validation kinds short-circuit before any network call.
type Kind int

const (
	KindInternal Kind = iota
	KindConfigMissing
	KindCredentialFileMissing
	KindCredentialInvalid
	KindInvalidDateRange
	KindUpstreamConnection
	KindUpstreamBusiness
	// KindEmptyResult is a successful query with zero vouchers. It is not a
	// failure, but the legacy wire format reports it through the same shape.
	KindEmptyResult
)

// Error is the tagged failure result of a verification. Tipo is the legacy
// wire classification ("conexion", "interno", "sin_resultados", "sat") and
// may be empty for validation failures.
type Error struct {
	Kind    Kind
	Mensaje string
	Errores []string
	Tipo    string
}

func (e *Error) Error() string {
	return e.Mensaje
}

func newError(kind Kind, mensaje string, errores ...string) *Error {
	return &Error{Kind: kind, Mensaje: mensaje, Errores: errores}
}

func (e *Error) withTipo(tipo string) *Error {
	e.Tipo = tipo
	return e
}
