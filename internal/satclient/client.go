// Package satclient talks to the SAT scraper microservice: bulk metadata
// queries by period and bounded-concurrency XML downloads by uuid.
package satclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/hgarces/verificasat/internal/domain"
)

// ErrorKind separates upstream failures the caller reports differently:
// the SAT rejecting the query or credential versus not reaching it at all.
type ErrorKind int

const (
	KindConexion ErrorKind = iota
	KindNegocio
)

type AuthorityError struct {
	Kind    ErrorKind
	Mensaje string
	Errores []string
}

func (e *AuthorityError) Error() string {
	return e.Mensaje
}

// Credential is the FIEL material staged for one request.
type Credential struct {
	CerPath  string
	KeyPath  string
	Password string
}

// SummaryItem is one raw metadata row as reported by the scraper. Status
// arrives as free text; normalization happens downstream.
type SummaryItem struct {
	UUID               string          `json:"uuid"`
	EstadoComprobante  string          `json:"estado_comprobante"`
	RFCEmisor          string          `json:"rfc_emisor"`
	NombreEmisor       string          `json:"nombre_emisor"`
	RFCReceptor        string          `json:"rfc_receptor"`
	NombreReceptor     string          `json:"nombre_receptor"`
	FechaEmision       string          `json:"fecha_emision"`
	FechaCertificacion string          `json:"fecha_certificacion"`
	Total              string          `json:"total"`
	EfectoComprobante  string          `json:"efecto_comprobante"`
	Serie              string          `json:"serie"`
	Folio              string          `json:"folio"`
	Moneda             string          `json:"moneda"`
	FormaPago          string          `json:"forma_pago"`
	MetodoPago         string          `json:"metodo_pago"`
	UsoCFDI            string          `json:"uso_cfdi"`
	Subtotal           decimal.Decimal `json:"subtotal"`
	Descuento          decimal.Decimal `json:"descuento"`
}

// BodyResult is the outcome of one XML download. Exactly one of XML and Err
// is set.
type BodyResult struct {
	XML []byte
	Err error
}

type Client struct {
	http    *http.Client
	baseURL string
	stage   *credentialStage
	log     *logrus.Logger
}

func New(baseURL string, timeout, connectTimeout time.Duration, tempDir string, log *logrus.Logger) *Client {
	return &Client{
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: connectTimeout}).DialContext,
			},
		},
		baseURL: baseURL,
		stage:   &credentialStage{dir: tempDir},
		log:     log,
	}
}

type queryResponse struct {
	Exito   bool          `json:"exito"`
	Mensaje string        `json:"mensaje"`
	Errores []string      `json:"errores"`
	Items   []SummaryItem `json:"items"`
}

type bodyResponse struct {
	Exito           bool   `json:"exito"`
	Mensaje         string `json:"mensaje"`
	ContenidoBase64 string `json:"contenido_base64"`
}

// QueryByPeriod lists every voucher the SAT reports for the period, in the
// order the SAT returns them.
func (c *Client) QueryByPeriod(ctx context.Context, cred Credential, fechaInicio, fechaFinal string, tipo domain.Direction) ([]SummaryItem, error) {
	staged, err := c.stage.place(cred)
	if err != nil {
		return nil, fmt.Errorf("staging credential: %w", err)
	}
	defer staged.cleanup()

	fields := map[string]string{
		"password":     cred.Password,
		"fecha_inicio": fechaInicio,
		"fecha_final":  fechaFinal,
		"tipo":         string(tipo),
	}

	raw, err := c.postMultipart(ctx, c.baseURL+"/api/metadata", staged, fields)
	if err != nil {
		return nil, err
	}

	var resp queryResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &AuthorityError{Kind: KindConexion, Mensaje: "Respuesta ilegible del verificador SAT", Errores: []string{err.Error()}}
	}
	if !resp.Exito {
		return nil, &AuthorityError{Kind: KindNegocio, Mensaje: resp.Mensaje, Errores: resp.Errores}
	}
	return resp.Items, nil
}

// FetchDocumentBodies downloads the XML body of each uuid with at most
// concurrency requests in flight. The cap is hard: the SAT locks out
// callers that exceed a safe request rate. One failed uuid never affects
// the rest; its error lands in the result map.
func (c *Client) FetchDocumentBodies(ctx context.Context, cred Credential, uuids []string, tipo domain.Direction, concurrency int) (map[string]BodyResult, error) {
	staged, err := c.stage.place(cred)
	if err != nil {
		return nil, fmt.Errorf("staging credential: %w", err)
	}
	defer staged.cleanup()

	if concurrency < 1 {
		concurrency = 1
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]BodyResult, len(uuids))
		sem     = make(chan struct{}, concurrency)
	)

	for _, uuid := range uuids {
		wg.Add(1)
		go func(uuid string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			body, err := c.fetchOne(ctx, staged, cred, uuid, tipo)
			mu.Lock()
			results[uuid] = BodyResult{XML: body, Err: err}
			mu.Unlock()
		}(uuid)
	}
	wg.Wait()

	return results, nil
}

func (c *Client) fetchOne(ctx context.Context, staged *stagedCredential, cred Credential, uuid string, tipo domain.Direction) ([]byte, error) {
	fields := map[string]string{
		"password": cred.Password,
		"uuid":     uuid,
		"tipo":     string(tipo),
	}

	raw, err := c.postMultipart(ctx, c.baseURL+"/api/xml", staged, fields)
	if err != nil {
		return nil, err
	}

	var resp bodyResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("respuesta ilegible: %w", err)
	}
	if !resp.Exito {
		if resp.Mensaje == "" {
			resp.Mensaje = "No se pudo descargar el XML de este UUID"
		}
		return nil, fmt.Errorf("%s", resp.Mensaje)
	}

	body, err := base64.StdEncoding.DecodeString(resp.ContenidoBase64)
	if err != nil {
		return nil, fmt.Errorf("contenido base64 inválido: %w", err)
	}
	return body, nil
}

func (c *Client) postMultipart(ctx context.Context, url string, staged *stagedCredential, fields map[string]string) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if err := staged.attach(writer); err != nil {
		return nil, fmt.Errorf("attaching credential files: %w", err)
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &AuthorityError{Kind: KindConexion, Mensaje: "Error de conexión con el SAT", Errores: []string{err.Error()}}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &AuthorityError{Kind: KindConexion, Mensaje: "Error de conexión con el SAT", Errores: []string{err.Error()}}
	}

	return cleanJSON(raw), nil
}

// cleanJSON drops anything the scraper prints before the JSON body. Some
// deployments leak warnings ahead of the payload.
func cleanJSON(raw []byte) []byte {
	if i := bytes.IndexByte(raw, '{'); i > 0 {
		return raw[i:]
	}
	return raw
}
