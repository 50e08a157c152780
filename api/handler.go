package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"AcevalImport/internal/config"
	"AcevalImport/internal/constants"
	"AcevalImport/internal/dashboard"
	"AcevalImport/internal/numeric"
	"AcevalImport/internal/pipeline"
	"AcevalImport/internal/shipment"
	"AcevalImport/internal/snapshot"
	"AcevalImport/internal/upload"

	"github.com/gorilla/mux"
)

// Handler serves the four stage endpoints. Every stage after the first
// resumes from the previous stage's snapshot, so no state is kept between
// requests.
type Handler struct {
	app    config.Config
	store  *snapshot.Store
	runner *pipeline.Runner
	events *dashboard.SSEServer

	// stage requests run one at a time
	mu sync.Mutex
}

// NewHandler builds the handler; events may be nil.
func NewHandler(app config.Config, events *dashboard.SSEServer) *Handler {
	store := snapshot.NewStore(app.StageDir)
	return &Handler{app: app, store: store, runner: pipeline.NewRunner(store), events: events}
}

// requestError is a malformed request outside any stage computation.
type requestError struct{ msg string }

func (e *requestError) Error() string { return e.msg }

func badRequest(format string, args ...interface{}) error {
	return &requestError{msg: constants.FormatError(format, args...)}
}

type stageResult struct {
	Message  string            `json:"message"`
	Artifact pipeline.Artifact `json:"artifact"`
	Context  pipeline.Context  `json:"context"`
}

func (h *Handler) respondStage(w http.ResponseWriter, c pipeline.Context, art pipeline.Artifact) {
	LogInfo("%s saved to %s", c.Stage, art.Path)
	h.events.Publish(dashboard.Event{
		Type:     dashboard.EventStageSaved,
		Stage:    c.Stage.Roman(),
		Invoice:  c.Header.Invoice,
		Supplier: string(c.Header.Supplier),
		Path:     art.Path,
		RunID:    art.RunID,
		Items:    art.Rows,
		Time:     art.CreatedAt,
	})
	RespondWithPayload(w, true, "", stageResult{
		Message:  fmt.Sprintf(constants.SuccessStageSaved, c.Stage, len(c.Items)),
		Artifact: art,
		Context:  c,
	})
}

// EtapaI handles POST /api/etapa/i: the product table plus the shipment form.
func (h *Handler) EtapaI(w http.ResponseWriter, r *http.Request) {
	records, err := readUpload(w, r, constants.FieldProductFile)
	if err != nil {
		RespondWithStageError(w, err)
		return
	}
	rows, err := upload.IntakeRows(records)
	if err != nil {
		RespondWithStageError(w, err)
		return
	}
	invoice, supplier, err := shipmentKey(pipeline.StageIntake, r.FormValue("factura"), r.FormValue("proveedor"))
	if err != nil {
		RespondWithStageError(w, err)
		return
	}
	header := shipment.Header{
		Company:      strings.TrimSpace(r.FormValue("empresa")),
		Supplier:     supplier,
		Invoice:      invoice,
		Contract:     strings.TrimSpace(r.FormValue("contrato")),
		OrderNumber:  strings.TrimSpace(r.FormValue("numero_pedido")),
		Status:       shipment.ParseStatus(r.FormValue("estatus")),
		ProductCount: numeric.ParseInteger(r.FormValue("cantidad_productos"), nil),
		Vice:         strings.TrimSpace(r.FormValue("vice")),
		SpotPurchase: strings.TrimSpace(r.FormValue("compra_puntual")),
		Origin:       shipment.ParseOriginInfo(r.FormValue("origen_info")),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	c, art, err := h.runner.Intake(pipeline.IntakeInput{Header: header, Rows: rows})
	if err != nil {
		respondRunError(w, err)
		return
	}
	h.respondStage(w, c, art)
}

type bankingRequest struct {
	Invoice        string                  `json:"factura"`
	Supplier       string                  `json:"proveedor"`
	PaymentDate    string                  `json:"fecha_pago"`
	ExchangeRate   interface{}             `json:"tasa_bcv"`
	PlanillaTN     interface{}             `json:"monto_planilla_tn"`
	PlanillaSeniat interface{}             `json:"monto_planilla_seniat"`
	Celsam         interface{}             `json:"monto_celsam"`
	Edits          []pipeline.ItemEdit     `json:"ediciones"`
	General        *pipeline.GeneralFields `json:"generales"`
}

// EtapaII handles POST /api/etapa/ii. Item edits and general fields are
// applied to the stage I items before the banking allocation runs.
func (h *Handler) EtapaII(w http.ResponseWriter, r *http.Request) {
	var req bankingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON+": "+err.Error())
		return
	}
	invoice, supplier, err := shipmentKey(pipeline.StageBanking, req.Invoice, req.Supplier)
	if err != nil {
		RespondWithStageError(w, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	c, err := h.previous(pipeline.StageIntake, invoice, supplier)
	if err != nil {
		RespondWithStageError(w, err)
		return
	}
	if len(req.Edits) > 0 {
		if c, err = c.ApplyEdits(req.Edits); err != nil {
			RespondWithStageError(w, err)
			return
		}
	}
	if req.General != nil {
		c = c.ApplyGeneralFields(*req.General)
	}

	c, art, err := h.runner.Banking(c, pipeline.BankingInput{
		PaymentDate:    upload.NormalizeDate(req.PaymentDate),
		ExchangeRate:   numeric.ValueOrZero(numeric.ParseDecimal(req.ExchangeRate)),
		PlanillaTN:     numeric.ValueOrZero(numeric.ParseDecimal(req.PlanillaTN)),
		PlanillaSeniat: numeric.ValueOrZero(numeric.ParseDecimal(req.PlanillaSeniat)),
		Celsam:         numeric.ParseDecimal(req.Celsam),
	})
	if err != nil {
		respondRunError(w, err)
		return
	}
	h.respondStage(w, c, art)
}

// EtapaIII handles POST /api/etapa/iii: the receipt table plus the gandola
// count, with optional general fields as a JSON form value.
func (h *Handler) EtapaIII(w http.ResponseWriter, r *http.Request) {
	records, err := readUpload(w, r, constants.FieldReceivedFile)
	if err != nil {
		RespondWithStageError(w, err)
		return
	}
	received, err := upload.ReceivedRows(records)
	if err != nil {
		RespondWithStageError(w, err)
		return
	}
	invoice, supplier, err := shipmentKey(pipeline.StageReceipt, r.FormValue("factura"), r.FormValue("proveedor"))
	if err != nil {
		RespondWithStageError(w, err)
		return
	}
	var general *pipeline.GeneralFields
	if raw := strings.TrimSpace(r.FormValue(constants.FieldGenerales)); raw != "" {
		general = &pipeline.GeneralFields{}
		if err := json.Unmarshal([]byte(raw), general); err != nil {
			RespondWithStageError(w, &pipeline.ValidationError{
				Stage:  pipeline.StageReceipt,
				Param:  constants.FieldGenerales,
				Reason: err.Error(),
			})
			return
		}
	}
	zero := 0
	gandolas := *numeric.ParseInteger(r.FormValue("cantidad_gandolas"), &zero)

	h.mu.Lock()
	defer h.mu.Unlock()
	c, err := h.previous(pipeline.StageBanking, invoice, supplier)
	if err != nil {
		RespondWithStageError(w, err)
		return
	}
	if general != nil {
		c = c.ApplyGeneralFields(*general)
	}
	c, art, err := h.runner.Receipt(c, pipeline.ReceiptInput{
		ReceiptDate: upload.NormalizeDate(r.FormValue("fecha_recepcion")),
		Received:    received,
		Gandolas:    gandolas,
	})
	if err != nil {
		respondRunError(w, err)
		return
	}
	h.respondStage(w, c, art)
}

type shipmentRequest struct {
	Invoice  string `json:"factura"`
	Supplier string `json:"proveedor"`
}

// EtapaIV handles POST /api/etapa/iv.
func (h *Handler) EtapaIV(w http.ResponseWriter, r *http.Request) {
	var req shipmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, constants.ErrInvalidJSON+": "+err.Error())
		return
	}
	invoice, supplier, err := shipmentKey(pipeline.StageReconciliation, req.Invoice, req.Supplier)
	if err != nil {
		RespondWithStageError(w, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	c, err := h.previous(pipeline.StageReceipt, invoice, supplier)
	if err != nil {
		RespondWithStageError(w, err)
		return
	}
	c, art, err := h.runner.Reconciliation(c)
	if err != nil {
		respondRunError(w, err)
		return
	}
	h.respondStage(w, c, art)
}

// Snapshot handles GET /api/etapa/{etapa}/snapshot and streams the workbook.
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	st, err := pipeline.ParseStage(mux.Vars(r)["etapa"])
	if err != nil {
		RespondWithStageError(w, badRequest(constants.ErrUnknownStage, mux.Vars(r)["etapa"]))
		return
	}
	q := r.URL.Query()
	invoice, supplier, err := shipmentKey(st, q.Get("factura"), q.Get("proveedor"))
	if err != nil {
		RespondWithStageError(w, err)
		return
	}
	path := h.store.Path(st, invoice, string(supplier))
	data, err := snapshot.Read(path)
	if err != nil {
		RespondWithStageError(w, err)
		return
	}
	sendWorkbook(w, snapshot.FileName(st, invoice, string(supplier)), data)
}

func sendWorkbook(w http.ResponseWriter, name string, data []byte) {
	w.Header().Set(constants.ContentTypeText, constants.ContentTypeXLSX)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// previous loads the snapshot the next stage resumes from.
func (h *Handler) previous(st pipeline.Stage, invoice string, supplier shipment.Supplier) (pipeline.Context, error) {
	c, err := h.store.Load(st, invoice, string(supplier))
	if errors.Is(err, snapshot.ErrNotFound) {
		return c, fmt.Errorf("%s: %w", constants.FormatError(constants.ErrSnapshotNotFound, st, invoice, supplier), err)
	}
	return c, err
}

// respondRunError separates rejected inputs from failed snapshot writes.
func respondRunError(w http.ResponseWriter, err error) {
	if errors.Is(err, pipeline.ErrInvalidInput) {
		RespondWithStageError(w, err)
		return
	}
	RespondWithError(w, http.StatusInternalServerError, constants.FormatError(constants.ErrSnapshotFailed, err))
}

// shipmentKey validates the invoice and supplier that name a snapshot.
func shipmentKey(st pipeline.Stage, invoice, supplier string) (string, shipment.Supplier, error) {
	invoice = strings.TrimSpace(invoice)
	if invoice == "" {
		return "", "", &pipeline.ValidationError{Stage: st, Param: "factura", Reason: constants.FormatMissingFieldError("factura")}
	}
	s, err := shipment.ParseSupplier(supplier)
	if err != nil {
		return "", "", &pipeline.ValidationError{Stage: st, Param: "proveedor", Reason: err.Error()}
	}
	return invoice, s, nil
}

// readUpload parses the multipart form and reads the table in field.
func readUpload(w http.ResponseWriter, r *http.Request, field string) ([][]string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, config.MaxUploadBytes)
	if err := r.ParseMultipartForm(config.MaxUploadBytes); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return nil, badRequest(constants.ErrFileTooLarge)
		}
		return nil, badRequest("%s: %v", constants.ErrInvalidRequestBody, err)
	}
	file, fh, err := r.FormFile(field)
	if err != nil {
		return nil, badRequest(constants.ErrMissingRequiredField, field)
	}
	defer file.Close()

	records, err := upload.ReadTable(file, upload.Ext(fh.Filename))
	if err != nil {
		if errors.Is(err, upload.ErrUnsupportedType) {
			return nil, err
		}
		return nil, badRequest(constants.ErrFileParsingFailed, err)
	}
	return records, nil
}

// Events handles GET /api/eventos, a server-sent event stream of saved
// stages and rebuilt summaries.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	if h.events == nil {
		RespondWithError(w, http.StatusNotFound, "event stream disabled")
		return
	}
	h.events.HandleSSE(w, r)
}
