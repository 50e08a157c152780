package api

import (
	"bufio"
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"AcevalImport/internal/config"
	"AcevalImport/internal/dashboard"
	"AcevalImport/internal/pipeline"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type stageResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Rows    struct {
		Message  string            `json:"message"`
		Artifact pipeline.Artifact `json:"artifact"`
		Context  pipeline.Context  `json:"context"`
	} `json:"rows"`
}

func newTestServer(t *testing.T) (*httptest.Server, config.Config) {
	srv, app, _ := newTestServerWithEvents(t)
	return srv, app
}

func newTestServerWithEvents(t *testing.T) (*httptest.Server, config.Config, *dashboard.SSEServer) {
	t.Helper()
	t.Setenv("ACEVAL_OUTPUT_DIR", t.TempDir())
	app := config.Load()
	events := dashboard.NewSSEServer(time.Hour)
	srv := httptest.NewServer(NewRouter(NewHandler(app, events)))
	t.Cleanup(srv.Close)
	t.Cleanup(events.Stop)
	return srv, app, events
}

func multipartBody(t *testing.T, field, filename, content string, values map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range values {
		require.NoError(t, mw.WriteField(k, v))
	}
	if field != "" {
		fw, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func postForm(t *testing.T, url, field, filename, content string, values map[string]string) (*http.Response, stageResponse) {
	t.Helper()
	body, ctype := multipartBody(t, field, filename, content, values)
	resp, err := http.Post(url, ctype, body)
	require.NoError(t, err)
	return resp, decode(t, resp)
}

func postJSON(t *testing.T, url string, payload interface{}) (*http.Response, stageResponse) {
	t.Helper()
	b, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	return resp, decode(t, resp)
}

func decode(t *testing.T, resp *http.Response) stageResponse {
	t.Helper()
	defer resp.Body.Close()
	var out stageResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func assertDecimal(t *testing.T, want string, got decimal.NullDecimal) {
	t.Helper()
	require.True(t, got.Valid, "expected %s, got null", want)
	assert.True(t, decimal.RequireFromString(want).Equal(got.Decimal), "expected %s, got %s", want, got.Decimal)
}

const forticaProducts = "DESCRIPCION,CANTIDAD DE KILOS,CANTIDAD DE PIEZAS,CALIDAD DE METAL,Total Ton + Com\n" +
	"bobina,1000,0,A36,950\n"

func runIntake(t *testing.T, base string) stageResponse {
	t.Helper()
	resp, out := postForm(t, base+"/api/etapa/i", "productos", "productos.csv", forticaProducts, map[string]string{
		"empresa": "ACEVAL", "proveedor": "fortica", "factura": "F-1", "estatus": "2: Está en transito",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, out.Error)
	return out
}

func runBanking(t *testing.T, base string) stageResponse {
	t.Helper()
	resp, out := postJSON(t, base+"/api/etapa/ii", map[string]interface{}{
		"factura": "F-1", "proveedor": "FORTICA", "fecha_pago": "10/01/2025",
		"tasa_bcv": "36", "monto_planilla_tn": 360, "monto_planilla_seniat": "180",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, out.Error)
	return out
}

func runReceipt(t *testing.T, base string) stageResponse {
	t.Helper()
	resp, out := postForm(t, base+"/api/etapa/iii", "recibidos", "recibidos.csv", "Producto;Kilos Recibidos\nbobina;1000\n", map[string]string{
		"factura": "F-1", "proveedor": "FORTICA", "fecha_recepcion": "20/02/2025", "cantidad_gandolas": "1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, out.Error)
	return out
}

func TestStagesEndToEnd(t *testing.T) {
	srv, app := newTestServer(t)

	out := runIntake(t, srv.URL)
	assert.True(t, out.Success)
	assert.Equal(t, pipeline.StageIntake, out.Rows.Context.Stage)
	require.Len(t, out.Rows.Context.Items, 1)
	assertDecimal(t, "0.95", out.Rows.Context.Items[0].TotalPerKilo)
	assert.Equal(t, "FORTICA", string(out.Rows.Context.Header.Supplier))
	_, err := os.Stat(out.Rows.Artifact.Path)
	require.NoError(t, err)
	assert.Contains(t, out.Rows.Artifact.Path, app.StageDir(pipeline.StageIntake))

	out = runBanking(t, srv.URL)
	assert.Equal(t, pipeline.StageBanking, out.Rows.Context.Stage)
	it := out.Rows.Context.Items[0]
	assert.Equal(t, "2025-01-10", it.PaymentDate)
	assertDecimal(t, "10", it.PlanillaTN)
	assertDecimal(t, "5", it.PlanillaSeniat)
	assertDecimal(t, "28.5", it.BankFee)

	out = runReceipt(t, srv.URL)
	it = out.Rows.Context.Items[0]
	assert.Equal(t, "2025-02-20", it.ReceiptDate)
	assertDecimal(t, "1", it.GandolaFactor)
	assertDecimal(t, "3650", it.Freight)

	resp, out := postJSON(t, srv.URL+"/api/etapa/iv", map[string]string{"factura": "F-1", "proveedor": "FORTICA"})
	require.Equal(t, http.StatusOK, resp.StatusCode, out.Error)
	it = out.Rows.Context.Items[0]
	assertDecimal(t, "69.94", it.TraderFee)
	assertDecimal(t, "7063.44", it.RealCostPerTon)
	assertDecimal(t, "7.06344", it.RealCostPerKilo)
	assert.Equal(t, pipeline.StageReconciliation, out.Rows.Artifact.Stage)
}

func TestIntakeRejectsMissingColumn(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, out := postForm(t, srv.URL+"/api/etapa/i", "productos", "productos.csv", "DESCRIPCION,CANTIDAD DE KILOS\nbobina,1000\n",
		map[string]string{"proveedor": "FORTICA", "factura": "F-1"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.False(t, out.Success)
	assert.Contains(t, out.Error, "CANTIDAD DE PIEZAS")
}

func TestIntakeRejectsUnconfirmedRows(t *testing.T) {
	srv, _ := newTestServer(t)
	table := "DESCRIPCION,CANTIDAD DE KILOS,CANTIDAD DE PIEZAS,CALIDAD DE METAL,Confirmar USD 0\n" +
		"bobina,1000,10,A36,\n" +
		"lamina,500,5,A36,SI\n"
	resp, out := postForm(t, srv.URL+"/api/etapa/i", "productos", "productos.csv", table,
		map[string]string{"proveedor": "FORTICA", "factura": "F-1"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, out.Error, "rows 1")
}

func TestIntakeRequiresInvoiceAndKnownSupplier(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, out := postForm(t, srv.URL+"/api/etapa/i", "productos", "productos.csv", forticaProducts,
		map[string]string{"proveedor": "FORTICA"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, out.Error, "factura")

	resp, out = postForm(t, srv.URL+"/api/etapa/i", "productos", "productos.csv", forticaProducts,
		map[string]string{"proveedor": "ACME", "factura": "F-1"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, out.Error, "proveedor")
}

func TestIntakeRejectsUnsupportedFile(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, _ := postForm(t, srv.URL+"/api/etapa/i", "productos", "productos.pdf", "%PDF",
		map[string]string{"proveedor": "FORTICA", "factura": "F-1"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, out := postForm(t, srv.URL+"/api/etapa/i", "", "", "",
		map[string]string{"proveedor": "FORTICA", "factura": "F-1"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, out.Error, "productos")
}

func TestIntakeRejectsMalformedMultipart(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Post(srv.URL+"/api/etapa/i", "multipart/form-data; boundary=50%d", strings.NewReader("not a form"))
	require.NoError(t, err)
	out := decode(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.True(t, strings.HasPrefix(out.Error, "Invalid request body: "), out.Error)
	assert.NotContains(t, out.Error, "%!")
}

func TestBankingRejectsZeroRate(t *testing.T) {
	srv, _ := newTestServer(t)
	runIntake(t, srv.URL)
	resp, out := postJSON(t, srv.URL+"/api/etapa/ii", map[string]interface{}{
		"factura": "F-1", "proveedor": "FORTICA", "tasa_bcv": 0,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, out.Error, "tasa_bcv")
}

func TestBankingAppliesEditsAndGeneralFields(t *testing.T) {
	srv, _ := newTestServer(t)
	runIntake(t, srv.URL)
	resp, out := postJSON(t, srv.URL+"/api/etapa/ii", map[string]interface{}{
		"factura": "F-1", "proveedor": "FORTICA", "tasa_bcv": 36,
		"ediciones": []map[string]interface{}{
			{"indice": 0, "producto": "bobina 2", "piezas": 0, "kilos": 2000, "total_ton_com": 900},
		},
		"generales": map[string]interface{}{"contrato": "CT-9"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, out.Error)
	it := out.Rows.Context.Items[0]
	assert.Equal(t, "bobina 2", it.Product)
	assert.Equal(t, "CT-9", it.Contract)
	assertDecimal(t, "1800", decimal.NewNullDecimal(it.TotalProvider))

	resp, out = postJSON(t, srv.URL+"/api/etapa/ii", map[string]interface{}{
		"factura": "F-1", "proveedor": "FORTICA", "tasa_bcv": 36,
		"ediciones": []map[string]interface{}{{"indice": 3, "kilos": 1}},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, out.Error, "ediciones")
}

func TestLaterStageWithoutSnapshotIsNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, out := postJSON(t, srv.URL+"/api/etapa/ii", map[string]interface{}{
		"factura": "F-404", "proveedor": "FORTICA", "tasa_bcv": 36,
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.False(t, out.Success)

	resp, _ = postJSON(t, srv.URL+"/api/etapa/iv", map[string]string{"factura": "F-404", "proveedor": "FORTICA"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestReceiptRejectsZeroGandolas(t *testing.T) {
	srv, _ := newTestServer(t)
	runIntake(t, srv.URL)
	runBanking(t, srv.URL)
	resp, out := postForm(t, srv.URL+"/api/etapa/iii", "recibidos", "recibidos.csv", "Producto,Kilos Recibidos\nbobina,1000\n",
		map[string]string{"factura": "F-1", "proveedor": "FORTICA", "cantidad_gandolas": "0"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, out.Error, "gandolas")
}

func TestReceiptRejectsBadGeneralFields(t *testing.T) {
	srv, _ := newTestServer(t)
	runIntake(t, srv.URL)
	runBanking(t, srv.URL)
	resp, out := postForm(t, srv.URL+"/api/etapa/iii", "recibidos", "recibidos.csv", "Producto,Kilos Recibidos\nbobina,1000\n",
		map[string]string{"factura": "F-1", "proveedor": "FORTICA", "cantidad_gandolas": "1", "generales": "{"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, out.Error, "generales")
}

func TestSnapshotDownload(t *testing.T) {
	srv, _ := newTestServer(t)
	runIntake(t, srv.URL)

	resp, err := http.Get(srv.URL + "/api/etapa/I/snapshot?factura=F-1&proveedor=FORTICA")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "ETAPA_I_F-1_FORTICA.xlsx")

	f, err := excelize.OpenReader(resp.Body)
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), "Productos")

	resp, err = http.Get(srv.URL + "/api/etapa/II/snapshot?factura=F-1&proveedor=FORTICA")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/api/etapa/VII/snapshot?factura=F-1&proveedor=FORTICA")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDashboardSummarizesStage(t *testing.T) {
	srv, _ := newTestServer(t)
	runIntake(t, srv.URL)
	runBanking(t, srv.URL)
	runReceipt(t, srv.URL)

	resp, err := http.Get(srv.URL + "/api/dashboard?etapa=III&metrica=Kilos%20Recibidos&agrupar=Proveedor")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Success bool `json:"success"`
		Rows    struct {
			Filas   int      `json:"filas"`
			Metrics []string `json:"metricas"`
			Resumen struct {
				Groups []struct {
					Keys  []string        `json:"claves"`
					Total decimal.Decimal `json:"total"`
				} `json:"grupos"`
				Total decimal.Decimal `json:"total"`
			} `json:"resumen"`
		} `json:"rows"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.True(t, out.Success)
	assert.Equal(t, 1, out.Rows.Filas)
	assert.Contains(t, out.Rows.Metrics, "Kilos Recibidos")
	require.Len(t, out.Rows.Resumen.Groups, 1)
	assert.Equal(t, []string{"FORTICA"}, out.Rows.Resumen.Groups[0].Keys)
	assert.True(t, decimal.NewFromInt(1000).Equal(out.Rows.Resumen.Total))
}

func TestDashboardRejectsBadQuery(t *testing.T) {
	srv, _ := newTestServer(t)
	runIntake(t, srv.URL)

	for _, q := range []string{
		"etapa=IX",
		"etapa=I&desde=01/02/2025",
		"etapa=I&metrica=Nada&agrupar=Proveedor",
		"etapa=I&metrica=Kilos&agrupar=Nada",
	} {
		resp, err := http.Get(srv.URL + "/api/dashboard?" + strings.ReplaceAll(q, " ", "%20"))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
	}
}

func TestDashboardExport(t *testing.T) {
	srv, _ := newTestServer(t)
	runIntake(t, srv.URL)

	resp, err := http.Get(srv.URL + "/api/dashboard/export?etapa=I&metrica=Kilos&agrupar=Proveedor")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "RESUMEN_I.xlsx")

	f, err := excelize.OpenReader(resp.Body)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Resumen")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Proveedor", "Kilos", "Filas"}, rows[0])
	assert.Equal(t, "FORTICA", rows[1][0])
}

type fakeReporter map[string]interface{}

func (f fakeReporter) Status() map[string]interface{} { return f }

func TestHealthIncludesReporters(t *testing.T) {
	srv, _ := newTestServer(t)
	RegisterReporter("fake", fakeReporter{"running": true})

	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Rows struct {
			Status    string                            `json:"status"`
			Services  map[string]map[string]interface{} `json:"services"`
			Snapshots map[string]string                 `json:"snapshots"`
		} `json:"rows"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "ok", out.Rows.Status)
	assert.Equal(t, true, out.Rows.Services["fake"]["running"])
	assert.Len(t, out.Rows.Snapshots, 4)
}

func TestUnknownRouteIsNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/api/nada")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWrongMethodIsNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/api/etapa/i")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestAcevalServiceLifecycle(t *testing.T) {
	t.Setenv("ACEVAL_OUTPUT_DIR", t.TempDir())
	svc := NewAcevalService(map[string]interface{}{"port": "0"}, config.Load())
	require.NoError(t, svc.Start())
	status := svc.(*AcevalService).Status()
	assert.Equal(t, true, status["running"])

	_, port, err := net.SplitHostPort(status["addr"].(string))
	require.NoError(t, err)
	resp, err := http.Get("http://127.0.0.1:" + port + "/api/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, svc.Stop())
	require.NoError(t, svc.Stop())
}

func TestEventsStreamStageSaved(t *testing.T) {
	srv, _, events := newTestServerWithEvents(t)

	resp, err := http.Get(srv.URL + "/api/eventos?cliente=panel")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	next := func() dashboard.Event {
		for lines.Scan() {
			if data, ok := strings.CutPrefix(lines.Text(), "data: "); ok {
				var ev dashboard.Event
				require.NoError(t, json.Unmarshal([]byte(data), &ev))
				return ev
			}
		}
		t.Fatalf("stream ended: %v", lines.Err())
		return dashboard.Event{}
	}
	assert.Equal(t, "connected", next().Type)
	require.Eventually(t, func() bool { return events.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	runIntake(t, srv.URL)
	ev := next()
	assert.Equal(t, dashboard.EventStageSaved, ev.Type)
	assert.Equal(t, "I", ev.Stage)
	assert.Equal(t, "F-1", ev.Invoice)
	assert.Equal(t, "FORTICA", ev.Supplier)
	assert.Equal(t, 1, ev.Items)
	assert.Len(t, events.Recent(), 1)
}
