// Package snapshot persists stage results as xlsx workbooks, one row per line
// item, and reads them back so a later stage can resume from disk.
package snapshot

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"AcevalImport/internal/checksum"
	"AcevalImport/internal/pipeline"
	"AcevalImport/internal/shipment"

	"github.com/xuri/excelize/v2"
)

const (
	ItemsSheet    = "Productos"
	ManifestSheet = "Manifiesto"
	Ext           = ".xlsx"
)

var (
	// ErrSnapshotIO matches every *PathError.
	ErrSnapshotIO = errors.New("snapshot i/o failed")
	// ErrNotFound is returned when no snapshot exists for a shipment.
	ErrNotFound = errors.New("snapshot not found")
)

// PathError records the operation and file behind a snapshot failure.
type PathError struct {
	Op   string
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("snapshot %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PathError) Unwrap() error { return e.Err }

func (e *PathError) Is(target error) bool { return target == ErrSnapshotIO }

var unsafeName = strings.NewReplacer("/", "-", "\\", "-", ":", "-", "*", "-", "?", "-", "\"", "-", "<", "-", ">", "-", "|", "-")

// FileName builds "<STAGE_TAG>_<invoice>_<supplier>.xlsx" with path
// separators and other characters Windows rejects replaced by "-".
func FileName(st pipeline.Stage, invoice, supplier string) string {
	return unsafeName.Replace(fmt.Sprintf("%s_%s_%s", st.Tag(), strings.TrimSpace(invoice), strings.TrimSpace(supplier))) + Ext
}

// Store writes snapshots under one directory per stage. It implements
// pipeline.Store.
type Store struct {
	dirFor func(pipeline.Stage) string
	now    func() time.Time
}

func NewStore(dirFor func(pipeline.Stage) string) *Store {
	return &Store{dirFor: dirFor, now: time.Now}
}

// Path returns where the snapshot of a shipment at st lives.
func (s *Store) Path(st pipeline.Stage, invoice, supplier string) string {
	return filepath.Join(s.dirFor(st), FileName(st, invoice, supplier))
}

// Save writes c to its stage directory, replacing any earlier snapshot of the
// same shipment, and stores a sha256 sidecar next to it. Workbook and sidecar
// are both staged as temporary files before either replaces the committed
// pair, so a failed save leaves the previous snapshot loadable.
func (s *Store) Save(runID string, c pipeline.Context) (pipeline.Artifact, error) {
	dir := s.dirFor(c.Stage)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return pipeline.Artifact{}, &PathError{Op: "mkdir", Path: dir, Err: err}
	}
	path := s.Path(c.Stage, c.Header.Invoice, string(c.Header.Supplier))
	created := s.now()

	f, err := Encode(runID, created, c)
	if err != nil {
		return pipeline.Artifact{}, &PathError{Op: "encode", Path: path, Err: err}
	}
	defer f.Close()
	buf, err := f.WriteToBuffer()
	if err != nil {
		return pipeline.Artifact{}, &PathError{Op: "encode", Path: path, Err: err}
	}
	data := buf.Bytes()

	tmp := path + ".tmp"
	sidecar, tmpSidecar := path+checksum.SidecarExt, tmp+checksum.SidecarExt
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		os.Remove(tmp)
		return pipeline.Artifact{}, &PathError{Op: "write", Path: tmp, Err: err}
	}
	sum, err := checksum.WriteSidecar(tmp, data)
	if err != nil {
		os.Remove(tmp)
		os.Remove(tmpSidecar)
		return pipeline.Artifact{}, &PathError{Op: "checksum", Path: tmpSidecar, Err: err}
	}

	previous, prevErr := os.ReadFile(sidecar)
	if err := os.Rename(tmpSidecar, sidecar); err != nil {
		os.Remove(tmp)
		os.Remove(tmpSidecar)
		return pipeline.Artifact{}, &PathError{Op: "rename", Path: sidecar, Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		if prevErr == nil {
			os.WriteFile(sidecar, previous, 0644)
		} else {
			os.Remove(sidecar)
		}
		return pipeline.Artifact{}, &PathError{Op: "rename", Path: path, Err: err}
	}

	return pipeline.Artifact{
		RunID:     runID,
		Stage:     c.Stage,
		Path:      path,
		Checksum:  sum,
		Rows:      len(c.Items),
		CreatedAt: created,
	}, nil
}

// Load reads the snapshot of a shipment at st.
func (s *Store) Load(st pipeline.Stage, invoice, supplier string) (pipeline.Context, error) {
	return Load(s.Path(st, invoice, supplier))
}

// Encode builds the workbook for c: the item sheet with the stage's
// accumulated columns, and a manifest sheet describing the run.
func Encode(runID string, created time.Time, c pipeline.Context) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", ItemsSheet); err != nil {
		return nil, err
	}

	cols := stageColumns(c.Stage)
	header := make([]interface{}, len(cols))
	for i, col := range cols {
		header[i] = col.Name
	}
	if err := f.SetSheetRow(ItemsSheet, "A1", &header); err != nil {
		return nil, err
	}
	for r := range c.Items {
		it := &c.Items[r]
		row := make([]interface{}, len(cols))
		for i, col := range cols {
			row[i] = col.get(it)
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(ItemsSheet, cell, &row); err != nil {
			return nil, err
		}
	}

	if _, err := f.NewSheet(ManifestSheet); err != nil {
		return nil, err
	}
	manifest := [][]interface{}{
		{"Clave", "Valor"},
		{"Etapa", c.Stage.Roman()},
		{"Factura", c.Header.Invoice},
		{"Proveedor", string(c.Header.Supplier)},
		{"Empresa", c.Header.Company},
		{"Run ID", runID},
		{"Generado", created.Format(time.RFC3339)},
		{"Items", len(c.Items)},
	}
	for r, row := range manifest {
		cell, _ := excelize.CoordinatesToCellName(1, r+1)
		if err := f.SetSheetRow(ManifestSheet, cell, &row); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Load reads a snapshot written by Save, or a workbook exported by hand with
// the same column names. The sidecar checksum is verified when present.
func Load(path string) (pipeline.Context, error) {
	data, err := Read(path)
	if err != nil {
		return pipeline.Context{}, err
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return pipeline.Context{}, &PathError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	c, err := decode(f, filepath.Base(path))
	if err != nil {
		return pipeline.Context{}, &PathError{Op: "decode", Path: path, Err: err}
	}
	return c, nil
}

// Read returns the bytes of a snapshot after checking them against the
// sidecar checksum.
func Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err = ErrNotFound
		}
		return nil, &PathError{Op: "open", Path: path, Err: err}
	}
	if err := checksum.VerifySidecar(path, data); err != nil {
		return nil, &PathError{Op: "verify", Path: path, Err: err}
	}
	return data, nil
}

func decode(f *excelize.File, name string) (pipeline.Context, error) {
	sheet := ItemsSheet
	if idx, _ := f.GetSheetIndex(ItemsSheet); idx < 0 {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return pipeline.Context{}, errors.New("workbook has no sheets")
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return pipeline.Context{}, err
	}
	if len(rows) == 0 {
		return pipeline.Context{}, fmt.Errorf("sheet %s is empty", sheet)
	}

	index := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		index[strings.TrimSpace(h)] = i
	}
	var present []column
	for _, col := range columns {
		if _, ok := index[col.Name]; ok {
			present = append(present, col)
		}
	}
	for _, required := range []string{"Proveedor", "Producto", "Kilos"} {
		if _, ok := index[required]; !ok {
			return pipeline.Context{}, fmt.Errorf("missing column %q", required)
		}
	}

	var c pipeline.Context
	for r, row := range rows[1:] {
		if blank(row) {
			continue
		}
		var it shipment.LineItem
		for _, col := range present {
			i := index[col.Name]
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			col.set(&it, cell)
		}
		if !it.Supplier.Valid() {
			return pipeline.Context{}, fmt.Errorf("row %d: unknown supplier %q", r+2, it.Supplier)
		}
		it.Normalize()
		c.Items = append(c.Items, it)
	}

	meta := readManifest(f)
	c.Stage = stageOf(meta["Etapa"], name, present)
	if len(c.Items) > 0 {
		c.Header = c.Items[0].Header
	} else {
		c.Header = shipment.Header{
			Invoice:  meta["Factura"],
			Supplier: shipment.Supplier(meta["Proveedor"]),
			Company:  meta["Empresa"],
		}
	}
	return c, nil
}

func readManifest(f *excelize.File) map[string]string {
	meta := map[string]string{}
	rows, err := f.GetRows(ManifestSheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return meta
	}
	for _, row := range rows {
		if len(row) >= 2 {
			meta[strings.TrimSpace(row[0])] = strings.TrimSpace(row[1])
		}
	}
	return meta
}

// stageOf trusts the manifest, then the file name prefix, then the latest
// stage whose columns the sheet carries.
func stageOf(manifest, name string, present []column) pipeline.Stage {
	if st, err := pipeline.ParseStage(manifest); err == nil {
		return st
	}
	for i := len(pipeline.Stages) - 1; i >= 0; i-- {
		st := pipeline.Stages[i]
		if strings.HasPrefix(strings.ToUpper(name), st.Tag()+"_") {
			return st
		}
	}
	st := pipeline.StageIntake
	for _, col := range present {
		if col.Stage > st {
			st = col.Stage
		}
	}
	return st
}

func blank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// List returns the snapshot files of a stage directory sorted by name.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, &PathError{Op: "list", Path: dir, Err: err}
	}
	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.EqualFold(filepath.Ext(name), Ext) || strings.HasPrefix(name, "~$") {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	return files, nil
}

var _ pipeline.Store = (*Store)(nil)
