package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"storecheckout/internal/domain"
)

type ProductWriter interface {
	GetByKey(ctx context.Context, key string) (*domain.Product, error)
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}

// CSVImporter reads catalog CSV files and inserts/updates products with
// their stock settings.
type CSVImporter struct {
	reader      *csv.Reader
	productRepo ProductWriter
	// key -> id for rows imported in this run
	imported map[string]string
}

func NewCSVImporter(r io.Reader, repo ProductWriter) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	csvr.TrimLeadingSpace = true
	return &CSVImporter{
		reader:      csvr,
		productRepo: repo,
		imported:    make(map[string]string),
	}
}

var requiredHeaders = []string{"key", "sku", "name", "price_cents", "currency"}

type csvRow struct {
	Line              int
	ID                string
	Key               string
	SKU               string
	Name              string
	Cents             int64
	Currency          string
	ManageStock       bool
	StockQuantity     int
	BackordersAllowed bool
	Purchasable       bool
	ParentKey         string
}

// Run parses CSV rows and upserts one product per row. Variation rows name
// their parent through parent_key; the parent must be imported earlier in
// the file or already exist.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	for _, h := range requiredHeaders {
		if _, ok := index[h]; !ok {
			return 0, fmt.Errorf("missing required column %q", h)
		}
	}

	imported := 0
	line := 1
	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("read row: %w", err)
		}
		line++

		row, err := parseRow(record, index)
		if err != nil {
			return imported, fmt.Errorf("line %d: %w", line, err)
		}
		if row == nil {
			continue
		}
		row.Line = line
		if err := i.save(ctx, row); err != nil {
			return imported, err
		}
		imported++
	}

	return imported, nil
}

func (i *CSVImporter) save(ctx context.Context, row *csvRow) error {
	if row.Key == "" || row.Name == "" || row.SKU == "" || row.Currency == "" {
		return fmt.Errorf("line %d: invalid product row (missing required fields) for key %q", row.Line, row.Key)
	}
	if row.Cents < 0 {
		return fmt.Errorf("line %d: negative price for key %q", row.Line, row.Key)
	}
	if row.ID != "" && len(row.ID) != 36 {
		return fmt.Errorf("line %d: invalid id for key %q: %s", row.Line, row.Key, row.ID)
	}

	p := domain.Product{
		ID:                row.ID,
		Key:               row.Key,
		SKU:               row.SKU,
		Name:              row.Name,
		PriceCents:        row.Cents,
		Currency:          strings.ToUpper(row.Currency),
		Purchasable:       row.Purchasable,
		ManageStock:       row.ManageStock,
		BackordersAllowed: row.BackordersAllowed,
		StockQuantity:     row.StockQuantity,
	}

	// A variation that does not track its own stock draws from its parent.
	if row.ParentKey != "" && !row.ManageStock {
		parentID, err := i.resolve(ctx, row.ParentKey)
		if err != nil {
			return fmt.Errorf("line %d: parent %q for key %q: %w", row.Line, row.ParentKey, row.Key, err)
		}
		p.ManagedBy = parentID
	}

	saved, err := i.productRepo.Upsert(ctx, p)
	if err != nil {
		return fmt.Errorf("upsert product %q: %w", row.Key, err)
	}
	i.imported[saved.Key] = saved.ID
	return nil
}

func (i *CSVImporter) resolve(ctx context.Context, key string) (string, error) {
	if id, ok := i.imported[key]; ok {
		return id, nil
	}
	p, err := i.productRepo.GetByKey(ctx, key)
	if err != nil {
		return "", err
	}
	return p.ID, nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

func parseRow(record []string, index map[string]int) (*csvRow, error) {
	key := pick(record, index, "key")
	if key == "" && pick(record, index, "sku") == "" {
		return nil, nil
	}

	row := &csvRow{
		ID:        pick(record, index, "id"),
		Key:       key,
		SKU:       pick(record, index, "sku"),
		Name:      pick(record, index, "name"),
		Currency:  pick(record, index, "currency"),
		ParentKey: pick(record, index, "parent_key"),
	}

	var err error
	if row.Cents, err = parseInt(pick(record, index, "price_cents")); err != nil {
		return nil, fmt.Errorf("price_cents: %w", err)
	}
	qty, err := parseInt(pick(record, index, "stock_quantity"))
	if err != nil {
		return nil, fmt.Errorf("stock_quantity: %w", err)
	}
	row.StockQuantity = int(qty)
	if row.ManageStock, err = parseBool(pick(record, index, "manage_stock"), false); err != nil {
		return nil, fmt.Errorf("manage_stock: %w", err)
	}
	if row.BackordersAllowed, err = parseBool(pick(record, index, "backorders_allowed"), false); err != nil {
		return nil, fmt.Errorf("backorders_allowed: %w", err)
	}
	if row.Purchasable, err = parseBool(pick(record, index, "purchasable"), true); err != nil {
		return nil, fmt.Errorf("purchasable: %w", err)
	}
	return row, nil
}

func parseInt(v string) (int64, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.ParseInt(v, 10, 64)
}

func parseBool(v string, def bool) (bool, error) {
	switch strings.ToLower(v) {
	case "":
		return def, nil
	case "yes", "y":
		return true, nil
	case "no", "n":
		return false, nil
	}
	return strconv.ParseBool(v)
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
