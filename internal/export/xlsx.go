package export

import (
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/pawmap/mapboard/internal/model"
	"github.com/pawmap/mapboard/internal/store"
)

var listingHeader = []string{
	"ID", "Type", "Status", "Title", "Category", "Brand", "Quantity",
	"Condition", "Expiration", "Pet Type", "Estimated Value", "Author",
	"Location", "Latitude", "Longitude", "Created", "Description",
}

// ListingsXLSX writes every exchange listing to a spreadsheet at path,
// newest first. Returns the number of listings written.
func ListingsXLSX(st *store.Memory, path string) (int, error) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Listings")
	if err != nil {
		return 0, eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range listingHeader {
		header.AddCell().Value = h
	}

	n := 0
	for _, a := range st.Newest(model.CategoryExchange) {
		payload, ok := a.Payload.(model.ExchangePayload)
		if !ok {
			continue
		}

		row := sheet.AddRow()
		for _, v := range []string{
			a.ID,
			string(payload.Type),
			string(payload.Status),
			payload.Parsed.Title,
			string(payload.Parsed.Category),
			payload.Parsed.Brand,
			payload.Parsed.Quantity,
			payload.Parsed.Condition,
			payload.Parsed.Expiration,
			payload.Parsed.PetType,
			payload.Parsed.EstimatedValue,
			payload.Author,
			payload.LocationLabel,
			strconv.FormatFloat(a.Coordinates.Lat, 'f', -1, 64),
			strconv.FormatFloat(a.Coordinates.Lng, 'f', -1, 64),
			a.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
			payload.Parsed.Description,
		} {
			row.AddCell().Value = v
		}
		n++
	}

	if err := f.Save(path); err != nil {
		return 0, eris.Wrapf(err, "export: save %s", path)
	}

	zap.L().Info("export: listings spreadsheet written",
		zap.String("path", path),
		zap.Int("listings", n),
	)
	return n, nil
}
