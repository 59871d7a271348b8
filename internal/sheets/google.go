package sheets

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

// GoogleService talks to the Google Sheets API with service account
// credentials. All writes use USER_ENTERED so dates and numbers keep the
// formatting staff expect in the spreadsheet UI.
type GoogleService struct {
	svc           *sheetsapi.Service
	spreadsheetID string
}

// NewGoogleService builds a client from service account credentials.
// credsJSON takes priority; when empty the credentials file is read instead.
func NewGoogleService(ctx context.Context, spreadsheetID, credsJSON, credsFile string) (*GoogleService, error) {
	data := []byte(credsJSON)
	if len(data) == 0 {
		if credsFile == "" {
			return nil, fmt.Errorf("sheets: no credentials configured")
		}
		b, err := os.ReadFile(credsFile)
		if err != nil {
			return nil, fmt.Errorf("sheets: reading credentials file: %w", err)
		}
		data = b
	}

	conf, err := google.JWTConfigFromJSON(data, sheetsapi.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("sheets: parsing credentials: %w", err)
	}

	svc, err := sheetsapi.NewService(ctx, option.WithHTTPClient(conf.Client(ctx)))
	if err != nil {
		return nil, &ConnectionError{Op: "connect", Err: err}
	}

	return &GoogleService{svc: svc, spreadsheetID: spreadsheetID}, nil
}

func (g *GoogleService) ListSheets(ctx context.Context) ([]string, error) {
	resp, err := g.svc.Spreadsheets.Get(g.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return nil, &ConnectionError{Op: "list sheets", Err: err}
	}
	titles := make([]string, 0, len(resp.Sheets))
	for _, s := range resp.Sheets {
		if s.Properties != nil {
			titles = append(titles, s.Properties.Title)
		}
	}
	return titles, nil
}

func (g *GoogleService) GetValues(ctx context.Context, sheet string) ([][]string, error) {
	resp, err := g.svc.Spreadsheets.Values.Get(g.spreadsheetID, quoteRange(sheet)).Context(ctx).Do()
	if err != nil {
		return nil, &ConnectionError{Op: "get values", Err: err}
	}
	grid := make([][]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		cells := make([]string, 0, len(row))
		for _, cell := range row {
			cells = append(cells, fmt.Sprintf("%v", cell))
		}
		grid = append(grid, cells)
	}
	return grid, nil
}

func (g *GoogleService) UpdateCell(ctx context.Context, sheet string, row, col int, value string) error {
	rng := fmt.Sprintf("%s!%s%d", quoteTitle(sheet), columnLetter(col), row)
	vr := &sheetsapi.ValueRange{Values: [][]interface{}{{value}}}
	_, err := g.svc.Spreadsheets.Values.Update(g.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return &ConnectionError{Op: "update cell", Err: err}
	}
	return nil
}

func (g *GoogleService) InsertRow(ctx context.Context, sheet string, row int, values []string) error {
	sheetID, err := g.sheetID(ctx, sheet)
	if err != nil {
		return err
	}
	insert := &sheetsapi.Request{
		InsertDimension: &sheetsapi.InsertDimensionRequest{
			Range: &sheetsapi.DimensionRange{
				SheetId:    sheetID,
				Dimension:  "ROWS",
				StartIndex: int64(row - 1),
				EndIndex:   int64(row),
			},
		},
	}
	_, err = g.svc.Spreadsheets.BatchUpdate(g.spreadsheetID, &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{insert},
	}).Context(ctx).Do()
	if err != nil {
		return &ConnectionError{Op: "insert row", Err: err}
	}

	rng := fmt.Sprintf("%s!A%d", quoteTitle(sheet), row)
	vr := &sheetsapi.ValueRange{Values: [][]interface{}{toInterfaces(values)}}
	_, err = g.svc.Spreadsheets.Values.Update(g.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return &ConnectionError{Op: "insert row values", Err: err}
	}
	return nil
}

func (g *GoogleService) AppendRow(ctx context.Context, sheet string, values []string) error {
	vr := &sheetsapi.ValueRange{Values: [][]interface{}{toInterfaces(values)}}
	_, err := g.svc.Spreadsheets.Values.Append(g.spreadsheetID, quoteRange(sheet), vr).
		ValueInputOption("USER_ENTERED").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return &ConnectionError{Op: "append row", Err: err}
	}
	return nil
}

func (g *GoogleService) DeleteRow(ctx context.Context, sheet string, row int) error {
	sheetID, err := g.sheetID(ctx, sheet)
	if err != nil {
		return err
	}
	del := &sheetsapi.Request{
		DeleteDimension: &sheetsapi.DeleteDimensionRequest{
			Range: &sheetsapi.DimensionRange{
				SheetId:    sheetID,
				Dimension:  "ROWS",
				StartIndex: int64(row - 1),
				EndIndex:   int64(row),
			},
		},
	}
	_, err = g.svc.Spreadsheets.BatchUpdate(g.spreadsheetID, &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{del},
	}).Context(ctx).Do()
	if err != nil {
		return &ConnectionError{Op: "delete row", Err: err}
	}
	return nil
}

func (g *GoogleService) AddSheet(ctx context.Context, title string) error {
	add := &sheetsapi.Request{
		AddSheet: &sheetsapi.AddSheetRequest{
			Properties: &sheetsapi.SheetProperties{Title: title},
		},
	}
	_, err := g.svc.Spreadsheets.BatchUpdate(g.spreadsheetID, &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{add},
	}).Context(ctx).Do()
	if err != nil {
		return &ConnectionError{Op: "add sheet", Err: err}
	}
	return nil
}

func (g *GoogleService) sheetID(ctx context.Context, title string) (int64, error) {
	resp, err := g.svc.Spreadsheets.Get(g.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, &ConnectionError{Op: "resolve sheet id", Err: err}
	}
	for _, s := range resp.Sheets {
		if s.Properties != nil && s.Properties.Title == title {
			return s.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrSheetNotFound, title)
}

func quoteTitle(sheet string) string {
	return "'" + sheet + "'"
}

func quoteRange(sheet string) string {
	return quoteTitle(sheet)
}

// columnLetter converts a 1-based column index to its A1 letter form.
func columnLetter(col int) string {
	s := ""
	for col > 0 {
		col--
		s = string(rune('A'+col%26)) + s
		col /= 26
	}
	return s
}

func toInterfaces(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
