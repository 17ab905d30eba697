package matches

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/xuri/excelize/v2"
)

// importRow is one parsed spreadsheet line. Line is 1-based and counts the header.
type importRow struct {
	Line  int
	Draft Draft
	Err   error
}

// parseImport reads a CSV or XLSX file from a multipart form file.
func parseImport(fh *multipart.FileHeader) ([]importRow, error) {
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	file, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()

	switch ext {
	case ".csv":
		return parseCSV(file)
	case ".xlsx":
		// excelize wants the whole workbook; cap it at 10MB
		b, err := io.ReadAll(io.LimitReader(file, 10<<20))
		if err != nil {
			return nil, err
		}
		return parseXLSX(b)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", ext)
	}
}

func parseCSV(r io.Reader) ([]importRow, error) {
	br := bufio.NewReader(r)
	// Peek first line to guess delimiter
	line, _ := br.ReadString('\n')
	rest := io.MultiReader(strings.NewReader(line), br)
	reader := csv.NewReader(rest)
	reader.FieldsPerRecord = -1
	if strings.Count(line, ";") > strings.Count(line, ",") {
		reader.Comma = ';'
	}
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty csv")
	}
	return rowsToDrafts(rows), nil
}

func parseXLSX(b []byte) ([]importRow, error) {
	f, err := excelize.OpenReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("no sheet")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty sheet")
	}
	return rowsToDrafts(rows), nil
}

func rowsToDrafts(rows [][]string) []importRow {
	headers := normHeaders(rows[0])
	var out []importRow
	for i := 1; i < len(rows); i++ {
		if len(strings.TrimSpace(strings.Join(rows[i], ""))) == 0 {
			continue
		}
		d, err := rowToDraft(headers, rows[i])
		out = append(out, importRow{Line: i + 1, Draft: d, Err: err})
	}
	return out
}

// fold lowercases s, drops everything but letters and digits and strips French accents.
func fold(s string) string {
	b := strings.Builder{}
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		switch r {
		case 'à', 'â', 'ä':
			r = 'a'
		case 'é', 'è', 'ê', 'ë':
			r = 'e'
		case 'î', 'ï':
			r = 'i'
		case 'ô', 'ö':
			r = 'o'
		case 'ù', 'û', 'ü':
			r = 'u'
		case 'ç':
			r = 'c'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// normHeaders maps column index to a canonical key, folding French aliases.
func normHeaders(hdr []string) map[int]string {
	m := make(map[int]string, len(hdr))
	for i, h := range hdr {
		k := fold(h)
		switch k {
		case "date", "jour":
			k = "date"
		case "heure", "horaire", "coupdenvoi", "time":
			k = "time"
		case "datetime", "dateheure":
			k = "datetime"
		case "domicile", "recevant", "equipedomicile", "hometeam", "locaux":
			k = "home"
		case "exterieur", "visiteur", "visiteurs", "equipeexterieure", "awayteam":
			k = "away"
		case "lieu", "stade", "terrain", "venue":
			k = "venue"
		case "statut", "status", "etat":
			k = "status"
		case "competition", "compet", "epreuve":
			k = "competition"
		case "score", "resultat":
			k = "result"
		case "scoredomicile", "butsdomicile", "scorehome":
			k = "scorehome"
		case "scoreexterieur", "butsexterieur", "scoreaway":
			k = "scoreaway"
		}
		m[i] = k
	}
	return m
}

var importStatuses = map[string]Status{
	"avenir":  StatusUpcoming,
	"encours": StatusOngoing,
	"termine": StatusFinished,
	"reporte": StatusPostponed,
}

func rowToDraft(h map[int]string, row []string) (Draft, error) {
	get := func(key string) string {
		for i, k := range h {
			if k == key && i < len(row) {
				return strings.TrimSpace(row[i])
			}
		}
		return ""
	}
	atoi := func(s string) (*int, error) {
		if s == "" {
			return nil, nil
		}
		v, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("score %q: %w", s, err)
		}
		return &v, nil
	}

	d := Draft{
		HomeTeam:    get("home"),
		AwayTeam:    get("away"),
		Venue:       get("venue"),
		Competition: strings.ToLower(get("competition")),
	}
	if s := get("status"); s != "" {
		if st, ok := importStatuses[fold(s)]; ok {
			d.Status = st
		} else {
			d.Status = Status(s)
		}
	}

	d.Datetime = get("datetime")
	if d.Datetime == "" && get("date") != "" {
		dt, err := joinDateTime(get("date"), get("time"))
		if err != nil {
			return d, err
		}
		d.Datetime = dt
	}

	var err error
	if d.ScoreHome, err = atoi(get("scorehome")); err != nil {
		return d, err
	}
	if d.ScoreAway, err = atoi(get("scoreaway")); err != nil {
		return d, err
	}
	// Parse simple result like "3-1" into scores if present
	if r := get("result"); r != "" && strings.Contains(r, "-") {
		parts := strings.SplitN(r, "-", 2)
		if d.ScoreHome, err = atoi(strings.TrimSpace(parts[0])); err != nil {
			return d, err
		}
		if d.ScoreAway, err = atoi(strings.TrimSpace(parts[1])); err != nil {
			return d, err
		}
	}
	if d.ScoreHome != nil && d.ScoreAway != nil && d.Status == "" {
		d.Status = StatusFinished
	}

	if err := d.Validate(); err != nil {
		return d, err
	}
	if _, ok := ParseDatetime(d.Datetime, nil); !ok {
		return d, &ValidationError{Field: "datetime", Msg: fmt.Sprintf("unparseable %q", d.Datetime)}
	}
	return d, nil
}

// joinDateTime builds "2006-01-02T15:04" from "2024-06-10" or "10/06/2024"
// and "18:00", "18h00" or "18h". A missing hour means midnight.
func joinDateTime(date, hour string) (string, error) {
	date = strings.TrimSpace(date)
	var y, m, d int
	if _, err := fmt.Sscanf(date, "%d-%d-%d", &y, &m, &d); err != nil {
		if _, err := fmt.Sscanf(date, "%d/%d/%d", &d, &m, &y); err != nil {
			return "", &ValidationError{Field: "datetime", Msg: fmt.Sprintf("unparseable date %q", date)}
		}
	}
	hh, mm := 0, 0
	hour = strings.ToLower(strings.TrimSpace(hour))
	if hour != "" {
		hour = strings.Replace(hour, "h", ":", 1)
		parts := strings.SplitN(hour, ":", 2)
		var err error
		if hh, err = strconv.Atoi(strings.TrimSpace(parts[0])); err != nil {
			return "", &ValidationError{Field: "datetime", Msg: fmt.Sprintf("unparseable hour %q", hour)}
		}
		if len(parts) == 2 && strings.TrimSpace(parts[1]) != "" {
			if mm, err = strconv.Atoi(strings.TrimSpace(parts[1])); err != nil {
				return "", &ValidationError{Field: "datetime", Msg: fmt.Sprintf("unparseable hour %q", hour)}
			}
		}
	}
	return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d", y, m, d, hh, mm), nil
}
