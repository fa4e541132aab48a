package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"unicode/utf8"

	"bitbucket.org/mmdatafocus/audit_backend/models"
	"golang.org/x/text/encoding/charmap"
)

var candidateDelimiters = []rune{';', ',', '|', '\t'}

// ReadCSV decodes delimited text. The delimiter is sniffed from the header
// line; non UTF-8 content is decoded as Windows-1252, which covers the
// latin-1 exports most accounting packages produce.
func ReadCSV(r io.Reader) (models.RawTable, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return models.RawTable{}, err
	}
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(raw) {
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(raw)
		if err != nil {
			return models.RawTable{}, err
		}
		raw = decoded
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return models.RawTable{}, errors.New("empty file")
	}

	reader := csv.NewReader(bytes.NewReader(raw))
	reader.Comma = SniffDelimiter(firstLine(raw))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return models.RawTable{}, err
	}
	return tableFromRecords(records), nil
}

// SniffDelimiter returns the candidate that occurs most often in line,
// defaulting to ','.
func SniffDelimiter(line string) rune {
	best, bestCount := ',', 0
	for _, d := range candidateDelimiters {
		if n := strings.Count(line, string(d)); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

func firstLine(b []byte) string {
	if i := bytes.IndexByte(b, '\n'); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}
