package jtl

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/xml"
	"errors"
	"io"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Config is passed in at construction; the extractor reads no ambient state.
type Config struct {
	MaxFileSize       int64
	AllowedExtensions []string
}

// Extractor turns an uploaded result file into a single-pass stream of
// records. A Stream is not restartable; open a new one to re-parse.
type Extractor struct {
	cfg Config
}

func NewExtractor(cfg Config) *Extractor {
	return &Extractor{cfg: cfg}
}

// Open validates the file name and declared size, sniffs the container
// format (XML or delimited) and returns a lazy record stream. Rejections
// happen here, before any parsing starts.
func (e *Extractor) Open(filename string, size int64, r io.Reader) (*Stream, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !slices.Contains(e.cfg.AllowedExtensions, ext) {
		return nil, ErrUnsupportedFormat.WithDetails(ext)
	}
	if e.cfg.MaxFileSize > 0 && size > e.cfg.MaxFileSize {
		return nil, ErrFileTooLarge.WithDetails(strconv.FormatInt(size, 10) + " bytes")
	}

	guarded := r
	if e.cfg.MaxFileSize > 0 {
		// The declared size can lie; the guard fails the parse if more
		// bytes actually arrive.
		guarded = &limitedReader{r: r, remaining: e.cfg.MaxFileSize}
	}
	br := bufio.NewReader(guarded)

	xmlInput, err := sniffXML(br)
	if err != nil {
		return nil, &MalformedInputError{Err: err}
	}

	var src rowSource
	if xmlInput {
		src = newXMLSource(br)
	} else {
		src = newCSVSource(br)
	}
	return &Stream{src: src}, nil
}

// sniffXML reports whether the input starts with an XML tag, ignoring
// leading whitespace. EOF means an empty file, which parses as zero rows.
func sniffXML(br *bufio.Reader) (bool, error) {
	for {
		b, err := br.ReadByte()
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		default:
			if err := br.UnreadByte(); err != nil {
				return false, err
			}
			return b == '<', nil
		}
	}
}

type limitedReader struct {
	r         io.Reader
	remaining int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.remaining < 0 {
		return 0, ErrFileTooLarge
	}
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n, ErrFileTooLarge
	}
	return n, err
}

// errSkipRow marks a single unusable row; the stream counts it and moves on.
var errSkipRow = errors.New("skip row")

type rowSource interface {
	next() (Record, error)
	row() int
}

// Stream is the lazy, finite, single-pass record sequence.
type Stream struct {
	src   rowSource
	stats Stats
	done  bool
}

// Next returns the next well-formed record. It returns io.EOF when the file
// is exhausted, a *MalformedInputError on a container-level failure, and
// silently skips (while counting) rows that fail to parse on their own.
func (s *Stream) Next(ctx context.Context) (Record, error) {
	if s.done {
		return Record{}, io.EOF
	}
	for {
		if err := ctx.Err(); err != nil {
			s.done = true
			return Record{}, err
		}
		rec, err := s.src.next()
		switch {
		case err == nil:
			s.stats.ParsedRows++
			return rec, nil
		case errors.Is(err, errSkipRow):
			s.stats.SkippedRows++
		case errors.Is(err, io.EOF):
			s.done = true
			return Record{}, io.EOF
		case errors.Is(err, ErrFileTooLarge):
			s.done = true
			return Record{}, err
		default:
			s.done = true
			return Record{}, &MalformedInputError{
				Row:           s.src.row(),
				RowsProcessed: s.stats.ParsedRows,
				Err:           err,
			}
		}
	}
}

// Stats is valid once Next has returned a terminal error or io.EOF.
func (s *Stream) Stats() Stats {
	return s.stats
}

// ---- delimited (CSV) source ----

type csvSource struct {
	reader  *csv.Reader
	columns map[string]int
	line    int
}

func newCSVSource(r io.Reader) *csvSource {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true
	return &csvSource{reader: reader}
}

// Required columns of the delimited shape. Remaining columns are optional.
var requiredColumns = []string{"timestamp", "elapsed", "label", "success"}

func (c *csvSource) row() int {
	return c.line
}

func (c *csvSource) next() (Record, error) {
	if c.columns == nil {
		if err := c.readHeader(); err != nil {
			return Record{}, err
		}
	}

	c.line++
	fields, err := c.reader.Read()
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) && !errors.Is(err, csv.ErrFieldCount) {
			return Record{}, errSkipRow
		}
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		return Record{}, err
	}
	return c.parseRow(fields)
}

func (c *csvSource) readHeader() error {
	c.line++
	header, err := c.reader.Read()
	if errors.Is(err, io.EOF) {
		return io.EOF
	}
	if err != nil {
		return err
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range requiredColumns {
		if _, ok := columns[required]; !ok {
			return errors.New("header is missing required column " + strconv.Quote(required))
		}
	}
	c.columns = columns
	return nil
}

func (c *csvSource) field(fields []string, name string) (string, bool) {
	idx, ok := c.columns[name]
	if !ok || idx >= len(fields) {
		return "", false
	}
	return strings.TrimSpace(fields[idx]), true
}

func (c *csvSource) parseRow(fields []string) (Record, error) {
	label, ok := c.field(fields, "label")
	if !ok || label == "" {
		return Record{}, errSkipRow
	}
	rawTS, ok := c.field(fields, "timestamp")
	if !ok {
		return Record{}, errSkipRow
	}
	ts, err := parseTimestamp(rawTS)
	if err != nil {
		return Record{}, errSkipRow
	}
	rawElapsed, ok := c.field(fields, "elapsed")
	if !ok {
		return Record{}, errSkipRow
	}
	elapsed, err := strconv.ParseInt(rawElapsed, 10, 64)
	if err != nil || elapsed < 0 {
		return Record{}, errSkipRow
	}
	rawSuccess, ok := c.field(fields, "success")
	if !ok {
		return Record{}, errSkipRow
	}
	success, err := strconv.ParseBool(strings.ToLower(rawSuccess))
	if err != nil {
		return Record{}, errSkipRow
	}

	rec := Record{
		Label:          label,
		Timestamp:      ts,
		ResponseTimeMs: elapsed,
		Success:        success,
	}
	if raw, ok := c.field(fields, "responsecode"); ok {
		if code, err := strconv.Atoi(raw); err == nil {
			rec.StatusCode = &code
		}
	}
	rec.BytesReceived = optionalBytes(c.fieldOr(fields, "bytes"))
	rec.BytesSent = optionalBytes(c.fieldOr(fields, "sentbytes"))
	rec.LatencyMs = optionalBytes(c.fieldOr(fields, "latency"))
	rec.ConnectTimeMs = optionalBytes(c.fieldOr(fields, "connect"))
	return rec, nil
}

func (c *csvSource) fieldOr(fields []string, name string) string {
	v, _ := c.field(fields, name)
	return v
}

func optionalBytes(raw string) *int64 {
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return nil
	}
	return &v
}

// parseTimestamp accepts epoch milliseconds (the format's default) or the
// tool's formatted date output.
func parseTimestamp(raw string) (time.Time, error) {
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if ms < 0 {
			return time.Time{}, errors.New("negative timestamp")
		}
		return time.UnixMilli(ms).UTC(), nil
	}
	for _, layout := range []string{"2006/01/02 15:04:05.000", "2006/01/02 15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.New("unparseable timestamp " + strconv.Quote(raw))
}

// ---- XML source ----

type xmlSource struct {
	decoder  *xml.Decoder
	rootSeen bool
	depth    int
	samples  int
}

func newXMLSource(r io.Reader) *xmlSource {
	d := xml.NewDecoder(r)
	d.Strict = true
	// No Entity map and no CharsetReader: unknown entity references fail
	// the parse instead of being resolved.
	return &xmlSource{decoder: d}
}

func (x *xmlSource) row() int {
	return x.samples
}

func (x *xmlSource) next() (Record, error) {
	for {
		tok, err := x.decoder.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return Record{}, io.EOF
			}
			return Record{}, err
		}
		switch t := tok.(type) {
		case xml.Directive:
			// External entity and doctype declarations are refused
			// outright rather than ignored.
			if directiveIsDoctype(t) {
				return Record{}, errors.New("document type declarations are not allowed in result files")
			}
		case xml.StartElement:
			if !x.rootSeen {
				if t.Name.Local != "testResults" {
					return Record{}, errors.New("unexpected root element " + strconv.Quote(t.Name.Local))
				}
				x.rootSeen = true
				continue
			}
			name := t.Name.Local
			if x.depth == 0 && (name == "sample" || name == "httpSample") {
				x.samples++
				rec, recErr := parseSampleElement(t)
				if err := x.decoder.Skip(); err != nil {
					return Record{}, err
				}
				if recErr != nil {
					return Record{}, recErr
				}
				return rec, nil
			}
			x.depth++
		case xml.EndElement:
			if x.depth > 0 {
				x.depth--
			}
		}
	}
}

func directiveIsDoctype(d xml.Directive) bool {
	return strings.HasPrefix(strings.TrimSpace(strings.ToUpper(string(d))), "DOCTYPE")
}

func parseSampleElement(start xml.StartElement) (Record, error) {
	attrs := make(map[string]string, len(start.Attr))
	for _, attr := range start.Attr {
		attrs[attr.Name.Local] = attr.Value
	}

	label := strings.TrimSpace(attrs["lb"])
	if label == "" {
		return Record{}, errSkipRow
	}
	ts, err := parseTimestamp(attrs["ts"])
	if err != nil {
		return Record{}, errSkipRow
	}
	elapsed, err := strconv.ParseInt(attrs["t"], 10, 64)
	if err != nil || elapsed < 0 {
		return Record{}, errSkipRow
	}
	success, err := strconv.ParseBool(strings.ToLower(attrs["s"]))
	if err != nil {
		return Record{}, errSkipRow
	}

	rec := Record{
		Label:          label,
		Timestamp:      ts,
		ResponseTimeMs: elapsed,
		Success:        success,
	}
	if code, err := strconv.Atoi(attrs["rc"]); err == nil {
		rec.StatusCode = &code
	}
	rec.BytesReceived = optionalBytes(attrs["by"])
	rec.BytesSent = optionalBytes(attrs["sby"])
	rec.LatencyMs = optionalBytes(attrs["lt"])
	rec.ConnectTimeMs = optionalBytes(attrs["ct"])
	return rec, nil
}
