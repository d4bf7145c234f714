package jtl

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const csvSample = `timeStamp,elapsed,label,responseCode,success,bytes,sentBytes,Latency,Connect
1700000000000,120,Login,200,true,512,128,100,10
1700000001000,250,Login,200,true,512,128,210,12
1700000002000,900,Search,500,false,1024,256,850,15
`

func testConfig() Config {
	return Config{
		MaxFileSize:       1 << 20,
		AllowedExtensions: []string{".jtl", ".csv", ".xml"},
	}
}

func drain(t *testing.T, stream *Stream) []Record {
	t.Helper()
	var records []Record
	for {
		rec, err := stream.Next(context.Background())
		if errors.Is(err, io.EOF) {
			return records
		}
		require.NoError(t, err)
		records = append(records, rec)
	}
}

func TestExtractor_CSV(t *testing.T) {
	extractor := NewExtractor(testConfig())
	stream, err := extractor.Open("results.jtl", int64(len(csvSample)), strings.NewReader(csvSample))
	require.NoError(t, err)

	records := drain(t, stream)
	require.Len(t, records, 3)

	assert.Equal(t, "Login", records[0].Label)
	assert.Equal(t, int64(120), records[0].ResponseTimeMs)
	assert.True(t, records[0].Success)
	require.NotNil(t, records[0].StatusCode)
	assert.Equal(t, 200, *records[0].StatusCode)
	require.NotNil(t, records[0].LatencyMs)
	assert.Equal(t, int64(100), *records[0].LatencyMs)

	assert.Equal(t, "Search", records[2].Label)
	assert.False(t, records[2].Success)

	stats := stream.Stats()
	assert.Equal(t, 3, stats.ParsedRows)
	assert.Equal(t, 0, stats.SkippedRows)
}

func TestExtractor_CSVSkipsMalformedRows(t *testing.T) {
	input := "timeStamp,elapsed,label,success\n" +
		"1700000000000,120,Login,true\n" +
		"not-a-timestamp,130,Login,true\n" + // bad timestamp
		"1700000002000,abc,Login,true\n" + // bad elapsed
		"1700000003000,140,,true\n" + // empty label
		"1700000004000,150,Login,maybe\n" + // bad success flag
		"1700000005000,160,Login,false\n"

	extractor := NewExtractor(testConfig())
	stream, err := extractor.Open("results.jtl", int64(len(input)), strings.NewReader(input))
	require.NoError(t, err)

	records := drain(t, stream)
	require.Len(t, records, 2)

	stats := stream.Stats()
	assert.Equal(t, 2, stats.ParsedRows)
	assert.Equal(t, 4, stats.SkippedRows)
}

func TestExtractor_CSVMissingRequiredColumn(t *testing.T) {
	input := "timeStamp,label,success\n1700000000000,Login,true\n"
	extractor := NewExtractor(testConfig())
	stream, err := extractor.Open("results.jtl", int64(len(input)), strings.NewReader(input))
	require.NoError(t, err)

	_, err = stream.Next(context.Background())
	var malformed *MalformedInputError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, 0, malformed.RowsProcessed)
}

func TestExtractor_EmptyFileYieldsZeroRecords(t *testing.T) {
	extractor := NewExtractor(testConfig())
	stream, err := extractor.Open("results.jtl", 0, strings.NewReader(""))
	require.NoError(t, err)

	records := drain(t, stream)
	assert.Empty(t, records)
	assert.Equal(t, Stats{}, stream.Stats())
}

func TestExtractor_XML(t *testing.T) {
	input := `<?xml version="1.0" encoding="UTF-8"?>
<testResults version="1.2">
  <httpSample t="120" ts="1700000000000" lb="Login" rc="200" s="true" by="512" sby="128" lt="100" ct="10"/>
  <sample t="300" ts="1700000001000" lb="Batch" rc="200" s="true">
    <httpSample t="150" ts="1700000001000" lb="Batch-child" rc="200" s="true"/>
  </sample>
  <httpSample t="900" ts="1700000002000" lb="Search" rc="500" s="false"/>
</testResults>`

	extractor := NewExtractor(testConfig())
	stream, err := extractor.Open("results.xml", int64(len(input)), strings.NewReader(input))
	require.NoError(t, err)

	records := drain(t, stream)
	// The nested child sample belongs to its parent, not the stream.
	require.Len(t, records, 3)
	assert.Equal(t, "Login", records[0].Label)
	assert.Equal(t, "Batch", records[1].Label)
	assert.Equal(t, "Search", records[2].Label)
	assert.False(t, records[2].Success)
}

func TestExtractor_XMLDoctypeFailsClosed(t *testing.T) {
	input := `<?xml version="1.0"?>
<!DOCTYPE testResults [<!ENTITY xxe SYSTEM "file:///etc/passwd">]>
<testResults version="1.2">
  <httpSample t="120" ts="1700000000000" lb="&xxe;" rc="200" s="true"/>
</testResults>`

	extractor := NewExtractor(testConfig())
	stream, err := extractor.Open("evil.xml", int64(len(input)), strings.NewReader(input))
	require.NoError(t, err)

	_, err = stream.Next(context.Background())
	var malformed *MalformedInputError
	require.ErrorAs(t, err, &malformed)
	assert.Contains(t, malformed.Error(), "document type declarations")
}

func TestExtractor_XMLMalformedContainer(t *testing.T) {
	input := `<testResults><httpSample t="120" ts="1700000000000" lb="Login" s="true"/>`
	extractor := NewExtractor(testConfig())
	stream, err := extractor.Open("results.xml", int64(len(input)), strings.NewReader(input))
	require.NoError(t, err)

	var rows int
	for {
		_, err = stream.Next(context.Background())
		if err != nil {
			break
		}
		rows++
	}
	var malformed *MalformedInputError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, 1, malformed.RowsProcessed)
	assert.Equal(t, 1, rows)
}

func TestExtractor_RejectsUnsupportedExtension(t *testing.T) {
	extractor := NewExtractor(Config{MaxFileSize: 1024, AllowedExtensions: []string{".jtl"}})
	_, err := extractor.Open("results.txt", 10, strings.NewReader("data"))
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestExtractor_RejectsOversizedFile(t *testing.T) {
	extractor := NewExtractor(Config{MaxFileSize: 16, AllowedExtensions: []string{".jtl"}})
	_, err := extractor.Open("results.jtl", 1024, strings.NewReader("data"))
	require.ErrorIs(t, err, ErrFileTooLarge)
}

func TestExtractor_GuardsActualBytesBeyondDeclaredSize(t *testing.T) {
	big := "timeStamp,elapsed,label,success\n" + strings.Repeat("1700000000000,120,Login,true\n", 100)
	extractor := NewExtractor(Config{MaxFileSize: 64, AllowedExtensions: []string{".jtl"}})
	// Declared size lies about the real payload.
	stream, err := extractor.Open("results.jtl", 10, strings.NewReader(big))
	require.NoError(t, err)

	for {
		_, err = stream.Next(context.Background())
		if err != nil {
			break
		}
	}
	require.ErrorIs(t, err, ErrFileTooLarge)
}

func TestExtractor_StreamNotRestartable(t *testing.T) {
	extractor := NewExtractor(testConfig())
	stream, err := extractor.Open("results.jtl", int64(len(csvSample)), strings.NewReader(csvSample))
	require.NoError(t, err)

	_ = drain(t, stream)
	_, err = stream.Next(context.Background())
	require.ErrorIs(t, err, io.EOF)
}

func TestExtractor_ContextCancellationAborts(t *testing.T) {
	extractor := NewExtractor(testConfig())
	stream, err := extractor.Open("results.jtl", int64(len(csvSample)), strings.NewReader(csvSample))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = stream.Next(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestExtractor_Deterministic(t *testing.T) {
	extractor := NewExtractor(testConfig())

	parse := func() Result {
		stream, err := extractor.Open("results.jtl", int64(len(csvSample)), strings.NewReader(csvSample))
		require.NoError(t, err)
		agg := NewAggregator(AggregatorConfig{})
		_, err = agg.Consume(context.Background(), stream)
		require.NoError(t, err)
		return agg.Result()
	}

	first := parse()
	second := parse()
	assert.Equal(t, first, second)
}
