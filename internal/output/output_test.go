package output

import (
	"bytes"
	"strings"
	"testing"
)

type row struct {
	Path       string `json:"path"`
	Depth      int    `json:"depth"`
	Confidence string `json:"confidence"`
}

type doc struct {
	Items   []row  `json:"items"`
	Summary string `json:"summary"`
}

func sample() doc {
	return doc{
		Items: []row{
			{Path: "src/b.ts", Depth: 2, Confidence: "high"},
			{Path: "src/a.ts", Depth: 1, Confidence: "certain"},
			{Path: "src/c.ts", Depth: 3, Confidence: "low"},
		},
		Summary: "3 items",
	}
}

func TestEncodeJSONIsByteStable(t *testing.T) {
	a, err := EncodeJSON(sample())
	if err != nil {
		t.Fatal(err)
	}
	b, err := EncodeJSON(sample())
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("identical inputs produced different JSON bytes")
	}
}

func TestEmitFormats(t *testing.T) {
	var buf bytes.Buffer
	err := Emit(&buf, FormatJSON, Doc{Value: sample()})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "\"items\"") {
		t.Errorf("json output: %s", buf.String())
	}

	buf.Reset()
	if err := Emit(&buf, FormatCompact, Doc{Value: sample()}); err != nil {
		t.Fatal(err)
	}
	if strings.Count(strings.TrimSpace(buf.String()), "\n") != 0 {
		t.Errorf("compact output should be one line: %q", buf.String())
	}

	buf.Reset()
	csvDoc := Doc{Value: sample(), CSV: func() [][]string {
		return [][]string{{"path", "depth"}, {"src/a.ts", "1"}}
	}}
	if err := Emit(&buf, FormatCSV, csvDoc); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "path,depth\n") {
		t.Errorf("csv output: %q", buf.String())
	}

	if err := Emit(&buf, FormatCSV, Doc{Value: sample()}); err == nil {
		t.Error("csv without renderer should fail")
	}
}

func TestApplySortLimitReverse(t *testing.T) {
	out, err := Apply(sample(), ListOptions{SortField: "depth", Reverse: true, Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	obj := out.(map[string]interface{})
	items := obj["items"].([]interface{})
	if len(items) != 2 {
		t.Fatalf("limit: %v", items)
	}
	first := items[0].(map[string]interface{})
	if first["path"] != "src/c.ts" {
		t.Errorf("reverse depth sort: %v", first)
	}
}

func TestApplySortByConfidence(t *testing.T) {
	out, err := Apply(sample(), ListOptions{SortField: "confidence"})
	if err != nil {
		t.Fatal(err)
	}
	items := out.(map[string]interface{})["items"].([]interface{})
	first := items[0].(map[string]interface{})
	if first["confidence"] != "low" {
		t.Errorf("confidence sort ascending: %v", first)
	}
}

func TestApplyCountMatchesListLength(t *testing.T) {
	full, err := Apply(sample(), ListOptions{SortField: "path"})
	if err != nil {
		t.Fatal(err)
	}
	items := full.(map[string]interface{})["items"].([]interface{})

	counted, err := Apply(sample(), ListOptions{Count: true})
	if err != nil {
		t.Fatal(err)
	}
	count := counted.(map[string]interface{})["count"].(int)
	if count != len(items) {
		t.Errorf("--count (%d) must equal list length (%d)", count, len(items))
	}
}

func TestApplyInvalidSortField(t *testing.T) {
	if _, err := Apply(sample(), ListOptions{SortField: "size"}); err == nil {
		t.Error("invalid sort field should error")
	}
}

func TestApplyJQ(t *testing.T) {
	out, err := ApplyJQ(sample(), ".items[].path")
	if err != nil {
		t.Fatal(err)
	}
	want := "\"src/b.ts\"\n\"src/a.ts\"\n\"src/c.ts\"\n"
	if string(out) != want {
		t.Errorf("jq output = %q, want %q", out, want)
	}
}

func TestApplyJQInvalidExpression(t *testing.T) {
	if _, err := ApplyJQ(sample(), ".items[?"); err == nil {
		t.Error("invalid jq expression should error")
	}
}
