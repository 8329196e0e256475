package analysis

import (
	"encoding/json"
	"testing"
)

func TestDecodePreservesKeyOrder(t *testing.T) {
	res, err := Decode([]byte(`{
		"speech_metrics": {"zeta": 1, "alpha": 2, "mid": "x"},
		"agent_results": {"personality": {"traits": ["open"]}, "communication": "clear"}
	}`))
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"zeta", "alpha", "mid"}
	got := res.SpeechMetrics.Keys()
	if len(got) != len(want) {
		t.Fatalf("keys = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("key %d = %q, want %q", i, got[i], want[i])
		}
	}
	if k := res.AgentResults.Keys(); k[0] != "personality" || k[1] != "communication" {
		t.Errorf("agent order = %v", k)
	}
}

func TestDecodeToleratesMissingAndWrongTypes(t *testing.T) {
	res, err := Decode([]byte(`{"transcript": 7, "confidence_score": "high", "speech_metrics": [1,2]}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if res.Transcript != "" || res.ConfidenceScore != 0 {
		t.Errorf("wrong types should read as zero: %+v", res)
	}
	if res.SpeechMetrics != nil || res.AgentResults != nil {
		t.Error("non-object maps should be empty")
	}
}

func TestDecodeKeepsExtraKeys(t *testing.T) {
	res, err := Decode([]byte(`{"transcript": "hi", "model_version": "v2", "latency_ms": 812}`))
	if err != nil {
		t.Fatal(err)
	}
	if k := res.Extra.Keys(); len(k) != 2 || k[0] != "model_version" || k[1] != "latency_ms" {
		t.Errorf("Extra = %v", k)
	}
}

func TestDecodeEmptyObject(t *testing.T) {
	res, err := Decode([]byte(`{}`))
	if err != nil {
		t.Fatalf("Decode({}): %v", err)
	}
	if res.Transcript != "" || res.ConfidenceScore != 0 || res.ConfidenceLabel != "" || res.FinalReport != "" {
		t.Errorf("empty object should decode to zero values: %+v", res)
	}
	if len(res.SpeechMetrics) != 0 || len(res.AgentResults) != 0 || len(res.Extra) != 0 {
		t.Errorf("empty object should have no fields: %+v", res)
	}
}

func TestDecodeEmptyNestedMaps(t *testing.T) {
	res, err := Decode([]byte(`{"speech_metrics": {}, "agent_results": {}}`))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.SpeechMetrics) != 0 || len(res.AgentResults) != 0 {
		t.Errorf("maps = %v / %v", res.SpeechMetrics, res.AgentResults)
	}
}

func TestDecodeRejectsNonObject(t *testing.T) {
	for _, body := range []string{`[]`, `null`, `"text"`, `{`} {
		if _, err := Decode([]byte(body)); err == nil {
			t.Errorf("Decode(%s) should fail", body)
		}
	}
}

func TestFieldsDuplicateKeyKeepsFirstPosition(t *testing.T) {
	var fs Fields
	if err := json.Unmarshal([]byte(`{"a": 1, "b": 2, "a": 3}`), &fs); err != nil {
		t.Fatal(err)
	}
	if len(fs) != 2 || fs[0].Key != "a" {
		t.Fatalf("fields = %+v", fs)
	}
	if n, _ := fs[0].Number(); n != 3 {
		t.Errorf("a = %v, want 3", n)
	}
}

func TestFieldAccessors(t *testing.T) {
	tests := []struct {
		raw    string
		null   bool
		num    bool
		isText bool
	}{
		{`null`, true, false, false},
		{`1.5`, false, true, false},
		{`"x"`, false, false, true},
		{`{"k":1}`, false, false, false},
	}
	for _, tt := range tests {
		f := Field{Key: "k", Value: json.RawMessage(tt.raw)}
		if f.IsNull() != tt.null {
			t.Errorf("%s IsNull = %v", tt.raw, f.IsNull())
		}
		if _, ok := f.Number(); ok != tt.num {
			t.Errorf("%s Number ok = %v", tt.raw, ok)
		}
		if _, ok := f.Text(); ok != tt.isText {
			t.Errorf("%s Text ok = %v", tt.raw, ok)
		}
	}
}
