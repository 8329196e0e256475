package analysis

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Field is one key of an open backend map, with its value left raw so the
// display layer decides how to render it.
type Field struct {
	Key   string
	Value json.RawMessage
}

// IsNull reports a JSON null or a missing value.
func (f Field) IsNull() bool {
	v := bytes.TrimSpace(f.Value)
	return len(v) == 0 || string(v) == "null"
}

func (f Field) Number() (float64, bool) {
	var n float64
	if f.IsNull() {
		return 0, false
	}
	if err := json.Unmarshal(f.Value, &n); err != nil {
		return 0, false
	}
	return n, true
}

func (f Field) Text() (string, bool) {
	var s string
	if f.IsNull() {
		return "", false
	}
	if err := json.Unmarshal(f.Value, &s); err != nil {
		return "", false
	}
	return s, true
}

// Fields is a JSON object decoded in document order.
type Fields []Field

func (fs Fields) Get(key string) (Field, bool) {
	for _, f := range fs {
		if f.Key == key {
			return f, true
		}
	}
	return Field{}, false
}

func (fs Fields) Keys() []string {
	keys := make([]string, len(fs))
	for i, f := range fs {
		keys[i] = f.Key
	}
	return keys
}

var errNotObject = errors.New("expected JSON object")

func (fs *Fields) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		*fs = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errNotObject
	}

	out := Fields{}
	index := map[string]int{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("decoding %q: %w", key, err)
		}
		// A repeated key keeps its first position and its last value.
		if i, ok := index[key]; ok {
			out[i].Value = raw
			continue
		}
		index[key] = len(out)
		out = append(out, Field{Key: key, Value: raw})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*fs = out
	return nil
}

// Result is the backend's analysis of one recording. Every key is optional;
// wrongly typed values read as their zero value.
type Result struct {
	Transcript      string
	ConfidenceScore float64
	ConfidenceLabel string
	FinalReport     string
	SpeechMetrics   Fields
	AgentResults    Fields

	// Extra holds top-level keys this client does not know about.
	Extra Fields

	RequestID string
	Metrics   *NetworkMetrics
}

var knownKeys = map[string]bool{
	"transcript":       true,
	"confidence_score": true,
	"confidence_label": true,
	"final_report":     true,
	"speech_metrics":   true,
	"agent_results":    true,
}

// Decode parses a response body. Only a body that is not a JSON object fails.
func Decode(body []byte) (*Result, error) {
	var top Fields
	if err := json.Unmarshal(body, &top); err != nil {
		return nil, fmt.Errorf("decoding analysis response: %w", err)
	}
	// null leaves top nil; {} leaves it empty but non-nil.
	if top == nil {
		return nil, fmt.Errorf("decoding analysis response: %w", errNotObject)
	}

	r := &Result{}
	for _, f := range top {
		if !knownKeys[f.Key] {
			r.Extra = append(r.Extra, f)
		}
	}
	if f, ok := top.Get("transcript"); ok {
		r.Transcript, _ = f.Text()
	}
	if f, ok := top.Get("confidence_score"); ok {
		r.ConfidenceScore, _ = f.Number()
	}
	if f, ok := top.Get("confidence_label"); ok {
		r.ConfidenceLabel, _ = f.Text()
	}
	if f, ok := top.Get("final_report"); ok {
		r.FinalReport, _ = f.Text()
	}
	if f, ok := top.Get("speech_metrics"); ok {
		_ = json.Unmarshal(f.Value, &r.SpeechMetrics)
	}
	if f, ok := top.Get("agent_results"); ok {
		_ = json.Unmarshal(f.Value, &r.AgentResults)
	}
	return r, nil
}
