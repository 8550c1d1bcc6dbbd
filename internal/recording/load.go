package recording

import (
	"bytes"
	"encoding/json"
	_ "embed"
	"fmt"
	"log/slog"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Schema is the recording format contract, also published under
// docs/schema/ for external consumers.
//
//go:embed recording-v1.schema.json
var Schema []byte

const schemaURL = "https://screenrec.dev/schema/recording-v1.schema.json"

var compiledSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, bytes.NewReader(Schema)); err != nil {
		panic(fmt.Sprintf("recording schema resource: %v", err))
	}
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		panic(fmt.Sprintf("recording schema compile: %v", err))
	}
	return schema
}

// Load parses and validates a recording file, re-sorts events by t_rel,
// and maps legacy key/button names to the canonical vocabulary. Fails
// with ErrMalformedRecording when the shape or field ranges are off.
func Load(path string, logger *slog.Logger) (*Recording, error) {
	if logger == nil {
		logger = slog.Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read recording: %w", err)
	}

	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecording, err)
	}
	if err := compiledSchema.Validate(instance); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecording, err)
	}

	var rec Recording
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecording, err)
	}
	if err := rec.validate(); err != nil {
		return nil, err
	}

	rec.normalizeNames(logger)
	rec.sortEvents()
	return &rec, nil
}

func (r *Recording) normalizeNames(logger *slog.Logger) {
	for i := range r.Events {
		e := &r.Events[i]
		if e.Key != "" {
			name, flagged := NormalizeKeyName(e.Key)
			if flagged {
				logger.Warn("unmapped legacy key name passed through", "key", e.Key, "normalized", name)
			}
			e.Key = name
		}
		if e.Button != "" {
			e.Button = NormalizeButtonName(e.Button)
		}
	}
}
