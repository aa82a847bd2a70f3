package cipher

import (
	"context"
	"errors"
	"testing"

	"github.com/RowanDark/rotor/internal/enigma"
)

var testParams = map[string]interface{}{
	ParamAlphabet: "upper",
	ParamOffsets:  "5,12,1",
}

func TestPipelineExecution(t *testing.T) {
	tests := []struct {
		name       string
		operations []OperationConfig
		input      string
		expected   string
	}{
		{
			name:       "rotor encode",
			operations: []OperationConfig{{Name: "rotor_encode", Parameters: testParams}},
			input:      "BASILIAEDIEGOPRASEMPREJUNTOS",
			expected:   "TTMDHFYDDJGJSUXHANWADRXJDKGL",
		},
		{
			name: "rotor then base64",
			operations: []OperationConfig{
				{Name: "rotor_encode", Parameters: testParams},
				{Name: "base64_encode"},
			},
			input:    "BASILIA",
			expected: "VFRNREhGWQ==",
		},
		{
			name: "encode then decode",
			operations: []OperationConfig{
				{Name: "rotor_encode", Parameters: testParams},
				{Name: "rotor_decode", Parameters: testParams},
			},
			input:    "HELLO, WORLD",
			expected: "HELLO, WORLD",
		},
		{
			name:       "hex",
			operations: []OperationConfig{{Name: "hex_encode"}},
			input:      "AB",
			expected:   "4142",
		},
	}

	ctx := context.Background()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pipeline := &Pipeline{Operations: tt.operations, Reversible: true}

			result, err := pipeline.Execute(ctx, []byte(tt.input))
			if err != nil {
				t.Fatalf("pipeline execution failed: %v", err)
			}
			if string(result) != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, string(result))
			}
		})
	}
}

func TestPipelineReversibility(t *testing.T) {
	printable := map[string]interface{}{
		ParamAlphabet:  "printable",
		ParamOffsets:   []interface{}{5.0, 25.0, 0.0, 12.0},
		ParamPlugboard: "a~",
	}
	pipeline := &Pipeline{
		Operations: []OperationConfig{
			{Name: "rotor_encode", Parameters: printable},
			{Name: "hex_encode"},
			{Name: "base64_encode"},
		},
		Reversible: true,
	}

	ctx := context.Background()
	input := "meet me at the usual place ~ 10pm\n"

	encoded, err := pipeline.Execute(ctx, []byte(input))
	if err != nil {
		t.Fatalf("forward pipeline failed: %v", err)
	}

	reversed, err := pipeline.Reverse()
	if err != nil {
		t.Fatalf("failed to reverse pipeline: %v", err)
	}
	want := []string{"base64_decode", "hex_decode", "rotor_decode"}
	for i, op := range reversed.Operations {
		if op.Name != want[i] {
			t.Fatalf("step %d: expected %s, got %s", i, want[i], op.Name)
		}
	}

	decoded, err := reversed.Execute(ctx, encoded)
	if err != nil {
		t.Fatalf("reverse pipeline failed: %v", err)
	}
	if string(decoded) != input {
		t.Fatalf("round trip mismatch: %q", decoded)
	}
}

func TestPipelineErrors(t *testing.T) {
	ctx := context.Background()

	unknown := &Pipeline{Operations: []OperationConfig{{Name: "rot13"}}}
	if _, err := unknown.Execute(ctx, []byte("x")); !errors.Is(err, ErrUnknownOperation) {
		t.Fatalf("expected ErrUnknownOperation, got %v", err)
	}

	badKey := &Pipeline{Operations: []OperationConfig{{
		Name:       "rotor_encode",
		Parameters: map[string]interface{}{ParamOffsets: "5,40,1"},
	}}}
	if _, err := badKey.Execute(ctx, []byte("x")); !errors.Is(err, enigma.ErrInvalidKey) {
		t.Fatalf("expected ErrInvalidKey, got %v", err)
	}

	notReversible := &Pipeline{Operations: []OperationConfig{{Name: "hex_encode"}}}
	if _, err := notReversible.Reverse(); err == nil {
		t.Fatal("expected error reversing a pipeline not marked reversible")
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	p := &Pipeline{Operations: []OperationConfig{{Name: "hex_encode"}}}
	if _, err := p.Execute(cancelled, []byte("x")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
