// Package cipher exposes the rotor engine and its armor encodings as named,
// reversible operations that can be chained into pipelines.
//
// # Operations
//
//	op, _ := cipher.GetOperation("rotor_encode")
//	out, _ := op.Execute(ctx, []byte("ATTACK AT DAWN"), map[string]interface{}{
//	    "alphabet":  "upper",
//	    "offsets":   "5,12,1",
//	    "plugboard": "AZBY",
//	})
//
// Every rotor operation builds a fresh engine from its parameters, so two
// executions with the same parameters always start from the same state.
//
// # Pipelines
//
//	pipeline := &cipher.Pipeline{
//	    Operations: []cipher.OperationConfig{
//	        {Name: "rotor_encode", Parameters: params},
//	        {Name: "base64_encode"},
//	    },
//	    Reversible: true,
//	}
//	encoded, _ := pipeline.Execute(ctx, []byte("text"))
//	reversed, _ := pipeline.Reverse()
//	decoded, _ := reversed.Execute(ctx, encoded)
//
// Available operations:
//   - rotor_encode/decode - rotor chain with plugboard
//   - base64_encode/decode - Standard Base64
//   - hex_encode/decode - Hexadecimal encoding
//
// The registry is safe for concurrent use. Operations hold no state between
// calls.
package cipher
