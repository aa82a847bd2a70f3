package cipher

import (
	"context"
	"fmt"
	"strings"

	"github.com/RowanDark/rotor/internal/enigma"
)

// Parameter names understood by the rotor operations.
const (
	ParamAlphabet  = "alphabet"
	ParamOffsets   = "offsets"
	ParamPlugboard = "plugboard"
)

// RotorEncodeOp runs the input through a freshly keyed rotor engine.
type RotorEncodeOp struct {
	BaseOperation
}

func (op *RotorEncodeOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	engine, err := engineFromParams(params)
	if err != nil {
		return nil, err
	}
	return []byte(engine.Encode(string(input))), nil
}

// RotorDecodeOp inverts RotorEncodeOp for the same parameters.
type RotorDecodeOp struct {
	BaseOperation
}

func (op *RotorDecodeOp) Execute(ctx context.Context, input []byte, params map[string]interface{}) ([]byte, error) {
	engine, err := engineFromParams(params)
	if err != nil {
		return nil, err
	}
	out, err := engine.Decode(string(input))
	if err != nil {
		return nil, err
	}
	return []byte(out), nil
}

func engineFromParams(params map[string]interface{}) (*enigma.Engine, error) {
	key, err := KeyFromParams(params)
	if err != nil {
		return nil, err
	}
	return enigma.New(key)
}

// KeyFromParams reads a key from operation parameters. offsets may be a
// list of numbers or a "5,12,1" string; alphabet is a preset name, a
// BASE:SIZE string or a {base, size} object; plugboard is a pair string.
func KeyFromParams(params map[string]interface{}) (enigma.Key, error) {
	var key enigma.Key

	alpha, err := alphabetParam(params[ParamAlphabet])
	if err != nil {
		return key, err
	}
	key.Alphabet = alpha

	offsets, err := offsetsParam(params[ParamOffsets])
	if err != nil {
		return key, err
	}
	key.Offsets = offsets

	switch v := params[ParamPlugboard].(type) {
	case nil:
	case string:
		key.Plugboard = enigma.ParsePlugboard(v)
	default:
		return key, &enigma.KeyError{Param: ParamPlugboard, Value: v, Reason: "must be a string of pairs"}
	}
	return key, nil
}

// ParamsFromKey is the inverse of KeyFromParams.
func ParamsFromKey(key enigma.Key) map[string]interface{} {
	params := map[string]interface{}{
		ParamAlphabet: key.Alphabet.String(),
		ParamOffsets:  enigma.FormatOffsets(key.Offsets),
	}
	if len(key.Plugboard) > 0 {
		params[ParamPlugboard] = enigma.FormatPlugboard(key.Plugboard)
	}
	return params
}

func alphabetParam(v interface{}) (enigma.Alphabet, error) {
	switch a := v.(type) {
	case nil:
		return enigma.Uppercase, nil
	case string:
		return enigma.ParseAlphabet(a)
	case enigma.Alphabet:
		return a, a.Validate()
	case map[string]interface{}:
		base, err := intParam(a["base"])
		if err != nil {
			return enigma.Alphabet{}, &enigma.KeyError{Param: "alphabet.base", Value: a["base"], Reason: err.Error()}
		}
		size, err := intParam(a["size"])
		if err != nil {
			return enigma.Alphabet{}, &enigma.KeyError{Param: "alphabet.size", Value: a["size"], Reason: err.Error()}
		}
		alpha := enigma.Alphabet{Base: rune(base), Size: size}
		return alpha, alpha.Validate()
	default:
		return enigma.Alphabet{}, &enigma.KeyError{Param: ParamAlphabet, Value: v, Reason: "unsupported type"}
	}
}

func offsetsParam(v interface{}) ([]int, error) {
	switch o := v.(type) {
	case nil:
		return nil, &enigma.KeyError{Param: ParamOffsets, Value: nil, Reason: "required"}
	case string:
		return enigma.ParseOffsets(o)
	case []int:
		return append([]int(nil), o...), nil
	case []interface{}:
		out := make([]int, len(o))
		for i, raw := range o {
			n, err := intParam(raw)
			if err != nil {
				return nil, &enigma.KeyError{Param: fmt.Sprintf("offsets[%d]", i), Value: raw, Reason: err.Error()}
			}
			out[i] = n
		}
		return out, nil
	default:
		return nil, &enigma.KeyError{Param: ParamOffsets, Value: v, Reason: "unsupported type"}
	}
}

func intParam(v interface{}) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("not an integer")
		}
		return int(n), nil
	case string:
		offsets, err := enigma.ParseOffsets(strings.TrimSpace(n))
		if err != nil || len(offsets) != 1 {
			return 0, fmt.Errorf("not an integer")
		}
		return offsets[0], nil
	default:
		return 0, fmt.Errorf("not a number")
	}
}

func init() {
	encode := &RotorEncodeOp{
		BaseOperation: BaseOperation{
			NameValue:        "rotor_encode",
			TypeValue:        OperationTypeEncrypt,
			DescriptionValue: "Encipher with a rotor chain and plugboard",
		},
	}
	decode := &RotorDecodeOp{
		BaseOperation: BaseOperation{
			NameValue:        "rotor_decode",
			TypeValue:        OperationTypeDecrypt,
			DescriptionValue: "Decipher text produced by rotor_encode with the same key",
		},
	}
	encode.ReverseOp = decode
	decode.ReverseOp = encode

	RegisterOperation(encode)
	RegisterOperation(decode)
}
