package pybridge

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ContractFile is the YAML declaration of a module contract:
//
//	module: analytics.reports
//	methods:
//	  row_count:
//	    returns: {type: integer}
//	  scan_rows:
//	    stream: true
//	    returns:
//	      type: object
//	      required: [id]
type ContractFile struct {
	Module  string                    `yaml:"module"`
	Methods map[string]MethodFileSpec `yaml:"methods"`
}

// MethodFileSpec is the YAML declaration of one method.
type MethodFileSpec struct {
	Stream  bool           `yaml:"stream"`
	Returns map[string]any `yaml:"returns"`
}

// LoadContractFile reads a YAML contract declaration and builds the
// contract. Returns the declared module name alongside it.
func LoadContractFile(path string) (string, *Contract, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("read contract file: %w", err)
	}

	return ParseContract(data)
}

// ParseContract builds a contract from YAML bytes.
func ParseContract(data []byte) (string, *Contract, error) {
	var file ContractFile

	if err := yaml.Unmarshal(data, &file); err != nil {
		return "", nil, fmt.Errorf("parse contract file: %w", err)
	}

	if file.Module == "" {
		return "", nil, fmt.Errorf("contract file declares no module")
	}

	if len(file.Methods) == 0 {
		return "", nil, fmt.Errorf("contract file declares no methods for module %q", file.Module)
	}

	specs := make(map[string]MethodSpec, len(file.Methods))

	for name, decl := range file.Methods {
		spec := MethodSpec{Stream: decl.Stream}

		if decl.Returns != nil {
			schema, err := schemaFromMap(decl.Returns)
			if err != nil {
				return "", nil, fmt.Errorf("method %q: %w", name, err)
			}

			spec.Returns = schema
		}

		specs[name] = spec
	}

	contract, err := NewContract(specs)
	if err != nil {
		return "", nil, err
	}

	return file.Module, contract, nil
}

// schemaFromMap converts a decoded YAML mapping into a JSON Schema by
// round-tripping through JSON.
func schemaFromMap(m map[string]any) (*Schema, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode schema: %w", err)
	}

	var schema Schema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}

	return &schema, nil
}
