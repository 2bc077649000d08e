package cli

import (
	"fmt"
	"os"

	"sigs.k8s.io/yaml"
)

// readDescriptor loads an interface descriptor from a YAML or JSON file.
func readDescriptor(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read descriptor: %w", err)
	}
	jsonData, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, fmt.Errorf("unable to parse descriptor %s: %w", path, err)
	}
	var descriptor map[string]any
	if err := json.Unmarshal(jsonData, &descriptor); err != nil {
		return nil, fmt.Errorf("descriptor %s is not an object: %w", path, err)
	}
	if descriptor == nil {
		return nil, fmt.Errorf("descriptor %s is empty", path)
	}
	return descriptor, nil
}
