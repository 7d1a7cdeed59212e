package util

import (
	"os"
	"path/filepath"

	"github.com/nvr-ai/go-bgseg/errs"
	"github.com/nvr-ai/go-bgseg/models/model"
)

// DirectoryWeights loads "<name>.onnx" files from a directory.
type DirectoryWeights string

// Path returns the weight file location for a model.
func (d DirectoryWeights) Path(name model.Name) string {
	return filepath.Join(string(d), string(name)+".onnx")
}

// Load reads the weights of a model.
//
// Arguments:
//   - name: The canonical model identifier.
//
// Returns:
//   - []byte: The serialized model.
//   - error: A configuration error if the file is missing or empty.
func (d DirectoryWeights) Load(name model.Name) ([]byte, error) {
	path := d.Path(name)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Configuration("util.weights", err)
	}
	if len(data) == 0 {
		return nil, errs.Configurationf("util.weights", "%s is empty", path)
	}
	return data, nil
}
