package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"
)

// LoadError represents an error that occurred while loading a definition.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeNotFound    = "E002" // Definition file not found
	ErrCodeUnsupported = "E003" // Unsupported file extension
	ErrCodeParseFailed = "E004" // YAML/JSON/CUE syntax or decode error
	ErrCodeBuildFailed = "E005" // CUE evaluation failed
	ErrCodeWriteFailed = "E006" // File write error
	ErrCodeWatchFailed = "E007" // File watcher error

	// Query errors
	ErrCodeValidation = "E101" // Builder or tree validation failed
	ErrCodeRender     = "E102" // XML rendering failed
)

// SupportedExtensions lists the definition formats LoadDefinition accepts.
var SupportedExtensions = []string{".yaml", ".yml", ".json", ".cue"}

// LoadDefinition reads a query definition, choosing the decoder by file
// extension. Identifiers are NFC-normalized before returning.
func LoadDefinition(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("definition file not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error reading definition: %v", err)}
	}

	var def *Definition
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		def, err = decodeYAML(data)
	case ".json":
		def, err = decodeJSON(data)
	case ".cue":
		def, err = decodeCUE(path, data)
	default:
		return nil, &LoadError{
			Code:    ErrCodeUnsupported,
			Message: fmt.Sprintf("unsupported definition format %q: must be one of %v", ext, SupportedExtensions),
		}
	}
	if err != nil {
		return nil, err
	}

	def.Normalize()
	return def, nil
}

func decodeYAML(data []byte) (*Definition, error) {
	var def Definition
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &LoadError{Code: ErrCodeParseFailed, Message: "empty definition"}
		}
		return nil, &LoadError{Code: ErrCodeParseFailed, Message: fmt.Sprintf("invalid YAML: %v", err)}
	}
	return &def, nil
}

func decodeJSON(data []byte) (*Definition, error) {
	var def Definition
	if err := strictJSON.Unmarshal(data, &def); err != nil {
		return nil, &LoadError{Code: ErrCodeParseFailed, Message: fmt.Sprintf("invalid JSON: %v", err)}
	}
	return &def, nil
}

func decodeCUE(path string, data []byte) (*Definition, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, cueLoadError(ErrCodeParseFailed, err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, cueLoadError(ErrCodeBuildFailed, err)
	}

	var def Definition
	if err := v.Decode(&def); err != nil {
		return nil, cueLoadError(ErrCodeBuildFailed, err)
	}
	return &def, nil
}

// cueLoadError converts a CUE error to a LoadError carrying the position of
// the first reported problem.
func cueLoadError(code string, err error) *LoadError {
	loadErr := &LoadError{Code: code, Message: err.Error()}
	var cueErr cueerrors.Error
	if errors.As(err, &cueErr) {
		loadErr.Pos = cueErr.Position()
	}
	return loadErr
}
