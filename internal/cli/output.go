package cli

import (
	"errors"
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"

	"github.com/roach88/fetchxml/fetchir"
)

// json encodes CLI responses. strictJSON decodes definition files and
// rejects unknown keys the way the YAML decoder does.
var (
	json       = jsoniter.ConfigCompatibleWithStandardLibrary
	strictJSON = jsoniter.Config{
		EscapeHTML:            true,
		SortMapKeys:           true,
		DisallowUnknownFields: true,
	}.Froze()
)

// Process exit statuses. A definition that loads but yields no XML exits
// with ExitFailure; anything that stops the definition from being read or
// the result from being written exits with ExitCommandError.
const (
	ExitSuccess      = 0
	ExitFailure      = 1
	ExitCommandError = 2
)

// ExitError carries the process exit status out of a cobra RunE. main
// reads it back with GetExitCode.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

func NewExitError(code int, message string) *ExitError {
	return WrapExitError(code, message, nil)
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode maps err to a process exit status. Errors that carry no
// *ExitError count as query failures.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		return ExitFailure
	}
	return exitErr.Code
}

// OutputFormatter prints command results as text or as one JSON document
// per response. Logs never go to Writer; they go to GetErrWriter.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
	Verbose   bool
	TraceID   string
}

// CLIResponse is the JSON envelope shared by every command. Status is "ok"
// or "error"; TraceID is the run id and is left out when empty.
type CLIResponse struct {
	Status  string      `json:"status"`
	Data    interface{} `json:"data,omitempty"`
	Error   *CLIError   `json:"error,omitempty"`
	TraceID string      `json:"trace_id,omitempty"`
}

// CLIError names a failure by one of the ErrCode constants.
type CLIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Success prints data. Text output prints it on one line as is.
func (f *OutputFormatter) Success(data interface{}) error {
	if f.Format != "json" {
		_, err := fmt.Fprintln(f.Writer, data)
		return err
	}
	return f.respond(CLIResponse{Status: "ok", Data: data})
}

// Error prints a coded failure. Text output shows details only in verbose
// mode.
func (f *OutputFormatter) Error(code, message string, details interface{}) error {
	if f.Format == "json" {
		return f.respond(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	}

	if _, err := fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message); err != nil {
		return err
	}
	if f.Verbose && details != nil {
		_, err := fmt.Fprintf(f.Writer, "Details: %v\n", details)
		return err
	}
	return nil
}

func (f *OutputFormatter) respond(resp CLIResponse) error {
	resp.TraceID = f.TraceID
	return f.encoder().Encode(resp)
}

// encoder writes one JSON response per line. XML payloads stay readable:
// markup characters are not escaped.
func (f *OutputFormatter) encoder() *jsoniter.Encoder {
	enc := json.NewEncoder(f.Writer)
	enc.SetEscapeHTML(false)
	return enc
}

// GetErrWriter is where logs and diagnostics go: ErrWriter, or Writer when
// no separate stream was given.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter == nil {
		return f.Writer
	}
	return f.ErrWriter
}

// ValidationIssue is one query validation error in CLI output.
type ValidationIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Path    string `json:"path,omitempty"`
}

func newValidationIssue(ve *fetchir.ValidationError) ValidationIssue {
	return ValidationIssue{Field: ve.Field, Message: ve.Message, Path: ve.Path}
}

// LoadErrorDetails locates a load error inside the definition file.
type LoadErrorDetails struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// outputLoadError reports a definition that could not be loaded.
func outputLoadError(f *OutputFormatter, err error) error {
	code, message := ErrCodeGeneric, err.Error()
	var details interface{}

	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		code, message = loadErr.Code, loadErr.Message
		if loadErr.Pos.IsValid() {
			details = LoadErrorDetails{
				File:   loadErr.Pos.Filename(),
				Line:   loadErr.Pos.Line(),
				Column: loadErr.Pos.Column(),
			}
		}
	}

	_ = f.Error(code, message, details)
	return WrapExitError(ExitCommandError, "failed to load definition", err)
}

// outputQueryError reports a definition the builder rejected or could not
// render.
func outputQueryError(f *OutputFormatter, err error) error {
	var ve *fetchir.ValidationError
	if errors.As(err, &ve) {
		_ = f.Error(ErrCodeValidation, ve.Error(), newValidationIssue(ve))
		return WrapExitError(ExitFailure, "query validation failed", err)
	}

	_ = f.Error(ErrCodeRender, err.Error(), nil)
	return WrapExitError(ExitFailure, "query render failed", err)
}
