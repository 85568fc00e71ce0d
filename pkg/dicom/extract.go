// pkg/dicom/extract.go
package dicom

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"
)

// Metadata is the structured record the analysis tool reports for one DICOM
// file. Numeric fields are pointers so that an absent value is distinguishable
// from a real zero; string fields follow the tool's convention of emitting an
// empty string when the tag is missing.
type Metadata struct {
	Width             *int     `json:"width"`
	Height            *int     `json:"height"`
	Minimum           *float64 `json:"minimum"`
	Maximum           *float64 `json:"maximum"`
	Modality          string   `json:"Modality"`
	PatientName       string   `json:"PatientName"`
	PatientBirthDate  string   `json:"PatientBirthDate"`
	StudyName         string   `json:"StudyName"`
	SeriesName        string   `json:"SeriesName"`
	SeriesDescription string   `json:"SeriesDescription"`
}

// payload is the tool's full stdout shape. Slices carry the rendered pixel
// data for the viewer; only the metadata member matters here. A top-level
// error member is how the script reports a caught failure with exit code 0.
type payload struct {
	Metadata *Metadata `json:"metadata"`
	Error    string    `json:"error"`
	Details  string    `json:"details"`
}

// ProcessError means the external analysis process could not produce output:
// it failed to start, exited non-zero, timed out, or reported a failure in
// its own output. Stderr carries the tool's diagnostics.
type ProcessError struct {
	Stderr string
	Err    error
}

func (e *ProcessError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("dicom extraction process failed: %v: %s", e.Err, e.Stderr)
	}
	return fmt.Sprintf("dicom extraction process failed: %v", e.Err)
}

func (e *ProcessError) Unwrap() error { return e.Err }

// ParseError means the process ran but its output was empty or not the
// expected JSON shape.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("dicom extraction output unparsable: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Extractor invokes the external DICOM analysis script and parses its output.
type Extractor struct {
	Python    string
	Script    string
	Timeout   time.Duration
	MaxOutput int64
}

// NewExtractor builds an Extractor with sane limits applied.
func NewExtractor(python, script string, timeout time.Duration, maxOutput int64) *Extractor {
	if python == "" {
		python = "python3"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if maxOutput <= 0 {
		maxOutput = 50 << 20
	}
	return &Extractor{Python: python, Script: script, Timeout: timeout, MaxOutput: maxOutput}
}

// Extract runs the analysis tool against the file at path and returns the
// parsed metadata record. It does not touch the database or blob storage.
func (e *Extractor) Extract(ctx context.Context, path string) (*Metadata, error) {
	ctx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.Python, e.Script, path)

	stdout := &boundedBuffer{limit: e.MaxOutput}
	var stderr bytes.Buffer
	cmd.Stdout = stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			err = fmt.Errorf("timed out after %s", e.Timeout)
		}
		return nil, &ProcessError{Stderr: stderr.String(), Err: err}
	}

	out := bytes.TrimSpace(stdout.Bytes())
	if len(out) == 0 {
		return nil, &ParseError{Err: fmt.Errorf("process produced no output")}
	}

	var p payload
	if err := json.Unmarshal(out, &p); err != nil {
		return nil, &ParseError{Err: err}
	}
	if p.Error != "" {
		return nil, &ProcessError{Stderr: p.Details, Err: fmt.Errorf("%s", p.Error)}
	}
	if p.Metadata == nil {
		return nil, &ParseError{Err: fmt.Errorf("output has no metadata member")}
	}
	return p.Metadata, nil
}

// boundedBuffer rejects writes past its limit so a misbehaving tool cannot
// balloon memory; the write error aborts the command.
type boundedBuffer struct {
	buf   bytes.Buffer
	limit int64
}

func (b *boundedBuffer) Write(p []byte) (int, error) {
	if int64(b.buf.Len())+int64(len(p)) > b.limit {
		return 0, fmt.Errorf("extraction output exceeds %d bytes", b.limit)
	}
	return b.buf.Write(p)
}

func (b *boundedBuffer) Bytes() []byte { return b.buf.Bytes() }
