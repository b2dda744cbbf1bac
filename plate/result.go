package plate

import (
	"strings"
	"unicode/utf8"

	"github.com/JuneshG/Vehicle-Speed-Detection-System/detect"
)

// ResultKind classifies the outcome of reading a single plate candidate
type ResultKind int

const (
	// Accepted means the recognised text passed the length filter
	Accepted ResultKind = iota
	// EngineError means the recognition engine failed on the image
	EngineError
	// Empty means the engine returned no text
	Empty
	// ImplausibleLength means the text length was outside the accepted
	// range
	ImplausibleLength
)

// String returns the kind name
func (k ResultKind) String() string {
	switch k {
	case Accepted:
		return "accepted"
	case EngineError:
		return "engine_error"
	case Empty:
		return "empty"
	case ImplausibleLength:
		return "implausible_length"
	}
	return "unknown"
}

// Result is the outcome of reading one plate candidate
type Result struct {
	// Text is the trimmed recognised text
	Text string
	// Kind classifies the result
	Kind ResultKind
	// Err is the engine error when Kind is EngineError
	Err error
}

// Candidate is a plate shaped region found on a vehicle and its recognition
// result
type Candidate struct {
	// Region is the plate location relative to the vehicle region of
	// interest
	Region detect.Box
	// Frame is the plate location in frame coordinates
	Frame detect.Box
	// Result of recognising the region
	Result Result
}

// LengthFilter accepts text with a rune count strictly between Min and Max
type LengthFilter struct {
	Min int
	Max int
}

// Classify trims the raw recognised text and classifies it
func (f LengthFilter) Classify(raw string, err error) Result {

	if err != nil {
		return Result{Kind: EngineError, Err: err}
	}

	text := strings.TrimSpace(raw)

	if text == "" {
		return Result{Kind: Empty}
	}

	n := utf8.RuneCountInString(text)

	if n <= f.Min || n >= f.Max {
		return Result{Text: text, Kind: ImplausibleLength}
	}

	return Result{Text: text, Kind: Accepted}
}

// Stats counts plate reading outcomes
type Stats struct {
	// Vehicles is the number of vehicles the pipeline ran on
	Vehicles int
	// Candidates is the number of plate regions found
	Candidates int
	// Accepted is the number of candidates with plausible text
	Accepted int
	// EngineErrors is the number of candidates the engine failed on
	EngineErrors int
	// Empty is the number of candidates with no text
	Empty int
	// ImplausibleLength is the number of candidates rejected on length
	ImplausibleLength int
}

// record counts the result kind
func (s *Stats) record(k ResultKind) {

	s.Candidates++

	switch k {
	case Accepted:
		s.Accepted++
	case EngineError:
		s.EngineErrors++
	case Empty:
		s.Empty++
	case ImplausibleLength:
		s.ImplausibleLength++
	}
}
