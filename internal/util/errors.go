package util

import "errors"

var (
	// ErrUnrecognizedShape means a raw problem payload matched no known
	// structural fingerprint. The problem is dropped and reported, never
	// coerced into a default variant.
	ErrUnrecognizedShape = errors.New("problem payload matches no known question shape")

	// ErrUnparsableResponse means a student answer could not be coerced
	// into the variant the question expects. Contained per problem: the
	// item degrades to a zero-score evaluation.
	ErrUnparsableResponse = errors.New("student response could not be parsed")

	// ErrNoCurriculumData means the cold-start path found no curriculum to
	// sample from. Fatal: no assessment can be built.
	ErrNoCurriculumData = errors.New("no curriculum data available for subject")

	ErrReportNotFound     = errors.New("assessment report not found")
	ErrAssessmentNotFound = errors.New("assessment not found")
	ErrAlreadyScored      = errors.New("assessment already scored")
	ErrPermissionDenied   = errors.New("permission denied")
)
