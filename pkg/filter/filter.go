// Package filter evaluates a jq expression over a group's object
// listing to decide whether the handler should run.
//
// The expression sees the listed objects as a JSON array using the S3
// Object API casing (`Key`, `Size`, `LastModified`, `ETag`). The group
// passes unless the expression's first output is the literal `false`,
// so users can return objects or informative values for logging while
// still gating execution. An expression producing no outputs (jq
// `empty`) does NOT pass; that is the documented default.
package filter

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/itchyny/gojq"

	"github.com/kklingenberg/s3-event-bridge/pkg/storage"
)

// ErrBothSources is returned when both an inline expression and an
// expression file are configured.
var ErrBothSources = errors.New("execution filter expression and file are mutually exclusive")

// Evaluator holds a compiled jq expression. It is immutable after
// construction and safe for concurrent use.
type Evaluator struct {
	code   *gojq.Code
	source string
}

// Result is the outcome of one evaluation.
type Result struct {
	// Pass reports whether the group should run.
	Pass bool

	// Value is the first output of the expression, nil when the
	// expression produced no outputs.
	Value any

	// Surplus reports that the expression produced more than one
	// output; only the first is consulted.
	Surplus bool
}

// New compiles an execution filter from an inline expression or a
// UTF-8 file containing one. Exactly one source may be set; with both
// empty there is no filter and New returns nil.
//
// Compilation happens here, once per process, so a syntax error is a
// startup failure rather than a per-group one.
func New(expr, file string) (*Evaluator, error) {
	switch {
	case expr == "" && file == "":
		return nil, nil
	case expr != "" && file != "":
		return nil, ErrBothSources
	case file != "":
		content, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read execution filter file %s: %w", file, err)
		}
		expr = string(content)
	}

	query, err := gojq.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("parse execution filter: %w", err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("compile execution filter: %w", err)
	}
	return &Evaluator{code: code, source: expr}, nil
}

// Source returns the expression text the evaluator was compiled from.
func (e *Evaluator) Source() string {
	return e.source
}

// Evaluate runs the expression over the listed objects.
//
// Evaluation errors are returned wrapped and fail the group.
func (e *Evaluator) Evaluate(objects []storage.Object) (Result, error) {
	iter := e.code.Run(serializeObjects(objects))

	first, ok := iter.Next()
	if !ok {
		// jq `empty`: no output means no permission to run.
		return Result{Pass: false}, nil
	}
	if err, isErr := first.(error); isErr {
		return Result{}, fmt.Errorf("evaluate execution filter: %w", err)
	}

	_, surplus := iter.Next()

	pass := true
	if b, isBool := first.(bool); isBool && !b {
		pass = false
	}
	return Result{Pass: pass, Value: first, Surplus: surplus}, nil
}

// serializeObjects renders the listing the way the S3 Object API
// would. Reference:
// https://docs.aws.amazon.com/AmazonS3/latest/API/API_Object.html
func serializeObjects(objects []storage.Object) []any {
	serialized := make([]any, len(objects))
	for i, obj := range objects {
		serialized[i] = map[string]any{
			"Key":          obj.Key,
			"Size":         int(obj.Size),
			"LastModified": obj.LastModified.UTC().Format(time.RFC3339),
			"ETag":         obj.ETag,
		}
	}
	return serialized
}
