package expression

import (
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/pkg/errors"
)

// File is the environment a filter expression is evaluated against.
type File struct {
	Name    string
	Ext     string
	Dir     string
	Path    string
	Size    uint64
	ModTime time.Time
}

// AgeDays returns the age of the file in days at evaluation time.
func (f *File) AgeDays() float64 {
	return time.Since(f.ModTime).Hours() / 24
}

type CompiledExpression struct {
	Text    string
	Program *vm.Program
}

// Compile compiles boolean expressions for evaluation against a File.
func Compile(expressions []string) ([]CompiledExpression, error) {
	compiled := make([]CompiledExpression, 0, len(expressions))

	for _, text := range expressions {
		program, err := expr.Compile(text, expr.Env(&File{}), expr.AsBool())
		if err != nil {
			return nil, errors.Wrapf(err, "compile expression: %q", text)
		}

		compiled = append(compiled, CompiledExpression{Text: text, Program: program})
	}

	return compiled, nil
}
