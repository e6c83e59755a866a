package todo

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/nibzard/todo-go/internal/utils"
)

//go:embed tasks.schema.json
var schemaSource string

const schemaURL = "tasks.schema.json"

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

// Schema returns the compiled task list schema.
func Schema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true
		if err := compiler.AddResource(schemaURL, bytes.NewReader([]byte(schemaSource))); err != nil {
			schemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		schema, schemaErr = compiler.Compile(schemaURL)
		if schemaErr != nil {
			schemaErr = fmt.Errorf("compile schema: %w", schemaErr)
		}
	})
	return schema, schemaErr
}

// Encode serializes tasks in list order.
func Encode(tasks []Task) ([]byte, error) {
	if tasks == nil {
		tasks = []Task{}
	}
	data, err := json.Marshal(tasks)
	if err != nil {
		return nil, fmt.Errorf("marshal task list: %w", err)
	}
	return data, nil
}

// Decode parses and validates a stored task list.
func Decode(data []byte) ([]Task, error) {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &CorruptError{Cause: fmt.Errorf("parse task list: %w", err)}
	}

	s, err := Schema()
	if err != nil {
		return nil, err
	}
	if err := s.Validate(raw); err != nil {
		ce := &CorruptError{}
		appendSchemaErrors(ce, err)
		return nil, ce
	}

	var tasks []Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, &CorruptError{Cause: fmt.Errorf("decode task list: %w", err)}
	}

	if problems := checkIntegrity(tasks); len(problems) > 0 {
		return nil, &CorruptError{Problems: problems}
	}
	if tasks == nil {
		tasks = []Task{}
	}
	return tasks, nil
}

// checkIntegrity reports constraints that the schema cannot express: the
// schema pattern only knows ASCII whitespace, IsBlank knows all of Unicode.
func checkIntegrity(tasks []Task) []error {
	var problems []error
	seen := make(map[string]int, len(tasks))
	for i, t := range tasks {
		if IsBlank(t.Title) {
			problems = append(problems, &ValidationError{
				Path: fmt.Sprintf("[%d].title", i),
				Err:  fmt.Errorf("title is blank"),
			})
		}
		if first, ok := seen[t.ID]; ok {
			problems = append(problems, &ValidationError{
				Path: fmt.Sprintf("[%d].id", i),
				Err:  fmt.Errorf("duplicate id %q (first at [%d])", t.ID, first),
			})
			continue
		}
		seen[t.ID] = i
	}
	return problems
}

func appendSchemaErrors(ce *CorruptError, err error) {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		ce.Problems = append(ce.Problems, err)
		return
	}
	collectSchemaErrors(ce, ve)
}

func collectSchemaErrors(ce *CorruptError, err *jsonschema.ValidationError) {
	if err == nil {
		return
	}

	if len(err.Causes) == 0 {
		ce.Problems = append(ce.Problems, &ValidationError{
			Path: utils.JSONPointerToPath(err.InstanceLocation),
			Err:  fmt.Errorf("%s", err.Message),
		})
		return
	}

	for _, cause := range err.Causes {
		collectSchemaErrors(ce, cause)
	}
}
