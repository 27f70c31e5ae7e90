package gitea

import (
	"fmt"

	"github.com/kaptinlin/jsonschema"
)

// Response schemas. The client is a typed pass-through: bodies are checked
// against these before decoding, so a drifting or proxied API surfaces as a
// schema error rather than silently zeroed fields.
const (
	userSchema = `{
		"type": "object",
		"properties": {
			"id": {"type": "integer"},
			"login": {"type": "string"}
		},
		"required": ["id", "login"]
	}`

	repositorySchema = `{
		"type": "object",
		"properties": {
			"id": {"type": "integer"},
			"name": {"type": "string"},
			"full_name": {"type": "string"},
			"private": {"type": "boolean"},
			"owner": ` + userSchema + `
		},
		"required": ["id", "full_name"]
	}`

	issueSchema = `{
		"type": "object",
		"properties": {
			"id": {"type": "integer"},
			"number": {"type": "integer"},
			"title": {"type": "string"},
			"state": {"type": "string", "enum": ["open", "closed"]}
		},
		"required": ["id", "number", "title", "state"]
	}`

	pullRequestSchema = `{
		"type": "object",
		"properties": {
			"id": {"type": "integer"},
			"number": {"type": "integer"},
			"title": {"type": "string"},
			"state": {"type": "string"},
			"merged": {"type": "boolean"}
		},
		"required": ["id", "number", "title"]
	}`
)

type schemaSet struct {
	repository     *jsonschema.Schema
	repositoryList *jsonschema.Schema
	issue          *jsonschema.Schema
	issueList      *jsonschema.Schema
	pullRequest    *jsonschema.Schema
	pullList       *jsonschema.Schema
}

func compileSchemas() (*schemaSet, error) {
	compiler := jsonschema.NewCompiler()

	compile := func(name, src string) (*jsonschema.Schema, error) {
		s, err := compiler.Compile([]byte(src))
		if err != nil {
			return nil, fmt.Errorf("compile %s schema: %w", name, err)
		}
		return s, nil
	}
	listOf := func(item string) string {
		return `{"type": "array", "items": ` + item + `}`
	}

	var (
		set schemaSet
		err error
	)
	if set.repository, err = compile("repository", repositorySchema); err != nil {
		return nil, err
	}
	if set.repositoryList, err = compile("repository list", listOf(repositorySchema)); err != nil {
		return nil, err
	}
	if set.issue, err = compile("issue", issueSchema); err != nil {
		return nil, err
	}
	if set.issueList, err = compile("issue list", listOf(issueSchema)); err != nil {
		return nil, err
	}
	if set.pullRequest, err = compile("pull request", pullRequestSchema); err != nil {
		return nil, err
	}
	if set.pullList, err = compile("pull request list", listOf(pullRequestSchema)); err != nil {
		return nil, err
	}
	return &set, nil
}
