// Package contract loads OpenAPI 3 documents and exposes the high-level model the rest of the
// shim is built from.
package contract

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/imposter-project/contract-shim/pkg/logger"
	"github.com/imposter-project/contract-shim/pkg/shimerr"
	"github.com/pb33f/libopenapi"
	"github.com/pb33f/libopenapi/datamodel"
	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"
)

// Contract is a parsed OpenAPI 3 document. It is immutable once constructed and may be shared
// between goroutines without locking.
type Contract struct {
	// Source is the location the document was loaded from, if any.
	Source string
	// BaseDir is used to resolve relative external references.
	BaseDir  string
	Raw      []byte
	Version  string
	Document libopenapi.Document
	Model    *v3.Document
}

// Parse builds a Contract from raw JSON or YAML. The source is informational and, when it names
// a local file, its directory becomes the base for relative references.
func Parse(data []byte, source string) (*Contract, error) {
	baseDir := ""
	if source != "" && !isRemote(source) {
		baseDir = filepath.Dir(source)
	}
	return parse(data, source, baseDir)
}

func parse(data []byte, source string, baseDir string) (*Contract, error) {
	cfg := &datamodel.DocumentConfiguration{
		AllowFileReferences: baseDir != "",
	}
	if baseDir != "" {
		cfg.BasePath = baseDir
	}

	document, err := libopenapi.NewDocumentWithConfiguration(data, cfg)
	if err != nil {
		return nil, &shimerr.ContractError{Source: source, Reason: "cannot create document", Err: err}
	}

	version := document.GetSpecInfo().Version
	if !strings.HasPrefix(version, "3") {
		return nil, &shimerr.ContractError{
			Source: source,
			Reason: fmt.Sprintf("unsupported OpenAPI version %q, only 3.x documents can be served", version),
		}
	}

	v3Model, errs := document.BuildV3Model()
	if errs != nil {
		return nil, &shimerr.ContractError{
			Source: source,
			Reason: "cannot create v3 model from document",
			Err:    fmt.Errorf("%v", errs),
		}
	}
	if v3Model == nil {
		return nil, &shimerr.ContractError{Source: source, Reason: "document produced no v3 model"}
	}

	model := &v3Model.Model
	paths := 0
	if model.Paths != nil && model.Paths.PathItems != nil {
		paths = model.Paths.PathItems.Len()
	}
	var schemas int
	if model.Components != nil && model.Components.Schemas != nil {
		schemas = model.Components.Schemas.Len()
	}
	logger.Debugf("parsed OpenAPI %s contract %s: %d paths and %d schemas", version, displaySource(source), paths, schemas)

	return &Contract{
		Source:   source,
		BaseDir:  baseDir,
		Raw:      data,
		Version:  version,
		Document: document,
		Model:    model,
	}, nil
}

// Title returns the info title, or the source when the document has none.
func (c *Contract) Title() string {
	if c.Model.Info != nil && c.Model.Info.Title != "" {
		return c.Model.Info.Title
	}
	return displaySource(c.Source)
}

func displaySource(source string) string {
	if source == "" {
		return "<inline>"
	}
	return source
}
