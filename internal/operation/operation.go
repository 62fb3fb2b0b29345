// Package operation builds the index of contract operations keyed by operationId.
package operation

import (
	"fmt"
	"strings"

	"github.com/imposter-project/contract-shim/internal/contract"
	"github.com/imposter-project/contract-shim/internal/resolver"
	"github.com/imposter-project/contract-shim/pkg/logger"
	"github.com/imposter-project/contract-shim/pkg/shimerr"
	"github.com/imposter-project/contract-shim/pkg/utils"
	"github.com/pb33f/libopenapi/datamodel/high/base"
	v3 "github.com/pb33f/libopenapi/datamodel/high/v3"
)

// Location is where a parameter is carried in a request.
type Location string

const (
	InPath   Location = "path"
	InQuery  Location = "query"
	InHeader Location = "header"
	InCookie Location = "cookie"
)

// Parameter is a declared input of an operation.
type Parameter struct {
	Name     string
	In       Location
	Required bool
	Schema   *base.SchemaProxy
}

// SecurityRequirement maps security scheme names to the scopes they must grant. All schemes in
// one requirement must be satisfied together.
type SecurityRequirement map[string][]string

// Operation is one path and method of the contract.
type Operation struct {
	ID     string
	Path   string
	Method string
	// Parameters groups declared parameters by location, then by name.
	Parameters map[Location]map[string]Parameter
	// Security is nil when the operation is unsecured. Any one entry satisfies the operation.
	Security []SecurityRequirement
	HasBody  bool
	PathItem *v3.PathItem
	Spec     *v3.Operation
}

func (o *Operation) String() string {
	return fmt.Sprintf("%s %s (%s)", o.Method, o.Path, o.ID)
}

// Index holds the operations of a contract keyed by operationId, together with the case-folded
// aliases used for fallback lookups. It is read-only once built.
type Index struct {
	ops    map[string]*Operation
	folded map[string]string
}

// Get returns the operation with exactly this identifier, or nil.
func (idx *Index) Get(id string) *Operation {
	return idx.ops[id]
}

// Len returns the number of indexed operations.
func (idx *Index) Len() int {
	return len(idx.ops)
}

// IDs returns every operation identifier in sorted order.
func (idx *Index) IDs() []string {
	return utils.SortedKeys(idx.ops)
}

// Fold maps the case-folded form of each identifier back to the identifier. The map is shared
// and must not be modified.
func (idx *Index) Fold() map[string]string {
	return idx.folded
}

// Lookup finds an operation by identifier, falling back to its case-folded form.
func (idx *Index) Lookup(id string) (*Operation, bool) {
	if op, ok := idx.ops[id]; ok {
		return op, true
	}
	if original, ok := idx.folded[resolver.FoldCase(id)]; ok {
		return idx.ops[original], true
	}
	return nil, false
}

// fold computes the folded aliases. Identifiers are visited in sorted order, so on a collision
// the first identifier keeps the alias.
func (idx *Index) fold() {
	idx.folded = make(map[string]string, len(idx.ops))
	for _, id := range idx.IDs() {
		key := resolver.FoldCase(id)
		if existing, ok := idx.folded[key]; ok {
			logger.Warnf("operations %s and %s fold to the same name %s, folded lookup will use %s", existing, id, key, existing)
			continue
		}
		idx.folded[key] = id
	}
}

// Build walks every path item of the contract and indexes its operations.
func Build(c *contract.Contract) (*Index, error) {
	idx := &Index{ops: make(map[string]*Operation)}
	if c.Model.Paths == nil || c.Model.Paths.PathItems == nil {
		idx.fold()
		return idx, nil
	}

	defaultSecurity := documentSecurity(c.Model)

	for path, pathItem := range c.Model.Paths.PathItems.FromOldest() {
		if pathItem == nil {
			continue
		}
		for method, spec := range pathItem.GetOperations().FromOldest() {
			method = strings.ToUpper(method)
			if spec.OperationId == "" {
				return nil, &shimerr.ContractError{
					Source: c.Source,
					Reason: fmt.Sprintf("operation %s %s has no operationId", method, path),
				}
			}
			if existing, ok := idx.ops[spec.OperationId]; ok {
				return nil, &shimerr.ContractError{
					Source: c.Source,
					Reason: fmt.Sprintf("operationId %s is declared by both %s %s and %s %s",
						spec.OperationId, existing.Method, existing.Path, method, path),
				}
			}

			op := &Operation{
				ID:         spec.OperationId,
				Path:       path,
				Method:     method,
				Parameters: groupParameters(pathItem.Parameters, spec.Parameters),
				Security:   operationSecurity(spec, defaultSecurity),
				HasBody:    spec.RequestBody != nil,
				PathItem:   pathItem,
				Spec:       spec,
			}
			idx.ops[op.ID] = op
			logger.Tracef("indexed operation %s", op)
		}
	}

	idx.fold()
	logger.Debugf("indexed %d operations", idx.Len())
	return idx, nil
}

// groupParameters merges path-item parameters with operation parameters. Operation-level
// declarations override inherited ones with the same location and name.
func groupParameters(inherited []*v3.Parameter, declared []*v3.Parameter) map[Location]map[string]Parameter {
	grouped := make(map[Location]map[string]Parameter)
	add := func(params []*v3.Parameter) {
		for _, p := range params {
			if p == nil {
				continue
			}
			loc := Location(strings.ToLower(p.In))
			if grouped[loc] == nil {
				grouped[loc] = make(map[string]Parameter)
			}
			required := loc == InPath
			if p.Required != nil {
				required = *p.Required
			}
			grouped[loc][p.Name] = Parameter{
				Name:     p.Name,
				In:       loc,
				Required: required,
				Schema:   p.Schema,
			}
		}
	}
	add(inherited)
	add(declared)
	return grouped
}

func documentSecurity(model *v3.Document) []SecurityRequirement {
	return convertSecurity(model.Security)
}

// operationSecurity returns the operation's own requirements when it declares a security key,
// even an empty one, and the document default otherwise.
func operationSecurity(spec *v3.Operation, defaults []SecurityRequirement) []SecurityRequirement {
	declared := len(spec.Security) > 0
	if low := spec.GoLow(); low != nil && low.Security.KeyNode != nil {
		declared = true
	}
	if !declared {
		return defaults
	}
	return convertSecurity(spec.Security)
}

func convertSecurity(requirements []*base.SecurityRequirement) []SecurityRequirement {
	if len(requirements) == 0 {
		return nil
	}
	out := make([]SecurityRequirement, 0, len(requirements))
	for _, req := range requirements {
		converted := SecurityRequirement{}
		if req != nil && req.Requirements != nil {
			for scheme, scopes := range req.Requirements.FromOldest() {
				converted[scheme] = scopes
			}
		}
		out = append(out, converted)
	}
	return out
}

// IsOptional reports whether the requirements admit anonymous access, either because there are
// none or because one of them is empty.
func IsOptional(requirements []SecurityRequirement) bool {
	if len(requirements) == 0 {
		return true
	}
	for _, req := range requirements {
		if len(req) == 0 {
			return true
		}
	}
	return false
}
