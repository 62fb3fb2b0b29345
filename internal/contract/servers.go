package contract

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/imposter-project/contract-shim/pkg/shimerr"
	"github.com/imposter-project/contract-shim/pkg/utils"
)

// ServerBasePaths returns the distinct path prefixes of the document's servers, in document
// order. Server variables are replaced by their defaults, trailing slashes are trimmed and the
// root is represented by the empty string. A document without servers is served from the root.
func (c *Contract) ServerBasePaths() ([]string, error) {
	if len(c.Model.Servers) == 0 {
		return []string{""}, nil
	}

	prefixes := make([]string, 0, len(c.Model.Servers))
	for _, server := range c.Model.Servers {
		if server == nil {
			continue
		}
		raw := server.URL
		if server.Variables != nil {
			for name, variable := range server.Variables.FromOldest() {
				if variable == nil {
					continue
				}
				raw = strings.ReplaceAll(raw, "{"+name+"}", variable.Default)
			}
		}

		parsed, err := url.Parse(raw)
		if err != nil {
			return nil, &shimerr.ContractError{
				Source: c.Source,
				Reason: fmt.Sprintf("server URL %q cannot be parsed", server.URL),
				Err:    err,
			}
		}
		prefixes = append(prefixes, strings.TrimRight(parsed.Path, "/"))
	}
	if len(prefixes) == 0 {
		return []string{""}, nil
	}
	return utils.UniqueStrings(prefixes), nil
}
