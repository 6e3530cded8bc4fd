package source

import (
	"net/url"
	"strings"

	"github.com/maplanning/lead-scout/internal/model"
)

// LinkFor fills the descriptor's link template with ref. It returns "#"
// when there is no template or no usable reference.
func (d Descriptor) LinkFor(ref string) string {
	if d.Link == "" || ref == "" || ref == model.NA {
		return "#"
	}
	return strings.ReplaceAll(d.Link, "{reference}", url.PathEscape(ref))
}
