package fetcher

import (
	"io"
	"mime"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

// UTF8Reader converts r to UTF-8 using the charset named in a Content-Type
// header. Missing or UTF-8 charsets return r unchanged. Several council
// portals still serve windows-1252 result pages.
func UTF8Reader(r io.Reader, contentType string) (io.Reader, error) {
	if contentType == "" {
		return r, nil
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return r, nil
	}
	cs := strings.ToLower(strings.TrimSpace(params["charset"]))
	if cs == "" || cs == "utf-8" || cs == "utf8" {
		return r, nil
	}
	enc, err := htmlindex.Get(cs)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: unsupported charset %q", cs)
	}
	return enc.NewDecoder().Reader(r), nil
}
