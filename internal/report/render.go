package report

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/KaramelBytes/insightloom/internal/utils"
)

// Output formats.
const (
	FormatJSON     = "json"
	FormatMarkdown = "md"
	FormatHTML     = "html"
	FormatXLSX     = "xlsx"
)

// Formats lists every supported output format.
var Formats = []string{FormatJSON, FormatMarkdown, FormatHTML, FormatXLSX}

// ParseFormats normalizes a list like "md, HTML,json" and rejects unknown entries.
// Duplicates are dropped and order is kept.
func ParseFormats(list []string) ([]string, error) {
	var out []string
	for _, item := range list {
		for _, f := range strings.Split(item, ",") {
			f = strings.ToLower(strings.TrimSpace(f))
			switch f {
			case "":
				continue
			case "markdown":
				f = FormatMarkdown
			}
			if !slices.Contains(Formats, f) {
				return nil, fmt.Errorf("unknown report format %q (supported: %s)", f, strings.Join(Formats, ", "))
			}
			if !slices.Contains(out, f) {
				out = append(out, f)
			}
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no report format selected (supported: %s)", strings.Join(Formats, ", "))
	}
	return out, nil
}

// Render produces the bytes of one format.
func Render(rep Report, meta Meta, format string) ([]byte, error) {
	var (
		b   []byte
		err error
	)
	switch format {
	case FormatJSON:
		b, err = utils.PrettyJSON(struct {
			Report
			Meta Meta `json:"meta"`
		}{rep, meta})
	case FormatMarkdown:
		b = []byte(Markdown(rep, meta))
	case FormatHTML:
		b = HTML(rep, meta)
	case FormatXLSX:
		b, err = XLSX(rep, meta)
	default:
		err = fmt.Errorf("unsupported format")
	}
	if err != nil {
		return nil, &ReportRenderingError{Format: format, Err: err}
	}
	return b, nil
}

// Write renders every format into dir as base.<format> and returns format -> path.
// It stops at the first failure; files already written are kept.
func Write(rep Report, meta Meta, dir, base string, formats []string) (map[string]string, error) {
	out := make(map[string]string, len(formats))
	for _, f := range formats {
		b, err := Render(rep, meta, f)
		if err != nil {
			return out, err
		}
		path := filepath.Join(dir, base+"."+f)
		if err := utils.SafeWriteFile(path, b); err != nil {
			return out, &ReportRenderingError{Format: f, Path: path, Err: err}
		}
		out[f] = path
	}
	return out, nil
}
