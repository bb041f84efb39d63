package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// OOXML and OpenDocument containers are zips holding XML parts. The parsers
// below scrape the text-bearing elements with regular expressions rather
// than decoding the XML: the element grammar they need is tiny and stable,
// and namespace-qualified decoding is far more code for the same output.
var (
	wordRun  = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)
	drawRun  = regexp.MustCompile(`<a:t[^>]*>([^<]*)</a:t>`)
	odfPara  = regexp.MustCompile(`<text:p[^>]*>([^<]*)</text:p>`)
	odfSpan  = regexp.MustCompile(`<text:span[^>]*>([^<]*)</text:span>`)
	odfTitle = regexp.MustCompile(`<text:h[^>]*>([^<]*)</text:h>`)
)

// wordMainType identifies the main body part of a word-processing package
// in its [Content_Types].xml manifest.
const wordMainType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"

// The manifest may list PartName and ContentType in either order.
var (
	wordPartFirst = regexp.MustCompile(`<Override[^>]+PartName="([^"]+)"[^>]+ContentType="` + regexp.QuoteMeta(wordMainType) + `"`)
	wordTypeFirst = regexp.MustCompile(`<Override[^>]+ContentType="` + regexp.QuoteMeta(wordMainType) + `"[^>]+PartName="([^"]+)"`)
)

func openZip(raw []byte) (*zip.Reader, error) {
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("not a zip container: %w", err)
	}
	return zr, nil
}

// zipPart returns the named entry's bytes, or nil when the archive has no
// such entry.
func zipPart(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, nil
}

// scrape collects the trimmed capture of every pattern match, patterns in
// the order given.
func scrape(doc string, patterns ...*regexp.Regexp) []string {
	var parts []string
	for _, re := range patterns {
		for _, m := range re.FindAllStringSubmatch(doc, -1) {
			parts = append(parts, strings.TrimSpace(m[1]))
		}
	}
	return parts
}

func joined(parts []string) string {
	return strings.TrimSpace(strings.Join(parts, " "))
}

// parseWord extracts the text runs of a word-processing container. The
// manifest names the main body part; word/document.xml is the usual
// location and the fallback when the manifest is absent.
func parseWord(raw []byte) (string, error) {
	zr, err := openZip(raw)
	if err != nil {
		return "", fmt.Errorf("parse word document: %w", err)
	}
	body := "word/document.xml"
	if manifest, merr := zipPart(zr, "[Content_Types].xml"); merr == nil && manifest != nil {
		if part := wordBodyPart(string(manifest)); part != "" {
			body = part
		}
	}
	doc, err := zipPart(zr, body)
	if err != nil {
		return "", fmt.Errorf("parse word document: %w", err)
	}
	if doc == nil {
		return "", fmt.Errorf("parse word document: %s not found", body)
	}
	return joined(scrape(string(doc), wordRun)), nil
}

func wordBodyPart(manifest string) string {
	for _, re := range []*regexp.Regexp{wordPartFirst, wordTypeFirst} {
		if m := re.FindStringSubmatch(manifest); len(m) > 1 {
			return strings.TrimPrefix(m[1], "/")
		}
	}
	return ""
}

// parseSlides extracts the text runs of every slide part in a presentation
// container.
func parseSlides(raw []byte) (string, error) {
	zr, err := openZip(raw)
	if err != nil {
		return "", fmt.Errorf("parse slides: %w", err)
	}
	var parts []string
	for _, f := range zr.File {
		if !strings.HasPrefix(f.Name, "ppt/slides/slide") || !strings.HasSuffix(f.Name, ".xml") {
			continue
		}
		slide, err := zipPart(zr, f.Name)
		if err != nil {
			return "", fmt.Errorf("parse slides: %w", err)
		}
		parts = append(parts, scrape(string(slide), drawRun)...)
	}
	return joined(parts), nil
}

// parseOpenDocument extracts the given text elements from an OpenDocument
// container's content.xml.
func parseOpenDocument(raw []byte, patterns ...*regexp.Regexp) (string, error) {
	zr, err := openZip(raw)
	if err != nil {
		return "", fmt.Errorf("parse opendocument: %w", err)
	}
	content, err := zipPart(zr, "content.xml")
	if err != nil {
		return "", fmt.Errorf("parse opendocument: %w", err)
	}
	if content == nil {
		return "", fmt.Errorf("parse opendocument: content.xml not found")
	}
	return joined(scrape(string(content), patterns...)), nil
}

func parsePresentationXML(raw []byte) (string, error) {
	return parseOpenDocument(raw, odfPara, odfSpan, odfTitle)
}

func parseSpreadsheetXML(raw []byte) (string, error) {
	return parseOpenDocument(raw, odfPara, odfSpan)
}
