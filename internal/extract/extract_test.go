package extract

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

// buildZip assembles an in-memory zip from entry name to content.
func buildZip(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range entries {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := fw.Write([]byte(content)); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func wordBody(text string) string {
	return `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p><w:r><w:t>` + text + `</w:t></w:r></w:p></w:body></w:document>`
}

func slideBody(text string) string {
	return `<p:sld><p:cSld><p:spTree><p:sp><p:txBody><a:p><a:r><a:t>` + text + `</a:t></a:r></a:p></p:txBody></p:sp></p:spTree></p:cSld></p:sld>`
}

func TestText_plain(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		ext  string
		want string
	}{
		{"txt", "Hello world\nLine 2", ".txt", "Hello world\nLine 2"},
		{"validUTF8", "caf\xc3\xa9", ".md", "café"},
		{"invalidUTF8", "hello\x80world", ".rst", "hello�world"},
		{"unknownExtension", "raw content", ".xyz", "raw content"},
		{"noExtension", "raw content", "", "raw content"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Text([]byte(tc.raw), tc.ext)
			if err != nil {
				t.Fatalf("Text: %v", err)
			}
			if got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestText_word(t *testing.T) {
	raw := buildZip(t, map[string]string{"word/document.xml": wordBody("Quarterly report body")})
	got, err := Text(raw, ".docx")
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if got != "Quarterly report body" {
		t.Errorf("got %q", got)
	}
}

func TestText_wordManifestNamesBodyPart(t *testing.T) {
	// The manifest can point the main body at a part other than
	// word/document.xml, with Override attributes in either order.
	cases := []struct {
		name     string
		override string
	}{
		{"partNameFirst", `<Override PartName="/word/document2.xml" ContentType="` + wordMainType + `"/>`},
		{"contentTypeFirst", `<Override ContentType="` + wordMainType + `" PartName="/word/document2.xml"/>`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw := buildZip(t, map[string]string{
				"[Content_Types].xml": `<?xml version="1.0"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` + tc.override + `</Types>`,
				"word/document2.xml":  wordBody("Relocated body"),
			})
			got, err := Text(raw, ".docx")
			if err != nil {
				t.Fatalf("Text: %v", err)
			}
			if got != "Relocated body" {
				t.Errorf("got %q", got)
			}
		})
	}
}

func TestText_wordMissingBody(t *testing.T) {
	raw := buildZip(t, map[string]string{"other.xml": "<x/>"})
	if _, err := Text(raw, ".docx"); err == nil {
		t.Error("expected error when the body part is missing")
	}
}

func TestText_slides(t *testing.T) {
	raw := buildZip(t, map[string]string{
		"ppt/slides/slide1.xml": slideBody("First slide"),
		"ppt/slides/slide2.xml": slideBody("Second slide"),
		"docProps/core.xml":     "<x/>",
	})
	got, err := Text(raw, ".pptx")
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	// Slide parts carry the deck's text; other parts contribute nothing.
	if !strings.Contains(got, "First slide") || !strings.Contains(got, "Second slide") {
		t.Errorf("got %q", got)
	}
}

func TestText_slidesWithoutText(t *testing.T) {
	raw := buildZip(t, map[string]string{"ppt/slides/other.xml": "<x/>"})
	got, err := Text(raw, ".pptx")
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if got != "" {
		t.Errorf("got %q", got)
	}
}

func TestText_presentationXML(t *testing.T) {
	raw := buildZip(t, map[string]string{
		"content.xml": `<office:document><office:body><draw:page><text:h>Slide title</text:h><text:p>Body text</text:p></draw:page></office:body></office:document>`,
	})
	got, err := Text(raw, ".odp")
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	// Paragraphs are collected before headings.
	if got != "Body text Slide title" {
		t.Errorf("got %q", got)
	}
}

func TestText_spreadsheetXML(t *testing.T) {
	raw := buildZip(t, map[string]string{
		"content.xml": `<office:document><office:body><table:table><table:table-row><table:table-cell><text:p>Cell A</text:p></table:table-cell><table:table-cell><text:span>Cell B</text:span></table:table-cell></table:table-row></table:table></office:body></office:document>`,
	})
	got, err := Text(raw, ".ods")
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if got != "Cell A Cell B" {
		t.Errorf("got %q", got)
	}
}

func TestText_containerErrors(t *testing.T) {
	if _, err := Text([]byte("not a zip"), ".pptx"); err == nil {
		t.Error("expected error for a non-zip container")
	}
	missing := buildZip(t, map[string]string{"other.xml": "<x/>"})
	for _, ext := range []string{".odp", ".ods"} {
		if _, err := Text(missing, ext); err == nil {
			t.Errorf("%s: expected error when content.xml is missing", ext)
		}
	}
}

func TestText_workbook(t *testing.T) {
	wb := excelize.NewFile()
	defer wb.Close()
	if err := wb.SetCellValue("Sheet1", "A1", "Title"); err != nil {
		t.Fatal(err)
	}
	if err := wb.SetCellValue("Sheet1", "A2", "Value 1"); err != nil {
		t.Fatal(err)
	}
	if err := wb.SetCellValue("Sheet1", "B2", "Value 2"); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if _, err := wb.WriteTo(&buf); err != nil {
		t.Fatal(err)
	}

	got, err := Text(buf.Bytes(), ".xlsx")
	if err != nil {
		t.Fatalf("Text: %v", err)
	}
	if got != "Title\nValue 1\tValue 2" {
		t.Errorf("got %q", got)
	}
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.md")
	if err := os.WriteFile(path, []byte("# Heading\n\nBody."), 0o600); err != nil {
		t.Fatal(err)
	}

	input, err := FromFile(path)
	if err != nil {
		t.Fatalf("FromFile: %v", err)
	}
	if input.Title != "notes.md" {
		t.Errorf("title: %q", input.Title)
	}
	if input.Content != "# Heading\n\nBody." {
		t.Errorf("content: %q", input.Content)
	}
	if input.ContentType != "text/markdown" {
		t.Errorf("content type: %q", input.ContentType)
	}
	if input.Metadata.Source != path {
		t.Errorf("source: %q", input.Metadata.Source)
	}
}

func TestFromFile_wordDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.docx")
	raw := buildZip(t, map[string]string{"word/document.xml": wordBody("Report body")})
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatal(err)
	}

	input, err := FromFile(path)
	if err != nil {
		t.Fatalf("FromFile: %v", err)
	}
	if input.Content != "Report body" {
		t.Errorf("content: %q", input.Content)
	}
	if input.ContentType != typeWord {
		t.Errorf("content type: %q", input.ContentType)
	}
}

func TestFromFile_missing(t *testing.T) {
	if _, err := FromFile("/nonexistent/file.txt"); err == nil {
		t.Error("expected error for a missing file")
	}
}

func TestContentTypeFor(t *testing.T) {
	cases := []struct {
		ext  string
		want string
	}{
		{".md", "text/markdown"},
		{".MD", "text/markdown"},
		{".pdf", "application/pdf"},
		{".docx", typeWord},
		{".odt", typeWord},
		{".xlsx", typeSheet},
		{".ods", typeSheet},
		{".pptx", typeSlides},
		{".odp", typeSlides},
		{".txt", "text/plain"},
		{".xyz", "text/plain"},
		{"", "text/plain"},
	}
	for _, tc := range cases {
		if got := ContentTypeFor(tc.ext); got != tc.want {
			t.Errorf("ContentTypeFor(%q) = %q, want %q", tc.ext, got, tc.want)
		}
	}
}
