package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"testing"

	"github.com/contraudit/contraudit/internal/models"
)

func TestForExtension(t *testing.T) {
	if _, err := ForExtension(".docx"); err != nil {
		t.Errorf("docx: %v", err)
	}
	if _, err := ForExtension(".PDF"); err != nil {
		t.Errorf("pdf case-insensitive: %v", err)
	}
	if _, err := ForExtension(".txt"); err != nil {
		t.Errorf("txt: %v", err)
	}
	_, err := ForExtension(".xlsx")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestTextParser(t *testing.T) {
	p := &TextParser{}
	elements, err := p.Parse([]byte("1. ПРЕДМЕТ ДОГОВОРА\n\nПоставщик обязуется поставить товар.\n\nВторой абзац."))
	if err != nil {
		t.Fatal(err)
	}
	if len(elements) != 3 {
		t.Fatalf("expected 3 elements, got %d", len(elements))
	}
	if elements[0].Kind != models.ElementHeading {
		t.Errorf("first element should be heading, got %s", elements[0].Kind)
	}
	if elements[1].Kind != models.ElementParagraph {
		t.Errorf("second element should be paragraph, got %s", elements[1].Kind)
	}
	for i, el := range elements {
		if el.Order != i {
			t.Errorf("element %d has order %d", i, el.Order)
		}
	}
}

func TestTextParserCP1251(t *testing.T) {
	// "Договор" in Windows-1251
	raw := []byte{0xC4, 0xEE, 0xE3, 0xEE, 0xE2, 0xEE, 0xF0}
	p := &TextParser{}
	elements, err := p.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(elements) != 1 || elements[0].Text != "Договор" {
		t.Errorf("cp1251 decode failed: %+v", elements)
	}
}

func TestTextParserEmpty(t *testing.T) {
	p := &TextParser{}
	elements, err := p.Parse([]byte("  \n\n  \n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(elements) != 0 {
		t.Errorf("expected no elements, got %d", len(elements))
	}
}

func TestLooksLikeHeading(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"1. ПРЕДМЕТ ДОГОВОРА", true},
		{"СТАТЬЯ 5", true},
		{"Раздел о порядке расчетов между сторонами, изложенный очень длинно и подробно, с перечислением всех условий и обстоятельств, которые могут возникнуть", false},
		{"Поставщик обязуется поставить товар.", false},
		{"2 Порядок расчетов", true},
	}
	for _, c := range cases {
		if got := looksLikeHeading(c.text); got != c.want {
			t.Errorf("looksLikeHeading(%q)=%v, want %v", c.text, got, c.want)
		}
	}
}

func buildDocx(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write([]byte(documentXML)); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

const sampleDocumentXML = `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>Предмет договора</w:t></w:r></w:p>
    <w:p><w:r><w:t>Поставщик обязуется </w:t></w:r><w:r><w:t>поставить товар.</w:t></w:r></w:p>
    <w:tbl>
      <w:tr><w:tc><w:p><w:r><w:t>Цена</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>100</w:t></w:r></w:p></w:tc></w:tr>
    </w:tbl>
  </w:body>
</w:document>`

func TestDocxParser(t *testing.T) {
	p := &DocxParser{}
	elements, err := p.Parse(buildDocx(t, sampleDocumentXML))
	if err != nil {
		t.Fatal(err)
	}
	if len(elements) != 3 {
		t.Fatalf("expected 3 elements, got %d: %+v", len(elements), elements)
	}
	if elements[0].Kind != models.ElementHeading || elements[0].Level != 1 {
		t.Errorf("heading not detected: %+v", elements[0])
	}
	if elements[1].Text != "Поставщик обязуется поставить товар." {
		t.Errorf("run texts not merged: %q", elements[1].Text)
	}
	if elements[2].Kind != models.ElementTableRow || elements[2].Text != "Цена | 100" {
		t.Errorf("table row: %+v", elements[2])
	}
}

func TestDocxParserRussianHeadingStyle(t *testing.T) {
	xmlDoc := `<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body><w:p><w:pPr><w:pStyle w:val="Заголовок2"/></w:pPr><w:r><w:t>Порядок расчетов</w:t></w:r></w:p></w:body>
</w:document>`
	p := &DocxParser{}
	elements, err := p.Parse(buildDocx(t, xmlDoc))
	if err != nil {
		t.Fatal(err)
	}
	if len(elements) != 1 || elements[0].Kind != models.ElementHeading || elements[0].Level != 2 {
		t.Errorf("russian heading style: %+v", elements)
	}
}

func TestDocxParserCorrupt(t *testing.T) {
	p := &DocxParser{}
	_, err := p.Parse([]byte("not a zip"))
	if !errors.Is(err, ErrCorruptFile) {
		t.Errorf("expected ErrCorruptFile, got %v", err)
	}
}
