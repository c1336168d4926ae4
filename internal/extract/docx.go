package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/contraudit/contraudit/internal/models"
)

// docxDocumentXMLPath is the default path to the main document body inside a .docx zip.
const docxDocumentXMLPath = "word/document.xml"

// contentTypesPath is the path to [Content_Types].xml in OOXML packages.
const contentTypesPath = "[Content_Types].xml"

// docxMainContentType is the content type for the main document in DOCX files.
const docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"

// partNameRe extracts PartName from Override elements in [Content_Types].xml.
var partNameRe = regexp.MustCompile(`<Override[^>]+PartName="([^"]+)"[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"`)

// partNameRe2 handles the case where ContentType appears before PartName.
var partNameRe2 = regexp.MustCompile(`<Override[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"[^>]+PartName="([^"]+)"`)

// headingStyleRe matches Word heading style ids, both English and Russian.
var headingStyleRe = regexp.MustCompile(`(?i)(?:Heading|Заголовок)\s*([1-6])`)

// DocxParser parses .docx files into heading, paragraph, and table-row elements,
// walking word/document.xml in document order.
type DocxParser struct{}

// Parse extracts elements from .docx bytes. Headings are detected from
// paragraph styles; each table row becomes one element with cells joined
// by " | ".
func (p *DocxParser) Parse(content []byte) ([]models.Element, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("%w: not a zip archive: %v", ErrCorruptFile, err)
	}
	docPath := findDocxMainDocumentPath(zr)
	if docPath == "" {
		docPath = docxDocumentXMLPath
	}
	var docXML []byte
	for _, f := range zr.File {
		if f.Name != docPath {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: open %s: %v", ErrCorruptFile, docPath, err)
		}
		docXML, err = io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", ErrCorruptFile, docPath, err)
		}
		break
	}
	if docXML == nil {
		return nil, fmt.Errorf("%w: missing %s", ErrCorruptFile, docPath)
	}
	return walkDocumentXML(docXML)
}

// findDocxMainDocumentPath finds the main document path from [Content_Types].xml.
// Returns the path without leading slash, or empty string if not found.
func findDocxMainDocumentPath(zr *zip.Reader) string {
	for _, f := range zr.File {
		if f.Name != contentTypesPath {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return ""
		}
		data, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return ""
		}
		content := string(data)
		if matches := partNameRe.FindStringSubmatch(content); len(matches) > 1 {
			return strings.TrimPrefix(matches[1], "/")
		}
		if matches := partNameRe2.FindStringSubmatch(content); len(matches) > 1 {
			return strings.TrimPrefix(matches[1], "/")
		}
		return ""
	}
	return ""
}

// walkDocumentXML streams document.xml tokens and emits elements in document
// order. Paragraphs inside table cells contribute to the cell, not to the
// paragraph stream.
func walkDocumentXML(docXML []byte) ([]models.Element, error) {
	dec := xml.NewDecoder(bytes.NewReader(docXML))

	var (
		out       []models.Element
		paraText  strings.Builder
		paraStyle string
		inPara    bool
		tblDepth  int
		cellText  strings.Builder
		rowCells  []string
		inCell    bool
	)

	emitParagraph := func() {
		text := strings.TrimSpace(paraText.String())
		paraText.Reset()
		style := paraStyle
		paraStyle = ""
		if text == "" {
			return
		}
		kind := models.ElementParagraph
		level := 0
		if m := headingStyleRe.FindStringSubmatch(style); m != nil {
			kind = models.ElementHeading
			level, _ = strconv.Atoi(m[1])
		}
		out = append(out, models.Element{Kind: kind, Text: text, Level: level, Order: len(out)})
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: malformed document xml: %v", ErrCorruptFile, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				tblDepth++
			case "tr":
				if tblDepth > 0 {
					rowCells = rowCells[:0]
				}
			case "tc":
				if tblDepth > 0 {
					inCell = true
					cellText.Reset()
				}
			case "p":
				if tblDepth == 0 {
					inPara = true
					paraText.Reset()
					paraStyle = ""
				}
			case "pStyle":
				for _, attr := range t.Attr {
					if attr.Name.Local == "val" {
						paraStyle = attr.Value
					}
				}
			case "t":
				var text string
				if err := dec.DecodeElement(&text, &t); err != nil {
					continue
				}
				if inCell {
					cellText.WriteString(text)
				} else if inPara {
					paraText.WriteString(text)
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "tbl":
				if tblDepth > 0 {
					tblDepth--
				}
			case "tr":
				if tblDepth > 0 && len(rowCells) > 0 {
					nonEmpty := false
					for _, c := range rowCells {
						if strings.TrimSpace(c) != "" {
							nonEmpty = true
							break
						}
					}
					if nonEmpty {
						out = append(out, models.Element{
							Kind:  models.ElementTableRow,
							Text:  strings.Join(rowCells, " | "),
							Order: len(out),
						})
					}
				}
			case "tc":
				if inCell {
					rowCells = append(rowCells, strings.TrimSpace(cellText.String()))
					inCell = false
				}
			case "p":
				if inPara {
					inPara = false
					emitParagraph()
				} else if inCell {
					// paragraph break inside a cell
					cellText.WriteString(" ")
				}
			}
		}
	}
	return out, nil
}
