package extract

import (
	"archive/zip"
	"bytes"
	"cmp"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/poiesic/syllabus/ingestion"
)

const slidePrefix = "ppt/slides/slide"

// PPTXParser reads the text of a PowerPoint deck.
type PPTXParser struct{}

var _ ingestion.DocumentParser = PPTXParser{}

// Parse returns one unit per slide in presentation order, numbered from 1.
// Slides without text are omitted but keep their number.
func (PPTXParser) Parse(ctx context.Context, filePath string) ([]ingestion.DocumentUnit, error) {
	zr, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, fmt.Errorf("opening pptx: %w", err)
	}
	defer zr.Close()

	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	var units []ingestion.DocumentUnit
	for i, name := range slideOrder(files) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw, err := readZipEntry(files[name])
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		text, err := slideText(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", name, err)
		}
		if text == "" {
			continue
		}
		units = append(units, ingestion.DocumentUnit{PageNumber: pageNumber(i + 1), Text: text})
	}
	return units, nil
}

// slideOrder lists slide parts as ordered by ppt/presentation.xml, falling
// back to the number in the part name when the deck has no usable order.
func slideOrder(files map[string]*zip.File) []string {
	if ordered := presentationOrder(files); len(ordered) > 0 {
		return ordered
	}
	var names []string
	for name := range files {
		if slideIndex(name) > 0 {
			names = append(names, name)
		}
	}
	slices.SortFunc(names, func(a, b string) int {
		return cmp.Compare(slideIndex(a), slideIndex(b))
	})
	return names
}

// slideIndex returns N for "ppt/slides/slideN.xml" and 0 for anything else.
func slideIndex(name string) int {
	rest, ok := strings.CutPrefix(name, slidePrefix)
	if !ok {
		return 0
	}
	rest, ok = strings.CutSuffix(rest, ".xml")
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}

type presentationXML struct {
	Slides []struct {
		RelID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	} `xml:"sldIdLst>sldId"`
}

type relationshipsXML struct {
	Rels []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

func presentationOrder(files map[string]*zip.File) []string {
	presRaw, err := readZipEntry(files["ppt/presentation.xml"])
	if err != nil {
		return nil
	}
	relsRaw, err := readZipEntry(files["ppt/_rels/presentation.xml.rels"])
	if err != nil {
		return nil
	}
	var pres presentationXML
	var rels relationshipsXML
	if xml.Unmarshal(presRaw, &pres) != nil || xml.Unmarshal(relsRaw, &rels) != nil {
		return nil
	}

	targets := make(map[string]string, len(rels.Rels))
	for _, r := range rels.Rels {
		targets[r.ID] = path.Clean(path.Join("ppt", r.Target))
	}
	var names []string
	for _, s := range pres.Slides {
		name, ok := targets[s.RelID]
		if !ok || files[name] == nil {
			return nil
		}
		names = append(names, name)
	}
	return names
}

func readZipEntry(f *zip.File) ([]byte, error) {
	if f == nil {
		return nil, fmt.Errorf("missing part")
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// slideText joins the non-empty paragraphs of a slide with newlines.
// Runs inside a paragraph are concatenated and <a:br/> becomes a newline.
func slideText(raw []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(raw))
	var paragraphs []string
	var para strings.Builder
	inText := false
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				para.Reset()
			case "t":
				inText = true
			case "br":
				para.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if s := strings.TrimSpace(para.String()); s != "" {
					paragraphs = append(paragraphs, s)
				}
				para.Reset()
			}
		}
	}
	return strings.Join(paragraphs, "\n"), nil
}
