package extract

import (
	"archive/zip"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	nsA = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsP = "http://schemas.openxmlformats.org/presentationml/2006/main"
	nsR = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
)

// slideXML builds a slide with one text box per shape; each shape is a list
// of paragraphs and each paragraph a list of runs.
func slideXML(shapes ...[][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<?xml version="1.0" encoding="UTF-8"?><p:sld xmlns:a="%s" xmlns:p="%s"><p:cSld><p:spTree>`, nsA, nsP)
	for _, shape := range shapes {
		b.WriteString(`<p:sp><p:txBody><a:bodyPr/>`)
		for _, para := range shape {
			b.WriteString(`<a:p>`)
			for _, run := range para {
				if run == "\n" {
					b.WriteString(`<a:br/>`)
					continue
				}
				fmt.Fprintf(&b, `<a:r><a:rPr lang="zh-CN"/><a:t>%s</a:t></a:r>`, run)
			}
			b.WriteString(`</a:p>`)
		}
		b.WriteString(`</p:txBody></p:sp>`)
	}
	b.WriteString(`</p:spTree></p:cSld></p:sld>`)
	return b.String()
}

// writeDeck zips parts into a .pptx file.
func writeDeck(t *testing.T, parts map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "deck.pptx")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, body := range parts {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func TestPPTXParser_PresentationOrder(t *testing.T) {
	presentation := fmt.Sprintf(`<?xml version="1.0"?><p:presentation xmlns:p="%s" xmlns:r="%s"><p:sldIdLst>`+
		`<p:sldId id="256" r:id="rId3"/><p:sldId id="257" r:id="rId2"/><p:sldId id="258" r:id="rId4"/>`+
		`</p:sldIdLst></p:presentation>`, nsP, nsR)
	rels := `<?xml version="1.0"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
		`<Relationship Id="rId2" Type="slide" Target="slides/slide1.xml"/>` +
		`<Relationship Id="rId3" Type="slide" Target="slides/slide2.xml"/>` +
		`<Relationship Id="rId4" Type="slide" Target="slides/slide3.xml"/></Relationships>`

	path := writeDeck(t, map[string]string{
		"ppt/presentation.xml":            presentation,
		"ppt/_rels/presentation.xml.rels": rels,
		"ppt/slides/slide1.xml":           slideXML([][]string{{"特征值", "与特征向量"}}, [][]string{{"Ax = ", "λx"}, {"  "}}),
		"ppt/slides/slide2.xml":           slideXML([][]string{{"Linear Algebra"}, {"Lecture 3", "\n", "Spring"}}),
		"ppt/slides/slide3.xml":           slideXML([][]string{{"   "}}),
	})

	units, err := PPTXParser{}.Parse(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Linear Algebra\nLecture 3\nSpring",
		"特征值与特征向量\nAx = λx",
	}, texts(units))
	assert.Equal(t, []int{1, 2}, pages(units))
}

func TestPPTXParser_FallsBackToSlideNumbers(t *testing.T) {
	path := writeDeck(t, map[string]string{
		"ppt/slides/slide10.xml":           slideXML([][]string{{"ten"}}),
		"ppt/slides/slide2.xml":            slideXML([][]string{{"two"}}),
		"ppt/slides/slide1.xml":            slideXML(),
		"ppt/slides/_rels/slide1.xml.rels": "<Relationships/>",
	})

	units, err := PPTXParser{}.Parse(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"two", "ten"}, texts(units))
	assert.Equal(t, []int{2, 3}, pages(units))
}

func TestPPTXParser_Errors(t *testing.T) {
	_, err := PPTXParser{}.Parse(context.Background(), filepath.Join(t.TempDir(), "missing.pptx"))
	assert.ErrorContains(t, err, "opening pptx")

	notZip := filepath.Join(t.TempDir(), "slides.pptx")
	require.NoError(t, os.WriteFile(notZip, []byte("not a deck"), 0o644))
	_, err = PPTXParser{}.Parse(context.Background(), notZip)
	assert.Error(t, err)

	broken := writeDeck(t, map[string]string{"ppt/slides/slide1.xml": "<p:sld><a:p><a:t>unclosed"})
	_, err = PPTXParser{}.Parse(context.Background(), broken)
	assert.ErrorContains(t, err, "parsing ppt/slides/slide1.xml")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = PPTXParser{}.Parse(ctx, writeDeck(t, map[string]string{"ppt/slides/slide1.xml": slideXML([][]string{{"x"}})}))
	assert.ErrorIs(t, err, context.Canceled)
}
