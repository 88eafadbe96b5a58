package pptx

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bitbucket.org/airenas/slidego/internal/pkg/jobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJob(t *testing.T, slides int) *jobs.Job {
	t.Helper()
	dir := t.TempDir()
	job := &jobs.Job{ID: "id1", Structure: &jobs.Structure{Title: "My Deck"}}
	for i := 0; i < slides; i++ {
		file := filepath.Join(dir, "slide_"+string(rune('1'+i))+".png")
		require.Nil(t, os.WriteFile(file, []byte("png-data-"+string(rune('1'+i))), 0644))
		job.Rendered = append(job.Rendered, file)
	}
	return job
}

func openParts(t *testing.T, file string) map[string]string {
	t.Helper()
	zr, err := zip.OpenReader(file)
	require.Nil(t, err)
	defer zr.Close()
	res := make(map[string]string)
	for _, f := range zr.File {
		r, err := f.Open()
		require.Nil(t, err)
		data, err := io.ReadAll(r)
		require.Nil(t, err)
		require.Nil(t, r.Close())
		res[f.Name] = string(data)
	}
	return res
}

func TestWrite(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	require.Nil(t, err)
	file, err := w.Write(testJob(t, 3))
	require.Nil(t, err)
	assert.True(t, strings.HasSuffix(file, "id1.pptx"))

	parts := openParts(t, file)
	for _, name := range []string{"[Content_Types].xml", "_rels/.rels", "docProps/core.xml",
		"ppt/presentation.xml", "ppt/_rels/presentation.xml.rels",
		"ppt/slideMasters/slideMaster1.xml", "ppt/slideLayouts/slideLayout1.xml",
		"ppt/theme/theme1.xml",
		"ppt/slides/slide1.xml", "ppt/slides/slide2.xml", "ppt/slides/slide3.xml",
		"ppt/slides/_rels/slide1.xml.rels",
		"ppt/media/image1.png", "ppt/media/image2.png", "ppt/media/image3.png"} {
		_, found := parts[name]
		assert.True(t, found, name)
	}
}

func TestWrite_KeepsSlideOrder(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	require.Nil(t, err)
	file, err := w.Write(testJob(t, 3))
	require.Nil(t, err)
	parts := openParts(t, file)

	pres := parts["ppt/presentation.xml"]
	i1 := strings.Index(pres, `r:id="rId2"`)
	i2 := strings.Index(pres, `r:id="rId3"`)
	i3 := strings.Index(pres, `r:id="rId4"`)
	assert.True(t, i1 > -1 && i1 < i2 && i2 < i3)

	// each slide references its own image
	assert.Contains(t, parts["ppt/slides/_rels/slide2.xml.rels"], "image2.png")
	assert.Equal(t, "png-data-2", parts["ppt/media/image2.png"])
}

func TestWrite_ContentTypes(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	require.Nil(t, err)
	file, err := w.Write(testJob(t, 2))
	require.Nil(t, err)
	parts := openParts(t, file)
	ct := parts["[Content_Types].xml"]
	assert.Contains(t, ct, `PartName="/ppt/slides/slide1.xml"`)
	assert.Contains(t, ct, `PartName="/ppt/slides/slide2.xml"`)
	assert.NotContains(t, ct, `PartName="/ppt/slides/slide3.xml"`)
	assert.Contains(t, ct, `Extension="png"`)
}

func TestWrite_Title(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	require.Nil(t, err)
	job := testJob(t, 1)
	job.Structure.Title = "A <Fancy> & Title"
	file, err := w.Write(job)
	require.Nil(t, err)
	parts := openParts(t, file)
	assert.Contains(t, parts["docProps/core.xml"], "A &lt;Fancy&gt; &amp; Title")
}

func TestWrite_FailsWithoutSlides(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	require.Nil(t, err)
	_, err = w.Write(&jobs.Job{ID: "id1"})
	assert.NotNil(t, err)
}

func TestWrite_FailsOnMissingImage(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	require.Nil(t, err)
	_, err = w.Write(&jobs.Job{ID: "id1", Rendered: []string{"/nonexistent/file.png"}})
	assert.NotNil(t, err)
}
