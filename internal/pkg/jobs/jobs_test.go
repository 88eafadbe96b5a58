package jobs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testStructure() *Structure {
	return &Structure{Title: "Deck", Slides: []Slide{
		{Title: "One", Bullets: []string{"a", "b"}, ImageTheme: "nature"},
		{Title: "Two", Bullets: []string{"c"}},
	}}
}

func TestValidate(t *testing.T) {
	assert.Nil(t, testStructure().Validate())
}

func TestValidate_Fails(t *testing.T) {
	var st *Structure
	assert.NotNil(t, st.Validate())

	st = testStructure()
	st.Title = ""
	assert.NotNil(t, st.Validate())

	st = testStructure()
	st.Slides = nil
	assert.NotNil(t, st.Validate())

	st = testStructure()
	st.Slides[1].Title = ""
	assert.NotNil(t, st.Validate())
}

func TestStructureClone(t *testing.T) {
	st := testStructure()
	cl := st.Clone()
	cl.Slides[0].Bullets[0] = "changed"
	cl.Slides[1].Title = "changed"
	assert.Equal(t, "a", st.Slides[0].Bullets[0])
	assert.Equal(t, "Two", st.Slides[1].Title)
}

func TestJobClone(t *testing.T) {
	job := &Job{ID: "id1", Structure: testStructure(),
		Transcript: &Transcript{Text: "olia", Words: []Word{{Word: "olia", Start: 0, End: 1}}},
		Images:     []ImageDescriptor{{URL: "http://img"}},
		Rendered:   []string{"f1.png"}}
	cl := job.Clone()
	cl.Structure.Title = "changed"
	cl.Transcript.Words[0].Word = "changed"
	cl.Images[0].URL = "changed"
	cl.Rendered[0] = "changed"
	assert.Equal(t, "Deck", job.Structure.Title)
	assert.Equal(t, "olia", job.Transcript.Words[0].Word)
	assert.Equal(t, "http://img", job.Images[0].URL)
	assert.Equal(t, "f1.png", job.Rendered[0])
}

func TestJobClone_KeepsNil(t *testing.T) {
	job := &Job{ID: "id1"}
	cl := job.Clone()
	assert.Nil(t, cl.Transcript)
	assert.Nil(t, cl.Structure)
	assert.Nil(t, cl.Images)
	assert.Nil(t, cl.Rendered)
	assert.Nil(t, cl.EditLog)
	assert.Nil(t, cl.CompletedAt)
}

func TestKnownTheme(t *testing.T) {
	assert.True(t, KnownTheme("Modern Professional"))
	assert.True(t, KnownTheme("Dark Mode"))
	assert.False(t, KnownTheme("olia"))
	assert.False(t, KnownTheme(""))
}

func TestThemeByName(t *testing.T) {
	th := ThemeByName(DefaultTheme)
	assert.NotNil(t, th)
	assert.Equal(t, "Modern Professional", th.Name)
	assert.Nil(t, ThemeByName("olia"))
}
