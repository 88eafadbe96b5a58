package pptx

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bitbucket.org/airenas/slidego/internal/pkg/cmdapp"
	"bitbucket.org/airenas/slidego/internal/pkg/jobs"
	"github.com/pkg/errors"
)

// Slide dimensions in EMU, 16:9
const (
	slideCx = 12192000
	slideCy = 6858000
)

// Writer assembles rendered page images into a pptx file
type Writer struct {
	dir string
}

// NewWriter creates Writer instance saving decks to dir
func NewWriter(dir string) (*Writer, error) {
	if dir == "" {
		return nil, errors.New("No output dir provided")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, "Can't create "+dir)
	}
	return &Writer{dir: dir}, nil
}

// Write builds the deck from the rendered images of the job, one
// full bleed picture per slide, keeping the slide order. Returns the
// deck file path
func (w *Writer) Write(job *jobs.Job) (string, error) {
	if len(job.Rendered) == 0 {
		return "", errors.New("no rendered slides")
	}
	title := ""
	if job.Structure != nil {
		title = job.Structure.Title
	}
	file := filepath.Join(w.dir, job.ID+".pptx")
	cmdapp.Log.Infof("Writing %d slides to %s", len(job.Rendered), file)
	f, err := os.Create(file)
	if err != nil {
		return "", errors.Wrap(err, "Can't create "+file)
	}
	defer f.Close()
	zw := zip.NewWriter(f)
	if err := writeParts(zw, title, job.Rendered); err != nil {
		zw.Close()
		return "", err
	}
	if err := zw.Close(); err != nil {
		return "", errors.Wrap(err, "Can't finish "+file)
	}
	return file, nil
}

func writeParts(zw *zip.Writer, title string, images []string) error {
	n := len(images)
	parts := []struct{ name, data string }{
		{"[Content_Types].xml", contentTypes(n)},
		{"_rels/.rels", rootRels},
		{"docProps/core.xml", coreProps(title)},
		{"ppt/presentation.xml", presentation(n)},
		{"ppt/_rels/presentation.xml.rels", presentationRels(n)},
		{"ppt/slideMasters/slideMaster1.xml", slideMaster},
		{"ppt/slideMasters/_rels/slideMaster1.xml.rels", slideMasterRels},
		{"ppt/slideLayouts/slideLayout1.xml", slideLayout},
		{"ppt/slideLayouts/_rels/slideLayout1.xml.rels", slideLayoutRels},
		{"ppt/theme/theme1.xml", theme},
	}
	for i := 1; i <= n; i++ {
		parts = append(parts,
			struct{ name, data string }{fmt.Sprintf("ppt/slides/slide%d.xml", i), slide(i)},
			struct{ name, data string }{fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", i), slideRels(i)})
	}
	for _, p := range parts {
		if err := writePart(zw, p.name, p.data); err != nil {
			return err
		}
	}
	for i, img := range images {
		if err := writeMedia(zw, fmt.Sprintf("ppt/media/image%d.png", i+1), img); err != nil {
			return err
		}
	}
	return nil
}

func writePart(zw *zip.Writer, name, data string) error {
	pw, err := zw.Create(name)
	if err != nil {
		return errors.Wrap(err, "Can't create part "+name)
	}
	if _, err := io.WriteString(pw, xml.Header+data); err != nil {
		return errors.Wrap(err, "Can't write part "+name)
	}
	return nil
}

func writeMedia(zw *zip.Writer, name, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return errors.Wrap(err, "Can't open "+file)
	}
	defer f.Close()
	pw, err := zw.Create(name)
	if err != nil {
		return errors.Wrap(err, "Can't create part "+name)
	}
	if _, err := io.Copy(pw, f); err != nil {
		return errors.Wrap(err, "Can't write part "+name)
	}
	return nil
}

const nsCT = "http://schemas.openxmlformats.org/package/2006/content-types"
const nsPkgRel = "http://schemas.openxmlformats.org/package/2006/relationships"
const nsDocRel = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
const nsA = "http://schemas.openxmlformats.org/drawingml/2006/main"
const nsP = "http://schemas.openxmlformats.org/presentationml/2006/main"

func contentTypes(n int) string {
	var sb strings.Builder
	sb.WriteString(`<Types xmlns="` + nsCT + `">` +
		`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
		`<Default Extension="xml" ContentType="application/xml"/>` +
		`<Default Extension="png" ContentType="image/png"/>` +
		`<Override PartName="/docProps/core.xml" ContentType="application/vnd.openxmlformats-package.core-properties+xml"/>` +
		`<Override PartName="/ppt/presentation.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"/>` +
		`<Override PartName="/ppt/slideMasters/slideMaster1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideMaster+xml"/>` +
		`<Override PartName="/ppt/slideLayouts/slideLayout1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideLayout+xml"/>` +
		`<Override PartName="/ppt/theme/theme1.xml" ContentType="application/vnd.openxmlformats-officedocument.theme+xml"/>`)
	for i := 1; i <= n; i++ {
		sb.WriteString(fmt.Sprintf(`<Override PartName="/ppt/slides/slide%d.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slide+xml"/>`, i))
	}
	sb.WriteString(`</Types>`)
	return sb.String()
}

const rootRels = `<Relationships xmlns="` + nsPkgRel + `">` +
	`<Relationship Id="rId1" Type="` + nsDocRel + `/officeDocument" Target="ppt/presentation.xml"/>` +
	`<Relationship Id="rId2" Type="http://schemas.openxmlformats.org/package/2006/relationships/metadata/core-properties" Target="docProps/core.xml"/>` +
	`</Relationships>`

func coreProps(title string) string {
	var buf strings.Builder
	_ = xml.EscapeText(&buf, []byte(title))
	escaped := buf.String()
	return `<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties"` +
		` xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/"` +
		` xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">` +
		`<dc:title>` + escaped + `</dc:title>` +
		`<dcterms:created xsi:type="dcterms:W3CDTF">` + time.Now().UTC().Format(time.RFC3339) + `</dcterms:created>` +
		`</cp:coreProperties>`
}

func presentation(n int) string {
	var sb strings.Builder
	sb.WriteString(`<p:presentation xmlns:a="` + nsA + `" xmlns:r="` + nsDocRel + `" xmlns:p="` + nsP + `">` +
		`<p:sldMasterIdLst><p:sldMasterId id="2147483648" r:id="rId1"/></p:sldMasterIdLst><p:sldIdLst>`)
	for i := 1; i <= n; i++ {
		sb.WriteString(fmt.Sprintf(`<p:sldId id="%d" r:id="rId%d"/>`, 255+i, 1+i))
	}
	sb.WriteString(`</p:sldIdLst>` +
		fmt.Sprintf(`<p:sldSz cx="%d" cy="%d"/><p:notesSz cx="%d" cy="%d"/>`, slideCx, slideCy, slideCy, slideCx) +
		`</p:presentation>`)
	return sb.String()
}

func presentationRels(n int) string {
	var sb strings.Builder
	sb.WriteString(`<Relationships xmlns="` + nsPkgRel + `">` +
		`<Relationship Id="rId1" Type="` + nsDocRel + `/slideMaster" Target="slideMasters/slideMaster1.xml"/>`)
	for i := 1; i <= n; i++ {
		sb.WriteString(fmt.Sprintf(`<Relationship Id="rId%d" Type="%s/slide" Target="slides/slide%d.xml"/>`, 1+i, nsDocRel, i))
	}
	sb.WriteString(`</Relationships>`)
	return sb.String()
}

const emptyTree = `<p:spTree><p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>` +
	`<p:grpSpPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="0" cy="0"/><a:chOff x="0" y="0"/><a:chExt cx="0" cy="0"/></a:xfrm></p:grpSpPr>`

const slideMaster = `<p:sldMaster xmlns:a="` + nsA + `" xmlns:r="` + nsDocRel + `" xmlns:p="` + nsP + `">` +
	`<p:cSld>` + emptyTree + `</p:spTree></p:cSld>` +
	`<p:clrMap bg1="lt1" tx1="dk1" bg2="lt2" tx2="dk2" accent1="accent1" accent2="accent2" accent3="accent3"` +
	` accent4="accent4" accent5="accent5" accent6="accent6" hlink="hlink" folHlink="folHlink"/>` +
	`<p:sldLayoutIdLst><p:sldLayoutId id="2147483649" r:id="rId1"/></p:sldLayoutIdLst>` +
	`</p:sldMaster>`

const slideMasterRels = `<Relationships xmlns="` + nsPkgRel + `">` +
	`<Relationship Id="rId1" Type="` + nsDocRel + `/slideLayout" Target="../slideLayouts/slideLayout1.xml"/>` +
	`<Relationship Id="rId2" Type="` + nsDocRel + `/theme" Target="../theme/theme1.xml"/>` +
	`</Relationships>`

const slideLayout = `<p:sldLayout xmlns:a="` + nsA + `" xmlns:r="` + nsDocRel + `" xmlns:p="` + nsP + `" type="blank" preserve="1">` +
	`<p:cSld name="Blank">` + emptyTree + `</p:spTree></p:cSld>` +
	`<p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr>` +
	`</p:sldLayout>`

const slideLayoutRels = `<Relationships xmlns="` + nsPkgRel + `">` +
	`<Relationship Id="rId1" Type="` + nsDocRel + `/slideMaster" Target="../slideMasters/slideMaster1.xml"/>` +
	`</Relationships>`

func slide(i int) string {
	return `<p:sld xmlns:a="` + nsA + `" xmlns:r="` + nsDocRel + `" xmlns:p="` + nsP + `">` +
		`<p:cSld>` + emptyTree +
		fmt.Sprintf(`<p:pic><p:nvPicPr><p:cNvPr id="2" name="Slide %d"/><p:cNvPicPr/><p:nvPr/></p:nvPicPr>`, i) +
		`<p:blipFill><a:blip r:embed="rId2"/><a:stretch><a:fillRect/></a:stretch></p:blipFill>` +
		`<p:spPr><a:xfrm><a:off x="0" y="0"/>` +
		fmt.Sprintf(`<a:ext cx="%d" cy="%d"/>`, slideCx, slideCy) +
		`</a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr></p:pic>` +
		`</p:spTree></p:cSld><p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:sld>`
}

func slideRels(i int) string {
	return `<Relationships xmlns="` + nsPkgRel + `">` +
		`<Relationship Id="rId1" Type="` + nsDocRel + `/slideLayout" Target="../slideLayouts/slideLayout1.xml"/>` +
		fmt.Sprintf(`<Relationship Id="rId2" Type="%s/image" Target="../media/image%d.png"/>`, nsDocRel, i) +
		`</Relationships>`
}

const theme = `<a:theme xmlns:a="` + nsA + `" name="Office">` +
	`<a:themeElements>` +
	`<a:clrScheme name="Office">` +
	`<a:dk1><a:sysClr val="windowText" lastClr="000000"/></a:dk1>` +
	`<a:lt1><a:sysClr val="window" lastClr="FFFFFF"/></a:lt1>` +
	`<a:dk2><a:srgbClr val="44546A"/></a:dk2><a:lt2><a:srgbClr val="E7E6E6"/></a:lt2>` +
	`<a:accent1><a:srgbClr val="4472C4"/></a:accent1><a:accent2><a:srgbClr val="ED7D31"/></a:accent2>` +
	`<a:accent3><a:srgbClr val="A5A5A5"/></a:accent3><a:accent4><a:srgbClr val="FFC000"/></a:accent4>` +
	`<a:accent5><a:srgbClr val="5B9BD5"/></a:accent5><a:accent6><a:srgbClr val="70AD47"/></a:accent6>` +
	`<a:hlink><a:srgbClr val="0563C1"/></a:hlink><a:folHlink><a:srgbClr val="954F72"/></a:folHlink>` +
	`</a:clrScheme>` +
	`<a:fontScheme name="Office">` +
	`<a:majorFont><a:latin typeface="Calibri Light"/><a:ea typeface=""/><a:cs typeface=""/></a:majorFont>` +
	`<a:minorFont><a:latin typeface="Calibri"/><a:ea typeface=""/><a:cs typeface=""/></a:minorFont>` +
	`</a:fontScheme>` +
	`<a:fmtScheme name="Office">` +
	`<a:fillStyleLst><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:fillStyleLst>` +
	`<a:lnStyleLst><a:ln w="6350"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln><a:ln w="12700"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln><a:ln w="19050"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln></a:lnStyleLst>` +
	`<a:effectStyleLst><a:effectStyle><a:effectLst/></a:effectStyle><a:effectStyle><a:effectLst/></a:effectStyle><a:effectStyle><a:effectLst/></a:effectStyle></a:effectStyleLst>` +
	`<a:bgFillStyleLst><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:bgFillStyleLst>` +
	`</a:fmtScheme>` +
	`</a:themeElements>` +
	`</a:theme>`
