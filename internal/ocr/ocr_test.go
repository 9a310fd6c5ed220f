package ocr

import (
	"archive/zip"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/docjobs/internal/common"
)

type call struct {
	name string
	args []string
}

type fakeRunner struct {
	mu     sync.Mutex
	calls  []call
	handle func(name string, args []string) ([]byte, []byte, error)
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{name: name, args: args})
	f.mu.Unlock()
	return f.handle(name, args)
}

func (f *fakeRunner) called(name string) []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		if c.name == name {
			out = append(out, c)
		}
	}
	return out
}

func newTestExtractor(r Runner) *Extractor {
	return NewExtractor(Config{}, nil, WithRunner(r), withPageCounter(func(string) (int, error) { return 2, nil }))
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, data, 0o600))
	return p
}

func TestExtract_PDFFastPath(t *testing.T) {
	body := strings.Repeat("Đề cương học phần Cấu trúc dữ liệu. ", 3) + "\f"
	r := &fakeRunner{handle: func(name string, _ []string) ([]byte, []byte, error) {
		if name == "pdftotext" {
			return []byte(body), nil, nil
		}
		return nil, nil, errors.New("unexpected " + name)
	}}
	res, err := newTestExtractor(r).Extract(context.Background(), writeFile(t, "a.pdf", []byte("%PDF")))
	require.NoError(t, err)
	assert.Equal(t, "pdf-text", res.Method)
	assert.Equal(t, "PDF", res.SourceType)
	assert.Equal(t, 2, res.Pages)
	assert.Contains(t, res.Text, "Cấu trúc dữ liệu")
	assert.Empty(t, r.called("pdftoppm"))
}

func TestExtract_PDFFallsBackToOCR(t *testing.T) {
	pdf := writeFile(t, "scan.pdf", []byte("%PDF"))
	r := &fakeRunner{}
	r.handle = func(name string, args []string) ([]byte, []byte, error) {
		switch name {
		case "pdftotext":
			return []byte("  \f"), nil, nil
		case "pdftoppm":
			prefix := args[len(args)-1]
			for _, n := range []string{"1", "2"} {
				if err := os.WriteFile(prefix+"-"+n+".png", []byte("png"), 0o600); err != nil {
					return nil, nil, err
				}
			}
			return nil, nil, nil
		case "tesseract":
			if strings.HasSuffix(args[0], "-1.png") {
				return []byte("Tuần 1: Giới thiệu\n"), nil, nil
			}
			return []byte("Tuần 2: Danh sách liên kết\n"), nil, nil
		}
		return nil, nil, errors.New("unexpected")
	}

	res, err := newTestExtractor(r).Extract(context.Background(), pdf)
	require.NoError(t, err)
	assert.Equal(t, "pdf-ocr", res.Method)
	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, "Tuần 1: Giới thiệu\nTuần 2: Danh sách liên kết", res.Text)

	pp := r.called("pdftoppm")
	require.Len(t, pp, 1)
	assert.Equal(t, []string{"-r", "300", "-png"}, pp[0].args[:3])

	tess := r.called("tesseract")
	require.Len(t, tess, 2)
	assert.Subset(t, tess[0].args, []string{"-l", "vie", "--psm", "6"})
	assert.NoDirExists(t, pdf+".pages")
}

func TestExtract_OCRFailureYieldsEmptyText(t *testing.T) {
	r := &fakeRunner{handle: func(string, []string) ([]byte, []byte, error) {
		return nil, []byte("Error opening data file"), errors.New("exit status 1")
	}}
	res, err := newTestExtractor(r).Extract(context.Background(), writeFile(t, "photo.JPG", []byte{0xff, 0xd8}))
	require.NoError(t, err)
	assert.Empty(t, res.Text)
	assert.Equal(t, "IMAGE", res.SourceType)
	assert.NotEmpty(t, res.Warnings)
}

func TestExtract_Unsupported(t *testing.T) {
	r := &fakeRunner{handle: func(string, []string) ([]byte, []byte, error) { return nil, nil, nil }}
	_, err := newTestExtractor(r).Extract(context.Background(), writeFile(t, "sheet.xlsx", []byte("PK")))
	assert.ErrorIs(t, err, common.ErrUnsupportedFormat)
	assert.Empty(t, r.calls)
}

func TestExtract_DOCXParagraphs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "syllabus.docx")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>Học phần:</w:t></w:r><w:r><w:t xml:space="preserve"> Mạng máy tính</w:t></w:r></w:p>
<w:p><w:r><w:t>Số tín chỉ</w:t><w:tab/><w:t>3</w:t></w:r></w:p>
<w:p/>
<w:tbl><w:tr><w:tc><w:p><w:r><w:t>Tuần 1</w:t></w:r></w:p></w:tc></w:tr></w:tbl>
</w:body>
</w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	r := &fakeRunner{handle: func(string, []string) ([]byte, []byte, error) { return nil, nil, errors.New("no exec") }}
	res, err := newTestExtractor(r).Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "docx", res.Method)
	assert.Equal(t, "Học phần: Mạng máy tính\nSố tín chỉ\t3\n\nTuần 1", res.Text)
	assert.Empty(t, r.calls)
}

func TestExtract_CorruptDOCXIsEmpty(t *testing.T) {
	r := &fakeRunner{handle: func(string, []string) ([]byte, []byte, error) { return nil, nil, nil }}
	res, err := newTestExtractor(r).Extract(context.Background(), writeFile(t, "broken.docx", []byte("not a zip")))
	require.NoError(t, err)
	assert.Empty(t, res.Text)
}

func TestExtract_HTML(t *testing.T) {
	page := `<html><head><style>p{}</style><script>var x=1</script></head>
<body><h1>Chuẩn đầu ra</h1>
<p>CLO1:   Phân tích   yêu cầu</p></body></html>`
	r := &fakeRunner{handle: func(string, []string) ([]byte, []byte, error) { return nil, nil, nil }}
	res, err := newTestExtractor(r).Extract(context.Background(), writeFile(t, "clo.html", []byte(page)))
	require.NoError(t, err)
	assert.Equal(t, "Chuẩn đầu ra\nCLO1: Phân tích yêu cầu", res.Text)
}

func TestNormalize(t *testing.T) {
	in := "Line 1\r\n\r\n\r\n\r\nLine\t\t2   end  \n"
	assert.Equal(t, "Line 1\n\nLine 2 end", Normalize(in))
}
