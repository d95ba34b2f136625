// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/pdiddy/pdf2md/pkg/types"
)

// fakeDocument implements Document over canned pages. A page index present
// in errs fails with that error.
type fakeDocument struct {
	pages    []types.RawPage
	errs     map[int]error
	warnings []string
	closed   bool
}

func (d *fakeDocument) NumPages() int { return len(d.pages) }

func (d *fakeDocument) Page(i int) (types.RawPage, error) {
	if err, ok := d.errs[i]; ok {
		return types.RawPage{}, err
	}
	return d.pages[i], nil
}

func (d *fakeDocument) Warnings() []string { return d.warnings }

func (d *fakeDocument) Close() error {
	d.closed = true
	return nil
}

// fakeCodec passes payloads through and fails on "corrupt".
type fakeCodec struct{}

func (fakeCodec) Transcode(data []byte, ext string) ([]byte, error) {
	if string(data) == "corrupt" {
		return nil, fmt.Errorf("%w: bad %s", types.ErrImageDecode, ext)
	}
	return data, nil
}

func rect(x1, y1, x2, y2 float64) types.Rect {
	return types.Rect{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

func textRaw(r types.Rect, text string, size float64) types.RawBlock {
	return types.RawBlock{
		BBox:  r,
		Lines: []types.RawLine{{Spans: []types.RawSpan{{Text: text, FontSize: size}}}},
	}
}

func imageRaw(r types.Rect, data string) types.RawBlock {
	return types.RawBlock{BBox: r, Image: &types.RawImage{Data: []byte(data), Ext: "png"}}
}

func newTestConverter(doc *fakeDocument, fs afero.Fs, log *bytes.Buffer) *Converter {
	return &Converter{
		Open:   func(string) (Document, error) { return doc, nil },
		Codec:  fakeCodec{},
		FS:     fs,
		Config: types.ConversionConfig{PageSeparator: true},
		Log:    log,
	}
}

// twoPageDocument has a heading and an image on page 0 and a table covering
// the only text block of page 1.
func twoPageDocument() *fakeDocument {
	table := types.TableRegion{
		BBox:     rect(50, 100, 550, 300),
		Markdown: "| 项目 | 金额 |\n|---|---|\n| 收入 | 100 |",
	}
	return &fakeDocument{
		pages: []types.RawPage{
			{
				Blocks: []types.RawBlock{
					textRaw(rect(50, 50, 300, 80), "第一章 总则", 24),
					imageRaw(rect(50, 100, 300, 400), "pixels"),
				},
			},
			{
				Blocks: []types.RawBlock{textRaw(rect(60, 120, 500, 140), "项目 金额 收入 100", 10)},
				Tables: []types.TableRegion{table},
			},
		},
	}
}

func TestConvert_EndToEnd(t *testing.T) {
	fs := afero.NewMemMapFs()
	doc := twoPageDocument()
	var log bytes.Buffer

	result, err := newTestConverter(doc, fs, &log).Convert(context.Background(), "/in/report.pdf", "/out")
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}

	if result.MarkdownPath != filepath.Join("/out", "report.md") {
		t.Errorf("MarkdownPath = %q", result.MarkdownPath)
	}
	if result.OutputDir != "/out" {
		t.Errorf("OutputDir = %q", result.OutputDir)
	}
	if result.Pages != 2 || result.Images != 1 || result.Tables != 1 {
		t.Errorf("counters = %d pages, %d images, %d tables", result.Pages, result.Images, result.Tables)
	}
	if !doc.closed {
		t.Error("document should be closed")
	}

	data, err := afero.ReadFile(fs, result.MarkdownPath)
	if err != nil {
		t.Fatalf("reading markdown: %v", err)
	}
	want := "\n\n# 第一章 总则\n\n" +
		"\n\n![image](images/page_0_image_1.png)\n\n" +
		PageSeparator +
		"\n\n| 项目 | 金额 |\n|---|---|\n| 收入 | 100 |\n\n" +
		PageSeparator
	if string(data) != want {
		t.Errorf("markdown =\n%q\nwant\n%q", string(data), want)
	}

	img, err := afero.ReadFile(fs, filepath.Join("/out", "images", "page_0_image_1.png"))
	if err != nil {
		t.Fatalf("reading image: %v", err)
	}
	if string(img) != "pixels" {
		t.Errorf("image content = %q", img)
	}

	if !strings.Contains(log.String(), "page 2/2: 1 blocks, 1 tables, 0 images") {
		t.Errorf("log output %q missing page summary", log.String())
	}
}

func TestConvert_WithoutSeparator(t *testing.T) {
	fs := afero.NewMemMapFs()
	conv := newTestConverter(twoPageDocument(), fs, &bytes.Buffer{})
	conv.Config.PageSeparator = false

	result, err := conv.Convert(context.Background(), "report.pdf", "out")
	if err != nil {
		t.Fatal(err)
	}
	data, _ := afero.ReadFile(fs, result.MarkdownPath)
	if strings.Contains(string(data), "------------") {
		t.Error("separator should be absent")
	}
}

func TestConvert_ImageFailureLeavesNoMarkdown(t *testing.T) {
	fs := afero.NewMemMapFs()
	doc := &fakeDocument{pages: []types.RawPage{
		{Blocks: []types.RawBlock{textRaw(rect(0, 0, 10, 10), "ok", 10)}},
		{Blocks: []types.RawBlock{imageRaw(rect(0, 0, 10, 10), "corrupt")}},
	}}

	_, err := newTestConverter(doc, fs, &bytes.Buffer{}).Convert(context.Background(), "doc.pdf", "out")
	if !errors.Is(err, types.ErrImageDecode) {
		t.Fatalf("err = %v, want ErrImageDecode", err)
	}
	if exists, _ := afero.Exists(fs, filepath.Join("out", "doc.md")); exists {
		t.Error("markdown file must not be written after a failure")
	}
}

func TestConvert_OpenFailure(t *testing.T) {
	fs := afero.NewMemMapFs()
	conv := &Converter{
		Open:  func(string) (Document, error) { return nil, errors.New("no such file") },
		Codec: fakeCodec{},
		FS:    fs,
	}

	_, err := conv.Convert(context.Background(), "missing.pdf", "out")
	if !errors.Is(err, types.ErrSourceRead) {
		t.Fatalf("err = %v, want ErrSourceRead", err)
	}
	if exists, _ := afero.DirExists(fs, "out"); exists {
		t.Error("output directory should not be created for an unreadable source")
	}
}

func TestConvert_PageFailure(t *testing.T) {
	doc := &fakeDocument{
		pages: []types.RawPage{{}, {}},
		errs:  map[int]error{1: errors.New("broken xref")},
	}
	_, err := newTestConverter(doc, afero.NewMemMapFs(), &bytes.Buffer{}).
		Convert(context.Background(), "doc.pdf", "out")
	if !errors.Is(err, types.ErrSourceRead) {
		t.Fatalf("err = %v, want ErrSourceRead", err)
	}
}

func TestConvert_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestConverter(twoPageDocument(), afero.NewMemMapFs(), &bytes.Buffer{}).
		Convert(ctx, "doc.pdf", "out")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestConvert_Warnings(t *testing.T) {
	doc := &fakeDocument{pages: []types.RawPage{{}}, warnings: []string{"page 0: skipped image Im1 (JPXDecode)"}}
	var log bytes.Buffer

	if _, err := newTestConverter(doc, afero.NewMemMapFs(), &log).Convert(context.Background(), "a.pdf", "out"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(log.String(), "warning: page 0: skipped image Im1") {
		t.Errorf("log %q missing warning", log.String())
	}
}

func TestConvert_ImageSequencePerPage(t *testing.T) {
	fs := afero.NewMemMapFs()
	doc := &fakeDocument{pages: []types.RawPage{
		{Blocks: []types.RawBlock{imageRaw(rect(0, 0, 1, 1), "a"), imageRaw(rect(0, 2, 1, 3), "b")}},
		{Blocks: []types.RawBlock{imageRaw(rect(0, 0, 1, 1), "c")}},
	}}

	if _, err := newTestConverter(doc, fs, &bytes.Buffer{}).Convert(context.Background(), "a.pdf", "out"); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"page_0_image_1.png", "page_0_image_2.png", "page_1_image_1.png"} {
		if exists, _ := afero.Exists(fs, filepath.Join("out", "images", name)); !exists {
			t.Errorf("missing %s", name)
		}
	}
}

func TestMarkdownName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"/docs/关于业务通知.pdf", "关于业务通知.md"},
		{"report.PDF", "report.md"},
		{"archive.tar.pdf", "archive.tar.md"},
		{"noext", "noext.md"},
	}
	for _, tt := range tests {
		if got := MarkdownName(tt.in); got != tt.want {
			t.Errorf("MarkdownName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPrepareOutput_Idempotent(t *testing.T) {
	fs := afero.NewMemMapFs()
	for i := 0; i < 2; i++ {
		mdPath, err := PrepareOutput(fs, "in/a.pdf", "out")
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if mdPath != filepath.Join("out", "a.md") {
			t.Errorf("mdPath = %q", mdPath)
		}
	}
	if ok, _ := afero.DirExists(fs, filepath.Join("out", "images")); !ok {
		t.Error("images directory missing")
	}
}

func TestPrepareOutput_Failure(t *testing.T) {
	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())
	_, err := PrepareOutput(fs, "a.pdf", "out")
	if !errors.Is(err, types.ErrOutputWrite) {
		t.Fatalf("err = %v, want ErrOutputWrite", err)
	}
}

func TestAssemble(t *testing.T) {
	if got := Assemble([]string{"a", "b"}, true); got != "a"+PageSeparator+"b"+PageSeparator {
		t.Errorf("with separator: %q", got)
	}
	if got := Assemble([]string{"a", "b"}, false); got != "ab" {
		t.Errorf("without separator: %q", got)
	}
	if got := Assemble(nil, true); got != "" {
		t.Errorf("empty: %q", got)
	}
}

func TestWriteMarkdown_LeavesNoTempFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := fs.MkdirAll("out", 0o755); err != nil {
		t.Fatal(err)
	}
	if err := WriteMarkdown(fs, filepath.Join("out", "a.md"), "# 标题\n"); err != nil {
		t.Fatal(err)
	}
	entries, err := afero.ReadDir(fs, "out")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "a.md" {
		t.Errorf("entries = %v", entries)
	}
}
