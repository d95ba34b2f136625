// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/pdiddy/pdf2md/pkg/types"
)

// recordingWriter captures image writes in order.
type recordingWriter struct {
	names []string
	err   error
}

func (r *recordingWriter) WriteImage(name string, data []byte, ext string) error {
	if r.err != nil {
		return r.err
	}
	r.names = append(r.names, name)
	return nil
}

// passCodec returns payloads unchanged and rejects payloads equal to "bad".
type passCodec struct{}

func (passCodec) Transcode(data []byte, ext string) ([]byte, error) {
	if string(data) == "bad" {
		return nil, fmt.Errorf("%w: corrupt %s", types.ErrImageDecode, ext)
	}
	return data, nil
}

func TestPage_Fragments(t *testing.T) {
	page := types.PageContent{
		Number: 3,
		Chunks: []types.Block{
			&types.TextBlock{Text: "  第一章 总则 ", FontSize: 24},
			&types.TextBlock{Text: "正文内容。", FontSize: 10.5},
			&types.ImageBlock{Data: []byte("img"), Ext: "png"},
			&types.TableBlock{Markdown: "| a |\n|---|\n| 1 |"},
			&types.ImageBlock{Data: []byte("img"), Ext: "jpeg"},
		},
	}
	w := &recordingWriter{}

	got, n, err := Page(page, w)
	require.NoError(t, err)

	want := "\n\n# 第一章 总则\n\n" +
		"正文内容。" +
		"\n\n![image](images/page_3_image_1.png)\n\n" +
		"\n\n| a |\n|---|\n| 1 |\n\n" +
		"\n\n![image](images/page_3_image_2.jpeg)\n\n"
	assert.Equal(t, want, got)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"page_3_image_1.png", "page_3_image_2.jpeg"}, w.names)
}

func TestPage_SequenceRestartsEveryPage(t *testing.T) {
	w := &recordingWriter{}
	for _, number := range []int{0, 1, 7} {
		page := types.PageContent{
			Number: number,
			Chunks: []types.Block{
				&types.ImageBlock{Data: []byte("a"), Ext: "png"},
				&types.ImageBlock{Data: []byte("b"), Ext: "png"},
			},
		}
		_, _, err := Page(page, w)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{
		"page_0_image_1.png", "page_0_image_2.png",
		"page_1_image_1.png", "page_1_image_2.png",
		"page_7_image_1.png", "page_7_image_2.png",
	}, w.names)
}

func TestPage_ImageFailureIsFatal(t *testing.T) {
	page := types.PageContent{
		Chunks: []types.Block{
			&types.TextBlock{Text: "before", FontSize: 10},
			&types.ImageBlock{Data: []byte("x"), Ext: "png"},
		},
	}
	w := &recordingWriter{err: fmt.Errorf("%w: truncated", types.ErrImageDecode)}

	got, _, err := Page(page, w)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrImageDecode))
	assert.Empty(t, got)
}

func TestPage_EmptyPage(t *testing.T) {
	got, n, err := Page(types.PageContent{Number: 2}, &recordingWriter{})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, n)
}

func TestPage_MarkdownStructure(t *testing.T) {
	page := types.PageContent{
		Chunks: []types.Block{
			&types.TextBlock{Text: "第一章 总则", FontSize: 24},
			&types.TextBlock{Text: "第一节 目的", FontSize: 18},
			&types.TextBlock{Text: "1.1 范围", FontSize: 12},
			&types.ImageBlock{Data: []byte("img"), Ext: "png"},
		},
	}

	md, _, err := Page(page, &recordingWriter{})
	require.NoError(t, err)

	src := []byte(md)
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var levels []int
	var titles []string
	var images []string
	err = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			levels = append(levels, node.Level)
			titles = append(titles, inlineText(node, src))
		case *ast.Image:
			images = append(images, string(node.Destination))
		}
		return ast.WalkContinue, nil
	})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 4}, levels)
	assert.Equal(t, []string{"第一章 总则", "第一节 目的", "1.1 范围"}, titles)
	assert.Equal(t, []string{"images/page_0_image_1.png"}, images)
}

func inlineText(n ast.Node, src []byte) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			b.Write(t.Segment.Value(src))
		}
	}
	return b.String()
}

func TestDirWriter(t *testing.T) {
	fs := afero.NewMemMapFs()
	dir := filepath.Join("out", ImagesDir)
	require.NoError(t, fs.MkdirAll(dir, 0o755))

	w := &DirWriter{FS: fs, Dir: dir, Codec: passCodec{}}
	require.NoError(t, w.WriteImage("page_0_image_1.png", []byte("pixels"), "png"))

	data, err := afero.ReadFile(fs, filepath.Join(dir, "page_0_image_1.png"))
	require.NoError(t, err)
	assert.Equal(t, "pixels", string(data))

	err = w.WriteImage("page_0_image_2.png", []byte("bad"), "png")
	assert.True(t, errors.Is(err, types.ErrImageDecode))
	exists, _ := afero.Exists(fs, filepath.Join(dir, "page_0_image_2.png"))
	assert.False(t, exists)
}

func TestDirWriter_WriteFailure(t *testing.T) {
	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())
	w := &DirWriter{FS: fs, Dir: "out", Codec: passCodec{}}

	err := w.WriteImage("page_0_image_1.png", []byte("pixels"), "png")
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrOutputWrite))
}
