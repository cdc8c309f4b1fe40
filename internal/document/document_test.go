package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromText(t *testing.T) {
	doc, err := FromText("Go developer")
	require.NoError(t, err)
	assert.Equal(t, KindText, doc.Kind)
	assert.NoError(t, doc.Validate(0))

	_, err = FromText(" \n\t")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	page := Page{MIMEType: MIMEJPEG, Data: "AAAA"}

	assert.Error(t, (*Document)(nil).Validate(2))
	assert.Error(t, (&Document{Kind: KindImageSet}).Validate(2))
	assert.Error(t, (&Document{Kind: KindImageSet, Pages: []Page{page, page, page}}).Validate(2))
	assert.NoError(t, (&Document{Kind: KindImageSet, Pages: []Page{page, page}}).Validate(2))
	assert.Error(t, (&Document{Kind: KindImageSet, Pages: []Page{{MIMEType: MIMEJPEG}}}).Validate(2))
	assert.Error(t, (&Document{Kind: "video"}).Validate(2))
}

func TestFirstPageAndSize(t *testing.T) {
	doc := &Document{Kind: KindImageSet, Pages: []Page{{MIMEType: MIMEJPEG, Data: "AAAA"}, {MIMEType: MIMEJPEG, Data: "BB"}}}

	p, ok := doc.FirstPage()
	require.True(t, ok)
	assert.Equal(t, "AAAA", p.Data)
	assert.Equal(t, 6, doc.Size())

	_, ok = (&Document{Kind: KindText, Content: "x"}).FirstPage()
	assert.False(t, ok)
}
