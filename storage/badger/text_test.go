package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stephrichter/tesserae-v5/core"
	"github.com/stephrichter/tesserae-v5/storage"
)

func TestTextRepository(t *testing.T) {
	_, sess := newTestSession(t)
	ctx := context.Background()
	texts := sess.Texts()

	var batch []*core.Text
	for _, title := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"} {
		batch = append(batch, &core.Text{Title: title, Language: "latin"})
	}
	added, err := texts.AddTexts(ctx, batch...)
	require.NoError(t, err)
	require.Len(t, added, 12)

	all, err := texts.ListTexts(ctx)
	require.NoError(t, err)
	require.Len(t, all, 12)
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].Id, all[i].Id)
	}

	added[0].TokenCount = 42
	_, err = texts.UpdateTexts(ctx, added[0])
	require.NoError(t, err)

	got, err := texts.GetText(ctx, added[0].Id)
	require.NoError(t, err)
	assert.Equal(t, 42, got.TokenCount)
	assert.Equal(t, "a", got.Title)

	_, err = texts.GetText(ctx, 9999)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = texts.UpdateTexts(ctx, &core.Text{Id: 9999})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
