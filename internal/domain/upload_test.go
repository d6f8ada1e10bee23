package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTrackedUploadClaim(t *testing.T) {
	u := NewTrackedUpload("uploads/a.jpg", nil)
	require.False(t, u.IsUsed)
	require.True(t, u.Consistent())
	require.False(t, u.ClaimedBy(EntityTypeProduct, 1))

	u.MarkUsed(EntityTypeProduct, 1)
	require.True(t, u.IsUsed)
	require.True(t, u.Consistent())
	require.True(t, u.ClaimedBy(EntityTypeProduct, 1))
	require.False(t, u.ClaimedBy(EntityTypeProduct, 2))
	require.False(t, u.ClaimedBy(EntityTypeBlogPost, 1))

	u.MarkUnused()
	require.False(t, u.IsUsed)
	require.True(t, u.Consistent())
	require.Empty(t, u.UsedInEntityType)
	require.Nil(t, u.UsedInEntityID)
}

func TestTrackedUploadConsistent(t *testing.T) {
	id := int64(1)
	for name, u := range map[string]*TrackedUpload{
		"used without type": {IsUsed: true, UsedInEntityID: &id},
		"used without id":   {IsUsed: true, UsedInEntityType: EntityTypeProduct},
		"ref without flag":  {UsedInEntityType: EntityTypeProduct, UsedInEntityID: &id},
	} {
		t.Run(name, func(t *testing.T) {
			require.False(t, u.Consistent())
		})
	}
}

func TestTrackedUploadOlderThan(t *testing.T) {
	u := &TrackedUpload{UploadedAt: time.Now().UTC().Add(-10 * time.Minute)}
	require.True(t, u.OlderThan(5*time.Minute))
	require.False(t, u.OlderThan(time.Hour))
}

func TestOwnedImagePaths(t *testing.T) {
	p := &Product{
		ID:        1,
		Thumbnail: "uploads/thumb.jpg",
		Images: []ProductImage{
			{Path: "uploads/g1.jpg"},
			{Path: ""},
			{Path: "uploads/g2.jpg"},
		},
		Patterns: []ProductPattern{{Name: "oak", Path: "uploads/p1.jpg"}},
	}
	require.Equal(t,
		[]string{"uploads/thumb.jpg", "uploads/g1.jpg", "uploads/g2.jpg", "uploads/p1.jpg"},
		OwnedImagePaths(p))

	require.Empty(t, OwnedImagePaths(&Topic{ID: 2}))
}

func TestLocalizedTextVariants(t *testing.T) {
	require.Empty(t, LocalizedText{}.Variants())
	require.Equal(t, []string{"latn"}, LocalizedText{SrLatn: "latn"}.Variants())
	require.Equal(t,
		[]string{"latn", "cyrl", "en"},
		LocalizedText{SrLatn: "latn", SrCyrl: "cyrl", En: "en"}.Variants())
}

func TestTopicRichTextFields(t *testing.T) {
	topic := &Topic{
		ShortDescription: LocalizedText{SrLatn: "short-latn"},
		FullDescription:  LocalizedText{SrLatn: "full-latn", En: "full-en"},
	}
	require.Equal(t, []string{"short-latn", "full-latn", "full-en"}, topic.RichTextFields())
}
