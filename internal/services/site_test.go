package services

import (
	"context"
	"strings"
	"testing"

	"github.com/musicclub/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateSiteHomeLegacyLayout(t *testing.T) {
	home := MigrateSiteHome(types.SiteHome{
		"heroTitle":    "Guitar Club",
		"heroSubtitle": "We play loud",
		"about":        "Since 1999",
		"links":        "not a list",
	})

	assert.Equal(t, "Guitar Club", home["siteName"])
	assert.Equal(t, "We play loud", home["heroDesc"])
	assert.Equal(t, "Since 1999", home["section1Desc"])
	assert.Equal(t, []any{}, home["links"])
	assert.Equal(t, []any{}, home["announcements"])
	assert.NotEmpty(t, home["liveBadge"])
}

func TestMigrateSiteHomeCurrentLayoutUntouched(t *testing.T) {
	in := types.SiteHome{"siteName": "Music Club", "custom": 1.0}
	assert.Equal(t, in, MigrateSiteHome(in))
}

func TestSiteHomeMergeAndPersist(t *testing.T) {
	objects := newMemObjects()
	svc := NewSiteService(objects)
	ctx := context.Background()

	home, err := svc.Home(ctx)
	require.NoError(t, err)
	assert.Equal(t, []any{}, home["links"])

	_, err = svc.UpdateHome(ctx, types.SiteHome{"siteName": "Music Club", "heroDesc": "Welcome"})
	require.NoError(t, err)
	updated, err := svc.UpdateHome(ctx, types.SiteHome{"heroDesc": "Welcome back"})
	require.NoError(t, err)
	assert.Equal(t, "Music Club", updated["siteName"])
	assert.Equal(t, "Welcome back", updated["heroDesc"])

	reloaded, err := svc.Home(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Welcome back", reloaded["heroDesc"])
}

func TestSiteHomeCorruptDocument(t *testing.T) {
	objects := newMemObjects()
	require.NoError(t, objects.Put(context.Background(), siteHomeKey, strings.NewReader("{oops"), 5, "application/json"))

	home, err := NewSiteService(objects).Home(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []any{}, home["announcements"])
}
